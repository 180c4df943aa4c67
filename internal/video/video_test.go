package video

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrameTimestamp(t *testing.T) {
	m := Meta{Width: 1280, Height: 720, FPS: 30, TotalFrames: 900}

	assert.Equal(t, 0.0, m.FrameTimestamp(0))
	assert.InDelta(t, 0.1, m.FrameTimestamp(3), 1e-9)
	assert.InDelta(t, 30.0, m.FrameTimestamp(900), 1e-9)
}
