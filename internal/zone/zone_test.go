package zone

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trafficlens/speedcam/internal/config"
	"github.com/trafficlens/speedcam/internal/geom"
)

func TestBandFromTuning(t *testing.T) {
	b := BandFromTuning(config.EmptyTuningConfig(), 720)
	assert.Equal(t, 288, b.TopY)    // 40% of 720
	assert.Equal(t, 504, b.BottomY) // 70% of 720
}

func TestBandContains(t *testing.T) {
	b := Band{TopY: 288, BottomY: 504}

	tests := []struct {
		name string
		y    float64
		want bool
	}{
		{"above band", 287, false},
		{"top edge inclusive", 288, true},
		{"inside", 400, true},
		{"bottom edge inclusive", 504, true},
		{"below band", 505, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, b.Contains(geom.Point{X: 640, Y: tt.y}))
		})
	}
}

func TestClassifierOverspeed(t *testing.T) {
	c := ClassifierFromTuning(config.EmptyTuningConfig())
	assert.Equal(t, 80.0, c.LimitKmh)

	assert.False(t, c.Overspeed(79.9))
	assert.False(t, c.Overspeed(80.0), "the limit itself is legal")
	assert.True(t, c.Overspeed(80.1))
}
