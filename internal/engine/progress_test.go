package engine

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressLifecycle(t *testing.T) {
	var p Progress
	assert.Equal(t, 0.0, p.Percent())
	assert.False(t, p.Done())

	p.Set(42.5, "Processing frame 425/1000")
	percent, message := p.Status()
	assert.Equal(t, 42.5, percent)
	assert.Equal(t, "Processing frame 425/1000", message)

	p.Finish("Completed: 12 vehicle detections")
	percent, message = p.Status()
	assert.Equal(t, 100.0, percent)
	assert.Equal(t, "Completed: 12 vehicle detections", message)
	assert.True(t, p.Done())

	// Late writes from a straggling loop are ignored.
	p.Set(55, "Processing frame 550/1000")
	percent, message = p.Status()
	assert.Equal(t, 100.0, percent)
	assert.Equal(t, "Completed: 12 vehicle detections", message)
}

func TestProgressFailSentinel(t *testing.T) {
	var p Progress
	p.Set(80, "Processing frame 800/1000")
	p.Fail(errors.New("decode failure"))
	percent, message := p.Status()
	assert.Equal(t, ProgressFailed, percent)
	assert.Equal(t, "Error: decode failure", message)
	assert.True(t, p.Done())

	p.Set(90, "Processing frame 900/1000")
	assert.Equal(t, ProgressFailed, p.Percent())
}

func TestProgressConcurrentAccess(t *testing.T) {
	var p Progress
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(v float64) {
			defer wg.Done()
			p.Set(v, fmt.Sprintf("Processing frame %d/80", int(v)))
		}(float64(i * 10))
		go func() {
			defer wg.Done()
			_, _ = p.Status()
		}()
	}
	wg.Wait()
	p.Finish("Completed: 0 vehicle detections")
	assert.Equal(t, 100.0, p.Percent())
}
