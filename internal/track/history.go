package track

import "github.com/trafficlens/speedcam/internal/geom"

// PositionSample is one observation of a track's centroid. Samples are
// appended in frame order; that ordering is what the speed estimator
// differentiates over.
type PositionSample struct {
	Position  geom.Point
	Frame     int
	Timestamp float64 // seconds since the start of the video (frame / fps)
}

// History is a fixed-capacity ring buffer of position samples. When full,
// appending evicts the oldest sample. Indexing is oldest-first.
type History struct {
	samples []PositionSample
	start   int
	count   int
}

// NewHistory creates a history with the given capacity.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{samples: make([]PositionSample, capacity)}
}

// Append adds a sample, evicting the oldest if the buffer is full.
func (h *History) Append(s PositionSample) {
	if h.count < len(h.samples) {
		h.samples[(h.start+h.count)%len(h.samples)] = s
		h.count++
		return
	}
	h.samples[h.start] = s
	h.start = (h.start + 1) % len(h.samples)
}

// Len returns the number of samples currently held.
func (h *History) Len() int { return h.count }

// Cap returns the buffer capacity.
func (h *History) Cap() int { return len(h.samples) }

// At returns the i-th sample, oldest first. It panics if i is out of range.
func (h *History) At(i int) PositionSample {
	if i < 0 || i >= h.count {
		panic("track: history index out of range")
	}
	return h.samples[(h.start+i)%len(h.samples)]
}

// Last returns the most recent sample and true, or a zero sample and false
// when the history is empty.
func (h *History) Last() (PositionSample, bool) {
	if h.count == 0 {
		return PositionSample{}, false
	}
	return h.At(h.count - 1), true
}

// Reset discards all samples but keeps the capacity.
func (h *History) Reset() {
	h.start = 0
	h.count = 0
}

// Snapshot returns the samples oldest-first in a freshly allocated slice.
func (h *History) Snapshot() []PositionSample {
	out := make([]PositionSample, h.count)
	for i := 0; i < h.count; i++ {
		out[i] = h.At(i)
	}
	return out
}
