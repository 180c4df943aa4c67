// Package track owns vehicle identity across frames: the Track entity with
// its bounded position history, the store of active and dormant tracks, and
// the greedy nearest-centroid resolver that binds detections to identities.
package track

import (
	"github.com/trafficlens/speedcam/internal/vision"
)

// Plate holds the most recent accepted plate read for a track. Only the
// latest invocation's winner is kept; a later lower-confidence read
// replaces an earlier higher-confidence one. That regression is a known
// property of the cadence design, kept for behavioural fidelity.
type Plate struct {
	Text       string
	Confidence float64
	Box        vision.Quad // relative to the vehicle crop it was read from
}

// Track is the persistent per-vehicle state spanning multiple frames.
// Identities are monotonically increasing and never reused within a run.
type Track struct {
	ID            int64
	History       *History
	LastSeenFrame int

	// Smoothed speed estimate in km/h. Zero until the history holds enough
	// samples for the estimator to produce a value.
	SpeedKmh float64
	// speedValid marks whether SpeedKmh carries a real estimate; the first
	// raw estimate seeds the smoother rather than being blended with zero.
	speedValid bool

	// Cached plate read, nil until recognition first succeeds.
	Plate *Plate
}

// HasSpeed reports whether the track carries a smoothed speed estimate.
func (t *Track) HasSpeed() bool { return t.speedValid }

// SetSpeed records a new smoothed estimate.
func (t *Track) SetSpeed(kmh float64) {
	t.SpeedKmh = kmh
	t.speedValid = true
}

// SetPlate caches a plate read on the track, replacing any previous one.
func (t *Track) SetPlate(text string, confidence float64, box vision.Quad) {
	t.Plate = &Plate{Text: text, Confidence: confidence, Box: box}
}
