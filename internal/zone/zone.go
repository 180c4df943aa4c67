// Package zone gates detections to the horizontal measurement band of the
// frame and classifies smoothed speeds against the posted limit.
package zone

import (
	"github.com/trafficlens/speedcam/internal/config"
	"github.com/trafficlens/speedcam/internal/geom"
)

// Band is the horizontal strip of the frame where speed measurements are
// considered reliable, expressed in pixel rows.
type Band struct {
	TopY    int
	BottomY int
}

// BandFromTuning derives the measurement band for a frame of the given
// pixel height from the configured top and bottom fractions.
func BandFromTuning(cfg *config.TuningConfig, frameHeight int) Band {
	return Band{
		TopY:    int(float64(frameHeight) * cfg.GetZoneTopFraction()),
		BottomY: int(float64(frameHeight) * cfg.GetZoneBottomFraction()),
	}
}

// Contains reports whether a centroid falls inside the band. Both edges
// are inclusive.
func (b Band) Contains(p geom.Point) bool {
	y := int(p.Y)
	return y >= b.TopY && y <= b.BottomY
}

// Classifier compares smoothed speeds against the posted limit.
type Classifier struct {
	LimitKmh float64
}

// ClassifierFromTuning builds a classifier from the configured limit.
func ClassifierFromTuning(cfg *config.TuningConfig) Classifier {
	return Classifier{LimitKmh: cfg.GetSpeedLimitKmh()}
}

// Overspeed reports whether a speed exceeds the limit. A speed exactly at
// the limit is legal.
func (c Classifier) Overspeed(kmh float64) bool {
	return kmh > c.LimitKmh
}
