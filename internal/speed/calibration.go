// Package speed turns a track's position history into a smoothed speed
// estimate: a pixel-to-meter calibration derived from the frame geometry,
// finite differences over the most recent history intervals, and an
// exponential moving average on top of the raw estimate.
package speed

import (
	"github.com/trafficlens/speedcam/internal/config"
)

// Calibration maps pixel displacement to road-plane meters. It comes from
// frame geometry alone: the road is assumed to span a fixed fraction of the
// frame width and to carry a known number of lanes of standard width.
type Calibration struct {
	PixelsPerMeter float64
}

// CalibrationFromTuning derives a calibration for a frame of the given
// pixel width. The ratio is clamped to a plausible range so that extreme
// resolutions cannot produce absurd speeds.
func CalibrationFromTuning(cfg *config.TuningConfig, frameWidth int) Calibration {
	roadWidthPx := float64(frameWidth) * cfg.GetRoadWidthFraction()
	roadWidthM := float64(cfg.GetLaneCount()) * cfg.GetLaneWidthMeters()

	ppm := roadWidthPx / roadWidthM
	if min := cfg.GetPixelsPerMeterMin(); ppm < min {
		ppm = min
	}
	if max := cfg.GetPixelsPerMeterMax(); ppm > max {
		ppm = max
	}
	return Calibration{PixelsPerMeter: ppm}
}

// Meters converts a pixel distance to meters.
func (c Calibration) Meters(px float64) float64 {
	return px / c.PixelsPerMeter
}
