package speed

import (
	"gonum.org/v1/gonum/stat"

	"github.com/trafficlens/speedcam/internal/config"
	"github.com/trafficlens/speedcam/internal/geom"
	"github.com/trafficlens/speedcam/internal/track"
)

const mpsToKmh = 3.6

// Estimator computes per-track speed estimates from position history.
// One estimator serves a whole run; all per-track state lives on the track.
type Estimator struct {
	cal Calibration

	minHistory      int
	sampleIntervals int
	correction      float64
	maxPlausibleKmh float64
	alpha           float64
}

// NewEstimator builds an estimator from tuning and a frame calibration.
func NewEstimator(cfg *config.TuningConfig, cal Calibration) *Estimator {
	return &Estimator{
		cal:             cal,
		minHistory:      cfg.GetMinHistoryForSpeed(),
		sampleIntervals: cfg.GetSpeedSampleIntervals(),
		correction:      cfg.GetSpeedCorrectionFactor(),
		maxPlausibleKmh: cfg.GetMaxPlausibleSpeedKmh(),
		alpha:           cfg.GetSpeedSmoothingAlpha(),
	}
}

// Update recomputes the track's smoothed speed from its current history.
// Tracks with too little history, or whose recent intervals all fail the
// plausibility filter, keep their previous estimate untouched.
func (e *Estimator) Update(t *track.Track) {
	raw, ok := e.rawEstimate(t.History)
	if !ok {
		return
	}
	if !t.HasSpeed() {
		// First estimate seeds the smoother directly; blending with an
		// implicit zero would drag early readings down.
		t.SetSpeed(raw)
		return
	}
	t.SetSpeed(e.alpha*raw + (1-e.alpha)*t.SpeedKmh)
}

// rawEstimate averages the plausible per-interval speeds over the most
// recent history intervals. It reports false when the history is too short
// or no interval survives the plausibility filter.
func (e *Estimator) rawEstimate(h *track.History) (float64, bool) {
	n := h.Len()
	if n < e.minHistory {
		return 0, false
	}

	intervals := e.sampleIntervals
	if intervals > n-1 {
		intervals = n - 1
	}

	speeds := make([]float64, 0, intervals)
	for i := n - intervals; i < n; i++ {
		prev, cur := h.At(i-1), h.At(i)

		dt := cur.Timestamp - prev.Timestamp
		dpx := geom.Distance(prev.Position, cur.Position)
		if dt <= 0 || dpx <= 1 {
			// Stationary or degenerate interval; jitter of a pixel or
			// less reads as parked, not moving.
			continue
		}

		kmh := e.cal.Meters(dpx) / dt * mpsToKmh * e.correction
		if kmh <= 0 || kmh >= e.maxPlausibleKmh {
			continue
		}
		speeds = append(speeds, kmh)
	}
	if len(speeds) == 0 {
		return 0, false
	}
	return stat.Mean(speeds, nil), true
}
