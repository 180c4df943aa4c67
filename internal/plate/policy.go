// Package plate covers license plate recognition: the cadence policy that
// decides when a track is due for a read, the candidate filter that turns
// raw OCR output into an accepted plate, and the crop preprocessing that
// feeds the OCR engine.
package plate

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/trafficlens/speedcam/internal/config"
	"github.com/trafficlens/speedcam/internal/vision"
)

// Policy holds the tunable plate recognition parameters.
type Policy struct {
	SlowThresholdKmh float64
	IntervalSlow     int
	IntervalFast     int
	MinChars         int
	MinConfidence    float64
}

// PolicyFromTuning builds a Policy from a loaded TuningConfig.
func PolicyFromTuning(cfg *config.TuningConfig) Policy {
	return Policy{
		SlowThresholdKmh: cfg.GetSlowVehicleThresholdKmh(),
		IntervalSlow:     cfg.GetPlateIntervalSlow(),
		IntervalFast:     cfg.GetPlateIntervalFast(),
		MinChars:         cfg.GetPlateMinChars(),
		MinConfidence:    cfg.GetPlateMinConfidence(),
	}
}

// Due reports whether a track moving at the given smoothed speed is due
// for a plate read on this frame. Slow vehicles linger longer in frame
// and get read more often; the cadence keys off the global frame counter,
// not per-track state.
func (p Policy) Due(frame int, speedKmh float64) bool {
	interval := p.IntervalFast
	if speedKmh < p.SlowThresholdKmh {
		interval = p.IntervalSlow
	}
	return frame%interval == 0
}

// Normalize strips a raw OCR string down to its uppercase alphanumeric
// characters. Spaces, punctuation and OCR artifacts all drop out.
func Normalize(text string) string {
	var b strings.Builder
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}

// plausible reports whether a normalized string looks like a plate: long
// enough, and mixing letters with digits. Pure-numeric and pure-alpha
// strings are overwhelmingly badges, stickers and bumper text.
func (p Policy) plausible(normalized string) bool {
	if utf8.RuneCountInString(normalized) < p.MinChars {
		return false
	}
	var hasLetter, hasDigit bool
	for _, r := range normalized {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	return hasLetter && hasDigit
}

// Best filters raw OCR candidates and picks the winner: normalize each
// text, drop candidates below the confidence floor or failing the
// plausibility shape, and return the survivor with the highest confidence.
// The returned candidate carries the normalized text.
func (p Policy) Best(candidates []vision.Candidate) (vision.Candidate, bool) {
	kept := make([]vision.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Confidence <= p.MinConfidence {
			continue
		}
		norm := Normalize(c.Text)
		if !p.plausible(norm) {
			continue
		}
		c.Text = norm
		kept = append(kept, c)
	}
	if len(kept) == 0 {
		return vision.Candidate{}, false
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Confidence > kept[j].Confidence
	})
	return kept[0], true
}
