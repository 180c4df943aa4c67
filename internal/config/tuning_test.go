package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tuning.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestEmptyTuningConfigDefaults(t *testing.T) {
	cfg := EmptyTuningConfig()

	assert.Equal(t, 50.0, cfg.GetDistanceGatePx())
	assert.Equal(t, 30, cfg.GetTrackMaxAgeFrames())
	assert.Equal(t, 15, cfg.GetHistoryCapacity())
	assert.Equal(t, 3, cfg.GetMinHistoryForSpeed())
	assert.Equal(t, 5, cfg.GetSpeedSampleIntervals())
	assert.Equal(t, 1.2, cfg.GetSpeedCorrectionFactor())
	assert.Equal(t, 200.0, cfg.GetMaxPlausibleSpeedKmh())
	assert.Equal(t, 0.3, cfg.GetSpeedSmoothingAlpha())
	assert.Equal(t, 0.4, cfg.GetZoneTopFraction())
	assert.Equal(t, 0.7, cfg.GetZoneBottomFraction())
	assert.Equal(t, 80.0, cfg.GetSpeedLimitKmh())
	assert.Equal(t, 40.0, cfg.GetSlowVehicleThresholdKmh())
	assert.Equal(t, 5, cfg.GetPlateIntervalSlow())
	assert.Equal(t, 10, cfg.GetPlateIntervalFast())
	assert.Equal(t, 4, cfg.GetPlateMinChars())
	assert.Equal(t, 0.4, cfg.GetPlateMinConfidence())
	assert.Equal(t, 0.5, cfg.GetMinDetectionConfidence())
}

func TestLoadTuningConfigPartial(t *testing.T) {
	path := writeTempJSON(t, `{"distance_gate_px": 75.0, "track_max_age_frames": 10}`)

	cfg, err := LoadTuningConfig(path)
	require.NoError(t, err)

	// Overridden values.
	assert.Equal(t, 75.0, cfg.GetDistanceGatePx())
	assert.Equal(t, 10, cfg.GetTrackMaxAgeFrames())

	// Untouched fields keep defaults.
	assert.Equal(t, 15, cfg.GetHistoryCapacity())
	assert.Equal(t, 80.0, cfg.GetSpeedLimitKmh())
}

func TestLoadTuningConfigRejectsNonJSON(t *testing.T) {
	_, err := LoadTuningConfig("tuning.yaml")
	assert.Error(t, err)
}

func TestLoadTuningConfigRejectsMissingFile(t *testing.T) {
	_, err := LoadTuningConfig(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestTuningConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		wantErr bool
	}{
		{"valid overrides", `{"distance_gate_px": 60.0}`, false},
		{"negative gate", `{"distance_gate_px": -1.0}`, true},
		{"zero age", `{"track_max_age_frames": 0}`, true},
		{"tiny history", `{"history_capacity": 1}`, true},
		{"alpha out of range", `{"speed_smoothing_alpha": 1.5}`, true},
		{"inverted zone", `{"zone_top_fraction": 0.8, "zone_bottom_fraction": 0.5}`, true},
		{"zero plate interval", `{"plate_interval_slow": 0}`, true},
		{"confidence out of range", `{"min_detection_confidence": 2.0}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTempJSON(t, tt.json)
			_, err := LoadTuningConfig(path)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMustLoadDefaultConfig(t *testing.T) {
	// The defaults file must load and match the documented defaults exactly;
	// any drift between the file and the Get* fallbacks is a bug.
	cfg := MustLoadDefaultConfig()
	empty := EmptyTuningConfig()

	assert.Equal(t, empty.GetDistanceGatePx(), cfg.GetDistanceGatePx())
	assert.Equal(t, empty.GetTrackMaxAgeFrames(), cfg.GetTrackMaxAgeFrames())
	assert.Equal(t, empty.GetHistoryCapacity(), cfg.GetHistoryCapacity())
	assert.Equal(t, empty.GetSpeedSmoothingAlpha(), cfg.GetSpeedSmoothingAlpha())
	assert.Equal(t, empty.GetSpeedLimitKmh(), cfg.GetSpeedLimitKmh())
	assert.Equal(t, empty.GetPlateMinConfidence(), cfg.GetPlateMinConfidence())
}
