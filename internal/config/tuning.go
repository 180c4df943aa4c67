package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for tuning parameters.
// All fields are pointers so a partial JSON file only overrides what it
// names; the Get* methods supply fallback defaults for absent fields.
type TuningConfig struct {
	// Tracker params
	DistanceGatePx         *float64 `json:"distance_gate_px,omitempty"`
	TrackMaxAgeFrames      *int     `json:"track_max_age_frames,omitempty"`
	HistoryCapacity        *int     `json:"history_capacity,omitempty"`
	DormantRetentionFrames *int     `json:"dormant_retention_frames,omitempty"`

	// Speed estimator params
	MinHistoryForSpeed    *int     `json:"min_history_for_speed,omitempty"`
	SpeedSampleIntervals  *int     `json:"speed_sample_intervals,omitempty"`
	SpeedCorrectionFactor *float64 `json:"speed_correction_factor,omitempty"`
	MaxPlausibleSpeedKmh  *float64 `json:"max_plausible_speed_kmh,omitempty"`
	SpeedSmoothingAlpha   *float64 `json:"speed_smoothing_alpha,omitempty"`

	// Calibration params
	RoadWidthFraction *float64 `json:"road_width_fraction,omitempty"`
	LaneCount         *int     `json:"lane_count,omitempty"`
	LaneWidthMeters   *float64 `json:"lane_width_meters,omitempty"`
	PixelsPerMeterMin *float64 `json:"pixels_per_meter_min,omitempty"`
	PixelsPerMeterMax *float64 `json:"pixels_per_meter_max,omitempty"`

	// Zone and classification params
	ZoneTopFraction    *float64 `json:"zone_top_fraction,omitempty"`
	ZoneBottomFraction *float64 `json:"zone_bottom_fraction,omitempty"`
	SpeedLimitKmh      *float64 `json:"speed_limit_kmh,omitempty"`

	// Plate fusion params
	SlowVehicleThresholdKmh *float64 `json:"slow_vehicle_threshold_kmh,omitempty"`
	PlateIntervalSlow       *int     `json:"plate_interval_slow,omitempty"`
	PlateIntervalFast       *int     `json:"plate_interval_fast,omitempty"`
	PlateMinChars           *int     `json:"plate_min_chars,omitempty"`
	PlateMinConfidence      *float64 `json:"plate_min_confidence,omitempty"`

	// Detection params
	MinDetectionConfidence *float64 `json:"min_detection_confidence,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the
// max file size. Fields omitted from the JSON file retain their default
// values, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
		"../../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.DistanceGatePx != nil && *c.DistanceGatePx <= 0 {
		return fmt.Errorf("distance_gate_px must be positive, got %f", *c.DistanceGatePx)
	}
	if c.TrackMaxAgeFrames != nil && *c.TrackMaxAgeFrames < 1 {
		return fmt.Errorf("track_max_age_frames must be at least 1, got %d", *c.TrackMaxAgeFrames)
	}
	if c.HistoryCapacity != nil && *c.HistoryCapacity < 2 {
		return fmt.Errorf("history_capacity must be at least 2, got %d", *c.HistoryCapacity)
	}
	if c.SpeedSmoothingAlpha != nil {
		if *c.SpeedSmoothingAlpha < 0 || *c.SpeedSmoothingAlpha > 1 {
			return fmt.Errorf("speed_smoothing_alpha must be between 0 and 1, got %f", *c.SpeedSmoothingAlpha)
		}
	}
	if c.ZoneTopFraction != nil && c.ZoneBottomFraction != nil {
		if *c.ZoneTopFraction >= *c.ZoneBottomFraction {
			return fmt.Errorf("zone_top_fraction (%f) must be below zone_bottom_fraction (%f)",
				*c.ZoneTopFraction, *c.ZoneBottomFraction)
		}
	}
	if c.PlateIntervalSlow != nil && *c.PlateIntervalSlow < 1 {
		return fmt.Errorf("plate_interval_slow must be at least 1, got %d", *c.PlateIntervalSlow)
	}
	if c.PlateIntervalFast != nil && *c.PlateIntervalFast < 1 {
		return fmt.Errorf("plate_interval_fast must be at least 1, got %d", *c.PlateIntervalFast)
	}
	if c.MinDetectionConfidence != nil {
		if *c.MinDetectionConfidence < 0 || *c.MinDetectionConfidence > 1 {
			return fmt.Errorf("min_detection_confidence must be between 0 and 1, got %f", *c.MinDetectionConfidence)
		}
	}
	return nil
}

// GetDistanceGatePx returns the distance_gate_px value or the default.
func (c *TuningConfig) GetDistanceGatePx() float64 {
	if c.DistanceGatePx == nil {
		return 50.0
	}
	return *c.DistanceGatePx
}

// GetTrackMaxAgeFrames returns the track_max_age_frames value or the default.
func (c *TuningConfig) GetTrackMaxAgeFrames() int {
	if c.TrackMaxAgeFrames == nil {
		return 30
	}
	return *c.TrackMaxAgeFrames
}

// GetHistoryCapacity returns the history_capacity value or the default.
func (c *TuningConfig) GetHistoryCapacity() int {
	if c.HistoryCapacity == nil {
		return 15
	}
	return *c.HistoryCapacity
}

// GetDormantRetentionFrames returns the dormant_retention_frames value or the default.
func (c *TuningConfig) GetDormantRetentionFrames() int {
	if c.DormantRetentionFrames == nil {
		return 300
	}
	return *c.DormantRetentionFrames
}

// GetMinHistoryForSpeed returns the min_history_for_speed value or the default.
func (c *TuningConfig) GetMinHistoryForSpeed() int {
	if c.MinHistoryForSpeed == nil {
		return 3
	}
	return *c.MinHistoryForSpeed
}

// GetSpeedSampleIntervals returns the speed_sample_intervals value or the default.
func (c *TuningConfig) GetSpeedSampleIntervals() int {
	if c.SpeedSampleIntervals == nil {
		return 5
	}
	return *c.SpeedSampleIntervals
}

// GetSpeedCorrectionFactor returns the speed_correction_factor value or the default.
func (c *TuningConfig) GetSpeedCorrectionFactor() float64 {
	if c.SpeedCorrectionFactor == nil {
		return 1.2
	}
	return *c.SpeedCorrectionFactor
}

// GetMaxPlausibleSpeedKmh returns the max_plausible_speed_kmh value or the default.
func (c *TuningConfig) GetMaxPlausibleSpeedKmh() float64 {
	if c.MaxPlausibleSpeedKmh == nil {
		return 200.0
	}
	return *c.MaxPlausibleSpeedKmh
}

// GetSpeedSmoothingAlpha returns the speed_smoothing_alpha value or the default.
func (c *TuningConfig) GetSpeedSmoothingAlpha() float64 {
	if c.SpeedSmoothingAlpha == nil {
		return 0.3
	}
	return *c.SpeedSmoothingAlpha
}

// GetRoadWidthFraction returns the road_width_fraction value or the default.
func (c *TuningConfig) GetRoadWidthFraction() float64 {
	if c.RoadWidthFraction == nil {
		return 0.6
	}
	return *c.RoadWidthFraction
}

// GetLaneCount returns the lane_count value or the default.
func (c *TuningConfig) GetLaneCount() int {
	if c.LaneCount == nil {
		return 2
	}
	return *c.LaneCount
}

// GetLaneWidthMeters returns the lane_width_meters value or the default.
func (c *TuningConfig) GetLaneWidthMeters() float64 {
	if c.LaneWidthMeters == nil {
		return 3.5
	}
	return *c.LaneWidthMeters
}

// GetPixelsPerMeterMin returns the pixels_per_meter_min value or the default.
func (c *TuningConfig) GetPixelsPerMeterMin() float64 {
	if c.PixelsPerMeterMin == nil {
		return 5.0
	}
	return *c.PixelsPerMeterMin
}

// GetPixelsPerMeterMax returns the pixels_per_meter_max value or the default.
func (c *TuningConfig) GetPixelsPerMeterMax() float64 {
	if c.PixelsPerMeterMax == nil {
		return 8.0
	}
	return *c.PixelsPerMeterMax
}

// GetZoneTopFraction returns the zone_top_fraction value or the default.
func (c *TuningConfig) GetZoneTopFraction() float64 {
	if c.ZoneTopFraction == nil {
		return 0.4
	}
	return *c.ZoneTopFraction
}

// GetZoneBottomFraction returns the zone_bottom_fraction value or the default.
func (c *TuningConfig) GetZoneBottomFraction() float64 {
	if c.ZoneBottomFraction == nil {
		return 0.7
	}
	return *c.ZoneBottomFraction
}

// GetSpeedLimitKmh returns the speed_limit_kmh value or the default.
func (c *TuningConfig) GetSpeedLimitKmh() float64 {
	if c.SpeedLimitKmh == nil {
		return 80.0
	}
	return *c.SpeedLimitKmh
}

// GetSlowVehicleThresholdKmh returns the slow_vehicle_threshold_kmh value or the default.
func (c *TuningConfig) GetSlowVehicleThresholdKmh() float64 {
	if c.SlowVehicleThresholdKmh == nil {
		return 40.0
	}
	return *c.SlowVehicleThresholdKmh
}

// GetPlateIntervalSlow returns the plate_interval_slow value or the default.
func (c *TuningConfig) GetPlateIntervalSlow() int {
	if c.PlateIntervalSlow == nil {
		return 5
	}
	return *c.PlateIntervalSlow
}

// GetPlateIntervalFast returns the plate_interval_fast value or the default.
func (c *TuningConfig) GetPlateIntervalFast() int {
	if c.PlateIntervalFast == nil {
		return 10
	}
	return *c.PlateIntervalFast
}

// GetPlateMinChars returns the plate_min_chars value or the default.
func (c *TuningConfig) GetPlateMinChars() int {
	if c.PlateMinChars == nil {
		return 4
	}
	return *c.PlateMinChars
}

// GetPlateMinConfidence returns the plate_min_confidence value or the default.
func (c *TuningConfig) GetPlateMinConfidence() float64 {
	if c.PlateMinConfidence == nil {
		return 0.4
	}
	return *c.PlateMinConfidence
}

// GetMinDetectionConfidence returns the min_detection_confidence value or the default.
func (c *TuningConfig) GetMinDetectionConfidence() float64 {
	if c.MinDetectionConfidence == nil {
		return 0.5
	}
	return *c.MinDetectionConfidence
}
