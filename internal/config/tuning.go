package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fabsight-data/wafer.report/internal/wafermap"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig holds the adjustable parameters of the analysis pipeline:
// grid sizing, detection model sizing, and the pattern classifier cut
// points. All fields are pointers so a partial JSON file only overrides
// what it names; the Get* methods supply defaults for the rest.
type TuningConfig struct {
	// Grid params
	DefaultResolution *int `json:"default_resolution,omitempty"`
	MinResolution     *int `json:"min_resolution,omitempty"`
	MaxResolution     *int `json:"max_resolution,omitempty"`

	// Detection params
	DefaultContamination *float64 `json:"default_contamination,omitempty"`
	MinContamination     *float64 `json:"min_contamination,omitempty"`
	ForestTrees          *int     `json:"forest_trees,omitempty"`
	ForestSubsample      *int     `json:"forest_subsample,omitempty"`
	ForestSeed           *int64   `json:"forest_seed,omitempty"`

	// Pattern classifier params
	NormalUniformityPct  *float64 `json:"normal_uniformity_pct,omitempty"`
	HotspotSigma         *float64 `json:"hotspot_sigma,omitempty"`
	RingCenterEdgeRatio  *float64 `json:"ring_center_edge_ratio,omitempty"`
	EdgeDegradationRatio *float64 `json:"edge_degradation_ratio,omitempty"`
	GradientCorrThr      *float64 `json:"gradient_corr_threshold,omitempty"`
	ShiftUniformityPct   *float64 `json:"shift_uniformity_pct,omitempty"`
	ClassifierMinPoints  *int     `json:"classifier_min_points,omitempty"`

	// Radial zone params
	ZoneCenterRatio *float64 `json:"zone_center_ratio,omitempty"`
	ZoneEdgeRatio   *float64 `json:"zone_edge_ratio,omitempty"`

	// Profile params
	SmoothingWindow    *int `json:"smoothing_window,omitempty"`
	LineScanResolution *int `json:"line_scan_resolution,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }
func ptrInt64(v int64) *int64       { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
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

	// Parse JSON into empty config. The Get* methods provide fallback
	// defaults for any fields not specified in the JSON.
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
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
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
	if c.DefaultResolution != nil && *c.DefaultResolution < 2 {
		return fmt.Errorf("default_resolution must be at least 2, got %d", *c.DefaultResolution)
	}
	if c.MinResolution != nil && c.MaxResolution != nil && *c.MinResolution > *c.MaxResolution {
		return fmt.Errorf("min_resolution %d exceeds max_resolution %d", *c.MinResolution, *c.MaxResolution)
	}
	if c.DefaultContamination != nil {
		if *c.DefaultContamination <= 0 || *c.DefaultContamination >= 0.5 {
			return fmt.Errorf("default_contamination must be in (0, 0.5), got %f", *c.DefaultContamination)
		}
	}
	if c.ForestTrees != nil && *c.ForestTrees < 1 {
		return fmt.Errorf("forest_trees must be positive, got %d", *c.ForestTrees)
	}
	if c.ForestSubsample != nil && *c.ForestSubsample < 2 {
		return fmt.Errorf("forest_subsample must be at least 2, got %d", *c.ForestSubsample)
	}
	if c.ZoneCenterRatio != nil && c.ZoneEdgeRatio != nil {
		if *c.ZoneCenterRatio <= 0 || *c.ZoneEdgeRatio >= 1 || *c.ZoneCenterRatio >= *c.ZoneEdgeRatio {
			return fmt.Errorf("zone ratios must satisfy 0 < center < edge < 1, got %f and %f",
				*c.ZoneCenterRatio, *c.ZoneEdgeRatio)
		}
	}
	if c.ClassifierMinPoints != nil && *c.ClassifierMinPoints < 1 {
		return fmt.Errorf("classifier_min_points must be positive, got %d", *c.ClassifierMinPoints)
	}
	return nil
}

// GetDefaultResolution returns the default grid resolution.
func (c *TuningConfig) GetDefaultResolution() int {
	if c.DefaultResolution == nil {
		return 50
	}
	return *c.DefaultResolution
}

// GetMinResolution returns the lowest accepted grid resolution.
func (c *TuningConfig) GetMinResolution() int {
	if c.MinResolution == nil {
		return 10
	}
	return *c.MinResolution
}

// GetMaxResolution returns the highest accepted grid resolution.
func (c *TuningConfig) GetMaxResolution() int {
	if c.MaxResolution == nil {
		return 200
	}
	return *c.MaxResolution
}

// GetDefaultContamination returns the default expected anomaly fraction.
func (c *TuningConfig) GetDefaultContamination() float64 {
	if c.DefaultContamination == nil {
		return 0.10
	}
	return *c.DefaultContamination
}

// GetMinContamination returns the lowest accepted contamination value.
func (c *TuningConfig) GetMinContamination() float64 {
	if c.MinContamination == nil {
		return 0.01
	}
	return *c.MinContamination
}

// GetForestTrees returns the isolation forest ensemble size.
func (c *TuningConfig) GetForestTrees() int {
	if c.ForestTrees == nil {
		return 200
	}
	return *c.ForestTrees
}

// GetForestSubsample returns the per-tree subsample size.
func (c *TuningConfig) GetForestSubsample() int {
	if c.ForestSubsample == nil {
		return 256
	}
	return *c.ForestSubsample
}

// GetForestSeed returns the ensemble RNG seed.
func (c *TuningConfig) GetForestSeed() int64 {
	if c.ForestSeed == nil {
		return 42
	}
	return *c.ForestSeed
}

// GetSmoothingWindow returns the radial profile rolling-mean window.
func (c *TuningConfig) GetSmoothingWindow() int {
	if c.SmoothingWindow == nil {
		return 20
	}
	return *c.SmoothingWindow
}

// GetLineScanResolution returns the cross-section sample count.
func (c *TuningConfig) GetLineScanResolution() int {
	if c.LineScanResolution == nil {
		return 100
	}
	return *c.LineScanResolution
}

// ZoneBounds assembles the radial band cut points.
func (c *TuningConfig) ZoneBounds() wafermap.ZoneBounds {
	zb := wafermap.DefaultZoneBounds
	if c.ZoneCenterRatio != nil {
		zb.Center = *c.ZoneCenterRatio
	}
	if c.ZoneEdgeRatio != nil {
		zb.Edge = *c.ZoneEdgeRatio
	}
	return zb
}

// ClassifierThresholds assembles the pattern classifier cut points,
// starting from the production defaults and overriding whatever the
// config names.
func (c *TuningConfig) ClassifierThresholds() wafermap.ClassifierThresholds {
	th := wafermap.DefaultClassifierThresholds()
	if c.NormalUniformityPct != nil {
		th.NormalUniformity = *c.NormalUniformityPct
	}
	if c.HotspotSigma != nil {
		th.HotspotSigma = *c.HotspotSigma
	}
	if c.RingCenterEdgeRatio != nil {
		th.RingCenterEdge = *c.RingCenterEdgeRatio
	}
	if c.EdgeDegradationRatio != nil {
		th.EdgeDegradation = *c.EdgeDegradationRatio
	}
	if c.GradientCorrThr != nil {
		th.GradientCorr = *c.GradientCorrThr
	}
	if c.ShiftUniformityPct != nil {
		th.ShiftUniformity = *c.ShiftUniformityPct
	}
	if c.ClassifierMinPoints != nil {
		th.MinPoints = *c.ClassifierMinPoints
	}
	th.Zones = c.ZoneBounds()
	return th
}
