package config

import (
	"os"
	"path/filepath"
	"testing"
)

// TestDefaultsFilePinsProductionConstants loads the canonical defaults
// file and checks the calibrated values have not drifted.
func TestDefaultsFilePinsProductionConstants(t *testing.T) {
	cfg := MustLoadDefaultConfig()

	if got := cfg.GetDefaultResolution(); got != 50 {
		t.Errorf("GetDefaultResolution() = %d, want 50", got)
	}
	if got := cfg.GetDefaultContamination(); got != 0.10 {
		t.Errorf("GetDefaultContamination() = %f, want 0.10", got)
	}
	if got := cfg.GetForestTrees(); got != 200 {
		t.Errorf("GetForestTrees() = %d, want 200", got)
	}
	if got := cfg.GetForestSubsample(); got != 256 {
		t.Errorf("GetForestSubsample() = %d, want 256", got)
	}
	if got := cfg.GetForestSeed(); got != 42 {
		t.Errorf("GetForestSeed() = %d, want 42", got)
	}

	th := cfg.ClassifierThresholds()
	if th.NormalUniformity != 2.0 {
		t.Errorf("NormalUniformity = %f, want 2.0", th.NormalUniformity)
	}
	if th.HotspotSigma != 4.0 {
		t.Errorf("HotspotSigma = %f, want 4.0", th.HotspotSigma)
	}
	if th.RingCenterEdge != 0.05 {
		t.Errorf("RingCenterEdge = %f, want 0.05", th.RingCenterEdge)
	}
	if th.EdgeDegradation != 0.90 {
		t.Errorf("EdgeDegradation = %f, want 0.90", th.EdgeDegradation)
	}
	if th.GradientCorr != 0.40 {
		t.Errorf("GradientCorr = %f, want 0.40", th.GradientCorr)
	}
	if th.MinPoints != 5 {
		t.Errorf("MinPoints = %d, want 5", th.MinPoints)
	}

	zb := cfg.ZoneBounds()
	if zb.Center != 0.30 || zb.Edge != 0.70 {
		t.Errorf("ZoneBounds = %+v, want {0.30 0.70}", zb)
	}
}

func TestEmptyConfigUsesDefaults(t *testing.T) {
	cfg := EmptyTuningConfig()

	if got := cfg.GetDefaultResolution(); got != 50 {
		t.Errorf("GetDefaultResolution() = %d, want 50", got)
	}
	if got := cfg.GetMinResolution(); got != 10 {
		t.Errorf("GetMinResolution() = %d, want 10", got)
	}
	if got := cfg.GetMaxResolution(); got != 200 {
		t.Errorf("GetMaxResolution() = %d, want 200", got)
	}
	if got := cfg.GetMinContamination(); got != 0.01 {
		t.Errorf("GetMinContamination() = %f, want 0.01", got)
	}
	if got := cfg.GetSmoothingWindow(); got != 20 {
		t.Errorf("GetSmoothingWindow() = %d, want 20", got)
	}
	if got := cfg.GetLineScanResolution(); got != 100 {
		t.Errorf("GetLineScanResolution() = %d, want 100", got)
	}
}

func TestLoadTuningConfigPartialOverride(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.json")

	testJSON := `{
  "default_resolution": 80,
  "hotspot_sigma": 3.0
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0o644); err != nil {
		t.Fatalf("writing test config: %v", err)
	}

	cfg, err := LoadTuningConfig(configPath)
	if err != nil {
		t.Fatalf("LoadTuningConfig: %v", err)
	}

	if got := cfg.GetDefaultResolution(); got != 80 {
		t.Errorf("GetDefaultResolution() = %d, want 80", got)
	}
	// Unnamed fields keep their defaults.
	if got := cfg.GetForestTrees(); got != 200 {
		t.Errorf("GetForestTrees() = %d, want 200", got)
	}
	th := cfg.ClassifierThresholds()
	if th.HotspotSigma != 3.0 {
		t.Errorf("HotspotSigma = %f, want 3.0", th.HotspotSigma)
	}
	if th.NormalUniformity != 2.0 {
		t.Errorf("NormalUniformity = %f, want 2.0", th.NormalUniformity)
	}
}

func TestLoadTuningConfigRejectsNonJSON(t *testing.T) {
	if _, err := LoadTuningConfig("config.yaml"); err == nil {
		t.Error("expected error for non-.json extension")
	}
}

func TestLoadTuningConfigMissingFile(t *testing.T) {
	if _, err := LoadTuningConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     TuningConfig
		wantErr bool
	}{
		{"empty is valid", TuningConfig{}, false},
		{"resolution too small", TuningConfig{DefaultResolution: ptrInt(1)}, true},
		{"min above max resolution", TuningConfig{MinResolution: ptrInt(100), MaxResolution: ptrInt(50)}, true},
		{"contamination at half", TuningConfig{DefaultContamination: ptrFloat64(0.5)}, true},
		{"contamination zero", TuningConfig{DefaultContamination: ptrFloat64(0)}, true},
		{"valid contamination", TuningConfig{DefaultContamination: ptrFloat64(0.2)}, false},
		{"zero trees", TuningConfig{ForestTrees: ptrInt(0)}, true},
		{"subsample of one", TuningConfig{ForestSubsample: ptrInt(1)}, true},
		{"inverted zones", TuningConfig{ZoneCenterRatio: ptrFloat64(0.8), ZoneEdgeRatio: ptrFloat64(0.3)}, true},
		{"valid zones", TuningConfig{ZoneCenterRatio: ptrFloat64(0.25), ZoneEdgeRatio: ptrFloat64(0.75)}, false},
		{"zero classifier points", TuningConfig{ClassifierMinPoints: ptrInt(0)}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestForestSeedOverride(t *testing.T) {
	cfg := TuningConfig{ForestSeed: ptrInt64(7)}
	if got := cfg.GetForestSeed(); got != 7 {
		t.Errorf("GetForestSeed() = %d, want 7", got)
	}
}
