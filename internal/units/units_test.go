package units

import (
	"math"
	"testing"
)

func TestConvertThickness(t *testing.T) {
	tests := []struct {
		name     string
		angstrom float64
		units    string
		expected float64
	}{
		{"100 angstrom to nm", 100.0, Nanometer, 10.0},
		{"100 angstrom stays angstrom", 100.0, Angstrom, 100.0},
		{"gpc angstrom per cycle unchanged", 1.2, AngstromPerCycle, 1.2},
		{"gpc to nm per cycle", 1.2, NmPerCycle, 0.12},
		{"unknown units default to angstrom", 50.0, "unknown", 50.0},
		{"zero thickness", 0.0, Nanometer, 0.0},
		{"typical ald film 450 angstrom", 450.0, Nanometer, 45.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ConvertThickness(tt.angstrom, tt.units)
			if math.Abs(result-tt.expected) > 1e-12 {
				t.Errorf("ConvertThickness(%f, %s) = %f, want %f", tt.angstrom, tt.units, result, tt.expected)
			}
		})
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		name     string
		unit     string
		expected bool
	}{
		{"valid angstrom", Angstrom, true},
		{"valid nm", Nanometer, true},
		{"valid angstrom per cycle", AngstromPerCycle, true},
		{"valid nm per cycle", NmPerCycle, true},
		{"invalid unit", "invalid", false},
		{"empty string", "", false},
		{"case sensitive", "NM", false},
		{"case sensitive", "Angstrom", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsValid(tt.unit)
			if result != tt.expected {
				t.Errorf("IsValid(%s) = %v, want %v", tt.unit, result, tt.expected)
			}
		})
	}
}

func TestGetValidUnitsString(t *testing.T) {
	expected := "angstrom, nm, angstrom_per_cycle, nm_per_cycle"
	result := GetValidUnitsString()
	if result != expected {
		t.Errorf("GetValidUnitsString() = %s, want %s", result, expected)
	}
}

func TestLabel(t *testing.T) {
	tests := []struct {
		unit     string
		expected string
	}{
		{Angstrom, "Å"},
		{Nanometer, "nm"},
		{AngstromPerCycle, "Å/cycle"},
		{NmPerCycle, "nm/cycle"},
		{"custom", "custom"},
	}
	for _, tt := range tests {
		t.Run(tt.unit, func(t *testing.T) {
			if got := Label(tt.unit); got != tt.expected {
				t.Errorf("Label(%s) = %s, want %s", tt.unit, got, tt.expected)
			}
		})
	}
}
