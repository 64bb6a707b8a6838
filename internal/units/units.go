// Package units provides shared constants and validation for thickness
// and growth-rate units
package units

// Unit constants
const (
	Angstrom         = "angstrom"
	Nanometer        = "nm"
	AngstromPerCycle = "angstrom_per_cycle"
	NmPerCycle       = "nm_per_cycle"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{Angstrom, Nanometer, AngstromPerCycle, NmPerCycle}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "angstrom, nm, angstrom_per_cycle, nm_per_cycle"
}

// Label returns the display suffix for a unit.
func Label(unit string) string {
	switch unit {
	case Angstrom:
		return "Å"
	case Nanometer:
		return "nm"
	case AngstromPerCycle:
		return "Å/cycle"
	case NmPerCycle:
		return "nm/cycle"
	default:
		return unit
	}
}

// ConvertThickness converts a thickness from angstroms to the target units.
// Metrology tools report film thickness in angstroms.
func ConvertThickness(valueAngstrom float64, targetUnits string) float64 {
	switch targetUnits {
	case Nanometer, NmPerCycle:
		return valueAngstrom * 0.1 // angstrom to nm
	case Angstrom, AngstromPerCycle:
		return valueAngstrom
	default:
		return valueAngstrom // default to angstroms if unknown unit
	}
}
