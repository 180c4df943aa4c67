// Package units validates speed unit names and converts between them.
// Stored speeds are always km/h; conversion happens at the API boundary.
package units

import "strings"

const (
	MPS  = "mps"
	MPH  = "mph"
	KMPH = "kmph"
	KPH  = "kph" // accepted alias for kmph
)

// ValidUnits lists every unit name the API accepts.
var ValidUnits = []string{MPS, MPH, KMPH, KPH}

// IsValid reports whether unit names a supported speed unit.
func IsValid(unit string) bool {
	for _, v := range ValidUnits {
		if unit == v {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns the accepted unit names for error messages.
func GetValidUnitsString() string {
	return strings.Join(ValidUnits, ", ")
}
