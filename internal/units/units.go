// Package units provides the area units charts can be drawn in.
package units

// Unit constants
const (
	KM2   = "km2"
	HA    = "ha"
	MI2   = "mi2"
	ACRES = "acres"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{KM2, HA, MI2, ACRES}

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
	return "km2, ha, mi2, acres"
}

// ConvertArea converts an area from square kilometres to the target units.
// Results are always computed in km².
func ConvertArea(areaKm2 float64, targetUnits string) float64 {
	switch targetUnits {
	case HA:
		return areaKm2 * 100
	case MI2:
		return areaKm2 * 0.386102
	case ACRES:
		return areaKm2 * 247.105
	default:
		return areaKm2
	}
}

// Label returns the axis label for a unit.
func Label(unit string) string {
	switch unit {
	case HA:
		return "ha"
	case MI2:
		return "mi²"
	case ACRES:
		return "acres"
	default:
		return "km²"
	}
}
