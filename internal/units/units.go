// Package units provides shared constants, validation and conversions for
// the length units accepted in configuration files. Everything is stored
// in inches internally.
package units

import "time"

// Unit constants
const (
	Inch       = "in"
	Foot       = "ft"
	Metre      = "m"
	Centimetre = "cm"
	Millimetre = "mm"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{Inch, Foot, Metre, Centimetre, Millimetre}

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
	return "in, ft, m, cm, mm"
}

// inchesPer is the size of one unit in inches.
func inchesPer(unit string) float64 {
	switch unit {
	case Foot:
		return 12
	case Metre:
		return 1 / 0.0254
	case Centimetre:
		return 1 / 2.54
	case Millimetre:
		return 1 / 25.4
	default:
		return 1
	}
}

// ToInches converts a length (or a rate of length) in unit to inches.
// Unknown units are treated as inches.
func ToInches(v float64, unit string) float64 {
	return v * inchesPer(unit)
}

// FromInches converts inches to unit. Unknown units return v unchanged.
func FromInches(v float64, unit string) float64 {
	return v / inchesPer(unit)
}

// Seconds converts a millisecond count to seconds.
func Seconds(ms float64) float64 { return ms / 1000 }

// Duration converts seconds to a time.Duration, rounded to the nanosecond.
func Duration(seconds float64) time.Duration {
	return time.Duration(seconds*float64(time.Second) + 0.5)
}
