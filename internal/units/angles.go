// Package units provides shared angle and angular-velocity helpers.
package units

import "math"

// Angular unit names accepted by tooling flags and the monitor API.
const (
	Degrees = "deg"
	Radians = "rad"
	DPS     = "dps" // degrees per second
)

// ValidAngleUnits contains all valid angle unit values.
var ValidAngleUnits = []string{Degrees, Radians}

// IsValidAngleUnit checks if the given unit is in the list of valid units.
func IsValidAngleUnit(unit string) bool {
	for _, u := range ValidAngleUnits {
		if unit == u {
			return true
		}
	}
	return false
}

// NormalizeDeg wraps an angle in degrees to the half-open interval [-180, 180).
// Calibrated angles are always reported in this range so that left/right
// comparisons never straddle the ±180 seam.
func NormalizeDeg(deg float64) float64 {
	wrapped := math.Mod(deg+180, 360)
	if wrapped < 0 {
		wrapped += 360
	}
	return wrapped - 180
}

// DegToRad converts degrees to radians.
func DegToRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// RadToDeg converts radians to degrees.
func RadToDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}

// Clamp01 clamps v to the closed interval [0, 1]. Confidence and intensity
// values across the engine are reported in this range.
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Lerp linearly interpolates from a toward b by t.
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
