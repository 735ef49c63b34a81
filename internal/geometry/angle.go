package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// NormalizeAngle maps deg into [-180, 180).
func NormalizeAngle(deg float64) float64 {
	a := math.Mod(deg+180, 360)
	if a < 0 {
		a += 360
	}
	// a+360 can round up to exactly 360 for tiny negative remainders.
	if a >= 360 {
		a -= 360
	}
	return a - 180
}

// AngularDifference returns the signed shortest rotation in degrees that
// takes heading from to heading to. The result lies in (-180, 180]; a half
// turn is reported as +180.
func AngularDifference(from, to float64) float64 {
	d := NormalizeAngle(to - from)
	if d == -180 {
		return 180
	}
	return d
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 { return deg * math.Pi / 180 }

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 { return rad * 180 / math.Pi }

// HeadingOf returns the direction of v in degrees, normalised to [-180, 180).
func HeadingOf(v Vec) float64 {
	return NormalizeAngle(Degrees(math.Atan2(v.Y, v.X)))
}

// Direction returns the unit vector for a heading in degrees.
func Direction(deg float64) Vec {
	rad := Radians(deg)
	return Vec{X: math.Cos(rad), Y: math.Sin(rad)}
}

// LerpAngle interpolates from a to b along the shortest arc.
func LerpAngle(a, b, t float64) float64 {
	return NormalizeAngle(a + AngularDifference(a, b)*t)
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Vec) float64 {
	return r2.Norm(r2.Sub(b, a))
}
