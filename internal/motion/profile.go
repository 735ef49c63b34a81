// Package motion computes trapezoidal and triangular velocity profiles for
// point-to-point moves with separate acceleration and deceleration limits.
// The same calculator serves linear travel (inches) and in-place rotation
// (radians); only the units of the limits differ.
package motion

import (
	"errors"
	"fmt"
	"math"
)

// SampleInterval is the spacing in seconds of Profile.Velocities.
const SampleInterval = 0.05

var (
	// ErrInvalidLimits is returned when a limit is non-positive or not finite.
	ErrInvalidLimits = errors.New("invalid motion limits")
	// ErrInvalidDistance is returned for negative or non-finite distances.
	ErrInvalidDistance = errors.New("invalid move distance")
)

// Limits bound a move. Units are per second for MaxVelocity and per second
// squared for Acceleration and Deceleration.
type Limits struct {
	MaxVelocity  float64
	Acceleration float64
	Deceleration float64
}

// Validate fails fast on limits the calculator cannot use. It never clamps.
func (l Limits) Validate() error {
	check := func(name string, v float64) error {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return fmt.Errorf("%w: %s must be positive and finite, got %v", ErrInvalidLimits, name, v)
		}
		return nil
	}
	if err := check("max velocity", l.MaxVelocity); err != nil {
		return err
	}
	if err := check("acceleration", l.Acceleration); err != nil {
		return err
	}
	return check("deceleration", l.Deceleration)
}

// Shape names the profile family.
type Shape string

const (
	ShapeNone        Shape = "none"
	ShapeTriangular  Shape = "triangular"
	ShapeTrapezoidal Shape = "trapezoidal"
)

// Profile is a rest-to-rest velocity profile over Distance.
type Profile struct {
	Distance     float64 `json:"distance"`
	PeakVelocity float64 `json:"peak_velocity"`
	AccelTime    float64 `json:"accel_time"`
	CruiseTime   float64 `json:"cruise_time"`
	DecelTime    float64 `json:"decel_time"`
	Duration     float64 `json:"duration"`
	Shape        Shape   `json:"shape"`

	// Velocities holds the velocity every SampleInterval seconds from t=0,
	// with a final sample at exactly t=Duration. Nil for zero distance.
	Velocities []float64 `json:"velocities,omitempty"`

	accel float64
	decel float64
}

// Compute returns the fastest rest-to-rest profile covering d under limits.
//
// With d_a = v²/2a and d_b = v²/2b the move is trapezoidal when d_a+d_b ≤ d
// and triangular otherwise, peaking at sqrt(2·d·a·b/(a+b)).
func Compute(d float64, limits Limits) (Profile, error) {
	if err := limits.Validate(); err != nil {
		return Profile{}, err
	}
	if math.IsNaN(d) || math.IsInf(d, 0) || d < 0 {
		return Profile{}, fmt.Errorf("%w: %v", ErrInvalidDistance, d)
	}

	a, b, v := limits.Acceleration, limits.Deceleration, limits.MaxVelocity
	p := Profile{Distance: d, accel: a, decel: b}
	if d == 0 {
		p.Shape = ShapeNone
		return p, nil
	}

	dAccel := v * v / (2 * a)
	dDecel := v * v / (2 * b)
	if dAccel+dDecel <= d {
		p.Shape = ShapeTrapezoidal
		p.PeakVelocity = v
		p.AccelTime = v / a
		p.DecelTime = v / b
		p.CruiseTime = (d - dAccel - dDecel) / v
	} else {
		p.Shape = ShapeTriangular
		p.PeakVelocity = math.Sqrt(2 * d * a * b / (a + b))
		p.AccelTime = p.PeakVelocity / a
		p.DecelTime = p.PeakVelocity / b
	}
	p.Duration = p.AccelTime + p.CruiseTime + p.DecelTime
	p.Velocities = p.sample()
	return p, nil
}

func (p Profile) sample() []float64 {
	n := int(math.Floor(p.Duration / SampleInterval))
	out := make([]float64, 0, n+2)
	for k := 0; k <= n; k++ {
		out = append(out, p.VelocityAt(float64(k)*SampleInterval))
	}
	if last := float64(n) * SampleInterval; p.Duration-last > 1e-9 {
		out = append(out, p.VelocityAt(p.Duration))
	}
	return out
}

// VelocityAt returns the velocity t seconds into the move. Outside
// [0, Duration] the robot is at rest.
func (p Profile) VelocityAt(t float64) float64 {
	if t <= 0 || t >= p.Duration {
		return 0
	}
	switch {
	case t < p.AccelTime:
		return p.accel * t
	case t < p.AccelTime+p.CruiseTime:
		return p.PeakVelocity
	default:
		return math.Max(0, p.decel*(p.Duration-t))
	}
}

// DistanceAt returns the distance covered t seconds into the move.
func (p Profile) DistanceAt(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= p.Duration {
		return p.Distance
	}
	dAccel := p.PeakVelocity * p.AccelTime / 2
	switch {
	case t < p.AccelTime:
		return p.accel * t * t / 2
	case t < p.AccelTime+p.CruiseTime:
		return dAccel + p.PeakVelocity*(t-p.AccelTime)
	default:
		rem := p.Duration - t
		return p.Distance - p.decel*rem*rem/2
	}
}

// TimeAtDistance inverts DistanceAt: it returns the time at which s units
// have been covered. s is clamped to [0, Distance].
func (p Profile) TimeAtDistance(s float64) float64 {
	if p.Duration == 0 || s <= 0 {
		return 0
	}
	if s >= p.Distance {
		return p.Duration
	}
	dAccel := p.PeakVelocity * p.AccelTime / 2
	dCruise := p.PeakVelocity * p.CruiseTime
	switch {
	case s <= dAccel:
		return math.Sqrt(2 * s / p.accel)
	case s <= dAccel+dCruise:
		return p.AccelTime + (s-dAccel)/p.PeakVelocity
	default:
		rem := p.Distance - s
		return p.Duration - math.Sqrt(2*rem/p.decel)
	}
}
