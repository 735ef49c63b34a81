package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Vec is a 2D point or direction in field inches.
type Vec = r2.Vec

// CurveTableSamples is the number of intervals used to tabulate generic
// Bezier curves (more than two control points).
const CurveTableSamples = 100

// LengthSamples is the fixed sampling resolution used by Curve.Length.
const LengthSamples = 100

// Curve is an evaluated Bezier segment. The zero value is a degenerate
// curve at the origin.
type Curve struct {
	Start    Vec
	End      Vec
	Controls []Vec

	// table holds CurveTableSamples+1 points for generic curves.
	table []Vec
}

// NewCurve builds a curve from start to end shaped by controls. The controls
// slice is copied.
func NewCurve(start Vec, controls []Vec, end Vec) Curve {
	c := Curve{
		Start:    start,
		End:      end,
		Controls: append([]Vec(nil), controls...),
	}
	if len(c.Controls) > 2 {
		pts := make([]Vec, 0, len(c.Controls)+2)
		pts = append(pts, start)
		pts = append(pts, c.Controls...)
		pts = append(pts, end)

		c.table = make([]Vec, CurveTableSamples+1)
		work := make([]Vec, len(pts))
		for i := 0; i <= CurveTableSamples; i++ {
			t := float64(i) / CurveTableSamples
			c.table[i] = deCasteljau(pts, work, t)
		}
	}
	return c
}

// EvaluateCurve returns the point at parameter t ∈ [0, 1] of the curve from
// start to end shaped by controls. t outside [0, 1] is clamped.
func EvaluateCurve(t float64, controls []Vec, start, end Vec) Vec {
	return NewCurve(start, controls, end).Eval(t)
}

// CurveDerivative returns dP/dt of the curve from start to end at t.
func CurveDerivative(t float64, controls []Vec, start, end Vec) Vec {
	return NewCurve(start, controls, end).Derivative(t)
}

// SampleCurve returns n+1 evenly spaced parameter samples of the curve.
func SampleCurve(controls []Vec, start, end Vec, n int) []Vec {
	return NewCurve(start, controls, end).Sample(n)
}

// CurveLength returns the polyline length of the curve at LengthSamples.
func CurveLength(controls []Vec, start, end Vec) float64 {
	return NewCurve(start, controls, end).Length()
}

// Eval returns the point at parameter t, clamped to [0, 1].
func (c Curve) Eval(t float64) Vec {
	t = clamp01(t)
	mt := 1 - t
	switch len(c.Controls) {
	case 0:
		return r2.Add(c.Start, r2.Scale(t, r2.Sub(c.End, c.Start)))
	case 1:
		p1 := c.Controls[0]
		return Vec{
			X: mt*mt*c.Start.X + 2*mt*t*p1.X + t*t*c.End.X,
			Y: mt*mt*c.Start.Y + 2*mt*t*p1.Y + t*t*c.End.Y,
		}
	case 2:
		p1, p2 := c.Controls[0], c.Controls[1]
		a := mt * mt * mt
		b := 3 * mt * mt * t
		d := 3 * mt * t * t
		e := t * t * t
		return Vec{
			X: a*c.Start.X + b*p1.X + d*p2.X + e*c.End.X,
			Y: a*c.Start.Y + b*p1.Y + d*p2.Y + e*c.End.Y,
		}
	default:
		i, frac := c.tableIndex(t)
		if frac == 0 {
			return c.table[i]
		}
		return r2.Add(c.table[i], r2.Scale(frac, r2.Sub(c.table[i+1], c.table[i])))
	}
}

// Derivative returns dP/dt at t. Generic curves return the slope of the
// tabulated polyline interval containing t.
func (c Curve) Derivative(t float64) Vec {
	t = clamp01(t)
	mt := 1 - t
	switch len(c.Controls) {
	case 0:
		return r2.Sub(c.End, c.Start)
	case 1:
		p1 := c.Controls[0]
		return r2.Add(
			r2.Scale(2*mt, r2.Sub(p1, c.Start)),
			r2.Scale(2*t, r2.Sub(c.End, p1)),
		)
	case 2:
		p1, p2 := c.Controls[0], c.Controls[1]
		return r2.Add(
			r2.Add(
				r2.Scale(3*mt*mt, r2.Sub(p1, c.Start)),
				r2.Scale(6*mt*t, r2.Sub(p2, p1)),
			),
			r2.Scale(3*t*t, r2.Sub(c.End, p2)),
		)
	default:
		i, _ := c.tableIndex(t)
		if i == CurveTableSamples {
			i--
		}
		return r2.Scale(CurveTableSamples, r2.Sub(c.table[i+1], c.table[i]))
	}
}

// Tangent returns a usable direction of travel at t. Where the derivative
// vanishes (a control point coincident with an endpoint) it falls back to
// the chord. ok is false for a fully degenerate curve.
func (c Curve) Tangent(t float64) (dir Vec, ok bool) {
	d := c.Derivative(t)
	if r2.Norm2(d) > 1e-18 {
		return d, true
	}
	// Step slightly inside the curve before giving up on it.
	const nudge = 1e-3
	if t < 0.5 {
		d = c.Derivative(t + nudge)
	} else {
		d = c.Derivative(t - nudge)
	}
	if r2.Norm2(d) > 1e-18 {
		return d, true
	}
	chord := r2.Sub(c.End, c.Start)
	if r2.Norm2(chord) > 1e-18 {
		return chord, true
	}
	return Vec{}, false
}

// Sample returns n+1 points evenly spaced in t, including both endpoints.
func (c Curve) Sample(n int) []Vec {
	if n < 1 {
		n = 1
	}
	pts := make([]Vec, n+1)
	for i := 0; i <= n; i++ {
		pts[i] = c.Eval(float64(i) / float64(n))
	}
	return pts
}

// Length approximates the arc length with a LengthSamples-interval polyline.
func (c Curve) Length() float64 {
	if len(c.Controls) == 0 {
		return r2.Norm(r2.Sub(c.End, c.Start))
	}
	return PolylineLength(c.Sample(LengthSamples))
}

// ParamAtLength returns the parameter at which s units of arc length have
// been covered, using the same polyline as Length. s is clamped to the
// curve length.
func (c Curve) ParamAtLength(s float64) float64 {
	if s <= 0 {
		return 0
	}
	if len(c.Controls) == 0 {
		total := r2.Norm(r2.Sub(c.End, c.Start))
		if total == 0 || s >= total {
			return 1
		}
		return s / total
	}
	pts := c.Sample(LengthSamples)
	var acc float64
	for i := 1; i < len(pts); i++ {
		seg := r2.Norm(r2.Sub(pts[i], pts[i-1]))
		if acc+seg >= s && seg > 0 {
			return (float64(i-1) + (s-acc)/seg) / LengthSamples
		}
		acc += seg
	}
	return 1
}

// PolylineLength sums the lengths of consecutive point pairs.
func PolylineLength(pts []Vec) float64 {
	var total float64
	for i := 1; i < len(pts); i++ {
		total += r2.Norm(r2.Sub(pts[i], pts[i-1]))
	}
	return total
}

func (c Curve) tableIndex(t float64) (int, float64) {
	pos := t * CurveTableSamples
	i := int(math.Floor(pos))
	if i >= CurveTableSamples {
		return CurveTableSamples, 0
	}
	return i, pos - float64(i)
}

// deCasteljau evaluates the Bezier curve with control polygon pts at t using
// work as scratch space (len(work) >= len(pts)).
func deCasteljau(pts, work []Vec, t float64) Vec {
	n := copy(work, pts)
	for k := n - 1; k > 0; k-- {
		for i := 0; i < k; i++ {
			work[i] = r2.Add(work[i], r2.Scale(t, r2.Sub(work[i+1], work[i])))
		}
	}
	return work[0]
}

func clamp01(t float64) float64 {
	if t < 0 || math.IsNaN(t) {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}
