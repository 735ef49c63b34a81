package optimizer

import (
	"math"

	"github.com/banshee-data/pathing/internal/plan"
)

// mutate returns a mutated deep copy of lines. Locked and untravelled lines
// are copied verbatim.
func (s *search) mutate(lines []plan.Line) []plan.Line {
	out := plan.CloneLines(lines)
	for _, i := range s.mutable {
		l := &out[i]
		for j := range l.ControlPoints {
			if s.rng.Float64() < s.cfg.MutationRate {
				dx, dy := s.offset()
				l.ControlPoints[j].X += dx
				l.ControlPoints[j].Y += dy
			}
		}
		if s.rng.Float64() < s.cfg.AddControlPointRate {
			s.addControlPoint(l)
		}
		if len(l.ControlPoints) > 0 && s.rng.Float64() < s.cfg.RemoveControlPointRate {
			k := s.rng.Intn(len(l.ControlPoints))
			l.ControlPoints = append(l.ControlPoints[:k], l.ControlPoints[k+1:]...)
		}
	}
	return out
}

// offset draws a vector uniformly in direction with length at most the
// current strength.
func (s *search) offset() (dx, dy float64) {
	r := s.strength * s.rng.Float64()
	a := 2 * math.Pi * s.rng.Float64()
	return r * math.Cos(a), r * math.Sin(a)
}

// addControlPoint inserts a point near the middle of the segment, in the
// middle of the control polygon.
func (s *search) addControlPoint(l *plan.Line) {
	start := s.starts[l.ID]
	mid := l.Curve(start.Vec()).Eval(0.5)
	dx, dy := s.offset()
	cp := plan.ControlPoint{X: mid.X + dx, Y: mid.Y + dy}
	k := len(l.ControlPoints) / 2
	l.ControlPoints = append(l.ControlPoints, plan.ControlPoint{})
	copy(l.ControlPoints[k+1:], l.ControlPoints[k:])
	l.ControlPoints[k] = cp
}
