package timeline

import (
	"errors"
	"fmt"

	"github.com/banshee-data/pathing/internal/geometry"
	"github.com/banshee-data/pathing/internal/plan"
)

var (
	// ErrMissingSegment is returned when a path item names an unknown line.
	ErrMissingSegment = errors.New("sequence references missing segment")
	// ErrUnknownItem is returned for sequence item types the builder does
	// not handle.
	ErrUnknownItem = errors.New("unknown sequence item")
)

// ResolvedSegment is a line placed in execution order with its actual start
// point.
type ResolvedSegment struct {
	// Order is the position of the segment among travelled segments.
	Order int
	// SequenceIndex is the index of the path item in the sequence.
	SequenceIndex int
	// LineIndex is the storage index of the line.
	LineIndex int
	Line      plan.Line
	Start     geometry.Vec
	Curve     geometry.Curve
}

// ResolveChain walks the sequence and gives every path item the end of the
// previously travelled segment as its start. The storage order of lines
// plays no part in adjacency. An empty sequence travels every line in
// storage order.
func ResolveChain(start plan.Point, lines []plan.Line, seq plan.Sequence) ([]ResolvedSegment, error) {
	seq = seq.Effective(lines)
	idx := plan.IndexLines(lines)

	prev := start.Vec()
	var out []ResolvedSegment
	for i, item := range seq {
		switch it := item.(type) {
		case plan.PathItem:
			li, ok := idx[it.LineID]
			if !ok {
				return nil, fmt.Errorf("%w: %q", ErrMissingSegment, it.LineID)
			}
			line := lines[li]
			out = append(out, ResolvedSegment{
				Order:         len(out),
				SequenceIndex: i,
				LineIndex:     li,
				Line:          line,
				Start:         prev,
				Curve:         line.Curve(prev),
			})
			prev = line.EndPoint.Vec()
		case plan.WaitItem, plan.RotateItem, plan.ServoItem:
		default:
			return nil, fmt.Errorf("%w: %T at %d", ErrUnknownItem, item, i)
		}
	}
	return out, nil
}

// InitialHeading returns the heading the robot starts with. A tangential
// start faces along the first travelled segment; with nothing to travel it
// is zero.
func InitialHeading(start plan.Point, chain []ResolvedSegment) float64 {
	switch h := start.Heading.(type) {
	case plan.Constant:
		return geometry.NormalizeAngle(h.Degrees)
	case plan.Linear:
		return geometry.NormalizeAngle(h.StartDeg)
	}
	if len(chain) == 0 {
		return 0
	}
	dir, ok := chain[0].Curve.Tangent(0)
	if !ok {
		return 0
	}
	deg := geometry.HeadingOf(dir)
	if tg, isTangential := start.Heading.(plan.Tangential); isTangential && tg.Reverse {
		deg = geometry.NormalizeAngle(deg + 180)
	}
	return deg
}
