package plan

import (
	"github.com/banshee-data/pathing/internal/geometry"
)

// ControlPoint shapes a segment between its start and end points.
type ControlPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Vec returns the control point position.
func (c ControlPoint) Vec() geometry.Vec { return geometry.Vec{X: c.X, Y: c.Y} }

// Wait is a stationary pause attached to a segment.
type Wait struct {
	Name       string  `json:"name,omitempty"`
	DurationMs float64 `json:"durationMs"`
}

// EventMarker fires when the robot has covered Position (0..1) of the
// segment's length.
type EventMarker struct {
	Name     string  `json:"name"`
	Position float64 `json:"position"`
}

// Line is one Bezier segment. It never stores its start point: the start is
// the end of whatever precedes it in the execution order.
type Line struct {
	ID            string         `json:"id"`
	Name          string         `json:"name,omitempty"`
	EndPoint      Point          `json:"endPoint"`
	ControlPoints []ControlPoint `json:"controlPoints,omitempty"`
	WaitBefore    *Wait          `json:"waitBefore,omitempty"`
	WaitAfter     *Wait          `json:"waitAfter,omitempty"`
	EventMarkers  []EventMarker  `json:"eventMarkers,omitempty"`
	Locked        bool           `json:"locked,omitempty"`
	Color         string         `json:"color,omitempty"`
}

// Controls returns the control points as vectors.
func (l Line) Controls() []geometry.Vec {
	if len(l.ControlPoints) == 0 {
		return nil
	}
	out := make([]geometry.Vec, len(l.ControlPoints))
	for i, c := range l.ControlPoints {
		out[i] = c.Vec()
	}
	return out
}

// Curve builds the segment geometry from start.
func (l Line) Curve(start geometry.Vec) geometry.Curve {
	return geometry.NewCurve(start, l.Controls(), l.EndPoint.Vec())
}

// Clone returns a deep copy of the line.
func (l Line) Clone() Line {
	out := l
	if l.ControlPoints != nil {
		out.ControlPoints = append([]ControlPoint(nil), l.ControlPoints...)
	}
	if l.EventMarkers != nil {
		out.EventMarkers = append([]EventMarker(nil), l.EventMarkers...)
	}
	if l.WaitBefore != nil {
		w := *l.WaitBefore
		out.WaitBefore = &w
	}
	if l.WaitAfter != nil {
		w := *l.WaitAfter
		out.WaitAfter = &w
	}
	return out
}

// CloneLines deep-copies lines so that no control point slice is shared with
// the input.
func CloneLines(lines []Line) []Line {
	if lines == nil {
		return nil
	}
	out := make([]Line, len(lines))
	for i, l := range lines {
		out[i] = l.Clone()
	}
	return out
}

// IndexLines maps line IDs to their storage index.
func IndexLines(lines []Line) map[string]int {
	idx := make(map[string]int, len(lines))
	for i, l := range lines {
		idx[l.ID] = i
	}
	return idx
}
