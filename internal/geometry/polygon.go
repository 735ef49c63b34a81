package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// intersectEpsilon absorbs rounding in orientation tests so that touching
// segments are reported as intersecting.
const intersectEpsilon = 1e-9

// PointToSegmentDistance returns the distance from p to the closed segment
// a-b. A degenerate segment (a == b) degrades to the point distance.
func PointToSegmentDistance(p, a, b Vec) float64 {
	ab := r2.Sub(b, a)
	lenSq := r2.Norm2(ab)
	if lenSq == 0 {
		return r2.Norm(r2.Sub(p, a))
	}
	t := r2.Dot(r2.Sub(p, a), ab) / lenSq
	t = clamp01(t)
	closest := r2.Add(a, r2.Scale(t, ab))
	return r2.Norm(r2.Sub(p, closest))
}

// orientation returns >0 for a counter-clockwise turn a→b→c, <0 for
// clockwise and 0 for collinear points (within intersectEpsilon).
func orientation(a, b, c Vec) int {
	v := r2.Cross(r2.Sub(b, a), r2.Sub(c, a))
	switch {
	case v > intersectEpsilon:
		return 1
	case v < -intersectEpsilon:
		return -1
	default:
		return 0
	}
}

func onSegment(p, a, b Vec) bool {
	return p.X <= math.Max(a.X, b.X)+intersectEpsilon &&
		p.X >= math.Min(a.X, b.X)-intersectEpsilon &&
		p.Y <= math.Max(a.Y, b.Y)+intersectEpsilon &&
		p.Y >= math.Min(a.Y, b.Y)-intersectEpsilon
}

// SegmentsIntersect reports whether closed segments p1-p2 and q1-q2 share at
// least one point, including collinear overlap and touching endpoints.
func SegmentsIntersect(p1, p2, q1, q2 Vec) bool {
	o1 := orientation(p1, p2, q1)
	o2 := orientation(p1, p2, q2)
	o3 := orientation(q1, q2, p1)
	o4 := orientation(q1, q2, p2)

	if o1 != o2 && o3 != o4 {
		return true
	}
	if o1 == 0 && onSegment(q1, p1, p2) {
		return true
	}
	if o2 == 0 && onSegment(q2, p1, p2) {
		return true
	}
	if o3 == 0 && onSegment(p1, q1, q2) {
		return true
	}
	if o4 == 0 && onSegment(p2, q1, q2) {
		return true
	}
	return false
}

// Polygon is a simple polygon given by its vertices in order. The closing
// edge from the last vertex back to the first is implicit.
type Polygon []Vec

// Valid reports whether the polygon has enough vertices to enclose an area.
func (pg Polygon) Valid() bool { return len(pg) >= 3 }

// Contains reports whether p lies inside the polygon (even-odd rule).
// Concave polygons are supported.
func (pg Polygon) Contains(p Vec) bool {
	if !pg.Valid() {
		return false
	}
	inside := false
	j := len(pg) - 1
	for i := range pg {
		a, b := pg[i], pg[j]
		if (a.Y > p.Y) != (b.Y > p.Y) {
			x := (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y) + a.X
			if p.X < x {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

// Edges returns the polygon edges as start/end pairs.
func (pg Polygon) Edges() [][2]Vec {
	if len(pg) < 2 {
		return nil
	}
	edges := make([][2]Vec, len(pg))
	for i := range pg {
		edges[i] = [2]Vec{pg[i], pg[(i+1)%len(pg)]}
	}
	return edges
}

// OrientedRect is a rectangle centred on Center with its length axis along
// HeadingDeg. It models the robot footprint.
type OrientedRect struct {
	Center     Vec
	HeadingDeg float64
	Length     float64 // extent along the heading
	Width      float64 // extent perpendicular to the heading
}

// Corners returns the rectangle corners in counter-clockwise order starting
// at the front-left corner.
func (r OrientedRect) Corners() [4]Vec {
	along := r2.Scale(r.Length/2, Direction(r.HeadingDeg))
	across := r2.Scale(r.Width/2, Direction(r.HeadingDeg+90))
	return [4]Vec{
		r2.Add(r2.Add(r.Center, along), across),
		r2.Add(r2.Sub(r.Center, along), across),
		r2.Sub(r2.Sub(r.Center, along), across),
		r2.Sub(r2.Add(r.Center, along), across),
	}
}

// Bounds returns the axis-aligned extent of the rectangle.
func (r OrientedRect) Bounds() (min, max Vec) {
	c := r.Corners()
	min, max = c[0], c[0]
	for _, p := range c[1:] {
		min.X = math.Min(min.X, p.X)
		min.Y = math.Min(min.Y, p.Y)
		max.X = math.Max(max.X, p.X)
		max.Y = math.Max(max.Y, p.Y)
	}
	return min, max
}

// Contains reports whether p lies inside or on the rectangle.
func (r OrientedRect) Contains(p Vec) bool {
	d := r2.Sub(p, r.Center)
	u := Direction(r.HeadingDeg)
	along := math.Abs(r2.Dot(d, u))
	across := math.Abs(r2.Cross(u, d))
	return along <= r.Length/2+intersectEpsilon && across <= r.Width/2+intersectEpsilon
}

// Edges returns the four sides of the rectangle.
func (r OrientedRect) Edges() [4][2]Vec {
	c := r.Corners()
	return [4][2]Vec{{c[0], c[1]}, {c[1], c[2]}, {c[2], c[3]}, {c[3], c[0]}}
}

func edgesCross(r OrientedRect, pg Polygon) bool {
	for _, re := range r.Edges() {
		for _, pe := range pg.Edges() {
			if SegmentsIntersect(re[0], re[1], pe[0], pe[1]) {
				return true
			}
		}
	}
	return false
}

// RectIntersectsPolygon reports whether the rectangle and the polygon share
// any point: crossing edges or either shape containing the other.
func RectIntersectsPolygon(r OrientedRect, pg Polygon) bool {
	if !pg.Valid() {
		return false
	}
	if pg.Contains(r.Center) {
		return true
	}
	for _, v := range pg {
		if r.Contains(v) {
			return true
		}
	}
	return edgesCross(r, pg)
}

// RectInsidePolygon reports whether the rectangle lies entirely inside the
// polygon. Touching the boundary counts as leaving it.
func RectInsidePolygon(r OrientedRect, pg Polygon) bool {
	if !pg.Valid() {
		return false
	}
	for _, c := range r.Corners() {
		if !pg.Contains(c) {
			return false
		}
	}
	// A concave notch can poke into the rectangle with every corner inside.
	for _, v := range pg {
		if r.Contains(v) {
			return false
		}
	}
	return !edgesCross(r, pg)
}
