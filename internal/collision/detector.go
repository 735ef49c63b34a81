// Package collision samples the robot footprint along a resolved path and
// reports where it touches obstacles or leaves keep-in regions.
package collision

import (
	"fmt"
	"math"
	"sort"

	"github.com/jbeda/geom"

	"github.com/banshee-data/pathing/internal/geometry"
	"github.com/banshee-data/pathing/internal/plan"
	"github.com/banshee-data/pathing/internal/timeline"
)

// SamplesPerSegment is the number of parametric steps per segment. Each
// segment is checked at SamplesPerSegment+1 points including both ends.
const SamplesPerSegment = 100

// rotateStepDeg is the largest heading step between samples of an in-place
// rotation.
const rotateStepDeg = 2.0

// CollisionRange is a run of consecutive colliding samples against one
// shape. Params are path parameters: k + t for the k-th travelled segment.
// Rotations in place are sampled at the boundary param between the
// segments around them.
type CollisionRange struct {
	ShapeID    string         `json:"shape_id"`
	ShapeName  string         `json:"shape_name,omitempty"`
	Type       plan.ShapeType `json:"type"`
	StartParam float64        `json:"start_param"`
	EndParam   float64        `json:"end_param"`
	// SegmentIndex is the storage index of the line the range starts on, or
	// -1 when the path travels no line.
	SegmentIndex int    `json:"segment_index"`
	LineID       string `json:"line_id"`
}

// Length returns the parametric extent of the range.
func (r CollisionRange) Length() float64 { return r.EndParam - r.StartParam }

type region struct {
	shape  plan.Shape
	poly   geometry.Polygon
	bounds geom.Rect
}

// Detector checks paths against a fixed set of shapes and robot settings.
// It holds no mutable state and is safe for concurrent use.
type Detector struct {
	regions       []region
	length, width float64
}

// NewDetector prepares the visible shapes with at least three vertices.
// Everything else is ignored. A shape type without a collision rule is an
// error.
func NewDetector(shapes []plan.Shape, settings plan.Settings) (*Detector, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	d := &Detector{}
	d.length, d.width = settings.Footprint()
	for _, s := range shapes {
		if !s.Type.Valid() {
			return nil, fmt.Errorf("%w %q on shape %q", plan.ErrUnknownShapeType, s.Type, s.ID)
		}
		if !s.Visible {
			continue
		}
		poly := s.Polygon()
		if !poly.Valid() {
			continue
		}
		d.regions = append(d.regions, region{shape: s, poly: poly, bounds: polygonBounds(poly)})
	}
	return d, nil
}

// Regions returns the number of shapes the detector checks.
func (d *Detector) Regions() int { return len(d.regions) }

// DetectCollisions resolves the chain in sequence order and samples every
// travelled segment. Lines the sequence does not travel are never sampled.
func DetectCollisions(start plan.Point, lines []plan.Line, settings plan.Settings, seq plan.Sequence, shapes []plan.Shape) ([]CollisionRange, error) {
	d, err := NewDetector(shapes, settings)
	if err != nil {
		return nil, err
	}
	return d.Detect(start, lines, seq)
}

// Detect runs the check for one candidate path. Travelled segments and
// rotations in place are both swept.
func (d *Detector) Detect(start plan.Point, lines []plan.Line, seq plan.Sequence) ([]CollisionRange, error) {
	seq = seq.Effective(lines)
	chain, err := timeline.ResolveChain(start, lines, seq)
	if err != nil {
		return nil, err
	}
	if len(d.regions) == 0 {
		return nil, nil
	}

	s := &sweep{
		d:       d,
		open:    make([]*CollisionRange, len(d.regions)),
		pos:     start.Vec(),
		heading: timeline.InitialHeading(start, chain),
		lineIdx: -1,
	}
	next := 0
	for _, item := range seq {
		switch it := item.(type) {
		case plan.PathItem:
			s.travel(chain[next])
			next++
		case plan.RotateItem:
			s.rotate(float64(next), geometry.NormalizeAngle(it.Degrees))
		}
	}
	out := s.out
	for _, r := range s.open {
		if r != nil {
			out = append(out, *r)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StartParam != out[j].StartParam {
			return out[i].StartParam < out[j].StartParam
		}
		return out[i].ShapeID < out[j].ShapeID
	})
	return out, nil
}

// sweep carries the robot pose and the open ranges through one Detect call.
type sweep struct {
	d       *Detector
	open    []*CollisionRange
	out     []CollisionRange
	pos     geometry.Vec
	heading float64
	// lineIdx and lineID name the line new ranges are attributed to.
	lineIdx int
	lineID  string
}

func (s *sweep) travel(seg timeline.ResolvedSegment) {
	s.lineIdx, s.lineID = seg.LineIndex, seg.Line.ID
	for i := 0; i <= SamplesPerSegment; i++ {
		t := float64(i) / SamplesPerSegment
		if h, ok := seg.Line.EndPoint.HeadingAt(seg.Curve, t); ok {
			s.heading = h
		}
		s.pos = seg.Curve.Eval(t)
		s.sample(float64(seg.Order) + t)
	}
}

// rotate turns the footprint in place along the shortest way to target.
func (s *sweep) rotate(param, target float64) {
	diff := geometry.AngularDifference(s.heading, target)
	steps := int(math.Ceil(math.Abs(diff) / rotateStepDeg))
	from := s.heading
	for i := 1; i <= steps; i++ {
		s.heading = from + diff*float64(i)/float64(steps)
		s.sample(param)
	}
	s.heading = target
}

func (s *sweep) sample(param float64) {
	fp := geometry.OrientedRect{
		Center:     s.pos,
		HeadingDeg: s.heading,
		Length:     s.d.length,
		Width:      s.d.width,
	}
	fb := rectBounds(fp)

	for ri, r := range s.d.regions {
		if !r.hit(fp, fb) {
			if s.open[ri] != nil {
				s.out = append(s.out, *s.open[ri])
				s.open[ri] = nil
			}
			continue
		}
		if s.open[ri] == nil {
			s.open[ri] = &CollisionRange{
				ShapeID:      r.shape.ID,
				ShapeName:    r.shape.Name,
				Type:         r.shape.Type,
				StartParam:   param,
				EndParam:     param,
				SegmentIndex: s.lineIdx,
				LineID:       s.lineID,
			}
		} else {
			s.open[ri].EndParam = param
		}
	}
}

func (r region) hit(fp geometry.OrientedRect, fb geom.Rect) bool {
	switch r.shape.Type {
	case plan.ShapeKeepIn:
		if !r.bounds.ContainsRect(fb) {
			return true
		}
		return !geometry.RectInsidePolygon(fp, r.poly)
	case plan.ShapeObstacle:
		if !overlaps(r.bounds, fb) {
			return false
		}
		return geometry.RectIntersectsPolygon(fp, r.poly)
	}
	return false
}

// Summary returns the number of ranges and their total parametric length.
func Summary(ranges []CollisionRange) (count int, total float64) {
	for _, r := range ranges {
		total += r.Length()
	}
	return len(ranges), total
}
