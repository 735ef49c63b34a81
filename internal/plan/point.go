// Package plan holds the path data model: points and their heading modes,
// Bezier segments, the execution sequence, field shapes and robot settings.
//
// Coordinates are field inches. Headings are degrees counter-clockwise from
// the +X axis.
package plan

import (
	"encoding/json"
	"fmt"

	"github.com/banshee-data/pathing/internal/geometry"
)

// HeadingMode names a heading variant in JSON.
type HeadingMode string

const (
	HeadingConstant   HeadingMode = "constant"
	HeadingLinear     HeadingMode = "linear"
	HeadingTangential HeadingMode = "tangential"
)

// Heading describes how the robot is oriented while travelling towards a
// point. The set of implementations is closed: Constant, Linear and
// Tangential.
type Heading interface {
	Mode() HeadingMode
	isHeading()
}

// Constant holds a fixed heading for the whole segment.
type Constant struct {
	Degrees float64 `json:"degrees"`
}

// Linear interpolates the heading from StartDeg to EndDeg along the shortest
// arc as the segment parameter runs from 0 to 1.
type Linear struct {
	StartDeg float64 `json:"startDeg"`
	EndDeg   float64 `json:"endDeg"`
}

// Tangential faces along the direction of travel, or against it when
// Reverse is set.
type Tangential struct {
	Reverse bool `json:"reverse"`
}

func (Constant) Mode() HeadingMode   { return HeadingConstant }
func (Linear) Mode() HeadingMode     { return HeadingLinear }
func (Tangential) Mode() HeadingMode { return HeadingTangential }

func (Constant) isHeading()   {}
func (Linear) isHeading()     {}
func (Tangential) isHeading() {}

// Point is a path vertex with the heading mode used on the segment that ends
// at it. A nil Heading behaves as Tangential{}.
type Point struct {
	X       float64
	Y       float64
	Heading Heading
}

// Vec returns the point position.
func (p Point) Vec() geometry.Vec { return geometry.Vec{X: p.X, Y: p.Y} }

// HeadingAt returns the robot heading at parameter t along curve when the
// segment uses this point's heading mode. ok is false when a tangential
// heading is requested on a degenerate curve; callers keep the previous
// heading in that case.
func (p Point) HeadingAt(curve geometry.Curve, t float64) (deg float64, ok bool) {
	switch h := p.Heading.(type) {
	case Constant:
		return geometry.NormalizeAngle(h.Degrees), true
	case Linear:
		return geometry.LerpAngle(h.StartDeg, h.EndDeg, t), true
	case Tangential:
		return tangentHeading(curve, t, h.Reverse)
	case nil:
		return tangentHeading(curve, t, false)
	default:
		return 0, false
	}
}

// StartHeading returns the heading a segment using this mode begins with.
func (p Point) StartHeading(curve geometry.Curve) (float64, bool) {
	return p.HeadingAt(curve, 0)
}

// EndHeading returns the heading a segment using this mode finishes with.
func (p Point) EndHeading(curve geometry.Curve) (float64, bool) {
	return p.HeadingAt(curve, 1)
}

func tangentHeading(curve geometry.Curve, t float64, reverse bool) (float64, bool) {
	dir, ok := curve.Tangent(t)
	if !ok {
		return 0, false
	}
	deg := geometry.HeadingOf(dir)
	if reverse {
		deg = geometry.NormalizeAngle(deg + 180)
	}
	return deg, true
}

type pointJSON struct {
	X        float64     `json:"x"`
	Y        float64     `json:"y"`
	Heading  HeadingMode `json:"heading,omitempty"`
	Degrees  *float64    `json:"degrees,omitempty"`
	StartDeg *float64    `json:"startDeg,omitempty"`
	EndDeg   *float64    `json:"endDeg,omitempty"`
	Reverse  *bool       `json:"reverse,omitempty"`
}

// MarshalJSON writes only the fields of the active heading mode.
func (p Point) MarshalJSON() ([]byte, error) {
	out := pointJSON{X: p.X, Y: p.Y}
	switch h := p.Heading.(type) {
	case Constant:
		out.Heading = HeadingConstant
		out.Degrees = &h.Degrees
	case Linear:
		out.Heading = HeadingLinear
		out.StartDeg = &h.StartDeg
		out.EndDeg = &h.EndDeg
	case Tangential:
		out.Heading = HeadingTangential
		out.Reverse = &h.Reverse
	case nil:
		out.Heading = HeadingTangential
	default:
		return nil, fmt.Errorf("unknown heading type %T", p.Heading)
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the heading discriminator. A missing heading means
// tangential.
func (p *Point) UnmarshalJSON(data []byte) error {
	var in pointJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	p.X, p.Y = in.X, in.Y
	switch in.Heading {
	case HeadingConstant:
		p.Heading = Constant{Degrees: deref(in.Degrees)}
	case HeadingLinear:
		p.Heading = Linear{StartDeg: deref(in.StartDeg), EndDeg: deref(in.EndDeg)}
	case HeadingTangential, "":
		var rev bool
		if in.Reverse != nil {
			rev = *in.Reverse
		}
		p.Heading = Tangential{Reverse: rev}
	default:
		return fmt.Errorf("unknown heading mode %q", in.Heading)
	}
	return nil
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
