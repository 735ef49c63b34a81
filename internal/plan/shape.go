package plan

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/banshee-data/pathing/internal/geometry"
)

// ShapeType selects the collision rule for a shape.
type ShapeType string

const (
	// ShapeObstacle must not be touched by the robot footprint.
	ShapeObstacle ShapeType = "obstacle"
	// ShapeKeepIn must fully contain the robot footprint.
	ShapeKeepIn ShapeType = "keep-in"
)

// ErrUnknownShapeType is returned for shape types without a collision rule.
var ErrUnknownShapeType = errors.New("unknown shape type")

// Valid reports whether t names a collision rule.
func (t ShapeType) Valid() bool {
	return t == ShapeObstacle || t == ShapeKeepIn
}

// Point2 is a bare polygon vertex.
type Point2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Shape is a polygonal field region. Hidden shapes are ignored by collision
// checks. Locked has no geometric meaning.
type Shape struct {
	ID       string    `json:"id"`
	Name     string    `json:"name,omitempty"`
	Type     ShapeType `json:"type"`
	Vertices []Point2  `json:"vertices"`
	Locked   bool      `json:"locked,omitempty"`
	Visible  bool      `json:"visible"`
}

// Polygon returns the shape outline.
func (s Shape) Polygon() geometry.Polygon {
	pg := make(geometry.Polygon, len(s.Vertices))
	for i, v := range s.Vertices {
		pg[i] = geometry.Vec{X: v.X, Y: v.Y}
	}
	return pg
}

// UnmarshalJSON defaults Visible to true and Type to obstacle when the
// fields are absent. Any other type is an error.
func (s *Shape) UnmarshalJSON(data []byte) error {
	type shapeAlias Shape
	aux := struct {
		*shapeAlias
		Visible *bool `json:"visible"`
	}{shapeAlias: (*shapeAlias)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.Visible = aux.Visible == nil || *aux.Visible
	if s.Type == "" {
		s.Type = ShapeObstacle
	}
	if !s.Type.Valid() {
		return fmt.Errorf("%w %q on shape %q", ErrUnknownShapeType, s.Type, s.ID)
	}
	return nil
}
