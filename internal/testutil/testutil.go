// Package testutil provides shared test helpers and path fixtures.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/banshee-data/pathing/internal/plan"
)

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// NewJSONRequest builds a test request whose body is v encoded as JSON.
func NewJSONRequest(t *testing.T, method, path string, v any) *http.Request {
	t.Helper()
	b, err := json.Marshal(v)
	AssertNoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// Box returns a visible square obstacle centred on (cx, cy).
func Box(id string, cx, cy, half float64) plan.Shape {
	return plan.Shape{
		ID:      id,
		Name:    id,
		Type:    plan.ShapeObstacle,
		Visible: true,
		Vertices: []plan.Point2{
			{X: cx - half, Y: cy - half},
			{X: cx + half, Y: cy - half},
			{X: cx + half, Y: cy + half},
			{X: cx - half, Y: cy + half},
		},
	}
}

// StraightProject is a single 10 in straight segment along +x with
// v = 10 in/s and a = d = 5 in/s², which takes 2·√2 s.
func StraightProject() plan.Project {
	return plan.Project{
		StartPoint: plan.Point{Heading: plan.Tangential{}},
		Lines: []plan.Line{{
			ID:       "a",
			EndPoint: plan.Point{X: 10, Heading: plan.Tangential{}},
		}},
		Settings: plan.Settings{
			MaxVelocity:     10,
			MaxAcceleration: 5,
			MaxDeceleration: 5,
			RobotLength:     18,
			RobotWidth:      18,
		},
	}
}

// BlockedProject is a 120 in quadratic through a post at its midpoint.
// Raising the control point clears it.
func BlockedProject() plan.Project {
	return plan.Project{
		StartPoint: plan.Point{Heading: plan.Constant{}},
		Lines: []plan.Line{{
			ID:            "a",
			EndPoint:      plan.Point{X: 120, Heading: plan.Constant{}},
			ControlPoints: []plan.ControlPoint{{X: 60, Y: 0}},
		}},
		Shapes:   []plan.Shape{Box("post", 60, 0, 4)},
		Settings: plan.DefaultSettings(),
	}
}
