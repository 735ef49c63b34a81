package testutil

import (
	"encoding/json"
	"net/http"
	"testing"
)

func TestAssertStatusCode(t *testing.T) {
	t.Parallel()
	AssertStatusCode(t, http.StatusOK, http.StatusOK)
	AssertStatusCode(t, http.StatusNotFound, http.StatusNotFound)
}

func TestNewJSONRequest(t *testing.T) {
	req := NewJSONRequest(t, http.MethodPost, "/api/predict", map[string]int{"x": 1})
	if req.Method != http.MethodPost || req.URL.Path != "/api/predict" {
		t.Errorf("request = %s %s", req.Method, req.URL.Path)
	}
	if ct := req.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("content-type = %s", ct)
	}
	var got map[string]int
	if err := json.NewDecoder(req.Body).Decode(&got); err != nil || got["x"] != 1 {
		t.Errorf("body = %v, err %v", got, err)
	}
}

func TestFixtures(t *testing.T) {
	box := Box("b", 5, 5, 1)
	if len(box.Vertices) != 4 || !box.Visible {
		t.Errorf("unexpected box %+v", box)
	}
	if err := StraightProject().Validate(); err != nil {
		t.Errorf("StraightProject invalid: %v", err)
	}
	if err := BlockedProject().Validate(); err != nil {
		t.Errorf("BlockedProject invalid: %v", err)
	}
}
