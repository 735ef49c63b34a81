// Package api serves the timing, collision and optimizer operations over
// HTTP/JSON.
package api

import (
	"net/http"

	"github.com/banshee-data/pathing/internal/optimizer"
	"github.com/banshee-data/pathing/internal/plan"
	"github.com/banshee-data/pathing/internal/store"
)

// RunReader is the read side of the run store.
type RunReader interface {
	GetRun(runID string) (store.RunRecord, error)
	ListRuns(limit int) ([]store.RunRecord, error)
}

// Server holds the handlers' dependencies. runs may be nil, in which case
// the run history endpoints answer 503.
type Server struct {
	manager   *optimizer.Manager
	runs      RunReader
	settings  plan.Settings
	optimizer optimizer.Config
}

// NewServer returns a server. settings fill in projects posted without a
// settings block and cfg is the base every optimize request overrides.
func NewServer(manager *optimizer.Manager, runs RunReader, settings plan.Settings, cfg optimizer.Config) *Server {
	return &Server{
		manager:   manager,
		runs:      runs,
		settings:  settings,
		optimizer: cfg,
	}
}

// ServeMux registers every route on a new mux.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/config", s.showConfig)
	mux.HandleFunc("POST /api/predict", s.handlePredict)
	mux.HandleFunc("POST /api/collisions", s.handleCollisions)
	mux.HandleFunc("POST /api/optimize", s.handleOptimizeStart)
	mux.HandleFunc("GET /api/optimize", s.handleOptimizeState)
	mux.HandleFunc("POST /api/optimize/stop", s.handleOptimizeStop)
	mux.HandleFunc("GET /api/runs", s.handleListRuns)
	mux.HandleFunc("GET /api/runs/{id}", s.handleGetRun)
	mux.HandleFunc("POST /charts/timeline", s.handleTimelineChart)
	mux.HandleFunc("GET /charts/runs/{id}", s.handleRunChart)
	return mux
}
