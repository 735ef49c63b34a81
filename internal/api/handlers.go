package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/banshee-data/pathing/internal/collision"
	"github.com/banshee-data/pathing/internal/httputil"
	"github.com/banshee-data/pathing/internal/motion"
	"github.com/banshee-data/pathing/internal/optimizer"
	"github.com/banshee-data/pathing/internal/plan"
	"github.com/banshee-data/pathing/internal/report"
	"github.com/banshee-data/pathing/internal/security"
	"github.com/banshee-data/pathing/internal/store"
	"github.com/banshee-data/pathing/internal/timeline"
)

// OptimizeRequest starts a run. Config fields that are omitted keep the
// server defaults.
type OptimizeRequest struct {
	ID      string          `json:"id,omitempty"`
	Project json.RawMessage `json:"project"`
	Config  json.RawMessage `json:"config,omitempty"`
}

// OptimizeStarted is the reply to a started run.
type OptimizeStarted struct {
	RunID string `json:"run_id"`
}

// CollisionsResponse lists the merged collision ranges.
type CollisionsResponse struct {
	Collisions []collision.CollisionRange `json:"collisions"`
	Count      int                        `json:"count"`
	Extent     float64                    `json:"extent"`
}

// inputError reports errors caused by the request content.
func inputError(err error) bool {
	return errors.Is(err, plan.ErrInvalidSettings) ||
		errors.Is(err, plan.ErrDuplicateLine) ||
		errors.Is(err, plan.ErrMissingLine) ||
		errors.Is(err, plan.ErrUnknownShapeType) ||
		errors.Is(err, motion.ErrInvalidLimits) ||
		errors.Is(err, motion.ErrInvalidDistance) ||
		errors.Is(err, timeline.ErrMissingSegment) ||
		errors.Is(err, timeline.ErrUnknownItem) ||
		errors.Is(err, optimizer.ErrInvalidConfig)
}

func writeError(w http.ResponseWriter, err error) {
	if inputError(err) {
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.InternalServerError(w, err.Error())
}

func (s *Server) decodeProject(data []byte) (plan.Project, error) {
	p := plan.Project{Settings: s.settings}
	if err := json.Unmarshal(data, &p); err != nil {
		return plan.Project{}, fmt.Errorf("decode project: %w", err)
	}
	if err := p.Validate(); err != nil {
		return plan.Project{}, err
	}
	return p, nil
}

// readProject decodes and validates a project body. On failure it has
// already written a 400.
func (s *Server) readProject(w http.ResponseWriter, r *http.Request) (plan.Project, bool) {
	var raw json.RawMessage
	if err := httputil.DecodeJSON(r, &raw); err != nil {
		httputil.BadRequest(w, err.Error())
		return plan.Project{}, false
	}
	p, err := s.decodeProject(raw)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return plan.Project{}, false
	}
	return p, true
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, map[string]any{
		"settings":  s.settings,
		"optimizer": s.optimizer,
	})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	p, ok := s.readProject(w, r)
	if !ok {
		return
	}
	pred, err := timeline.ComputeTimePrediction(p.StartPoint, p.Lines, p.Settings, p.Sequence)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSONOK(w, pred)
}

func (s *Server) handleCollisions(w http.ResponseWriter, r *http.Request) {
	p, ok := s.readProject(w, r)
	if !ok {
		return
	}
	ranges, err := collision.DetectCollisions(p.StartPoint, p.Lines, p.Settings, p.Sequence, p.Shapes)
	if err != nil {
		writeError(w, err)
		return
	}
	if ranges == nil {
		ranges = []collision.CollisionRange{}
	}
	count, extent := collision.Summary(ranges)
	httputil.WriteJSONOK(w, CollisionsResponse{Collisions: ranges, Count: count, Extent: extent})
}

// handleOptimizeStart answers 409 while another run is in progress unless
// the query has replace=true, which abandons it.
func (s *Server) handleOptimizeStart(w http.ResponseWriter, r *http.Request) {
	var req OptimizeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if len(req.Project) == 0 {
		httputil.BadRequest(w, "missing project")
		return
	}
	p, err := s.decodeProject(req.Project)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	cfg := s.optimizer
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			httputil.BadRequest(w, fmt.Sprintf("decode config: %v", err))
			return
		}
	}

	problem := optimizer.ProblemFromProject(p)
	problem.ID = req.ID
	start := s.manager.TryStart
	if replace, _ := strconv.ParseBool(r.URL.Query().Get("replace")); replace {
		start = s.manager.Start
	}
	// The run outlives the request.
	id, err := start(context.WithoutCancel(r.Context()), problem, cfg)
	if errors.Is(err, optimizer.ErrRunInProgress) {
		httputil.Conflict(w, err.Error())
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, OptimizeStarted{RunID: id})
}

func (s *Server) handleOptimizeState(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, s.manager.State())
}

func (s *Server) handleOptimizeStop(w http.ResponseWriter, r *http.Request) {
	s.manager.Stop()
	httputil.WriteJSONOK(w, s.manager.State())
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "run store not configured")
		return
	}
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		v, err := strconv.Atoi(l)
		if err != nil || v < 1 {
			httputil.BadRequest(w, "Invalid 'limit' parameter")
			return
		}
		limit = v
	}
	runs, err := s.runs.ListRuns(limit)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, runs)
}

// getRun writes the error response itself when ok is false.
func (s *Server) getRun(w http.ResponseWriter, r *http.Request) (store.RunRecord, bool) {
	if s.runs == nil {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "run store not configured")
		return store.RunRecord{}, false
	}
	run, err := s.runs.GetRun(r.PathValue("id"))
	if errors.Is(err, store.ErrRunNotFound) {
		httputil.NotFound(w, err.Error())
		return store.RunRecord{}, false
	}
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return store.RunRecord{}, false
	}
	return run, true
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if run, ok := s.getRun(w, r); ok {
		httputil.WriteJSONOK(w, run)
	}
}

func writeHTML(w http.ResponseWriter, buf *bytes.Buffer) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleTimelineChart(w http.ResponseWriter, r *http.Request) {
	p, ok := s.readProject(w, r)
	if !ok {
		return
	}
	pred, err := timeline.ComputeTimePrediction(p.StartPoint, p.Lines, p.Settings, p.Sequence)
	if err != nil {
		writeError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := report.RenderTimelineChart(&buf, pred, nil); err != nil {
		if errors.Is(err, report.ErrNoData) {
			httputil.BadRequest(w, "project has an empty timeline")
			return
		}
		httputil.InternalServerError(w, fmt.Sprintf("render error: %v", err))
		return
	}
	writeHTML(w, &buf)
}

// handleRunChart renders the best prediction and fitness log of a stored
// run.
func (s *Server) handleRunChart(w http.ResponseWriter, r *http.Request) {
	run, ok := s.getRun(w, r)
	if !ok {
		return
	}
	if len(run.Result) == 0 {
		httputil.NotFound(w, fmt.Sprintf("run %s has no result", run.RunID))
		return
	}
	var res optimizer.Result
	if err := json.Unmarshal(run.Result, &res); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("decode result: %v", err))
		return
	}
	var log []optimizer.GenerationLog
	if len(run.Log) > 0 {
		if err := json.Unmarshal(run.Log, &log); err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("decode log: %v", err))
			return
		}
	}
	var buf bytes.Buffer
	if err := report.RenderTimelineChart(&buf, res.Prediction, log); err != nil {
		if errors.Is(err, report.ErrNoData) {
			httputil.NotFound(w, fmt.Sprintf("run %s has an empty timeline", run.RunID))
			return
		}
		httputil.InternalServerError(w, fmt.Sprintf("render error: %v", err))
		return
	}
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`inline; filename="run-%s.html"`, security.SanitizeFilename(run.RunID)))
	writeHTML(w, &buf)
}
