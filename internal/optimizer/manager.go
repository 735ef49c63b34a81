package optimizer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/pathing/internal/monitoring"
	"github.com/banshee-data/pathing/internal/timeutil"
)

// ErrRunInProgress is returned by TryStart while another run is active.
var ErrRunInProgress = errors.New("run in progress")

// RunRecorder persists run lifecycle events. Errors are logged and never
// fail the run.
type RunRecorder interface {
	RecordStart(runID string, cfg Config, startedAt time.Time) error
	RecordResult(runID string, res *Result, completedAt time.Time, runErr error) error
}

// State is a snapshot of the manager.
type State struct {
	Status      Status     `json:"status"`
	RunID       string     `json:"run_id,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Progress    *Progress  `json:"progress,omitempty"`
	Result      *Result    `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// Manager runs one optimisation at a time in the background. Starting a new
// run abandons the previous one: it is cancelled and its results are
// discarded.
type Manager struct {
	mu       sync.RWMutex
	state    State
	epoch    int
	cancel   context.CancelFunc
	token    *CancelToken
	done     chan struct{}
	recorder RunRecorder
	clock    timeutil.Clock
}

// NewManager returns an idle manager. recorder may be nil.
func NewManager(recorder RunRecorder, clock timeutil.Clock) *Manager {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Manager{
		state:    State{Status: StatusIdle},
		recorder: recorder,
		clock:    clock,
	}
}

// Start validates cfg and launches a run, returning its ID. A run already
// in progress is abandoned.
func (m *Manager) Start(ctx context.Context, problem Problem, cfg Config) (string, error) {
	return m.start(ctx, problem, cfg, true)
}

// TryStart is Start that fails with ErrRunInProgress instead of abandoning
// an active run. The check and the start happen under one lock.
func (m *Manager) TryStart(ctx context.Context, problem Problem, cfg Config) (string, error) {
	return m.start(ctx, problem, cfg, false)
}

func (m *Manager) start(ctx context.Context, problem Problem, cfg Config, replace bool) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if problem.ID == "" {
		problem.ID = uuid.New().String()
	}

	m.mu.Lock()
	if !replace && m.state.Status == StatusRunning {
		runID := m.state.RunID
		m.mu.Unlock()
		return "", fmt.Errorf("%w: %s", ErrRunInProgress, runID)
	}
	if m.cancel != nil {
		monitoring.Logf("[optimizer] abandoning run %s for %s", m.state.RunID, problem.ID)
		m.cancel()
		m.token.Cancel()
	}
	m.epoch++
	epoch := m.epoch
	now := m.clock.Now()
	m.state = State{Status: StatusRunning, RunID: problem.ID, StartedAt: &now}
	runCtx, cancel := context.WithCancel(ctx)
	token := &CancelToken{}
	done := make(chan struct{})
	m.cancel, m.token, m.done = cancel, token, done
	m.mu.Unlock()

	if m.recorder != nil {
		if err := m.recorder.RecordStart(problem.ID, cfg, now); err != nil {
			monitoring.Logf("[optimizer] record start %s: %v", problem.ID, err)
		}
	}

	go func() {
		defer close(done)
		defer cancel()
		onProgress := func(p Progress) {
			m.mu.Lock()
			// Updates can still arrive after the run has finished.
			if m.epoch == epoch && m.state.Status == StatusRunning {
				m.state.Progress = &p
			}
			m.mu.Unlock()
		}
		res, err := Run(runCtx, problem, cfg, onProgress, token)
		m.finish(epoch, problem.ID, res, err)
	}()
	return problem.ID, nil
}

func (m *Manager) finish(epoch int, runID string, res Result, err error) {
	completed := m.clock.Now()
	var resPtr *Result
	if err == nil {
		resPtr = &res
	}

	if m.recorder != nil {
		if rerr := m.recorder.RecordResult(runID, resPtr, completed, err); rerr != nil {
			monitoring.Logf("[optimizer] record result %s: %v", runID, rerr)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epoch != epoch {
		return
	}
	m.state.CompletedAt = &completed
	m.cancel = nil
	if err != nil {
		m.state.Status = StatusError
		m.state.Error = err.Error()
		return
	}
	m.state.Status = res.Status
	m.state.Result = resPtr
}

// Stop cancels the current run, if any. The run finishes with
// StatusCancelled and keeps its best result.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		m.token.Cancel()
		m.cancel()
		m.cancel = nil
	}
}

// Wait blocks until the latest run has finished or ctx is done.
func (m *Manager) Wait(ctx context.Context) error {
	m.mu.RLock()
	done := m.done
	m.mu.RUnlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns a copy of the current state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := m.state
	if st.Progress != nil {
		p := *st.Progress
		st.Progress = &p
	}
	return st
}
