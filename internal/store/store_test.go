package store

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/pathing/internal/monitoring"
	"github.com/banshee-data/pathing/internal/optimizer"
	"github.com/banshee-data/pathing/internal/plan"
)

func init() {
	monitoring.SetLogger(nil)
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.MigrateUp())
	return db
}

func TestMigrations(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer db.Close()

	v, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(0), v)
	assert.False(t, dirty)

	require.NoError(t, db.MigrateUp())
	require.NoError(t, db.MigrateUp(), "second run is a no-op")
	v, _, err = db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)

	require.NoError(t, db.MigrateDown())
	_, err = db.Exec(`SELECT 1 FROM optimizer_runs`)
	assert.Error(t, err, "table dropped")
}

func TestRunLifecycle(t *testing.T) {
	s := NewRunStore(openTestDB(t))
	started := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.RecordStart("run-1", optimizer.DefaultConfig(), started))

	r, err := s.GetRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, "running", r.Status)
	assert.True(t, r.StartedAt.Equal(started))
	assert.Nil(t, r.CompletedAt)
	assert.Nil(t, r.Fitness)
	var cfg optimizer.Config
	require.NoError(t, json.Unmarshal(r.Config, &cfg))
	assert.Equal(t, optimizer.DefaultConfig(), cfg)

	res := &optimizer.Result{
		RunID:       "run-1",
		Status:      optimizer.StatusConverged,
		BestLines:   []plan.Line{{ID: "a", EndPoint: plan.Point{X: 10, Heading: plan.Tangential{}}}},
		Fitness:     2.5,
		Generations: 7,
		Log:         []optimizer.GenerationLog{{Generation: 0, BestFitness: 3}, {Generation: 1, BestFitness: 2.5}},
	}
	completed := started.Add(3 * time.Second)
	require.NoError(t, s.RecordResult("run-1", res, completed, nil))

	r, err = s.GetRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, "converged", r.Status)
	require.NotNil(t, r.Fitness)
	assert.Equal(t, 2.5, *r.Fitness)
	assert.Equal(t, 7, r.Generations)
	require.NotNil(t, r.CompletedAt)
	assert.True(t, r.CompletedAt.Equal(completed))

	var stored optimizer.Result
	require.NoError(t, json.Unmarshal(r.Result, &stored))
	assert.Equal(t, "a", stored.BestLines[0].ID)
	assert.Empty(t, stored.Log, "log is stored apart")

	var log []optimizer.GenerationLog
	require.NoError(t, json.Unmarshal(r.Log, &log))
	assert.Len(t, log, 2)
}

func TestRecordResultError(t *testing.T) {
	s := NewRunStore(openTestDB(t))
	now := time.Now()
	require.NoError(t, s.RecordStart("bad", optimizer.DefaultConfig(), now))
	require.NoError(t, s.RecordResult("bad", nil, now, errors.New("unknown line")))

	r, err := s.GetRun("bad")
	require.NoError(t, err)
	assert.Equal(t, "error", r.Status)
	assert.Equal(t, "unknown line", r.Error)
	assert.Nil(t, r.Result)
}

func TestRunNotFound(t *testing.T) {
	s := NewRunStore(openTestDB(t))
	_, err := s.GetRun("missing")
	assert.ErrorIs(t, err, ErrRunNotFound)

	err = s.UpdateRunResult("missing", "exhausted", nil, 0, nil, nil, time.Now(), "")
	assert.ErrorIs(t, err, ErrRunNotFound)

	assert.Error(t, s.InsertRun(RunRecord{}), "empty id")
}

func TestListRunsNewestFirst(t *testing.T) {
	s := NewRunStore(openTestDB(t))
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		require.NoError(t, s.InsertRun(RunRecord{RunID: id, Status: "running", StartedAt: base.Add(time.Duration(i) * time.Minute)}))
	}
	require.NoError(t, s.RecordResult("mid", &optimizer.Result{Status: optimizer.StatusExhausted}, base.Add(time.Hour), nil))

	runs, err := s.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, []string{"new", "mid", "old"}, []string{runs[0].RunID, runs[1].RunID, runs[2].RunID})
	assert.Equal(t, "exhausted", runs[1].Status)
	assert.Nil(t, runs[1].Result, "listing omits bodies")
	assert.JSONEq(t, `{}`, string(runs[0].Config))

	runs, err = s.ListRuns(2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestManagerPersistsThroughStore(t *testing.T) {
	s := NewRunStore(openTestDB(t))
	m := optimizer.NewManager(s, nil)

	cfg := optimizer.DefaultConfig()
	cfg.Iterations = 2
	cfg.PopulationSize = 4
	cfg.EliteCount = 1
	cfg.Seed = 1
	problem := optimizer.Problem{
		Lines:    []plan.Line{{ID: "a", EndPoint: plan.Point{X: 30, Heading: plan.Tangential{}}}},
		Settings: plan.DefaultSettings(),
	}
	id, err := m.Start(t.Context(), problem, cfg)
	require.NoError(t, err)
	require.NoError(t, m.Wait(t.Context()))

	require.Eventually(t, func() bool {
		r, err := s.GetRun(id)
		return err == nil && r.CompletedAt != nil
	}, 10*time.Second, 10*time.Millisecond)
	r, err := s.GetRun(id)
	require.NoError(t, err)
	assert.Equal(t, "exhausted", r.Status)
}

func TestAttachAdminRoutes(t *testing.T) {
	s := NewRunStore(openTestDB(t))
	require.NoError(t, s.InsertRun(RunRecord{RunID: "r", Status: "running", StartedAt: time.Now()}))

	mux := http.NewServeMux()
	require.NoError(t, s.AttachAdminRoutes(mux))

	req := httptest.NewRequest(http.MethodGet, "/debug/runs?limit=5", nil)
	req.RemoteAddr = "127.0.0.1:40000"
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var runs []RunRecord
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "r", runs[0].RunID)
}
