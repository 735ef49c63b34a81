package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/banshee-data/pathing/internal/config"
	"github.com/banshee-data/pathing/internal/monitoring"
	"github.com/banshee-data/pathing/internal/optimizer"
	"github.com/banshee-data/pathing/internal/plan"
	"github.com/banshee-data/pathing/internal/security"
	"github.com/banshee-data/pathing/internal/testutil"
	"github.com/banshee-data/pathing/internal/timeline"
	"github.com/banshee-data/pathing/internal/timeutil"
)

func init() {
	monitoring.SetLogger(nil)
}

func writeProject(t *testing.T, p plan.Project) string {
	t.Helper()
	data, err := json.Marshal(p)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "project.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func testConfig(t *testing.T) *config.PathingConfig {
	t.Helper()
	cfg := config.EmptyPathingConfig()
	db := filepath.Join(t.TempDir(), "pathing.db")
	cfg.Database = &db
	return cfg
}

func TestLoadConfig(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, plan.DefaultSettings(), cfg.Settings())

	_, err = loadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestReadProject(t *testing.T) {
	cfg := config.EmptyPathingConfig()
	path := writeProject(t, testutil.StraightProject())

	p, err := readProject(path, nil, cfg)
	require.NoError(t, err)
	require.Len(t, p.Lines, 1)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	p, err = readProject("-", bytes.NewReader(data), cfg)
	require.NoError(t, err)
	assert.Equal(t, 10.0, p.Settings.MaxVelocity)

	_, err = readProject("", nil, cfg)
	assert.ErrorContains(t, err, "--project is required")

	bad := testutil.StraightProject()
	bad.Sequence = plan.Sequence{plan.PathItem{LineID: "nope"}}
	_, err = readProject(writeProject(t, bad), nil, cfg)
	assert.ErrorContains(t, err, "invalid project")
}

func TestReadProjectFallsBackToConfigSettings(t *testing.T) {
	margin := 4.0
	cfg := config.EmptyPathingConfig()
	cfg.SafetyMargin = &margin

	doc := `{"startPoint": {"x": 0, "y": 0}, "lines": [{"id": "a", "endPoint": {"x": 10, "y": 0}}]}`
	p, err := readProject("-", strings.NewReader(doc), cfg)
	require.NoError(t, err)
	assert.Equal(t, 4.0, p.Settings.SafetyMargin)
}

func TestHandlePredict(t *testing.T) {
	path := writeProject(t, testutil.StraightProject())

	var out bytes.Buffer
	require.NoError(t, handlePredict([]string{"-project", path}, &out))
	assert.Contains(t, out.String(), "total: 2.828s")
	assert.Contains(t, out.String(), "travel")

	out.Reset()
	plot := filepath.Join(t.TempDir(), "velocity.png")
	chart := filepath.Join(t.TempDir(), "timeline.html")
	require.NoError(t, handlePredict([]string{"-project", path, "-json", "-plot", plot, "-chart", chart}, &out))
	var pred timeline.TimePrediction
	require.NoError(t, json.Unmarshal(out.Bytes(), &pred))
	assert.InDelta(t, 2.828, pred.TotalTime, 1e-3)
	assert.FileExists(t, plot)
	assert.FileExists(t, chart)
}

func TestOutputPathsOutsideAllowedDirs(t *testing.T) {
	path := writeProject(t, testutil.StraightProject())
	var out bytes.Buffer
	err := handlePredict([]string{"-project", path, "-plot", "/etc/velocity.png"}, &out)
	assert.ErrorIs(t, err, security.ErrOutsideAllowedDirs)
	err = handleOptimize([]string{"-project", path, "-out", "/etc/best.json"}, &out)
	assert.ErrorIs(t, err, security.ErrOutsideAllowedDirs)
	assert.Empty(t, out.String())
}

func TestHandleCollide(t *testing.T) {
	path := writeProject(t, testutil.BlockedProject())

	var out bytes.Buffer
	require.NoError(t, handleCollide([]string{"-project", path}, &out))
	var got struct {
		Count  int     `json:"count"`
		Extent float64 `json:"extent"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, 1, got.Count)
	assert.Greater(t, got.Extent, 0.0)
}

func TestHandleOptimize(t *testing.T) {
	path := writeProject(t, testutil.BlockedProject())
	dir := t.TempDir()
	resultPath := filepath.Join(dir, "best.json")
	plot := filepath.Join(dir, "fitness.png")

	var out bytes.Buffer
	args := []string{"-project", path, "-iterations", "3", "-seed", "7", "-quiet", "-out", resultPath, "-plot", plot}
	require.NoError(t, handleOptimize(args, &out))
	assert.Contains(t, out.String(), "after 3 generations")
	assert.FileExists(t, plot)

	data, err := os.ReadFile(resultPath)
	require.NoError(t, err)
	var res optimizer.Result
	require.NoError(t, json.Unmarshal(data, &res))
	assert.Equal(t, optimizer.StatusExhausted, res.Status)
	assert.Len(t, res.Log, 4)
}

func TestRunMigrate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pathing.db")
	var out bytes.Buffer

	require.NoError(t, runMigrate(path, "version", &out))
	assert.Contains(t, out.String(), "schema version 0")

	out.Reset()
	require.NoError(t, runMigrate(path, "up", &out))
	assert.Contains(t, out.String(), "schema version 1 (dirty=false)")

	out.Reset()
	require.NoError(t, runMigrate(path, "down", &out))
	assert.Contains(t, out.String(), "schema version 0")

	assert.ErrorContains(t, runMigrate(path, "sideways", &out), "unknown migrate action")
}

func listen(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	return ln
}

func TestServiceRun(t *testing.T) {
	svc, err := newService(testConfig(t), timeutil.RealClock{})
	require.NoError(t, err)
	defer svc.Close()

	ln, grpcLn := listen(t), listen(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx, ln, grpcLn) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/api/config")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	conn, err := grpc.NewClient(grpcLn.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()
	hc := healthpb.NewHealthClient(conn)
	for _, name := range []string{"", healthService} {
		hr, err := hc.Check(ctx, &healthpb.HealthCheckRequest{Service: name})
		require.NoError(t, err)
		assert.Equal(t, healthpb.HealthCheckResponse_SERVING, hr.GetStatus())
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(30 * time.Second):
		t.Fatal("service did not shut down")
	}
}

func TestRemoteCommands(t *testing.T) {
	svc, err := newService(testConfig(t), timeutil.RealClock{})
	require.NoError(t, err)
	defer svc.Close()
	ts := httptest.NewServer(svc.handler)
	defer ts.Close()

	var out bytes.Buffer
	require.NoError(t, handleRuns([]string{"-server", ts.URL}, &out))
	assert.Equal(t, "no runs\n", out.String())

	out.Reset()
	require.NoError(t, handleStatus([]string{"-server", ts.URL}, &out))
	var st optimizer.State
	require.NoError(t, json.Unmarshal(out.Bytes(), &st))
	assert.Equal(t, optimizer.StatusIdle, st.Status)

	cfg := optimizer.DefaultConfig()
	cfg.Iterations = 2
	cfg.Seed = 3
	runID, err := svc.manager.Start(context.Background(), optimizer.ProblemFromProject(testutil.BlockedProject()), cfg)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	require.NoError(t, svc.manager.Wait(ctx))

	out.Reset()
	require.NoError(t, handleRuns([]string{"-server", ts.URL, "-limit", "5"}, &out))
	assert.Contains(t, out.String(), runID)
	assert.Contains(t, out.String(), "exhausted")

	out.Reset()
	require.NoError(t, handleRuns([]string{"-server", ts.URL, "-id", runID}, &out))
	assert.Contains(t, out.String(), `"run_id": "`+runID+`"`)

	out.Reset()
	require.NoError(t, handleStop([]string{"-server", ts.URL}, &out))
	assert.Equal(t, "stop requested\n", out.String())

	assert.Error(t, handleRuns([]string{"-server", ts.URL, "-id", "missing"}, &out))
}

type logRecorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *logRecorder) logf(format string, v ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, format)
}

func (r *logRecorder) contains(s string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.lines {
		if strings.Contains(l, s) {
			return true
		}
	}
	return false
}

func TestLogStatus(t *testing.T) {
	rec := &logRecorder{}
	monitoring.SetLogger(rec.logf)
	defer monitoring.SetLogger(nil)

	clock := timeutil.NewMockClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	svc, err := newService(testConfig(t), clock)
	require.NoError(t, err)
	defer svc.Close()

	cfg := optimizer.DefaultConfig()
	cfg.Iterations = 1_000_000
	_, err = svc.manager.Start(context.Background(), optimizer.ProblemFromProject(testutil.BlockedProject()), cfg)
	require.NoError(t, err)
	defer func() {
		svc.manager.Stop()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = svc.manager.Wait(ctx)
	}()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.logStatus(ctx, time.Minute)
	}()

	require.Eventually(t, func() bool {
		clock.Advance(time.Minute)
		return rec.contains("[serve] run %s")
	}, 10*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}
