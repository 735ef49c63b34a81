package optimizer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/pathing/internal/collision"
	"github.com/banshee-data/pathing/internal/monitoring"
	"github.com/banshee-data/pathing/internal/plan"
)

func init() {
	monitoring.SetLogger(nil)
}

func testSettings() plan.Settings {
	return plan.Settings{
		MaxVelocity:     40,
		MaxAcceleration: 30,
		MaxDeceleration: 30,
		RobotLength:     18,
		RobotWidth:      18,
	}
}

func box(id string, cx, cy, half float64) plan.Shape {
	return plan.Shape{
		ID:      id,
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

// blockedProblem is a straight quadratic through a post that a raised
// control point can clear.
func blockedProblem() Problem {
	return Problem{
		Start: plan.Point{Heading: plan.Constant{}},
		Lines: []plan.Line{{
			ID:            "a",
			EndPoint:      plan.Point{X: 120, Y: 0, Heading: plan.Constant{}},
			ControlPoints: []plan.ControlPoint{{X: 60, Y: 0}},
		}},
		Shapes:   []plan.Shape{box("post", 60, 0, 4)},
		Settings: testSettings(),
	}
}

func clearingConfig() Config {
	cfg := DefaultConfig()
	cfg.Iterations = 300
	cfg.MutationRate = 1
	cfg.MutationStrength = 10
	cfg.MaxStrengthFactor = 5
	cfg.AddControlPointRate = 0
	cfg.RemoveControlPointRate = 0
	cfg.Seed = 42
	return cfg
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	testCases := []struct {
		name string
		fn   func(*Config)
	}{
		{"negative iterations", func(c *Config) { c.Iterations = -1 }},
		{"population too small", func(c *Config) { c.PopulationSize = 1 }},
		{"no elites", func(c *Config) { c.EliteCount = 0 }},
		{"all elites", func(c *Config) { c.EliteCount = c.PopulationSize }},
		{"rate above one", func(c *Config) { c.MutationRate = 1.5 }},
		{"zero strength", func(c *Config) { c.MutationStrength = 0 }},
		{"negative penalty", func(c *Config) { c.CollisionPenalty = -1 }},
		{"shrinking growth", func(c *Config) { c.StrengthGrowth = 0.9 }},
		{"factor below one", func(c *Config) { c.MaxStrengthFactor = 0.5 }},
		{"add rate negative", func(c *Config) { c.AddControlPointRate = -0.1 }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.fn(&cfg)
			assert.True(t, errors.Is(cfg.Validate(), ErrInvalidConfig))
		})
	}
}

func TestRunClearsSolvableObstacle(t *testing.T) {
	problem := blockedProblem()
	original := plan.CloneLines(problem.Lines)

	res, err := Run(context.Background(), problem, clearingConfig(), nil, nil)
	require.NoError(t, err)

	assert.Empty(t, res.Collisions, "best path should be collision free")
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, StatusExhausted, res.Status)
	assert.InDelta(t, res.Prediction.TotalTime, res.Fitness, 1e-9)
	require.Len(t, res.BestLines, 1)
	assert.Equal(t, plan.Point{X: 120, Y: 0, Heading: plan.Constant{}}, res.BestLines[0].EndPoint)

	if diff := cmp.Diff(original, problem.Lines); diff != "" {
		t.Errorf("caller lines mutated (-want +got):\n%s", diff)
	}
}

func TestRunConverges(t *testing.T) {
	cfg := clearingConfig()
	cfg.ConvergenceFitness = 100
	res, err := Run(context.Background(), blockedProblem(), cfg, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusConverged, res.Status)
	assert.Less(t, res.Generations, cfg.Iterations)
	assert.Empty(t, res.Collisions)
}

func TestRunNeverMutatesLockedLines(t *testing.T) {
	problem := blockedProblem()
	problem.Lines = append(problem.Lines, plan.Line{
		ID:            "b",
		EndPoint:      plan.Point{X: 120, Y: 80, Heading: plan.Tangential{}},
		ControlPoints: []plan.ControlPoint{{X: 150, Y: 40}, {X: 100, Y: 60}},
		Locked:        true,
	}, plan.Line{
		// Not in the sequence.
		ID:            "c",
		EndPoint:      plan.Point{X: 0, Y: 80},
		ControlPoints: []plan.ControlPoint{{X: 20, Y: 20}},
	})
	problem.Sequence = plan.Sequence{plan.PathItem{LineID: "a"}, plan.PathItem{LineID: "b"}}

	cfg := clearingConfig()
	cfg.Iterations = 60
	cfg.AddControlPointRate = 0.5
	cfg.RemoveControlPointRate = 0.5
	res, err := Run(context.Background(), problem, cfg, nil, nil)
	require.NoError(t, err)

	require.Len(t, res.BestLines, 3)
	if diff := cmp.Diff(problem.Lines[1], res.BestLines[1]); diff != "" {
		t.Errorf("locked line changed (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(problem.Lines[2], res.BestLines[2]); diff != "" {
		t.Errorf("untravelled line changed (-want +got):\n%s", diff)
	}
}

func TestRunUnsolvableIsBestEffort(t *testing.T) {
	problem := blockedProblem()
	// Covers the goal point itself.
	problem.Shapes = []plan.Shape{box("goal", 120, 0, 6)}
	cfg := clearingConfig()
	cfg.Iterations = 20

	res, err := Run(context.Background(), problem, cfg, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusExhausted, res.Status)
	assert.NotEmpty(t, res.Collisions)
	assert.Len(t, res.Log, cfg.Iterations+1)
}

func TestRunCancellation(t *testing.T) {
	t.Run("token", func(t *testing.T) {
		token := &CancelToken{}
		token.Cancel()
		res, err := Run(context.Background(), blockedProblem(), clearingConfig(), nil, token)
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, res.Status)
		assert.Equal(t, 0, res.Generations)
		assert.NotEmpty(t, res.BestLines)
	})

	t.Run("context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		res, err := Run(ctx, blockedProblem(), clearingConfig(), nil, nil)
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, res.Status)
	})
}

func TestRunDeterministicWithSeed(t *testing.T) {
	cfg := clearingConfig()
	cfg.Iterations = 15
	a, err := Run(context.Background(), blockedProblem(), cfg, nil, nil)
	require.NoError(t, err)
	b, err := Run(context.Background(), blockedProblem(), cfg, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, a.Fitness, b.Fitness)
	assert.Equal(t, a.BestLines, b.BestLines)
}

func TestRunReportsProgress(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []Progress
	)
	cfg := clearingConfig()
	cfg.Iterations = 5
	res, err := Run(context.Background(), blockedProblem(), cfg, func(p Progress) {
		mu.Lock()
		seen = append(seen, p)
		mu.Unlock()
	}, nil)
	require.NoError(t, err)

	// Delivery continues after Run returns.
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == len(res.Log)
	}, 5*time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 0, seen[0].Generation)
	for i := 1; i < len(seen); i++ {
		assert.Greater(t, seen[i].Generation, seen[i-1].Generation)
	}
}

func TestRunErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PopulationSize = 0
	_, err := Run(context.Background(), blockedProblem(), cfg, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	problem := blockedProblem()
	problem.Sequence = plan.Sequence{plan.PathItem{LineID: "nope"}}
	_, err = Run(context.Background(), problem, DefaultConfig(), nil, nil)
	assert.Error(t, err)
}

func TestPumpDropsWhenFull(t *testing.T) {
	release := make(chan struct{})
	p := newPump(func(Progress) { <-release })

	sent := 0
	for i := 0; i < progressBuffer*4; i++ {
		if p.send(Progress{Generation: i}) {
			sent++
		}
	}
	assert.Less(t, sent, progressBuffer*4)
	assert.GreaterOrEqual(t, sent, progressBuffer)
	close(release)
	p.close()
	<-p.done

	var nilPump *pump
	assert.False(t, nilPump.send(Progress{}))
	nilPump.close()
}

func TestPumpCloseDoesNotWaitForCallback(t *testing.T) {
	release := make(chan struct{})
	p := newPump(func(Progress) { <-release })
	require.True(t, p.send(Progress{Generation: 1}))
	p.close()

	select {
	case <-p.done:
		t.Fatal("callback finished before release")
	default:
	}
	close(release)
	<-p.done
}

func TestRunNotBlockedBySlowProgress(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	cfg := clearingConfig()
	cfg.Iterations = 5
	done := make(chan error, 1)
	go func() {
		_, err := Run(context.Background(), blockedProblem(), cfg, func(Progress) { <-release }, nil)
		done <- err
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run waited on a stalled progress callback")
	}
}

func TestBetterOrdersCleanFirst(t *testing.T) {
	clean := &candidate{fitness: 50, birth: 3}
	dirty := &candidate{fitness: 10, birth: 0, collisions: make([]collision.CollisionRange, 1)}
	assert.True(t, better(clean, dirty))
	assert.False(t, better(dirty, clean))

	a := &candidate{fitness: 5, birth: 1}
	b := &candidate{fitness: 5, birth: 2}
	assert.True(t, better(a, b))
}
