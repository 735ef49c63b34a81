package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/pathing/internal/optimizer"
	"github.com/banshee-data/pathing/internal/plan"
	"github.com/banshee-data/pathing/internal/timeline"
)

func samplePrediction(t *testing.T) timeline.TimePrediction {
	t.Helper()
	settings := plan.Settings{MaxVelocity: 10, MaxAcceleration: 5, MaxDeceleration: 5, RobotLength: 18, RobotWidth: 18}
	lines := []plan.Line{{ID: "a", EndPoint: plan.Point{X: 10, Heading: plan.Tangential{}}}}
	seq := plan.Sequence{
		plan.PathItem{LineID: "a"},
		plan.WaitItem{ID: "w", Name: "settle", DurationMs: 1000},
	}
	pred, err := timeline.ComputeTimePrediction(plan.Point{Heading: plan.Tangential{}}, lines, settings, seq)
	require.NoError(t, err)
	return pred
}

func TestVelocitySeries(t *testing.T) {
	pred := samplePrediction(t)
	pts := VelocitySeries(pred)
	require.NotEmpty(t, pts)

	assert.Equal(t, 0.0, pts[0].X)
	assert.InDelta(t, 0, pts[0].Y, 1e-9)
	last := pts[len(pts)-1]
	assert.InDelta(t, pred.TotalTime, last.X, 1e-9)
	assert.Equal(t, 0.0, last.Y)
	for i := 1; i < len(pts); i++ {
		assert.GreaterOrEqual(t, pts[i].X, pts[i-1].X, "time never goes backwards")
	}
	assert.Empty(t, VelocitySeries(timeline.TimePrediction{}))
}

func assertPNG(t *testing.T, path string) {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, []byte("\x89PNG")), "not a PNG")
}

func TestWriteVelocityPlot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "velocity.png")
	require.NoError(t, WriteVelocityPlot(samplePrediction(t), path))
	assertPNG(t, path)

	assert.ErrorIs(t, WriteVelocityPlot(timeline.TimePrediction{}, path), ErrNoData)
}

func TestWriteFitnessPlot(t *testing.T) {
	log := []optimizer.GenerationLog{
		{Generation: 0, BestFitness: 1030, MeanFitness: 2500},
		{Generation: 1, BestFitness: 12, MeanFitness: 800},
		{Generation: 2, BestFitness: 9.5, MeanFitness: 40},
	}
	path := filepath.Join(t.TempDir(), "fitness.png")
	require.NoError(t, WriteFitnessPlot(log, path))
	assertPNG(t, path)

	assert.ErrorIs(t, WriteFitnessPlot(nil, path), ErrNoData)
}

func TestRenderTimelineChart(t *testing.T) {
	pred := samplePrediction(t)

	var buf bytes.Buffer
	require.NoError(t, RenderTimelineChart(&buf, pred, nil))
	html := buf.String()
	assert.Contains(t, html, "Path timeline")
	assert.Contains(t, html, "Velocity")
	assert.Contains(t, html, "0 path a")
	assert.Contains(t, html, "1 wait settle")
	assert.NotContains(t, html, "Fitness")

	buf.Reset()
	require.NoError(t, RenderTimelineChart(&buf, pred, []optimizer.GenerationLog{{Generation: 0, BestFitness: 3}}))
	assert.True(t, strings.Contains(buf.String(), "Fitness"))

	assert.ErrorIs(t, RenderTimelineChart(&buf, timeline.TimePrediction{}, nil), ErrNoData)
}
