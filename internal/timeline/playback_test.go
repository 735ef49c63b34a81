package timeline

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/pathing/internal/plan"
)

func TestStateAt(t *testing.T) {
	lines := []plan.Line{straight("a", 10, 0)}
	seq := plan.Sequence{
		plan.PathItem{LineID: "a"},
		plan.RotateItem{ID: "r", Degrees: 90},
	}
	pred, err := ComputeTimePrediction(origin(), lines, testSettings(), seq)
	require.NoError(t, err)
	travel := pred.Timeline[0]
	rot := pred.Timeline[1]

	st, err := pred.StateAt(-1)
	require.NoError(t, err)
	assert.Zero(t, st.Position.X)
	assert.Zero(t, st.Velocity)

	// Symmetric triangle: half the distance at half the time.
	st, err = pred.StateAt(travel.Duration / 2)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, st.Position.X, 1e-6)
	assert.InDelta(t, 0.0, st.Heading, 1e-9)
	assert.Greater(t, st.Velocity, 7.0)

	st, err = pred.StateAt(rot.StartTime + rot.Duration/2)
	require.NoError(t, err)
	assert.Equal(t, 1, st.EventIndex)
	assert.InDelta(t, 10.0, st.Position.X, 1e-9)
	assert.InDelta(t, 45.0, st.Heading, 1e-6)

	st, err = pred.StateAt(pred.TotalTime + 5)
	require.NoError(t, err)
	assert.Equal(t, pred.TotalTime, st.Time)
	assert.InDelta(t, 90.0, st.Heading, 1e-9)
}

func TestStateAtDecodedPrediction(t *testing.T) {
	lines := []plan.Line{straight("a", 10, 0)}
	pred, err := ComputeTimePrediction(origin(), lines, testSettings(), nil)
	require.NoError(t, err)

	data, err := json.Marshal(pred)
	require.NoError(t, err)
	var decoded TimePrediction
	require.NoError(t, json.Unmarshal(data, &decoded))

	_, err = decoded.StateAt(1)
	assert.ErrorIs(t, err, ErrNoGeometry)

	empty, err := TimePrediction{}.StateAt(3)
	require.NoError(t, err)
	assert.Zero(t, empty)
}
