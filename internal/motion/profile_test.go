package motion

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimitsValidate(t *testing.T) {
	testCases := []struct {
		name    string
		limits  Limits
		wantErr bool
	}{
		{"valid", Limits{MaxVelocity: 30, Acceleration: 30, Deceleration: 30}, false},
		{"zero velocity", Limits{MaxVelocity: 0, Acceleration: 30, Deceleration: 30}, true},
		{"negative accel", Limits{MaxVelocity: 30, Acceleration: -1, Deceleration: 30}, true},
		{"zero decel", Limits{MaxVelocity: 30, Acceleration: 30, Deceleration: 0}, true},
		{"nan", Limits{MaxVelocity: math.NaN(), Acceleration: 30, Deceleration: 30}, true},
		{"inf", Limits{MaxVelocity: 30, Acceleration: math.Inf(1), Deceleration: 30}, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.limits.Validate()
			if tc.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidLimits), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestComputeRejectsBadInput(t *testing.T) {
	_, err := Compute(10, Limits{MaxVelocity: 10, Acceleration: 0, Deceleration: 5})
	assert.ErrorIs(t, err, ErrInvalidLimits)

	_, err = Compute(-1, Limits{MaxVelocity: 10, Acceleration: 5, Deceleration: 5})
	assert.ErrorIs(t, err, ErrInvalidDistance)
}

func TestComputeZeroDistance(t *testing.T) {
	p, err := Compute(0, Limits{MaxVelocity: 10, Acceleration: 5, Deceleration: 5})
	require.NoError(t, err)
	assert.Equal(t, ShapeNone, p.Shape)
	assert.Zero(t, p.Duration)
	assert.Nil(t, p.Velocities)
	assert.Zero(t, p.TimeAtDistance(0))
}

func TestComputeTriangular(t *testing.T) {
	// 10 in at v=10, a=b=5 cannot reach cruise speed.
	p, err := Compute(10, Limits{MaxVelocity: 10, Acceleration: 5, Deceleration: 5})
	require.NoError(t, err)

	assert.Equal(t, ShapeTriangular, p.Shape)
	assert.InDelta(t, math.Sqrt(50), p.PeakVelocity, 1e-9)
	assert.InDelta(t, 2*math.Sqrt(2), p.Duration, 1e-9)
	assert.Zero(t, p.CruiseTime)

	require.NotEmpty(t, p.Velocities)
	assert.Zero(t, p.Velocities[0])
	assert.Zero(t, p.Velocities[len(p.Velocities)-1])
	// 2.828 s at 0.05 s spacing: samples 0..56 plus the end sample.
	assert.Len(t, p.Velocities, 58)
	for _, v := range p.Velocities {
		assert.LessOrEqual(t, v, p.PeakVelocity+1e-9)
	}
}

func TestComputeTrapezoidal(t *testing.T) {
	p, err := Compute(100, Limits{MaxVelocity: 10, Acceleration: 5, Deceleration: 10})
	require.NoError(t, err)

	assert.Equal(t, ShapeTrapezoidal, p.Shape)
	assert.InDelta(t, 2.0, p.AccelTime, 1e-12)
	assert.InDelta(t, 1.0, p.DecelTime, 1e-12)
	// 10 in accelerating, 5 in braking, 85 in cruising at 10 in/s.
	assert.InDelta(t, 8.5, p.CruiseTime, 1e-12)
	assert.InDelta(t, 11.5, p.Duration, 1e-12)
	assert.Equal(t, 10.0, p.VelocityAt(5))
}

func TestDurationMonotoneAndContinuous(t *testing.T) {
	limits := Limits{MaxVelocity: 30, Acceleration: 20, Deceleration: 40}
	boundary := 30*30/(2*20.0) + 30*30/(2*40.0)

	prev := -1.0
	for d := 0.0; d <= 3*boundary; d += boundary / 97 {
		p, err := Compute(d, limits)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, p.Duration, prev, "duration decreased at d=%v", d)
		prev = p.Duration
	}

	below, err := Compute(boundary*(1-1e-9), limits)
	require.NoError(t, err)
	at, err := Compute(boundary, limits)
	require.NoError(t, err)
	above, err := Compute(boundary*(1+1e-9), limits)
	require.NoError(t, err)

	assert.Equal(t, ShapeTriangular, below.Shape)
	assert.Equal(t, ShapeTrapezoidal, at.Shape)
	assert.InDelta(t, at.Duration, below.Duration, 1e-6)
	assert.InDelta(t, at.Duration, above.Duration, 1e-6)
	assert.InDelta(t, at.PeakVelocity, below.PeakVelocity, 1e-6)
}

func TestRotationProfile(t *testing.T) {
	// A quarter turn for an 18 in wide robot at 5 in/s² linear acceleration.
	alpha := 5 / 9.0
	p, err := Compute(math.Pi/2, Limits{MaxVelocity: math.Pi, Acceleration: alpha, Deceleration: alpha})
	require.NoError(t, err)
	assert.Equal(t, ShapeTriangular, p.Shape)
	assert.InDelta(t, 2*math.Sqrt((math.Pi/2)/alpha), p.Duration, 1e-9)
	assert.InDelta(t, 3.363, p.Duration, 1e-3)
}

func TestDistanceAndTimeInverse(t *testing.T) {
	limits := Limits{MaxVelocity: 12, Acceleration: 8, Deceleration: 16}
	for _, d := range []float64{3, 40} {
		p, err := Compute(d, limits)
		require.NoError(t, err)

		assert.Zero(t, p.DistanceAt(0))
		assert.Equal(t, d, p.DistanceAt(p.Duration))
		for i := 1; i < 20; i++ {
			s := d * float64(i) / 20
			tt := p.TimeAtDistance(s)
			assert.InDelta(t, s, p.DistanceAt(tt), 1e-9, "d=%v s=%v", d, s)
		}
	}
}
