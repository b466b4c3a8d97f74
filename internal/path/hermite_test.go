package path

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DiffDrive/internal/model"
)

var genCfg = GeneratorConfig{MaxVelocity: 2, MaxAcceleration: 1, Spacing: 0.05}

func TestHermiteStraightLine(t *testing.T) {
	states, err := HermiteGenerator{}.Generate(model.Pose{}, model.Pose{X: 2}, nil, genCfg)
	require.NoError(t, err)

	require.Greater(t, len(states), 30)
	assert.Equal(t, model.Pose{}, states[0].Pose)
	assert.Equal(t, model.Pose{X: 2}, states[len(states)-1].Pose)
	for i, s := range states {
		assert.InDelta(t, 0, s.Curvature, 1e-9, "state %d", i)
		assert.InDelta(t, 0, s.Pose.Y, 1e-12)
		assert.InDelta(t, 0, s.Pose.Heading, 1e-9)
		if i > 0 {
			gap := s.Pose.X - states[i-1].Pose.X
			assert.Positive(t, gap)
			assert.Less(t, gap, 0.1)
		}
	}
	assert.InDelta(t, 2, states[len(states)-1].Distance, 1e-6)
}

func TestHermiteLeftTurnHasPositiveCurvature(t *testing.T) {
	states, err := HermiteGenerator{}.Generate(model.Pose{}, model.Pose{X: 1, Y: 1, Heading: 90}, nil, genCfg)
	require.NoError(t, err)

	mid := states[len(states)/2]
	assert.Positive(t, mid.Curvature)
	assert.InDelta(t, 45, mid.Pose.Heading, 15)
	assert.Equal(t, 90.0, states[len(states)-1].Pose.Heading)
}

func TestHermiteInteriorWaypoints(t *testing.T) {
	interior := []model.Point{{X: 1, Y: 0.5}}
	states, err := HermiteGenerator{}.Generate(model.Pose{}, model.Pose{X: 2}, interior, genCfg)
	require.NoError(t, err)

	closest := math.Inf(1)
	for _, s := range states {
		closest = math.Min(closest, math.Hypot(s.Pose.X-1, s.Pose.Y-0.5))
	}
	assert.Less(t, closest, genCfg.Spacing)
}

func TestHermiteReversed(t *testing.T) {
	cfg := genCfg
	cfg.Reversed = true
	states, err := HermiteGenerator{}.Generate(model.Pose{}, model.Pose{X: -1.5}, nil, cfg)
	require.NoError(t, err)

	for i, s := range states {
		// vehicle heading stays forward while it travels towards -x
		assert.InDelta(t, 0, s.Pose.Heading, 1e-9, "state %d", i)
		assert.InDelta(t, 0, s.Curvature, 1e-9)
		if i > 0 {
			assert.Less(t, s.Pose.X, states[i-1].Pose.X)
		}
	}
}

func TestHermiteZeroLength(t *testing.T) {
	p := model.Pose{X: 1, Y: 2, Heading: 30}
	states, err := HermiteGenerator{}.Generate(p, p, nil, genCfg)
	require.NoError(t, err)
	require.Len(t, states, 2)
	assert.Equal(t, p, states[0].Pose)
	assert.Equal(t, p, states[1].Pose)
}

func TestHermiteRejectsBadConfig(t *testing.T) {
	_, err := HermiteGenerator{}.Generate(model.Pose{}, model.Pose{X: 1}, nil, GeneratorConfig{MaxVelocity: 1, MaxAcceleration: 1})
	assert.Error(t, err)
	_, err = HermiteGenerator{}.Generate(model.Pose{}, model.Pose{X: 1}, nil, GeneratorConfig{Spacing: 0.05})
	assert.Error(t, err)
}
