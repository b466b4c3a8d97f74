package util

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompassify(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{180, 180},
		{-180, 180},
		{181, -179},
		{-181, 179},
		{360, 0},
		{725, 5},
		{-540, 180},
		{90.5, 90.5},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, Compassify(tt.in), 1e-9, "Compassify(%v)", tt.in)
	}
}

func TestWrapRadians(t *testing.T) {
	assert.InDelta(t, math.Pi, WrapRadians(-math.Pi), 1e-12)
	assert.InDelta(t, -math.Pi/2, WrapRadians(3*math.Pi/2), 1e-12)
	assert.InDelta(t, 0.25, WrapRadians(0.25+4*math.Pi), 1e-9)
}

func TestDeadbandAndSign(t *testing.T) {
	assert.Equal(t, 0.0, Deadband(0.049, 0.05))
	assert.Equal(t, 0.0, Deadband(-0.049, 0.05))
	assert.Equal(t, 0.05, Deadband(0.05, 0.05))
	assert.Equal(t, -1.0, Sign(-3))
	assert.Equal(t, 0.0, Sign(0))
	assert.Equal(t, 1.0, Sign(1e-12))
	assert.Equal(t, 1.0, Clamp(3, -1, 1))
	assert.Equal(t, -1.0, Clamp(-3, -1, 1))
}

func TestFinite(t *testing.T) {
	assert.True(t, Finite(0))
	assert.True(t, Finite(-1e300))
	assert.False(t, Finite(math.NaN()))
	assert.False(t, Finite(math.Inf(1)))
	assert.False(t, Finite(math.Inf(-1)))
}
