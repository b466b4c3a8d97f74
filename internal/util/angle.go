package util

import "math"

// Compassify wraps an angle in degrees into (-180, 180].
func Compassify(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg > 180 {
		deg -= 360
	} else if deg <= -180 {
		deg += 360
	}
	return deg
}

// WrapRadians wraps an angle in radians into (-pi, pi].
func WrapRadians(rad float64) float64 {
	rad = math.Mod(rad, 2*math.Pi)
	if rad > math.Pi {
		rad -= 2 * math.Pi
	} else if rad <= -math.Pi {
		rad += 2 * math.Pi
	}
	return rad
}

// Deadband returns 0 when |v| < tolerance, v otherwise.
func Deadband(v, tolerance float64) float64 {
	if math.Abs(v) < tolerance {
		return 0
	}
	return v
}

// Sign returns -1, 0 or 1. Sign(0) is 0 so feed-forward terms vanish at rest.
func Sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

// Finite reports whether v is neither NaN nor an infinity.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
