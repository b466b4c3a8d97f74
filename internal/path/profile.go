package path

import (
	"math"

	"DiffDrive/internal/model"
)

// Profile is the tuning for one direction of travel. Sign is +1 when driving
// forwards and -1 when reversing; every configured magnitude is positive.
type Profile struct {
	model.ProfileConfig
	Sign float64
}

// NewProfile selects the forward or reverse tuning.
func NewProfile(cfg model.FollowerConfig, reversed bool) Profile {
	if reversed {
		return Profile{ProfileConfig: abs(cfg.Reverse), Sign: -1}
	}
	return Profile{ProfileConfig: abs(cfg.Forward), Sign: 1}
}

func abs(p model.ProfileConfig) model.ProfileConfig {
	p.KTheta = math.Abs(p.KTheta)
	p.KCurvature = math.Abs(p.KCurvature)
	p.KOmega = math.Abs(p.KOmega)
	p.KVelocity = math.Abs(p.KVelocity)
	p.MaxVelocity = math.Abs(p.MaxVelocity)
	p.MaxAcceleration = math.Abs(p.MaxAcceleration)
	p.MinVelocity = math.Abs(p.MinVelocity)
	return p
}

// AccelerationLimit derives the acceleration budget of a trajectory from the
// chord between its end points, measured in the driving direction. Sharp
// chords and large lateral offsets get a gentler ramp. eps floors the chord
// angle so straight paths never divide by zero.
func (p Profile) AccelerationLimit(start, end model.Pose, eps float64) float64 {
	facing := start.Heading
	if p.Sign < 0 {
		facing += 180
	}
	rad := facing * math.Pi / 180
	dx, dy := end.X-start.X, end.Y-start.Y
	forward := dx*math.Cos(rad) + dy*math.Sin(rad)
	lateral := -dx*math.Sin(rad) + dy*math.Cos(rad)

	angle := math.Max(math.Abs(math.Atan2(lateral, forward)), eps)
	if math.Abs(lateral) > p.LateralThreshold {
		turn := (end.Heading - start.Heading) * math.Pi / 180
		limit := p.AccelChordGain/angle + math.Abs(math.Sin(turn))*math.Abs(lateral)
		return math.Min(limit, p.MaxAcceleration)
	}
	return math.Min(p.AccelStraightGain/angle, p.MaxAcceleration)
}
