// Package path generates trajectories and follows them with a curvature-aware
// velocity profile and proportional-derivative heading control.
package path

import (
	"errors"
	"math"

	"github.com/google/uuid"

	"DiffDrive/internal/model"
)

// ErrShortTrajectory is returned for sequences that hold no target after the start pose.
var ErrShortTrajectory = errors.New("trajectory needs at least two states")

// Trajectory is an immutable sequence of path states. The first state is the
// start pose and is never used as a target.
type Trajectory struct {
	ID       uuid.UUID
	States   []model.PathState
	Reversed bool
}

// NewTrajectory validates states and assigns a fresh ID.
func NewTrajectory(states []model.PathState, reversed bool) (*Trajectory, error) {
	if len(states) < 2 {
		return nil, ErrShortTrajectory
	}
	return &Trajectory{ID: uuid.New(), States: states, Reversed: reversed}, nil
}

// Len returns the number of states.
func (t *Trajectory) Len() int { return len(t.States) }

// Start returns the first pose.
func (t *Trajectory) Start() model.Pose { return t.States[0].Pose }

// End returns the goal pose.
func (t *Trajectory) End() model.Pose { return t.States[len(t.States)-1].Pose }

// Points returns the poses in the form served by the fetch command.
func (t *Trajectory) Points() []model.PathPoint {
	out := make([]model.PathPoint, len(t.States))
	for i, s := range t.States {
		out[i] = model.PathPoint{X: s.Pose.X, Y: s.Pose.Y, Angle: s.Pose.Heading}
	}
	return out
}

// GeneratorConfig carries the limits a Generator is asked to respect.
type GeneratorConfig struct {
	MaxVelocity     float64 // m/s
	MaxAcceleration float64 // m/s²
	Spacing         float64 // m between emitted states
	Reversed        bool    // the path is driven backwards
}

// Generator builds a curvature-annotated path through the given poses.
type Generator interface {
	Generate(start, end model.Pose, interior []model.Point, cfg GeneratorConfig) ([]model.PathState, error)
}

func distance(a, b model.Pose) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// relativeToAbsolute maps a pose given in the frame of origin (x forward,
// y left) to the field frame.
func relativeToAbsolute(origin, rel model.Pose) model.Pose {
	rad := origin.Heading * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	return model.Pose{
		X:       origin.X + rel.X*cos - rel.Y*sin,
		Y:       origin.Y + rel.X*sin + rel.Y*cos,
		Heading: origin.Heading + rel.Heading,
	}
}
