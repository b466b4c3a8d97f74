package path

import (
	"errors"
	"fmt"
	"math"

	"DiffDrive/internal/model"
	"DiffDrive/internal/util"
)

// tangentScale sets the tangent magnitude at each knot relative to the chord.
const tangentScale = 1.2

// HermiteGenerator fits quintic Hermite segments through the knots (zero
// second derivative at every knot) and samples them at a fixed arc length.
type HermiteGenerator struct {
	// Steps is the number of integration steps per segment; 0 means 500.
	Steps int
}

type hermiteSegment struct {
	p0, p1, v0, v1 [2]float64
}

func (s hermiteSegment) eval(t float64) (p, d1, d2 [2]float64) {
	t2, t3 := t*t, t*t*t
	t4, t5 := t3*t, t3*t2

	h0 := 1 - 10*t3 + 15*t4 - 6*t5
	h1 := t - 6*t3 + 8*t4 - 3*t5
	h4 := -4*t3 + 7*t4 - 3*t5
	h5 := 10*t3 - 15*t4 + 6*t5

	dh0 := -30*t2 + 60*t3 - 30*t4
	dh1 := 1 - 18*t2 + 32*t3 - 15*t4
	dh4 := -12*t2 + 28*t3 - 15*t4
	dh5 := 30*t2 - 60*t3 + 30*t4

	ddh0 := -60*t + 180*t2 - 120*t3
	ddh1 := -36*t + 96*t2 - 60*t3
	ddh4 := -24*t + 84*t2 - 60*t3
	ddh5 := 60*t - 180*t2 + 120*t3

	for i := 0; i < 2; i++ {
		p[i] = h0*s.p0[i] + h1*s.v0[i] + h4*s.v1[i] + h5*s.p1[i]
		d1[i] = dh0*s.p0[i] + dh1*s.v0[i] + dh4*s.v1[i] + dh5*s.p1[i]
		d2[i] = ddh0*s.p0[i] + ddh1*s.v0[i] + ddh4*s.v1[i] + ddh5*s.p1[i]
	}
	return p, d1, d2
}

// Generate implements Generator. With cfg.Reversed the spline is fitted to the
// rear-facing headings and the emitted states carry the vehicle heading with
// curvature negated.
func (g HermiteGenerator) Generate(start, end model.Pose, interior []model.Point, cfg GeneratorConfig) ([]model.PathState, error) {
	if cfg.Spacing <= 0 {
		return nil, fmt.Errorf("generate: spacing %v must be positive", cfg.Spacing)
	}
	if cfg.MaxVelocity <= 0 || cfg.MaxAcceleration <= 0 {
		return nil, errors.New("generate: velocity and acceleration limits must be positive")
	}
	steps := g.Steps
	if steps <= 0 {
		steps = 500
	}

	flip := 0.0
	if cfg.Reversed {
		flip = 180
	}
	segs := buildSegments(start, end, interior, flip)

	emit := func(p, d1, d2 [2]float64, dist float64) model.PathState {
		heading, curvature := 0.0, 0.0
		speed2 := d1[0]*d1[0] + d1[1]*d1[1]
		if speed2 > 1e-12 {
			heading = math.Atan2(d1[1], d1[0]) * 180 / math.Pi
			curvature = (d1[0]*d2[1] - d1[1]*d2[0]) / math.Pow(speed2, 1.5)
		} else {
			heading = start.Heading + flip
		}
		if cfg.Reversed {
			curvature = -curvature
		}
		return model.PathState{
			Pose:      model.Pose{X: p[0], Y: p[1], Heading: util.Compassify(heading - flip)},
			Curvature: curvature,
			Distance:  dist,
		}
	}

	first := model.PathState{Pose: model.Pose{X: start.X, Y: start.Y, Heading: util.Compassify(start.Heading)}}
	if len(segs) > 0 {
		p, d1, d2 := segs[0].eval(0)
		first = emit(p, d1, d2, 0)
		first.Pose.Heading = util.Compassify(start.Heading)
	}
	states := []model.PathState{first}

	travelled, next := 0.0, cfg.Spacing
	for _, s := range segs {
		prev, _, _ := s.eval(0)
		for j := 1; j <= steps; j++ {
			p, d1, d2 := s.eval(float64(j) / float64(steps))
			travelled += math.Hypot(p[0]-prev[0], p[1]-prev[1])
			prev = p
			if travelled >= next {
				states = append(states, emit(p, d1, d2, travelled))
				next += cfg.Spacing
			}
		}
	}

	// the goal is emitted exactly as requested
	goal := model.PathState{
		Pose:     model.Pose{X: end.X, Y: end.Y, Heading: util.Compassify(end.Heading)},
		Distance: travelled,
	}
	if len(segs) > 0 {
		_, d1, d2 := segs[len(segs)-1].eval(1)
		goal.Curvature = emit([2]float64{}, d1, d2, 0).Curvature
	}
	if n := len(states); n > 1 && travelled-states[n-1].Distance < cfg.Spacing/2 {
		states = states[:n-1]
	}
	return append(states, goal), nil
}

func buildSegments(start, end model.Pose, interior []model.Point, flip float64) []hermiteSegment {
	type knot struct {
		x, y    float64
		heading float64 // rad
	}
	knots := make([]knot, 0, len(interior)+2)
	knots = append(knots, knot{start.X, start.Y, (start.Heading + flip) * math.Pi / 180})
	for i, p := range interior {
		prev := model.Point{X: start.X, Y: start.Y}
		if i > 0 {
			prev = interior[i-1]
		}
		next := model.Point{X: end.X, Y: end.Y}
		if i < len(interior)-1 {
			next = interior[i+1]
		}
		knots = append(knots, knot{p.X, p.Y, math.Atan2(next.Y-prev.Y, next.X-prev.X)})
	}
	knots = append(knots, knot{end.X, end.Y, (end.Heading + flip) * math.Pi / 180})

	segs := make([]hermiteSegment, 0, len(knots)-1)
	for i := 0; i+1 < len(knots); i++ {
		a, b := knots[i], knots[i+1]
		chord := math.Hypot(b.x-a.x, b.y-a.y)
		if chord < 1e-9 {
			continue
		}
		m := tangentScale * chord
		segs = append(segs, hermiteSegment{
			p0: [2]float64{a.x, a.y},
			p1: [2]float64{b.x, b.y},
			v0: [2]float64{m * math.Cos(a.heading), m * math.Sin(a.heading)},
			v1: [2]float64{m * math.Cos(b.heading), m * math.Sin(b.heading)},
		})
	}
	return segs
}
