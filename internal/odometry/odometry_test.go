package odometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEncoder struct {
	ticks  int64
	absent bool
}

func (f *fakeEncoder) Ticks() (int64, bool) { return f.ticks, !f.absent }
func (f *fakeEncoder) ResetTicks()          { f.ticks = 0 }

type fakeGyro struct {
	heading, rate float64
	resets        int
}

func (g *fakeGyro) Heading() float64     { return g.heading }
func (g *fakeGyro) AngularRate() float64 { return g.rate }
func (g *fakeGyro) ResetHeading()        { g.heading = 0; g.resets++ }

const (
	radius = 0.0762
	tpr    = 2048.0
)

func newEstimator() (*Estimator, *fakeEncoder, *fakeEncoder, *fakeGyro) {
	l, r, g := &fakeEncoder{}, &fakeEncoder{}, &fakeGyro{}
	return New(l, r, g, radius, tpr), l, r, g
}

func TestFirstUpdateReportsZeroDisplacement(t *testing.T) {
	est, l, r, _ := newEstimator()
	l.ticks, r.ticks = 50000, 48000

	s := est.Update()
	assert.Zero(t, s.Distance)
	assert.Zero(t, s.Pose.X)
	assert.Zero(t, s.Pose.Y)
	assert.Equal(t, Tracking, est.State())
}

func TestDisplacementProjectedOnHeading(t *testing.T) {
	headings := []float64{0, 30, 90, -135, 180}
	for _, h := range headings {
		est, l, r, g := newEstimator()
		g.heading = h
		est.Update()

		x, y := 0.0, 0.0
		deltas := [][2]int64{{100, 200}, {-50, 10}, {0, 0}, {2048, 2048}}
		for _, d := range deltas {
			l.ticks += d[0]
			r.ticks += d[1]
			s := est.Update()

			want := float64(d[0]+d[1]) / 2 * est.MetersPerTick()
			assert.InDelta(t, want, s.Distance, 1e-12)
			x += want * math.Cos(h*math.Pi/180)
			y += want * math.Sin(h*math.Pi/180)
			assert.InDelta(t, x, s.Pose.X, 1e-9, "heading %v", h)
			assert.InDelta(t, y, s.Pose.Y, 1e-9, "heading %v", h)
		}
	}
}

func TestZeroDeltaKeepsPosition(t *testing.T) {
	est, l, r, g := newEstimator()
	est.Update()
	l.ticks, r.ticks = 1000, 1000
	before := est.Update().Pose

	for _, h := range []float64{10, -170, 95, 400} {
		g.heading = h
		s := est.Update()
		assert.Equal(t, before.X, s.Pose.X)
		assert.Equal(t, before.Y, s.Pose.Y)
		assert.Zero(t, s.Distance)
	}
}

func TestHeadingNormalised(t *testing.T) {
	est, _, _, g := newEstimator()
	g.heading = 270
	g.rate = 12
	s := est.Update()
	assert.InDelta(t, -90, s.Pose.Heading, 1e-9)
	assert.Equal(t, 12.0, s.AngularRate)
}

func TestOneRevolutionIsCircumference(t *testing.T) {
	est, l, r, _ := newEstimator()
	est.Update()
	l.ticks, r.ticks = 2048, 2048
	s := est.Update()
	assert.InDelta(t, 2*math.Pi*radius, s.Pose.X, 1e-12)
}

func TestReset(t *testing.T) {
	est, l, r, g := newEstimator()
	est.Update()
	l.ticks, r.ticks = 4000, 4000
	g.heading = 45
	est.Update()
	require.NotZero(t, est.Pose().X)

	est.Reset()
	assert.Equal(t, 1, g.resets)
	assert.Zero(t, est.Pose().X)
	assert.Zero(t, est.Pose().Y)
	assert.Zero(t, est.Pose().Heading)

	// next tick integrates relative to zero, never to the pre-reset 4000
	l.ticks, r.ticks = 100, 100
	s := est.Update()
	assert.InDelta(t, 100*est.MetersPerTick(), s.Pose.X, 1e-12)
	assert.Zero(t, s.Pose.Y)
}

func TestMissingEncoderSkipsIntegration(t *testing.T) {
	est, l, r, g := newEstimator()
	est.Update()
	l.ticks, r.ticks = 200, 200
	est.Update()
	x := est.Pose().X

	r.absent = true
	l.ticks = 5000
	g.heading = 20
	s := est.Update()
	assert.Equal(t, x, s.Pose.X)
	assert.InDelta(t, 20, s.Pose.Heading, 1e-12)
	assert.Equal(t, Uninitialized, est.State())

	// recovery re-baselines instead of jumping by the missed ticks
	r.absent = false
	r.ticks = 900
	s = est.Update()
	assert.Equal(t, x, s.Pose.X)
	assert.Equal(t, Tracking, est.State())
}

func TestWheelDistances(t *testing.T) {
	est, l, r, _ := newEstimator()
	est.Update()
	l.ticks, r.ticks = 100, -100
	s := est.Update()
	dl, dr := est.WheelDistances()
	assert.InDelta(t, 100*est.MetersPerTick(), dl, 1e-12)
	assert.InDelta(t, -100*est.MetersPerTick(), dr, 1e-12)
	assert.Zero(t, s.Distance)
}
