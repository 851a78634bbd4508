package tracker

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tolerance for float comparisons
const tolerance = 1e-9

// newTestDet creates a 10x10 detection centered at cx,cy
func newTestDet(frame int, cx, cy float64) *Detection {
	return NewDetection(frame, "img", 0, NewBox(cx, cy, 10, 10))
}

// buildTrack returns an open track with steps at the given centers on
// consecutive frames starting at frame 0
func buildTrack(t *testing.T, id int, centers ...Point) *Track {
	t.Helper()

	tr := NewTrack(id, 0, Color{1, 2, 3})

	for i, c := range centers {
		require.NoError(t, tr.AddStep(newTestDet(i, c.X, c.Y), i))
	}

	return tr
}

func TestTrackAddStep(t *testing.T) {

	tr := NewTrack(7, 2, Color{})

	for i := 0; i < 5; i++ {
		det := newTestDet(i*2, float64(i), 0)
		before := tr.StepCount()

		require.NoError(t, tr.AddStep(det, i*2))

		assert.Equal(t, before+1, tr.StepCount())
		assert.Equal(t, i*2, tr.LastFrame())
		assert.Same(t, det, tr.Last())

		owner, ok := det.Owner()
		assert.True(t, ok)
		assert.Equal(t, 7, owner)
	}
}

func TestTrackAddStepErrors(t *testing.T) {

	t.Run("closed", func(t *testing.T) {
		tr := buildTrack(t, 1, Point{0, 0})
		tr.Close()
		err := tr.AddStep(newTestDet(5, 1, 1), 5)
		assert.ErrorIs(t, err, ErrTrackClosed)
		assert.Equal(t, 1, tr.StepCount())
	})

	t.Run("duplicate frame", func(t *testing.T) {
		tr := buildTrack(t, 1, Point{0, 0})
		err := tr.AddStep(newTestDet(0, 1, 1), 0)
		assert.ErrorIs(t, err, ErrFrameOrder)
	})

	t.Run("owned detection", func(t *testing.T) {
		det := newTestDet(0, 1, 1)
		require.NoError(t, NewTrack(1, 0, Color{}).AddStep(det, 0))
		err := NewTrack(2, 0, Color{}).AddStep(det, 0)
		assert.ErrorIs(t, err, ErrDetectionOwned)
	})
}

// TestTrackStraightLine checks the motion state after three steps moving
// along the x axis.  The angle is measured by atan2(dx, dy) so the predicted
// center moves along y.
func TestTrackStraightLine(t *testing.T) {

	tr := buildTrack(t, 1, Point{10, 10}, Point{20, 10}, Point{30, 10})

	m := tr.Motion()
	assert.InDelta(t, 10, m.R, tolerance)
	assert.InDelta(t, math.Pi/2, m.Theta, tolerance)

	pred := tr.PredictNextBox()
	assert.InDelta(t, 30, pred.X, tolerance)
	assert.InDelta(t, 20, pred.Y, tolerance)
}

func TestTrackPredictSingleStep(t *testing.T) {
	tr := buildTrack(t, 1, Point{12.5, 40})
	assert.Equal(t, Point{12.5, 40}, tr.PredictNextBox())
}

func TestTrackMotionRatios(t *testing.T) {

	tr := buildTrack(t, 1, Point{0, 0}, Point{0, 10}, Point{0, 30}, Point{0, 30})

	m := tr.Motion()

	// first ratio has no previous displacement, the last step does not move
	assert.Equal(t, []float64{1, 2, 0}, m.RadiusRatios)
	require.Len(t, m.ThetaRatios, 3)

	// atan2(0, 10) == 0 normalizes to 2π, as does the initial angle
	assert.InDelta(t, 1, m.ThetaRatios[0], tolerance)
	assert.InDelta(t, 1, m.ThetaRatios[1], tolerance)
	assert.InDelta(t, 1, m.ThetaRatios[2], tolerance)
	assert.Equal(t, 0.0, m.R)

	// moving again after standing still records no change rather than
	// dividing by zero
	require.NoError(t, tr.AddStep(newTestDet(10, 5, 30), 10))
	m = tr.Motion()
	assert.Equal(t, 1.0, m.RadiusRatios[3])
	assert.False(t, math.IsInf(m.RadiusRatios[3], 0))
}

func TestNormalizeTheta(t *testing.T) {
	assert.Equal(t, 2*math.Pi, normalizeTheta(0))
	assert.Equal(t, 1.0, normalizeTheta(1))
	assert.InDelta(t, 2*math.Pi-1, normalizeTheta(-1), tolerance)
}

func TestTrackIsAlive(t *testing.T) {

	tr := NewTrack(1, 0, Color{})
	require.NoError(t, tr.AddStep(newTestDet(10, 0, 0), 10))

	assert.True(t, tr.IsAlive(10, 5))
	assert.True(t, tr.IsAlive(14, 5))
	assert.False(t, tr.IsAlive(15, 5))
	assert.False(t, tr.IsAlive(20, 5))
}

func TestTrackFreeze(t *testing.T) {

	tr := buildTrack(t, 1, Point{0, 0}, Point{1, 1}, Point{2, 2}, Point{3, 3})

	for _, d := range tr.Steps() {
		assert.False(t, d.HasPrev())
		assert.False(t, d.HasNext())
	}

	require.NoError(t, tr.Freeze())
	assert.Equal(t, Closed, tr.State())
	assert.True(t, tr.IsFrozen())

	last := tr.StepCount() - 1

	for i := 0; i < last; i++ {
		assert.Same(t, tr.Step(i+1), tr.NextOf(tr.Step(i)))
		assert.Same(t, tr.Step(i), tr.PrevOf(tr.Step(i+1)))
	}

	assert.Nil(t, tr.PrevOf(tr.Step(0)))
	assert.Nil(t, tr.NextOf(tr.Step(last)))

	assert.ErrorIs(t, tr.Freeze(), ErrTrackFrozen)
	assert.ErrorIs(t, tr.AddStep(newTestDet(9, 0, 0), 9), ErrTrackClosed)
}

func TestTrackTrail(t *testing.T) {

	tr := buildTrack(t, 1, Point{0, 0}, Point{1, 1}, Point{2, 2})

	// unlinked path only yields the first center
	assert.Equal(t, []Point{{0, 0}}, tr.Trail())

	require.NoError(t, tr.Freeze())
	assert.Equal(t, []Point{{0, 0}, {1, 1}, {2, 2}}, tr.Trail())
	assert.Equal(t, []Point{{0, 0}, {1, 1}}, tr.TrailAt(1))

	assert.Same(t, tr.Step(2), tr.StepAt(2))
	assert.Nil(t, tr.StepAt(7))
}

func TestTrackRecords(t *testing.T) {

	tr := NewTrack(4, 3, Color{9, 8, 7})
	require.NoError(t, tr.AddStep(NewDetection(2, "a.jpg", 3, NewBox(1, 2, 3, 4)), 2))
	require.NoError(t, tr.AddStep(NewDetection(3, "b.jpg", 3, NewBox(5, 6, 7, 8)), 3))

	recs := tr.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, StepRecord{TrackID: 4, Color: Color{9, 8, 7}, Frame: 2,
		Image: "a.jpg", Class: 3, Box: NewBox(1, 2, 3, 4)}, recs[0])
	assert.Equal(t, "b.jpg", recs[1].Image)
}

func TestBoxCorners(t *testing.T) {

	b := NewBox(50, 40, 20, 10)
	tl, br := b.Corners()

	assert.Equal(t, Point{40, 35}, tl)
	assert.Equal(t, Point{60, 45}, br)
	assert.Equal(t, b, BoxFromCorners(tl, br))
	assert.Equal(t, 200.0, b.Area())
}
