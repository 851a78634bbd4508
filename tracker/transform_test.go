package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// frozenManager returns a manager holding frozen tracks over a 640x480 frame
func frozenManager(t *testing.T) *Manager {
	t.Helper()

	m := NewManager(ManagerConfig{MaxDistance: 30}, nil, nil)
	m.SetFrame(Frame{Width: 640, Height: 480})

	layers := []Layer{
		{Frame: 0, Detections: []*Detection{
			NewDetection(0, "f0", 0, NewBox(100, 50, 20, 40)),
			NewDetection(0, "f0", 1, NewBox(400, 300, 60, 30)),
		}},
		{Frame: 1, Detections: []*Detection{
			NewDetection(1, "f1", 0, NewBox(110, 55, 20, 40)),
			NewDetection(1, "f1", 1, NewBox(395, 310, 60, 30)),
		}},
		{Frame: 2, Detections: []*Detection{
			NewDetection(2, "f2", 0, NewBox(120, 60, 22, 41)),
		}},
	}

	require.NoError(t, m.Build(layers))
	require.NoError(t, m.Finalize(0))

	return m
}

// snapshot returns the boxes and linkage of every track
type stepSnapshot struct {
	id         int
	box        Box
	prev, next int
}

func snapshot(m *Manager) []stepSnapshot {

	var res []stepSnapshot

	for _, tr := range m.Tracks() {
		for _, d := range tr.Steps() {
			res = append(res, stepSnapshot{id: tr.ID(), box: d.Box(), prev: d.Prev(), next: d.Next()})
		}
	}

	return res
}

// assertBoxesNear compares snapshots with a float tolerance on geometry and
// exact identity and linkage
func assertBoxesNear(t *testing.T, want, got []stepSnapshot) {
	t.Helper()

	require.Len(t, got, len(want))

	for i := range want {
		assert.Equal(t, want[i].id, got[i].id)
		assert.Equal(t, want[i].prev, got[i].prev)
		assert.Equal(t, want[i].next, got[i].next)

		for k := 0; k < 4; k++ {
			assert.InDelta(t, want[i].box.Cxcywh[k], got[i].box.Cxcywh[k], 1e-9)
		}
	}
}

func TestParseAxis(t *testing.T) {

	for in, want := range map[string]Axis{
		"horizontal": Horizontal,
		"H":          Horizontal,
		" vertical ": Vertical,
		"v":          Vertical,
	} {
		got, err := ParseAxis(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseAxis("diagonal")
	assert.ErrorIs(t, err, ErrInvalidAxis)
}

func TestParseDegrees(t *testing.T) {

	deg, err := ParseDegrees("-22.5")
	require.NoError(t, err)
	assert.Equal(t, -22.5, deg)

	for _, bad := range []string{"ninety", "", "NaN", "Inf"} {
		_, err := ParseDegrees(bad)
		assert.ErrorIs(t, err, ErrInvalidAngle, bad)
	}
}

func TestRotationQuarterTurns(t *testing.T) {

	f := Frame{Width: 640, Height: 480}
	b := NewBox(100, 50, 20, 40)

	tests := []struct {
		deg   float64
		want  Box
		frame Frame
	}{
		{0, NewBox(100, 50, 20, 40), f},
		{90, NewBox(50, 540, 40, 20), Frame{Width: 480, Height: 640}},
		{180, NewBox(540, 430, 20, 40), f},
		{270, NewBox(430, 100, 40, 20), Frame{Width: 480, Height: 640}},
		{-90, NewBox(430, 100, 40, 20), Frame{Width: 480, Height: 640}},
		{450, NewBox(50, 540, 40, 20), Frame{Width: 480, Height: 640}},
	}

	for _, tc := range tests {
		tr, err := Rotation(tc.deg, f)
		require.NoError(t, err)
		assert.Equal(t, tc.want, tr.Apply(b), "deg=%v", tc.deg)
		assert.Equal(t, tc.frame, tr.Frame(), "deg=%v", tc.deg)
	}
}

func TestRotationArbitraryAngle(t *testing.T) {

	f := Frame{Width: 200, Height: 100}

	tr, err := Rotation(45, f)
	require.NoError(t, err)

	// frame center is fixed and the size is kept
	got := tr.Apply(NewBox(100, 50, 10, 20))
	assert.InDelta(t, 100, got.CX(), 1e-9)
	assert.InDelta(t, 50, got.CY(), 1e-9)
	assert.Equal(t, 10.0, got.Width())
	assert.Equal(t, 20.0, got.Height())
	assert.Equal(t, f, tr.Frame())
}

func TestTransformAffine(t *testing.T) {

	f := Frame{Width: 61, Height: 41}

	tr, err := Rotation(30, f)
	require.NoError(t, err)

	a := tr.Affine()

	// the exact frame center is the pivot, odd sizes included
	assert.InDelta(t, 30.5, a[0]*30.5+a[1]*20.5+a[2], 1e-9)
	assert.InDelta(t, 20.5, a[3]*30.5+a[4]*20.5+a[5], 1e-9)

	got := tr.Apply(NewBox(3, 4, 2, 2))
	assert.InDelta(t, a[0]*3+a[1]*4+a[2], got.CX(), 1e-9)
	assert.InDelta(t, a[3]*3+a[4]*4+a[5], got.CY(), 1e-9)
}

func TestRotationErrors(t *testing.T) {

	_, err := Rotation(90, Frame{})
	assert.ErrorIs(t, err, ErrInvalidFrame)

	_, err = Reflection(Axis(9), Frame{Width: 1, Height: 1})
	assert.ErrorIs(t, err, ErrInvalidAxis)
}

func TestReflection(t *testing.T) {

	f := Frame{Width: 640, Height: 480}
	b := NewBox(100, 50, 20, 40)

	tr, err := Reflection(Horizontal, f)
	require.NoError(t, err)
	assert.Equal(t, NewBox(100, 430, 20, 40), tr.Apply(b))

	tr, err = Reflection(Vertical, f)
	require.NoError(t, err)
	assert.Equal(t, NewBox(540, 50, 20, 40), tr.Apply(b))
}

func TestManagerReflectInvolution(t *testing.T) {

	for _, axis := range []Axis{Horizontal, Vertical} {
		m := frozenManager(t)
		before := snapshot(m)

		require.NoError(t, m.ReflectAll(axis))
		assert.NotEqual(t, before, snapshot(m))

		require.NoError(t, m.ReflectAll(axis))
		assertBoxesNear(t, before, snapshot(m))
	}
}

func TestManagerRotateInverse(t *testing.T) {

	for _, deg := range []float64{90, 180, 270, 33.3, -12} {
		m := frozenManager(t)
		before := snapshot(m)

		require.NoError(t, m.RotateAll(deg))
		require.NoError(t, m.RotateAll(-deg))

		assertBoxesNear(t, before, snapshot(m))
		assert.Equal(t, Frame{Width: 640, Height: 480}, m.Frame())
	}
}

func TestManagerRotateSwapsFrame(t *testing.T) {

	m := frozenManager(t)
	require.NoError(t, m.RotateAll(90))
	assert.Equal(t, Frame{Width: 480, Height: 640}, m.Frame())
}

func TestManagerTransformAllOrNothing(t *testing.T) {

	m := frozenManager(t)
	before := snapshot(m)

	// an open track blocks the whole transform
	open := NewTrack(99, 0, Color{})
	require.NoError(t, open.AddStep(newTestDet(0, 1, 1), 0))
	require.NoError(t, m.AddTrack(open))

	assert.ErrorIs(t, m.RotateAll(90), ErrNotFrozen)
	assert.ErrorIs(t, m.ReflectAll(Vertical), ErrNotFrozen)
	assert.ErrorIs(t, m.ReflectAll(Axis(0)), ErrInvalidAxis)

	after := snapshot(m)
	assert.Equal(t, before, after[:len(before)])
	assert.Equal(t, Frame{Width: 640, Height: 480}, m.Frame())
}
