package loco

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swdee/go-trackbuilder/tracker"
	"github.com/tidwall/gjson"
)

var testFrame = tracker.Frame{Width: 640, Height: 480}

// det creates a 10x20 detection centered at cx,cy
func det(frame int, image string, cx, cy float64) *tracker.Detection {
	return tracker.NewDetection(frame, image, 3, tracker.NewBox(cx, cy, 10, 20))
}

// buildFixture links three frames into two frozen tracks of three and two
// steps
func buildFixture(t *testing.T) (*tracker.Manager, *FrameDict) {
	t.Helper()

	layers := []tracker.Layer{
		{Frame: 0, Image: "seq.000.jpg", Detections: []*tracker.Detection{
			det(0, "seq.000.jpg", 10, 10), det(0, "seq.000.jpg", 100, 100),
		}},
		{Frame: 1, Image: "seq.001.jpg", Detections: []*tracker.Detection{
			det(1, "seq.001.jpg", 20, 10), det(1, "seq.001.jpg", 100, 110),
		}},
		{Frame: 2, Image: "seq.002.jpg", Detections: []*tracker.Detection{
			det(2, "seq.002.jpg", 30, 10),
		}},
	}

	m := tracker.NewManager(tracker.ManagerConfig{}, nil, tracker.NewPaletteColors(42))
	m.SetFrame(testFrame)

	require.NoError(t, m.Build(layers))
	require.NoError(t, m.Finalize(2))
	require.Len(t, m.Tracks(), 2)

	return m, FrameDictFromLayers(layers, testFrame)
}

func TestExport(t *testing.T) {

	m, fd := buildFixture(t)

	anns, err := Export(m.Tracks(), fd)
	require.NoError(t, err)
	require.Len(t, anns, 5)

	wantTracks := []int{1, 1, 1, 2, 2}
	wantImages := []int{1, 2, 3, 1, 2}

	for i, a := range anns {
		assert.Equal(t, i+1, a.ID)
		assert.Equal(t, wantTracks[i], a.TrackID)
		assert.Equal(t, wantImages[i], a.ImageID)
		assert.Equal(t, 3, a.CategoryID)
		assert.Equal(t, 200.0, a.Area)
		assert.Equal(t, NoTrackmap, a.TrackmapIndex)
		assert.Equal(t, SequenceGroup, a.VidID)
		assert.Equal(t, 0, a.IsCrowd)
		assert.NotNil(t, a.Segmentation)
		assert.Empty(t, a.Segmentation)
	}

	assert.Equal(t, [4]float64{30, 10, 10, 20}, anns[2].BBox)

	t1, _ := m.Track(1)
	assert.Equal(t, t1.Color(), anns[0].TrackColor)
}

func TestExportUnknownImage(t *testing.T) {

	m, _ := buildFixture(t)
	fd := NewFrameDict([]Image{{ID: 1, FileName: "seq.000.jpg"}})

	_, err := Export(m.Tracks(), fd)
	assert.ErrorIs(t, err, ErrUnknownImage)
}

func TestRoundTrip(t *testing.T) {

	m, fd := buildFixture(t)

	anns, err := Export(m.Tracks(), fd)
	require.NoError(t, err)

	data, err := Marshal(Document{Images: fd.Images(), Annotations: anns}, nil)
	require.NoError(t, err)

	doc, err := Parse(data)
	require.NoError(t, err)

	rfd := NewFrameDict(doc.Images)
	assert.Equal(t, testFrame, rfd.Frame())

	m2 := tracker.NewManager(tracker.ManagerConfig{}, nil, nil)
	require.NoError(t, Import(doc.Annotations, rfd, m2))
	require.NoError(t, m2.Finalize(0))

	again, err := Export(m2.Tracks(), rfd)
	require.NoError(t, err)

	if diff := cmp.Diff(anns, again); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	t1, ok := m2.Track(1)
	require.True(t, ok)
	assert.Equal(t, []tracker.Point{{X: 10, Y: 10}, {X: 20, Y: 10}, {X: 30, Y: 10}}, t1.Trail())
}

func TestImportOrdersByFrame(t *testing.T) {

	fd := NewFrameDict([]Image{
		{ID: 1, FileName: "a.jpg", FrameIndex: 0},
		{ID: 2, FileName: "b.jpg", FrameIndex: 1},
	})

	anns := []Annotation{
		{ID: 1, ImageID: 2, TrackID: 9, BBox: [4]float64{5, 5, 2, 2}},
		{ID: 2, ImageID: 1, TrackID: 9, BBox: [4]float64{1, 1, 2, 2}},
	}

	m := tracker.NewManager(tracker.ManagerConfig{}, nil, nil)
	require.NoError(t, Import(anns, fd, m))

	tr, ok := m.Track(9)
	require.True(t, ok)
	require.Equal(t, 2, tr.StepCount())
	assert.Equal(t, 0, tr.Step(0).Frame())
	assert.Equal(t, 1, tr.Step(1).Frame())
	assert.Equal(t, tracker.Open, tr.State())
}

func TestImportClassFromEarliestFrame(t *testing.T) {

	fd := NewFrameDict([]Image{
		{ID: 1, FileName: "a.jpg", FrameIndex: 0},
		{ID: 2, FileName: "b.jpg", FrameIndex: 1},
	})

	// records out of frame order with the later step first
	anns := []Annotation{
		{ID: 1, ImageID: 2, TrackID: 4, CategoryID: 7, TrackColor: tracker.Color{7, 7, 7},
			BBox: [4]float64{5, 5, 2, 2}},
		{ID: 2, ImageID: 1, TrackID: 4, CategoryID: 2, TrackColor: tracker.Color{2, 2, 2},
			BBox: [4]float64{1, 1, 2, 2}},
	}

	m := tracker.NewManager(tracker.ManagerConfig{}, nil, nil)
	require.NoError(t, Import(anns, fd, m))

	tr, ok := m.Track(4)
	require.True(t, ok)
	assert.Equal(t, 2, tr.Class())
	assert.Equal(t, tracker.Color{2, 2, 2}, tr.Color())
	assert.Equal(t, 2, tr.Step(0).Class())
	assert.Equal(t, 7, tr.Step(1).Class())
}

func TestImportErrors(t *testing.T) {

	fd := NewFrameDict([]Image{{ID: 1, FileName: "a.jpg"}})

	t.Run("unknown image", func(t *testing.T) {
		m := tracker.NewManager(tracker.ManagerConfig{}, nil, nil)
		err := Import([]Annotation{{ID: 1, ImageID: 7, TrackID: 1}}, fd, m)
		assert.ErrorIs(t, err, ErrUnknownImage)
	})

	t.Run("same frame twice", func(t *testing.T) {
		m := tracker.NewManager(tracker.ManagerConfig{}, nil, nil)
		err := Import([]Annotation{
			{ID: 1, ImageID: 1, TrackID: 1},
			{ID: 2, ImageID: 1, TrackID: 1},
		}, fd, m)
		assert.ErrorIs(t, err, tracker.ErrFrameOrder)
	})
}

func TestParseErrors(t *testing.T) {

	tests := []struct {
		name string
		data string
	}{
		{"invalid json", `{"images": [`},
		{"not an object", `[1, 2]`},
		{"missing bbox", `{"annotations": [{"id": 1, "image_id": 1, "track_id": 1}]}`},
		{"short bbox", `{"annotations": [{"id": 1, "image_id": 1, "track_id": 1, "bbox": [1, 2]}]}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.data))
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestParseDefaults(t *testing.T) {

	data := `{
		"images": [{"id": 4, "file_name": "x.png"}],
		"annotations": [{"id": 1, "image_id": 4, "track_id": 2, "bbox": [1, 2, 3, 4],
			"track_color": [10, 20, 30]}]
	}`

	doc, err := Parse([]byte(data))
	require.NoError(t, err)

	require.Len(t, doc.Images, 1)
	assert.Equal(t, 4, doc.Images[0].FrameIndex)

	require.Len(t, doc.Annotations, 1)
	a := doc.Annotations[0]
	assert.Equal(t, NoTrackmap, a.TrackmapIndex)
	assert.Equal(t, tracker.Color{10, 20, 30}, a.TrackColor)
	assert.Equal(t, [4]float64{1, 2, 3, 4}, a.BBox)
}

func TestMarshalPreservesBase(t *testing.T) {

	base := []byte(`{"info": {"name": "survey"}, "images": [], "annotations": []}`)

	doc := Document{
		Images:      []Image{{ID: 1, FileName: "a.jpg"}},
		Annotations: []Annotation{{ID: 1, ImageID: 1, TrackID: 1, TrackColor: tracker.Color{1, 2, 3}}},
	}

	out, err := Marshal(doc, base)
	require.NoError(t, err)

	assert.Equal(t, "survey", gjson.GetBytes(out, "info.name").String())
	assert.Equal(t, int64(1), gjson.GetBytes(out, "annotations.#").Int())
	assert.Equal(t, "a.jpg", gjson.GetBytes(out, "images.0.file_name").String())
	assert.Equal(t, int64(3), gjson.GetBytes(out, "annotations.0.track_color.2").Int())
}

func TestMarshalEmpty(t *testing.T) {

	out, err := Marshal(Document{}, nil)
	require.NoError(t, err)

	assert.True(t, gjson.GetBytes(out, "annotations").IsArray())
	assert.True(t, gjson.GetBytes(out, "images").IsArray())
	assert.False(t, gjson.GetBytes(out, "categories").Exists())
}

func TestReadFile(t *testing.T) {

	m, fd := buildFixture(t)

	anns, err := Export(m.Tracks(), fd)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Document{Images: fd.Images(), Annotations: anns}, nil))

	path := filepath.Join(t.TempDir(), "tracks.json")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	doc, raw, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, buf.Bytes(), raw)
	assert.Len(t, doc.Annotations, 5)

	_, _, err = ReadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
