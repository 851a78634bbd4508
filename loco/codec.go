package loco

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/swdee/go-trackbuilder/tracker"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Export flattens the steps of every track into annotation records.  Record
// ids are assigned sequentially from 1 in track id then frame order.
func Export(tracks []*tracker.Track, fd *FrameDict) ([]Annotation, error) {

	sorted := append([]*tracker.Track(nil), tracks...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ID() < sorted[j].ID()
	})

	anns := make([]Annotation, 0)
	counter := 1

	for _, t := range sorted {
		for _, rec := range t.Records() {

			img, ok := fd.ByName(rec.Image)

			if !ok {
				return nil, fmt.Errorf("track %d frame %d image %q: %w", rec.TrackID,
					rec.Frame, rec.Image, ErrUnknownImage)
			}

			anns = append(anns, Annotation{
				ID:            counter,
				ImageID:       img.ID,
				CategoryID:    rec.Class,
				BBox:          rec.Box.Cxcywh,
				Area:          rec.Box.Area(),
				Segmentation:  [][]float64{},
				IsCrowd:       0,
				TrackID:       rec.TrackID,
				TrackmapIndex: NoTrackmap,
				VidID:         SequenceGroup,
				TrackColor:    rec.Color,
			})

			counter++
		}
	}

	return anns, nil
}

// Import rebuilds tracks from annotation records and adds them, still open,
// to the manager.  Steps of each track are replayed in frame order so motion
// state is recomputed.
func Import(anns []Annotation, fd *FrameDict, m *tracker.Manager) error {

	byTrack := make(map[int][]Annotation)
	var ids []int

	for _, a := range anns {
		if _, ok := byTrack[a.TrackID]; !ok {
			ids = append(ids, a.TrackID)
		}
		byTrack[a.TrackID] = append(byTrack[a.TrackID], a)
	}

	sort.Ints(ids)

	// records paired with their detections so both sort by frame
	type step struct {
		ann Annotation
		det *tracker.Detection
	}

	for _, id := range ids {

		steps := make([]step, 0, len(byTrack[id]))

		for _, a := range byTrack[id] {
			img, ok := fd.ByID(a.ImageID)

			if !ok {
				return fmt.Errorf("track %d annotation %d image id %d: %w", id, a.ID,
					a.ImageID, ErrUnknownImage)
			}

			box := tracker.NewBox(a.BBox[0], a.BBox[1], a.BBox[2], a.BBox[3])
			steps = append(steps, step{
				ann: a,
				det: tracker.NewDetection(img.FrameIndex, img.FileName, a.CategoryID, box),
			})
		}

		sort.SliceStable(steps, func(i, j int) bool {
			return steps[i].det.Frame() < steps[j].det.Frame()
		})

		// class and color come from the earliest step
		t := tracker.NewTrack(id, steps[0].ann.CategoryID, steps[0].ann.TrackColor)

		for _, st := range steps {
			if err := t.AddStep(st.det, st.det.Frame()); err != nil {
				return fmt.Errorf("error importing track %d: %w", id, err)
			}
		}

		if err := m.AddTrack(t); err != nil {
			return err
		}
	}

	return nil
}

// Parse reads a track document
func Parse(data []byte) (Document, error) {

	if !gjson.ValidBytes(data) {
		return Document{}, fmt.Errorf("invalid json: %w", ErrMalformed)
	}

	root := gjson.ParseBytes(data)

	if !root.IsObject() {
		return Document{}, fmt.Errorf("document is not an object: %w", ErrMalformed)
	}

	var doc Document
	var err error

	root.Get("images").ForEach(func(_, v gjson.Result) bool {
		doc.Images = append(doc.Images, Image{
			ID:         int(v.Get("id").Int()),
			FileName:   v.Get("file_name").String(),
			Width:      int(v.Get("width").Int()),
			Height:     int(v.Get("height").Int()),
			FrameIndex: int(frameIndex(v).Int()),
		})
		return true
	})

	root.Get("categories").ForEach(func(_, v gjson.Result) bool {
		doc.Categories = append(doc.Categories, Category{
			ID:   int(v.Get("id").Int()),
			Name: v.Get("name").String(),
		})
		return true
	})

	root.Get("annotations").ForEach(func(_, v gjson.Result) bool {
		var a Annotation
		a, err = parseAnnotation(v)
		if err != nil {
			return false
		}
		doc.Annotations = append(doc.Annotations, a)
		return true
	})

	if err != nil {
		return Document{}, err
	}

	return doc, nil
}

// frameIndex returns the frame index of an image, falling back to its id for
// documents written without one
func frameIndex(img gjson.Result) gjson.Result {
	if fi := img.Get("frame_index"); fi.Exists() {
		return fi
	}
	return img.Get("id")
}

// parseAnnotation reads a single annotation record
func parseAnnotation(v gjson.Result) (Annotation, error) {

	id := v.Get("id").Int()

	for _, key := range []string{"image_id", "bbox", "track_id"} {
		if !v.Get(key).Exists() {
			return Annotation{}, fmt.Errorf("annotation %d missing %q: %w", id, key, ErrMalformed)
		}
	}

	bbox := v.Get("bbox").Array()

	if len(bbox) != 4 {
		return Annotation{}, fmt.Errorf("annotation %d bbox has %d values: %w", id,
			len(bbox), ErrMalformed)
	}

	a := Annotation{
		ID:            int(id),
		ImageID:       int(v.Get("image_id").Int()),
		CategoryID:    int(v.Get("category_id").Int()),
		Area:          v.Get("area").Float(),
		Segmentation:  [][]float64{},
		IsCrowd:       int(v.Get("iscrowd").Int()),
		TrackID:       int(v.Get("track_id").Int()),
		TrackmapIndex: NoTrackmap,
		VidID:         int(v.Get("vid_id").Int()),
	}

	if tm := v.Get("trackmap_index"); tm.Exists() {
		a.TrackmapIndex = int(tm.Int())
	}

	for i, b := range bbox {
		a.BBox[i] = b.Float()
	}

	color := v.Get("track_color").Array()

	for i := 0; i < len(color) && i < 3; i++ {
		a.TrackColor[i] = uint8(color[i].Uint())
	}

	v.Get("segmentation").ForEach(func(_, poly gjson.Result) bool {
		var pts []float64
		poly.ForEach(func(_, p gjson.Result) bool {
			pts = append(pts, p.Float())
			return true
		})
		a.Segmentation = append(a.Segmentation, pts)
		return true
	})

	return a, nil
}

// ReadFile reads and parses the track document at path, also returning the
// raw bytes so unknown keys can be preserved on write
func ReadFile(path string) (Document, []byte, error) {

	data, err := os.ReadFile(path)

	if err != nil {
		return Document{}, nil, fmt.Errorf("error reading track file: %w", err)
	}

	doc, err := Parse(data)

	if err != nil {
		return Document{}, nil, fmt.Errorf("error parsing %s: %w", path, err)
	}

	return doc, data, nil
}

// Marshal encodes the document.  When base holds a previously read document
// its images and annotations are replaced and every other key is kept.
func Marshal(doc Document, base []byte) ([]byte, error) {

	if doc.Annotations == nil {
		doc.Annotations = []Annotation{}
	}

	if doc.Images == nil {
		doc.Images = []Image{}
	}

	if len(base) == 0 {
		out, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("error encoding document: %w", err)
		}
		return out, nil
	}

	patched := base
	var err error

	fields := []struct {
		key   string
		value any
	}{
		{"images", doc.Images},
		{"annotations", doc.Annotations},
	}

	if len(doc.Categories) > 0 {
		fields = append(fields, struct {
			key   string
			value any
		}{"categories", doc.Categories})
	}

	for _, f := range fields {
		raw, mErr := json.Marshal(f.value)
		if mErr != nil {
			return nil, fmt.Errorf("error encoding %s: %w", f.key, mErr)
		}

		patched, err = sjson.SetRawBytes(patched, f.key, raw)
		if err != nil {
			return nil, fmt.Errorf("error patching %s: %w", f.key, err)
		}
	}

	var buf bytes.Buffer

	if err := json.Indent(&buf, patched, "", "  "); err != nil {
		return nil, fmt.Errorf("error formatting document: %w", err)
	}

	return buf.Bytes(), nil
}

// Write encodes the document to w
func Write(w io.Writer, doc Document, base []byte) error {

	out, err := Marshal(doc, base)

	if err != nil {
		return err
	}

	if _, err := w.Write(append(out, '\n')); err != nil {
		return fmt.Errorf("error writing document: %w", err)
	}

	return nil
}
