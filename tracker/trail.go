package tracker

import "sort"

// StepRecord is the flattened export form of a single track step
type StepRecord struct {
	TrackID int
	Color   Color
	Frame   int
	Image   string
	Class   int
	Box     Box
}

// Records returns one StepRecord per detection on the track in frame order
func (t *Track) Records() []StepRecord {

	recs := make([]StepRecord, 0, len(t.path))

	for _, d := range t.path {
		recs = append(recs, StepRecord{
			TrackID: t.id,
			Color:   t.color,
			Frame:   d.frame,
			Image:   d.image,
			Class:   d.class,
			Box:     d.box,
		})
	}

	return recs
}

// Trail returns the centers of the track steps by walking the linked path
// from its first detection.  On a track that is not frozen only the first
// center is returned.
func (t *Track) Trail() []Point {

	if len(t.path) == 0 {
		return nil
	}

	points := make([]Point, 0, len(t.path))

	for d := t.path[0]; d != nil; d = t.NextOf(d) {
		points = append(points, d.Center())
	}

	return points
}

// TrailAt returns the trail of the track up to and including the step seen at
// the given frame, used for drawing the history leading to a frame
func (t *Track) TrailAt(frame int) []Point {

	var points []Point

	for _, p := range t.path {
		if p.frame > frame {
			break
		}
		points = append(points, p.Center())
	}

	return points
}

// StepAt returns the detection seen at the given frame, or nil when the track
// has no step there
func (t *Track) StepAt(frame int) *Detection {

	i := sort.Search(len(t.path), func(i int) bool {
		return t.path[i].frame >= frame
	})

	if i < len(t.path) && t.path[i].frame == frame {
		return t.path[i]
	}

	return nil
}
