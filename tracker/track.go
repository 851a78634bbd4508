package tracker

import (
	"errors"
	"fmt"
	"math"
)

// TrackState represents the lifecycle state of a Track
type TrackState int

const (
	// Track is growing and may receive new detections
	Open TrackState = 0
	// Track no longer receives detections
	Closed TrackState = 1
)

// String returns the name of the state
func (s TrackState) String() string {
	switch s {
	case Open:
		return "open"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("TrackState(%d)", int(s))
	}
}

var (
	// ErrTrackClosed is returned when adding a step to a closed Track
	ErrTrackClosed = errors.New("track is closed")
	// ErrTrackFrozen is returned when freezing a Track a second time
	ErrTrackFrozen = errors.New("track is already frozen")
	// ErrFrameOrder is returned when a step does not advance the frame index
	ErrFrameOrder = errors.New("frame index must increase along a track")
	// ErrDetectionOwned is returned when a detection already belongs to a Track
	ErrDetectionOwned = errors.New("detection already belongs to a track")
)

// Motion is the motion prediction state of a Track
type Motion struct {
	// R is the magnitude of the last displacement between step centers
	R float64
	// Theta is the angle of the last displacement, measured by
	// atan2(dx, dy)
	Theta float64
	// RadiusRatios is the history of R(new)/R(prev) values
	RadiusRatios []float64
	// ThetaRatios is the history of normalized Theta(new)/Theta(prev) values
	ThetaRatios []float64
}

// Track represents the trajectory of a single object across frames
type Track struct {
	// id is the unique track id
	id int
	// color is used for rendering only
	color Color
	// class is the object class id of the first detection
	class int
	// path of detections in frame order
	path []*Detection
	// motion is the prediction state
	motion Motion
	// lastFrame is the frame index of the last appended detection
	lastFrame int
	// state of the track lifecycle
	state TrackState
	// frozen is set once the path has been linked
	frozen bool
}

// NewTrack creates a new open Track with no steps
func NewTrack(id int, class int, color Color) *Track {
	return &Track{
		id:        id,
		color:     color,
		class:     class,
		lastFrame: -1,
		state:     Open,
	}
}

// ID returns the unique track id
func (t *Track) ID() int {
	return t.id
}

// Color returns the rendering color of the track
func (t *Track) Color() Color {
	return t.color
}

// Class returns the class id of the track
func (t *Track) Class() int {
	return t.class
}

// State returns the lifecycle state of the track
func (t *Track) State() TrackState {
	return t.state
}

// IsFrozen returns whether the track has been frozen
func (t *Track) IsFrozen() bool {
	return t.frozen
}

// LastFrame returns the frame index of the last appended step, or -1 when
// the track has no steps
func (t *Track) LastFrame() int {
	return t.lastFrame
}

// Motion returns a copy of the motion state
func (t *Track) Motion() Motion {
	m := t.motion
	m.RadiusRatios = append([]float64(nil), t.motion.RadiusRatios...)
	m.ThetaRatios = append([]float64(nil), t.motion.ThetaRatios...)
	return m
}

// StepCount returns the number of detections on the track
func (t *Track) StepCount() int {
	return len(t.path)
}

// Step returns the detection at path index i
func (t *Track) Step(i int) *Detection {
	return t.path[i]
}

// Steps returns the detections of the track in frame order
func (t *Track) Steps() []*Detection {
	return t.path
}

// Last returns the most recent detection, or nil if the track has no steps
func (t *Track) Last() *Detection {
	if len(t.path) == 0 {
		return nil
	}
	return t.path[len(t.path)-1]
}

// PrevOf returns the detection linked before d, or nil
func (t *Track) PrevOf(d *Detection) *Detection {
	if !d.HasPrev() {
		return nil
	}
	return t.path[d.prev]
}

// NextOf returns the detection linked after d, or nil
func (t *Track) NextOf(d *Detection) *Detection {
	if !d.HasNext() {
		return nil
	}
	return t.path[d.next]
}

// AddStep appends a detection observed at the given frame to the track
func (t *Track) AddStep(det *Detection, frame int) error {

	if t.state != Open {
		return fmt.Errorf("track %d: %w", t.id, ErrTrackClosed)
	}

	if det.hasOwner {
		return fmt.Errorf("track %d: detection owned by track %d: %w", t.id,
			det.owner, ErrDetectionOwned)
	}

	if len(t.path) > 0 {
		if frame <= t.lastFrame {
			return fmt.Errorf("track %d: frame %d after %d: %w", t.id, frame,
				t.lastFrame, ErrFrameOrder)
		}

		t.updateMotion(t.Last().Center(), det.Center())
	}

	det.owner = t.id
	det.hasOwner = true
	t.lastFrame = frame
	t.path = append(t.path, det)

	return nil
}

// normalizeTheta maps an angle into (0, 2π]
func normalizeTheta(theta float64) float64 {
	if theta > 0 {
		return theta
	}
	return 2*math.Pi + theta
}

// updateMotion updates the displacement vector between the last step center
// and the new center
func (t *Track) updateMotion(last, next Point) {

	r := last.Distance(next)

	// no previous displacement to compare against so record no change
	ratio := 1.0

	if t.motion.R != 0 {
		ratio = r / t.motion.R
	}

	t.motion.RadiusRatios = append(t.motion.RadiusRatios, ratio)
	t.motion.R = r

	// angle is measured from the y axis
	theta := math.Atan2(next.X-last.X, next.Y-last.Y)

	t.motion.ThetaRatios = append(t.motion.ThetaRatios,
		normalizeTheta(theta)/normalizeTheta(t.motion.Theta))
	t.motion.Theta = theta
}

// PredictNextBox predicts the center of the next detection on the track
func (t *Track) PredictNextBox() Point {

	last := t.Last().Center()

	if len(t.path) == 1 {
		return last
	}

	return Point{
		X: last.X + t.motion.R*math.Cos(t.motion.Theta),
		Y: last.Y + t.motion.R*math.Sin(t.motion.Theta),
	}
}

// IsAlive checks whether the track was updated within the expiration window
// of the current frame
func (t *Track) IsAlive(frame, expiration int) bool {
	return frame-t.lastFrame < expiration
}

// Close marks the track as closed so it receives no further steps
func (t *Track) Close() {
	t.state = Closed
}

// Freeze closes the track and links each detection to its neighbours.  A
// frozen track never mutates its path again.
func (t *Track) Freeze() error {

	if t.frozen {
		return fmt.Errorf("track %d: %w", t.id, ErrTrackFrozen)
	}

	t.state = Closed

	for i := 0; i < len(t.path)-1; i++ {
		t.path[i].next = i + 1
		t.path[i+1].prev = i
	}

	t.frozen = true

	return nil
}
