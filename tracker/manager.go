package tracker

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	// ErrNoLayers is returned when building tracks from an empty layer list
	ErrNoLayers = errors.New("no detection layers to process")
	// ErrTracksOpen is returned when linking while tracks are still open
	ErrTracksOpen = errors.New("tracks must be closed before linking")
	// ErrNotFrozen is returned when transforming tracks that are not frozen
	ErrNotFrozen = errors.New("tracks must be frozen before transforming")
	// ErrDuplicateTrack is returned when adding a track with an id in use
	ErrDuplicateTrack = errors.New("track id already exists")
)

// Layer is the set of detections observed in one frame
type Layer struct {
	// Frame is the frame index
	Frame int
	// Image is the source image identifier of the frame
	Image string
	// Detections observed in the frame, in input order
	Detections []*Detection
}

// ManagerConfig holds the tunable parameters of track association
type ManagerConfig struct {
	// MaxDistance is the plausibility bound, the maximum distance between a
	// track's predicted center and a detection center for them to be
	// associated.  Zero means unbounded.
	MaxDistance float64
	// Expiration is the number of frames an open track may go without an
	// update before it is closed.  Zero disables early expiry.
	Expiration int
	// MatchClass restricts association to detections of the track's class
	MatchClass bool
}

// Manager links per-frame detection layers into tracks and manages their
// lifecycle
type Manager struct {
	cfg ManagerConfig
	// matcher assigns detections to open tracks each frame
	matcher Matcher
	// colors assigns the rendering color of new tracks
	colors ColorPicker
	// frame is the size of the image frames
	frame Frame
	// layers observed, keyed by frame index
	layers map[int]Layer
	// tracks is the working set keyed by track id
	tracks map[int]*Track
	// trackIDCount is the id given to the next spawned track
	trackIDCount int
	// frameID is the index of the last processed frame
	frameID int
	// started is set once the first layer has been initialized
	started bool
}

// NewManager returns a Manager using the given matcher and color picker.  A
// nil matcher defaults to GreedyMatcher and nil colors to a PaletteColors
// seeded with zero.
func NewManager(cfg ManagerConfig, matcher Matcher, colors ColorPicker) *Manager {

	if matcher == nil {
		matcher = GreedyMatcher{}
	}

	if colors == nil {
		colors = NewPaletteColors(0)
	}

	return &Manager{
		cfg:          cfg,
		matcher:      matcher,
		colors:       colors,
		layers:       make(map[int]Layer),
		tracks:       make(map[int]*Track),
		trackIDCount: 1,
	}
}

// SetFrame sets the image frame size used by geometric transforms
func (m *Manager) SetFrame(f Frame) {
	m.frame = f
}

// Frame returns the image frame size
func (m *Manager) Frame() Frame {
	return m.frame
}

// Layer returns the input layer observed at the given frame index
func (m *Manager) Layer(frame int) (Layer, bool) {
	l, ok := m.layers[frame]
	return l, ok
}

// Build initializes tracks from the first layer and processes the remaining
// layers in order
func (m *Manager) Build(layers []Layer) error {

	if len(layers) == 0 {
		return ErrNoLayers
	}

	if err := m.Initialize(layers[0]); err != nil {
		return err
	}

	for _, layer := range layers[1:] {
		if err := m.ProcessLayer(layer); err != nil {
			return err
		}
	}

	return nil
}

// Initialize spawns one open track per detection of the first layer, with
// track ids assigned in layer order
func (m *Manager) Initialize(layer Layer) error {

	if m.started {
		return errors.New("manager already initialized")
	}

	m.started = true
	m.frameID = layer.Frame
	m.layers[layer.Frame] = layer

	for _, det := range layer.Detections {
		if _, err := m.spawn(det, layer.Frame); err != nil {
			return err
		}
	}

	return nil
}

// ProcessLayer associates the detections of the next frame with open tracks,
// spawning a new track for every detection left unmatched
func (m *Manager) ProcessLayer(layer Layer) error {

	if !m.started {
		return m.Initialize(layer)
	}

	if layer.Frame <= m.frameID {
		return fmt.Errorf("layer frame %d after frame %d: %w", layer.Frame,
			m.frameID, ErrFrameOrder)
	}

	m.frameID = layer.Frame
	m.layers[layer.Frame] = layer

	// close open tracks that have gone stale
	if m.cfg.Expiration > 0 {
		for _, t := range m.openTracks() {
			if !t.IsAlive(layer.Frame, m.cfg.Expiration) {
				t.Close()
			}
		}
	}

	open := m.openTracks()
	cost := m.costMatrix(open, layer.Detections)

	assigned, err := m.matcher.Match(cost, len(layer.Detections))

	if err != nil {
		return fmt.Errorf("error matching frame %d: %w", layer.Frame, err)
	}

	for j, det := range layer.Detections {

		if row := assigned[j]; row != Unmatched {
			if row < 0 || row >= len(open) {
				return fmt.Errorf("matcher returned track %d of %d at frame %d", row,
					len(open), layer.Frame)
			}
			if err := open[row].AddStep(det, layer.Frame); err != nil {
				return fmt.Errorf("error updating track at frame %d: %w", layer.Frame, err)
			}
			continue
		}

		if _, err := m.spawn(det, layer.Frame); err != nil {
			return err
		}
	}

	return nil
}

// costMatrix returns the distance between each open track's prediction and
// each detection center, with pairs outside the plausibility bound set to +Inf
func (m *Manager) costMatrix(open []*Track, dets []*Detection) [][]float64 {

	cost := make([][]float64, len(open))

	for i, t := range open {

		pred := t.PredictNextBox()
		cost[i] = make([]float64, len(dets))

		for j, det := range dets {

			d := pred.Distance(det.Center())

			// a NaN distance from non-finite geometry never satisfies the bound
			if math.IsNaN(d) || (m.cfg.MaxDistance > 0 && d > m.cfg.MaxDistance) ||
				(m.cfg.MatchClass && t.Class() != det.Class()) {
				d = math.Inf(1)
			}

			cost[i][j] = d
		}
	}

	return cost
}

// spawn creates a new open track seeded with the detection
func (m *Manager) spawn(det *Detection, frame int) (*Track, error) {

	t := NewTrack(m.trackIDCount, det.Class(), m.colors.Next())

	if err := t.AddStep(det, frame); err != nil {
		return nil, err
	}

	m.tracks[t.ID()] = t
	m.trackIDCount++

	return t, nil
}

// AddTrack adds an existing track to the working set, eg: one rebuilt from an
// exported file.  Tracks spawned afterwards get ids above every id added.
func (m *Manager) AddTrack(t *Track) error {

	if _, exists := m.tracks[t.ID()]; exists {
		return fmt.Errorf("track %d: %w", t.ID(), ErrDuplicateTrack)
	}

	m.tracks[t.ID()] = t

	if t.ID() >= m.trackIDCount {
		m.trackIDCount = t.ID() + 1
	}

	return nil
}

// NextColor returns a color from the manager's color picker
func (m *Manager) NextColor() Color {
	return m.colors.Next()
}

// CloseAll marks every open track as closed
func (m *Manager) CloseAll() {
	for _, t := range m.tracks {
		t.Close()
	}
}

// LinkAll freezes every closed track with at least minLength steps and drops
// all shorter tracks from the working set
func (m *Manager) LinkAll(minLength int) error {

	for _, t := range m.tracks {
		if t.State() == Open {
			return fmt.Errorf("track %d: %w", t.ID(), ErrTracksOpen)
		}
	}

	for _, t := range m.Tracks() {

		if t.StepCount() < minLength {
			delete(m.tracks, t.ID())
			continue
		}

		if t.IsFrozen() {
			continue
		}

		if err := t.Freeze(); err != nil {
			return err
		}
	}

	return nil
}

// Finalize closes all tracks and links those with at least minLength steps
func (m *Manager) Finalize(minLength int) error {
	m.CloseAll()
	return m.LinkAll(minLength)
}

// Tracks returns the working set of tracks ordered by ascending id
func (m *Manager) Tracks() []*Track {

	res := make([]*Track, 0, len(m.tracks))

	for _, t := range m.tracks {
		res = append(res, t)
	}

	sort.Slice(res, func(i, j int) bool {
		return res[i].ID() < res[j].ID()
	})

	return res
}

// Track returns the track with the given id
func (m *Manager) Track(id int) (*Track, bool) {
	t, ok := m.tracks[id]
	return t, ok
}

// openTracks returns the open tracks ordered by ascending id
func (m *Manager) openTracks() []*Track {

	var res []*Track

	for _, t := range m.Tracks() {
		if t.State() == Open {
			res = append(res, t)
		}
	}

	return res
}

// RotateAll rotates the geometry of every frozen track by deg degrees about
// the frame center.  Nothing is changed unless every track can be rotated.
func (m *Manager) RotateAll(deg float64) error {

	tr, err := Rotation(deg, m.frame)

	if err != nil {
		return err
	}

	return m.transformAll(tr)
}

// ReflectAll mirrors the geometry of every frozen track across the given
// mid-line of the frame.  Nothing is changed unless every track can be
// reflected.
func (m *Manager) ReflectAll(axis Axis) error {

	tr, err := Reflection(axis, m.frame)

	if err != nil {
		return err
	}

	return m.transformAll(tr)
}

// transformAll replaces the box of every detection on every track with its
// transformed box, leaving identity, order and linkage untouched
func (m *Manager) transformAll(tr Transform) error {

	tracks := m.Tracks()

	for _, t := range tracks {
		if !t.IsFrozen() {
			return fmt.Errorf("track %d: %w", t.ID(), ErrNotFrozen)
		}
	}

	for _, t := range tracks {
		for _, det := range t.path {
			det.box = tr.Apply(det.box)
		}
	}

	m.frame = tr.Frame()

	return nil
}
