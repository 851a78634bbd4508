// Package annotation loads per-frame detection layers from YOLO style text
// annotation files listed in a file list.
package annotation

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/swdee/go-trackbuilder/tracker"
)

var (
	// ErrNoLayers is returned when a file list names no annotation files
	ErrNoLayers = errors.New("no annotation files listed")
	// ErrMalformed is returned for an annotation line or file name that can
	// not be parsed
	ErrMalformed = errors.New("malformed annotation")
)

// Options controls how annotation files are interpreted
type Options struct {
	// Frame is the image frame size, used to scale normalized coordinates
	Frame tracker.Frame
	// Normalized is set when box coordinates are fractions of the frame size
	Normalized bool
	// ImageExt replaces the annotation file extension to name the image of
	// each frame, eg: ".jpg"
	ImageExt string
}

// Load reads the file list at path and parses every listed annotation file
// into a detection layer, in increasing frame order
func Load(path string, opts Options) ([]tracker.Layer, error) {

	files, err := LoadFileList(path)

	if err != nil {
		return nil, err
	}

	return LoadLayers(files, opts)
}

// LoadFileList reads a file list with one annotation file path per line and
// returns the paths sorted by frame index.  Relative paths are resolved
// against the directory of the list.
func LoadFileList(path string) ([]string, error) {

	f, err := os.Open(path)

	if err != nil {
		return nil, fmt.Errorf("error opening file list: %w", err)
	}

	defer f.Close()

	dir := filepath.Dir(path)
	scanner := bufio.NewScanner(f)

	var files []string

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !filepath.IsAbs(line) {
			line = filepath.Join(dir, line)
		}

		files = append(files, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file list: %w", err)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoLayers)
	}

	return SortByFrame(files)
}

// SortByFrame orders annotation file paths by their frame index, rejecting
// names without one and frame indices that repeat
func SortByFrame(files []string) ([]string, error) {

	type indexed struct {
		path  string
		frame int
	}

	list := make([]indexed, 0, len(files))
	seen := make(map[int]string, len(files))

	for _, p := range files {
		frame, err := FrameIndex(p)

		if err != nil {
			return nil, err
		}

		if other, dup := seen[frame]; dup {
			return nil, fmt.Errorf("frame %d named by %s and %s: %w", frame, other, p,
				ErrMalformed)
		}

		seen[frame] = p
		list = append(list, indexed{path: p, frame: frame})
	}

	sort.Slice(list, func(i, j int) bool {
		return list[i].frame < list[j].frame
	})

	res := make([]string, len(list))

	for i, l := range list {
		res[i] = l.path
	}

	return res, nil
}

// FrameIndex returns the numeric middle component of a file named
// name.NNN.ext
func FrameIndex(path string) (int, error) {

	parts := strings.Split(filepath.Base(path), ".")

	if len(parts) < 3 {
		return 0, fmt.Errorf("%s has no frame index: %w", path, ErrMalformed)
	}

	frame, err := strconv.Atoi(parts[len(parts)-2])

	if err != nil || frame < 0 {
		return 0, fmt.Errorf("%s has no frame index: %w", path, ErrMalformed)
	}

	return frame, nil
}

// ImageName returns the image identifier of an annotation file, its base
// name with the extension replaced
func ImageName(path, ext string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ext
}

// LoadLayers parses each annotation file into a detection layer.  The files
// must already be in frame order.
func LoadLayers(files []string, opts Options) ([]tracker.Layer, error) {

	if len(files) == 0 {
		return nil, ErrNoLayers
	}

	if opts.Normalized && !opts.Frame.Valid() {
		return nil, fmt.Errorf("normalized coordinates need a frame size: %w",
			tracker.ErrInvalidFrame)
	}

	layers := make([]tracker.Layer, 0, len(files))

	for _, p := range files {

		frame, err := FrameIndex(p)

		if err != nil {
			return nil, err
		}

		layer, err := loadLayer(p, frame, opts)

		if err != nil {
			return nil, err
		}

		layers = append(layers, layer)
	}

	return layers, nil
}

// loadLayer opens and parses a single annotation file
func loadLayer(path string, frame int, opts Options) (tracker.Layer, error) {

	f, err := os.Open(path)

	if err != nil {
		return tracker.Layer{}, fmt.Errorf("error opening annotation file: %w", err)
	}

	defer f.Close()

	layer, err := ParseLayer(f, frame, ImageName(path, opts.ImageExt), opts)

	if err != nil {
		return tracker.Layer{}, fmt.Errorf("%s: %w", path, err)
	}

	return layer, nil
}

// ParseLayer reads YOLO lines "class cx cy w h [score]" into the detections
// of one frame, keeping line order
func ParseLayer(r io.Reader, frame int, image string, opts Options) (tracker.Layer, error) {

	layer := tracker.Layer{Frame: frame, Image: image}
	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())

		if len(fields) == 0 {
			continue
		}

		det, err := parseLine(fields, frame, image, opts)

		if err != nil {
			return tracker.Layer{}, fmt.Errorf("line %d: %w", lineNo, err)
		}

		layer.Detections = append(layer.Detections, det)
	}

	if err := scanner.Err(); err != nil {
		return tracker.Layer{}, fmt.Errorf("error reading annotations: %w", err)
	}

	return layer, nil
}

// parseLine converts the fields of a single YOLO line into a detection
func parseLine(fields []string, frame int, image string, opts Options) (*tracker.Detection, error) {

	if len(fields) != 5 && len(fields) != 6 {
		return nil, fmt.Errorf("expected 5 or 6 fields, got %d: %w", len(fields), ErrMalformed)
	}

	class, err := strconv.Atoi(fields[0])

	if err != nil {
		return nil, fmt.Errorf("class %q: %w", fields[0], ErrMalformed)
	}

	var v [4]float64

	for i := range v {
		v[i], err = strconv.ParseFloat(fields[i+1], 64)

		if err != nil || math.IsNaN(v[i]) || math.IsInf(v[i], 0) {
			return nil, fmt.Errorf("coordinate %q: %w", fields[i+1], ErrMalformed)
		}
	}

	// score is accepted but not used for association
	if len(fields) == 6 {
		if score, err := strconv.ParseFloat(fields[5], 64); err != nil || math.IsNaN(score) {
			return nil, fmt.Errorf("score %q: %w", fields[5], ErrMalformed)
		}
	}

	if v[2] < 0 || v[3] < 0 {
		return nil, fmt.Errorf("negative box size: %w", ErrMalformed)
	}

	if opts.Normalized {
		v[0] *= opts.Frame.Width
		v[1] *= opts.Frame.Height
		v[2] *= opts.Frame.Width
		v[3] *= opts.Frame.Height
	}

	return tracker.NewDetection(frame, image, class, tracker.NewBox(v[0], v[1], v[2], v[3])), nil
}
