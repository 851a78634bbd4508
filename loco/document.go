// Package loco maps frozen tracks to and from the LOCO/COCO style JSON
// document, flattening every track step into an annotation record.
package loco

import (
	"errors"
	"path/filepath"
	"sort"
	"strings"

	"github.com/swdee/go-trackbuilder/tracker"
)

var (
	// ErrMalformed is returned when a document cannot be parsed
	ErrMalformed = errors.New("malformed track document")
	// ErrUnknownImage is returned when a record refers to an image that is
	// not in the frame dictionary
	ErrUnknownImage = errors.New("unknown image")
)

const (
	// NoTrackmap is the reserved trackmap index written on export
	NoTrackmap = -1
	// SequenceGroup is the constant vid_id written on export
	SequenceGroup = 0
)

// Document is the LOCO/COCO style track file
type Document struct {
	Images      []Image      `json:"images"`
	Categories  []Category   `json:"categories,omitempty"`
	Annotations []Annotation `json:"annotations"`
}

// Image is an entry of the frame dictionary
type Image struct {
	ID         int    `json:"id"`
	FileName   string `json:"file_name"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	FrameIndex int    `json:"frame_index"`
}

// Category names a class id
type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Annotation is the serialized record of a single track step
type Annotation struct {
	ID            int           `json:"id"`
	ImageID       int           `json:"image_id"`
	CategoryID    int           `json:"category_id"`
	BBox          [4]float64    `json:"bbox"`
	Area          float64       `json:"area"`
	Segmentation  [][]float64   `json:"segmentation"`
	IsCrowd       int           `json:"iscrowd"`
	TrackID       int           `json:"track_id"`
	TrackmapIndex int           `json:"trackmap_index"`
	VidID         int           `json:"vid_id"`
	TrackColor    tracker.Color `json:"track_color"`
}

// FrameDict looks up images by file name and by id
type FrameDict struct {
	byName map[string]Image
	byID   map[int]Image
	images []Image
}

// NewFrameDict builds a frame dictionary from the given images
func NewFrameDict(images []Image) *FrameDict {

	fd := &FrameDict{
		byName: make(map[string]Image, len(images)),
		byID:   make(map[int]Image, len(images)),
	}

	for _, img := range images {
		fd.byName[img.FileName] = img
		fd.byName[filepath.Base(img.FileName)] = img
		fd.byID[img.ID] = img
		fd.images = append(fd.images, img)
	}

	return fd
}

// FrameDictFromLayers numbers the frame images of the layers in frame order
// starting at id 1
func FrameDictFromLayers(layers []tracker.Layer, f tracker.Frame) *FrameDict {

	sorted := append([]tracker.Layer(nil), layers...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Frame < sorted[j].Frame
	})

	images := make([]Image, 0, len(sorted))

	for i, l := range sorted {
		images = append(images, Image{
			ID:         i + 1,
			FileName:   l.Image,
			Width:      int(f.Width),
			Height:     int(f.Height),
			FrameIndex: l.Frame,
		})
	}

	return NewFrameDict(images)
}

// ByName returns the image with the given file name
func (fd *FrameDict) ByName(name string) (Image, bool) {

	if img, ok := fd.byName[name]; ok {
		return img, true
	}

	img, ok := fd.byName[filepath.Base(name)]
	return img, ok
}

// ByID returns the image with the given id
func (fd *FrameDict) ByID(id int) (Image, bool) {
	img, ok := fd.byID[id]
	return img, ok
}

// Images returns the images of the dictionary in insertion order
func (fd *FrameDict) Images() []Image {
	return fd.images
}

// Frame returns the frame size shared by the images, or a zero Frame if the
// images disagree or carry no size
func (fd *FrameDict) Frame() tracker.Frame {

	var f tracker.Frame

	for i, img := range fd.images {
		cur := tracker.Frame{Width: float64(img.Width), Height: float64(img.Height)}

		if i == 0 {
			f = cur
			continue
		}

		if cur != f {
			return tracker.Frame{}
		}
	}

	return f
}

// WithFrame returns a copy of the images with their size set to the frame,
// used after a transform re-fits the frame
func WithFrame(images []Image, f tracker.Frame) []Image {

	res := make([]Image, len(images))

	for i, img := range images {
		img.Width = int(f.Width)
		img.Height = int(f.Height)
		res[i] = img
	}

	return res
}

// CategoriesFromLabels returns one category per class label
func CategoriesFromLabels(labels []string) []Category {

	var cats []Category

	for i, l := range labels {
		if strings.TrimSpace(l) == "" {
			continue
		}
		cats = append(cats, Category{ID: i, Name: l})
	}

	return cats
}
