package render

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/swdee/go-trackbuilder/tracker"
	"gocv.io/x/gocv"
)

var (
	// ErrImageRead is returned when a frame image can not be decoded
	ErrImageRead = errors.New("error reading image")
	// ErrImageWrite is returned when a rendered image can not be encoded
	ErrImageWrite = errors.New("error writing image")
)

// FrameImage names the image of a single frame
type FrameImage struct {
	Frame int
	Image string
}

// Drawer renders frozen tracks onto the images of their frames
type Drawer struct {
	// ImageDir holds the source frame images
	ImageDir string
	// OutDir receives the rendered images under the same file names
	OutDir string
	// ClassNames labels boxes by class, may be empty
	ClassNames    []string
	Font          Font
	Style         TrailStyle
	LineThickness int
}

// NewDrawer returns a Drawer with the default font and trail style
func NewDrawer(imageDir, outDir string, classNames []string) *Drawer {
	return &Drawer{
		ImageDir:      imageDir,
		OutDir:        outDir,
		ClassNames:    classNames,
		Font:          DefaultFont(),
		Style:         DefaultTrailStyle(),
		LineThickness: 2,
	}
}

// DrawFrame draws the tracks seen at the frame onto img
func (d *Drawer) DrawFrame(img *gocv.Mat, tracks []*tracker.Track, frame int) {
	Trail(img, tracks, frame, d.Style)
	TrackBoxes(img, tracks, frame, d.ClassNames, d.Font, d.LineThickness)
}

// DrawAll reads each frame image, draws the tracks on it and writes it to
// OutDir.  It returns the number of images written.
func (d *Drawer) DrawAll(tracks []*tracker.Track, frames []FrameImage) (int, error) {

	if err := d.prepareOutput(); err != nil {
		return 0, err
	}

	written := 0

	for _, f := range frames {

		src := filepath.Join(d.ImageDir, filepath.Base(f.Image))
		dst := filepath.Join(d.OutDir, filepath.Base(f.Image))

		if err := d.drawFile(src, dst, tracks, f.Frame); err != nil {
			return written, err
		}

		written++
	}

	return written, nil
}

// prepareOutput creates the output directory
func (d *Drawer) prepareOutput() error {
	if err := os.MkdirAll(d.OutDir, 0o755); err != nil {
		return fmt.Errorf("error creating output directory: %w", err)
	}
	return nil
}

// drawFile renders a single frame image from src to dst
func (d *Drawer) drawFile(src, dst string, tracks []*tracker.Track, frame int) error {

	img := gocv.IMRead(src, gocv.IMReadColor)

	if img.Empty() {
		return fmt.Errorf("%s: %w", src, ErrImageRead)
	}

	defer img.Close()

	d.DrawFrame(&img, tracks, frame)

	if ok := gocv.IMWrite(dst, img); !ok {
		return fmt.Errorf("%s: %w", dst, ErrImageWrite)
	}

	return nil
}
