package trackbuilder

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/swdee/go-trackbuilder/loco"
	"github.com/swdee/go-trackbuilder/render"
	"github.com/swdee/go-trackbuilder/tracker"
	"gocv.io/x/gocv"
)

// ImageDirs names the source and output directories of frame images to
// transform alongside their tracks.  Images are left alone when either is
// empty.
type ImageDirs struct {
	In  string
	Out string
}

// enabled returns whether images should be transformed
func (d ImageDirs) enabled() bool {
	return d.In != "" && d.Out != ""
}

// RotateTracks rotates every track in the document at inPath by deg degrees
// counter-clockwise about the frame center and writes the result to outPath.
// Track ids, colors and step order are unchanged.
func RotateTracks(inPath, outPath string, deg float64, images ImageDirs,
	opts Options) (Summary, error) {

	log := opts.logger().WithFields(logrus.Fields{"op": "rotate", "degrees": deg})

	return transformTracks(inPath, outPath, images, opts, log,
		func(m *tracker.Manager) error {
			return m.RotateAll(deg)
		},
		func(img gocv.Mat) (gocv.Mat, error) {
			return render.RotateImage(img, deg)
		})
}

// ReflectTracks mirrors every track in the document at inPath across the
// given mid-line of the frame and writes the result to outPath
func ReflectTracks(inPath, outPath string, axis tracker.Axis, images ImageDirs,
	opts Options) (Summary, error) {

	log := opts.logger().WithFields(logrus.Fields{"op": "reflect", "axis": axis.String()})

	return transformTracks(inPath, outPath, images, opts, log,
		func(m *tracker.Manager) error {
			return m.ReflectAll(axis)
		},
		func(img gocv.Mat) (gocv.Mat, error) {
			return render.ReflectImage(img, axis)
		})
}

// transformTracks loads and freezes every track of the document, applies the
// track transform and writes the document.  Nothing is written unless every
// track was transformed.
func transformTracks(inPath, outPath string, images ImageDirs, opts Options,
	log logrus.FieldLogger, apply func(*tracker.Manager) error,
	applyImage func(gocv.Mat) (gocv.Mat, error)) (Summary, error) {

	if err := checkClobber(inPath, outPath); err != nil {
		return Summary{}, err
	}

	if images.enabled() {
		if err := checkClobber(images.In, images.Out); err != nil {
			return Summary{}, err
		}
	}

	ld, err := loadTracks(inPath, opts)

	if err != nil {
		return Summary{}, err
	}

	// transforms keep every track regardless of length
	if err := ld.manager.Finalize(0); err != nil {
		return Summary{}, err
	}

	if err := apply(ld.manager); err != nil {
		return Summary{}, fmt.Errorf("error transforming tracks: %w", err)
	}

	fd := loco.NewFrameDict(loco.WithFrame(ld.frames.Images(), ld.manager.Frame()))

	doc, err := exportDocument(ld.manager, fd, ld.doc.Categories)

	if err != nil {
		return Summary{}, err
	}

	if err := writeDocument(outPath, doc, ld.raw); err != nil {
		return Summary{}, err
	}

	sum := summarize(ld.manager, len(fd.Images()))
	log.WithFields(sum.Fields()).WithField("out", outPath).Info("wrote transformed tracks")

	if !images.enabled() {
		return sum, nil
	}

	names := make([]string, 0, len(fd.Images()))

	for _, img := range fd.Images() {
		names = append(names, img.FileName)
	}

	if err := render.TransformImages(images.In, images.Out, names, applyImage); err != nil {
		return sum, fmt.Errorf("error transforming images: %w", err)
	}

	log.WithFields(logrus.Fields{"images": len(names), "dir": images.Out}).
		Info("wrote transformed images")

	return sum, nil
}
