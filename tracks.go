package trackbuilder

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/swdee/go-trackbuilder/annotation"
	"github.com/swdee/go-trackbuilder/loco"
	"github.com/swdee/go-trackbuilder/tracker"
)

// Summary reports the track set an operation produced
type Summary struct {
	Frames int
	Tracks int
	Steps  int
	Frame  tracker.Frame
}

// Fields returns the summary as log fields
func (s Summary) Fields() logrus.Fields {
	return logrus.Fields{
		"frames": s.Frames,
		"tracks": s.Tracks,
		"steps":  s.Steps,
	}
}

// summarize counts the tracks and steps of the manager's working set
func summarize(m *tracker.Manager, frames int) Summary {

	s := Summary{Frames: frames, Frame: m.Frame()}

	for _, t := range m.Tracks() {
		s.Tracks++
		s.Steps += t.StepCount()
	}

	return s
}

// BuildTracks loads the detection layers named by the file list at listPath,
// links them into tracks and writes the frozen tracks to outPath
func BuildTracks(listPath, outPath string, opts Options) (Summary, error) {

	if err := checkClobber(listPath, outPath); err != nil {
		return Summary{}, err
	}

	cfg := opts.config()
	log := opts.logger().WithField("op", "build")

	if err := cfg.Validate(); err != nil {
		return Summary{}, err
	}

	layers, err := annotation.Load(listPath, annotation.Options{
		Frame:      cfg.Frame(),
		Normalized: cfg.Normalized,
		ImageExt:   cfg.ImageExt,
	})

	if err != nil {
		return Summary{}, fmt.Errorf("error loading detection layers: %w", err)
	}

	log.WithField("layers", len(layers)).Info("loaded detection layers")

	m, err := cfg.NewManager()

	if err != nil {
		return Summary{}, err
	}

	// layers are processed strictly in frame order
	for _, layer := range layers {
		if err := m.ProcessLayer(layer); err != nil {
			return Summary{}, err
		}

		log.WithFields(logrus.Fields{
			"frame":      layer.Frame,
			"detections": len(layer.Detections),
		}).Debug("processed layer")
	}

	if err := m.Finalize(cfg.MinLength); err != nil {
		return Summary{}, err
	}

	fd := loco.FrameDictFromLayers(layers, m.Frame())

	doc, err := exportDocument(m, fd, loco.CategoriesFromLabels(opts.Labels))

	if err != nil {
		return Summary{}, err
	}

	if err := writeDocument(outPath, doc, nil); err != nil {
		return Summary{}, err
	}

	sum := summarize(m, len(layers))
	log.WithFields(sum.Fields()).WithField("out", outPath).Info("wrote tracks")

	return sum, nil
}

// ReloadTracks reads an existing track document, rebuilds its tracks so the
// motion state is recomputed, links them with the configured minimum length
// and writes the result to outPath.  Keys of the input document other than
// its images, categories and annotations are kept.
func ReloadTracks(inPath, outPath string, opts Options) (Summary, error) {

	if err := checkClobber(inPath, outPath); err != nil {
		return Summary{}, err
	}

	cfg := opts.config()
	log := opts.logger().WithField("op", "reload")

	ld, err := loadTracks(inPath, opts)

	if err != nil {
		return Summary{}, err
	}

	if err := ld.manager.Finalize(cfg.MinLength); err != nil {
		return Summary{}, err
	}

	doc, err := exportDocument(ld.manager, ld.frames, ld.categories(opts))

	if err != nil {
		return Summary{}, err
	}

	if err := writeDocument(outPath, doc, ld.raw); err != nil {
		return Summary{}, err
	}

	sum := summarize(ld.manager, len(ld.frames.Images()))
	log.WithFields(sum.Fields()).WithField("out", outPath).Info("wrote reloaded tracks")

	return sum, nil
}

// loaded is a track document rebuilt into a manager
type loaded struct {
	manager *tracker.Manager
	frames  *loco.FrameDict
	doc     loco.Document
	raw     []byte
}

// categories returns the document categories, or ones named by the labels
// when the document has none
func (l loaded) categories(opts Options) []loco.Category {
	if len(l.doc.Categories) > 0 {
		return l.doc.Categories
	}
	return loco.CategoriesFromLabels(opts.Labels)
}

// loadTracks reads the track document at path and imports its tracks into a
// new manager.  The tracks are left open.
func loadTracks(path string, opts Options) (loaded, error) {

	cfg := opts.config()

	if err := cfg.Validate(); err != nil {
		return loaded{}, err
	}

	doc, raw, err := loco.ReadFile(path)

	if err != nil {
		return loaded{}, err
	}

	m, err := cfg.NewManager()

	if err != nil {
		return loaded{}, err
	}

	fd := loco.NewFrameDict(doc.Images)

	// the document's frame size wins over the configured one
	if f := fd.Frame(); f.Valid() {
		m.SetFrame(f)
	}

	if err := loco.Import(doc.Annotations, fd, m); err != nil {
		return loaded{}, fmt.Errorf("error importing %s: %w", path, err)
	}

	opts.logger().WithFields(logrus.Fields{
		"in":          path,
		"images":      len(doc.Images),
		"annotations": len(doc.Annotations),
	}).Debug("imported track document")

	return loaded{manager: m, frames: fd, doc: doc, raw: raw}, nil
}

// exportDocument flattens the manager's frozen tracks into a document
func exportDocument(m *tracker.Manager, fd *loco.FrameDict,
	cats []loco.Category) (loco.Document, error) {

	anns, err := loco.Export(m.Tracks(), fd)

	if err != nil {
		return loco.Document{}, fmt.Errorf("error exporting tracks: %w", err)
	}

	return loco.Document{
		Images:      fd.Images(),
		Categories:  cats,
		Annotations: anns,
	}, nil
}

// writeDocument writes the document to path
func writeDocument(path string, doc loco.Document, base []byte) error {

	out, err := loco.Marshal(doc, base)

	if err != nil {
		return err
	}

	if err := os.WriteFile(path, append(out, '\n'), 0o644); err != nil {
		return fmt.Errorf("error writing track file: %w", err)
	}

	return nil
}
