package trackbuilder

import (
	"github.com/sirupsen/logrus"
	"github.com/swdee/go-trackbuilder/render"
)

// RenderTracks draws every track of the document at inPath onto the frame
// images found in imageDir, writing the rendered images to outDir using the
// given number of parallel workers.  It returns the number of images
// written.
func RenderTracks(inPath, imageDir, outDir string, workers int, opts Options) (int, error) {

	if err := checkClobber(imageDir, outDir); err != nil {
		return 0, err
	}

	log := opts.logger().WithField("op", "draw")

	ld, err := loadTracks(inPath, opts)

	if err != nil {
		return 0, err
	}

	if err := ld.manager.Finalize(0); err != nil {
		return 0, err
	}

	frames := make([]render.FrameImage, 0, len(ld.frames.Images()))

	for _, img := range ld.frames.Images() {
		frames = append(frames, render.FrameImage{Frame: img.FrameIndex, Image: img.FileName})
	}

	pool := render.NewPool(workers, render.NewDrawer(imageDir, outDir, classNames(ld, opts)))
	defer pool.Close()

	n, err := pool.DrawAll(ld.manager.Tracks(), frames)

	if err != nil {
		return n, err
	}

	log.WithFields(logrus.Fields{
		"images":  n,
		"workers": pool.Size(),
		"dir":     outDir,
	}).Info("rendered tracks")

	return n, nil
}

// classNames returns labels indexed by class id, taken from the document
// categories when the options carry none
func classNames(ld loaded, opts Options) []string {

	if len(opts.Labels) > 0 || len(ld.doc.Categories) == 0 {
		return opts.Labels
	}

	top := 0

	for _, c := range ld.doc.Categories {
		if c.ID > top {
			top = c.ID
		}
	}

	names := make([]string, top+1)

	for _, c := range ld.doc.Categories {
		if c.ID >= 0 {
			names[c.ID] = c.Name
		}
	}

	return names
}

// PlotTracks writes a chart of every track trajectory in the document at
// inPath to outPath
func PlotTracks(inPath, outPath string, opts Options) (Summary, error) {

	if err := checkClobber(inPath, outPath); err != nil {
		return Summary{}, err
	}

	ld, err := loadTracks(inPath, opts)

	if err != nil {
		return Summary{}, err
	}

	if err := ld.manager.Finalize(0); err != nil {
		return Summary{}, err
	}

	plotOpts := render.DefaultPlotOptions()
	plotOpts.Frame = ld.manager.Frame()

	if err := render.PlotTrajectories(ld.manager.Tracks(), outPath, plotOpts); err != nil {
		return Summary{}, err
	}

	sum := summarize(ld.manager, len(ld.frames.Images()))
	opts.logger().WithField("op", "plot").WithFields(sum.Fields()).
		WithField("out", outPath).Info("wrote trajectory plot")

	return sum, nil
}
