package render

import (
	"errors"
	"fmt"

	"github.com/swdee/go-trackbuilder/tracker"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ErrNoTracks is returned when plotting an empty track set
var ErrNoTracks = errors.New("no tracks to plot")

// maxLegend is the track count above which the legend is left off
const maxLegend = 20

// PlotOptions controls the trajectory chart
type PlotOptions struct {
	Title  string
	Width  vg.Length
	Height vg.Length
	// Frame bounds the axes to the image when set
	Frame tracker.Frame
}

// DefaultPlotOptions returns default chart settings
func DefaultPlotOptions() PlotOptions {
	return PlotOptions{
		Title:  "Track trajectories",
		Width:  10 * vg.Inch,
		Height: 8 * vg.Inch,
	}
}

// PlotTrajectories saves a chart with one line per track through its box
// centers.  The y axis is inverted so the chart reads like the image.  The
// image format follows the file extension of path.
func PlotTrajectories(tracks []*tracker.Track, path string, opts PlotOptions) error {

	if len(tracks) == 0 {
		return ErrNoTracks
	}

	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = "x (px)"
	p.Y.Label.Text = "y (px)"
	p.Y.Scale = plot.InvertedScale{Normalizer: plot.LinearScale{}}

	if opts.Frame.Valid() {
		p.X.Min, p.X.Max = 0, opts.Frame.Width
		p.Y.Min, p.Y.Max = 0, opts.Frame.Height
	}

	for _, t := range tracks {

		pts := trajectory(t)

		if len(pts) == 0 {
			continue
		}

		clr := trackColor(t.Color(), t.ID())

		line, err := plotter.NewLine(pts)

		if err != nil {
			return fmt.Errorf("track %d: %w", t.ID(), err)
		}

		line.Color = clr
		line.Width = vg.Points(1)

		start, err := plotter.NewScatter(pts[:1])

		if err != nil {
			return fmt.Errorf("track %d: %w", t.ID(), err)
		}

		start.Color = clr
		start.Radius = vg.Points(2)

		p.Add(line, start)

		if len(tracks) <= maxLegend {
			p.Legend.Add(fmt.Sprintf("track %d", t.ID()), line)
		}
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(opts.Width, opts.Height, path); err != nil {
		return fmt.Errorf("error saving plot: %w", err)
	}

	return nil
}

// trajectory returns the box centers of the track in frame order
func trajectory(t *tracker.Track) plotter.XYs {

	pts := make(plotter.XYs, 0, t.StepCount())

	for _, d := range t.Steps() {
		c := d.Center()
		pts = append(pts, plotter.XY{X: c.X, Y: c.Y})
	}

	return pts
}
