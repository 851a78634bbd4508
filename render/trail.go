package render

import (
	"image"
	"image/color"

	"github.com/swdee/go-trackbuilder/tracker"
	"gocv.io/x/gocv"
)

// TrailStyle defines the parameters used for rendering the trail style
type TrailStyle struct {
	// LineSame defines if the color of the history line should be the
	// same color as that of the bounding box.  If set to false then use
	// the color specified at LineColor
	LineSame      bool
	LineColor     color.RGBA
	LineThickness int
	// CircleRadius of the filled circle drawn at the box center
	CircleRadius int
	// History draws the path travelled up to the frame as well as the link
	// to the next box
	History bool
}

// DefaultTrailStyle returns default trail style settings
func DefaultTrailStyle() TrailStyle {
	return TrailStyle{
		LineSame:      false,
		LineColor:     Yellow,
		LineThickness: 1,
		CircleRadius:  3,
		History:       true,
	}
}

// Trail draws for every track step seen at the given frame a filled circle at
// its center and a line to the center of the next box on the track
func Trail(img *gocv.Mat, tracks []*tracker.Track, frame int, style TrailStyle) {

	for _, t := range tracks {

		det := t.StepAt(frame)

		if det == nil {
			continue
		}

		objClr := trackColor(t.Color(), t.ID())
		lineClr := objClr

		if !style.LineSame {
			lineClr = style.LineColor
		}

		if style.History {
			points := t.TrailAt(frame)

			for i := 1; i < len(points); i++ {
				gocv.Line(img, toPt(points[i-1]), toPt(points[i]), lineClr,
					style.LineThickness)
			}
		}

		center := toPt(det.Center())

		if next := t.NextOf(det); next != nil {
			gocv.Line(img, center, toPt(next.Center()), objClr, style.LineThickness)
		}

		gocv.Circle(img, center, style.CircleRadius, objClr, -1)
	}
}

// toPt rounds a point to pixel coordinates
func toPt(p tracker.Point) image.Point {
	return image.Pt(int(p.X+0.5), int(p.Y+0.5))
}
