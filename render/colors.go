package render

import (
	"image/color"

	"github.com/swdee/go-trackbuilder/tracker"
)

var (
	Black  = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Yellow = color.RGBA{R: 255, G: 255, B: 50, A: 255}
	Pink   = color.RGBA{R: 255, G: 0, B: 255, A: 255}

	// plotPalette colors trajectories on charts when a track carries no
	// color of its own
	plotPalette = []color.RGBA{
		{R: 255, G: 56, B: 56, A: 255},   // #FF3838
		{R: 255, G: 112, B: 31, A: 255},  // #FF701F
		{R: 72, G: 249, B: 10, A: 255},   // #48F90A
		{R: 0, G: 194, B: 255, A: 255},   // #00C2FF
		{R: 132, G: 56, B: 255, A: 255},  // #8438FF
		{R: 255, G: 55, B: 199, A: 255},  // #FF37C7
		{R: 44, G: 153, B: 168, A: 255},  // #2C99A8
		{R: 146, G: 204, B: 23, A: 255},  // #92CC17
	}
)

// trackColor returns the color a track is drawn with
func trackColor(c tracker.Color, id int) color.RGBA {
	if c == (tracker.Color{}) {
		if id < 0 {
			id = -id
		}
		return plotPalette[id%len(plotPalette)]
	}
	return c.RGBA()
}
