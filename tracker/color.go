package tracker

import (
	"image/color"
	"math/rand/v2"

	"golang.org/x/image/colornames"
)

// Color is an RGB triple used when rendering a track
type Color [3]uint8

// RGBA converts the color to an opaque color.RGBA
func (c Color) RGBA() color.RGBA {
	return color.RGBA{R: c[0], G: c[1], B: c[2], A: 255}
}

// ColorPicker assigns a color to each newly created track
type ColorPicker interface {
	Next() Color
}

// PaletteColors picks track colors at random from the named SVG color set
// using its own seeded generator, so color choice is reproducible and does
// not touch any shared random state
type PaletteColors struct {
	rng   *rand.Rand
	names []string
}

// NewPaletteColors returns a PaletteColors seeded with the given seed
func NewPaletteColors(seed uint64) *PaletteColors {
	return &PaletteColors{
		rng:   rand.New(rand.NewPCG(seed, seed)),
		names: colornames.Names,
	}
}

// Next returns the next random named color
func (p *PaletteColors) Next() Color {
	c := colornames.Map[p.names[p.rng.IntN(len(p.names))]]
	return Color{c.R, c.G, c.B}
}

// FixedColor always returns the same color
type FixedColor Color

// Next returns the fixed color
func (f FixedColor) Next() Color {
	return Color(f)
}
