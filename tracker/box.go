package tracker

import (
	"gonum.org/v1/gonum/floats"
)

// Point represents an x,y coordinate in image space
type Point struct {
	X, Y float64
}

// Distance returns the euclidean distance between two points
func (p Point) Distance(o Point) float64 {
	return floats.Distance([]float64{p.X, p.Y}, []float64{o.X, o.Y}, 2)
}

// Box represents a bounding box with Cxcywh (center x, center y, width, height)
// format
type Box struct {
	Cxcywh [4]float64
}

// NewBox creates a new Box with the given center coordinates and size
func NewBox(cx, cy, width, height float64) Box {
	return Box{
		Cxcywh: [4]float64{cx, cy, width, height},
	}
}

// BoxFromCorners creates a Box from its top-left and bottom-right corners
func BoxFromCorners(tl, br Point) Box {
	return NewBox((tl.X+br.X)/2, (tl.Y+br.Y)/2, br.X-tl.X, br.Y-tl.Y)
}

// CX returns the center x coordinate of the box
func (b Box) CX() float64 {
	return b.Cxcywh[0]
}

// CY returns the center y coordinate of the box
func (b Box) CY() float64 {
	return b.Cxcywh[1]
}

// Width returns the width of the box
func (b Box) Width() float64 {
	return b.Cxcywh[2]
}

// Height returns the height of the box
func (b Box) Height() float64 {
	return b.Cxcywh[3]
}

// Area returns width * height
func (b Box) Area() float64 {
	return b.Cxcywh[2] * b.Cxcywh[3]
}

// Center returns the center point of the box
func (b Box) Center() Point {
	return Point{X: b.Cxcywh[0], Y: b.Cxcywh[1]}
}

// Corners returns the top-left and bottom-right corners of the box
func (b Box) Corners() (Point, Point) {
	hw := b.Cxcywh[2] / 2
	hh := b.Cxcywh[3] / 2

	return Point{X: b.Cxcywh[0] - hw, Y: b.Cxcywh[1] - hh},
		Point{X: b.Cxcywh[0] + hw, Y: b.Cxcywh[1] + hh}
}

// Slice returns the box as a [cx, cy, w, h] slice
func (b Box) Slice() []float64 {
	return []float64{b.Cxcywh[0], b.Cxcywh[1], b.Cxcywh[2], b.Cxcywh[3]}
}
