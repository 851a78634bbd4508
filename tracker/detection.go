package tracker

// noLink marks an unset owner or linkage index
const noLink = -1

// Detection represents a single bounding box observation at one frame
type Detection struct {
	// frame is the frame index the detection was observed at
	frame int
	// image is the source image identifier, eg: file name
	image string
	// class is the object class id
	class int
	// box is the bounding box geometry
	box Box
	// owner is the id of the Track the detection was appended to
	owner    int
	hasOwner bool
	// prev and next are indexes into the owning Track's path, set once
	// when the Track is frozen
	prev int
	next int
}

// NewDetection is a constructor function for the Detection struct
func NewDetection(frame int, image string, class int, box Box) *Detection {
	return &Detection{
		frame: frame,
		image: image,
		class: class,
		box:   box,
		prev:  noLink,
		next:  noLink,
	}
}

// Frame returns the frame index of the detection
func (d *Detection) Frame() int {
	return d.frame
}

// Image returns the source image identifier
func (d *Detection) Image() string {
	return d.image
}

// Class returns the object class id
func (d *Detection) Class() int {
	return d.class
}

// Box returns the bounding box of the detection
func (d *Detection) Box() Box {
	return d.box
}

// Center returns the center coordinates of the bounding box
func (d *Detection) Center() Point {
	return d.box.Center()
}

// Corners returns the top-left and bottom-right corners of the bounding box
func (d *Detection) Corners() (Point, Point) {
	return d.box.Corners()
}

// Owner returns the id of the owning Track and false if the detection has
// not been appended to a Track yet
func (d *Detection) Owner() (int, bool) {
	return d.owner, d.hasOwner
}

// Prev returns the path index of the preceding detection in the owning Track,
// or -1 if unset
func (d *Detection) Prev() int {
	return d.prev
}

// Next returns the path index of the following detection in the owning Track,
// or -1 if unset
func (d *Detection) Next() int {
	return d.next
}

// HasPrev reports whether the detection is linked to a predecessor
func (d *Detection) HasPrev() bool {
	return d.prev != noLink
}

// HasNext reports whether the detection is linked to a successor
func (d *Detection) HasNext() bool {
	return d.next != noLink
}
