package tracker

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrInvalidAngle is returned for a rotation angle that is not a finite
	// number of degrees
	ErrInvalidAngle = errors.New("invalid rotation angle")
	// ErrInvalidAxis is returned for an unrecognized reflection axis
	ErrInvalidAxis = errors.New("invalid reflection axis")
	// ErrInvalidFrame is returned when a transform needs the frame size but
	// none is known
	ErrInvalidFrame = errors.New("frame width and height must be positive")
)

// Frame is the size of the image frames detections were observed in
type Frame struct {
	Width, Height float64
}

// Valid returns whether both dimensions are positive
func (f Frame) Valid() bool {
	return f.Width > 0 && f.Height > 0
}

// Axis is the mid-line of the frame a reflection is made across
type Axis int

const (
	// Horizontal reflects across the horizontal mid-line, flipping y
	Horizontal Axis = 1
	// Vertical reflects across the vertical mid-line, flipping x
	Vertical Axis = 2
)

// String returns the name of the axis
func (a Axis) String() string {
	switch a {
	case Horizontal:
		return "horizontal"
	case Vertical:
		return "vertical"
	default:
		return fmt.Sprintf("Axis(%d)", int(a))
	}
}

// ParseAxis parses an axis name, eg: "horizontal", "h", "vertical", "v"
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "horizontal", "h":
		return Horizontal, nil
	case "vertical", "v":
		return Vertical, nil
	default:
		return 0, fmt.Errorf("%q: %w", s, ErrInvalidAxis)
	}
}

// ParseDegrees parses a rotation angle given in degrees
func ParseDegrees(s string) (float64, error) {

	deg, err := strconv.ParseFloat(strings.TrimSpace(s), 64)

	if err != nil {
		return 0, fmt.Errorf("%q: %w", s, ErrInvalidAngle)
	}

	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return 0, fmt.Errorf("%q: %w", s, ErrInvalidAngle)
	}

	return deg, nil
}

// Transform is an affine mapping of box centers from one frame to another
type Transform struct {
	// affine is the 2x3 matrix applied to [cx, cy, 1]
	affine *mat.Dense
	// swapSize swaps box width and height
	swapSize bool
	// frame is the frame size after the transform
	frame Frame
}

// quarterTurns holds exact cosine and sine values for multiples of 90 degrees
var quarterTurns = [4][2]float64{
	{1, 0},
	{0, 1},
	{-1, 0},
	{0, -1},
}

// Rotation returns the transform rotating boxes counter-clockwise by deg
// degrees about the center of the frame.  Multiples of 90 degrees re-fit the
// frame to the rotated image, swapping its width and height on odd quarter
// turns, while other angles keep the frame unchanged.
func Rotation(deg float64, f Frame) (Transform, error) {

	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return Transform{}, fmt.Errorf("%v: %w", deg, ErrInvalidAngle)
	}

	if !f.Valid() {
		return Transform{}, ErrInvalidFrame
	}

	cx, cy := f.Width/2, f.Height/2
	out := f
	swap := false

	var alpha, beta float64

	if math.Mod(deg, 90) == 0 {
		k := int(math.Mod(deg/90, 4))
		if k < 0 {
			k += 4
		}

		alpha, beta = quarterTurns[k][0], quarterTurns[k][1]

		if k%2 == 1 {
			swap = true
			out = Frame{Width: f.Height, Height: f.Width}
		}

	} else {
		rad := deg * math.Pi / 180
		alpha, beta = math.Cos(rad), math.Sin(rad)
	}

	// rotation about the old center followed by a shift onto the new center
	affine := mat.NewDense(2, 3, []float64{
		alpha, beta, (1-alpha)*cx - beta*cy + (out.Width/2 - cx),
		-beta, alpha, beta*cx + (1-alpha)*cy + (out.Height/2 - cy),
	})

	return Transform{affine: affine, swapSize: swap, frame: out}, nil
}

// Reflection returns the transform mirroring boxes across the given mid-line
// of the frame
func Reflection(axis Axis, f Frame) (Transform, error) {

	if !f.Valid() {
		return Transform{}, ErrInvalidFrame
	}

	var affine *mat.Dense

	switch axis {
	case Horizontal:
		affine = mat.NewDense(2, 3, []float64{
			1, 0, 0,
			0, -1, f.Height,
		})
	case Vertical:
		affine = mat.NewDense(2, 3, []float64{
			-1, 0, f.Width,
			0, 1, 0,
		})
	default:
		return Transform{}, fmt.Errorf("%v: %w", axis, ErrInvalidAxis)
	}

	return Transform{affine: affine, frame: f}, nil
}

// Frame returns the frame size after the transform
func (tr Transform) Frame() Frame {
	return tr.frame
}

// Affine returns the row-major 2x3 matrix mapping [cx, cy, 1] to the
// transformed center
func (tr Transform) Affine() [6]float64 {

	var a [6]float64

	for r := 0; r < 2; r++ {
		for c := 0; c < 3; c++ {
			a[r*3+c] = tr.affine.At(r, c)
		}
	}

	return a
}

// Apply returns the transformed box
func (tr Transform) Apply(b Box) Box {

	var out mat.VecDense
	out.MulVec(tr.affine, mat.NewVecDense(3, []float64{b.CX(), b.CY(), 1}))

	w, h := b.Width(), b.Height()

	if tr.swapSize {
		w, h = h, w
	}

	return NewBox(out.AtVec(0), out.AtVec(1), w, h)
}
