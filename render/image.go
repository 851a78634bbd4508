package render

import (
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"

	"github.com/swdee/go-trackbuilder/tracker"
	"gocv.io/x/gocv"
)

// RotateImage rotates the image by deg degrees counter-clockwise to match a
// rotation of its tracks.  Quarter turns re-fit the canvas, other angles
// rotate about the center of an unchanged canvas.
func RotateImage(src gocv.Mat, deg float64) (gocv.Mat, error) {

	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return gocv.NewMat(), tracker.ErrInvalidAngle
	}

	dst := gocv.NewMat()
	turns := math.Mod(deg, 360)

	if turns < 0 {
		turns += 360
	}

	switch turns {
	case 0:
		src.CopyTo(&dst)
	case 90:
		gocv.Rotate(src, &dst, gocv.Rotate90CounterClockwise)
	case 180:
		gocv.Rotate(src, &dst, gocv.Rotate180Clockwise)
	case 270:
		gocv.Rotate(src, &dst, gocv.Rotate90Clockwise)
	default:
		// warp with the same matrix the tracks are rotated by
		tr, err := tracker.Rotation(deg, tracker.Frame{
			Width:  float64(src.Cols()),
			Height: float64(src.Rows()),
		})

		if err != nil {
			dst.Close()
			return gocv.NewMat(), err
		}

		rot := imageAffine(tr)
		defer rot.Close()
		gocv.WarpAffine(src, &dst, rot, image.Pt(src.Cols(), src.Rows()))
	}

	return dst, nil
}

// imageAffine converts a track transform into an OpenCV warp matrix.  Box
// coordinates put pixel centers at half-integers while OpenCV puts them at
// integers, so the translation is shifted by half a pixel.
func imageAffine(tr tracker.Transform) gocv.Mat {

	a := tr.Affine()
	m := gocv.NewMatWithSize(2, 3, gocv.MatTypeCV64F)

	for r := 0; r < 2; r++ {
		m.SetDoubleAt(r, 0, a[r*3])
		m.SetDoubleAt(r, 1, a[r*3+1])
		m.SetDoubleAt(r, 2, a[r*3+2]+0.5*(a[r*3]+a[r*3+1])-0.5)
	}

	return m
}

// ReflectImage mirrors the image across the given mid-line to match a
// reflection of its tracks
func ReflectImage(src gocv.Mat, axis tracker.Axis) (gocv.Mat, error) {

	var code int

	switch axis {
	case tracker.Horizontal:
		// y maps to H - y
		code = 0
	case tracker.Vertical:
		// x maps to W - x
		code = 1
	default:
		return gocv.NewMat(), tracker.ErrInvalidAxis
	}

	dst := gocv.NewMat()
	gocv.Flip(src, &dst, code)

	return dst, nil
}

// TransformImages applies fn to every named image in srcDir and writes the
// result to dstDir under the same name
func TransformImages(srcDir, dstDir string, names []string,
	fn func(gocv.Mat) (gocv.Mat, error)) error {

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("error creating output directory: %w", err)
	}

	for _, name := range names {

		src := filepath.Join(srcDir, filepath.Base(name))
		dst := filepath.Join(dstDir, filepath.Base(name))

		img := gocv.IMRead(src, gocv.IMReadColor)

		if img.Empty() {
			return fmt.Errorf("%s: %w", src, ErrImageRead)
		}

		out, err := fn(img)
		img.Close()

		if err != nil {
			return err
		}

		ok := gocv.IMWrite(dst, out)
		out.Close()

		if !ok {
			return fmt.Errorf("%s: %w", dst, ErrImageWrite)
		}
	}

	return nil
}
