package derotate

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/lkarlslund/digirot/internal/calibration"
	"github.com/lkarlslund/digirot/internal/config"
	"github.com/lkarlslund/digirot/internal/mask"
)

// ErrEmptyFrame is returned when a frame without pixels is transformed.
var ErrEmptyFrame = errors.New("empty frame")

// Background is the value written into the masked region.
var Background = color.RGBA{0, 0, 0, 0}

// Transformer holds the fixed calibration of a run. It is safe to call
// Transform from several goroutines: nothing in it is mutated.
type Transformer struct {
	Fit    calibration.CircleFit
	Mask   mask.Polygons
	Params config.RotationParameters
	// Output is the output frame size. Zero means the input size.
	Output image.Point
}

// NewTransformer returns a Transformer for frames of size frameSize.
func NewTransformer(fit calibration.CircleFit, params config.RotationParameters, frameSize, output image.Point) *Transformer {
	return &Transformer{
		Fit:    fit,
		Mask:   mask.Build(fit, frameSize.X, frameSize.Y),
		Params: params,
		Output: output,
	}
}

// Angle returns the rotation applied to frame frameIndex, in degrees.
func (t *Transformer) Angle(frameIndex int) float64 {
	return float64(frameIndex) * t.Params.AnglePerFrame()
}

// Transform runs the per-frame pipeline on raw. The caller owns the
// returned Mat.
func (t *Transformer) Transform(raw gocv.Mat, frameIndex int) (gocv.Mat, error) {
	return Transform(raw, t.Fit, t.Mask, frameIndex, t.Params, t.Output)
}

// OutputPoint returns where a raw frame position ends up in the output of
// frame frameIndex. It ignores the mask.
func (t *Transformer) OutputPoint(p calibration.Point, frameIndex int, frameSize image.Point) calibration.Point {
	out := t.Output
	if out.X <= 0 || out.Y <= 0 {
		out = frameSize
	}
	q := Rotation(t.Fit.Center, t.Angle(frameIndex)).Apply(p)
	q = recenter(t.Fit.Center, frameSize).Apply(q)
	return calibration.Point{
		X: q.X * float64(out.X) / float64(frameSize.X),
		Y: q.Y * float64(out.Y) / float64(frameSize.Y),
	}
}

// Transform rotates raw about the fitted center by frameIndex times the
// angle per frame, blanks everything outside the circle, moves the center
// to the middle of the frame and resizes to output. The mask is applied
// before recentering because its polygons are in raw frame coordinates.
func Transform(raw gocv.Mat, fit calibration.CircleFit, polys mask.Polygons, frameIndex int, params config.RotationParameters, output image.Point) (gocv.Mat, error) {
	if raw.Empty() {
		return gocv.NewMat(), ErrEmptyFrame
	}
	size := image.Pt(raw.Cols(), raw.Rows())
	if output.X <= 0 || output.Y <= 0 {
		output = size
	}

	rotated := warp(raw, Rotation(fit.Center, float64(frameIndex)*params.AnglePerFrame()), size)

	if err := Mask(&rotated, polys); err != nil {
		rotated.Close()
		return gocv.NewMat(), fmt.Errorf("frame %d: %w", frameIndex, err)
	}

	centered := warp(rotated, recenter(fit.Center, size), size)
	rotated.Close()

	if output == size {
		return centered, nil
	}
	resized := gocv.NewMat()
	gocv.Resize(centered, &resized, output, 0, 0, gocv.InterpolationCubic)
	centered.Close()
	return resized, nil
}

// Mask fills the region between the frame edge and the inner polygon with
// Background. A degenerate mask blanks the whole frame.
func Mask(frame *gocv.Mat, polys mask.Polygons) error {
	if frame.Empty() {
		return ErrEmptyFrame
	}
	if polys.Degenerate() {
		frame.SetTo(gocv.NewScalar(0, 0, 0, 0))
		return nil
	}
	pv := gocv.NewPointsVectorFromPoints(polys.Contours())
	defer pv.Close()
	gocv.FillPoly(frame, pv, Background)
	return nil
}

func recenter(center calibration.Point, size image.Point) Affine {
	return Translation(float64(size.X)/2-center.X, float64(size.Y)/2-center.Y)
}

// warp applies a to src into a new Mat of the given size. The identity
// is a plain copy so that zero rotation never resamples.
func warp(src gocv.Mat, a Affine, size image.Point) gocv.Mat {
	if a.IsIdentity() {
		return src.Clone()
	}
	m := a.Mat()
	defer m.Close()
	dst := gocv.NewMat()
	gocv.WarpAffine(src, &dst, m, size)
	return dst
}
