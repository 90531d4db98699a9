// Package derotate applies the calibrated rotation, mask and recentering
// to every frame of a run.
package derotate

import (
	"math"

	"gocv.io/x/gocv"

	"github.com/lkarlslund/digirot/internal/calibration"
)

// Affine is a 2x3 forward pixel mapping: dst = A·[x y 1]ᵀ.
type Affine [2][3]float64

// Rotation returns the rotation by angle degrees about center.
//
// Positive angles use the standard rotation matrix [cos -sin; sin cos] in
// pixel coordinates. Since y points down, a positive angle turns content
// clockwise on screen: (cx+r, cy) moves to (cx, cy+r) after 90°.
func Rotation(center calibration.Point, angle float64) Affine {
	rad := angle * math.Pi / 180
	c, s := math.Cos(rad), math.Sin(rad)
	// Snap quarter turns so 90° multiples map pixels exactly.
	if math.Abs(c) < 1e-12 {
		c = 0
	}
	if math.Abs(s) < 1e-12 {
		s = 0
	}
	return Affine{
		{c, -s, center.X - c*center.X + s*center.Y},
		{s, c, center.Y - s*center.X - c*center.Y},
	}
}

// Translation returns the shift by (dx, dy).
func Translation(dx, dy float64) Affine {
	return Affine{
		{1, 0, dx},
		{0, 1, dy},
	}
}

// Apply maps p through the transform.
func (a Affine) Apply(p calibration.Point) calibration.Point {
	return calibration.Point{
		X: a[0][0]*p.X + a[0][1]*p.Y + a[0][2],
		Y: a[1][0]*p.X + a[1][1]*p.Y + a[1][2],
	}
}

// IsIdentity reports whether the transform leaves every pixel in place.
func (a Affine) IsIdentity() bool {
	return a == Affine{{1, 0, 0}, {0, 1, 0}}
}

// Mat returns the transform as a CV_64F 2x3 matrix for WarpAffine. The
// caller owns the result.
func (a Affine) Mat() gocv.Mat {
	m := gocv.NewMatWithSize(2, 3, gocv.MatTypeCV64F)
	for row := 0; row < 2; row++ {
		for col := 0; col < 3; col++ {
			m.SetDoubleAt(row, col, a[row][col])
		}
	}
	return m
}
