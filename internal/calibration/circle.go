// Package calibration fits the rotation axis of a turntable recording from
// points clicked along the rim of a circular region.
package calibration

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// MinPoints is the number of rim points needed before a circle can be fit.
const MinPoints = 3

// maxCondition bounds the condition number of the normal-equations matrix.
// Collinear points make it singular; rounding can leave it merely huge.
const maxCondition = 1e12

var (
	ErrTooFewPoints = errors.New("at least 3 points are needed to fit a circle")
	ErrSingular     = errors.New("points are collinear, normal equations are singular")
	ErrNoRealCircle = errors.New("fitted circle has no real radius")
	ErrNoFit        = errors.New("circle fit unavailable")
)

// Point is a pixel position. Values may be fractional.
type Point struct {
	X, Y float64
}

func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

func (p Point) String() string { return fmt.Sprintf("(%.1f, %.1f)", p.X, p.Y) }

// CircleFit is the least-squares circle through a point set.
type CircleFit struct {
	Center Point
	Radius float64
}

func (c CircleFit) String() string {
	return fmt.Sprintf("center %v radius %.2f", c.Center, c.Radius)
}

// FitCircle estimates a circle from points with the algebraic least-squares
// method. It solves
//
//	| Σx²  Σxy  Σx | |a|   | Σx(x²+y²) |
//	| Σxy  Σy²  Σy | |b| = | Σy(x²+y²) |
//	| Σx   Σy   n  | |c|   | Σ(x²+y²)  |
//
// for the circle x²+y² = ax + by + c, whose center is (a/2, b/2) and radius
// sqrt(4c + a² + b²)/2. Points are shifted to their mean first so that the
// system stays well conditioned for small circles far from the origin.
func FitCircle(points []Point) (CircleFit, error) {
	if len(points) < MinPoints {
		return CircleFit{}, ErrTooFewPoints
	}

	var mean Point
	for _, p := range points {
		mean.X += p.X
		mean.Y += p.Y
	}
	mean.X /= float64(len(points))
	mean.Y /= float64(len(points))

	var sxx, sxy, syy, sx, sy, sxz, syz, sz float64
	for _, q := range points {
		p := q.Sub(mean)
		z := p.X*p.X + p.Y*p.Y
		sxx += p.X * p.X
		sxy += p.X * p.Y
		syy += p.Y * p.Y
		sx += p.X
		sy += p.Y
		sxz += p.X * z
		syz += p.Y * z
		sz += z
	}
	n := float64(len(points))

	a := mat.NewDense(3, 3, []float64{
		sxx, sxy, sx,
		sxy, syy, sy,
		sx, sy, n,
	})
	b := mat.NewVecDense(3, []float64{sxz, syz, sz})

	if cond := mat.Cond(a, 2); math.IsInf(cond, 1) || math.IsNaN(cond) || cond > maxCondition {
		return CircleFit{}, ErrSingular
	}

	var u mat.VecDense
	if err := u.SolveVec(a, b); err != nil {
		return CircleFit{}, fmt.Errorf("%w: %v", ErrSingular, err)
	}

	ca, cb, cc := u.AtVec(0), u.AtVec(1), u.AtVec(2)
	d := 4*cc + ca*ca + cb*cb
	if d < 0 || math.IsNaN(d) {
		return CircleFit{}, ErrNoRealCircle
	}

	return CircleFit{
		Center: Point{X: mean.X + ca/2, Y: mean.Y + cb/2},
		Radius: math.Sqrt(d) / 2,
	}, nil
}
