// Package mask builds the region blanked outside the calibrated circle.
//
// The region is described as two polygons: the frame rectangle and a
// 100-gon approximating the circle. The area between them is masked.
package mask

import (
	"image"
	"math"

	"github.com/lkarlslund/digirot/internal/calibration"
)

// Vertices is the number of corners of the inner polygon.
const Vertices = 100

// Polygons is the mask boundary for one frame size.
type Polygons struct {
	Width, Height int
	Outer         []calibration.Point
	// Inner is nil when the circle has no area. The whole frame is masked
	// in that case.
	Inner []calibration.Point
}

// Build derives the mask polygons for a frame of the given size. Vertex 0
// of the inner polygon is (cx+r, cy); vertices go round at 2π/Vertices.
func Build(fit calibration.CircleFit, width, height int) Polygons {
	w, h := float64(width), float64(height)
	p := Polygons{
		Width:  width,
		Height: height,
		Outer:  []calibration.Point{{X: 0, Y: 0}, {X: w, Y: 0}, {X: w, Y: h}, {X: 0, Y: h}},
	}
	if !(fit.Radius > 0) {
		return p
	}

	p.Inner = make([]calibration.Point, Vertices)
	for i := range p.Inner {
		theta := 2 * math.Pi * float64(i) / Vertices
		p.Inner[i] = calibration.Point{
			X: fit.Center.X + fit.Radius*math.Cos(theta),
			Y: fit.Center.Y + fit.Radius*math.Sin(theta),
		}
	}
	return p
}

// Degenerate reports whether the mask covers the entire frame.
func (p Polygons) Degenerate() bool {
	return len(p.Inner) == 0
}

// Contours returns both polygons with vertices rounded to whole pixels,
// outer first, in the form polygon fillers take.
func (p Polygons) Contours() [][]image.Point {
	out := [][]image.Point{toPixels(p.Outer)}
	if !p.Degenerate() {
		out = append(out, toPixels(p.Inner))
	}
	return out
}

func toPixels(pts []calibration.Point) []image.Point {
	out := make([]image.Point, len(pts))
	for i, pt := range pts {
		out[i] = image.Pt(int(math.Round(pt.X)), int(math.Round(pt.Y)))
	}
	return out
}
