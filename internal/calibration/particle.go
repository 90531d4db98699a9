package calibration

import "math"

// ParticleEstimate is the drag selection around the tracked object on the
// first frame: start is where the button went down, end where it came up.
type ParticleEstimate struct {
	Start, End Point
}

// Center returns the midpoint of the selection.
func (p ParticleEstimate) Center() Point {
	return Point{X: (p.Start.X + p.End.X) / 2, Y: (p.Start.Y + p.End.Y) / 2}
}

// Radius returns half the selection length.
func (p ParticleEstimate) Radius() float64 {
	return math.Hypot(p.End.X-p.Start.X, p.End.Y-p.Start.Y) / 2
}

// RadiusWindow returns the detector radius range [r·(1-tol), r·(1+tol)],
// truncated to whole pixels.
func (p ParticleEstimate) RadiusWindow(tol float64) (minRadius, maxRadius int) {
	r := p.Radius()
	return int(r * (1 - tol)), int(r * (1 + tol))
}
