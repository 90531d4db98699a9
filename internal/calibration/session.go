package calibration

import (
	"errors"

	"github.com/lkarlslund/digirot/internal/monitoring"
)

// Session owns the rim points collected during calibration and the circle
// derived from them. The fit is recomputed from the full point set after
// every change, so it always matches the current points.
type Session struct {
	points []Point
	fit    CircleFit
	err    error
}

// NewSession returns an empty session. Its fit is unavailable until three
// non-collinear points have been added.
func NewSession() *Session {
	return &Session{err: ErrTooFewPoints}
}

// AddPoint appends a rim point and refits.
func (s *Session) AddPoint(p Point) {
	s.points = append(s.points, p)
	s.refit()
}

// RemoveLast discards the most recently added point and refits. It reports
// false and does nothing when there are no points.
func (s *Session) RemoveLast() bool {
	if len(s.points) == 0 {
		return false
	}
	s.points = s.points[:len(s.points)-1]
	s.refit()
	return true
}

// CurrentFit returns the fit for the current points. ok is false while the
// fit is unavailable; FitErr tells why.
func (s *Session) CurrentFit() (fit CircleFit, ok bool) {
	if s.err != nil {
		return CircleFit{}, false
	}
	return s.fit, true
}

// FitErr returns why the fit is unavailable, or nil.
func (s *Session) FitErr() error {
	return s.err
}

// Points returns a copy of the points in insertion order.
func (s *Session) Points() []Point {
	out := make([]Point, len(s.points))
	copy(out, s.points)
	return out
}

// Len returns the number of points.
func (s *Session) Len() int {
	return len(s.points)
}

// Accept ends calibration. It fails with ErrNoFit while no fit exists, so
// the batch phase cannot start without a usable axis.
func (s *Session) Accept() (CircleFit, error) {
	fit, ok := s.CurrentFit()
	if !ok {
		return CircleFit{}, errors.Join(ErrNoFit, s.err)
	}
	monitoring.Logf("calibration accepted with %d points: %v", len(s.points), fit)
	return fit, nil
}

func (s *Session) refit() {
	s.fit, s.err = FitCircle(s.points)
	if s.err == nil {
		monitoring.Logf("calibration: %d points, %v", len(s.points), s.fit)
	}
}
