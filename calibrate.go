package main

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"

	"github.com/lkarlslund/digirot/internal/calibration"
	"github.com/lkarlslund/digirot/internal/monitoring"
)

var (
	errCalibrationAborted = errors.New("calibration aborted")
	errNoParticle         = errors.New("calibration script has no particle selection")
)

var (
	pointColor    = color.RGBA{0, 255, 0, 0}
	circleColor   = color.RGBA{0, 0, 255, 0}
	particleColor = color.RGBA{255, 255, 0, 0}
)

// viewer shows a frame and returns the key pressed, or -1.
type viewer interface {
	show(m gocv.Mat, delay int) int
}

// calibrate replays the scripted events against a fresh session. Without a
// viewer the script alone decides. With one, every step is shown, and if
// the script does not accept, Enter accepts, Backspace or Delete removes
// the last point and ESC aborts.
func calibrate(first gocv.Mat, script *calibration.Script, view viewer) (calibrationResult, error) {
	if script.Particle == nil {
		return calibrationResult{}, errNoParticle
	}
	particle := *script.Particle
	s := calibration.NewSession()

	if view == nil {
		fit, err := calibration.Replay(s, script.Events)
		if err != nil {
			return calibrationResult{}, err
		}
		return calibrationResult{fit: fit, particle: particle}, nil
	}

	for i, ev := range script.Events {
		accepted, err := s.Apply(ev)
		if err != nil {
			if !calibration.IsFitUnavailable(err) {
				return calibrationResult{}, fmt.Errorf("calibration event %d: %w", i, err)
			}
			monitoring.Logf("calibration: cannot accept yet: %v", err)
			break
		}
		if accepted {
			fit, _ := s.CurrentFit()
			return calibrationResult{fit: fit, particle: particle}, nil
		}
		showCalibration(view, first, s, particle, 1)
	}

	for {
		switch showCalibration(view, first, s, particle, 0) {
		case keyEnter:
			fit, err := s.Accept()
			if err == nil {
				return calibrationResult{fit: fit, particle: particle}, nil
			}
			monitoring.Logf("calibration: cannot accept yet: %v", err)
		case keyBackspace, keyDelete:
			s.RemoveLast()
		case keyEscape:
			return calibrationResult{}, errCalibrationAborted
		}
	}
}

func showCalibration(view viewer, frame gocv.Mat, s *calibration.Session, particle calibration.ParticleEstimate, delay int) int {
	canvas := drawCalibration(frame, s, particle)
	defer canvas.Close()
	return view.show(canvas, delay)
}

// drawCalibration returns a copy of frame with the clicked points, the
// current fit and the particle selection drawn on it.
func drawCalibration(frame gocv.Mat, s *calibration.Session, particle calibration.ParticleEstimate) gocv.Mat {
	canvas := frame.Clone()
	for _, p := range s.Points() {
		gocv.Circle(&canvas, pixel(p), 3, pointColor, -1)
	}
	if fit, ok := s.CurrentFit(); ok {
		gocv.Circle(&canvas, pixel(fit.Center), int(math.Round(fit.Radius)), circleColor, 1)
		gocv.Circle(&canvas, pixel(fit.Center), 4, circleColor, -1)
	}
	if r := int(math.Round(particle.Radius())); r > 0 {
		gocv.Circle(&canvas, pixel(particle.Center()), r, particleColor, 1)
	}
	return canvas
}

func pixel(p calibration.Point) image.Point {
	return image.Pt(int(math.Round(p.X)), int(math.Round(p.Y)))
}
