package config

import (
	"errors"
	"fmt"
	"math"
)

// ErrZeroDigitalRPM is returned for any quantity that depends on the
// rotation period when the digital rotation rate is zero.
var ErrZeroDigitalRPM = errors.New("digital rotation rate is zero")

// RotationParameters are the rates a run is configured with. They are
// independent of the calibration.
type RotationParameters struct {
	PhysicalRPM     float64
	DigitalRPM      float64
	FramesPerSecond float64
}

// Rotation builds the rotation parameters for a source running at fps.
func (c *RunConfig) Rotation(fps float64) RotationParameters {
	if c.FPS > 0 {
		fps = c.FPS
	}
	return RotationParameters{
		PhysicalRPM:     c.PhysicalRPM,
		DigitalRPM:      c.DigitalRPM,
		FramesPerSecond: fps,
	}
}

// Validate checks that the frame rate is usable.
func (r RotationParameters) Validate() error {
	if r.FramesPerSecond <= 0 || math.IsNaN(r.FramesPerSecond) || math.IsInf(r.FramesPerSecond, 0) {
		return fmt.Errorf("frames per second must be positive, got %g", r.FramesPerSecond)
	}
	return nil
}

// AnglePerFrame returns the rotation increment in degrees per frame.
// 1 RPM is 6 degrees per second.
func (r RotationParameters) AnglePerFrame() float64 {
	if r.FramesPerSecond <= 0 {
		return 0
	}
	return r.DigitalRPM * 6 / r.FramesPerSecond
}

// Period returns the digital rotation period in seconds.
func (r RotationParameters) Period() (float64, error) {
	if r.DigitalRPM == 0 {
		return 0, ErrZeroDigitalRPM
	}
	return 60 / math.Abs(r.DigitalRPM), nil
}

// Elapsed returns the time in seconds of a batch frame index.
func (r RotationParameters) Elapsed(frameIndex int) float64 {
	if r.FramesPerSecond <= 0 {
		return 0
	}
	return float64(frameIndex) / r.FramesPerSecond
}

// FrameRange converts the configured time range into the first source
// frame and the number of frames to process.
func (c *RunConfig) FrameRange(fps float64) (startFrame, numFrames int) {
	startFrame = int(math.Round(fps * c.StartTime))
	numFrames = int(fps * (c.EndTime - c.StartTime))
	if numFrames < 0 {
		numFrames = 0
	}
	return startFrame, numFrames
}
