// Package tracker follows the selected particle through the derotated
// frames and records its trajectory.
package tracker

import (
	"errors"
	"fmt"
	"sort"

	"gocv.io/x/gocv"

	"github.com/lkarlslund/digirot/internal/calibration"
	"github.com/lkarlslund/digirot/internal/monitoring"
)

var (
	ErrEmptyFrame = errors.New("empty frame")
	ErrFinalized  = errors.New("trajectory already finalized")
	ErrOutOfOrder = errors.New("detection out of frame order")
)

// TrajectoryEntry is one successful detection. X and Y are output frame
// pixels until Finalize makes them relative to the rotation axis.
type TrajectoryEntry struct {
	FrameIndex int
	Timestamp  float64
	X, Y       float64
}

// Detection is the outcome of running the detector on one frame.
type Detection struct {
	FrameIndex int
	Found      bool
	Circle     Circle
	Candidates int
}

// Tracker accumulates the trajectory of a single particle. It is not safe
// for concurrent use; Detect may run in parallel, Append must not.
type Tracker struct {
	detector  Detector
	minRadius int
	maxRadius int
	fps       float64
	entries   []TrajectoryEntry
	lastFrame int
	misses    int
	finalized bool
}

// New returns a Tracker looking for blobs within tol of the particle
// radius, in frames produced at fps.
func New(detector Detector, particle calibration.ParticleEstimate, tol, fps float64) *Tracker {
	minR, maxR := particle.RadiusWindow(tol)
	return &Tracker{
		detector:  detector,
		minRadius: minR,
		maxRadius: maxR,
		fps:       fps,
		lastFrame: -1,
	}
}

// RadiusWindow returns the radius range handed to the detector.
func (t *Tracker) RadiusWindow() (minRadius, maxRadius int) {
	return t.minRadius, t.maxRadius
}

// Detect runs the detector on frame without touching the trajectory.
// Only the first candidate is kept; none found is not an error.
func (t *Tracker) Detect(frame gocv.Mat, frameIndex int) (Detection, error) {
	circles, err := t.detector.Detect(frame, t.minRadius, t.maxRadius)
	if err != nil {
		return Detection{FrameIndex: frameIndex}, fmt.Errorf("frame %d: %w", frameIndex, err)
	}
	d := Detection{FrameIndex: frameIndex, Candidates: len(circles)}
	if len(circles) > 0 {
		d.Found = true
		d.Circle = circles[0]
	}
	return d, nil
}

// Track detects the particle in frame and appends it to the trajectory.
func (t *Tracker) Track(frame gocv.Mat, frameIndex int) (Detection, error) {
	if t.finalized {
		return Detection{FrameIndex: frameIndex}, ErrFinalized
	}
	d, err := t.Detect(frame, frameIndex)
	if err != nil {
		return d, err
	}
	return d, t.Append(d)
}

// Append adds detections to the trajectory in frame order. Detections
// produced out of order, for example by parallel workers, are sorted
// first; a frame at or before the last appended one, or a frame given
// twice, rejects the whole call.
func (t *Tracker) Append(detections ...Detection) error {
	if t.finalized {
		return ErrFinalized
	}
	sorted := MergeDetections(detections)
	prev := t.lastFrame
	for _, d := range sorted {
		if d.FrameIndex <= prev {
			return fmt.Errorf("%w: frame %d after frame %d", ErrOutOfOrder, d.FrameIndex, prev)
		}
		prev = d.FrameIndex
	}
	for _, d := range sorted {
		t.lastFrame = d.FrameIndex
		if !d.Found {
			t.misses++
			if t.misses%100 == 1 {
				monitoring.Logf("tracker: no particle in frame %d (%d misses so far)", d.FrameIndex, t.misses)
			}
			continue
		}
		t.entries = append(t.entries, TrajectoryEntry{
			FrameIndex: d.FrameIndex,
			Timestamp:  t.timestamp(d.FrameIndex),
			X:          d.Circle.X,
			Y:          d.Circle.Y,
		})
	}
	return nil
}

// MergeDetections returns a copy of detections ordered by frame index.
func MergeDetections(detections []Detection) []Detection {
	out := make([]Detection, len(detections))
	copy(out, detections)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FrameIndex < out[j].FrameIndex
	})
	return out
}

func (t *Tracker) timestamp(frameIndex int) float64 {
	if t.fps <= 0 {
		return 0
	}
	return float64(frameIndex) / t.fps
}

// Trajectory returns a copy of the entries recorded so far.
func (t *Tracker) Trajectory() []TrajectoryEntry {
	out := make([]TrajectoryEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Misses returns how many frames had no detection.
func (t *Tracker) Misses() int {
	return t.misses
}

// Finalize rewrites every entry relative to center and closes the
// trajectory. Later calls return the same entries unchanged.
func (t *Tracker) Finalize(center calibration.Point) []TrajectoryEntry {
	if !t.finalized {
		t.entries = Center(t.entries, center)
		t.finalized = true
		monitoring.Logf("tracker: %d detections, %d misses", len(t.entries), t.misses)
	}
	return t.Trajectory()
}

// Center returns entries shifted by -center.
func Center(entries []TrajectoryEntry, center calibration.Point) []TrajectoryEntry {
	out := make([]TrajectoryEntry, len(entries))
	for i, e := range entries {
		e.X -= center.X
		e.Y -= center.Y
		out[i] = e
	}
	return out
}
