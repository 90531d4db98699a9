// Package pipeline drives the batch phase: every frame in the selected
// range is read, derotated, searched for the particle, annotated and
// written, strictly in frame order.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/lkarlslund/digirot/internal/calibration"
	"github.com/lkarlslund/digirot/internal/derotate"
	"github.com/lkarlslund/digirot/internal/monitoring"
	"github.com/lkarlslund/digirot/internal/tracker"
	"github.com/lkarlslund/digirot/internal/video"
)

var (
	ErrSourceExhausted = errors.New("frame source exhausted")
	ErrIncomplete      = errors.New("batch is missing a collaborator")
)

// FrameSource yields raw frames in order. It returns video.ErrEndOfStream
// when no frame is left.
type FrameSource interface {
	Read(dst *gocv.Mat) error
}

// FrameSink receives the finished output frames.
type FrameSink interface {
	Write(frame gocv.Mat) error
}

// Presenter draws on an output frame before it is written.
type Presenter interface {
	Present(frame *gocv.Mat, state FrameState) error
}

// PresenterFunc adapts a function to Presenter.
type PresenterFunc func(frame *gocv.Mat, state FrameState) error

func (f PresenterFunc) Present(frame *gocv.Mat, state FrameState) error {
	return f(frame, state)
}

// FrameState is what a presenter knows about the frame being written.
// Positions are output frame pixels. Trajectory is a copy of the
// tracker's path up to and including this frame.
type FrameState struct {
	FrameIndex int
	Elapsed    float64
	Axis       calibration.Point
	Detection  tracker.Detection
	Trajectory []tracker.TrajectoryEntry
}

// Result summarizes a batch. Trajectory is relative to the batch axis,
// also when the batch stopped early.
type Result struct {
	FramesProcessed int
	Misses          int
	Trajectory      []tracker.TrajectoryEntry
}

// Batch wires the collaborators of one run.
type Batch struct {
	Source      FrameSource
	Sink        FrameSink
	Presenters  []Presenter
	Transformer *derotate.Transformer
	Tracker     *tracker.Tracker
	NumFrames   int
	// Axis is subtracted from every trajectory entry once the batch ends.
	Axis calibration.Point
}

// Run processes NumFrames frames. It stops at the first failure or when
// ctx is done, checked once per frame.
func (b *Batch) Run(ctx context.Context) (Result, error) {
	if b.Source == nil || b.Sink == nil || b.Transformer == nil || b.Tracker == nil {
		return Result{}, ErrIncomplete
	}

	monitoring.Logf("pipeline: processing %d frames at %.3f degrees per frame",
		b.NumFrames, b.Transformer.Params.AnglePerFrame())

	raw := gocv.NewMat()
	defer raw.Close()

	var res Result
	var runErr error
	for i := 0; i < b.NumFrames; i++ {
		if err := ctx.Err(); err != nil {
			runErr = fmt.Errorf("stopped before frame %d: %w", i, err)
			break
		}
		if err := b.step(&raw, i); err != nil {
			runErr = err
			break
		}
		res.FramesProcessed++
		if res.FramesProcessed%100 == 0 {
			monitoring.Logf("pipeline: %d/%d frames", res.FramesProcessed, b.NumFrames)
		}
	}

	res.Trajectory = b.Tracker.Finalize(b.Axis)
	res.Misses = b.Tracker.Misses()
	monitoring.Logf("pipeline: done after %d frames, %d trajectory entries", res.FramesProcessed, len(res.Trajectory))
	return res, runErr
}

func (b *Batch) step(raw *gocv.Mat, frameIndex int) error {
	if err := b.Source.Read(raw); err != nil {
		if errors.Is(err, video.ErrEndOfStream) {
			return fmt.Errorf("%w: got %d of %d frames", ErrSourceExhausted, frameIndex, b.NumFrames)
		}
		return fmt.Errorf("reading frame %d: %w", frameIndex, err)
	}
	if raw.Empty() {
		return fmt.Errorf("%w: frame %d is empty", ErrSourceExhausted, frameIndex)
	}
	size := image.Pt(raw.Cols(), raw.Rows())

	out, err := b.Transformer.Transform(*raw, frameIndex)
	if err != nil {
		out.Close()
		return fmt.Errorf("transforming frame %d: %w", frameIndex, err)
	}
	defer out.Close()

	det, err := b.Tracker.Track(out, frameIndex)
	if err != nil {
		return fmt.Errorf("tracking frame %d: %w", frameIndex, err)
	}
	state := FrameState{
		FrameIndex: frameIndex,
		Elapsed:    b.Transformer.Params.Elapsed(frameIndex),
		Axis:       b.Transformer.OutputPoint(b.Transformer.Fit.Center, frameIndex, size),
		Detection:  det,
		Trajectory: b.Tracker.Trajectory(),
	}
	for _, p := range b.Presenters {
		if err := p.Present(&out, state); err != nil {
			return fmt.Errorf("presenting frame %d: %w", frameIndex, err)
		}
	}

	if err := b.Sink.Write(out); err != nil {
		return fmt.Errorf("writing frame %d: %w", frameIndex, err)
	}
	return nil
}
