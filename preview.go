package main

import (
	"gocv.io/x/gocv"

	"github.com/lkarlslund/digirot/internal/pipeline"
)

// Keys as reported by WaitKey.
const (
	keyBackspace = 8
	keyEnter     = 13
	keyEscape    = 27
	keyDelete    = 127
)

// preview is an OpenCV window used during calibration and, optionally,
// while the batch runs.
type preview struct {
	window *gocv.Window
	// onEscape runs when ESC is pressed during the batch.
	onEscape func()
}

func newPreview(title string) *preview {
	return &preview{window: gocv.NewWindow(title)}
}

// show displays m and waits up to delay milliseconds for a key. A delay
// of 0 waits forever.
func (p *preview) show(m gocv.Mat, delay int) int {
	p.window.IMShow(m)
	return p.window.WaitKey(delay)
}

// Present shows each output frame as it is written.
func (p *preview) Present(frame *gocv.Mat, st pipeline.FrameState) error {
	if p.show(*frame, 1) == keyEscape && p.onEscape != nil {
		p.onEscape()
	}
	return nil
}

func (p *preview) Close() error {
	return p.window.Close()
}
