package main

import (
	"image"

	"github.com/lkarlslund/digirot/internal/calibration"
	"github.com/lkarlslund/digirot/internal/tracker"
)

// calibrationResult is what the calibration phase hands to the batch phase.
type calibrationResult struct {
	fit      calibration.CircleFit
	particle calibration.ParticleEstimate
}

// runSummary is printed when a run ends.
type runSummary struct {
	runID      string
	frames     int
	written    int
	misses     int
	trajectory []tracker.TrajectoryEntry
	outputSize image.Point
}
