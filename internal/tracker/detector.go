package tracker

import (
	"gocv.io/x/gocv"

	"github.com/lkarlslund/digirot/internal/config"
)

// Circle is one detected blob.
type Circle struct {
	X, Y, Radius float64
}

// Detector finds circular blobs with a radius in [minRadius, maxRadius].
// Candidates are returned best first.
type Detector interface {
	Detect(frame gocv.Mat, minRadius, maxRadius int) ([]Circle, error)
}

// HoughDetector runs the Hough gradient circle transform on a median
// blurred grayscale copy of the frame.
type HoughDetector struct {
	DP      float64
	MinDist float64
	Param1  float64
	Param2  float64
	// Blur is the median blur aperture; 0 disables blurring.
	Blur int
}

// NewHoughDetector returns a detector configured from cfg.
func NewHoughDetector(cfg config.TrackerConfig) *HoughDetector {
	return &HoughDetector{
		DP:      cfg.GetDP(),
		MinDist: cfg.GetMinDist(),
		Param1:  cfg.GetParam1(),
		Param2:  cfg.GetParam2(),
		Blur:    cfg.GetBlur(),
	}
}

func (d *HoughDetector) Detect(frame gocv.Mat, minRadius, maxRadius int) ([]Circle, error) {
	if frame.Empty() {
		return nil, ErrEmptyFrame
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() == 1 {
		frame.CopyTo(&gray)
	} else {
		gocv.CvtColor(frame, &gray, gocv.ColorBGRToGray)
	}
	if d.Blur > 1 {
		gocv.MedianBlur(gray, &gray, d.Blur)
	}

	circles := gocv.NewMat()
	defer circles.Close()
	gocv.HoughCirclesWithParams(gray, &circles, gocv.HoughGradient,
		d.DP, d.MinDist, d.Param1, d.Param2, minRadius, maxRadius)

	if circles.Empty() || circles.Cols() == 0 {
		return nil, nil
	}

	found := make([]Circle, circles.Cols())
	for i := range found {
		found[i] = Circle{
			X:      float64(circles.GetFloatAt(0, i*3)),
			Y:      float64(circles.GetFloatAt(0, i*3+1)),
			Radius: float64(circles.GetFloatAt(0, i*3+2)),
		}
	}
	return found, nil
}
