// Package overlay draws the run annotations onto output frames.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
	"strconv"

	"github.com/disintegration/gift"
	"gocv.io/x/gocv"

	"github.com/lkarlslund/digirot/internal/pipeline"
)

const (
	margin    = 25
	font      = gocv.FontHersheyTriplex
	fontScale = 0.8
	thickness = 1
)

var (
	textColor   = color.RGBA{255, 255, 255, 0}
	axisColor   = color.RGBA{255, 0, 0, 0}
	objectColor = color.RGBA{0, 255, 0, 0}
	pathColor   = color.RGBA{0, 0, 255, 0}
)

// Annotator implements pipeline.Presenter.
type Annotator struct {
	Title       string
	PhysicalRPM float64
	DigitalRPM  float64
	// Logo is drawn in the top right corner when set.
	Logo *gocv.Mat
}

// Present draws the title, logo, rotation rates, elapsed time, axis and
// particle markers onto frame.
func (a *Annotator) Present(frame *gocv.Mat, st pipeline.FrameState) error {
	if frame.Empty() {
		return fmt.Errorf("frame %d is empty", st.FrameIndex)
	}
	w, h := frame.Cols(), frame.Rows()

	if a.Title != "" {
		gocv.PutText(frame, a.Title, image.Pt(margin, 2*margin), font, fontScale, textColor, thickness)
	}
	a.drawLogo(frame)

	gocv.PutText(frame, FormatRPM("Physical", a.PhysicalRPM), image.Pt(margin, h-2*margin), font, fontScale, textColor, thickness)
	gocv.PutText(frame, FormatRPM("Digital", a.DigitalRPM), image.Pt(margin, h-margin), font, fontScale, textColor, thickness)

	elapsed := FormatElapsed(st.Elapsed)
	size := gocv.GetTextSize(elapsed, font, fontScale, thickness)
	gocv.PutText(frame, elapsed, image.Pt(w-margin-size.X, h-margin), font, fontScale, textColor, thickness)

	gocv.Circle(frame, toPixel(st.Axis.X, st.Axis.Y), 4, axisColor, -1)

	for _, e := range st.Trajectory {
		gocv.Circle(frame, toPixel(e.X, e.Y), 1, pathColor, -1)
	}
	if d := st.Detection; d.Found {
		c := toPixel(d.Circle.X, d.Circle.Y)
		r := int(math.Round(d.Circle.Radius))
		if r > 0 {
			gocv.Circle(frame, c, r, objectColor, 1)
		}
		gocv.Circle(frame, c, 2, objectColor, -1)
	}
	return nil
}

// drawLogo copies the logo into the top right corner if it fits.
func (a *Annotator) drawLogo(frame *gocv.Mat) {
	if a.Logo == nil || a.Logo.Empty() || a.Logo.Type() != frame.Type() {
		return
	}
	lw, lh := a.Logo.Cols(), a.Logo.Rows()
	x0 := frame.Cols() - margin - lw
	if x0 < 0 || margin+lh > frame.Rows() {
		return
	}
	roi := frame.Region(image.Rect(x0, margin, x0+lw, margin+lh))
	a.Logo.CopyTo(&roi)
	roi.Close()
}

// Close releases the logo.
func (a *Annotator) Close() error {
	if a.Logo == nil {
		return nil
	}
	err := a.Logo.Close()
	a.Logo = nil
	return err
}

// FormatRPM renders a rotation rate with an explicit sign for positive
// values, "Physical Rotation: +10 RPM".
func FormatRPM(label string, rpm float64) string {
	s := strconv.FormatFloat(rpm, 'f', -1, 64)
	if rpm > 0 {
		s = "+" + s
	}
	return fmt.Sprintf("%s Rotation: %s RPM", label, s)
}

func FormatElapsed(seconds float64) string {
	return fmt.Sprintf("Time: %.1f s", seconds)
}

func toPixel(x, y float64) image.Point {
	return image.Pt(int(math.Round(x)), int(math.Round(y)))
}

// LoadLogo decodes the image at path and scales it to at most a fifth of
// frameWidth. The result is a BGR Mat owned by the caller.
func LoadLogo(path string, frameWidth int) (gocv.Mat, error) {
	f, err := os.Open(path)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("decoding %s: %w", path, err)
	}

	img := src
	if maxWidth := frameWidth / 5; maxWidth > 0 && src.Bounds().Dx() > maxWidth {
		g := gift.New(gift.Resize(maxWidth, 0, gift.LanczosResampling))
		dst := image.NewRGBA(g.Bounds(src.Bounds()))
		g.Draw(dst, src)
		img = dst
	}
	return gocv.ImageToMatRGB(img)
}
