// Package video reads and writes movie files through OpenCV.
package video

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/lkarlslund/digirot/internal/monitoring"
)

var (
	ErrEndOfStream = errors.New("end of stream")
	ErrFrameSize   = errors.New("frame size does not match the writer")
)

// Source is an open movie file.
type Source struct {
	path    string
	capture *gocv.VideoCapture
}

// OpenSource opens the movie at path.
func OpenSource(path string) (*Source, error) {
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("opening %s: not a readable movie", path)
	}
	s := &Source{path: path, capture: vc}
	monitoring.Logf("video: %s is %dx%d, %.2f fps, %d frames", path, s.Width(), s.Height(), s.FPS(), s.FrameCount())
	return s, nil
}

func (s *Source) Width() int {
	return int(s.capture.Get(gocv.VideoCaptureFrameWidth))
}

func (s *Source) Height() int {
	return int(s.capture.Get(gocv.VideoCaptureFrameHeight))
}

func (s *Source) FPS() float64 {
	return s.capture.Get(gocv.VideoCaptureFPS)
}

// FrameCount is the number of frames the container claims to hold.
func (s *Source) FrameCount() int {
	return int(s.capture.Get(gocv.VideoCaptureFrameCount))
}

// Seek positions the source so that the next Read returns frame
// frameIndex.
func (s *Source) Seek(frameIndex int) error {
	if frameIndex < 0 {
		return fmt.Errorf("seek %s: negative frame %d", s.path, frameIndex)
	}
	if frameIndex == 0 && s.capture.Get(gocv.VideoCapturePosFrames) == 0 {
		return nil
	}
	s.capture.Set(gocv.VideoCapturePosFrames, float64(frameIndex))
	return nil
}

// Read decodes the next frame into dst.
func (s *Source) Read(dst *gocv.Mat) error {
	if ok := s.capture.Read(dst); !ok || dst.Empty() {
		return ErrEndOfStream
	}
	return nil
}

func (s *Source) Close() error {
	return s.capture.Close()
}

// Sink writes frames of a fixed size to a movie file.
type Sink struct {
	path   string
	size   image.Point
	writer *gocv.VideoWriter
	frames int
}

// CreateSink creates the movie at path. codec is a four character code
// such as "mp4v" or "MJPG".
func CreateSink(path, codec string, fps float64, size image.Point) (*Sink, error) {
	if len(codec) != 4 {
		return nil, fmt.Errorf("codec %q is not a four character code", codec)
	}
	if size.X <= 0 || size.Y <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", size.X, size.Y)
	}
	vw, err := gocv.VideoWriterFile(path, codec, fps, size.X, size.Y, true)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}
	if !vw.IsOpened() {
		vw.Close()
		return nil, fmt.Errorf("creating %s: codec %s unavailable", path, codec)
	}
	return &Sink{path: path, size: size, writer: vw}, nil
}

// Write appends frame. Frames of another size are rejected because the
// encoder would drop them silently.
func (s *Sink) Write(frame gocv.Mat) error {
	if got := image.Pt(frame.Cols(), frame.Rows()); got != s.size {
		return fmt.Errorf("%w: got %dx%d, want %dx%d", ErrFrameSize, got.X, got.Y, s.size.X, s.size.Y)
	}
	if err := s.writer.Write(frame); err != nil {
		return err
	}
	s.frames++
	return nil
}

// Frames returns how many frames were written.
func (s *Sink) Frames() int {
	return s.frames
}

// Close finalizes the file.
func (s *Sink) Close() error {
	monitoring.Logf("video: wrote %d frames to %s", s.frames, s.path)
	return s.writer.Close()
}
