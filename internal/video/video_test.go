package video

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/lkarlslund/digirot/internal/monitoring"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	m.Run()
}

func TestOpenMissingFile(t *testing.T) {
	_, err := OpenSource(filepath.Join(t.TempDir(), "missing.avi"))
	assert.Error(t, err)
}

func TestCreateSinkRejectsBadArguments(t *testing.T) {
	dir := t.TempDir()
	_, err := CreateSink(filepath.Join(dir, "a.avi"), "MJPEG", 10, image.Pt(64, 48))
	assert.Error(t, err)
	_, err = CreateSink(filepath.Join(dir, "b.avi"), "MJPG", 10, image.Pt(0, 48))
	assert.Error(t, err)
}

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.avi")
	size := image.Pt(64, 48)

	sink, err := CreateSink(path, "MJPG", 10, size)
	require.NoError(t, err)

	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(20, 20, 20, 0), size.Y, size.X, gocv.MatTypeCV8UC3)
	defer frame.Close()
	for i := 0; i < 5; i++ {
		gocv.Circle(&frame, image.Pt(10+10*i, 24), 4, color.RGBA{255, 255, 255, 0}, -1)
		require.NoError(t, sink.Write(frame))
	}

	wrong := gocv.NewMatWithSize(10, 10, gocv.MatTypeCV8UC3)
	defer wrong.Close()
	assert.ErrorIs(t, sink.Write(wrong), ErrFrameSize)
	assert.Equal(t, 5, sink.Frames())
	require.NoError(t, sink.Close())

	src, err := OpenSource(path)
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, 64, src.Width())
	assert.Equal(t, 48, src.Height())
	assert.InDelta(t, 10, src.FPS(), 0.01)
	require.NoError(t, src.Seek(0))

	got := gocv.NewMat()
	defer got.Close()
	n := 0
	for src.Read(&got) == nil {
		assert.Equal(t, 64, got.Cols())
		n++
	}
	assert.Equal(t, 5, n)
	assert.ErrorIs(t, src.Read(&got), ErrEndOfStream)
	assert.Error(t, src.Seek(-1))
}
