package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnglePerFrame(t *testing.T) {
	r := RotationParameters{DigitalRPM: 10, FramesPerSecond: 30}
	assert.InDelta(t, 2.0, r.AnglePerFrame(), 1e-12)

	r.DigitalRPM = -5
	assert.InDelta(t, -1.0, r.AnglePerFrame(), 1e-12)

	r.FramesPerSecond = 0
	assert.Equal(t, 0.0, r.AnglePerFrame())
	assert.Error(t, r.Validate())
}

func TestPeriod(t *testing.T) {
	p, err := RotationParameters{DigitalRPM: -20, FramesPerSecond: 30}.Period()
	require.NoError(t, err)
	assert.InDelta(t, 3.0, p, 1e-12)

	_, err = RotationParameters{DigitalRPM: 0, FramesPerSecond: 30}.Period()
	assert.ErrorIs(t, err, ErrZeroDigitalRPM)
}

func TestRotationUsesOverrideFPS(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, 29.97, cfg.Rotation(29.97).FramesPerSecond)

	cfg.FPS = 25
	r := cfg.Rotation(29.97)
	assert.Equal(t, 25.0, r.FramesPerSecond)
	assert.Equal(t, cfg.DigitalRPM, r.DigitalRPM)
	assert.InDelta(t, 0.4, r.Elapsed(10), 1e-12)
}

func TestFrameRange(t *testing.T) {
	cfg := validConfig()
	cfg.StartTime = 2
	cfg.EndTime = 4.5

	start, n := cfg.FrameRange(30)
	assert.Equal(t, 60, start)
	assert.Equal(t, 75, n)
}
