package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *RunConfig {
	return &RunConfig{
		Source:      "in.mp4",
		Destination: "out.mp4",
		DigitalRPM:  10,
		EndTime:     5,
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	doc := `
source: table.mp4
destination: derotated.mp4
physical_rpm: 10.5
digital_rpm: -10.5
start_time: 1
end_time: 4.5
output: {width: 640, height: 480}
tracker:
  param2: 25
  radius_tolerance: 0.2
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "table.mp4", cfg.Source)
	assert.Equal(t, "derotated.mp4", cfg.Destination)
	assert.Equal(t, 10.5, cfg.PhysicalRPM)
	assert.Equal(t, -10.5, cfg.DigitalRPM)
	assert.Equal(t, OutputSize{Width: 640, Height: 480}, cfg.Output)
	assert.Equal(t, 25.0, cfg.Tracker.GetParam2())
	assert.Equal(t, 0.2, cfg.Tracker.GetRadiusTolerance())
	// Omitted tracker fields use defaults.
	assert.Equal(t, 1.0, cfg.Tracker.GetDP())
	assert.Equal(t, 20.0, cfg.Tracker.GetMinDist())
	assert.Equal(t, 50.0, cfg.Tracker.GetParam1())
	assert.Equal(t, 5, cfg.Tracker.GetBlur())
	assert.Equal(t, "mp4v", cfg.GetCodec())
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "run.json"))
	assert.Error(t, err, "wrong extension")

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err, "missing file")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("digital_rpm: [1, 2"), 0644))
	_, err = Load(bad)
	assert.Error(t, err, "invalid YAML")
}

func TestValidate(t *testing.T) {
	tol := func(v float64) *float64 { return &v }
	blur := func(v int) *int { return &v }

	tests := []struct {
		name    string
		mutate  func(c *RunConfig)
		wantErr bool
	}{
		{"valid", func(c *RunConfig) {}, false},
		{"zero digital rpm is allowed", func(c *RunConfig) { c.DigitalRPM = 0 }, false},
		{"missing source", func(c *RunConfig) { c.Source = "" }, true},
		{"missing destination", func(c *RunConfig) { c.Destination = "" }, true},
		{"negative start", func(c *RunConfig) { c.StartTime = -1 }, true},
		{"end before start", func(c *RunConfig) { c.StartTime = 6 }, true},
		{"end equals start", func(c *RunConfig) { c.StartTime = 5 }, true},
		{"negative fps", func(c *RunConfig) { c.FPS = -1 }, true},
		{"half output size", func(c *RunConfig) { c.Output.Width = 100 }, true},
		{"tolerance too large", func(c *RunConfig) { c.Tracker.RadiusTolerance = tol(1) }, true},
		{"even blur", func(c *RunConfig) { c.Tracker.Blur = blur(4) }, true},
		{"blur disabled", func(c *RunConfig) { c.Tracker.Blur = blur(0) }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
