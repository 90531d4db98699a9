package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// OutputSize is the requested output frame size. Zero values mean "same as
// the source".
type OutputSize struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// TrackerConfig holds the circle detector parameters. Omitted fields fall
// back to the values the Get* methods return.
type TrackerConfig struct {
	DP              *float64 `yaml:"dp,omitempty"`
	MinDist         *float64 `yaml:"min_dist,omitempty"`
	Param1          *float64 `yaml:"param1,omitempty"`
	Param2          *float64 `yaml:"param2,omitempty"`
	Blur            *int     `yaml:"blur,omitempty"`
	RadiusTolerance *float64 `yaml:"radius_tolerance,omitempty"`
}

// RunConfig is everything a derotation run needs besides the calibration
// itself.
type RunConfig struct {
	Source      string `yaml:"source"`
	Destination string `yaml:"destination"`

	PhysicalRPM float64 `yaml:"physical_rpm"`
	DigitalRPM  float64 `yaml:"digital_rpm"`

	StartTime float64 `yaml:"start_time"`
	EndTime   float64 `yaml:"end_time"`

	// FPS overrides the frame rate reported by the source when > 0.
	FPS    float64    `yaml:"fps"`
	Output OutputSize `yaml:"output"`
	Codec  string     `yaml:"codec"`

	CalibrationScript string `yaml:"calibration_script"`
	Database          string `yaml:"database"`
	ReportDir         string `yaml:"report_dir"`
	Logo              string `yaml:"logo"`
	Title             string `yaml:"title"`
	Preview           bool   `yaml:"preview"`

	Tracker TrackerConfig `yaml:"tracker"`
}

// Load reads a RunConfig from a YAML file. The result is not validated, so
// that command line flags can fill in missing fields first.
func Load(path string) (*RunConfig, error) {
	cleanPath := filepath.Clean(path)
	switch ext := filepath.Ext(cleanPath); ext {
	case ".yaml", ".yml":
	default:
		return nil, fmt.Errorf("config file must have .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &RunConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	return cfg, nil
}

// Validate checks the values needed before the batch phase can start.
func (c *RunConfig) Validate() error {
	if c.Source == "" {
		return fmt.Errorf("source path is required")
	}
	if c.Destination == "" {
		return fmt.Errorf("destination path is required")
	}
	if c.StartTime < 0 {
		return fmt.Errorf("start_time must be non-negative, got %g", c.StartTime)
	}
	if c.EndTime <= c.StartTime {
		return fmt.Errorf("end_time (%g) must be greater than start_time (%g)", c.EndTime, c.StartTime)
	}
	if c.FPS < 0 {
		return fmt.Errorf("fps must be non-negative, got %g", c.FPS)
	}
	if c.Output.Width < 0 || c.Output.Height < 0 {
		return fmt.Errorf("output size must be non-negative, got %dx%d", c.Output.Width, c.Output.Height)
	}
	if (c.Output.Width == 0) != (c.Output.Height == 0) {
		return fmt.Errorf("output width and height must both be set or both be zero")
	}
	if c.Tracker.RadiusTolerance != nil {
		if tol := *c.Tracker.RadiusTolerance; tol <= 0 || tol >= 1 {
			return fmt.Errorf("tracker.radius_tolerance must be between 0 and 1, got %g", tol)
		}
	}
	if c.Tracker.Blur != nil {
		if b := *c.Tracker.Blur; b < 0 || (b > 0 && b%2 == 0) {
			return fmt.Errorf("tracker.blur must be 0 or an odd number, got %d", b)
		}
	}
	return nil
}

// GetCodec returns the four character video codec, "mp4v" by default.
func (c *RunConfig) GetCodec() string {
	if c.Codec == "" {
		return "mp4v"
	}
	return c.Codec
}

// GetTitle returns the title stamped on output frames.
func (c *RunConfig) GetTitle() string {
	if c.Title == "" {
		return "DigiRot"
	}
	return c.Title
}

// GetDP returns the inverse accumulator resolution for circle detection.
func (t TrackerConfig) GetDP() float64 {
	if t.DP == nil {
		return 1
	}
	return *t.DP
}

// GetMinDist returns the minimum distance between detected circle centers.
func (t TrackerConfig) GetMinDist() float64 {
	if t.MinDist == nil {
		return 20
	}
	return *t.MinDist
}

// GetParam1 returns the upper Canny threshold for circle detection.
func (t TrackerConfig) GetParam1() float64 {
	if t.Param1 == nil {
		return 50
	}
	return *t.Param1
}

// GetParam2 returns the accumulator threshold for circle detection.
func (t TrackerConfig) GetParam2() float64 {
	if t.Param2 == nil {
		return 20
	}
	return *t.Param2
}

// GetBlur returns the median blur aperture applied before detection.
func (t TrackerConfig) GetBlur() int {
	if t.Blur == nil {
		return 5
	}
	return *t.Blur
}

// GetRadiusTolerance returns the relative half-width of the expected radius
// window around the particle estimate.
func (t TrackerConfig) GetRadiusTolerance() float64 {
	if t.RadiusTolerance == nil {
		return 0.3
	}
	return *t.RadiusTolerance
}
