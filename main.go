package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"log"
	"os"
	"os/signal"

	"gocv.io/x/gocv"

	"github.com/lkarlslund/digirot/internal/calibration"
	"github.com/lkarlslund/digirot/internal/config"
	"github.com/lkarlslund/digirot/internal/derotate"
	"github.com/lkarlslund/digirot/internal/monitoring"
	"github.com/lkarlslund/digirot/internal/overlay"
	"github.com/lkarlslund/digirot/internal/pipeline"
	"github.com/lkarlslund/digirot/internal/report"
	"github.com/lkarlslund/digirot/internal/store"
	"github.com/lkarlslund/digirot/internal/tracker"
	"github.com/lkarlslund/digirot/internal/video"
)

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		log.Fatalf("digirot: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	summary, err := run(ctx, cfg)
	if summary.frames > 0 {
		fmt.Printf("Processed %d frames, wrote %d into %s (%dx%d), %d detections, %d frames without a particle\n",
			summary.frames, summary.written, cfg.Destination, summary.outputSize.X, summary.outputSize.Y,
			len(summary.trajectory), summary.misses)
	}
	if summary.runID != "" {
		fmt.Printf("Run saved as %s in %s\n", summary.runID, cfg.Database)
	}
	if err != nil {
		log.Fatalf("digirot: %v", err)
	}
}

// parseFlags loads the optional config file and applies the flags that
// were given on top of it.
func parseFlags(args []string) (*config.RunConfig, error) {
	fs := flag.NewFlagSet("digirot", flag.ContinueOnError)
	configPath := fs.String("config", "", "YAML run configuration")
	in := fs.String("in", "", "source movie")
	out := fs.String("out", "", "destination movie")
	physical := fs.Float64("physical-rpm", 0, "rotation rate of the table while filming")
	digital := fs.Float64("digital-rpm", 0, "rotation rate added digitally")
	start := fs.Float64("start", 0, "start time in seconds")
	end := fs.Float64("end", 0, "end time in seconds")
	script := fs.String("calibration", "", "calibration script")
	db := fs.String("db", "", "sqlite database for trajectories")
	reports := fs.String("reports", "", "directory for trajectory reports")
	showPreview := fs.Bool("preview", false, "show calibration and output frames")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := &config.RunConfig{}
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return nil, err
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "in":
			cfg.Source = *in
		case "out":
			cfg.Destination = *out
		case "physical-rpm":
			cfg.PhysicalRPM = *physical
		case "digital-rpm":
			cfg.DigitalRPM = *digital
		case "start":
			cfg.StartTime = *start
		case "end":
			cfg.EndTime = *end
		case "calibration":
			cfg.CalibrationScript = *script
		case "db":
			cfg.Database = *db
		case "reports":
			cfg.ReportDir = *reports
		case "preview":
			cfg.Preview = *showPreview
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.CalibrationScript == "" {
		return nil, errors.New("a calibration script is required")
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *config.RunConfig) (runSummary, error) {
	var summary runSummary

	script, err := calibration.LoadScript(cfg.CalibrationScript)
	if err != nil {
		return summary, fmt.Errorf("loading calibration: %w", err)
	}

	src, err := video.OpenSource(cfg.Source)
	if err != nil {
		return summary, err
	}
	defer src.Close()

	params := cfg.Rotation(src.FPS())
	if err := params.Validate(); err != nil {
		return summary, err
	}
	startFrame, numFrames := cfg.FrameRange(params.FramesPerSecond)
	if numFrames == 0 {
		return summary, fmt.Errorf("time range %g-%g s holds no frames at %.2f fps", cfg.StartTime, cfg.EndTime, params.FramesPerSecond)
	}
	if n := src.FrameCount(); n > 0 && startFrame+numFrames > n {
		monitoring.Logf("digirot: range ends at frame %d but %s claims %d frames", startFrame+numFrames, cfg.Source, n)
	}
	if period, err := params.Period(); err != nil {
		monitoring.Logf("digirot: rotation period undefined: %v", err)
	} else {
		monitoring.Logf("digirot: digital rotation period %.2f s, %.3f degrees per frame", period, params.AnglePerFrame())
	}

	// Calibration phase, on the first frame of the range.
	if err := src.Seek(startFrame); err != nil {
		return summary, err
	}
	first := gocv.NewMat()
	defer first.Close()
	if err := src.Read(&first); err != nil {
		return summary, fmt.Errorf("reading frame %d for calibration: %w", startFrame, err)
	}

	var view *preview
	var v viewer
	if cfg.Preview {
		view = newPreview("DigiRot")
		defer view.Close()
		v = view
	}
	cal, err := calibrate(first, script, v)
	if err != nil {
		return summary, err
	}
	monitoring.Logf("digirot: calibrated circle %v, particle radius %.1f", cal.fit, cal.particle.Radius())

	// Batch phase.
	if err := src.Seek(startFrame); err != nil {
		return summary, err
	}
	frameSize := image.Pt(first.Cols(), first.Rows())
	outputSize := image.Pt(cfg.Output.Width, cfg.Output.Height)
	if outputSize.X == 0 {
		outputSize = frameSize
	}
	summary.outputSize = outputSize

	sink, err := video.CreateSink(cfg.Destination, cfg.GetCodec(), params.FramesPerSecond, outputSize)
	if err != nil {
		return summary, err
	}
	defer sink.Close()

	annotator := &overlay.Annotator{
		Title:       cfg.GetTitle(),
		PhysicalRPM: params.PhysicalRPM,
		DigitalRPM:  params.DigitalRPM,
	}
	if cfg.Logo != "" {
		logo, err := overlay.LoadLogo(cfg.Logo, outputSize.X)
		if err != nil {
			return summary, fmt.Errorf("loading logo: %w", err)
		}
		annotator.Logo = &logo
	}
	defer annotator.Close()

	batchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	batch := &pipeline.Batch{
		Source:      src,
		Sink:        sink,
		Presenters:  []pipeline.Presenter{annotator},
		Transformer: derotate.NewTransformer(cal.fit, params, frameSize, outputSize),
		Tracker: tracker.New(tracker.NewHoughDetector(cfg.Tracker), cal.particle,
			cfg.Tracker.GetRadiusTolerance(), params.FramesPerSecond),
		NumFrames: numFrames,
		Axis:      cal.fit.Center,
	}
	if view != nil {
		view.onEscape = cancel
		batch.Presenters = append(batch.Presenters, view)
	}

	res, runErr := batch.Run(batchCtx)
	summary.written = sink.Frames()
	summary.frames = res.FramesProcessed
	summary.misses = res.Misses
	summary.trajectory = res.Trajectory

	if cfg.Database != "" {
		id, err := saveRun(cfg, params.FramesPerSecond, cal, res)
		if err != nil {
			return summary, errors.Join(runErr, fmt.Errorf("saving run: %w", err))
		}
		summary.runID = id
	}
	if cfg.ReportDir != "" {
		if err := report.WriteAll(cfg.ReportDir, cfg.GetTitle(), res.Trajectory); err != nil {
			return summary, errors.Join(runErr, fmt.Errorf("writing reports: %w", err))
		}
	}
	return summary, runErr
}

func saveRun(cfg *config.RunConfig, fps float64, cal calibrationResult, res pipeline.Result) (string, error) {
	db, err := store.Open(cfg.Database)
	if err != nil {
		return "", err
	}
	defer db.Close()

	id, err := db.CreateRun(store.RunRecord{
		Source:      cfg.Source,
		Destination: cfg.Destination,
		PhysicalRPM: cfg.PhysicalRPM,
		DigitalRPM:  cfg.DigitalRPM,
		FPS:         fps,
		StartTime:   cfg.StartTime,
		EndTime:     cfg.EndTime,
		Fit:         cal.fit,
	})
	if err != nil {
		return "", err
	}
	if err := db.InsertTrajectory(id, res.Trajectory); err != nil {
		return "", err
	}
	if err := db.FinishRun(id, res.FramesProcessed); err != nil {
		return "", err
	}
	return id, nil
}
