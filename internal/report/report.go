// Package report writes the trajectory of a run as CSV, PNG plots and an
// interactive HTML chart.
package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/lkarlslund/digirot/internal/monitoring"
	"github.com/lkarlslund/digirot/internal/tracker"
)

var ErrNoTrajectory = errors.New("trajectory is empty")

// File names written by WriteAll.
const (
	CSVFile      = "trajectory.csv"
	PathPlot     = "path.png"
	PositionPlot = "position.png"
	HTMLFile     = "trajectory.html"
)

// WriteCSV writes one frame,time,x,y row per entry after a header.
func WriteCSV(w io.Writer, entries []tracker.TrajectoryEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"frame", "time", "x", "y"}); err != nil {
		return err
	}
	for _, e := range entries {
		rec := []string{
			strconv.Itoa(e.FrameIndex),
			strconv.FormatFloat(e.Timestamp, 'f', -1, 64),
			strconv.FormatFloat(e.X, 'f', -1, 64),
			strconv.FormatFloat(e.Y, 'f', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WritePlots saves the path in the rotating frame and the position over
// time as PNG files in dir.
func WritePlots(dir, title string, entries []tracker.TrajectoryEntry) error {
	if len(entries) == 0 {
		return ErrNoTrajectory
	}

	path := make(plotter.XYs, len(entries))
	xs := make(plotter.XYs, len(entries))
	ys := make(plotter.XYs, len(entries))
	for i, e := range entries {
		path[i] = plotter.XY{X: e.X, Y: e.Y}
		xs[i] = plotter.XY{X: e.Timestamp, Y: e.X}
		ys[i] = plotter.XY{X: e.Timestamp, Y: e.Y}
	}

	pPath := plot.New()
	pPath.Title.Text = title + " - Path"
	pPath.X.Label.Text = "x (px)"
	pPath.Y.Label.Text = "y (px)"
	pathLine, pathPoints, err := plotter.NewLinePoints(path)
	if err != nil {
		return fmt.Errorf("path plot: %w", err)
	}
	pathLine.Width = vg.Points(1)
	pathPoints.Radius = vg.Points(1.5)
	pPath.Add(plotter.NewGrid(), pathLine, pathPoints)

	pPos := plot.New()
	pPos.Title.Text = title + " - Position"
	pPos.X.Label.Text = "Time (s)"
	pPos.Y.Label.Text = "Position (px)"
	for _, s := range []struct {
		name string
		xys  plotter.XYs
		c    color.RGBA
	}{
		{"x", xs, color.RGBA{R: 200, A: 255}},
		{"y", ys, color.RGBA{B: 200, A: 255}},
	} {
		line, err := plotter.NewLine(s.xys)
		if err != nil {
			return fmt.Errorf("position plot: %w", err)
		}
		line.Width = vg.Points(1)
		line.Color = s.c
		pPos.Add(line)
		pPos.Legend.Add(s.name, line)
	}
	pPos.Add(plotter.NewGrid())
	pPos.Legend.Top = true

	if err := pPath.Save(8*vg.Inch, 8*vg.Inch, filepath.Join(dir, PathPlot)); err != nil {
		return fmt.Errorf("failed to save path plot: %w", err)
	}
	if err := pPos.Save(12*vg.Inch, 5*vg.Inch, filepath.Join(dir, PositionPlot)); err != nil {
		return fmt.Errorf("failed to save position plot: %w", err)
	}
	return nil
}

// WriteHTML renders an interactive scatter of the axis relative path.
func WriteHTML(w io.Writer, title string, entries []tracker.TrajectoryEntry) error {
	data := make([]opts.ScatterData, 0, len(entries))
	for _, e := range entries {
		data = append(data, opts.ScatterData{Value: []interface{}{e.X, e.Y, e.Timestamp}})
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("points=%d", len(entries))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "x (px)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "y (px)", NameLocation: "middle", NameGap: 30}),
	)
	scatter.AddSeries("trajectory", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))
	return scatter.Render(w)
}

// WriteAll writes every report into dir, creating it if needed. Plots are
// skipped for an empty trajectory.
func WriteAll(dir, title string, entries []tracker.TrajectoryEntry) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, CSVFile), func(w io.Writer) error {
		return WriteCSV(w, entries)
	}); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, HTMLFile), func(w io.Writer) error {
		return WriteHTML(w, title, entries)
	}); err != nil {
		return err
	}
	if err := WritePlots(dir, title, entries); err != nil {
		if errors.Is(err, ErrNoTrajectory) {
			monitoring.Logf("report: no trajectory, skipping plots")
			return nil
		}
		return err
	}
	monitoring.Logf("report: wrote %d entries to %s", len(entries), dir)
	return nil
}

func writeFile(path string, fill func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fill(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
