// Package report renders timing and optimizer output as static plots and
// an interactive HTML page.
package report

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/pathing/internal/motion"
	"github.com/banshee-data/pathing/internal/optimizer"
	"github.com/banshee-data/pathing/internal/timeline"
)

// ErrNoData is returned when there is nothing to draw.
var ErrNoData = errors.New("report: nothing to plot")

var (
	bestColor = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
	meanColor = color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff}
)

// VelocitySeries flattens the travel profiles of pred into (seconds, in/s)
// points. Stationary events contribute zero velocity at both ends.
func VelocitySeries(pred timeline.TimePrediction) plotter.XYs {
	var pts plotter.XYs
	for _, ev := range pred.Timeline {
		if ev.Kind != timeline.EventTravel || len(ev.Velocities) == 0 {
			pts = append(pts, plotter.XY{X: ev.StartTime, Y: 0}, plotter.XY{X: ev.EndTime, Y: 0})
			continue
		}
		for k, v := range ev.Velocities {
			dt := math.Min(float64(k)*motion.SampleInterval, ev.Duration)
			pts = append(pts, plotter.XY{X: ev.StartTime + dt, Y: v})
		}
	}
	return pts
}

// WriteVelocityPlot draws velocity against time. The image format follows
// the extension of path (png, svg, pdf).
func WriteVelocityPlot(pred timeline.TimePrediction, path string) error {
	pts := VelocitySeries(pred)
	if len(pts) == 0 {
		return ErrNoData
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Velocity profile (total %.2f s, %.1f in)", pred.TotalTime, pred.TotalDistance)
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Velocity (in/s)"
	p.Add(plotter.NewGrid())

	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.Color = bestColor
	line.Width = vg.Points(1.5)
	p.Add(line)

	if err := p.Save(10*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("save velocity plot: %w", err)
	}
	return nil
}

// WriteFitnessPlot draws best and mean fitness per generation.
func WriteFitnessPlot(log []optimizer.GenerationLog, path string) error {
	if len(log) == 0 {
		return ErrNoData
	}
	best := make(plotter.XYs, len(log))
	mean := make(plotter.XYs, len(log))
	for i, g := range log {
		best[i] = plotter.XY{X: float64(g.Generation), Y: g.BestFitness}
		mean[i] = plotter.XY{X: float64(g.Generation), Y: g.MeanFitness}
	}

	p := plot.New()
	p.Title.Text = "Optimizer fitness"
	p.X.Label.Text = "Generation"
	p.Y.Label.Text = "Fitness (lower is better)"
	p.Add(plotter.NewGrid())

	for _, s := range []struct {
		name string
		pts  plotter.XYs
		c    color.Color
	}{
		{"best", best, bestColor},
		{"mean", mean, meanColor},
	} {
		line, err := plotter.NewLine(s.pts)
		if err != nil {
			return err
		}
		line.Color = s.c
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(s.name, line)
	}
	p.Legend.Top = true
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(10*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("save fitness plot: %w", err)
	}
	return nil
}
