package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/banshee-data/pathing/internal/collision"
	"github.com/banshee-data/pathing/internal/optimizer"
	"github.com/banshee-data/pathing/internal/report"
	"github.com/banshee-data/pathing/internal/timeline"
	"github.com/banshee-data/pathing/internal/units"
)

func handlePredict(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("predict", flag.ExitOnError)
	configPath := fs.String("config", "", "Configuration file")
	projectPath := fs.String("project", "", "Project document (required, - for stdin)")
	asJSON := fs.Bool("json", false, "Print the full prediction as JSON")
	plotPath := fs.String("plot", "", "Write a velocity plot (.png, .svg or .pdf)")
	chartPath := fs.String("chart", "", "Write an interactive HTML timeline chart")
	fs.Parse(args)

	if err := checkOutputs(*plotPath, *chartPath); err != nil {
		return err
	}
	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	p, err := readProject(*projectPath, os.Stdin, cfg)
	if err != nil {
		return err
	}
	pred, err := timeline.ComputeTimePrediction(p.StartPoint, p.Lines, p.Settings, p.Sequence)
	if err != nil {
		return err
	}

	if *plotPath != "" {
		if err := report.WriteVelocityPlot(pred, *plotPath); err != nil {
			return err
		}
	}
	if *chartPath != "" {
		if err := writeChart(*chartPath, pred, nil); err != nil {
			return err
		}
	}
	if *asJSON {
		return writeJSON(stdout, pred)
	}
	return printTimeline(stdout, pred, cfg.GetUnits())
}

func writeChart(path string, pred timeline.TimePrediction, log []optimizer.GenerationLog) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := report.RenderTimelineChart(f, pred, log); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// printTimeline writes one row per event and a total line with the distance
// in unit.
func printTimeline(w io.Writer, pred timeline.TimePrediction, unit string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tKIND\tSOURCE\tREF\tSTART\tEND\tDURATION")
	for i, ev := range pred.Timeline {
		ref := ev.LineID
		if ref == "" {
			ref = ev.ItemID
		}
		if ev.Name != "" {
			ref = ev.Name
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.3f\t%.3f\t%.3f\n",
			i, ev.Kind, ev.Source, ref, ev.StartTime, ev.EndTime, ev.Duration)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "total: %s over %.2f%s\n",
		units.Duration(pred.TotalTime).Round(time.Millisecond), units.FromInches(pred.TotalDistance, unit), unit)
	return err
}

func handleCollide(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("collide", flag.ExitOnError)
	configPath := fs.String("config", "", "Configuration file")
	projectPath := fs.String("project", "", "Project document (required, - for stdin)")
	fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	p, err := readProject(*projectPath, os.Stdin, cfg)
	if err != nil {
		return err
	}
	ranges, err := collision.DetectCollisions(p.StartPoint, p.Lines, p.Settings, p.Sequence, p.Shapes)
	if err != nil {
		return err
	}
	count, extent := collision.Summary(ranges)
	return writeJSON(stdout, map[string]any{
		"collisions": ranges,
		"count":      count,
		"extent":     extent,
	})
}

func handleOptimize(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("optimize", flag.ExitOnError)
	configPath := fs.String("config", "", "Configuration file")
	projectPath := fs.String("project", "", "Project document (required, - for stdin)")
	iterations := fs.Int("iterations", 0, "Override the number of generations")
	seed := fs.Int64("seed", 0, "Random seed (0 seeds from the clock)")
	outPath := fs.String("out", "", "Write the result as JSON to this file instead of stdout")
	plotPath := fs.String("plot", "", "Write a fitness plot (.png, .svg or .pdf)")
	chartPath := fs.String("chart", "", "Write an interactive HTML chart of the best timeline")
	quiet := fs.Bool("quiet", false, "Do not print per-generation progress")
	fs.Parse(args)

	if err := checkOutputs(*outPath, *plotPath, *chartPath); err != nil {
		return err
	}
	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	p, err := readProject(*projectPath, os.Stdin, cfg)
	if err != nil {
		return err
	}
	optCfg := cfg.OptimizerConfig()
	if *iterations > 0 {
		optCfg.Iterations = *iterations
	}
	if *seed != 0 {
		optCfg.Seed = *seed
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var onProgress func(optimizer.Progress)
	if !*quiet {
		onProgress = func(pr optimizer.Progress) {
			fmt.Fprintf(os.Stderr, "generation %d: best=%.3f collisions=%d strength=%.2f\n",
				pr.Generation, pr.BestFitness, pr.Collisions, pr.Strength)
		}
	}
	res, err := optimizer.Run(ctx, optimizer.ProblemFromProject(p), optCfg, onProgress, nil)
	if err != nil {
		return err
	}

	if *plotPath != "" {
		if err := report.WriteFitnessPlot(res.Log, *plotPath); err != nil {
			return err
		}
	}
	if *chartPath != "" {
		if err := writeChart(*chartPath, res.Prediction, res.Log); err != nil {
			return err
		}
	}
	if *outPath == "" {
		return writeJSON(stdout, res)
	}
	f, err := os.Create(*outPath)
	if err != nil {
		return err
	}
	if err := writeJSON(f, res); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_, err = fmt.Fprintf(stdout, "run %s %s after %d generations: %.3fs, %d collisions\n",
		res.RunID, res.Status, res.Generations, res.Prediction.TotalTime, len(res.Collisions))
	return err
}
