package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/pathing/internal/optimizer"
	"github.com/banshee-data/pathing/internal/timeline"
)

// AssetsHost serves the echarts javascript.
var AssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// RenderTimelineChart writes an HTML page with the velocity profile, a bar
// per timeline event and, when log is not empty, the optimizer fitness.
func RenderTimelineChart(w io.Writer, pred timeline.TimePrediction, log []optimizer.GenerationLog) error {
	if len(pred.Timeline) == 0 {
		return ErrNoData
	}

	page := components.NewPage()
	page.SetAssetsHost(AssetsHost)
	page.SetPageTitle("Path timeline")
	page.AddCharts(velocityChart(pred), eventChart(pred))
	if len(log) > 0 {
		page.AddCharts(fitnessChart(log))
	}
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render timeline chart: %w", err)
	}
	return nil
}

func velocityChart(pred timeline.TimePrediction) *charts.Line {
	pts := VelocitySeries(pred)
	data := make([]opts.LineData, len(pts))
	for i, p := range pts {
		data[i] = opts.LineData{Value: []interface{}{p.X, p.Y}}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "360px", AssetsHost: AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Velocity", Subtitle: fmt.Sprintf("total %.3f s, %.1f in", pred.TotalTime, pred.TotalDistance)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "s", Min: 0, Max: pred.TotalTime}),
		charts.WithYAxisOpts(opts.YAxis{Name: "in/s"}),
	)
	line.AddSeries("velocity", data, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
	return line
}

func eventChart(pred timeline.TimePrediction) *charts.Bar {
	labels := make([]string, len(pred.Timeline))
	data := make([]opts.BarData, len(pred.Timeline))
	for i, ev := range pred.Timeline {
		labels[i] = eventLabel(i, ev)
		data[i] = opts.BarData{Value: ev.Duration}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "360px", AssetsHost: AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Events", Subtitle: fmt.Sprintf("%d events", len(pred.Timeline))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "s"}),
	)
	bar.SetXAxis(labels).AddSeries("duration", data)
	return bar
}

func eventLabel(i int, ev timeline.Event) string {
	name := ev.LineID
	if name == "" {
		name = ev.Name
	}
	if name == "" {
		name = ev.ItemID
	}
	return fmt.Sprintf("%d %s %s", i, ev.Source, name)
}

func fitnessChart(log []optimizer.GenerationLog) *charts.Line {
	gens := make([]string, len(log))
	best := make([]opts.LineData, len(log))
	mean := make([]opts.LineData, len(log))
	for i, g := range log {
		gens[i] = fmt.Sprint(g.Generation)
		best[i] = opts.LineData{Value: g.BestFitness}
		mean[i] = opts.LineData{Value: g.MeanFitness}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "360px", AssetsHost: AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Fitness", Subtitle: fmt.Sprintf("%d generations", len(log))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	line.SetXAxis(gens).
		AddSeries("best", best).
		AddSeries("mean", mean)
	return line
}
