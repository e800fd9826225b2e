package render

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Sumatoshi-tech/ordmap/internal/stress"
)

const (
	chartWidth  = "100%"
	chartHeight = "500px"
	boundColor  = "#c23531"
	heightColor = "#2f4554"
)

// HeightChart plots sampled tree height against the 2*log2(n+1) bound.
func HeightChart(samples []stress.Sample) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "ordmap stress",
			Width:     chartWidth,
			Height:    chartHeight,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Tree height",
			Subtitle: fmt.Sprintf("%d samples", len(samples)),
			Left:     "center",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "8%", Left: "center"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "operation"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "nodes"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside", Start: 0, End: 100}),
	)

	labels := make([]string, len(samples))
	heights := make([]opts.LineData, len(samples))
	bounds := make([]opts.LineData, len(samples))

	for i, sample := range samples {
		labels[i] = strconv.Itoa(sample.Op)
		heights[i] = opts.LineData{Value: sample.Height}
		bounds[i] = opts.LineData{Value: strconv.FormatFloat(sample.Bound, 'f', 2, 64)}
	}

	line.SetXAxis(labels)
	line.AddSeries("height", heights,
		charts.WithItemStyleOpts(opts.ItemStyle{Color: heightColor}),
		charts.WithLineStyleOpts(opts.LineStyle{Color: heightColor}),
	)
	line.AddSeries("2·log2(n+1)", bounds,
		charts.WithItemStyleOpts(opts.ItemStyle{Color: boundColor}),
		charts.WithLineStyleOpts(opts.LineStyle{Color: boundColor, Type: "dashed"}),
	)

	return line
}

// WriteHeightChart renders HeightChart as a standalone HTML page.
func WriteHeightChart(w io.Writer, samples []stress.Sample) error {
	err := HeightChart(samples).Render(w)
	if err != nil {
		return fmt.Errorf("render height chart: %w", err)
	}

	return nil
}
