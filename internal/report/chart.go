package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/pulse.report/internal/db"
)

// HeartRateChart renders records as an HTML line chart of the instant and
// smoothed heart rate against sample index.
func HeartRateChart(w io.Writer, title string, records []db.HeartRateRecord) error {
	x := make([]string, len(records))
	instant := make([]opts.LineData, len(records))
	filtered := make([]opts.LineData, len(records))
	for i, r := range records {
		x[i] = strconv.Itoa(r.SampleIndex)
		instant[i] = opts.LineData{Value: r.InstantBPM}
		filtered[i] = opts.LineData{Value: r.FilteredBPM}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Heart rate", Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("estimates=%d", len(records))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Sample", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "BPM", NameLocation: "middle", NameGap: 30}),
	)
	line.SetXAxis(x).
		AddSeries("instant", instant).
		AddSeries("filtered", filtered, charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))

	if err := line.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}
