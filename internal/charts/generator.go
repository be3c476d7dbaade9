package charts

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"math"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/testdino/insights/internal/insights"
	"github.com/testdino/insights/internal/runs"
)

// Generator renders dashboard charts as embeddable HTML fragments.
type Generator struct {
	height string
}

func NewGenerator() *Generator {
	return &Generator{height: "300px"}
}

func (g *Generator) init(title string) []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithInitializationOpts(opts.Initialization{
			Height: g.height,
			Width:  "100%",
		}),
	}
}

// FailuresBar charts the persistent failures by occurrence.
func (g *Generator) FailuresBar(persistent []insights.FailureCount) template.HTML {
	bar := charts.NewBar()
	bar.SetGlobalOptions(g.init("Persistent Failures")...)
	bar.SetGlobalOptions(charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}))

	names := make([]string, len(persistent))
	data := make([]opts.BarData, len(persistent))
	for i, p := range persistent {
		names[i] = p.Name
		data[i] = opts.BarData{Value: p.Count}
	}

	bar.SetXAxis(names).AddSeries("Failures", data)
	return g.renderToHTML(bar)
}

// DeltaBar charts emerging and recovered failures side by side. Recovered
// deltas are negative and plot below the axis.
func (g *Generator) DeltaBar(report insights.Report) template.HTML {
	bar := charts.NewBar()
	bar.SetGlobalOptions(g.init("Emerging vs Recovered")...)

	names := []string{}
	emerging := []opts.BarData{}
	recovered := []opts.BarData{}
	for _, d := range report.Emerging {
		names = append(names, d.Name)
		emerging = append(emerging, opts.BarData{Value: d.Delta})
		recovered = append(recovered, opts.BarData{Value: 0})
	}
	for _, d := range report.Recovered {
		names = append(names, d.Name)
		emerging = append(emerging, opts.BarData{Value: 0})
		recovered = append(recovered, opts.BarData{Value: d.Delta})
	}

	bar.SetXAxis(names).
		AddSeries("Emerging", emerging).
		AddSeries("Recovered", recovered).
		SetSeriesOptions(charts.WithBarChartOpts(opts.BarChart{Stack: "delta"}))
	return g.renderToHTML(bar)
}

// CategoryPie charts how failures split across categories.
func (g *Generator) CategoryPie(cards []insights.SummaryCard) template.HTML {
	pie := charts.NewPie()
	pie.SetGlobalOptions(g.init("Failures by Category")...)

	data := make([]opts.PieData, 0, len(cards))
	for _, c := range cards {
		if c.Count == 0 {
			continue
		}
		data = append(data, opts.PieData{Name: string(c.Category), Value: c.Count})
	}

	pie.AddSeries("Categories", data).
		SetSeriesOptions(charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Formatter: "{b}: {c}"}))
	return g.renderToHTML(pie)
}

// Heatmap charts test case volume per branch and day.
func (g *Generator) Heatmap(hm insights.Heatmap) template.HTML {
	chart := charts.NewHeatMap()
	chart.SetGlobalOptions(g.init("Branch Activity")...)
	chart.SetGlobalOptions(
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: hm.Branches}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        100,
			InRange:    &opts.VisualMapInRange{Color: []string{"#f0f9ff", "#0ea5e9", "#1e3a8a"}},
		}),
	)

	data := make([]opts.HeatMapData, 0, len(hm.Branches)*len(hm.Dates))
	for bi := range hm.Branches {
		for di := range hm.Dates {
			pct := int(math.Round(hm.Intensity(bi, di) * 100))
			data = append(data, opts.HeatMapData{Name: fmt.Sprintf("%d tests", hm.Cells[bi][di]), Value: [3]interface{}{di, bi, pct}})
		}
	}

	// Cells are shaded by share of the busiest branch-day.
	chart.SetXAxis(hm.Dates).AddSeries("% of busiest day", data)
	return g.renderToHTML(chart)
}

// ErrorArea charts each error line as a stacked area.
func (g *Generator) ErrorArea(series insights.ErrorSeries) template.HTML {
	line := charts.NewLine()
	line.SetGlobalOptions(g.init("Errors Over Time")...)

	line.SetXAxis(series.Dates)
	for _, l := range series.Lines {
		data := make([]opts.LineData, len(l.Counts))
		for i, v := range l.Counts {
			data[i] = opts.LineData{Value: v}
		}
		line.AddSeries(l.Error, data)
	}
	line.SetSeriesOptions(
		charts.WithLineChartOpts(opts.LineChart{Stack: "errors", Smooth: opts.Bool(true)}),
		charts.WithAreaStyleOpts(opts.AreaStyle{Opacity: opts.Float(0.3)}),
	)
	return g.renderToHTML(line)
}

// DailyVolume charts runs and test cases per day.
func (g *Generator) DailyVolume(days []insights.DayCount) template.HTML {
	line := charts.NewLine()
	line.SetGlobalOptions(g.init("Daily Volume")...)

	dates := make([]string, len(days))
	runData := make([]opts.LineData, len(days))
	testData := make([]opts.LineData, len(days))
	for i, d := range days {
		dates[i] = d.Date
		runData[i] = opts.LineData{Value: d.Runs}
		testData[i] = opts.LineData{Value: d.Tests}
	}

	line.SetXAxis(dates).
		AddSeries("Runs", runData).
		AddSeries("Tests", testData).
		SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
	return g.renderToHTML(line)
}

// CategorySparkline draws the daily count of one category as an inline SVG.
func (g *Generator) CategorySparkline(days []insights.DayCount, cat runs.Category) template.HTML {
	values := make([]float64, len(days))
	for i, d := range days {
		values[i] = float64(d.Failures[cat])
	}
	return g.Sparkline(values)
}

func (g *Generator) Sparkline(values []float64) template.HTML {
	if len(values) == 0 {
		return ""
	}
	width := 100
	height := 30

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	if lo == hi {
		hi = lo + 1
	}

	step := 0.0
	if len(values) > 1 {
		step = float64(width) / float64(len(values)-1)
	}

	points := make([]string, len(values))
	for i, v := range values {
		x := float64(i) * step
		y := float64(height) - ((v - lo) / (hi - lo) * float64(height))
		points[i] = fmt.Sprintf("%.1f,%.1f", x, y)
	}

	return template.HTML(fmt.Sprintf(
		`<svg width="%d" height="%d" class="sparkline"><polyline points="%s" fill="none" stroke="currentColor" stroke-width="2"/></svg>`,
		width, height, strings.Join(points, " "),
	))
}

// Renderer is anything that can render itself to an io.Writer.
type Renderer interface {
	Render(w io.Writer) error
}

func (g *Generator) renderToHTML(c Renderer) template.HTML {
	var buf bytes.Buffer
	if err := c.Render(&buf); err != nil {
		return template.HTML(fmt.Sprintf("<!-- chart render failed: %s -->", template.HTMLEscapeString(err.Error())))
	}
	return template.HTML(buf.String())
}
