package charts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/testdino/insights/internal/insights"
	"github.com/testdino/insights/internal/runs"
)

func TestGenerator_Charts(t *testing.T) {
	g := NewGenerator()
	generated := runs.Generate(20, 10, 1337)
	report := insights.Aggregate(generated)

	tests := []struct {
		name  string
		html  string
		title string
	}{
		{"failures", string(g.FailuresBar(report.Persistent)), "Persistent Failures"},
		{"delta", string(g.DeltaBar(report)), "Emerging vs Recovered"},
		{"pie", string(g.CategoryPie(insights.SummaryCards(generated, 3))), "Failures by Category"},
		{"heatmap", string(g.Heatmap(insights.BranchHeatmap(generated))), "Branch Activity"},
		{"errors", string(g.ErrorArea(insights.BuildErrorSeries(insights.ErrorPoints(generated), insights.CountRange{}, nil))), "Errors Over Time"},
		{"volume", string(g.DailyVolume(insights.DailyCounts(generated))), "Daily Volume"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, tt.html, tt.title)
			assert.Contains(t, tt.html, "echarts")
		})
	}
}

func TestGenerator_FailuresBarSeries(t *testing.T) {
	html := string(NewGenerator().FailuresBar([]insights.FailureCount{
		{Name: "Login", Count: 4},
		{Name: "Checkout", Count: 2},
	}))
	assert.Contains(t, html, "Login")
	assert.Contains(t, html, "Checkout")
}

func TestGenerator_HeatmapScalesByBusiestDay(t *testing.T) {
	html := string(NewGenerator().Heatmap(insights.Heatmap{
		Branches: []string{"dev", "main"},
		Dates:    []string{"2025-01-01", "2025-01-02"},
		Cells:    [][]int{{4, 2}, {1, 0}},
		Max:      4,
	}))

	assert.Contains(t, html, "[0,0,100]")
	assert.Contains(t, html, "[1,0,50]")
	assert.Contains(t, html, "[0,1,25]")
	assert.Contains(t, html, "[1,1,0]")
	assert.Contains(t, html, "4 tests")
}

func TestSparkline(t *testing.T) {
	g := NewGenerator()

	assert.Empty(t, g.Sparkline(nil))

	svg := string(g.Sparkline([]float64{0, 5, 10}))
	assert.True(t, strings.HasPrefix(svg, "<svg"))
	assert.Contains(t, svg, `points="0.0,30.0 50.0,15.0 100.0,0.0"`)

	// A flat series is drawn along the bottom edge.
	flat := string(g.Sparkline([]float64{3, 3}))
	assert.Contains(t, flat, `points="0.0,30.0 100.0,30.0"`)

	single := string(g.Sparkline([]float64{7}))
	assert.Contains(t, single, `points="0.0,30.0"`)
}

func TestCategorySparkline(t *testing.T) {
	days := []insights.DayCount{
		{Date: "2025-01-01", Failures: map[runs.Category]int{runs.CategoryBug: 1}},
		{Date: "2025-01-02", Failures: map[runs.Category]int{runs.CategoryBug: 3}},
	}
	svg := string(NewGenerator().CategorySparkline(days, runs.CategoryBug))
	assert.Contains(t, svg, `points="0.0,30.0 100.0,0.0"`)
}
