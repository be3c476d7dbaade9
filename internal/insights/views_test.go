package insights

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/testdino/insights/internal/runs"
)

func withErrors(r runs.Run, errs ...runs.ErrorMessage) runs.Run {
	for i := range r.TestCases {
		r.TestCases[i].Error = errs[i%len(errs)]
	}
	return r
}

func TestBranchHeatmap(t *testing.T) {
	in := []runs.Run{
		run("T1", "2025-01-01", runs.BranchDevB, "A", "B"),
		run("T2", "2025-01-01", runs.BranchDevB, "A"),
		run("T3", "2025-01-02", runs.BranchProd, "A", "B", "C"),
	}
	hm := BranchHeatmap(in)
	assert.Equal(t, []string{"devB", "prod"}, hm.Branches)
	assert.Equal(t, []string{"2025-01-01", "2025-01-02"}, hm.Dates)
	assert.Equal(t, [][]int{{3, 0}, {0, 3}}, hm.Cells)
	assert.Equal(t, 3, hm.Max)
	assert.InDelta(t, 1.0, hm.Intensity(0, 0), 1e-9)
}

func TestBranchHeatmap_EmptyHasUnitMax(t *testing.T) {
	hm := BranchHeatmap(nil)
	assert.Equal(t, 1, hm.Max)
	assert.Empty(t, hm.Branches)
}

func TestErrorClusters(t *testing.T) {
	in := []runs.Run{
		withErrors(run("T1", "2025-01-01", runs.BranchDevA, "A", "B"), runs.ErrorNetworkTimeout),
		withErrors(run("T2", "2025-01-01", runs.BranchDevA, "A"), runs.ErrorAssertion),
		withErrors(run("T3", "2025-01-02", runs.BranchDevB, "A", "B", "C"), runs.ErrorNetworkTimeout),
		withErrors(run("T4", "2025-01-02", runs.BranchDevB, "C"), "Element not found: #submit"),
	}
	got := ErrorClusters(in)
	require.Len(t, got, 3)

	timeout := got[0]
	assert.Equal(t, string(runs.ErrorNetworkTimeout), timeout.Error)
	assert.Equal(t, 5, timeout.Total)
	assert.Equal(t, 2, timeout.First)
	assert.Equal(t, 3, timeout.Second)
	assert.Equal(t, "↑ 50%", timeout.Trend)
	assert.Equal(t, "3 tests, multiple branches", timeout.Impact)
	assert.Equal(t, "Spike after recent changes, likely API delay", timeout.Insight)
	assert.Equal(t, "Optimize API or increase timeout", timeout.Action)

	assertion := got[1]
	assert.Equal(t, "↓ 100%", assertion.Trend)
	assert.Equal(t, "1 tests, devA only", assertion.Impact)
	assert.Equal(t, "Recurring across runs", assertion.Insight)

	selector := got[2]
	assert.Equal(t, "New", selector.Trend)
	assert.Equal(t, "Update selectors & enable locator healing", selector.Action)
}

func TestErrorClusters_CapsAtFive(t *testing.T) {
	r := run("T1", "2025-01-01", runs.BranchDevA, "A", "B", "C", "D", "E", "F", "G")
	r = withErrors(r, "e1", "e2", "e3", "e4", "e5", "e6", "e7")
	got := ErrorClusters([]runs.Run{r})
	assert.Len(t, got, 5)
	// A single run stays in the first half.
	assert.Equal(t, "↓ 100%", got[0].Trend)
}

func TestDiagnose(t *testing.T) {
	tests := []struct {
		msg, insight string
	}{
		{"Timeout waiting for element", "Spike after recent changes, likely API delay"},
		{"Element not found", "Persistent post UI changes"},
		{"network unreachable", "Appeared around config/network updates"},
		{"Database error", "Recurring across runs"},
	}
	for _, tt := range tests {
		insight, _ := diagnose(tt.msg)
		assert.Equal(t, tt.insight, insight, tt.msg)
	}
}

func TestClusterTrend(t *testing.T) {
	assert.Equal(t, "↔ Stable", clusterTrend(3, 3))
	assert.Equal(t, "↔ Stable", clusterTrend(0, 0))
	assert.Equal(t, "New", clusterTrend(0, 4))
	assert.Equal(t, "↑ 200%", clusterTrend(1, 3))
	assert.Equal(t, "↓ 33%", clusterTrend(3, 2))
}

func TestDailyTimeline(t *testing.T) {
	busy := run("T1", "2025-01-02", runs.BranchDevA, "A", "B", "C", "D", "E", "F")
	busy = withErrors(busy, runs.ErrorNetworkTimeout)
	quiet := withErrors(run("T2", "2025-01-01", runs.BranchDevA, "A"), runs.ErrorDatabase)
	other := withErrors(run("T3", "2025-01-02", runs.BranchProd, "A"), runs.ErrorDatabase)

	got := DailyTimeline([]runs.Run{quiet, busy, other, run("T4", "bogus", runs.BranchDevA, "A")})
	require.Len(t, got, 2)

	assert.Equal(t, "2025-01-02", got[0].Date)
	assert.Equal(t, "Jan 2", got[0].Label)
	// Six "bug" test cases also trigger the bug event, capped at three events.
	require.Len(t, got[0].Events, 3)
	assert.Equal(t, "6 timeout failures detected - potential performance regression", got[0].Events[0])
	assert.Equal(t, "2 branches tested - new feature development", got[0].Events[1])
	assert.True(t, strings.HasPrefix(got[0].Events[2], "7 bug-related failures"))

	assert.Equal(t, "Jan 1", got[1].Label)
	assert.Equal(t, []string{stableEvent}, got[1].Events)
}

func TestDailyTimeline_UIChangeAndVolume(t *testing.T) {
	r := runs.Run{TestRunID: "T1", Date: "2025-03-10", Branch: runs.BranchDevA}
	for i := 0; i < 51; i++ {
		cat := runs.CategoryFlaky
		if i < 4 {
			cat = runs.CategoryUIChange
		}
		r.TestCases = append(r.TestCases, runs.TestCase{TestName: "X", Category: cat, Error: runs.ErrorLayoutChanged})
	}
	got := DailyTimeline([]runs.Run{r})
	require.Len(t, got, 1)
	assert.Equal(t, []string{
		"UI changes detected - new interface features being tested",
		"High test volume (51 tests) - comprehensive testing cycle",
	}, got[0].Events)
}

func TestSummaryCards(t *testing.T) {
	in := []runs.Run{{
		TestRunID: "T1", Date: "2025-01-01",
		TestCases: []runs.TestCase{
			{TestName: "A", Category: runs.CategoryBug},
			{TestName: "B", Category: runs.CategoryBug},
			{TestName: "C", Category: runs.CategoryFlaky},
		},
	}, {
		TestRunID: "T2", Date: "2025-01-01",
		TestCases: []runs.TestCase{{TestName: "B", Category: runs.CategoryBug}},
	}}
	cards := SummaryCards(in, 1)
	require.Len(t, cards, 4)
	assert.Equal(t, runs.CategoryUnknown, cards[0].Category)
	assert.Zero(t, cards[0].Count)
	assert.Equal(t, 3, cards[1].Count)
	assert.Equal(t, []FailureCount{{Name: "B", Count: 2}}, cards[1].TopTests)
	assert.Equal(t, 1, cards[3].Count)
}

func TestDailyCounts(t *testing.T) {
	in := []runs.Run{
		run("T1", "2025-01-02", runs.BranchDevA, "A"),
		run("T2", "2025-01-01", runs.BranchDevA, "A", "B"),
		run("T3", "2025-01-01", runs.BranchDevA),
	}
	got := DailyCounts(in)
	require.Len(t, got, 2)
	assert.Equal(t, "2025-01-01", got[0].Date)
	assert.Equal(t, 2, got[0].Runs)
	assert.Equal(t, 2, got[0].Tests)
	assert.Equal(t, 2, got[0].Failures[runs.CategoryBug])
}

func TestCategoryMigrations(t *testing.T) {
	in := []runs.Run{
		{TestRunID: "T1", Date: "2025-01-01", TestCases: []runs.TestCase{{TestName: "A", Category: runs.CategoryBug, Percentage: 10}}},
		{TestRunID: "T2", Date: "2025-01-01", TestCases: []runs.TestCase{{TestName: "A", Category: runs.CategoryBug, Percentage: 20}}},
		{TestRunID: "T3", Date: "2025-01-02", TestCases: []runs.TestCase{{TestName: "A", Category: runs.CategoryFlaky, Percentage: 30, RetryCount: "2/3"}}},
	}
	got := CategoryMigrations(in)
	assert.Equal(t, []Migration{{
		TestName: "A", From: runs.CategoryBug, To: runs.CategoryFlaky, RunID: "T3", Date: "2025-01-02",
	}}, got)

	matrix := MigrationMatrix(got)
	assert.Equal(t, 1, matrix[runs.CategoryBug][runs.CategoryFlaky])
	assert.Zero(t, matrix[runs.CategoryFlaky][runs.CategoryBug])

	path := MigrationPath(in, "A")
	require.Len(t, path, 3)
	assert.Equal(t, 110, path[0].Position)
	assert.Equal(t, 330, path[2].Position)
	assert.Zero(t, path[0].Retries)
	assert.Equal(t, 2, path[2].Retries)
}

func TestCategoryMigrations_Stickiness(t *testing.T) {
	generated := runs.Generate(200, 10, 3)
	migrations := CategoryMigrations(generated)
	assert.NotEmpty(t, migrations)
	for _, m := range migrations {
		assert.NotEqual(t, m.From, m.To)
	}
}

func TestErrorSeries(t *testing.T) {
	points := []ErrorPoint{
		{Date: "2025-01-02", Error: "x", Count: 12},
		{Date: "2025-01-01", Error: "x", Count: 3},
		{Date: "2025-01-01", Error: "y", Count: 5},
		{Date: "2025-01-02", Error: "z", Count: 0},
	}

	all := BuildErrorSeries(points, CountRange{}, nil)
	assert.Equal(t, []string{"2025-01-01", "2025-01-02"}, all.Dates)
	require.Len(t, all.Lines, 2)
	assert.Equal(t, ErrorLine{Error: "x", Total: 15, Counts: []int{3, 12}}, all.Lines[0])

	tens := BuildErrorSeries(points, CountRange{Min: 10, Max: 20}, nil)
	require.Len(t, tens.Lines, 1)
	assert.Equal(t, []int{0, 12}, tens.Lines[0].Counts)

	pinned := BuildErrorSeries(points, CountRange{}, []string{"y", "missing"})
	require.Len(t, pinned.Lines, 1)
	assert.Equal(t, "y", pinned.Lines[0].Error)
}

func TestErrorPoints(t *testing.T) {
	in := []runs.Run{
		withErrors(run("T1", "2025-01-01", runs.BranchDevA, "A", "B"), runs.ErrorDatabase),
		withErrors(run("T2", "2025-01-01", runs.BranchDevA, "A"), ""),
	}
	got := ErrorPoints(in)
	assert.Equal(t, []ErrorPoint{
		{Date: "2025-01-01", Error: string(runs.ErrorDatabase), Count: 2},
		{Date: "2025-01-01", Error: "Unknown Error", Count: 1},
	}, got)
}
