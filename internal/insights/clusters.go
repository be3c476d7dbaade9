package insights

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/testdino/insights/internal/runs"
)

const (
	maxClusters     = 5
	unknownErrorKey = "Unknown Error"
	trendStable     = "↔ Stable"
	trendNew        = "New"
)

// ErrorCluster groups the windowed test cases that share an error message.
type ErrorCluster struct {
	Error    string   `json:"error"`
	First    int      `json:"first"`
	Second   int      `json:"second"`
	Total    int      `json:"total"`
	Tests    int      `json:"tests"`
	Branches []string `json:"branches"`
	Trend    string   `json:"trend"`
	Impact   string   `json:"impact"`
	Insight  string   `json:"insight"`
	Action   string   `json:"action"`
}

type clusterAgg struct {
	first, second int
	tests         map[string]struct{}
	branches      []string
	branchSeen    map[string]struct{}
}

// ErrorClusters returns the five most frequent error messages in the
// trailing window with their half-window trend and a canned diagnosis.
func ErrorClusters(in []runs.Run) []ErrorCluster {
	windowed, _ := Window(in)

	mid := len(windowed) / 2
	if mid == 0 {
		mid = 1
	}

	order := []string{}
	byError := map[string]*clusterAgg{}
	for i, r := range windowed {
		for _, tc := range r.TestCases {
			key := string(tc.Error)
			if key == "" {
				key = unknownErrorKey
			}
			agg, ok := byError[key]
			if !ok {
				agg = &clusterAgg{tests: map[string]struct{}{}, branchSeen: map[string]struct{}{}}
				byError[key] = agg
				order = append(order, key)
			}
			agg.tests[tc.TestName] = struct{}{}
			if _, seen := agg.branchSeen[string(r.Branch)]; !seen {
				agg.branchSeen[string(r.Branch)] = struct{}{}
				agg.branches = append(agg.branches, string(r.Branch))
			}
			if i < mid {
				agg.first++
			} else {
				agg.second++
			}
		}
	}

	out := make([]ErrorCluster, 0, len(order))
	for _, key := range order {
		agg := byError[key]
		out = append(out, ErrorCluster{
			Error:    key,
			First:    agg.first,
			Second:   agg.second,
			Total:    agg.first + agg.second,
			Tests:    len(agg.tests),
			Branches: agg.branches,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Total > out[j].Total })
	if len(out) > maxClusters {
		out = out[:maxClusters]
	}

	for i := range out {
		c := &out[i]
		c.Trend = clusterTrend(c.First, c.Second)
		c.Impact = clusterImpact(c.Tests, c.Branches)
		c.Insight, c.Action = diagnose(c.Error)
	}
	return out
}

func clusterTrend(first, second int) string {
	base := float64(max(1, first))
	switch {
	case first == 0 && second > 0:
		return trendNew
	case second > first:
		return fmt.Sprintf("↑ %d%%", int(math.Round(float64(second-first)/base*100)))
	case second < first:
		return fmt.Sprintf("↓ %d%%", int(math.Round(float64(first-second)/base*100)))
	}
	return trendStable
}

func clusterImpact(tests int, branches []string) string {
	scope := "n/a"
	switch {
	case len(branches) == 1:
		scope = branches[0] + " only"
	case len(branches) > 1:
		scope = "multiple branches"
	}
	return fmt.Sprintf("%d tests, %s", tests, scope)
}

// diagnose maps an error message to an insight and a suggested action.
func diagnose(msg string) (insight, action string) {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "timeout"):
		return "Spike after recent changes, likely API delay", "Optimize API or increase timeout"
	case strings.Contains(lower, "element not found"):
		return "Persistent post UI changes", "Update selectors & enable locator healing"
	case strings.Contains(lower, "network"):
		return "Appeared around config/network updates", "Verify backend/staging network"
	}
	return "Recurring across runs", "Investigate logs & recent merges"
}
