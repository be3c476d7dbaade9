// Package insights derives failure summaries and dashboard views from test
// runs. Every function is pure and safe for concurrent use.
package insights

import (
	"sort"

	"github.com/testdino/insights/internal/runs"
)

// TopK caps the persistent, emerging and recovered lists.
const TopK = 6

type FailureCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type FailureDelta struct {
	Name  string `json:"name"`
	Delta int    `json:"delta"`
}

// Report is the result of Aggregate.
type Report struct {
	Persistent  []FailureCount `json:"persistent"`
	Emerging    []FailureDelta `json:"emerging"`
	Recovered   []FailureDelta `json:"recovered"`
	WindowStart string         `json:"windowStart,omitempty"`
	WindowEnd   string         `json:"windowEnd,omitempty"`
	Runs        int            `json:"runs"`
	SkippedRuns int            `json:"skippedRuns"`
}

// Aggregate summarises the trailing window of runs. Persistent failures are
// the TopK test names by occurrence; emerging and recovered failures are the
// persistent names whose count grew or shrank between the first and second
// half of the window.
func Aggregate(in []runs.Run) Report {
	windowed, span := Window(in)

	report := Report{
		Persistent:  topCounts(windowed, TopK),
		Emerging:    []FailureDelta{},
		Recovered:   []FailureDelta{},
		Runs:        len(windowed),
		SkippedRuns: span.Skipped,
	}
	if len(windowed) == 0 {
		return report
	}
	report.WindowStart = span.Start.Format(runs.DateLayout)
	report.WindowEnd = span.End.Format(runs.DateLayout)

	mid := len(windowed) / 2
	first := occurrences(windowed[:mid])
	second := occurrences(windowed[mid:])

	for _, p := range report.Persistent {
		delta := second[p.Name] - first[p.Name]
		switch {
		case delta > 0:
			report.Emerging = append(report.Emerging, FailureDelta{Name: p.Name, Delta: delta})
		case delta < 0:
			report.Recovered = append(report.Recovered, FailureDelta{Name: p.Name, Delta: delta})
		}
	}
	sort.SliceStable(report.Emerging, func(i, j int) bool {
		return report.Emerging[i].Delta > report.Emerging[j].Delta
	})
	sort.SliceStable(report.Recovered, func(i, j int) bool {
		return report.Recovered[i].Delta < report.Recovered[j].Delta
	})
	report.Emerging = capDeltas(report.Emerging, TopK)
	report.Recovered = capDeltas(report.Recovered, TopK)

	return report
}

// occurrences counts one per (run, test case) pair by test name.
func occurrences(in []runs.Run) map[string]int {
	counts := make(map[string]int)
	for _, r := range in {
		for _, tc := range r.TestCases {
			counts[tc.TestName]++
		}
	}
	return counts
}

// topCounts ranks test names by occurrence, ties in first-encounter order.
func topCounts(in []runs.Run, k int) []FailureCount {
	index := make(map[string]int)
	out := []FailureCount{}
	for _, r := range in {
		for _, tc := range r.TestCases {
			i, ok := index[tc.TestName]
			if !ok {
				i = len(out)
				index[tc.TestName] = i
				out = append(out, FailureCount{Name: tc.TestName})
			}
			out[i].Count++
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out
}

func capDeltas(in []FailureDelta, k int) []FailureDelta {
	if len(in) > k {
		return in[:k]
	}
	return in
}
