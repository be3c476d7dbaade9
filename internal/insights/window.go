package insights

import (
	"time"

	"github.com/testdino/insights/internal/runs"
)

// WindowDays is the length of the trailing window, both ends inclusive.
const WindowDays = 7

// AllBranches selects every branch in FilterBranch.
const AllBranches = "All"

// Span describes the bounds of a trailing window.
type Span struct {
	Start   time.Time
	End     time.Time
	Skipped int
}

// Window returns the runs dated within the last WindowDays calendar days of
// the newest parseable date, in input order. Runs whose date does not parse
// are left out and counted in Span.Skipped.
func Window(in []runs.Run) ([]runs.Run, Span) {
	var span Span
	dates := make([]time.Time, len(in))
	valid := make([]bool, len(in))

	found := false
	for i, r := range in {
		d, err := r.ParsedDate()
		if err != nil {
			span.Skipped++
			continue
		}
		dates[i], valid[i] = d, true
		if !found || d.After(span.End) {
			span.End = d
			found = true
		}
	}
	if !found {
		return []runs.Run{}, span
	}
	span.Start = span.End.AddDate(0, 0, -(WindowDays - 1))

	out := make([]runs.Run, 0, len(in))
	for i, r := range in {
		if !valid[i] {
			continue
		}
		if dates[i].Before(span.Start) || dates[i].After(span.End) {
			continue
		}
		out = append(out, r)
	}
	return out, span
}

// FilterBranch keeps runs of one branch. An empty branch or AllBranches
// returns the input as is.
func FilterBranch(in []runs.Run, branch string) []runs.Run {
	if branch == "" || branch == AllBranches {
		return in
	}
	out := make([]runs.Run, 0, len(in))
	for _, r := range in {
		if string(r.Branch) == branch {
			out = append(out, r)
		}
	}
	return out
}

// FilterCategory keeps only test cases of the given category. Runs left
// without test cases are kept so window halves stay aligned.
func FilterCategory(in []runs.Run, cat runs.Category) []runs.Run {
	out := make([]runs.Run, 0, len(in))
	for _, r := range in {
		cp := r
		cp.TestCases = make([]runs.TestCase, 0, len(r.TestCases))
		for _, tc := range r.TestCases {
			if tc.Category == cat {
				cp.TestCases = append(cp.TestCases, tc)
			}
		}
		out = append(out, cp)
	}
	return out
}
