package insights

import (
	"github.com/testdino/insights/internal/runs"
)

// MaxSelectedErrors caps how many error messages a series view may pin.
const MaxSelectedErrors = 10

// ErrorPoint is one error message count on one date.
type ErrorPoint struct {
	Date  string `json:"date"`
	Error string `json:"error"`
	Count int    `json:"count"`
}

// CountRange is a half-open [Min, Max) filter on cell counts. Max <= 0
// means unbounded.
type CountRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

func (c CountRange) contains(v int) bool {
	return v >= c.Min && (c.Max <= 0 || v < c.Max)
}

func (c CountRange) all() bool {
	return c.Min <= 0 && c.Max <= 0
}

type ErrorLine struct {
	Error  string `json:"error"`
	Total  int    `json:"total"`
	Counts []int  `json:"counts"`
}

// ErrorSeries is a date by error matrix ready for a stacked area chart.
type ErrorSeries struct {
	Dates []string    `json:"dates"`
	Lines []ErrorLine `json:"lines"`
}

// ErrorPoints counts test cases per date and error message.
func ErrorPoints(in []runs.Run) []ErrorPoint {
	type key struct{ date, err string }
	index := map[key]int{}
	out := []ErrorPoint{}
	for _, r := range in {
		for _, tc := range r.TestCases {
			k := key{r.Date, string(tc.Error)}
			if k.err == "" {
				k.err = unknownErrorKey
			}
			i, ok := index[k]
			if !ok {
				i = len(out)
				index[k] = i
				out = append(out, ErrorPoint{Date: k.date, Error: k.err})
			}
			out[i].Count++
		}
	}
	return out
}

// BuildErrorSeries pivots points into one line per error message. Cells
// outside rng are zeroed, then lines without any non-zero cell are dropped.
// A non-empty selection restricts the lines to at most MaxSelectedErrors of
// the named errors.
func BuildErrorSeries(points []ErrorPoint, rng CountRange, selected []string) ErrorSeries {
	dateSet := map[string]struct{}{}
	errOrder := []string{}
	cells := map[string]map[string]int{}
	for _, p := range points {
		dateSet[p.Date] = struct{}{}
		if _, ok := cells[p.Error]; !ok {
			cells[p.Error] = map[string]int{}
			errOrder = append(errOrder, p.Error)
		}
		cells[p.Error][p.Date] += p.Count
	}

	if len(selected) > MaxSelectedErrors {
		selected = selected[:MaxSelectedErrors]
	}
	if len(selected) > 0 {
		errOrder = selected
	}

	series := ErrorSeries{Dates: sortedKeys(dateSet), Lines: []ErrorLine{}}
	for _, e := range errOrder {
		byDate, ok := cells[e]
		if !ok {
			continue
		}
		line := ErrorLine{Error: e, Counts: make([]int, len(series.Dates))}
		visible := false
		for i, d := range series.Dates {
			v := byDate[d]
			if !rng.all() && !rng.contains(v) {
				v = 0
			}
			line.Counts[i] = v
			line.Total += v
			if v > 0 {
				visible = true
			}
		}
		if visible {
			series.Lines = append(series.Lines, line)
		}
	}
	return series
}
