package insights

import (
	"sort"

	"github.com/testdino/insights/internal/runs"
)

// Heatmap is a branch by day matrix of test case counts over the trailing
// window. Cells[b][d] belongs to Branches[b] and Dates[d].
type Heatmap struct {
	Branches []string `json:"branches"`
	Dates    []string `json:"dates"`
	Cells    [][]int  `json:"cells"`
	Max      int      `json:"max"`
}

// BranchHeatmap counts test cases per branch and day within the window.
// Max is at least 1 so callers can scale intensities without a zero check.
func BranchHeatmap(in []runs.Run) Heatmap {
	windowed, _ := Window(in)

	branchSet := map[string]struct{}{}
	dateSet := map[string]struct{}{}
	counts := map[[2]string]int{}
	for _, r := range windowed {
		b := string(r.Branch)
		branchSet[b] = struct{}{}
		dateSet[r.Date] = struct{}{}
		counts[[2]string{b, r.Date}] += len(r.TestCases)
	}

	hm := Heatmap{
		Branches: sortedKeys(branchSet),
		Dates:    sortedKeys(dateSet),
		Max:      1,
	}
	hm.Cells = make([][]int, len(hm.Branches))
	for bi, b := range hm.Branches {
		hm.Cells[bi] = make([]int, len(hm.Dates))
		for di, d := range hm.Dates {
			v := counts[[2]string{b, d}]
			hm.Cells[bi][di] = v
			if v > hm.Max {
				hm.Max = v
			}
		}
	}
	return hm
}

// Intensity returns the cell value scaled to [0, 1].
func (h Heatmap) Intensity(branch, date int) float64 {
	return float64(h.Cells[branch][date]) / float64(h.Max)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
