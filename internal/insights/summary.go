package insights

import (
	"sort"

	"github.com/testdino/insights/internal/runs"
)

// SummaryCard totals one failure category.
type SummaryCard struct {
	Category runs.Category  `json:"category"`
	Count    int            `json:"count"`
	TopTests []FailureCount `json:"topTests"`
}

// SummaryCards returns one card per category in canonical order with the
// topN most frequent tests of that category.
func SummaryCards(in []runs.Run, topN int) []SummaryCard {
	cards := make([]SummaryCard, 0, len(runs.Categories()))
	for _, cat := range runs.Categories() {
		filtered := FilterCategory(in, cat)
		card := SummaryCard{
			Category: cat,
			TopTests: topCounts(filtered, topN),
		}
		for _, r := range filtered {
			card.Count += len(r.TestCases)
		}
		cards = append(cards, card)
	}
	return cards
}

// DayCount is the per-day volume used by the overview charts.
type DayCount struct {
	Date     string                `json:"date"`
	Runs     int                   `json:"runs"`
	Tests    int                   `json:"tests"`
	Failures map[runs.Category]int `json:"failures"`
}

// DailyCounts returns run, test case and per-category totals per date in
// ascending date order.
func DailyCounts(in []runs.Run) []DayCount {
	byDate := map[string]*DayCount{}
	for _, r := range in {
		dc, ok := byDate[r.Date]
		if !ok {
			dc = &DayCount{Date: r.Date, Failures: map[runs.Category]int{}}
			byDate[r.Date] = dc
		}
		dc.Runs++
		dc.Tests += len(r.TestCases)
		for _, tc := range r.TestCases {
			dc.Failures[tc.Category]++
		}
	}

	out := make([]DayCount, 0, len(byDate))
	for _, dc := range byDate {
		out = append(out, *dc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
