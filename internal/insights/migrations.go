package insights

import (
	"github.com/testdino/insights/internal/runs"
)

// Migration records a test changing category between two consecutive
// appearances.
type Migration struct {
	TestName string        `json:"testName"`
	From     runs.Category `json:"from"`
	To       runs.Category `json:"to"`
	RunID    string        `json:"runId"`
	Date     string        `json:"date"`
}

// CategoryMigrations walks runs in order and reports every category change.
func CategoryMigrations(in []runs.Run) []Migration {
	last := map[string]runs.Category{}
	out := []Migration{}
	for _, r := range in {
		for _, tc := range r.TestCases {
			prev, seen := last[tc.TestName]
			last[tc.TestName] = tc.Category
			if !seen || prev == tc.Category {
				continue
			}
			out = append(out, Migration{
				TestName: tc.TestName,
				From:     prev,
				To:       tc.Category,
				RunID:    r.TestRunID,
				Date:     r.Date,
			})
		}
	}
	return out
}

// MigrationMatrix counts transitions from one category to another.
func MigrationMatrix(migrations []Migration) map[runs.Category]map[runs.Category]int {
	m := make(map[runs.Category]map[runs.Category]int, len(runs.Categories()))
	for _, c := range runs.Categories() {
		m[c] = map[runs.Category]int{}
	}
	for _, mg := range migrations {
		if m[mg.From] == nil {
			m[mg.From] = map[runs.Category]int{}
		}
		m[mg.From][mg.To]++
	}
	return m
}

// MigrationPoint places one test appearance on the category band chart:
// each category owns a band of 100 and the percentage positions the point
// inside it.
type MigrationPoint struct {
	RunID    string        `json:"runId"`
	Date     string        `json:"date"`
	Branch   runs.Branch   `json:"branch"`
	Category runs.Category `json:"category"`
	Position int           `json:"position"`
	Duration string        `json:"duration"`
	Retries  int           `json:"retries"`
}

// MigrationPath returns the band chart points of one test across runs.
func MigrationPath(in []runs.Run, testName string) []MigrationPoint {
	band := map[runs.Category]int{}
	for i, c := range runs.Categories() {
		band[c] = i * 100
	}

	out := []MigrationPoint{}
	for _, r := range in {
		for _, tc := range r.TestCases {
			if tc.TestName != testName {
				continue
			}
			out = append(out, MigrationPoint{
				RunID:    r.TestRunID,
				Date:     r.Date,
				Branch:   r.Branch,
				Category: tc.Category,
				Position: band[tc.Category] + tc.Percentage,
				Duration: tc.Duration,
				Retries:  tc.RetriesUsed(),
			})
		}
	}
	return out
}
