package runs

import (
	"fmt"
	"math"
	"time"
)

const (
	appearProbability = 0.7
	stayProbability   = 0.7
	maxRetries        = 3
	runsPerDay        = 3
)

var epoch = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

// generation holds the per-call state: the random stream and the
// continuity map of each test's last assigned category.
type generation struct {
	rng  *lcg
	last map[string]Category
}

// Generate produces numRuns synthetic runs over the first numTests names of
// the test pool. The result depends only on the arguments.
func Generate(numRuns, numTests int, seed int64) []Run {
	if numRuns <= 0 {
		return []Run{}
	}
	if numTests < 0 {
		numTests = 0
	}
	if numTests > len(testNames) {
		numTests = len(testNames)
	}
	names := testNames[:numTests]

	g := &generation{
		rng:  newLCG(seed),
		last: make(map[string]Category, numTests),
	}

	out := make([]Run, 0, numRuns)
	for i := 1; i <= numRuns; i++ {
		run := Run{
			TestRunID: fmt.Sprintf("T%d", i),
			Date:      epoch.AddDate(0, 0, (i-1)/runsPerDay).Format(DateLayout),
			Branch:    branches[i%len(branches)],
			TestCases: make([]TestCase, 0, len(names)),
		}
		for _, name := range names {
			if tc, ok := g.testCase(name); ok {
				run.TestCases = append(run.TestCases, tc)
			}
		}
		out = append(out, run)
	}
	return out
}

func (g *generation) testCase(name string) (TestCase, bool) {
	if !g.rng.below(appearProbability) {
		return TestCase{}, false
	}

	prev, seen := g.last[name]
	if !seen {
		prev = categories[g.rng.index(len(categories))]
	}
	cat := prev
	if !g.rng.below(stayProbability) {
		cat = categories[g.rng.index(len(categories))]
	}
	g.last[name] = cat

	percentage := int(math.Floor(10 + g.rng.next()*80))
	duration := formatTenths(5+g.rng.next()*45) + "s"
	errMsg := errorMessages[g.rng.index(len(errorMessages))]
	author := authors[g.rng.index(len(authors))]
	retries := int(math.Floor(g.rng.next() * 4))
	if retries > maxRetries {
		retries = maxRetries
	}

	return TestCase{
		TestName:   name,
		Category:   cat,
		Percentage: percentage,
		Duration:   duration,
		Error:      errMsg,
		Author:     author,
		RetryCount: fmt.Sprintf("%d/%d", retries, maxRetries),
	}, true
}
