package insights

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/testdino/insights/internal/runs"
)

func run(id, date string, branch runs.Branch, names ...string) runs.Run {
	r := runs.Run{TestRunID: id, Date: date, Branch: branch}
	for _, n := range names {
		r.TestCases = append(r.TestCases, runs.TestCase{
			TestName: n,
			Category: runs.CategoryBug,
			Error:    runs.ErrorAssertion,
		})
	}
	return r
}

func TestAggregate_Empty(t *testing.T) {
	got := Aggregate(nil)
	assert.NotNil(t, got.Persistent)
	assert.NotNil(t, got.Emerging)
	assert.NotNil(t, got.Recovered)
	assert.Empty(t, got.Persistent)
	assert.Empty(t, got.Emerging)
	assert.Zero(t, got.Runs)

	got = Aggregate([]runs.Run{})
	assert.Empty(t, got.Persistent)
	assert.Empty(t, got.Emerging)
}

func TestAggregate_SameDayStable(t *testing.T) {
	in := []runs.Run{
		run("T1", "2025-01-01", runs.BranchDevA, "A"),
		run("T2", "2025-01-01", runs.BranchDevA, "A"),
	}
	got := Aggregate(in)
	assert.Equal(t, []FailureCount{{Name: "A", Count: 2}}, got.Persistent)
	assert.Empty(t, got.Emerging)
	assert.Empty(t, got.Recovered)
	assert.Equal(t, "2024-12-26", got.WindowStart)
	assert.Equal(t, "2025-01-01", got.WindowEnd)
}

func TestAggregate_EmergingSecondHalf(t *testing.T) {
	in := []runs.Run{
		run("T1", "2025-01-01", runs.BranchDevA),
		run("T2", "2025-01-01", runs.BranchDevA),
		run("T3", "2025-01-01", runs.BranchDevA, "B"),
		run("T4", "2025-01-01", runs.BranchDevA, "B"),
	}
	got := Aggregate(in)
	assert.Equal(t, []FailureCount{{Name: "B", Count: 2}}, got.Persistent)
	assert.Equal(t, []FailureDelta{{Name: "B", Delta: 2}}, got.Emerging)
}

func TestAggregate_Recovered(t *testing.T) {
	in := []runs.Run{
		run("T1", "2025-01-01", runs.BranchDevA, "C", "D"),
		run("T2", "2025-01-02", runs.BranchDevA, "C"),
		run("T3", "2025-01-03", runs.BranchDevA, "D"),
		run("T4", "2025-01-04", runs.BranchDevA),
	}
	got := Aggregate(in)
	// C: first 2, second 0. D: first 1, second 1.
	assert.Equal(t, []FailureDelta{{Name: "C", Delta: -2}}, got.Recovered)
	assert.Empty(t, got.Emerging)
}

func TestAggregate_TopKCap(t *testing.T) {
	var in []runs.Run
	for i := 0; i < 10; i++ {
		name := fmt.Sprintf("Test%d", i)
		for j := 0; j <= i; j++ {
			in = append(in, run(fmt.Sprintf("T%d-%d", i, j), "2025-01-05", runs.BranchDevA, name))
		}
	}
	got := Aggregate(in)
	require.Len(t, got.Persistent, TopK)
	for i, p := range got.Persistent {
		assert.Equal(t, fmt.Sprintf("Test%d", 9-i), p.Name)
		assert.Equal(t, 10-i, p.Count)
	}
}

func TestAggregate_TiesKeepEncounterOrder(t *testing.T) {
	in := []runs.Run{
		run("T1", "2025-01-01", runs.BranchDevA, "Z", "Y", "X"),
		run("T2", "2025-01-01", runs.BranchDevA, "X", "Y", "Z"),
	}
	got := Aggregate(in)
	names := []string{}
	for _, p := range got.Persistent {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"Z", "Y", "X"}, names)
}

func TestAggregate_EmergingSortedByDelta(t *testing.T) {
	in := []runs.Run{
		run("T1", "2025-01-01", runs.BranchDevA, "P"),
		run("T2", "2025-01-01", runs.BranchDevA, "P"),
		run("T3", "2025-01-01", runs.BranchDevA, "P", "Q"),
		run("T4", "2025-01-01", runs.BranchDevA, "P", "Q"),
	}
	got := Aggregate(in)
	// P: 2 -> 2, Q: 0 -> 2.
	assert.Equal(t, []FailureDelta{{Name: "Q", Delta: 2}}, got.Emerging)

	in = append(in, run("T5", "2025-01-01", runs.BranchDevA, "R", "R2"))
	in = append(in, run("T6", "2025-01-01", runs.BranchDevA, "R", "Q"))
	got = Aggregate(in)
	// mid=3. Q: 1 -> 2 (+1), R: 0 -> 2 (+2), R2: 0 -> 1 (+1).
	require.GreaterOrEqual(t, len(got.Emerging), 2)
	assert.Equal(t, "R", got.Emerging[0].Name)
	assert.Equal(t, 2, got.Emerging[0].Delta)
}

func TestAggregate_WindowExcludesOldRuns(t *testing.T) {
	in := []runs.Run{
		run("T1", "2025-01-01", runs.BranchDevA, "Old"),
		run("T2", "2025-01-08", runs.BranchDevA, "Edge"),
		run("T3", "2025-01-14", runs.BranchDevA, "New"),
	}
	got := Aggregate(in)
	assert.Equal(t, 2, got.Runs)
	assert.Equal(t, "2025-01-08", got.WindowStart)
	names := []string{}
	for _, p := range got.Persistent {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"Edge", "New"}, names)
}

func TestAggregate_SkipsMalformedDates(t *testing.T) {
	in := []runs.Run{
		run("T1", "garbage", runs.BranchDevA, "A"),
		run("T2", "2025-01-02", runs.BranchDevA, "B"),
	}
	got := Aggregate(in)
	assert.Equal(t, 1, got.SkippedRuns)
	assert.Equal(t, 1, got.Runs)
	assert.Equal(t, []FailureCount{{Name: "B", Count: 1}}, got.Persistent)

	got = Aggregate([]runs.Run{run("T1", "", runs.BranchDevA, "A")})
	assert.Empty(t, got.Persistent)
	assert.Equal(t, 1, got.SkippedRuns)
}

func TestAggregate_GeneratedData(t *testing.T) {
	generated := runs.Generate(20, 10, 1337)
	got := Aggregate(generated)
	assert.LessOrEqual(t, len(got.Persistent), TopK)
	assert.LessOrEqual(t, len(got.Emerging), TopK)
	assert.Equal(t, 20, got.Runs)
	for i := 1; i < len(got.Persistent); i++ {
		assert.GreaterOrEqual(t, got.Persistent[i-1].Count, got.Persistent[i].Count)
	}
	for _, e := range got.Emerging {
		assert.Positive(t, e.Delta)
	}
}

func TestFilterBranch(t *testing.T) {
	in := []runs.Run{
		run("T1", "2025-01-01", runs.BranchDevA),
		run("T2", "2025-01-01", runs.BranchProd),
	}
	assert.Len(t, FilterBranch(in, ""), 2)
	assert.Len(t, FilterBranch(in, AllBranches), 2)
	got := FilterBranch(in, "prod")
	require.Len(t, got, 1)
	assert.Equal(t, "T2", got[0].TestRunID)
	assert.Empty(t, FilterBranch(in, "missing"))
}

func TestFilterCategory(t *testing.T) {
	r := runs.Run{TestRunID: "T1", Date: "2025-01-01", TestCases: []runs.TestCase{
		{TestName: "A", Category: runs.CategoryBug},
		{TestName: "B", Category: runs.CategoryFlaky},
	}}
	got := FilterCategory([]runs.Run{r}, runs.CategoryFlaky)
	require.Len(t, got, 1)
	require.Len(t, got[0].TestCases, 1)
	assert.Equal(t, "B", got[0].TestCases[0].TestName)
	assert.Len(t, r.TestCases, 2)
}
