package backend

import (
	"context"

	"github.com/testdino/insights/internal/insights"
	"github.com/testdino/insights/internal/runs"
)

// Defaults used by the dashboard when no backend is reachable.
const (
	DefaultMockRuns  = 20
	DefaultMockTests = 10
	DefaultMockSeed  = 1337
)

// MockClient serves a fixed generated data set.
type MockClient struct {
	runs []runs.Run
}

func NewMockClient(numRuns, numTests int, seed int64) *MockClient {
	return &MockClient{runs: runs.Generate(numRuns, numTests, seed)}
}

func (c *MockClient) ListRuns(_ context.Context, q Query) ([]runs.Run, error) {
	filtered := insights.FilterBranch(c.runs, q.Branch)
	out := make([]runs.Run, len(filtered))
	copy(out, filtered)
	return out, nil
}

func (c *MockClient) ErrorAnalysis(ctx context.Context, q Query) (*Analysis, error) {
	all, err := c.ListRuns(ctx, q)
	if err != nil {
		return nil, err
	}
	return &Analysis{Points: insights.ErrorPoints(all)}, nil
}

func (c *MockClient) Health(context.Context) error {
	return nil
}
