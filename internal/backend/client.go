// Package backend fetches test runs and error analysis from the insights
// REST API, or serves generated runs when no backend is configured.
package backend

import (
	"context"
	"encoding/json"

	"github.com/testdino/insights/internal/insights"
	"github.com/testdino/insights/internal/runs"
)

// Query scopes a request to the backend.
type Query struct {
	Environment string
	DateRange   string
	Branch      string
}

// Analysis is the error analysis view of a project.
type Analysis struct {
	Points          []insights.ErrorPoint `json:"points"`
	CategoryDetails []json.RawMessage     `json:"categoryDetails"`
}

// Client is a source of test runs.
type Client interface {
	ListRuns(ctx context.Context, q Query) ([]runs.Run, error)
	ErrorAnalysis(ctx context.Context, q Query) (*Analysis, error)
	Health(ctx context.Context) error
}
