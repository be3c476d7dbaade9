package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/testdino/insights/internal/insights"
	"github.com/testdino/insights/internal/runs"
)

const defaultTimeout = 30 * time.Second

// Options configures a RealClient.
type Options struct {
	BaseURL     string
	Project     string
	Environment string
	DateRange   string
	Token       string
	Timeout     time.Duration
}

type RealClient struct {
	baseURL    string
	project    string
	defaults   Query
	token      string
	httpClient *http.Client
}

// NewRealClient creates a client for the insights API of one project.
func NewRealClient(opts Options) (*RealClient, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("base url is required")
	}
	if opts.Project == "" {
		return nil, errors.New("project is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &RealClient{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		project: opts.Project,
		defaults: Query{
			Environment: opts.Environment,
			DateRange:   opts.DateRange,
		},
		token:      opts.Token,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

func (c *RealClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy (status: %d)", resp.StatusCode)
	}
	return nil
}

type migrationResponse struct {
	Data *struct {
		Categories []string   `json:"categories"`
		Runs       []runs.Run `json:"runs"`
	} `json:"data"`
}

// ListRuns fetches the migration view and normalizes category names.
// Categories outside the known set are mapped to unknown.
func (c *RealClient) ListRuns(ctx context.Context, q Query) ([]runs.Run, error) {
	var resp migrationResponse
	if err := c.getJSON(ctx, "migration", q, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return []runs.Run{}, nil
	}

	out := make([]runs.Run, 0, len(resp.Data.Runs))
	for _, r := range resp.Data.Runs {
		for i := range r.TestCases {
			if r.TestCases[i].Category.Valid() {
				continue
			}
			// Unknown labels come back as CategoryUnknown alongside the error.
			cat, _ := runs.ParseCategory(string(r.TestCases[i].Category))
			r.TestCases[i].Category = cat
		}
		out = append(out, r)
	}
	return insights.FilterBranch(out, q.Branch), nil
}

type analysisResponse struct {
	Data *struct {
		GraphData *struct {
			Dates      []string `json:"dates"`
			Categories []struct {
				Name  string `json:"name"`
				Label string `json:"label"`
				Data  []int  `json:"data"`
			} `json:"categories"`
		} `json:"graph_data"`
		CategoryDetails []json.RawMessage `json:"category_details"`
	} `json:"data"`
}

// ErrorAnalysis fetches the per-date error counts of the project.
func (c *RealClient) ErrorAnalysis(ctx context.Context, q Query) (*Analysis, error) {
	var resp analysisResponse
	if err := c.getJSON(ctx, "analysis", q, &resp); err != nil {
		return nil, err
	}

	analysis := &Analysis{
		Points:          []insights.ErrorPoint{},
		CategoryDetails: []json.RawMessage{},
	}
	if resp.Data == nil {
		return analysis, nil
	}
	if resp.Data.CategoryDetails != nil {
		analysis.CategoryDetails = resp.Data.CategoryDetails
	}
	if g := resp.Data.GraphData; g != nil {
		for i, date := range g.Dates {
			for _, cat := range g.Categories {
				name := cat.Label
				if name == "" {
					name = cat.Name
				}
				count := 0
				if i < len(cat.Data) {
					count = cat.Data[i]
				}
				analysis.Points = append(analysis.Points, insights.ErrorPoint{
					Date:  date,
					Error: name,
					Count: count,
				})
			}
		}
	}
	return analysis, nil
}

func (c *RealClient) getJSON(ctx context.Context, view string, q Query, into any) error {
	params := url.Values{}
	env := q.Environment
	if env == "" {
		env = c.defaults.Environment
	}
	dateRange := q.DateRange
	if dateRange == "" {
		dateRange = c.defaults.DateRange
	}
	if env != "" {
		params.Set("environment", env)
	}
	if dateRange != "" {
		params.Set("dateRange", dateRange)
	}

	apiURL := fmt.Sprintf("%s/api/insights/project/%s/%s", c.baseURL, view, url.PathEscape(c.project))
	if encoded := params.Encode(); encoded != "" {
		apiURL += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("API returned %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", view, err)
	}
	return nil
}
