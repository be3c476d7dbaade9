package server

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"sort"
	"time"

	"github.com/docker/go-units"
	"golang.org/x/sync/errgroup"

	"github.com/testdino/insights/internal/insights"
	"github.com/testdino/insights/internal/runs"
	"github.com/testdino/insights/internal/snapshots"
)

var templateFuncs = template.FuncMap{
	"ago": func(t time.Time) string {
		return units.HumanDuration(time.Since(t)) + " ago"
	},
	"signed": func(v int) string {
		return fmt.Sprintf("%+d", v)
	},
}

type cardView struct {
	insights.SummaryCard
	Sparkline template.HTML
}

// branchOptions lists "All" followed by the branches present in list, sorted.
// The selected branch stays listed even when it has no runs.
func branchOptions(list []runs.Run, selected string) []string {
	seen := map[string]bool{insights.AllBranches: true}
	var found []string
	add := func(b string) {
		if b != "" && !seen[b] {
			seen[b] = true
			found = append(found, b)
		}
	}
	for _, r := range list {
		add(string(r.Branch))
	}
	add(selected)
	sort.Strings(found)
	return append([]string{insights.AllBranches}, found...)
}

func (s *Server) handleInsightsPage(w http.ResponseWriter, r *http.Request) {
	branch := r.URL.Query().Get("branch")
	if branch == "" {
		branch = insights.AllBranches
	}

	var (
		all    []runs.Run
		latest *snapshots.Snapshot
	)

	g, gctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		all, err = s.loadRuns(gctx, "")
		return err
	})
	if s.snaps != nil {
		g.Go(func() error {
			snap, err := s.snaps.Latest(gctx, branch)
			if errors.Is(err, snapshots.ErrNotFound) {
				return nil
			}
			latest = snap
			return err
		})
	}

	data := map[string]any{
		"Title":    "Insights",
		"Branch":   branch,
		"Branches": branchOptions(nil, branch),
		"Error":    nil,
	}

	if err := g.Wait(); err != nil {
		s.log.WithError(err).Error("Failed to load insights")
		data["Error"] = fmt.Sprintf("Could not load runs: %v", err)
		s.render(w, "insights.html", data)
		return
	}

	data["Branches"] = branchOptions(all, branch)
	list := insights.FilterBranch(all, branch)

	report := insights.Aggregate(list)
	summary := insights.SummaryCards(list, defaultSummary)
	daily := insights.DailyCounts(list)

	cards := make([]cardView, len(summary))
	for i, c := range summary {
		cards[i] = cardView{
			SummaryCard: c,
			Sparkline:   s.charts.CategorySparkline(daily, c.Category),
		}
	}

	data["Report"] = report
	data["Cards"] = cards
	data["Snapshot"] = latest
	data["FailuresChart"] = s.charts.FailuresBar(report.Persistent)
	data["DeltaChart"] = s.charts.DeltaBar(report)
	data["PieChart"] = s.charts.CategoryPie(summary)
	data["VolumeChart"] = s.charts.DailyVolume(daily)

	s.render(w, "insights.html", data)
}

func (s *Server) handleTrendsPage(w http.ResponseWriter, r *http.Request) {
	branch := r.URL.Query().Get("branch")
	if branch == "" {
		branch = insights.AllBranches
	}

	data := map[string]any{
		"Title":    "Trends",
		"Branch":   branch,
		"Branches": branchOptions(nil, branch),
		"Error":    nil,
	}

	var (
		all    []runs.Run
		points []insights.ErrorPoint
	)
	g, gctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		all, err = s.loadRuns(gctx, "")
		return err
	})
	g.Go(func() error {
		var err error
		points, err = s.errorPoints(gctx, branch)
		return err
	})
	if err := g.Wait(); err != nil {
		s.log.WithError(err).Error("Failed to load trends")
		data["Error"] = fmt.Sprintf("Could not load runs: %v", err)
		s.render(w, "trends.html", data)
		return
	}

	data["Branches"] = branchOptions(all, branch)
	branchRuns := insights.FilterBranch(all, branch)

	data["HeatmapChart"] = s.charts.Heatmap(insights.BranchHeatmap(all))
	data["Clusters"] = insights.ErrorClusters(branchRuns)
	data["ErrorChart"] = s.charts.ErrorArea(insights.BuildErrorSeries(points, insights.CountRange{}, nil))
	data["Timeline"] = insights.DailyTimeline(branchRuns)

	s.render(w, "trends.html", data)
}

func (s *Server) render(w http.ResponseWriter, page string, data any) {
	t, ok := s.templates[page]
	if !ok {
		s.log.WithField("page", page).Error("Template not found")
		http.Error(w, "Page not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := t.ExecuteTemplate(w, "layout", data); err != nil {
		s.log.WithError(err).WithField("page", page).Error("Template error")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
