package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/testdino/insights/internal/artifacts"
	"github.com/testdino/insights/internal/database"
	"github.com/testdino/insights/internal/insights"
	"github.com/testdino/insights/internal/runs"
	"github.com/testdino/insights/internal/snapshots"
)

const (
	maxGeneratedRuns = 10000
	defaultSummary   = 3
	defaultSnapshots = 20
)

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON encodes v as JSON and writes it to w.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encoding response", http.StatusInternalServerError)
	}
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.log.WithError(err).WithField("path", r.URL.Path).Error("Request failed")
	writeJSON(w, http.StatusInternalServerError, errorResponse{err.Error()})
}

// intParam reads a non-negative integer query parameter, returning def when
// it is absent.
func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return v, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.source.Health(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	list, err := s.loadRuns(r.Context(), r.URL.Query().Get("branch"))
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.findRun(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, database.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{"run not found"})
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	numRuns, err := intParam(r, "runs", 20)
	if err == nil && numRuns > maxGeneratedRuns {
		err = fmt.Errorf("runs must be at most %d", maxGeneratedRuns)
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})
		return
	}
	numTests, err := intParam(r, "tests", 10)
	if pool := len(runs.TestNames()); err == nil && numTests > pool {
		err = fmt.Errorf("tests must be at most %d", pool)
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})
		return
	}

	seed := int64(1337)
	if raw := r.URL.Query().Get("seed"); raw != "" {
		seed, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{"seed must be an integer"})
			return
		}
	}

	writeJSON(w, http.StatusOK, runs.Generate(numRuns, numTests, seed))
}

func (s *Server) handleFailures(w http.ResponseWriter, r *http.Request) {
	list, err := s.loadRuns(r.Context(), r.URL.Query().Get("branch"))
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	if raw := r.URL.Query().Get("category"); raw != "" {
		cat, err := runs.ParseCategory(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})
			return
		}
		list = insights.FilterCategory(list, cat)
	}

	writeJSON(w, http.StatusOK, insights.Aggregate(list))
}

func (s *Server) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	list, err := s.loadRuns(r.Context(), "")
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, insights.BranchHeatmap(list))
}

func (s *Server) handleErrorClusters(w http.ResponseWriter, r *http.Request) {
	list, err := s.loadRuns(r.Context(), r.URL.Query().Get("branch"))
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, insights.ErrorClusters(list))
}

func (s *Server) handleErrorSeries(w http.ResponseWriter, r *http.Request) {
	lo, err := intParam(r, "min", 0)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})
		return
	}
	hi, err := intParam(r, "max", 0)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})
		return
	}

	points, err := s.errorPoints(r.Context(), r.URL.Query().Get("branch"))
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	series := insights.BuildErrorSeries(points, insights.CountRange{Min: lo, Max: hi}, r.URL.Query()["error"])
	writeJSON(w, http.StatusOK, series)
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	list, err := s.loadRuns(r.Context(), r.URL.Query().Get("branch"))
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, insights.DailyTimeline(list))
}

type summaryResponse struct {
	Cards []insights.SummaryCard `json:"cards"`
	Daily []insights.DayCount    `json:"daily"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	top, err := intParam(r, "top", defaultSummary)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})
		return
	}

	list, err := s.loadRuns(r.Context(), r.URL.Query().Get("branch"))
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, summaryResponse{
		Cards: insights.SummaryCards(list, top),
		Daily: insights.DailyCounts(list),
	})
}

type migrationsResponse struct {
	Migrations []insights.Migration                    `json:"migrations"`
	Matrix     map[runs.Category]map[runs.Category]int `json:"matrix"`
	Path       []insights.MigrationPoint               `json:"path"`
}

func (s *Server) handleMigrations(w http.ResponseWriter, r *http.Request) {
	list, err := s.loadRuns(r.Context(), r.URL.Query().Get("branch"))
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	migrations := insights.CategoryMigrations(list)
	resp := migrationsResponse{
		Migrations: migrations,
		Matrix:     insights.MigrationMatrix(migrations),
	}
	if test := r.URL.Query().Get("test"); test != "" {
		resp.Path = insights.MigrationPath(list, test)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	if s.snaps == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{"snapshots are not configured"})
		return
	}

	limit, err := intParam(r, "limit", defaultSnapshots)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})
		return
	}

	list, err := s.snaps.List(r.Context(), r.URL.Query().Get("branch"), limit)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type snapshotResponse struct {
	Snapshot *snapshots.Snapshot `json:"snapshot"`
	Report   insights.Report     `json:"report"`
}

func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.snaps == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{"snapshots are not configured"})
		return
	}

	snap, err := s.snaps.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, snapshots.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{"snapshot not found"})
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	report, err := snap.Report()
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshotResponse{Snapshot: snap, Report: report})
}

// handleSnapshotReport serves the report file the worker wrote for a
// snapshot, as long as it has not expired.
func (s *Server) handleSnapshotReport(w http.ResponseWriter, r *http.Request) {
	if s.snaps == nil || s.reports == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{"reports are not configured"})
		return
	}

	snap, err := s.snaps.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, snapshots.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{"snapshot not found"})
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	dir, err := s.reports.GetCachedReport(artifacts.ReportName(snap.Branch, snap.ID))
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	if dir == "" {
		writeJSON(w, http.StatusNotFound, errorResponse{"report expired or never written"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	http.ServeFile(w, r, filepath.Join(dir, artifacts.ReportFile))
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if s.worker == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{"sync worker is not configured"})
		return
	}

	res, err := s.worker.RunOnce(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
