package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/testdino/insights/internal/artifacts"
	"github.com/testdino/insights/internal/backend"
	"github.com/testdino/insights/internal/charts"
	"github.com/testdino/insights/internal/config"
	"github.com/testdino/insights/internal/database"
	"github.com/testdino/insights/internal/insights"
	"github.com/testdino/insights/internal/runs"
	"github.com/testdino/insights/internal/snapshots"
	"github.com/testdino/insights/internal/worker"
)

const shutdownTimeout = 10 * time.Second

// Deps are the collaborators a Server reads from. Snapshots, Reports and
// Worker are optional.
type Deps struct {
	Source    backend.Client
	DB        database.Database
	Snapshots snapshots.Store
	Reports   *artifacts.Manager
	Worker    *worker.Worker
}

type Server struct {
	log       logrus.FieldLogger
	cfg       *config.ServerConfig
	source    backend.Client
	db        database.Database
	snaps     snapshots.Store
	reports   *artifacts.Manager
	worker    *worker.Worker
	charts    *charts.Generator
	templates map[string]*template.Template

	httpServer *http.Server
	done       chan struct{}
	closeOnce  sync.Once
}

// NewServer parses the page templates and returns a ready Server.
func NewServer(log logrus.FieldLogger, cfg *config.ServerConfig, deps Deps) (*Server, error) {
	templates, err := loadTemplates(cfg.TemplatesDir)
	if err != nil {
		return nil, err
	}

	return &Server{
		log:       log.WithField("component", "server"),
		cfg:       cfg,
		source:    deps.Source,
		db:        deps.DB,
		snaps:     deps.Snapshots,
		reports:   deps.Reports,
		worker:    deps.Worker,
		charts:    charts.NewGenerator(),
		templates: templates,
		done:      make(chan struct{}),
	}, nil
}

// Each page defines "content" and is parsed together with the layout.
var pages = []string{
	"insights.html",
	"trends.html",
}

func loadTemplates(dir string) (map[string]*template.Template, error) {
	layoutPath := filepath.Join(dir, "layout.html")
	templates := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		t, err := template.New("layout.html").Funcs(templateFuncs).ParseFiles(layoutPath, filepath.Join(dir, page))
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", page, err)
		}
		templates[page] = t
	}
	return templates, nil
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.cfg.Listen).Info("HTTP server listening")
		errCh <- s.httpServer.ListenAndServe()
	}()

	defer s.Close()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	s.log.Info("HTTP server stopped")
	return nil
}

// Close stops background goroutines started by the router.
func (s *Server) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// loadRuns prefers the synced database and falls back to the source when
// nothing has been stored yet.
func (s *Server) loadRuns(ctx context.Context, branch string) ([]runs.Run, error) {
	if s.db != nil {
		n, err := s.db.CountRuns(ctx)
		if err != nil {
			return nil, fmt.Errorf("counting stored runs: %w", err)
		}
		if n > 0 {
			return s.db.ListRuns(ctx, branch)
		}
	}

	all, err := s.source.ListRuns(ctx, backend.Query{Branch: branch})
	if err != nil {
		return nil, fmt.Errorf("fetching runs: %w", err)
	}
	return insights.FilterBranch(all, branch), nil
}

// findRun looks the run up in the database once it holds runs, and in the
// source otherwise.
func (s *Server) findRun(ctx context.Context, id string) (*runs.Run, error) {
	if s.db != nil {
		n, err := s.db.CountRuns(ctx)
		if err != nil {
			return nil, fmt.Errorf("counting stored runs: %w", err)
		}
		if n > 0 {
			return s.db.GetRun(ctx, id)
		}
	}

	all, err := s.source.ListRuns(ctx, backend.Query{})
	if err != nil {
		return nil, fmt.Errorf("fetching runs: %w", err)
	}
	for i := range all {
		if all[i].TestRunID == id {
			return &all[i], nil
		}
	}
	return nil, database.ErrNotFound
}

// errorPoints mirrors loadRuns for the error analysis view.
func (s *Server) errorPoints(ctx context.Context, branch string) ([]insights.ErrorPoint, error) {
	if s.db != nil {
		n, err := s.db.CountRuns(ctx)
		if err != nil {
			return nil, fmt.Errorf("counting stored runs: %w", err)
		}
		if n > 0 {
			stored, err := s.db.ListRuns(ctx, branch)
			if err != nil {
				return nil, err
			}
			return insights.ErrorPoints(stored), nil
		}
	}

	analysis, err := s.source.ErrorAnalysis(ctx, backend.Query{Branch: branch})
	if err != nil {
		return nil, fmt.Errorf("fetching error analysis: %w", err)
	}
	return analysis.Points, nil
}
