package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Router builds the chi router with every page, API route and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(s.requestLogger)
	r.Use(s.corsMiddleware())

	r.Get("/", s.handleInsightsPage)
	r.Get("/trends", s.handleTrendsPage)

	r.Route("/api/v1", func(r chi.Router) {
		if s.cfg.RateLimit.Enabled {
			r.Use(s.rateLimitMiddleware(s.cfg.RateLimit.RequestsPerMinute))
		}

		r.Get("/health", s.handleHealth)
		r.Get("/runs", s.handleRuns)
		r.Get("/runs/{id}", s.handleGetRun)
		r.Get("/generate", s.handleGenerate)

		r.Route("/insights", func(r chi.Router) {
			r.Get("/failures", s.handleFailures)
			r.Get("/heatmap", s.handleHeatmap)
			r.Get("/errors", s.handleErrorClusters)
			r.Get("/error-series", s.handleErrorSeries)
			r.Get("/timeline", s.handleTimeline)
			r.Get("/summary", s.handleSummary)
			r.Get("/migrations", s.handleMigrations)
		})

		r.Get("/snapshots", s.handleListSnapshots)
		r.Get("/snapshots/{id}", s.handleGetSnapshot)
		r.Get("/snapshots/{id}/report", s.handleSnapshotReport)
		r.Post("/sync", s.handleSync)
	})

	return r
}

func (s *Server) corsMiddleware() func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedMethods: []string{"GET", "HEAD", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	}

	origins := s.cfg.CORSOrigins
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		opts.AllowedOrigins = []string{"*"}
	} else {
		opts.AllowedOrigins = origins
	}

	return cors.Handler(opts)
}
