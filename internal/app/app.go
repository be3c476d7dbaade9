// Package app wires the configured run source, storage, publishing and
// sync worker together.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/testdino/insights/internal/artifacts"
	"github.com/testdino/insights/internal/backend"
	"github.com/testdino/insights/internal/config"
	"github.com/testdino/insights/internal/database"
	"github.com/testdino/insights/internal/publish"
	"github.com/testdino/insights/internal/snapshots"
	"github.com/testdino/insights/internal/worker"
)

// App holds every long-lived component built from a Config.
type App struct {
	Config    *config.Config
	Source    backend.Client
	DB        database.Database
	Snapshots snapshots.Store
	Reports   *artifacts.Manager
	Publisher publish.Publisher
	Worker    *worker.Worker

	log logrus.FieldLogger
}

// NewSource returns the run source selected by cfg.
func NewSource(cfg *config.Config) (backend.Client, error) {
	switch cfg.Source.Mode {
	case config.SourceMock:
		return backend.NewMockClient(cfg.Generator.Runs, cfg.Generator.Tests, cfg.Generator.Seed), nil
	case config.SourceAPI:
		return backend.NewRealClient(backend.Options{
			BaseURL:     cfg.Source.BaseURL,
			Project:     cfg.Source.Project,
			Environment: cfg.Source.Environment,
			DateRange:   cfg.Source.DateRange,
			Token:       cfg.Source.Token,
			Timeout:     cfg.Source.Timeout,
		})
	}
	return nil, fmt.Errorf("unsupported source mode: %s", cfg.Source.Mode)
}

// New builds and starts every component. Close releases them.
func New(ctx context.Context, log logrus.FieldLogger, cfg *config.Config) (*App, error) {
	a := &App{
		Config: cfg,
		log:    log.WithField("component", "app"),
	}

	source, err := NewSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating run source: %w", err)
	}
	a.Source = source

	db, err := database.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening run database: %w", err)
	}
	a.DB = db

	a.Snapshots = snapshots.NewStore(log, &cfg.Snapshots)
	if err := a.Snapshots.Start(ctx); err != nil {
		_ = a.DB.Close()
		return nil, fmt.Errorf("starting snapshot store: %w", err)
	}

	a.Reports = artifacts.NewManager(cfg.Reports.Dir, cfg.Reports.TTL)

	if cfg.S3.Enabled {
		a.Publisher = publish.NewS3Publisher(log, &cfg.S3)
	}

	a.Worker = worker.NewWorker(log, a.Source, a.DB, a.Snapshots, a.Reports, worker.Options{
		Interval:  cfg.Worker.Interval,
		Branches:  cfg.Worker.Branches,
		// Snapshots age out with their report directories.
		Retention: cfg.Reports.TTL,
		Publisher: a.Publisher,
	})

	a.log.WithFields(logrus.Fields{
		"source":    cfg.Source.Mode,
		"database":  cfg.Database.Driver,
		"snapshots": cfg.Snapshots.Driver,
		"reports":   a.Reports.Dir(),
		"publish":   cfg.S3.Enabled,
	}).Info("Components ready")

	return a, nil
}

// Close stops the snapshot store and closes the run database.
func (a *App) Close() error {
	return errors.Join(a.Snapshots.Stop(), a.DB.Close())
}
