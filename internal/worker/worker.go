package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/testdino/insights/internal/artifacts"
	"github.com/testdino/insights/internal/backend"
	"github.com/testdino/insights/internal/database"
	"github.com/testdino/insights/internal/insights"
	"github.com/testdino/insights/internal/publish"
	"github.com/testdino/insights/internal/snapshots"
)

// Options tune a Worker. Zero values fall back to defaults.
type Options struct {
	Interval  time.Duration
	Branches  []string
	Query     backend.Query
	// Retention bounds snapshot age. Zero keeps snapshots forever.
	Retention time.Duration
	// Publisher is optional.
	Publisher publish.Publisher
}

// Worker periodically pulls runs from the source into the database and
// snapshots a failure report per branch.
type Worker struct {
	log       logrus.FieldLogger
	source    backend.Client
	db        database.Database
	snaps     snapshots.Store
	reports   *artifacts.Manager
	publisher publish.Publisher
	branches  []string
	query     backend.Query
	interval  time.Duration
	retention time.Duration

	// One pass at a time, whether from the ticker or a manual trigger.
	mu sync.Mutex
}

// SyncResult summarises one pass. Pruned counts report directories and
// PrunedSnapshots counts snapshot rows removed for age.
type SyncResult struct {
	Fetched         int      `json:"fetched"`
	Inserted        int      `json:"inserted"`
	Snapshots       []string `json:"snapshots"`
	Published       int      `json:"published"`
	Pruned          int      `json:"pruned"`
	PrunedSnapshots int64    `json:"prunedSnapshots"`
}

// reportFile is the JSON document written for each snapshot.
type reportFile struct {
	Snapshot *snapshots.Snapshot `json:"snapshot"`
	Report   insights.Report     `json:"report"`
}

func NewWorker(
	log logrus.FieldLogger,
	source backend.Client,
	db database.Database,
	snaps snapshots.Store,
	reports *artifacts.Manager,
	opts Options,
) *Worker {
	w := &Worker{
		log:       log.WithField("component", "worker"),
		source:    source,
		db:        db,
		snaps:     snaps,
		reports:   reports,
		publisher: opts.Publisher,
		branches:  opts.Branches,
		query:     opts.Query,
		interval:  opts.Interval,
		retention: opts.Retention,
	}
	if len(w.branches) == 0 {
		w.branches = []string{insights.AllBranches}
	}
	if w.interval <= 0 {
		w.interval = time.Minute
	}
	return w
}

// Start runs a pass immediately and then on every tick until ctx is done.
func (w *Worker) Start(ctx context.Context) {
	w.log.WithField("interval", w.interval).Info("Starting sync worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			w.log.Info("Stopping sync worker")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	res, err := w.RunOnce(ctx)
	if err != nil {
		w.log.WithError(err).Error("Sync failed")
		return
	}
	w.log.WithFields(logrus.Fields{
		"fetched":   res.Fetched,
		"inserted":  res.Inserted,
		"snapshots": len(res.Snapshots),
		"published": res.Published,
		"pruned":    res.Pruned + int(res.PrunedSnapshots),
	}).Info("Sync completed")
}

// RunOnce fetches runs, stores new ones and saves one snapshot per branch.
func (w *Worker) RunOnce(ctx context.Context) (*SyncResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	fetched, err := w.source.ListRuns(ctx, w.query)
	if err != nil {
		return nil, fmt.Errorf("fetching runs: %w", err)
	}

	res := &SyncResult{Fetched: len(fetched)}
	for _, r := range fetched {
		inserted, err := w.db.InsertRun(ctx, r)
		if err != nil {
			return nil, fmt.Errorf("inserting run %s: %w", r.TestRunID, err)
		}
		if inserted {
			res.Inserted++
		}
	}

	stored, err := w.db.ListRuns(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("listing stored runs: %w", err)
	}

	ids := make([]string, len(w.branches))
	published := make([]int, len(w.branches))

	g, gctx := errgroup.WithContext(ctx)
	for i, branch := range w.branches {
		g.Go(func() error {
			report := insights.Aggregate(insights.FilterBranch(stored, branch))

			snap, err := w.snaps.Save(gctx, branch, report)
			if err != nil {
				return fmt.Errorf("snapshot %s: %w", branch, err)
			}
			ids[i] = snap.ID

			if w.reports == nil {
				return nil
			}
			dir, err := w.reports.SaveReport(artifacts.ReportName(branch, snap.ID), reportFile{Snapshot: snap, Report: report})
			if err != nil {
				return fmt.Errorf("report %s: %w", branch, err)
			}

			if w.publisher == nil {
				return nil
			}
			n, err := w.publisher.Publish(gctx, dir)
			if err != nil {
				return fmt.Errorf("publishing %s: %w", branch, err)
			}
			published[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res.Snapshots = ids
	for _, n := range published {
		res.Published += n
	}

	if w.reports != nil {
		pruned, err := w.reports.Prune()
		if err != nil {
			w.log.WithError(err).Warn("Failed to prune reports")
		}
		res.Pruned = pruned
	}

	if w.retention > 0 {
		n, err := w.snaps.Prune(ctx, time.Now().Add(-w.retention))
		if err != nil {
			w.log.WithError(err).Warn("Failed to prune snapshots")
		}
		res.PrunedSnapshots = n
	}

	return res, nil
}
