// Package snapshots persists computed failure reports so trends can be
// compared across syncs.
package snapshots

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/testdino/insights/internal/config"
	"github.com/testdino/insights/internal/insights"
)

var ErrNotFound = errors.New("snapshot not found")

// Snapshot is one stored aggregation result.
type Snapshot struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Branch      string    `gorm:"index;not null" json:"branch"`
	WindowStart string    `json:"windowStart"`
	WindowEnd   string    `json:"windowEnd"`
	Runs        int       `json:"runs"`
	SkippedRuns int       `json:"skippedRuns"`
	ReportJSON  string    `gorm:"type:text" json:"-"`
	CreatedAt   time.Time `gorm:"index" json:"createdAt"`
}

// Report decodes the stored report.
func (s *Snapshot) Report() (insights.Report, error) {
	var r insights.Report
	if err := json.Unmarshal([]byte(s.ReportJSON), &r); err != nil {
		return insights.Report{}, fmt.Errorf("decoding snapshot %s: %w", s.ID, err)
	}
	return r, nil
}

// Store provides persistence for snapshots.
type Store interface {
	Start(ctx context.Context) error
	Stop() error

	Save(ctx context.Context, branch string, report insights.Report) (*Snapshot, error)
	Get(ctx context.Context, id string) (*Snapshot, error)
	Latest(ctx context.Context, branch string) (*Snapshot, error)
	List(ctx context.Context, branch string, limit int) ([]Snapshot, error)
	Prune(ctx context.Context, olderThan time.Time) (int64, error)
}

// Compile-time interface check.
var _ Store = (*store)(nil)

type store struct {
	log logrus.FieldLogger
	cfg *config.SnapshotsConfig
	db  *gorm.DB
	now func() time.Time
}

// NewStore creates a snapshot Store backed by the configured driver.
func NewStore(log logrus.FieldLogger, cfg *config.SnapshotsConfig) Store {
	return &store{
		log: log.WithField("component", "snapshots"),
		cfg: cfg,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Start opens the database connection and runs migrations.
func (s *store) Start(ctx context.Context) error {
	var dialector gorm.Dialector

	switch s.cfg.Driver {
	case config.DriverSQLite:
		dialector = sqlite.Open(s.cfg.SQLite.Path)
	case config.DriverPostgres:
		dsn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			s.cfg.Postgres.Host,
			s.cfg.Postgres.Port,
			s.cfg.Postgres.User,
			s.cfg.Postgres.Password,
			s.cfg.Postgres.Database,
			s.cfg.Postgres.SSLMode,
		)
		dialector = postgres.Open(dsn)
	default:
		return fmt.Errorf("unsupported snapshots driver: %s", s.cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Discard})
	if err != nil {
		return fmt.Errorf("opening snapshot database: %w", err)
	}

	s.db = db

	if s.cfg.Driver == config.DriverSQLite {
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("getting underlying db: %w", err)
		}
		// In-memory databases exist per connection and sqlite serialises
		// writers anyway.
		sqlDB.SetMaxOpenConns(1)
	}

	if err := s.db.WithContext(ctx).AutoMigrate(&Snapshot{}); err != nil {
		return fmt.Errorf("running snapshot migrations: %w", err)
	}

	s.log.WithField("driver", s.cfg.Driver).Info("Snapshot database connected")

	return nil
}

// Stop closes the underlying database connection.
func (s *store) Stop() error {
	if s.db == nil {
		return nil
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("getting underlying db: %w", err)
	}

	return sqlDB.Close()
}

func (s *store) Save(ctx context.Context, branch string, report insights.Report) (*Snapshot, error) {
	if branch == "" {
		branch = insights.AllBranches
	}

	body, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("encoding report: %w", err)
	}

	snap := &Snapshot{
		ID:          uuid.NewString(),
		Branch:      branch,
		WindowStart: report.WindowStart,
		WindowEnd:   report.WindowEnd,
		Runs:        report.Runs,
		SkippedRuns: report.SkippedRuns,
		ReportJSON:  string(body),
		CreatedAt:   s.now(),
	}
	if err := s.db.WithContext(ctx).Create(snap).Error; err != nil {
		return nil, fmt.Errorf("saving snapshot: %w", err)
	}

	return snap, nil
}

func (s *store) Get(ctx context.Context, id string) (*Snapshot, error) {
	var snap Snapshot

	err := s.db.WithContext(ctx).Where("id = ?", id).First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting snapshot: %w", err)
	}

	return &snap, nil
}

// Latest returns the newest snapshot of a branch.
func (s *store) Latest(ctx context.Context, branch string) (*Snapshot, error) {
	list, err := s.List(ctx, branch, 1)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}

	return &list[0], nil
}

// List returns snapshots newest first. An empty branch lists every branch;
// a non-positive limit returns all.
func (s *store) List(ctx context.Context, branch string, limit int) ([]Snapshot, error) {
	q := s.db.WithContext(ctx).Order("created_at DESC").Order("id")
	if branch != "" {
		q = q.Where("branch = ?", branch)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var snaps []Snapshot
	if err := q.Find(&snaps).Error; err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}

	return snaps, nil
}

// Prune deletes snapshots created before olderThan.
func (s *store) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("created_at < ?", olderThan).
		Delete(&Snapshot{})
	if result.Error != nil {
		return 0, fmt.Errorf("pruning snapshots: %w", result.Error)
	}

	return result.RowsAffected, nil
}
