package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/testdino/insights/internal/runs"
)

var ErrNotFound = errors.New("not found")

// Database stores raw test runs in insertion order.
type Database interface {
	// InsertRun stores a run. Inserting a run ID that already exists is a
	// no-op and reports inserted=false.
	InsertRun(ctx context.Context, run runs.Run) (inserted bool, err error)
	// ListRuns returns runs in insertion order, optionally for one branch.
	ListRuns(ctx context.Context, branch string) ([]runs.Run, error)
	GetRun(ctx context.Context, id string) (*runs.Run, error)
	CountRuns(ctx context.Context) (int, error)
	Close() error
}

// Open returns the database for driver: "memory", "sqlite", "postgres" or
// "mysql".
func Open(driver, dsn string) (Database, error) {
	switch driver {
	case "", "memory":
		return NewMemoryDatabase(), nil
	case DialectSQLite, DialectPostgres, DialectMySQL:
		return NewSQLDatabase(driver, dsn)
	}
	return nil, fmt.Errorf("unsupported database driver: %s", driver)
}

func matchesBranch(r runs.Run, branch string) bool {
	return branch == "" || branch == "All" || string(r.Branch) == branch
}
