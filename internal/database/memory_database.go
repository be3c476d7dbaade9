package database

import (
	"context"
	"sync"

	"github.com/testdino/insights/internal/runs"
)

var _ Database = (*MemoryDatabase)(nil)

type MemoryDatabase struct {
	mu    sync.RWMutex
	runs  []runs.Run
	index map[string]int
}

func NewMemoryDatabase() *MemoryDatabase {
	return &MemoryDatabase{
		runs:  []runs.Run{},
		index: map[string]int{},
	}
}

func (db *MemoryDatabase) InsertRun(_ context.Context, run runs.Run) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.index[run.TestRunID]; exists {
		return false, nil
	}
	cp := run
	cp.TestCases = make([]runs.TestCase, len(run.TestCases))
	copy(cp.TestCases, run.TestCases)
	db.index[run.TestRunID] = len(db.runs)
	db.runs = append(db.runs, cp)
	return true, nil
}

func (db *MemoryDatabase) ListRuns(_ context.Context, branch string) ([]runs.Run, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	out := make([]runs.Run, 0, len(db.runs))
	for _, r := range db.runs {
		if matchesBranch(r, branch) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (db *MemoryDatabase) GetRun(_ context.Context, id string) (*runs.Run, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	i, ok := db.index[id]
	if !ok {
		return nil, ErrNotFound
	}
	r := db.runs[i]
	return &r, nil
}

func (db *MemoryDatabase) CountRuns(context.Context) (int, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.runs), nil
}

func (db *MemoryDatabase) Close() error {
	return nil
}
