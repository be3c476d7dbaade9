package artifacts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ReportFile is the file name written inside each report directory.
const ReportFile = "report.json"

// Manager keeps rendered report directories on local disk for a limited
// time.
type Manager struct {
	dir string
	ttl time.Duration
}

var unsafeNameChars = strings.NewReplacer("/", "_", `\`, "_")

// ReportName is the directory name for a branch's snapshot report. Path
// separators in branch names such as "feature/login" become underscores.
func ReportName(branch, snapshotID string) string {
	return unsafeNameChars.Replace(branch) + "-" + snapshotID
}

func NewManager(dir string, ttl time.Duration) *Manager {
	return &Manager{
		dir: dir,
		ttl: ttl,
	}
}

func (m *Manager) Dir() string {
	return m.dir
}

// reportDir resolves name inside the managed directory, rejecting names that
// would escape it.
func (m *Manager) reportDir(name string) (string, error) {
	if name == "" || name == "." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("illegal report name: %q", name)
	}
	target := filepath.Join(m.dir, name)
	if !strings.HasPrefix(target, filepath.Clean(m.dir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("illegal report name: %q", name)
	}
	return target, nil
}

// SaveReport writes v as indented JSON to <dir>/<name>/report.json and
// returns the report directory.
func (m *Manager) SaveReport(name string, v any) (string, error) {
	targetDir, err := m.reportDir(name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report dir: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	// Write then rename so readers never see a partial file.
	tmp := filepath.Join(targetDir, ReportFile+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(targetDir, ReportFile)); err != nil {
		return "", fmt.Errorf("failed to move report into place: %w", err)
	}

	return targetDir, nil
}

// GetCachedReport returns the report directory for name, or "" when it is
// missing or older than the TTL. Expired reports are removed.
func (m *Manager) GetCachedReport(name string) (string, error) {
	path, err := m.reportDir(name)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(filepath.Join(path, ReportFile))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil // Not cached
		}
		return "", err
	}

	if m.expired(info.ModTime()) {
		os.RemoveAll(path)
		return "", nil // Expired
	}

	return path, nil
}

// Prune removes every expired report directory and returns how many were
// deleted.
func (m *Manager) Prune() (int, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read report dir: %w", err)
	}

	removed := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if !m.expired(info.ModTime()) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(m.dir, e.Name())); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", e.Name(), err)
		}
		removed++
	}
	return removed, nil
}

func (m *Manager) expired(mod time.Time) bool {
	return m.ttl > 0 && time.Since(mod) > m.ttl
}
