package artifacts

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_SaveAndGet(t *testing.T) {
	m := NewManager(t.TempDir(), time.Hour)

	dir, err := m.SaveReport("2025-01-07-All", map[string]int{"runs": 3})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, ReportFile))
	require.NoError(t, err)
	var got map[string]int
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, 3, got["runs"])

	cached, err := m.GetCachedReport("2025-01-07-All")
	require.NoError(t, err)
	assert.Equal(t, dir, cached)

	missing, err := m.GetCachedReport("nope")
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestManager_RejectsTraversal(t *testing.T) {
	m := NewManager(t.TempDir(), time.Hour)
	for _, name := range []string{"", ".", "..", "../x", "a/b", `a\b`} {
		_, err := m.SaveReport(name, 1)
		assert.Error(t, err, name)
	}
}

func TestManager_ExpiryAndPrune(t *testing.T) {
	root := t.TempDir()
	m := NewManager(root, time.Minute)

	oldDir, err := m.SaveReport("old", 1)
	require.NoError(t, err)
	_, err = m.SaveReport("fresh", 2)
	require.NoError(t, err)

	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(oldDir, ReportFile), past, past))
	require.NoError(t, os.Chtimes(oldDir, past, past))

	cached, err := m.GetCachedReport("old")
	require.NoError(t, err)
	assert.Empty(t, cached)
	assert.NoDirExists(t, oldDir)

	_, err = m.SaveReport("stale", 3)
	require.NoError(t, err)
	staleDir := filepath.Join(root, "stale")
	require.NoError(t, os.Chtimes(staleDir, past, past))

	removed, err := m.Prune()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.DirExists(t, filepath.Join(root, "fresh"))
}

func TestManager_PruneMissingDir(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "absent"), time.Minute)
	n, err := m.Prune()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReportName(t *testing.T) {
	m := NewManager(t.TempDir(), 0)

	for branch, want := range map[string]string{
		"All":             "All-abc",
		"feature/login":   "feature_login-abc",
		`release\2025.01`: "release_2025.01-abc",
	} {
		name := ReportName(branch, "abc")
		assert.Equal(t, want, name)

		dir, err := m.SaveReport(name, map[string]string{"branch": branch})
		require.NoError(t, err)
		assert.Equal(t, m.Dir(), filepath.Dir(dir))
	}
}
