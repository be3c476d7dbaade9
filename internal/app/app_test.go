package app

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/testdino/insights/internal/backend"
	"github.com/testdino/insights/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Snapshots.SQLite.Path = filepath.Join(t.TempDir(), "snapshots.db")
	cfg.Reports.Dir = filepath.Join(t.TempDir(), "reports")
	return cfg
}

func TestNewSource(t *testing.T) {
	cfg := config.Default()
	src, err := NewSource(cfg)
	require.NoError(t, err)
	assert.IsType(t, &backend.MockClient{}, src)

	cfg.Source.Mode = config.SourceAPI
	cfg.Source.BaseURL = "http://localhost:3000"
	cfg.Source.Project = "proj"
	src, err = NewSource(cfg)
	require.NoError(t, err)
	assert.IsType(t, &backend.RealClient{}, src)

	cfg.Source.Mode = "ftp"
	_, err = NewSource(cfg)
	assert.Error(t, err)
}

func TestNew_SyncsMockRuns(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	ctx := context.Background()

	a, err := New(ctx, log, testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, a.Close()) })

	assert.Nil(t, a.Publisher)

	res, err := a.Worker.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, res.Inserted)

	latest, err := a.Snapshots.Latest(ctx, "All")
	require.NoError(t, err)
	assert.Equal(t, res.Snapshots[0], latest.ID)
}

func TestNew_BadDatabase(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Driver = "oracle"
	_, err := New(context.Background(), logrus.New(), cfg)
	assert.Error(t, err)
}
