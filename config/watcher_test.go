package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_StopCancelsPendingReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roadcall.toml")
	cfg := defaultConfig(t)
	require.NoError(t, Save(cfg, path))

	holder, err := NewHolder(cfg)
	require.NoError(t, err)
	before := holder.Snapshot()

	w, err := NewWatcher(path, holder)
	require.NoError(t, err)
	w.debouncePeriod = 50 * time.Millisecond

	// A file change lands inside the debounce window, then shutdown begins
	// before the reload fires.
	cfg.Monitoring.RefreshIntervalSeconds = 120
	require.NoError(t, Save(cfg, path))
	w.scheduleReload()
	require.NoError(t, w.Stop())

	time.Sleep(100 * time.Millisecond)
	assert.Same(t, before, holder.Snapshot(), "cancelled reload must not swap the snapshot")
}

func TestWatcher_ReloadSwapsValidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roadcall.toml")
	cfg := defaultConfig(t)
	require.NoError(t, Save(cfg, path))

	holder, err := NewHolder(cfg)
	require.NoError(t, err)

	w, err := NewWatcher(path, holder)
	require.NoError(t, err)
	defer w.Stop()

	cfg.Monitoring.RefreshIntervalSeconds = 120
	require.NoError(t, Save(cfg, path))
	require.NoError(t, w.reload())

	assert.Equal(t, 120, holder.Snapshot().Config.Monitoring.RefreshIntervalSeconds)
	assert.Equal(t, int64(2), holder.Snapshot().Version)
}
