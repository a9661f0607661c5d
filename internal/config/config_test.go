package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuntimeConfigDefaults(t *testing.T) {
	cfg := DefaultRuntimeConfig()
	assert.Equal(t, 5000*time.Millisecond, cfg.DedupWindow)
	assert.Equal(t, 64, cfg.SchedulerBuffer)
	assert.Equal(t, time.Second, cfg.UITick)
	assert.False(t, cfg.DesktopNotifications)
	require.NoError(t, cfg.Validate())
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "focusd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database_path: /tmp/f.db
owner_id: alice
dedup_window: 2s
reconcile_interval: 1m
desktop_notifications: true
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/f.db", cfg.DatabasePath)
	assert.Equal(t, "alice", cfg.OwnerID)
	assert.Equal(t, 2*time.Second, cfg.DedupWindow)
	assert.Equal(t, time.Minute, cfg.ReconcileInterval)
	assert.True(t, cfg.DesktopNotifications)
	assert.Equal(t, 64, cfg.SchedulerBuffer, "unset keys keep defaults")
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultRuntimeConfig(), cfg)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dedup_window: [nope"), 0o600))
	_, err := Load(path)
	require.Error(t, err)
}

func TestFromEnv(t *testing.T) {
	t.Setenv("FOCUSD_DB_PATH", "env.db")
	t.Setenv("FOCUSD_OWNER_ID", "bob")
	t.Setenv("FOCUSD_DEDUP_WINDOW_MS", "750")
	t.Setenv("FOCUSD_RECONCILE_SECONDS", "10")
	t.Setenv("FOCUSD_DESKTOP_NOTIFICATIONS", "yes")
	t.Setenv("FOCUSD_SCHEDULER_BUFFER", "128")
	t.Setenv("FOCUSD_UI_TICK_MS", "-5")

	cfg := FromEnv(DefaultRuntimeConfig())
	assert.Equal(t, "env.db", cfg.DatabasePath)
	assert.Equal(t, "bob", cfg.OwnerID)
	assert.Equal(t, 750*time.Millisecond, cfg.DedupWindow)
	assert.Equal(t, 10*time.Second, cfg.ReconcileInterval)
	assert.True(t, cfg.DesktopNotifications)
	assert.Equal(t, 128, cfg.SchedulerBuffer)
	assert.Equal(t, time.Second, cfg.UITick, "non-positive override ignored")
}

func TestValidate(t *testing.T) {
	cfg := DefaultRuntimeConfig()
	cfg.DedupWindow = 0
	cfg.OwnerID = " "
	cfg.SchedulerBuffer = -1

	err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "dedup_window")
	assert.Contains(t, err.Error(), "owner_id")
	assert.Contains(t, err.Error(), "scheduler_buffer")
}
