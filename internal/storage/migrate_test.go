package storage

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandeepkv93/focusd/internal/model"
)

func TestMigrateRoundTripCompatibility(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "migrate-roundtrip.db")
	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, MigrateUp(t.Context(), db), "first migrate up")
	require.NoError(t, MigrateDown(t.Context(), db), "migrate down")
	require.NoError(t, MigrateUp(t.Context(), db), "second migrate up")

	repo, err := NewSQLiteRepository(db)
	require.NoError(t, err)

	now := time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.CreateTask(t.Context(), model.Task{
		ID:               "task-rt-1",
		OwnerID:          "owner-1",
		Title:            "Roundtrip task",
		Priority:         model.PriorityMedium,
		AllowedIntervals: []int{15},
		Status:           model.TaskStatusPending,
		Timer:            model.TimerState{Phase: model.PhaseIdle},
		CreatedAt:        now,
		UpdatedAt:        now,
	}))

	got, err := repo.GetTask(t.Context(), "task-rt-1")
	require.NoError(t, err)
	assert.Equal(t, "Roundtrip task", got.Title)
	assert.Equal(t, []int{15}, got.AllowedIntervals)
}

func TestOpenSQLiteMigrates(t *testing.T) {
	repo, err := OpenSQLite(t.Context(), filepath.Join(t.TempDir(), "open.db"))
	require.NoError(t, err)
	defer repo.Close()

	tasks, err := repo.ListTasks(t.Context(), TaskListFilter{})
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestMigrateInstallsRescheduleTrigger(t *testing.T) {
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "trigger.db"))
	require.NoError(t, err)
	defer db.Close()

	triggers := func() int {
		var n int
		require.NoError(t, db.QueryRow(
			`SELECT COUNT(*) FROM sqlite_master WHERE type = 'trigger' AND name = 'trg_tasks_reschedule_monotonic'`,
		).Scan(&n))
		return n
	}

	require.NoError(t, MigrateUp(t.Context(), db))
	assert.Equal(t, 1, triggers())

	require.NoError(t, MigrateDown(t.Context(), db))
	assert.Equal(t, 0, triggers())
}
