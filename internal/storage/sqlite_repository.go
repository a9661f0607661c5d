package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sandeepkv93/focusd/internal/model"
)

const sqliteTimeLayout = time.RFC3339Nano

const taskColumns = `id, owner_id, title, priority, allowed_intervals, status, timer_phase, timer_start_time,
	timer_duration_minutes, notification_id, completed_at, latch, reschedule_count, subtask_count, created_at, updated_at`

var _ Repository = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db     *sql.DB
	logger *slog.Logger

	subsMu sync.Mutex
	subs   map[int]*subscription
	nextID int
}

func NewSQLiteRepository(db *sql.DB) (*SQLiteRepository, error) {
	if db == nil {
		return nil, errors.New("storage: nil db")
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return &SQLiteRepository{db: db, logger: slog.Default(), subs: make(map[int]*subscription)}, nil
}

// OpenSQLite opens path, applies migrations and returns a repository.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := MigrateUp(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	repo, err := NewSQLiteRepository(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *SQLiteRepository) SetLogger(l *slog.Logger) {
	if l != nil {
		r.logger = l
	}
}

func (r *SQLiteRepository) Close() error {
	r.subsMu.Lock()
	for id, s := range r.subs {
		s.close()
		delete(r.subs, id)
	}
	r.subsMu.Unlock()
	return r.db.Close()
}

func (r *SQLiteRepository) CreateTask(ctx context.Context, in model.Task) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.OwnerID, in.Title, string(in.Priority), encodeIntervals(in.AllowedIntervals), string(in.Status),
		string(in.Timer.Phase), zeroableTime(in.Timer.StartTime), in.Timer.DurationMinutes, in.Timer.NotificationID,
		nullTime(in.Timer.CompletedAt), string(in.Timer.Latch), in.RescheduleCount, in.SubtaskCount,
		mustTime(in.CreatedAt), mustTime(in.UpdatedAt),
	)
	if err != nil {
		return err
	}
	r.changed(in)
	return nil
}

func (r *SQLiteRepository) GetTask(ctx context.Context, id string) (model.Task, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Task{}, ErrNotFound
		}
		return model.Task{}, err
	}
	return task, nil
}

func (r *SQLiteRepository) UpdateTask(ctx context.Context, in model.Task) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tasks
		SET owner_id = ?, title = ?, priority = ?, allowed_intervals = ?, status = ?, timer_phase = ?,
			timer_start_time = ?, timer_duration_minutes = ?, notification_id = ?, completed_at = ?, latch = ?,
			reschedule_count = ?, subtask_count = ?, updated_at = ?
		WHERE id = ?`,
		in.OwnerID, in.Title, string(in.Priority), encodeIntervals(in.AllowedIntervals), string(in.Status),
		string(in.Timer.Phase), zeroableTime(in.Timer.StartTime), in.Timer.DurationMinutes, in.Timer.NotificationID,
		nullTime(in.Timer.CompletedAt), string(in.Timer.Latch), in.RescheduleCount, in.SubtaskCount,
		mustTime(in.UpdatedAt), in.ID,
	)
	if err != nil {
		return err
	}
	if err := checkRowsAffected(res); err != nil {
		return err
	}
	r.changed(in)
	return nil
}

// DeleteTask removes the row. The engine soft-deletes through UpdateTask;
// this is for purging.
func (r *SQLiteRepository) DeleteTask(ctx context.Context, id string) error {
	task, err := r.GetTask(ctx, id)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err := checkRowsAffected(res); err != nil {
		return err
	}
	r.changed(task)
	return nil
}

func (r *SQLiteRepository) ListTasks(ctx context.Context, filter TaskListFilter) ([]model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	clauses := make([]string, 0, 2)
	args := make([]any, 0, 4)
	if filter.OwnerID != "" {
		clauses = append(clauses, "owner_id = ?")
		args = append(args, filter.OwnerID)
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(filter.Status))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY created_at ASC, id ASC`
	query += applyPagination(&args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Task, 0)
	for rows.Next() {
		task, scanErr := scanTask(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, task)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetProfile(ctx context.Context, ownerID string) (model.LevelProfile, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT owner_id, level, current_xp, total_xp, total_tasks_completed, last_updated
		FROM level_profiles WHERE owner_id = ?`, ownerID)
	var out model.LevelProfile
	var updated string
	if err := row.Scan(&out.OwnerID, &out.Level, &out.CurrentXP, &out.TotalXP, &out.TotalTasksCompleted, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.LevelProfile{}, ErrNotFound
		}
		return model.LevelProfile{}, err
	}
	lastUpdated, err := parseRequiredTime(updated)
	if err != nil {
		return model.LevelProfile{}, err
	}
	out.LastUpdated = lastUpdated
	return out, nil
}

func (r *SQLiteRepository) SaveProfile(ctx context.Context, in model.LevelProfile) error {
	if err := in.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO level_profiles (owner_id, level, current_xp, total_xp, total_tasks_completed, last_updated)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(owner_id) DO UPDATE SET
			level = excluded.level,
			current_xp = excluded.current_xp,
			total_xp = excluded.total_xp,
			total_tasks_completed = excluded.total_tasks_completed,
			last_updated = excluded.last_updated`,
		in.OwnerID, in.Level, in.CurrentXP, in.TotalXP, in.TotalTasksCompleted, mustTime(in.LastUpdated),
	)
	return err
}

func (r *SQLiteRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (r *SQLiteRepository) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, mustTime(time.Now()),
	)
	return err
}

func (r *SQLiteRepository) Remove(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	return err
}

func nullTime(v *time.Time) any {
	if v == nil {
		return nil
	}
	return v.UTC().Format(sqliteTimeLayout)
}

func zeroableTime(v time.Time) any {
	if v.IsZero() {
		return nil
	}
	return v.UTC().Format(sqliteTimeLayout)
}

func mustTime(v time.Time) string {
	return v.UTC().Format(sqliteTimeLayout)
}

func parseNullableTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	tm, err := time.Parse(sqliteTimeLayout, v.String)
	if err != nil {
		return nil, err
	}
	return &tm, nil
}

func parseRequiredTime(v string) (time.Time, error) {
	return time.Parse(sqliteTimeLayout, v)
}

func applyPagination(args *[]any, limit, offset int) string {
	sql := ""
	if limit > 0 {
		sql += " LIMIT ?"
		*args = append(*args, limit)
	}
	if offset > 0 {
		if limit <= 0 {
			sql += " LIMIT -1"
		}
		sql += " OFFSET ?"
		*args = append(*args, offset)
	}
	return sql
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (model.Task, error) {
	var out model.Task
	var priority, intervals, status, phase, latch string
	var started, completed sql.NullString
	var created, updated string
	if err := s.Scan(&out.ID, &out.OwnerID, &out.Title, &priority, &intervals, &status, &phase, &started,
		&out.Timer.DurationMinutes, &out.Timer.NotificationID, &completed, &latch, &out.RescheduleCount,
		&out.SubtaskCount, &created, &updated); err != nil {
		return model.Task{}, err
	}
	allowed, err := decodeIntervals(intervals)
	if err != nil {
		return model.Task{}, err
	}
	startTime, err := parseNullableTime(started)
	if err != nil {
		return model.Task{}, err
	}
	completedAt, err := parseNullableTime(completed)
	if err != nil {
		return model.Task{}, err
	}
	createdAt, err := parseRequiredTime(created)
	if err != nil {
		return model.Task{}, err
	}
	updatedAt, err := parseRequiredTime(updated)
	if err != nil {
		return model.Task{}, err
	}
	out.Priority = model.Priority(priority)
	out.AllowedIntervals = allowed
	out.Status = model.TaskStatus(status)
	out.Timer.Phase = model.Phase(phase)
	out.Timer.Latch = model.Latch(latch)
	if startTime != nil {
		out.Timer.StartTime = *startTime
	}
	out.Timer.CompletedAt = completedAt
	out.CreatedAt = createdAt
	out.UpdatedAt = updatedAt
	return out, nil
}

func checkRowsAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
