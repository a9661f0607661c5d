package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTask() Task {
	now := time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)
	return Task{
		ID:               "task-1",
		OwnerID:          "owner-1",
		Title:            "Implement model validation",
		Priority:         PriorityHigh,
		AllowedIntervals: []int{10, 5},
		Status:           TaskStatusPending,
		Timer:            TimerState{Phase: PhaseIdle},
		CreatedAt:        now,
	}
}

func TestTaskValidateSuccess(t *testing.T) {
	require.NoError(t, validTask().Validate())
}

func TestTaskValidateRejectsUnsupportedInterval(t *testing.T) {
	task := validTask()
	task.AllowedIntervals = []int{7}

	err := task.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInterval))

	var ie *IntervalError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, 7, ie.Minutes)
}

func TestTaskValidateDurationMustBeAllowed(t *testing.T) {
	task := validTask()
	task.Timer = TimerState{Phase: PhaseScheduled, DurationMinutes: 30}
	require.ErrorIs(t, task.Validate(), ErrInvalidInterval)
}

func TestTaskValidateInvalidEnums(t *testing.T) {
	task := validTask()
	task.Priority = Priority("critical")
	require.ErrorIs(t, task.Validate(), ErrInvalidPriority)

	task = validTask()
	task.Status = TaskStatus("archived")
	require.ErrorIs(t, task.Validate(), ErrInvalidStatus)
}

func TestPriorityRankOrder(t *testing.T) {
	ordered := []Priority{PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLowest}
	for i, p := range ordered {
		assert.Equal(t, i, p.Rank(), "rank of %s", p)
	}
	assert.Equal(t, -1, Priority("Low").Rank())
}

func TestParsePriority(t *testing.T) {
	p, err := ParsePriority("  urgent ")
	require.NoError(t, err)
	assert.Equal(t, PriorityUrgent, p)

	_, err = ParsePriority("asap")
	require.ErrorIs(t, err, ErrInvalidPriority)
}

func TestLessUsesRankNotLabel(t *testing.T) {
	created := time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)
	urgent := Task{ID: "b", Priority: PriorityUrgent, CreatedAt: created}
	high := Task{ID: "a", Priority: PriorityHigh, CreatedAt: created}
	lowest := Task{ID: "c", Priority: PriorityLowest, CreatedAt: created}

	// "High" < "Lowest" < "Urgent" alphabetically; rank must win.
	assert.True(t, Less(urgent, high))
	assert.True(t, Less(high, lowest))
	assert.False(t, Less(lowest, urgent))
}

func TestLessTieBreaksByAgeThenID(t *testing.T) {
	older := time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)
	a := Task{ID: "b", Priority: PriorityMedium, CreatedAt: older}
	b := Task{ID: "a", Priority: PriorityMedium, CreatedAt: older.Add(time.Minute)}
	assert.True(t, Less(a, b))

	c := Task{ID: "a", Priority: PriorityMedium, CreatedAt: older}
	assert.True(t, Less(c, a))
}

func TestIntervalAtFallbacks(t *testing.T) {
	task := validTask()
	assert.Equal(t, 5, task.IntervalAt(1))
	assert.Equal(t, 10, task.IntervalAt(9))
	assert.Equal(t, 10, task.IntervalAt(-1))

	task.AllowedIntervals = nil
	assert.Equal(t, DefaultIntervalMinutes, task.IntervalAt(0))
	assert.Equal(t, 0, task.MinInterval())
}

func TestIsAdmitted(t *testing.T) {
	task := validTask()
	task.Timer = TimerState{Phase: PhaseActive, StartTime: task.CreatedAt, DurationMinutes: 10, NotificationID: "n-1"}
	assert.True(t, task.IsAdmitted())

	task.Timer.NotificationID = ""
	assert.False(t, task.IsAdmitted())

	task.Timer.NotificationID = "n-1"
	task.Status = TaskStatusDeleted
	assert.False(t, task.IsAdmitted())
}
