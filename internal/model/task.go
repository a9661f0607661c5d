package model

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

var (
	ErrNotFound        = errors.New("model: not found")
	ErrInvalidStatus   = errors.New("model: invalid task status")
	ErrInvalidPriority = errors.New("model: invalid task priority")
	ErrInvalidInterval = errors.New("model: invalid interval")
)

// SupportedIntervals is the global set of countdown lengths, in minutes.
var SupportedIntervals = []int{5, 10, 15, 30}

// DefaultIntervalMinutes is used when a task carries no intervals at all.
const DefaultIntervalMinutes = 5

type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "Pending"
	TaskStatusCompleted TaskStatus = "Completed"
	TaskStatusDeleted   TaskStatus = "Deleted"
)

func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusCompleted, TaskStatusDeleted:
		return true
	default:
		return false
	}
}

type Priority string

const (
	PriorityUrgent Priority = "Urgent"
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLowest Priority = "Lowest"
)

func (p Priority) IsValid() bool {
	return p.Rank() >= 0
}

// Rank orders priorities with Urgent first. Unknown priorities return -1.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLowest:
		return 3
	default:
		return -1
	}
}

// ParsePriority accepts any casing of a priority label.
func ParsePriority(raw string) (Priority, error) {
	for _, p := range []Priority{PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLowest} {
		if strings.EqualFold(strings.TrimSpace(raw), string(p)) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPriority, raw)
}

// IntervalError reports a duration that the task is not allowed to use.
type IntervalError struct {
	Minutes int
	Allowed []int
}

func (e *IntervalError) Error() string {
	return fmt.Sprintf("model: interval %d not in %v", e.Minutes, e.Allowed)
}

func (e *IntervalError) Unwrap() error {
	return ErrInvalidInterval
}

type Task struct {
	ID               string
	OwnerID          string
	Title            string
	Priority         Priority
	AllowedIntervals []int
	Status           TaskStatus
	Timer            TimerState
	RescheduleCount  int
	SubtaskCount     int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsPending reports whether the task still competes for the reminder slot.
func (t Task) IsPending() bool {
	return t.Status == TaskStatusPending
}

// IsAdmitted reports whether the task holds the live notification.
func (t Task) IsAdmitted() bool {
	return t.IsPending() && t.Timer.Phase == PhaseActive && t.Timer.NotificationID != ""
}

// AllowsInterval reports whether minutes is one of the task's intervals.
func (t Task) AllowsInterval(minutes int) bool {
	return slices.Contains(t.AllowedIntervals, minutes)
}

// ValidateInterval returns an *IntervalError when minutes is not allowed.
func (t Task) ValidateInterval(minutes int) error {
	if !t.AllowsInterval(minutes) {
		return &IntervalError{Minutes: minutes, Allowed: slices.Clone(t.AllowedIntervals)}
	}
	return nil
}

// IntervalAt resolves an interval index, falling back to the first interval
// and then to DefaultIntervalMinutes.
func (t Task) IntervalAt(index int) int {
	if index >= 0 && index < len(t.AllowedIntervals) {
		return t.AllowedIntervals[index]
	}
	if len(t.AllowedIntervals) > 0 {
		return t.AllowedIntervals[0]
	}
	return DefaultIntervalMinutes
}

// MinInterval returns the shortest allowed interval, or 0 when there is none.
func (t Task) MinInterval() int {
	if len(t.AllowedIntervals) == 0 {
		return 0
	}
	return slices.Min(t.AllowedIntervals)
}

func (t Task) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return errors.New("model: task id is required")
	}
	if strings.TrimSpace(t.OwnerID) == "" {
		return errors.New("model: task owner_id is required")
	}
	if !t.Status.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, t.Status)
	}
	if !t.Priority.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, t.Priority)
	}
	if err := ValidateIntervals(t.AllowedIntervals); err != nil {
		return err
	}
	if t.RescheduleCount < 0 {
		return errors.New("model: reschedule_count must be >= 0")
	}
	if t.SubtaskCount < 0 {
		return errors.New("model: subtask_count must be >= 0")
	}
	if t.Timer.DurationMinutes != 0 {
		if err := t.ValidateInterval(t.Timer.DurationMinutes); err != nil {
			return err
		}
	}
	return t.Timer.Validate()
}

// ValidateIntervals checks that every value is drawn from SupportedIntervals.
func ValidateIntervals(intervals []int) error {
	if len(intervals) == 0 {
		return fmt.Errorf("%w: at least one interval is required", ErrInvalidInterval)
	}
	for _, v := range intervals {
		if !slices.Contains(SupportedIntervals, v) {
			return &IntervalError{Minutes: v, Allowed: slices.Clone(SupportedIntervals)}
		}
	}
	return nil
}

// Less is the single admission ordering: rank, then oldest, then id.
func Less(a, b Task) bool {
	if ra, rb := a.Priority.Rank(), b.Priority.Rank(); ra != rb {
		return ra < rb
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// Clone returns a copy that does not share the interval slice.
func (t Task) Clone() Task {
	out := t
	out.AllowedIntervals = slices.Clone(t.AllowedIntervals)
	return out
}
