package model

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidPhase = errors.New("model: invalid timer phase")
	ErrInvalidLatch = errors.New("model: invalid latch state")
)

type Phase string

const (
	PhaseIdle      Phase = "Idle"
	PhaseScheduled Phase = "Scheduled"
	PhaseActive    Phase = "Active"
	PhaseCompleted Phase = "Completed"
	PhaseExpired   Phase = "Expired"
)

func (p Phase) IsValid() bool {
	switch p {
	case PhaseIdle, PhaseScheduled, PhaseActive, PhaseCompleted, PhaseExpired:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether only a reschedule can leave the phase.
func (p Phase) IsTerminal() bool {
	return p == PhaseCompleted || p == PhaseExpired
}

// Latch guards the completion side effect of one Active period.
type Latch string

const (
	LatchPending  Latch = "Pending"
	LatchFired    Latch = "Fired"
	LatchConsumed Latch = "Consumed"
)

func (l Latch) IsValid() bool {
	switch l {
	case "", LatchPending, LatchFired, LatchConsumed:
		return true
	default:
		return false
	}
}

type TimerState struct {
	Phase           Phase
	StartTime       time.Time
	DurationMinutes int
	NotificationID  string
	CompletedAt     *time.Time
	Latch           Latch
}

// Duration is the configured countdown length.
func (s TimerState) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}

// EndTime is zero unless the timer has started.
func (s TimerState) EndTime() time.Time {
	if s.StartTime.IsZero() {
		return time.Time{}
	}
	return s.StartTime.Add(s.Duration())
}

// IsStale reports an Active timer whose end time has passed.
func (s TimerState) IsStale(now time.Time) bool {
	return s.Phase == PhaseActive && !s.StartTime.IsZero() && s.EndTime().Before(now)
}

func (s TimerState) Validate() error {
	if !s.Phase.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidPhase, s.Phase)
	}
	if !s.Latch.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidLatch, s.Latch)
	}
	if s.Phase == PhaseActive && s.StartTime.IsZero() {
		return errors.New("model: start_time is required when timer is Active")
	}
	if s.Phase.IsTerminal() && s.CompletedAt == nil {
		return errors.New("model: completed_at is required when timer is Completed or Expired")
	}
	if !s.Phase.IsTerminal() && s.CompletedAt != nil {
		return errors.New("model: completed_at must be nil while timer is running")
	}
	return nil
}
