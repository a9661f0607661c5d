// Package timer implements the per-task countdown lifecycle:
// Idle -> Scheduled -> Active -> {Completed | Expired}, with Reschedule
// returning any phase to Scheduled.
package timer

import (
	"errors"
	"fmt"
	"time"

	"github.com/sandeepkv93/focusd/internal/model"
)

var ErrInvalidTransition = errors.New("timer: invalid transition")

type Event string

const (
	EventStart      Event = "start"
	EventActivate   Event = "activate"
	EventComplete   Event = "complete"
	EventExpire     Event = "expire"
	EventPreempt    Event = "preempt"
	EventReschedule Event = "reschedule"
)

type TransitionError struct {
	From  model.Phase
	Event Event
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("timer: cannot %s from %s", e.Event, e.From)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// Start moves an Idle task to Scheduled with the given duration.
func Start(task *model.Task, minutes int) error {
	if task.Timer.Phase != model.PhaseIdle && task.Timer.Phase != "" {
		return &TransitionError{From: task.Timer.Phase, Event: EventStart}
	}
	if err := task.ValidateInterval(minutes); err != nil {
		return err
	}
	task.Timer = model.TimerState{Phase: model.PhaseScheduled, DurationMinutes: minutes}
	return nil
}

// Activate records a confirmed notification and starts the countdown.
func Activate(s *model.TimerState, notificationID string, now time.Time) error {
	if s.Phase != model.PhaseScheduled {
		return &TransitionError{From: s.Phase, Event: EventActivate}
	}
	s.Phase = model.PhaseActive
	s.StartTime = now
	s.NotificationID = notificationID
	s.CompletedAt = nil
	s.Latch = model.LatchPending
	return nil
}

// Complete marks the timer done by user action. A task finished before it
// was ever admitted completes straight from Idle or Scheduled.
func Complete(s *model.TimerState, now time.Time) error {
	switch s.Phase {
	case model.PhaseIdle, model.PhaseScheduled, model.PhaseActive, "":
	default:
		return &TransitionError{From: s.Phase, Event: EventComplete}
	}
	s.Phase = model.PhaseCompleted
	s.NotificationID = ""
	s.CompletedAt = &now
	s.Latch = model.LatchConsumed
	return nil
}

// Expire marks an Active timer whose end passed without user action.
func Expire(s *model.TimerState, now time.Time) error {
	if s.Phase != model.PhaseActive {
		return &TransitionError{From: s.Phase, Event: EventExpire}
	}
	s.Phase = model.PhaseExpired
	s.NotificationID = ""
	s.CompletedAt = &now
	s.Latch = model.LatchConsumed
	return nil
}

// Preempt returns a displaced Active timer to Scheduled, keeping its duration.
func Preempt(s *model.TimerState) error {
	if s.Phase != model.PhaseActive {
		return &TransitionError{From: s.Phase, Event: EventPreempt}
	}
	*s = model.TimerState{Phase: model.PhaseScheduled, DurationMinutes: s.DurationMinutes}
	return nil
}

// Reschedule resets bookkeeping, picks a new duration and bumps the
// reschedule counter.
func Reschedule(task *model.Task, minutes int) error {
	if len(task.AllowedIntervals) > 0 {
		if err := task.ValidateInterval(minutes); err != nil {
			return err
		}
	}
	task.Timer = model.TimerState{Phase: model.PhaseScheduled, DurationMinutes: minutes}
	task.RescheduleCount++
	return nil
}

// Fire claims the completion side effect for the current Active period.
// It returns true exactly once per period.
func Fire(s *model.TimerState) bool {
	if s.Phase != model.PhaseActive || s.Latch != model.LatchPending {
		return false
	}
	s.Latch = model.LatchFired
	return true
}

// Consume finalises a fired latch.
func Consume(s *model.TimerState) bool {
	if s.Latch != model.LatchFired {
		return false
	}
	s.Latch = model.LatchConsumed
	return true
}
