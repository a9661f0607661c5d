package reminder

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/sandeepkv93/focusd/internal/model"
	"github.com/sandeepkv93/focusd/internal/storage"
	"github.com/sandeepkv93/focusd/internal/timer"
)

// AdmitNext gives the owner's live notification to the best Pending task
// and preempts any other task that still holds one.
func (c *Controller) AdmitNext(ctx context.Context, ownerID string) (err error) {
	unlock, err := c.begin()
	if err != nil {
		return err
	}
	defer unlock()
	defer c.recoverOp(ctx, "admit next", &err)
	return c.admitNextLocked(ctx, ownerID)
}

// ScheduleTaskNotification runs the scheduling algorithm for one task.
func (c *Controller) ScheduleTaskNotification(ctx context.Context, task model.Task) (out Outcome, err error) {
	unlock, err := c.begin()
	if err != nil {
		return OutcomeSkipped, err
	}
	defer unlock()
	defer c.recoverOp(ctx, "schedule", &err)
	t := task.Clone()
	return c.scheduleLocked(ctx, &t)
}

func isCandidate(t model.Task) bool {
	if !t.IsPending() {
		return false
	}
	switch t.Timer.Phase {
	case model.PhaseIdle, model.PhaseScheduled, model.PhaseActive, "":
		return true
	default:
		return false
	}
}

func compareTasks(a, b model.Task) int {
	switch {
	case model.Less(a, b):
		return -1
	case model.Less(b, a):
		return 1
	default:
		return 0
	}
}

func (c *Controller) pendingTasks(ctx context.Context, ownerID string) ([]model.Task, error) {
	tasks, err := c.store.ListTasks(ctx, storage.TaskListFilter{OwnerID: ownerID, Status: model.TaskStatusPending})
	if err != nil {
		return nil, fmt.Errorf("reminder: list pending tasks: %w", err)
	}
	slices.SortFunc(tasks, compareTasks)
	return tasks, nil
}

func (c *Controller) admitNextLocked(ctx context.Context, ownerID string) error {
	tasks, err := c.pendingTasks(ctx, ownerID)
	if err != nil {
		return err
	}
	candidates := slices.DeleteFunc(tasks, func(t model.Task) bool { return !isCandidate(t) })
	if len(candidates) == 0 {
		return nil
	}

	selected := candidates[0]
	var errs []error
	for i := range candidates[1:] {
		other := &candidates[i+1]
		if other.Timer.Phase != model.PhaseActive {
			continue
		}
		c.cancel(ctx, other.ID)
		if err := timer.Preempt(&other.Timer); err != nil {
			errs = append(errs, err)
			continue
		}
		// The cancelled notification no longer counts as sent.
		c.clearSent(ctx, other.ID)
		if err := c.persist(ctx, "preempt", other); err != nil {
			errs = append(errs, err)
		}
		c.logger.InfoContext(ctx, "task preempted", "task_id", other.ID, "by", selected.ID)
	}

	if selected.IsAdmitted() {
		return errors.Join(errs...)
	}
	if selected.Timer.Phase == model.PhaseIdle || selected.Timer.Phase == "" {
		minutes := selected.Timer.DurationMinutes
		if !selected.AllowsInterval(minutes) {
			minutes = selected.IntervalAt(0)
		}
		if err := timer.Start(&selected, minutes); err != nil {
			return errors.Join(append(errs, fmt.Errorf("reminder: start %s: %w", selected.ID, err))...)
		}
	}
	if _, err := c.scheduleLocked(ctx, &selected); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (c *Controller) scheduleLocked(ctx context.Context, task *model.Task) (Outcome, error) {
	if task.ID == "" {
		return OutcomeSkipped, ErrMissingTaskID
	}
	if c.dedup.WasRecentlySent(ctx, task.ID) {
		c.skipped.Add(ctx, 1)
		c.logger.DebugContext(ctx, "schedule skipped: recently sent", "task_id", task.ID)
		return OutcomeSkipped, nil
	}

	c.cancel(ctx, task.ID)
	switch task.Timer.Phase {
	case model.PhaseActive:
		if err := timer.Preempt(&task.Timer); err != nil {
			return OutcomeSkipped, err
		}
	case model.PhaseIdle, "":
		if err := timer.Start(task, task.IntervalAt(0)); err != nil {
			return OutcomeSkipped, fmt.Errorf("reminder: start %s: %w", task.ID, err)
		}
	case model.PhaseScheduled:
	default:
		return OutcomeSkipped, &timer.TransitionError{From: task.Timer.Phase, Event: timer.EventActivate}
	}

	minutes := task.Timer.DurationMinutes
	if err := task.ValidateInterval(minutes); err != nil {
		return OutcomeSkipped, fmt.Errorf("reminder: schedule %s: %w", task.ID, err)
	}

	notificationID, err := c.port.Schedule(ctx, task.ID, payloadFor(*task), minutes)
	if err != nil {
		c.failed.Add(ctx, 1)
		c.logger.ErrorContext(ctx, "schedule notification failed", "task_id", task.ID, "error", err)
		serr := &SchedulingError{TaskID: task.ID, Err: err}
		if perr := c.persist(ctx, "schedule", task); perr != nil {
			return OutcomeSkipped, errors.Join(serr, perr)
		}
		return OutcomeSkipped, serr
	}
	if c.closed.Load() {
		c.cancel(ctx, task.ID)
		return OutcomeSkipped, ErrClosed
	}

	if err := timer.Activate(&task.Timer, notificationID, c.now()); err != nil {
		return OutcomeSkipped, err
	}
	perr := c.persist(ctx, "schedule", task)
	c.markSent(ctx, task.ID)
	c.scheduled.Add(ctx, 1)
	c.logger.InfoContext(ctx, "notification scheduled",
		"task_id", task.ID, "notification_id", notificationID, "minutes", minutes)
	return OutcomeScheduled, perr
}

// hasLiveLocked reports whether any Pending task of the owner holds a live
// notification.
func (c *Controller) hasLiveLocked(ctx context.Context, ownerID string) (bool, error) {
	tasks, err := c.pendingTasks(ctx, ownerID)
	if err != nil {
		return false, err
	}
	return slices.ContainsFunc(tasks, model.Task.IsAdmitted), nil
}
