package reminder

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/sandeepkv93/focusd/internal/model"
	"github.com/sandeepkv93/focusd/internal/notify"
	"github.com/sandeepkv93/focusd/internal/timer"
)

type NewTask struct {
	OwnerID          string
	Title            string
	Priority         model.Priority
	AllowedIntervals []int
	SubtaskCount     int
}

// TaskPatch carries optional edits; nil fields are left unchanged.
type TaskPatch struct {
	Title            *string
	Priority         *model.Priority
	AllowedIntervals []int
	DurationMinutes  *int
	SubtaskCount     *int
}

// CreateTask stores a new Pending task and re-runs admission for its owner.
// Admission failures are logged; the task is still created.
func (c *Controller) CreateTask(ctx context.Context, in NewTask) (out model.Task, err error) {
	unlock, err := c.begin()
	if err != nil {
		return model.Task{}, err
	}
	defer unlock()
	defer c.recoverOp(ctx, "create", &err)

	now := c.now()
	task := model.Task{
		ID:               uuid.NewString(),
		OwnerID:          strings.TrimSpace(in.OwnerID),
		Title:            strings.TrimSpace(in.Title),
		Priority:         in.Priority,
		AllowedIntervals: slices.Clone(in.AllowedIntervals),
		Status:           model.TaskStatusPending,
		Timer:            model.TimerState{Phase: model.PhaseIdle},
		SubtaskCount:     in.SubtaskCount,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if task.Title == "" {
		return model.Task{}, errors.New("reminder: task title is required")
	}
	if err := task.Validate(); err != nil {
		return model.Task{}, fmt.Errorf("reminder: create task: %w", err)
	}
	if err := c.store.CreateTask(ctx, task); err != nil {
		return model.Task{}, &PersistenceError{TaskID: task.ID, Op: "create", Err: err}
	}
	c.logger.InfoContext(ctx, "task created", "task_id", task.ID, "priority", task.Priority)

	if err := c.admitNextLocked(ctx, task.OwnerID); err != nil {
		c.logger.WarnContext(ctx, "admission after create failed", "task_id", task.ID, "error", err)
	}
	if stored, err := c.store.GetTask(ctx, task.ID); err == nil {
		task = stored
	}
	return task, nil
}

// CompleteTask finishes a task, hands the slot to the next task and credits
// experience. Unknown or already finished tasks are a no-op.
func (c *Controller) CompleteTask(ctx context.Context, taskID string) (err error) {
	unlock, err := c.begin()
	if err != nil {
		return err
	}
	defer unlock()
	defer c.recoverOp(ctx, "complete", &err)
	return c.completeLocked(ctx, taskID)
}

func (c *Controller) completeLocked(ctx context.Context, taskID string) error {
	if taskID == "" {
		return ErrMissingTaskID
	}
	task, err := c.store.GetTask(ctx, taskID)
	if errors.Is(err, model.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reminder: load %s: %w", taskID, err)
	}
	if !task.IsPending() {
		return nil
	}

	c.cancel(ctx, task.ID)
	if task.Timer.Phase.IsTerminal() {
		task.Timer.NotificationID = ""
		task.Timer.Latch = model.LatchConsumed
	} else if err := timer.Complete(&task.Timer, c.now()); err != nil {
		return err
	}
	task.Status = model.TaskStatusCompleted
	c.markSent(ctx, task.ID)
	if err := c.persist(ctx, "complete", &task); err != nil {
		return err
	}
	c.logger.InfoContext(ctx, "task completed", "task_id", task.ID)

	if err := c.admitNextLocked(ctx, task.OwnerID); err != nil {
		c.logger.WarnContext(ctx, "admission after complete failed", "task_id", task.ID, "error", err)
	}

	if c.leveler == nil {
		return nil
	}
	award, err := c.leveler.Credit(ctx, task)
	if err != nil {
		c.logger.ErrorContext(ctx, "credit experience failed", "task_id", task.ID, "error", err)
		return nil
	}
	c.showLevel(ctx, LevelUpdate{
		OwnerID:   task.OwnerID,
		LevelData: award.Data,
		Earned:    award.Earned,
		LeveledUp: award.LeveledUp,
	})
	return nil
}

// RescheduleTaskNotification restarts a task's countdown with the interval
// at intervalIndex. Only the admitted task touches the port; any other task
// is rewritten in storage and waits for admission.
func (c *Controller) RescheduleTaskNotification(ctx context.Context, taskID string, intervalIndex int) (err error) {
	unlock, err := c.begin()
	if err != nil {
		return err
	}
	defer unlock()
	defer c.recoverOp(ctx, "reschedule", &err)
	return c.rescheduleLocked(ctx, taskID, intervalIndex)
}

func (c *Controller) rescheduleLocked(ctx context.Context, taskID string, intervalIndex int) error {
	if taskID == "" {
		return ErrMissingTaskID
	}
	task, err := c.store.GetTask(ctx, taskID)
	if errors.Is(err, model.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reminder: load %s: %w", taskID, err)
	}
	if task.Status == model.TaskStatusDeleted {
		return nil
	}

	wasAdmitted := task.IsAdmitted()
	// A task that expired in the slot is still the owner's reminder.
	holdsSlot := wasAdmitted || (task.IsPending() && task.Timer.Phase == model.PhaseExpired)
	if err := timer.Reschedule(&task, task.IntervalAt(intervalIndex)); err != nil {
		return fmt.Errorf("reminder: reschedule %s: %w", task.ID, err)
	}
	task.Status = model.TaskStatusPending

	if wasAdmitted {
		c.clearSent(ctx, task.ID)
		_, err := c.scheduleLocked(ctx, &task)
		return err
	}
	if err := c.persist(ctx, "reschedule", &task); err != nil {
		return err
	}
	if !holdsSlot {
		return nil
	}
	live, err := c.hasLiveLocked(ctx, task.OwnerID)
	if err != nil || live {
		return err
	}
	c.clearSent(ctx, task.ID)
	return c.admitNextLocked(ctx, task.OwnerID)
}

// UpdateTask applies user edits. Changing the duration of the admitted task
// cancels and reschedules it with a fresh start time; other edits leave the
// timer alone. A priority change re-runs admission.
func (c *Controller) UpdateTask(ctx context.Context, taskID string, patch TaskPatch) (out model.Task, err error) {
	unlock, err := c.begin()
	if err != nil {
		return model.Task{}, err
	}
	defer unlock()
	defer c.recoverOp(ctx, "update", &err)

	if taskID == "" {
		return model.Task{}, ErrMissingTaskID
	}
	task, err := c.store.GetTask(ctx, taskID)
	if errors.Is(err, model.ErrNotFound) {
		return model.Task{}, nil
	}
	if err != nil {
		return model.Task{}, fmt.Errorf("reminder: load %s: %w", taskID, err)
	}
	before := task.Clone()

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return model.Task{}, errors.New("reminder: task title is required")
		}
		task.Title = title
	}
	if patch.Priority != nil {
		if !patch.Priority.IsValid() {
			return model.Task{}, fmt.Errorf("%w: %q", model.ErrInvalidPriority, *patch.Priority)
		}
		task.Priority = *patch.Priority
	}
	if patch.AllowedIntervals != nil {
		if err := model.ValidateIntervals(patch.AllowedIntervals); err != nil {
			return model.Task{}, err
		}
		task.AllowedIntervals = slices.Clone(patch.AllowedIntervals)
	}
	if patch.SubtaskCount != nil {
		if *patch.SubtaskCount < 0 {
			return model.Task{}, errors.New("reminder: subtask count must be >= 0")
		}
		task.SubtaskCount = *patch.SubtaskCount
	}

	duration := task.Timer.DurationMinutes
	if patch.DurationMinutes != nil {
		duration = *patch.DurationMinutes
	} else if duration != 0 && !task.AllowsInterval(duration) {
		duration = task.IntervalAt(0)
	}
	if duration != 0 {
		if err := task.ValidateInterval(duration); err != nil {
			return model.Task{}, err
		}
	}
	durationChanged := duration != before.Timer.DurationMinutes
	task.Timer.DurationMinutes = duration

	if before.IsAdmitted() && durationChanged {
		c.clearSent(ctx, task.ID)
		if _, err := c.scheduleLocked(ctx, &task); err != nil {
			return task, err
		}
	} else if err := c.persist(ctx, "update", &task); err != nil {
		return task, err
	}

	if task.IsPending() && task.Priority != before.Priority {
		if err := c.admitNextLocked(ctx, task.OwnerID); err != nil {
			c.logger.WarnContext(ctx, "admission after update failed", "task_id", task.ID, "error", err)
		}
		if stored, err := c.store.GetTask(ctx, task.ID); err == nil {
			task = stored
		}
	}
	return task, nil
}

// DeleteTask soft-deletes a task and releases its notification.
func (c *Controller) DeleteTask(ctx context.Context, taskID string) (err error) {
	unlock, err := c.begin()
	if err != nil {
		return err
	}
	defer unlock()
	defer c.recoverOp(ctx, "delete", &err)

	if taskID == "" {
		return ErrMissingTaskID
	}
	task, err := c.store.GetTask(ctx, taskID)
	if errors.Is(err, model.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reminder: load %s: %w", taskID, err)
	}
	if task.Status == model.TaskStatusDeleted {
		return nil
	}

	c.cancel(ctx, task.ID)
	if task.Timer.Phase == model.PhaseActive {
		_ = timer.Preempt(&task.Timer)
	}
	task.Status = model.TaskStatusDeleted
	if err := c.persist(ctx, "delete", &task); err != nil {
		return err
	}
	c.clearSent(ctx, task.ID)
	c.logger.InfoContext(ctx, "task deleted", "task_id", task.ID)
	return c.admitNextLocked(ctx, task.OwnerID)
}

// HandleDelivered surfaces the reminder modal once for a delivered
// notification. Deliveries for replaced notifications are ignored.
func (c *Controller) HandleDelivered(ctx context.Context, d notify.Delivered) (err error) {
	unlock, err := c.begin()
	if err != nil {
		return err
	}
	defer unlock()
	defer c.recoverOp(ctx, "delivered", &err)

	task, err := c.store.GetTask(ctx, d.TaskID)
	if errors.Is(err, model.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reminder: load %s: %w", d.TaskID, err)
	}
	if !task.IsPending() || task.Timer.NotificationID != d.NotificationID {
		c.logger.DebugContext(ctx, "stale delivery ignored", "task_id", d.TaskID, "notification_id", d.NotificationID)
		return nil
	}
	return c.fireLocked(ctx, &task, PromptDelivered)
}

// HandleExpirySignal is the countdown's zero-crossing. It shares the latch
// with HandleDelivered so the modal appears once per period.
func (c *Controller) HandleExpirySignal(ctx context.Context, taskID string) (err error) {
	unlock, err := c.begin()
	if err != nil {
		return err
	}
	defer unlock()
	defer c.recoverOp(ctx, "expiry signal", &err)

	task, err := c.store.GetTask(ctx, taskID)
	if errors.Is(err, model.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reminder: load %s: %w", taskID, err)
	}
	if !task.IsPending() {
		return nil
	}
	return c.fireLocked(ctx, &task, PromptCountdown)
}

func (c *Controller) fireLocked(ctx context.Context, task *model.Task, reason PromptReason) error {
	if !timer.Fire(&task.Timer) {
		return nil
	}
	c.showReminder(ctx, ReminderPrompt{
		CurrentReminderTask: task.Clone(),
		ShowReminderModal:   true,
		Reason:              reason,
	})
	timer.Consume(&task.Timer)
	return c.persist(ctx, "fire", task)
}

// HandleUserResponse applies an action taken on a notification.
func (c *Controller) HandleUserResponse(ctx context.Context, r notify.UserResponse) (err error) {
	unlock, err := c.begin()
	if err != nil {
		return err
	}
	defer unlock()
	defer c.recoverOp(ctx, "user response", &err)

	switch r.Action {
	case notify.ActionComplete:
		return c.completeLocked(ctx, r.TaskID)
	case notify.ActionReschedule:
		return c.rescheduleLocked(ctx, r.TaskID, r.IntervalIndex)
	case notify.ActionDismiss:
		task, err := c.store.GetTask(ctx, r.TaskID)
		if errors.Is(err, model.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reminder: load %s: %w", r.TaskID, err)
		}
		if !timer.Fire(&task.Timer) {
			return nil
		}
		timer.Consume(&task.Timer)
		return c.persist(ctx, "dismiss", &task)
	default:
		return fmt.Errorf("reminder: unknown action %q", r.Action)
	}
}

// Task returns the stored task.
func (c *Controller) Task(ctx context.Context, taskID string) (model.Task, error) {
	return c.store.GetTask(ctx, taskID)
}

// Admitted returns the owner's task holding the live notification, if any.
func (c *Controller) Admitted(ctx context.Context, ownerID string) (model.Task, bool, error) {
	tasks, err := c.pendingTasks(ctx, ownerID)
	if err != nil {
		return model.Task{}, false, err
	}
	for _, t := range tasks {
		if t.IsAdmitted() {
			return t, true, nil
		}
	}
	return model.Task{}, false, nil
}
