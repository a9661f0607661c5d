package reminder

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sandeepkv93/focusd/internal/model"
	"github.com/sandeepkv93/focusd/internal/timer"
)

const DefaultReconcileInterval = 30 * time.Second

// Reconciler repairs timers that ran out while nothing was watching, e.g.
// across a restart. Each pass prompts for at most one expired task.
type Reconciler struct {
	ctrl     *Controller
	interval time.Duration
	logger   *slog.Logger
}

func NewReconciler(ctrl *Controller, interval time.Duration, logger *slog.Logger) *Reconciler {
	if interval <= 0 {
		interval = DefaultReconcileInterval
	}
	if logger == nil {
		logger = ctrl.logger
	}
	return &Reconciler{ctrl: ctrl, interval: interval, logger: logger}
}

// ReconcileOnce expires stale Active tasks in rank order and re-runs
// admission. A timer whose expiry was already surfaced is expired without a
// new prompt; the first one that was not gets a recovery prompt and ends the
// scan. It returns the prompted task, if any.
func (r *Reconciler) ReconcileOnce(ctx context.Context, ownerID string) (out *model.Task, err error) {
	c := r.ctrl
	unlock, err := c.begin()
	if err != nil {
		return nil, err
	}
	defer unlock()
	defer c.recoverOp(ctx, "reconcile", &err)

	tasks, err := c.pendingTasks(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	now := c.now()
	for i := range tasks {
		task := tasks[i]
		if task.Timer.Phase != model.PhaseActive || !task.Timer.IsStale(now) {
			continue
		}
		surfaced := task.Timer.Latch == model.LatchConsumed
		if err := timer.Expire(&task.Timer, now); err != nil {
			r.logger.WarnContext(ctx, "expire stale timer failed", "task_id", task.ID, "error", err)
			continue
		}
		if err := c.persist(ctx, "expire", &task); err != nil {
			continue
		}
		c.cancel(ctx, task.ID)
		c.expired.Add(ctx, 1)
		r.logger.InfoContext(ctx, "stale timer expired", "task_id", task.ID, "surfaced", surfaced)
		if surfaced {
			continue
		}
		c.showReminder(ctx, ReminderPrompt{
			CurrentReminderTask: task.Clone(),
			ShowReminderModal:   true,
			Reason:              PromptRecovered,
		})
		out = &task
		break
	}

	if err := c.admitNextLocked(ctx, ownerID); err != nil {
		return out, err
	}
	return out, nil
}

// Run reconciles immediately and then on every tick until ctx is done.
func (r *Reconciler) Run(ctx context.Context, ownerID string) error {
	r.pass(ctx, ownerID)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !r.pass(ctx, ownerID) {
				return nil
			}
		}
	}
}

func (r *Reconciler) pass(ctx context.Context, ownerID string) bool {
	if _, err := r.ReconcileOnce(ctx, ownerID); err != nil {
		if errors.Is(err, ErrClosed) {
			return false
		}
		r.logger.ErrorContext(ctx, "reconcile pass failed", "owner_id", ownerID, "error", err)
	}
	return true
}
