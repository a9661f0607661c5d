package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/sandeepkv93/focusd/internal/model"
	"github.com/sandeepkv93/focusd/internal/reminder"
	"github.com/sandeepkv93/focusd/internal/tasklist"
	"github.com/sandeepkv93/focusd/internal/timer"
)

type expirySignaler interface {
	HandleExpirySignal(ctx context.Context, taskID string) error
}

type headlessDeps struct {
	ctrl   expirySignaler
	view   *tasklist.View
	events <-chan reminder.UIEvent
	logger *slog.Logger
	tick   time.Duration
}

// runHeadless logs reminder prompts and level changes, and follows the
// admitted task's countdown so expiry is signalled without a UI.
func runHeadless(ctx context.Context, d headlessDeps) error {
	changes := make(chan struct{}, 1)
	d.view.OnChange(func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	})
	changes <- struct{}{}

	stopWatch := func() {}
	defer func() { stopWatch() }()
	watching := ""
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-d.events:
			if !ok {
				return nil
			}
			logUIEvent(ctx, d.logger, ev)
		case <-changes:
			admitted, ok := d.view.Admitted()
			if !ok {
				stopWatch()
				watching = ""
				continue
			}
			if admitted.Timer.NotificationID == watching {
				continue
			}
			stopWatch()
			watching = admitted.Timer.NotificationID
			var wctx context.Context
			wctx, stopWatch = context.WithCancel(ctx)
			go followCountdown(wctx, d, admitted)
		}
	}
}

func followCountdown(ctx context.Context, d headlessDeps, task model.Task) {
	d.logger.InfoContext(ctx, "countdown started", "task_id", task.ID, "title", task.Title,
		"minutes", task.Timer.DurationMinutes)
	for sample := range timer.Countdown(ctx, task.Timer, time.Now, d.tick) {
		if !sample.Done {
			continue
		}
		if task.Timer.Latch != model.LatchPending {
			return
		}
		if err := d.ctrl.HandleExpirySignal(ctx, task.ID); err != nil {
			d.logger.WarnContext(ctx, "expiry signal failed", "task_id", task.ID, "error", err)
		}
		return
	}
}

func logUIEvent(ctx context.Context, logger *slog.Logger, ev reminder.UIEvent) {
	if p := ev.Prompt; p != nil {
		t := p.CurrentReminderTask
		logger.InfoContext(ctx, "reminder", "task_id", t.ID, "title", t.Title,
			"priority", t.Priority, "reason", p.Reason, "intervals", t.AllowedIntervals)
	}
	if l := ev.Level; l != nil {
		logger.InfoContext(ctx, "xp earned", "owner_id", l.OwnerID, "earned", l.Earned,
			"level", l.LevelData.Level, "leveled_up", l.LeveledUp)
	}
}
