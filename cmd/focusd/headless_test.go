package main

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandeepkv93/focusd/internal/model"
	"github.com/sandeepkv93/focusd/internal/reminder"
	"github.com/sandeepkv93/focusd/internal/tasklist"
)

type signalRecorder struct {
	mu  sync.Mutex
	ids []string
}

func (r *signalRecorder) HandleExpirySignal(_ context.Context, id string) error {
	r.mu.Lock()
	r.ids = append(r.ids, id)
	r.mu.Unlock()
	return nil
}

func (r *signalRecorder) signalled() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ids...)
}

func admittedTask(id string, start time.Time, latch model.Latch) model.Task {
	return model.Task{
		ID: id, OwnerID: "me", Title: id, Priority: model.PriorityHigh, AllowedIntervals: []int{1},
		Status: model.TaskStatusPending, CreatedAt: start,
		Timer: model.TimerState{
			Phase: model.PhaseActive, StartTime: start, DurationMinutes: 1,
			NotificationID: "n-" + id, Latch: latch,
		},
	}
}

func TestHeadlessSignalsExpiredCountdown(t *testing.T) {
	view := tasklist.New()
	view.Apply([]model.Task{admittedTask("a", time.Now().Add(-2*time.Minute), model.LatchPending)})
	rec := &signalRecorder{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- runHeadless(ctx, headlessDeps{
			ctrl:   rec,
			view:   view,
			events: make(chan reminder.UIEvent),
			logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
			tick:   10 * time.Millisecond,
		})
	}()

	require.Eventually(t, func() bool { return len(rec.signalled()) == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"a"}, rec.signalled())

	cancel()
	require.NoError(t, <-done)
}

func TestHeadlessSkipsSurfacedExpiry(t *testing.T) {
	view := tasklist.New()
	view.Apply([]model.Task{admittedTask("a", time.Now().Add(-2*time.Minute), model.LatchConsumed)})
	rec := &signalRecorder{}
	events := make(chan reminder.UIEvent, 1)
	events <- reminder.UIEvent{Prompt: &reminder.ReminderPrompt{CurrentReminderTask: admittedTask("a", time.Now(), model.LatchConsumed)}}
	close(events)

	err := runHeadless(context.Background(), headlessDeps{
		ctrl:   rec,
		view:   view,
		events: events,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		tick:   10 * time.Millisecond,
	})
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, rec.signalled())
}
