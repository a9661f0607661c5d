package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sandeepkv93/focusd/internal/scheduler"
)

// LocalPort delivers notifications from an in-process scheduler engine.
type LocalPort struct {
	engine    *scheduler.Engine
	notifier  DesktopNotifier
	delivered *hub[Delivered]
	responses *hub[UserResponse]
	now       func() time.Time
	unit      time.Duration
	logger    *slog.Logger

	mu   sync.Mutex
	live map[string]string // task id -> notification id
}

type LocalOption func(*LocalPort)

func WithNotifier(n DesktopNotifier) LocalOption {
	return func(p *LocalPort) {
		if n != nil {
			p.notifier = n
		}
	}
}

func WithClock(now func() time.Time) LocalOption {
	return func(p *LocalPort) {
		if now != nil {
			p.now = now
		}
	}
}

// WithMinute scales delayMinutes; tests use a millisecond "minute".
func WithMinute(unit time.Duration) LocalOption {
	return func(p *LocalPort) {
		if unit > 0 {
			p.unit = unit
		}
	}
}

func WithLogger(l *slog.Logger) LocalOption {
	return func(p *LocalPort) {
		if l != nil {
			p.logger = l
		}
	}
}

func NewLocalPort(engine *scheduler.Engine, opts ...LocalOption) *LocalPort {
	p := &LocalPort{
		engine:   engine,
		notifier: NoopDesktopNotifier{},
		now:      time.Now,
		unit:     time.Minute,
		logger:   slog.Default(),
		live:     make(map[string]string),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.delivered = newHub[Delivered](p.logger)
	p.responses = newHub[UserResponse](p.logger)
	return p
}

func (p *LocalPort) Schedule(ctx context.Context, taskID string, payload Payload, delayMinutes int) (string, error) {
	if taskID == "" {
		return "", ErrMissingTaskID
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := uuid.NewString()
	err := p.engine.Schedule(scheduler.Delivery{
		NotificationID: id,
		TaskID:         taskID,
		Title:          payload.Title,
		Body:           payload.Body,
		TriggerAt:      p.now().Add(time.Duration(delayMinutes) * p.unit),
	})
	if err != nil {
		return "", fmt.Errorf("notify: schedule %s: %w", taskID, err)
	}
	p.mu.Lock()
	p.live[taskID] = id
	p.mu.Unlock()
	return id, nil
}

func (p *LocalPort) Cancel(_ context.Context, taskID string) error {
	p.engine.Cancel(taskID)
	p.mu.Lock()
	delete(p.live, taskID)
	p.mu.Unlock()
	return nil
}

func (p *LocalPort) SubscribeDelivered(handler func(Delivered)) Subscription {
	return p.delivered.subscribe(handler)
}

func (p *LocalPort) SubscribeUserResponse(handler func(UserResponse)) Subscription {
	return p.responses.subscribe(handler)
}

// Respond injects a user's action on a notification, e.g. from the UI.
func (p *LocalPort) Respond(resp UserResponse) {
	if resp.NotificationID == "" {
		p.mu.Lock()
		resp.NotificationID = p.live[resp.TaskID]
		p.mu.Unlock()
	}
	p.responses.publish(resp)
}

// Run forwards engine deliveries to the desktop and to subscribers until
// ctx ends or the engine stops.
func (p *LocalPort) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-p.engine.C():
			if !ok {
				return nil
			}
			p.mu.Lock()
			if p.live[d.TaskID] == d.NotificationID {
				delete(p.live, d.TaskID)
			}
			p.mu.Unlock()

			if err := p.notifier.Send(d.Title, d.Body); err != nil {
				p.logger.WarnContext(ctx, "desktop notification failed", "task_id", d.TaskID, "error", err)
			}
			p.delivered.publish(Delivered{NotificationID: d.NotificationID, TaskID: d.TaskID, At: p.now()})
		}
	}
}
