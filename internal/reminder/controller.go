// Package reminder runs the single-admission reminder engine. At most one
// Pending task per owner holds a live device notification; the controller
// decides which one, keeps its timer in sync with the notification port and
// cascades completions to the next task in rank order.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/sandeepkv93/focusd/internal/leveling"
	"github.com/sandeepkv93/focusd/internal/model"
	"github.com/sandeepkv93/focusd/internal/notify"
	"github.com/sandeepkv93/focusd/internal/storage"
)

// Store is the subset of the task repository the controller needs.
type Store interface {
	CreateTask(ctx context.Context, in model.Task) error
	GetTask(ctx context.Context, id string) (model.Task, error)
	UpdateTask(ctx context.Context, in model.Task) error
	ListTasks(ctx context.Context, filter storage.TaskListFilter) ([]model.Task, error)
}

// Deduper suppresses repeat scheduling of the same task.
type Deduper interface {
	WasRecentlySent(ctx context.Context, taskID string) bool
	MarkSent(ctx context.Context, taskID string) error
	Clear(ctx context.Context, taskID string) error
}

// Leveler credits experience for completed tasks.
type Leveler interface {
	Credit(ctx context.Context, task model.Task) (leveling.Award, error)
}

type Outcome int

const (
	OutcomeScheduled Outcome = iota
	OutcomeSkipped
)

func (o Outcome) String() string {
	if o == OutcomeSkipped {
		return "skipped"
	}
	return "scheduled"
}

const defaultEventBuffer = 64

type event struct {
	delivered *notify.Delivered
	response  *notify.UserResponse
}

type Controller struct {
	mu     sync.Mutex
	closed atomic.Bool

	store   Store
	port    notify.Port
	dedup   Deduper
	leveler Leveler
	sink    Sink
	logger  *slog.Logger
	now     func() time.Time

	events chan event
	subs   []notify.Subscription

	scheduled metric.Int64Counter
	skipped   metric.Int64Counter
	failed    metric.Int64Counter
	expired   metric.Int64Counter
}

type Option func(*Controller)

func WithSink(s Sink) Option {
	return func(c *Controller) {
		if s != nil {
			c.sink = s
		}
	}
}

func WithLeveler(l Leveler) Option {
	return func(c *Controller) {
		c.leveler = l
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

func WithEventBuffer(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.events = make(chan event, n)
		}
	}
}

// NewController wires the engine to its collaborators and subscribes to the
// port. Port callbacks only enqueue; Run applies them.
func NewController(store Store, port notify.Port, dedup Deduper, opts ...Option) *Controller {
	c := &Controller{
		store:  store,
		port:   port,
		dedup:  dedup,
		sink:   NopSink{},
		logger: slog.Default(),
		now:    time.Now,
		events: make(chan event, defaultEventBuffer),
	}
	for _, opt := range opts {
		opt(c)
	}

	meter := otel.Meter("github.com/sandeepkv93/focusd/reminder")
	c.scheduled, _ = meter.Int64Counter("focusd.notifications.scheduled",
		metric.WithDescription("Notifications handed to the port"))
	c.skipped, _ = meter.Int64Counter("focusd.notifications.skipped",
		metric.WithDescription("Schedule requests suppressed by the dedup window"))
	c.failed, _ = meter.Int64Counter("focusd.notifications.failed",
		metric.WithDescription("Schedule requests rejected by the port"))
	c.expired, _ = meter.Int64Counter("focusd.reconciler.expired",
		metric.WithDescription("Stale timers expired by the recovery reconciler"))

	c.subs = append(c.subs,
		port.SubscribeDelivered(func(d notify.Delivered) {
			c.enqueue(event{delivered: &d})
		}),
		port.SubscribeUserResponse(func(r notify.UserResponse) {
			c.enqueue(event{response: &r})
		}),
	)
	return c
}

func (c *Controller) enqueue(ev event) {
	if c.closed.Load() {
		return
	}
	select {
	case c.events <- ev:
	default:
		c.logger.Warn("reminder event dropped: queue full")
	}
}

// Run applies queued port events until ctx is cancelled or the controller
// is closed.
func (c *Controller) Run(ctx context.Context) error {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-c.events:
			c.dispatch(ctx, ev)
		case <-ticker.C:
			if c.closed.Load() {
				return nil
			}
		}
	}
}

func (c *Controller) dispatch(ctx context.Context, ev event) {
	var err error
	switch {
	case ev.delivered != nil:
		err = c.HandleDelivered(ctx, *ev.delivered)
	case ev.response != nil:
		err = c.HandleUserResponse(ctx, *ev.response)
	}
	if err != nil {
		c.logger.ErrorContext(ctx, "reminder event failed", "error", err)
	}
}

// Close stops accepting work and releases the port subscriptions.
// Operations already holding the lock finish; later ones return ErrClosed.
func (c *Controller) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	for _, s := range c.subs {
		s.Unsubscribe()
	}
	return nil
}

// begin takes the controller lock after checking liveness.
func (c *Controller) begin() (func(), error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	c.mu.Lock()
	if c.closed.Load() {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	return c.mu.Unlock, nil
}

func (c *Controller) recoverOp(ctx context.Context, op string, err *error) {
	if r := recover(); r != nil {
		c.logger.ErrorContext(ctx, "reminder operation panicked", "op", op, "panic", r)
		*err = fmt.Errorf("reminder: %s panicked: %v", op, r)
	}
}

// persist stamps and writes a task. Failures are logged and returned as
// *PersistenceError; the caller's copy stays authoritative for this call.
// Nothing is written once the controller is closed.
func (c *Controller) persist(ctx context.Context, op string, task *model.Task) error {
	if c.closed.Load() {
		return ErrClosed
	}
	task.UpdatedAt = c.now()
	if err := c.store.UpdateTask(ctx, *task); err != nil {
		c.logger.ErrorContext(ctx, "persist task failed", "op", op, "task_id", task.ID, "error", err)
		return &PersistenceError{TaskID: task.ID, Op: op, Err: err}
	}
	return nil
}

func (c *Controller) showReminder(ctx context.Context, p ReminderPrompt) {
	if c.closed.Load() {
		return
	}
	c.sink.ShowReminder(ctx, p)
}

func (c *Controller) showLevel(ctx context.Context, u LevelUpdate) {
	if c.closed.Load() {
		return
	}
	c.sink.ShowLevel(ctx, u)
}

func (c *Controller) cancel(ctx context.Context, taskID string) {
	if err := c.port.Cancel(ctx, taskID); err != nil {
		c.logger.WarnContext(ctx, "cancel notification failed", "task_id", taskID, "error", err)
	}
}

func (c *Controller) markSent(ctx context.Context, taskID string) {
	if c.closed.Load() {
		return
	}
	if err := c.dedup.MarkSent(ctx, taskID); err != nil {
		c.logger.WarnContext(ctx, "dedup mark failed", "task_id", taskID, "error", err)
	}
}

func (c *Controller) clearSent(ctx context.Context, taskID string) {
	if err := c.dedup.Clear(ctx, taskID); err != nil {
		c.logger.WarnContext(ctx, "dedup clear failed", "task_id", taskID, "error", err)
	}
}

func payloadFor(task model.Task) notify.Payload {
	return notify.Payload{
		Title: task.Title,
		Body:  fmt.Sprintf("%s priority, %d minute reminder", task.Priority, task.Timer.DurationMinutes),
	}
}
