package reminder

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sandeepkv93/focusd/internal/dedup"
	"github.com/sandeepkv93/focusd/internal/leveling"
	"github.com/sandeepkv93/focusd/internal/model"
	"github.com/sandeepkv93/focusd/internal/notify"
	"github.com/sandeepkv93/focusd/internal/storage"
)

const owner = "owner-1"

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type memStore struct {
	mu    sync.Mutex
	tasks map[string]model.Task
	// failUpdate makes UpdateTask fail for the listed ids.
	failUpdate map[string]bool
}

func newMemStore() *memStore {
	return &memStore{tasks: map[string]model.Task{}, failUpdate: map[string]bool{}}
}

func (s *memStore) CreateTask(_ context.Context, in model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[in.ID]; ok {
		return errors.New("duplicate id")
	}
	s.tasks[in.ID] = in.Clone()
	return nil
}

func (s *memStore) GetTask(_ context.Context, id string) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return model.Task{}, storage.ErrNotFound
	}
	return t.Clone(), nil
}

func (s *memStore) UpdateTask(_ context.Context, in model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUpdate[in.ID] {
		return errors.New("disk full")
	}
	if _, ok := s.tasks[in.ID]; !ok {
		return storage.ErrNotFound
	}
	s.tasks[in.ID] = in.Clone()
	return nil
}

func (s *memStore) ListTasks(_ context.Context, f storage.TaskListFilter) ([]model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if f.OwnerID != "" && t.OwnerID != f.OwnerID {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		out = append(out, t.Clone())
	}
	slices.SortFunc(out, func(a, b model.Task) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

func (s *memStore) put(t model.Task) {
	s.mu.Lock()
	s.tasks[t.ID] = t.Clone()
	s.mu.Unlock()
}

type scheduleCall struct {
	TaskID  string
	Minutes int
}

type fakePort struct {
	mu        sync.Mutex
	seq       int
	schedules []scheduleCall
	cancels   []string
	failWith  error

	// onSchedule runs before Schedule records anything.
	onSchedule func()

	delivered []func(notify.Delivered)
	responses []func(notify.UserResponse)
}

type funcSub func()

func (f funcSub) Unsubscribe() { f() }

func (p *fakePort) Schedule(_ context.Context, taskID string, _ notify.Payload, minutes int) (string, error) {
	if p.onSchedule != nil {
		p.onSchedule()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failWith != nil {
		return "", p.failWith
	}
	p.seq++
	p.schedules = append(p.schedules, scheduleCall{TaskID: taskID, Minutes: minutes})
	return fmt.Sprintf("n-%d", p.seq), nil
}

func (p *fakePort) Cancel(_ context.Context, taskID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancels = append(p.cancels, taskID)
	return nil
}

func (p *fakePort) SubscribeDelivered(h func(notify.Delivered)) notify.Subscription {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.delivered = append(p.delivered, h)
	return funcSub(func() {
		p.mu.Lock()
		p.delivered = nil
		p.mu.Unlock()
	})
}

func (p *fakePort) SubscribeUserResponse(h func(notify.UserResponse)) notify.Subscription {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responses = append(p.responses, h)
	return funcSub(func() {
		p.mu.Lock()
		p.responses = nil
		p.mu.Unlock()
	})
}

func (p *fakePort) deliver(d notify.Delivered) {
	p.mu.Lock()
	hs := slices.Clone(p.delivered)
	p.mu.Unlock()
	for _, h := range hs {
		h(d)
	}
}

func (p *fakePort) respond(r notify.UserResponse) {
	p.mu.Lock()
	hs := slices.Clone(p.responses)
	p.mu.Unlock()
	for _, h := range hs {
		h(r)
	}
}

func (p *fakePort) scheduleCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.schedules)
}

func (p *fakePort) cancelCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.cancels)
}

func (p *fakePort) lastSchedule() scheduleCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.schedules[len(p.schedules)-1]
}

type recordingSink struct {
	mu      sync.Mutex
	prompts []ReminderPrompt
	levels  []LevelUpdate
}

func (s *recordingSink) ShowReminder(_ context.Context, p ReminderPrompt) {
	s.mu.Lock()
	s.prompts = append(s.prompts, p)
	s.mu.Unlock()
}

func (s *recordingSink) ShowLevel(_ context.Context, u LevelUpdate) {
	s.mu.Lock()
	s.levels = append(s.levels, u)
	s.mu.Unlock()
}

func (s *recordingSink) promptCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

type memProfiles struct {
	mu sync.Mutex
	m  map[string]model.LevelProfile
}

func (m *memProfiles) GetProfile(_ context.Context, ownerID string) (model.LevelProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.m[ownerID]
	if !ok {
		return model.LevelProfile{}, model.ErrNotFound
	}
	return p, nil
}

func (m *memProfiles) SaveProfile(_ context.Context, p model.LevelProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.m[p.OwnerID] = p
	return nil
}

type harness struct {
	ctrl  *Controller
	store *memStore
	port  *fakePort
	sink  *recordingSink
	clock *fakeClock
	dedup *dedup.Store
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	store := newMemStore()
	port := &fakePort{}
	sink := &recordingSink{}
	dd := dedup.NewStore(dedup.NewMemoryKV(), dedup.WithClock(clock.Now))
	levels := leveling.NewService(&memProfiles{m: map[string]model.LevelProfile{}}, clock.Now)
	ctrl := NewController(store, port, dd,
		WithSink(sink),
		WithLeveler(levels),
		WithClock(clock.Now),
	)
	t.Cleanup(func() { _ = ctrl.Close() })
	return &harness{ctrl: ctrl, store: store, port: port, sink: sink, clock: clock, dedup: dd}
}

// create adds a task through the controller, advancing the clock so
// creation order is unambiguous.
func (h *harness) create(t *testing.T, title string, p model.Priority, intervals ...int) model.Task {
	t.Helper()
	if len(intervals) == 0 {
		intervals = []int{5}
	}
	h.clock.Advance(time.Second)
	task, err := h.ctrl.CreateTask(context.Background(), NewTask{
		OwnerID:          owner,
		Title:            title,
		Priority:         p,
		AllowedIntervals: intervals,
	})
	require.NoError(t, err)
	return task
}

func (h *harness) get(t *testing.T, id string) model.Task {
	t.Helper()
	task, err := h.store.GetTask(context.Background(), id)
	require.NoError(t, err)
	return task
}

func (h *harness) admitted(t *testing.T) []model.Task {
	t.Helper()
	tasks, err := h.store.ListTasks(context.Background(), storage.TaskListFilter{OwnerID: owner})
	require.NoError(t, err)
	return slices.DeleteFunc(tasks, func(t model.Task) bool { return !t.IsAdmitted() })
}

// seedIdle stores a Pending task that has never been scheduled.
func (h *harness) seedIdle(id string, p model.Priority, minutes int) model.Task {
	task := model.Task{
		ID:               id,
		OwnerID:          owner,
		Title:            id,
		Priority:         p,
		AllowedIntervals: []int{minutes},
		Status:           model.TaskStatusPending,
		Timer:            model.TimerState{Phase: model.PhaseIdle},
		CreatedAt:        h.clock.Now(),
		UpdatedAt:        h.clock.Now(),
	}
	h.store.put(task)
	return task
}

// seedActive stores a Pending task whose countdown started at start.
func (h *harness) seedActive(id string, p model.Priority, start time.Time, minutes int) model.Task {
	task := model.Task{
		ID:               id,
		OwnerID:          owner,
		Title:            id,
		Priority:         p,
		AllowedIntervals: []int{minutes},
		Status:           model.TaskStatusPending,
		Timer: model.TimerState{
			Phase:           model.PhaseActive,
			StartTime:       start,
			DurationMinutes: minutes,
			NotificationID:  "stale-" + id,
			Latch:           model.LatchPending,
		},
		CreatedAt: start,
		UpdatedAt: start,
	}
	h.store.put(task)
	return task
}
