package storage

import (
	"context"
	"sync"

	"github.com/sandeepkv93/focusd/internal/model"
)

// subscription re-queries its filter whenever it is marked dirty. Signals
// coalesce, so a burst of writes produces one snapshot.
type subscription struct {
	filter   TaskListFilter
	onChange func([]model.Task)
	dirty    chan struct{}
	stop     chan struct{}
	once     sync.Once

	mu   sync.Mutex
	// ids in the last delivered snapshot, so a task leaving the filter
	// still triggers a refresh.
	seen map[string]struct{}
}

func (s *subscription) wants(t model.Task) bool {
	if s.filter.matches(t) {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[t.ID]
	return ok
}

func (s *subscription) remember(tasks []model.Task) {
	seen := make(map[string]struct{}, len(tasks))
	for _, t := range tasks {
		seen[t.ID] = struct{}{}
	}
	s.mu.Lock()
	s.seen = seen
	s.mu.Unlock()
}

func (s *subscription) signal() {
	select {
	case s.dirty <- struct{}{}:
	default:
	}
}

func (s *subscription) close() {
	s.once.Do(func() { close(s.stop) })
}

// Subscribe calls onChange with a fresh snapshot now and after every
// change to a task matching filter. The returned func unsubscribes.
func (r *SQLiteRepository) Subscribe(filter TaskListFilter, onChange func([]model.Task)) func() {
	s := &subscription{
		filter:   filter,
		onChange: onChange,
		dirty:    make(chan struct{}, 1),
		stop:     make(chan struct{}),
	}
	r.subsMu.Lock()
	id := r.nextID
	r.nextID++
	r.subs[id] = s
	r.subsMu.Unlock()

	go r.runSubscription(s)
	s.signal()

	return func() {
		r.subsMu.Lock()
		delete(r.subs, id)
		r.subsMu.Unlock()
		s.close()
	}
}

// NotifyExternalChange refreshes every subscription, e.g. after another
// process wrote to the database.
func (r *SQLiteRepository) NotifyExternalChange() {
	r.subsMu.Lock()
	defer r.subsMu.Unlock()
	for _, s := range r.subs {
		s.signal()
	}
}

// changed refreshes the subscriptions that show t now or showed it last.
func (r *SQLiteRepository) changed(t model.Task) {
	r.subsMu.Lock()
	defer r.subsMu.Unlock()
	for _, s := range r.subs {
		if s.wants(t) {
			s.signal()
		}
	}
}

func (r *SQLiteRepository) runSubscription(s *subscription) {
	for {
		select {
		case <-s.stop:
			return
		case <-s.dirty:
		}
		tasks, err := r.ListTasks(context.Background(), s.filter)
		if err != nil {
			r.logger.Warn("subscription refresh failed", "owner_id", s.filter.OwnerID, "error", err)
			continue
		}
		select {
		case <-s.stop:
			return
		default:
		}
		s.remember(tasks)
		s.onChange(tasks)
	}
}
