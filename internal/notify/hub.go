package notify

import (
	"log/slog"
	"sync"
)

type hub[T any] struct {
	mu       sync.RWMutex
	next     int
	handlers map[int]func(T)
	logger   *slog.Logger
}

func newHub[T any](logger *slog.Logger) *hub[T] {
	return &hub[T]{handlers: make(map[int]func(T)), logger: logger}
}

func (h *hub[T]) subscribe(fn func(T)) Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.next
	h.next++
	h.handlers[id] = fn
	return &subscription{cancel: func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.handlers, id)
	}}
}

func (h *hub[T]) publish(v T) {
	h.mu.RLock()
	fns := make([]func(T), 0, len(h.handlers))
	for _, fn := range h.handlers {
		fns = append(fns, fn)
	}
	h.mu.RUnlock()

	for _, fn := range fns {
		func() {
			defer func() {
				if r := recover(); r != nil {
					h.logger.Error("notification subscriber panicked", "panic", r)
				}
			}()
			fn(v)
		}()
	}
}

func (h *hub[T]) len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.handlers)
}

type subscription struct {
	once   sync.Once
	cancel func()
}

func (s *subscription) Unsubscribe() {
	s.once.Do(s.cancel)
}
