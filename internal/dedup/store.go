// Package dedup suppresses duplicate notification side effects for a task
// within a short window. Markers carry their write time; expiry is decided
// by the reader.
package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"
)

const (
	DefaultWindow = 5000 * time.Millisecond
	keyPrefix     = "dedup:"
)

// KV is a durable string store without TTL support.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

type Store struct {
	kv     KV
	window time.Duration
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Store)

func WithWindow(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.window = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewStore(kv KV, opts ...Option) *Store {
	s := &Store{
		kv:     kv,
		window: DefaultWindow,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Window() time.Duration {
	return s.window
}

// WasRecentlySent reports whether a marker for taskID is younger than the
// window. Read failures count as "not sent".
func (s *Store) WasRecentlySent(ctx context.Context, taskID string) bool {
	key := keyPrefix + taskID
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		s.logger.WarnContext(ctx, "dedup marker read failed", "task_id", taskID, "error", err)
		return false
	}
	if !ok {
		return false
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		s.logger.WarnContext(ctx, "dedup marker corrupt", "task_id", taskID, "value", raw)
		_ = s.kv.Remove(ctx, key)
		return false
	}
	age := s.now().Sub(time.UnixMilli(ms))
	if age < s.window {
		return true
	}
	if err := s.kv.Remove(ctx, key); err != nil {
		s.logger.DebugContext(ctx, "dedup marker cleanup failed", "task_id", taskID, "error", err)
	}
	return false
}

func (s *Store) MarkSent(ctx context.Context, taskID string) error {
	value := strconv.FormatInt(s.now().UnixMilli(), 10)
	if err := s.kv.Set(ctx, keyPrefix+taskID, value); err != nil {
		return fmt.Errorf("dedup: mark %s: %w", taskID, err)
	}
	return nil
}

// Clear drops the marker so an explicit user intent is not suppressed.
func (s *Store) Clear(ctx context.Context, taskID string) error {
	if err := s.kv.Remove(ctx, keyPrefix+taskID); err != nil {
		return fmt.Errorf("dedup: clear %s: %w", taskID, err)
	}
	return nil
}

// MemoryKV is a process-local KV, mainly for tests and headless runs.
type MemoryKV struct {
	mu sync.Mutex
	m  map[string]string
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{m: make(map[string]string)}
}

func (kv *MemoryKV) Get(_ context.Context, key string) (string, bool, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	v, ok := kv.m[key]
	return v, ok, nil
}

func (kv *MemoryKV) Set(_ context.Context, key, value string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.m[key] = value
	return nil
}

func (kv *MemoryKV) Remove(_ context.Context, key string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	delete(kv.m, key)
	return nil
}
