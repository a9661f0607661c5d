package tasklist

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandeepkv93/focusd/internal/model"
	"github.com/sandeepkv93/focusd/internal/storage"
)

var base = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func task(id string, p model.Priority, offset time.Duration) model.Task {
	return model.Task{
		ID: id, OwnerID: "o", Title: id, Priority: p,
		AllowedIntervals: []int{5}, Status: model.TaskStatusPending,
		Timer: model.TimerState{Phase: model.PhaseIdle}, CreatedAt: base.Add(offset),
	}
}

func ids(tasks []model.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}

func TestTasksOrderedByAdmissionRank(t *testing.T) {
	v := New()
	done := task("done", model.PriorityUrgent, 0)
	done.Status = model.TaskStatusCompleted
	gone := task("gone", model.PriorityUrgent, 0)
	gone.Status = model.TaskStatusDeleted

	v.Apply([]model.Task{
		task("low", model.PriorityLowest, 0),
		task("high-late", model.PriorityHigh, 2*time.Minute),
		task("high-early", model.PriorityHigh, time.Minute),
		done, gone,
	})

	assert.Equal(t, []string{"high-early", "high-late", "low", "done"}, ids(v.Tasks()))
	assert.Equal(t, []string{"high-early", "high-late", "low"}, ids(v.Pending()))
}

func TestPredictionIsOverwrittenBySnapshot(t *testing.T) {
	v := New()
	a := task("a", model.PriorityLowest, 0)
	v.Apply([]model.Task{a})

	predicted := a
	predicted.Status = model.TaskStatusCompleted
	v.Predict(predicted)
	v.Predict(task("new", model.PriorityHigh, time.Minute))
	assert.Equal(t, []string{"new"}, ids(v.Pending()))

	// The store rejected both writes: the snapshot wins.
	v.Apply([]model.Task{a})
	assert.Equal(t, []string{"a"}, ids(v.Pending()))
	assert.Equal(t, uint64(2), v.Revision())
}

func TestSnapshotIsCopied(t *testing.T) {
	v := New()
	in := []model.Task{task("a", model.PriorityHigh, 0)}
	v.Apply(in)
	in[0].AllowedIntervals[0] = 30

	assert.Equal(t, []int{5}, v.Tasks()[0].AllowedIntervals)
}

func TestFindByPrefix(t *testing.T) {
	v := New()
	v.Apply([]model.Task{
		task("abc123", model.PriorityHigh, 0),
		task("abd456", model.PriorityHigh, time.Minute),
	})

	got, ok := v.Find("abc")
	require.True(t, ok)
	assert.Equal(t, "abc123", got.ID)

	_, ok = v.Find("ab")
	assert.False(t, ok, "ambiguous prefix")
	_, ok = v.Find("zzz")
	assert.False(t, ok)
	_, ok = v.Find("")
	assert.False(t, ok)
}

func TestAdmitted(t *testing.T) {
	v := New()
	live := task("live", model.PriorityLowest, 0)
	live.Timer = model.TimerState{Phase: model.PhaseActive, StartTime: base, DurationMinutes: 5, NotificationID: "n1"}
	v.Apply([]model.Task{task("idle", model.PriorityUrgent, 0), live})

	got, ok := v.Admitted()
	require.True(t, ok)
	assert.Equal(t, "live", got.ID)
}

type stubSubscriber struct {
	filter storage.TaskListFilter
	push   func([]model.Task)
	undone bool
}

func (s *stubSubscriber) Subscribe(f storage.TaskListFilter, fn func([]model.Task)) func() {
	s.filter = f
	s.push = fn
	return func() { s.undone = true }
}

func TestBindAndOnChange(t *testing.T) {
	v := New()
	var mu sync.Mutex
	calls := 0
	v.OnChange(func() {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	sub := &stubSubscriber{}
	stop := v.Bind(sub, storage.TaskListFilter{OwnerID: "o"})
	assert.Equal(t, "o", sub.filter.OwnerID)

	sub.push([]model.Task{task("a", model.PriorityHigh, 0)})
	assert.Len(t, v.Tasks(), 1)
	stop()
	assert.True(t, sub.undone)
	assert.Equal(t, 1, calls)
}
