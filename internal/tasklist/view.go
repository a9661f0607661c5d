// Package tasklist keeps the task list shown to the user. Repository
// snapshots are authoritative; local edits are shown as predictions until
// the next snapshot replaces them.
package tasklist

import (
	"slices"
	"strings"
	"sync"

	"github.com/sandeepkv93/focusd/internal/model"
	"github.com/sandeepkv93/focusd/internal/storage"
)

// Subscriber is satisfied by storage.Repository.
type Subscriber interface {
	Subscribe(filter storage.TaskListFilter, onChange func([]model.Task)) func()
}

type View struct {
	mu          sync.RWMutex
	snapshot    map[string]model.Task
	predictions map[string]model.Task
	revision    uint64
	onChange    func()
}

func New() *View {
	return &View{
		snapshot:    map[string]model.Task{},
		predictions: map[string]model.Task{},
	}
}

// OnChange registers a callback run after every Apply or Predict.
func (v *View) OnChange(fn func()) {
	v.mu.Lock()
	v.onChange = fn
	v.mu.Unlock()
}

// Bind feeds repository snapshots for filter into the view.
func (v *View) Bind(sub Subscriber, filter storage.TaskListFilter) func() {
	return sub.Subscribe(filter, v.Apply)
}

// Apply replaces the view with a snapshot and discards every prediction.
func (v *View) Apply(tasks []model.Task) {
	v.mu.Lock()
	v.snapshot = make(map[string]model.Task, len(tasks))
	for _, t := range tasks {
		v.snapshot[t.ID] = t.Clone()
	}
	clear(v.predictions)
	v.revision++
	fn := v.onChange
	v.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Predict overlays a locally mutated task until the next snapshot.
func (v *View) Predict(t model.Task) {
	v.mu.Lock()
	v.predictions[t.ID] = t.Clone()
	fn := v.onChange
	v.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (v *View) Revision() uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.revision
}

// Tasks returns visible tasks in admission order. Deleted tasks are hidden.
func (v *View) Tasks() []model.Task {
	v.mu.RLock()
	merged := make(map[string]model.Task, len(v.snapshot)+len(v.predictions))
	for id, t := range v.snapshot {
		merged[id] = t
	}
	for id, t := range v.predictions {
		merged[id] = t
	}
	v.mu.RUnlock()

	out := make([]model.Task, 0, len(merged))
	for _, t := range merged {
		if t.Status == model.TaskStatusDeleted {
			continue
		}
		out = append(out, t.Clone())
	}
	slices.SortFunc(out, func(a, b model.Task) int {
		if a.IsPending() != b.IsPending() {
			if a.IsPending() {
				return -1
			}
			return 1
		}
		switch {
		case model.Less(a, b):
			return -1
		case model.Less(b, a):
			return 1
		}
		return 0
	})
	return out
}

func (v *View) Pending() []model.Task {
	return slices.DeleteFunc(v.Tasks(), func(t model.Task) bool { return !t.IsPending() })
}

// Admitted returns the task holding the live notification, if any.
func (v *View) Admitted() (model.Task, bool) {
	for _, t := range v.Tasks() {
		if t.IsAdmitted() {
			return t, true
		}
	}
	return model.Task{}, false
}

// Find resolves a full id or a unique id prefix.
func (v *View) Find(ref string) (model.Task, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return model.Task{}, false
	}
	var found []model.Task
	for _, t := range v.Tasks() {
		if t.ID == ref {
			return t, true
		}
		if strings.HasPrefix(t.ID, ref) {
			found = append(found, t)
		}
	}
	if len(found) != 1 {
		return model.Task{}, false
	}
	return found[0], true
}
