package storage

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sandeepkv93/focusd/internal/model"
)

type TaskListFilter struct {
	OwnerID string
	Status  model.TaskStatus
	Limit   int
	Offset  int
}

func (f TaskListFilter) matches(t model.Task) bool {
	if f.OwnerID != "" && t.OwnerID != f.OwnerID {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	return true
}

func encodeIntervals(v []int) string {
	parts := make([]string, 0, len(v))
	for _, n := range v {
		parts = append(parts, strconv.Itoa(n))
	}
	return strings.Join(parts, ",")
}

func decodeIntervals(raw string) ([]int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("decode intervals %q: %w", raw, err)
		}
		out = append(out, n)
	}
	return out, nil
}
