package storage

import (
	"context"
	"fmt"

	"github.com/sandeepkv93/focusd/internal/model"
)

// ErrNotFound matches model.ErrNotFound under errors.Is.
var ErrNotFound = fmt.Errorf("storage: %w", model.ErrNotFound)

// Repository is the document store behind the reminder engine.
type Repository interface {
	CreateTask(ctx context.Context, in model.Task) error
	GetTask(ctx context.Context, id string) (model.Task, error)
	UpdateTask(ctx context.Context, in model.Task) error
	DeleteTask(ctx context.Context, id string) error
	ListTasks(ctx context.Context, filter TaskListFilter) ([]model.Task, error)
	Subscribe(filter TaskListFilter, onChange func([]model.Task)) func()

	GetProfile(ctx context.Context, ownerID string) (model.LevelProfile, error)
	SaveProfile(ctx context.Context, in model.LevelProfile) error

	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}
