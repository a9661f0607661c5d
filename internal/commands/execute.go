package commands

import (
	"context"
	"fmt"
)

type Result struct {
	Message string
}

type Handlers struct {
	Add    func(context.Context, AddArgs) (Result, error)
	Done   func(context.Context, DoneArgs) (Result, error)
	Snooze func(context.Context, SnoozeArgs) (Result, error)
	Edit   func(context.Context, EditArgs) (Result, error)
	Delete func(context.Context, DeleteArgs) (Result, error)
	Level  func(context.Context) (Result, error)
}

func missing(t Type) error {
	return &CommandError{Code: ErrCodeHandlerMissing, Message: fmt.Sprintf("%s handler not configured", t)}
}

func Execute(ctx context.Context, cmd Command, handlers Handlers) (Result, error) {
	switch cmd.Type {
	case TypeAdd:
		if handlers.Add == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Add(ctx, *cmd.Add)
	case TypeDone:
		if handlers.Done == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Done(ctx, *cmd.Done)
	case TypeSnooze:
		if handlers.Snooze == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Snooze(ctx, *cmd.Snooze)
	case TypeEdit:
		if handlers.Edit == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Edit(ctx, *cmd.Edit)
	case TypeDelete:
		if handlers.Delete == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Delete(ctx, *cmd.Delete)
	case TypeLevel:
		if handlers.Level == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Level(ctx)
	default:
		return Result{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unknown command type: %s", cmd.Type)}
	}
}
