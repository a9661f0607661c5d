// Package notify defines the notification capability used by the reminder
// engine and a local implementation driven by the scheduler engine.
package notify

import (
	"context"
	"errors"
	"time"
)

var ErrMissingTaskID = errors.New("notify: task id is required")

type Payload struct {
	Title string
	Body  string
}

type Delivered struct {
	NotificationID string
	TaskID         string
	At             time.Time
}

type Action string

const (
	ActionComplete   Action = "complete"
	ActionReschedule Action = "reschedule"
	ActionDismiss    Action = "dismiss"
)

type UserResponse struct {
	NotificationID string
	TaskID         string
	Action         Action
	// IntervalIndex selects the new duration for ActionReschedule.
	IntervalIndex int
}

type Subscription interface {
	Unsubscribe()
}

// Port schedules and cancels device notifications. Cancel must be
// idempotent: cancelling an unknown task is not an error.
type Port interface {
	Schedule(ctx context.Context, taskID string, payload Payload, delayMinutes int) (string, error)
	Cancel(ctx context.Context, taskID string) error
	SubscribeDelivered(handler func(Delivered)) Subscription
	SubscribeUserResponse(handler func(UserResponse)) Subscription
}
