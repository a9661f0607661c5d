package reminder

import (
	"errors"
	"fmt"
)

var (
	ErrMissingTaskID = errors.New("reminder: task id is required")
	ErrClosed        = errors.New("reminder: controller closed")
)

// SchedulingError reports a failed Notification Port call. The task stays
// Scheduled without a live notification until the next admission pass.
type SchedulingError struct {
	TaskID string
	Err    error
}

func (e *SchedulingError) Error() string {
	return fmt.Sprintf("reminder: schedule notification for %s: %v", e.TaskID, e.Err)
}

func (e *SchedulingError) Unwrap() error {
	return e.Err
}

// PersistenceError reports a failed store write. The in-memory view may
// diverge from storage until the next successful write.
type PersistenceError struct {
	TaskID string
	Op     string
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("reminder: %s %s: %v", e.Op, e.TaskID, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
