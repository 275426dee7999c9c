// Package task tracks the lifecycle of background lead insertion runs so
// callers can poll their progress.
package task

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/model"
)

// Messages written by the registry itself.
const (
	MsgSubmitted = "Task submitted"
	MsgNotFound  = "Task not found"
)

var (
	// ErrNotFound is returned by Update for ids the registry does not hold.
	ErrNotFound = eris.New("task not found")
	// ErrTerminal is returned by Update once a task is completed or failed.
	ErrTerminal = eris.New("task already finished")
	// ErrInvalidStatus is returned by Update for statuses outside the lifecycle.
	ErrInvalidStatus = eris.New("invalid task status")
)

// Registry stores task state. Implementations must be safe for concurrent use.
type Registry interface {
	// Submit creates a pending task, replacing any previous task with that id.
	Submit(ctx context.Context, id string) (model.Task, error)
	// Update sets the message and status of an existing, non-terminal task.
	Update(ctx context.Context, id, message string, status model.TaskStatus) (model.Task, error)
	// Status returns the task, or an unknown-status placeholder if absent.
	Status(ctx context.Context, id string) (model.Task, error)
	// Remove deletes the task and reports whether it existed.
	Remove(ctx context.Context, id string) (bool, error)
}

// Unknown returns the placeholder reported for ids the registry does not hold.
func Unknown(id string) model.Task {
	return model.Task{ID: id, Message: MsgNotFound, Status: model.TaskUnknown}
}

func checkTransition(id string, current model.Task, next model.TaskStatus) error {
	if !next.Valid() {
		return eris.Wrapf(ErrInvalidStatus, "task %s: %q", id, next)
	}
	if current.Status.Terminal() {
		return eris.Wrapf(ErrTerminal, "task %s is %s", id, current.Status)
	}
	return nil
}
