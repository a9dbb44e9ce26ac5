package task

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/model"
)

var (
	// ErrNotFound is returned for an unknown task id.
	ErrNotFound = eris.New("task: not found")
	// ErrQueueFull is returned when the pool cannot accept more work.
	ErrQueueFull = eris.New("task: queue full")
	// ErrClosed is returned by Submit after Shutdown.
	ErrClosed = eris.New("task: manager closed")
)

// Manager submits background tasks and reports on them.
type Manager interface {
	// Submit enqueues kind with input and returns the new task id. The task
	// starts in PENDING.
	Submit(ctx context.Context, kind string, input any) (string, error)
	// Get returns a snapshot of the task.
	Get(ctx context.Context, id string) (*model.Task, error)
	// Cancel requests cancellation. Cancelling a finished task is a no-op.
	Cancel(ctx context.Context, id string) error
}
