package taskqueue

import (
	"context"
	"errors"
	"time"

	"github.com/petrijr/waypoint/pkg/api"
)

// TaskType identifies what the worker should do.
type TaskType string

const (
	TaskTypeTrack TaskType = "track"
	TaskTypeDebug TaskType = "debug"
)

// ErrQueueFull is returned by TryEnqueue when the queue has no free capacity.
var ErrQueueFull = errors.New("task queue is full")

// Task represents a single side effect to deliver.
type Task struct {
	ID   string
	Type TaskType

	// For track tasks
	Tracking *api.TrackingEvent

	// For debug tasks
	Debug *api.DebugEvent

	// Reply, if set, receives the reference id returned by the debugger and
	// is then closed. It is closed without a value when the report fails.
	Reply chan<- string

	// Await, if set, is read before a debug task is delivered; the value
	// becomes the event's ReferenceID.
	Await <-chan string

	EnqueuedAt time.Time
}

// Queue is a simple async task queue interface.
type Queue interface {
	// Enqueue adds a task to the queue. It should respect ctx for cancellation.
	Enqueue(ctx context.Context, t Task) error

	// TryEnqueue adds a task without blocking, returning ErrQueueFull when
	// the queue is at capacity.
	TryEnqueue(t Task) error

	// Dequeue removes and returns the next task, blocking until one is available
	// or the context is cancelled.
	Dequeue(ctx context.Context) (*Task, error)

	// Len returns the approximate number of tasks queued.
	Len() int
}
