package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/petrijr/waypoint/internal/taskqueue"
	"github.com/petrijr/waypoint/pkg/api"
)

// Config configures a Worker. Zero values select no-op sinks and
// slog.Default().
type Config struct {
	Tracker  api.Tracker
	Debugger api.Debugger
	Logger   *slog.Logger

	// FlushPollInterval is how often Flush checks for outstanding tasks.
	FlushPollInterval time.Duration
}

// Worker pulls side-effect tasks from a Queue and delivers them to the
// tracking and debug sinks. Tasks are delivered in enqueue order by a single
// goroutine.
type Worker struct {
	queue    taskqueue.Queue
	tracker  api.Tracker
	debugger api.Debugger
	logger   *slog.Logger
	poll     time.Duration

	pending atomic.Int64

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// New creates a new Worker.
func New(queue taskqueue.Queue, cfg Config) *Worker {
	if cfg.Tracker == nil {
		cfg.Tracker = api.NoopTracker{}
	}
	if cfg.Debugger == nil {
		cfg.Debugger = api.NoopDebugger{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.FlushPollInterval <= 0 {
		cfg.FlushPollInterval = 5 * time.Millisecond
	}
	return &Worker{
		queue:    queue,
		tracker:  cfg.Tracker,
		debugger: cfg.Debugger,
		logger:   cfg.Logger,
		poll:     cfg.FlushPollInterval,
	}
}

// Submit enqueues a task without blocking. When the queue is full the task
// is dropped, its Reply channel is closed and taskqueue.ErrQueueFull is
// returned.
func (w *Worker) Submit(t taskqueue.Task) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.EnqueuedAt.IsZero() {
		t.EnqueuedAt = time.Now()
	}

	w.pending.Add(1)
	if err := w.queue.TryEnqueue(t); err != nil {
		w.pending.Add(-1)
		if t.Reply != nil {
			close(t.Reply)
		}
		return err
	}
	return nil
}

// Pending returns the number of submitted tasks not yet delivered.
func (w *Worker) Pending() int {
	return int(w.pending.Load())
}

// ProcessOne pulls a single task from the queue and delivers it.
// Returns (processed, error):
//   - processed == false: no task processed (ctx cancelled before a task was obtained)
//   - processed == true: a task was processed; err reports a sink failure or panic.
func (w *Worker) ProcessOne(ctx context.Context) (processed bool, err error) {
	task, err := w.queue.Dequeue(ctx)
	if err != nil {
		return false, err
	}
	if task == nil {
		return false, nil
	}
	defer w.pending.Add(-1)

	defer func() {
		if r := recover(); r != nil {
			processed = true
			err = fmt.Errorf("%s task %s panicked: %v", task.Type, task.ID, r)
		}
	}()

	switch task.Type {
	case taskqueue.TaskTypeTrack:
		if task.Tracking == nil {
			return true, errors.New("track task without event")
		}
		return true, w.tracker.Track(ctx, *task.Tracking)

	case taskqueue.TaskTypeDebug:
		return true, w.deliverDebug(ctx, task)

	default:
		// Unknown task type; mark as processed but return an error so this isn't silently ignored.
		return true, errors.New("unknown task type: " + string(task.Type))
	}
}

func (w *Worker) deliverDebug(ctx context.Context, task *taskqueue.Task) error {
	if task.Reply != nil {
		defer close(task.Reply)
	}
	if task.Debug == nil {
		return errors.New("debug task without event")
	}
	ev := *task.Debug

	if task.Await != nil {
		select {
		case ref := <-task.Await:
			if ev.ReferenceID == "" {
				ev.ReferenceID = ref
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	ref, err := w.debugger.Report(ctx, ev)
	if err != nil {
		return err
	}
	if task.Reply != nil {
		task.Reply <- ref
	}
	return nil
}

// Start launches the delivery goroutine. It returns an error if the worker
// is already running.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return errors.New("waypoint: worker already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.running = true

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		for {
			processed, err := w.ProcessOne(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					if !processed {
						return
					}
				}
				// A failing sink never stops delivery of later tasks.
				w.logger.Warn("side effect delivery failed", slog.Any("error", err))
			}
		}
	}()

	return nil
}

// Stop cancels the delivery goroutine and waits for it to exit. Tasks still
// queued are not delivered.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	cancel := w.cancel
	w.running = false
	w.mu.Unlock()

	cancel()
	w.wg.Wait()
}

// Flush blocks until every submitted task has been delivered or ctx is done.
func (w *Worker) Flush(ctx context.Context) error {
	if w.pending.Load() == 0 {
		return nil
	}
	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if w.pending.Load() == 0 {
				return nil
			}
		}
	}
}
