package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/petrijr/waypoint/internal/taskqueue"
	"github.com/petrijr/waypoint/pkg/api"
)

type recordingTracker struct {
	mu     sync.Mutex
	events []api.TrackingEvent
	fail   bool
}

func (r *recordingTracker) Track(ctx context.Context, ev api.TrackingEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("tracker down")
	}
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingTracker) Events() []api.TrackingEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]api.TrackingEvent(nil), r.events...)
}

type recordingDebugger struct {
	mu     sync.Mutex
	events []api.DebugEvent
}

func (r *recordingDebugger) Report(ctx context.Context, ev api.DebugEvent) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return "ref-" + string(ev.Type), nil
}

func TestWorker_ProcessOneDeliversTrackTask(t *testing.T) {
	ctx := context.Background()
	tracker := &recordingTracker{}
	w := New(taskqueue.NewInMemoryQueue(10), Config{Tracker: tracker})

	ev := api.TrackingEvent{FlowID: "onboarding", Type: api.EventStartFlow}
	if err := w.Submit(taskqueue.Task{Type: taskqueue.TaskTypeTrack, Tracking: &ev}); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if w.Pending() != 1 {
		t.Fatalf("expected 1 pending task, got %d", w.Pending())
	}

	processed, err := w.ProcessOne(ctx)
	if err != nil {
		t.Fatalf("ProcessOne failed: %v", err)
	}
	if !processed {
		t.Fatalf("expected a task to be processed")
	}
	if w.Pending() != 0 {
		t.Fatalf("expected 0 pending tasks, got %d", w.Pending())
	}

	got := tracker.Events()
	if len(got) != 1 || got[0].FlowID != "onboarding" {
		t.Fatalf("unexpected tracked events: %+v", got)
	}
}

func TestWorker_DebugReplyAndAwait(t *testing.T) {
	ctx := context.Background()
	debugger := &recordingDebugger{}
	w := New(taskqueue.NewInMemoryQueue(10), Config{Debugger: debugger})

	reply := make(chan string, 1)
	first := api.DebugEvent{FlowID: "f", Type: api.DebugTooltipError}
	second := api.DebugEvent{FlowID: "f", Type: api.DebugInvalidateTooltipError}

	if err := w.Submit(taskqueue.Task{Type: taskqueue.TaskTypeDebug, Debug: &first, Reply: reply}); err != nil {
		t.Fatalf("Submit first failed: %v", err)
	}
	if err := w.Submit(taskqueue.Task{Type: taskqueue.TaskTypeDebug, Debug: &second, Await: reply}); err != nil {
		t.Fatalf("Submit second failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := w.ProcessOne(ctx); err != nil {
			t.Fatalf("ProcessOne %d failed: %v", i, err)
		}
	}

	if len(debugger.events) != 2 {
		t.Fatalf("expected 2 debug events, got %d", len(debugger.events))
	}
	if got := debugger.events[1].ReferenceID; got != "ref-tooltipError" {
		t.Fatalf("expected reference id from first report, got %q", got)
	}
}

func TestWorker_SubmitDropsWhenFull(t *testing.T) {
	w := New(taskqueue.NewInMemoryQueue(1), Config{})

	ev := api.TrackingEvent{FlowID: "f"}
	if err := w.Submit(taskqueue.Task{Type: taskqueue.TaskTypeTrack, Tracking: &ev}); err != nil {
		t.Fatalf("first Submit failed: %v", err)
	}

	reply := make(chan string, 1)
	dbg := api.DebugEvent{FlowID: "f"}
	err := w.Submit(taskqueue.Task{Type: taskqueue.TaskTypeDebug, Debug: &dbg, Reply: reply})
	if !errors.Is(err, taskqueue.ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if _, ok := <-reply; ok {
		t.Fatalf("expected dropped task's reply channel to be closed")
	}
	if w.Pending() != 1 {
		t.Fatalf("expected 1 pending task, got %d", w.Pending())
	}
}

type panickingTracker struct{}

func (panickingTracker) Track(ctx context.Context, ev api.TrackingEvent) error {
	panic("boom")
}

func TestWorker_RecoversFromSinkPanic(t *testing.T) {
	w := New(taskqueue.NewInMemoryQueue(10), Config{Tracker: panickingTracker{}})

	ev := api.TrackingEvent{FlowID: "f"}
	_ = w.Submit(taskqueue.Task{Type: taskqueue.TaskTypeTrack, Tracking: &ev})

	processed, err := w.ProcessOne(context.Background())
	if !processed {
		t.Fatalf("expected task to be processed")
	}
	if err == nil {
		t.Fatalf("expected panic to surface as error")
	}
	if w.Pending() != 0 {
		t.Fatalf("expected pending counter to be released, got %d", w.Pending())
	}
}

func TestWorker_StartFlushStop(t *testing.T) {
	tracker := &recordingTracker{}
	w := New(taskqueue.NewInMemoryQueue(100), Config{Tracker: tracker})

	ctx := context.Background()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	if err := w.Start(ctx); err == nil {
		t.Fatalf("expected second Start to fail")
	}

	for i := 0; i < 20; i++ {
		ev := api.TrackingEvent{FlowID: "f", Type: api.EventNextStep}
		if err := w.Submit(taskqueue.Task{Type: taskqueue.TaskTypeTrack, Tracking: &ev}); err != nil {
			t.Fatalf("Submit %d failed: %v", i, err)
		}
	}

	flushCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := w.Flush(flushCtx); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if got := len(tracker.Events()); got != 20 {
		t.Fatalf("expected 20 delivered events, got %d", got)
	}
}

func TestWorker_FailingSinkDoesNotStopDelivery(t *testing.T) {
	tracker := &recordingTracker{fail: true}
	w := New(taskqueue.NewInMemoryQueue(10), Config{Tracker: tracker})

	ctx := context.Background()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	ev := api.TrackingEvent{FlowID: "f"}
	_ = w.Submit(taskqueue.Task{Type: taskqueue.TaskTypeTrack, Tracking: &ev})

	flushCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := w.Flush(flushCtx); err != nil {
		t.Fatalf("Flush after failure: %v", err)
	}

	tracker.mu.Lock()
	tracker.fail = false
	tracker.mu.Unlock()

	_ = w.Submit(taskqueue.Task{Type: taskqueue.TaskTypeTrack, Tracking: &ev})
	if err := w.Flush(flushCtx); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if got := len(tracker.Events()); got != 1 {
		t.Fatalf("expected 1 delivered event, got %d", got)
	}
}
