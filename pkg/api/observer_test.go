package api

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
)

// testObserver is a simple Observer implementation used to verify fan-out behavior.
type testObserver struct {
	mu sync.Mutex

	updates    []FlowUpdate
	nexts      int
	prevs      int
	incomplete int
	destroyed  []error
}

func (o *testObserver) OnFlowUpdate(ctx context.Context, u FlowUpdate) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.updates = append(o.updates, u)
}

func (o *testObserver) OnNextStep(ctx context.Context, flowID string, step *Step) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.nexts++
}

func (o *testObserver) OnPrevStep(ctx context.Context, flowID string, step *Step) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.prevs++
}

func (o *testObserver) OnIncompleteFlowStart(ctx context.Context, flowID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.incomplete++
}

func (o *testObserver) OnFlowDestroyed(ctx context.Context, flowID string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.destroyed = append(o.destroyed, err)
}

// recordingHandler is a minimal slog.Handler that just records log records.
type recordingHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *recordingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return true
}

func (h *recordingHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	cpy := slog.Record{
		Time:    r.Time,
		Level:   r.Level,
		Message: r.Message,
	}
	r.Attrs(func(a slog.Attr) bool {
		cpy.AddAttrs(a)
		return true
	})
	h.records = append(h.records, cpy)
	return nil
}

func (h *recordingHandler) WithAttrs(attrs []slog.Attr) slog.Handler { return h }

func (h *recordingHandler) WithGroup(name string) slog.Handler { return h }

func attrsToMap(r slog.Record) map[string]any {
	m := make(map[string]any)
	r.Attrs(func(a slog.Attr) bool {
		m[a.Key] = a.Value.Any()
		return true
	})
	return m
}

func TestNoopObserver_DoesNotPanic(t *testing.T) {
	ctx := context.Background()
	var o Observer = NoopObserver{}

	o.OnFlowUpdate(ctx, FlowUpdate{FlowID: "f"})
	o.OnNextStep(ctx, "f", nil)
	o.OnPrevStep(ctx, "f", nil)
	o.OnIncompleteFlowStart(ctx, "f")
	o.OnFlowDestroyed(ctx, "f", errors.New("boom"))
}

func TestNewCompositeObserver_EmptyReturnsNoop(t *testing.T) {
	o := NewCompositeObserver()
	if _, ok := o.(NoopObserver); !ok {
		t.Fatalf("expected NewCompositeObserver() to return NoopObserver, got %T", o)
	}
}

func TestNewCompositeObserver_SingleReturnsThatObserver(t *testing.T) {
	single := &testObserver{}
	o := NewCompositeObserver(single, nil)

	if got, ok := o.(*testObserver); !ok || got != single {
		t.Fatalf("expected the single non-nil observer to be returned, got %T (%p)", o, o)
	}
}

func TestCompositeObserver_ForwardsAllEvents(t *testing.T) {
	ctx := context.Background()
	o1 := &testObserver{}
	o2 := &testObserver{}
	co, ok := NewCompositeObserver(o1, o2).(*CompositeObserver)
	if !ok {
		t.Fatalf("expected *CompositeObserver")
	}

	err := errors.New("invalid")
	step := &Step{Title: "hello"}
	co.OnFlowUpdate(ctx, FlowUpdate{FlowID: "f", EventType: EventStartFlow, CurrentStep: step})
	co.OnNextStep(ctx, "f", step)
	co.OnPrevStep(ctx, "f", step)
	co.OnIncompleteFlowStart(ctx, "f")
	co.OnFlowDestroyed(ctx, "f", err)

	for i, o := range []*testObserver{o1, o2} {
		if len(o.updates) != 1 || o.nexts != 1 || o.prevs != 1 || o.incomplete != 1 || len(o.destroyed) != 1 {
			t.Fatalf("observer %d did not receive all calls: %+v", i+1, o)
		}
		if o.updates[0].CurrentStep != step {
			t.Fatalf("observer %d step mismatch", i+1)
		}
		if o.destroyed[0] != err {
			t.Fatalf("observer %d destroy error mismatch", i+1)
		}
	}
}

func TestNewLoggingObserver_NilLoggerUsesDefault(t *testing.T) {
	lo, ok := NewLoggingObserver(nil).(*LoggingObserver)
	if !ok {
		t.Fatalf("expected *LoggingObserver")
	}
	if lo.Logger == nil {
		t.Fatalf("expected non-nil Logger when created with nil")
	}
}

func TestLoggingObserver_OnFlowUpdate_EmitsInfoLog(t *testing.T) {
	h := &recordingHandler{}
	o := NewLoggingObserver(slog.New(h))

	o.OnFlowUpdate(context.Background(), FlowUpdate{
		FlowID:      "onboarding",
		EventType:   EventNextStep,
		PrevStep:    &Step{StepID: "welcome", Title: "Welcome"},
		CurrentStep: &Step{TargetElement: "#menu"},
		Location:    "/home",
	})

	if len(h.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(h.records))
	}
	r := h.records[0]
	if r.Level != slog.LevelInfo || r.Message != "flow_update" {
		t.Fatalf("unexpected record: level=%v msg=%q", r.Level, r.Message)
	}
	attrs := attrsToMap(r)
	if attrs["flow"] != "onboarding" || attrs["event"] != "nextStep" {
		t.Fatalf("unexpected attrs: %v", attrs)
	}
	if attrs["prev_step"] != "welcome" {
		t.Fatalf("expected step id for prev_step, got %v", attrs["prev_step"])
	}
	if attrs["current_step"] != "tooltip" {
		t.Fatalf("expected step kind for unnamed current_step, got %v", attrs["current_step"])
	}
}

func TestLoggingObserver_OnFlowDestroyed_LevelDependsOnError(t *testing.T) {
	h := &recordingHandler{}
	o := NewLoggingObserver(slog.New(h))
	ctx := context.Background()

	o.OnFlowDestroyed(ctx, "f", nil)
	o.OnFlowDestroyed(ctx, "f", ErrInvalidStep)

	if len(h.records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(h.records))
	}
	if h.records[0].Level != slog.LevelDebug {
		t.Fatalf("expected debug level for clean teardown, got %v", h.records[0].Level)
	}
	if h.records[1].Level != slog.LevelError {
		t.Fatalf("expected error level for invalid step, got %v", h.records[1].Level)
	}
}

func TestBasicMetrics_Snapshot(t *testing.T) {
	ctx := context.Background()
	m := &BasicMetrics{}

	m.OnFlowUpdate(ctx, FlowUpdate{EventType: EventStartFlow})
	m.OnFlowUpdate(ctx, FlowUpdate{EventType: EventStartFlow})
	m.OnFlowUpdate(ctx, FlowUpdate{EventType: EventStartFlow})
	m.OnFlowUpdate(ctx, FlowUpdate{EventType: EventNextStep})
	m.OnFlowUpdate(ctx, FlowUpdate{EventType: EventNextStep})
	m.OnFlowUpdate(ctx, FlowUpdate{EventType: EventPrevStep})
	m.OnFlowUpdate(ctx, FlowUpdate{EventType: EventFinishFlow})
	m.OnFlowUpdate(ctx, FlowUpdate{EventType: EventCancelFlow})
	m.OnFlowDestroyed(ctx, "a", nil)
	m.OnFlowDestroyed(ctx, "b", nil)

	s := m.Snapshot()
	if s.FlowsStarted != 3 || s.FlowsFinished != 1 || s.FlowsCancelled != 1 || s.FlowsInvalid != 0 {
		t.Fatalf("unexpected flow counters: %+v", s)
	}
	if s.ActiveFlows != 1 {
		t.Fatalf("expected 1 active flow, got %d", s.ActiveFlows)
	}
	if s.NextSteps != 2 || s.PrevSteps != 1 {
		t.Fatalf("unexpected step counters: %+v", s)
	}

	m.OnFlowDestroyed(ctx, "c", ErrInvalidStep)
	if got := m.Snapshot().ActiveFlows; got != 0 {
		t.Fatalf("expected invalid flow to leave 0 active, got %d", got)
	}
}
