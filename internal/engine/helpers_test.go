package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/petrijr/waypoint/internal/persistence"
	"github.com/petrijr/waypoint/pkg/api"
)

func modal(title string) api.Slot {
	return api.StepSlot(api.Step{Title: title})
}

func tooltip(title, target string) api.Slot {
	return api.StepSlot(api.Step{Title: title, TargetElement: target})
}

func waitFor(opts ...api.WaitOptions) api.Slot {
	return api.StepSlot(api.Step{Wait: opts})
}

func branch(slots ...api.Slot) api.Branch {
	return api.Branch(slots)
}

// branchingFlow is [A, [[B1, B2], [C1]]].
func branchingFlow(id string) *api.Flow {
	return &api.Flow{
		ID: id,
		Steps: []api.Slot{
			modal("A"),
			api.ForkSlot(
				branch(modal("B1"), modal("B2")),
				branch(modal("C1")),
			),
		},
	}
}

type fakeElement struct {
	mu      sync.Mutex
	title   string
	removed bool
}

func (e *fakeElement) Remove() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.removed = true
}

func (e *fakeElement) isRemoved() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.removed
}

// fakeRenderer mounts a fakeElement per request. Tooltip targets must be
// marked present, and steps listed in gates block until their gate closes.
type fakeRenderer struct {
	mu       sync.Mutex
	present  map[string]bool
	gates    map[string]chan struct{}
	started  chan string
	fail     error
	requests []api.RenderRequest
	elements []*fakeElement
}

func newFakeRenderer(present ...string) *fakeRenderer {
	r := &fakeRenderer{
		present: make(map[string]bool),
		gates:   make(map[string]chan struct{}),
		started: make(chan string, 16),
	}
	for _, p := range present {
		r.present[p] = true
	}
	return r
}

func (r *fakeRenderer) setPresent(selector string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.present[selector] = true
}

func (r *fakeRenderer) gate(title string) chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch := make(chan struct{})
	r.gates[title] = ch
	return ch
}

func (r *fakeRenderer) Render(ctx context.Context, req api.RenderRequest) (api.RenderResult, error) {
	r.mu.Lock()
	r.requests = append(r.requests, req)
	gate := r.gates[req.Step.Title]
	fail := r.fail
	found := req.Step.TargetElement == "" || r.present[req.Step.TargetElement]
	r.mu.Unlock()

	select {
	case r.started <- req.Step.Title:
	default:
	}
	if gate != nil {
		<-gate
	}
	if fail != nil {
		return api.RenderResult{}, fail
	}
	if !found {
		return api.RenderResult{Found: false}, nil
	}

	el := &fakeElement{title: req.Step.Title}
	r.mu.Lock()
	r.elements = append(r.elements, el)
	r.mu.Unlock()
	return api.RenderResult{Found: true, Mount: api.Mount{Element: el}}, nil
}

func (r *fakeRenderer) renderedTitles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.requests))
	for _, req := range r.requests {
		out = append(out, req.Step.Title)
	}
	return out
}

func (r *fakeRenderer) lastRequest() api.RenderRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.requests[len(r.requests)-1]
}

// mountedElements returns the elements not removed yet.
func (r *fakeRenderer) mountedElements() []*fakeElement {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*fakeElement
	for _, el := range r.elements {
		if !el.isRemoved() {
			out = append(out, el)
		}
	}
	return out
}

type recordingTracker struct {
	mu     sync.Mutex
	events []api.TrackingEvent
}

func (t *recordingTracker) Track(ctx context.Context, ev api.TrackingEvent) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, ev)
	return nil
}

func (t *recordingTracker) types() []api.EventType {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]api.EventType, 0, len(t.events))
	for _, ev := range t.events {
		out = append(out, ev.Type)
	}
	return out
}

func (t *recordingTracker) count(typ api.EventType) int {
	n := 0
	for _, got := range t.types() {
		if got == typ {
			n++
		}
	}
	return n
}

type recordingDebugger struct {
	mu     sync.Mutex
	next   int
	events []api.DebugEvent
}

func (d *recordingDebugger) Report(ctx context.Context, ev api.DebugEvent) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.next++
	d.events = append(d.events, ev)
	return fmt.Sprintf("ref-%d", d.next), nil
}

func (d *recordingDebugger) snapshot() []api.DebugEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]api.DebugEvent(nil), d.events...)
}

func (d *recordingDebugger) ofType(typ api.DebugType) []api.DebugEvent {
	var out []api.DebugEvent
	for _, ev := range d.snapshot() {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

type recordingObserver struct {
	api.NoopObserver

	mu         sync.Mutex
	updates    []api.FlowUpdate
	incomplete []string
	destroyed  []error
}

func (o *recordingObserver) OnFlowUpdate(ctx context.Context, u api.FlowUpdate) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.updates = append(o.updates, u)
}

func (o *recordingObserver) OnIncompleteFlowStart(ctx context.Context, flowID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.incomplete = append(o.incomplete, flowID)
}

func (o *recordingObserver) OnFlowDestroyed(ctx context.Context, flowID string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.destroyed = append(o.destroyed, err)
}

func (o *recordingObserver) lastUpdate() api.FlowUpdate {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.updates[len(o.updates)-1]
}

func (o *recordingObserver) updateCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.updates)
}

// harness wires a runtime to recording collaborators.
type harness struct {
	rt       *Runtime
	store    *persistence.MemoryStateStore
	renderer *fakeRenderer
	tracker  *recordingTracker
	debugger *recordingDebugger
	observer *recordingObserver
}

type harnessOption func(*Config)

func withTooltipDelay(d time.Duration) harnessOption {
	return func(c *Config) { c.TooltipErrorDelay = d }
}

func withStore(s persistence.StateStore) harnessOption {
	return func(c *Config) { c.Store = s }
}

func newHarness(t *testing.T, renderer *fakeRenderer, flows []*api.Flow, opts ...harnessOption) *harness {
	t.Helper()

	h := &harness{
		store:    persistence.NewMemoryStateStore(),
		renderer: renderer,
		tracker:  &recordingTracker{},
		debugger: &recordingDebugger{},
		observer: &recordingObserver{},
	}
	cfg := Config{
		Store:    h.store,
		Tracker:  h.tracker,
		Debugger: h.debugger,
		Renderer: renderer,
		Observer: h.observer,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(&cfg)
	}
	h.rt = NewRuntime(cfg)
	t.Cleanup(func() { _ = h.rt.Close() })

	for _, f := range flows {
		require.NoError(t, h.rt.RegisterFlow(f))
	}
	return h
}

func (h *harness) flush(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, h.rt.Flush(ctx))
}
