package waypoint

import (
	"context"
	"slices"
	"sync"

	"github.com/petrijr/waypoint/pkg/api"
)

// Shown records one step presented by a LocalRunner.
type Shown struct {
	FlowID string
	Index  StepIndex
	Kind   StepKind
	Step   *Step
}

// LocalRunner bundles an in-memory Runtime with a headless renderer that
// records every step it presents. It simulates a page for development,
// tests and the command line: elements are present unless hidden, and
// clicks, submits and navigations are fed to the runtime's trigger watcher.
//
// Typical usage:
//
//	runner := waypoint.NewLocalRunner(waypoint.Config{})
//	defer runner.Close()
//	waypoint.New("tour").Modal("Hi", "").Wait(waypoint.OnClick("#go")).MustRegister(runner.Runtime)
//
//	inst, _ := runner.Start(ctx, "tour")
//	_ = inst.NextStep(ctx)
//	runner.Click(ctx, "#go")
type LocalRunner struct {
	// Runtime is the in-memory runtime driven by this runner.
	Runtime *Runtime

	mu       sync.Mutex
	shown    []Shown
	hidden   map[string]bool
	present  []string
	location string
}

// NewLocalRunner constructs a LocalRunner. cfg.Renderer is replaced by the
// runner's own renderer; every other field is honoured.
func NewLocalRunner(cfg Config) *LocalRunner {
	r := &LocalRunner{hidden: make(map[string]bool)}
	cfg.Renderer = api.RendererFunc(r.render)
	if cfg.Store != nil {
		r.Runtime = NewRuntime(cfg)
	} else {
		r.Runtime = NewInMemoryRuntime(cfg)
	}
	return r
}

func (r *LocalRunner) render(ctx context.Context, req api.RenderRequest) (api.RenderResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if req.Step.TargetElement != "" && r.hidden[req.Step.TargetElement] {
		return api.RenderResult{Found: false}, nil
	}
	if req.RootElement != "" && r.hidden[req.RootElement] {
		return api.RenderResult{Found: false}, nil
	}
	r.shown = append(r.shown, Shown{FlowID: req.FlowID, Index: req.Index, Kind: req.Kind, Step: req.Step})
	return api.RenderResult{Found: true}, nil
}

// Start starts a flow, ignoring its frequency.
func (r *LocalRunner) Start(ctx context.Context, flowID string) (*Instance, error) {
	return r.Runtime.StartFlow(ctx, flowID, StartOptions{Again: true, StartDraft: true})
}

// Hide makes selector absent: tooltips targeting it wait for their target.
func (r *LocalRunner) Hide(selector string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hidden[selector] = true
	r.present = slices.DeleteFunc(r.present, func(s string) bool { return s == selector })
}

// Show makes selector present again, retries rendering and reports an
// element event.
func (r *LocalRunner) Show(ctx context.Context, selector string) HandleResult {
	r.mu.Lock()
	delete(r.hidden, selector)
	if !slices.Contains(r.present, selector) {
		r.present = append(r.present, selector)
	}
	r.mu.Unlock()

	r.Runtime.RenderAll(ctx)
	return r.emit(ctx, Event{Kind: KindElement})
}

// Visit navigates to pathname.
func (r *LocalRunner) Visit(ctx context.Context, pathname string) HandleResult {
	r.mu.Lock()
	r.location = pathname
	r.mu.Unlock()
	return r.emit(ctx, Event{Kind: KindLocation})
}

// Click clicks the element matching selector.
func (r *LocalRunner) Click(ctx context.Context, selector string) HandleResult {
	return r.emit(ctx, Event{Kind: KindClick, Target: []string{selector}})
}

// Submit submits form with the given field values.
func (r *LocalRunner) Submit(ctx context.Context, form string, values map[string]string) HandleResult {
	return r.emit(ctx, Event{Kind: KindSubmit, Target: []string{form}, Values: values})
}

// Change reports that fields now hold values.
func (r *LocalRunner) Change(ctx context.Context, values map[string]string) HandleResult {
	return r.emit(ctx, Event{Kind: KindChange, Values: values})
}

func (r *LocalRunner) emit(ctx context.Context, ev Event) HandleResult {
	r.mu.Lock()
	ev.Location = r.location
	ev.Present = slices.Clone(r.present)
	r.mu.Unlock()
	return r.Runtime.HandleEvent(ctx, ev)
}

// Shown returns every step presented so far.
func (r *LocalRunner) Shown() []Shown {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.shown)
}

// Close flushes pending side effects and closes the runtime.
func (r *LocalRunner) Close() error {
	_ = r.Runtime.Flush(context.Background())
	return r.Runtime.Close()
}
