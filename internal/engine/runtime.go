package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/petrijr/waypoint/internal/audience"
	"github.com/petrijr/waypoint/internal/persistence"
	"github.com/petrijr/waypoint/internal/taskqueue"
	"github.com/petrijr/waypoint/pkg/api"
	"github.com/petrijr/waypoint/pkg/worker"
)

// DefaultTooltipErrorDelay is how long a tooltip may wait for its target
// before tooltipError is reported.
const DefaultTooltipErrorDelay = 2 * time.Second

// Config describes how to construct a Runtime. Only Store is commonly set;
// every other field has a default.
type Config struct {
	// Store holds running flows and seen markers. Defaults to memory.
	Store persistence.StateStore
	// Events, if set, receives every tracking event in addition to Tracker.
	Events persistence.EventStore

	Tracker  api.Tracker
	Debugger api.Debugger
	// Renderer defaults to api.HeadlessRenderer.
	Renderer api.Renderer
	Observer api.Observer
	Logger   *slog.Logger

	TooltipErrorDelay time.Duration
	// RootElement is the default boundary element selector for rendering.
	RootElement    string
	UserProperties audience.Properties
	// QueueCapacity bounds pending side effects; extra ones are dropped.
	QueueCapacity int

	// Now defaults to time.Now.
	Now func() time.Time
}

// Runtime is the flows context: it owns the flow registry, the active
// instances and the side-effect pipeline, and is passed explicitly to every
// Instance it creates.
type Runtime struct {
	store             persistence.StateStore
	renderer          api.Renderer
	observer          api.Observer
	logger            *slog.Logger
	tooltipErrorDelay time.Duration
	rootElement       string
	now               func() time.Time
	sessionID         string

	flows  *flowRegistry
	worker *worker.Worker

	mu          sync.Mutex
	instances   map[string]*Instance
	sessionSeen map[string]bool
	location    string
	userProps   audience.Properties
	closed      bool
}

// NewRuntime creates a Runtime and starts its side-effect worker. Call
// Close to stop it.
func NewRuntime(cfg Config) *Runtime {
	if cfg.Store == nil {
		cfg.Store = persistence.NewMemoryStateStore()
	}
	if cfg.Renderer == nil {
		cfg.Renderer = api.HeadlessRenderer{}
	}
	if cfg.Observer == nil {
		cfg.Observer = api.NoopObserver{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.TooltipErrorDelay <= 0 {
		cfg.TooltipErrorDelay = DefaultTooltipErrorDelay
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	tracker := cfg.Tracker
	if cfg.Events != nil {
		tracker = multiTracker{cfg.Tracker, persistence.NewEventTracker(cfg.Events)}
	}

	r := &Runtime{
		store:             cfg.Store,
		renderer:          cfg.Renderer,
		observer:          cfg.Observer,
		logger:            cfg.Logger,
		tooltipErrorDelay: cfg.TooltipErrorDelay,
		rootElement:       cfg.RootElement,
		now:               cfg.Now,
		sessionID:         uuid.NewString(),
		flows:             newFlowRegistry(),
		instances:         make(map[string]*Instance),
		sessionSeen:       make(map[string]bool),
		userProps:         cfg.UserProperties,
	}
	r.worker = worker.New(taskqueue.NewInMemoryQueue(cfg.QueueCapacity), worker.Config{
		Tracker:  tracker,
		Debugger: cfg.Debugger,
		Logger:   cfg.Logger,
	})
	// Start only fails when already started.
	_ = r.worker.Start(context.Background())
	return r
}

// SessionID identifies this runtime; every-session frequency is scoped to it.
func (r *Runtime) SessionID() string { return r.sessionID }

// RegisterFlow adds a flow definition. Registering an id twice is an error;
// use UpdateFlow to replace a definition.
func (r *Runtime) RegisterFlow(flow *api.Flow) error {
	return r.flows.Register(flow)
}

// UpdateFlow registers or replaces a definition, for example when the
// remaining steps of an incomplete flow arrive, and refreshes the running
// instance of that flow.
func (r *Runtime) UpdateFlow(ctx context.Context, flow *api.Flow) error {
	if _, err := r.flows.Put(flow); err != nil {
		return err
	}
	inst, ok := r.Instance(flow.ID)
	if !ok {
		return nil
	}
	if err := inst.Refresh(ctx); err != nil && !errors.Is(err, api.ErrInstanceDestroyed) {
		return err
	}
	return nil
}

// Flow returns the registered definition for id.
func (r *Runtime) Flow(id string) (*api.Flow, bool) {
	f := r.flows.Get(id)
	return f, f != nil
}

// Flows returns all registered definitions ordered by id.
func (r *Runtime) Flows() []*api.Flow {
	return r.flows.List()
}

// StartFlow starts a flow, or returns its instance if it is already running.
// Progress persisted in the store is resumed; otherwise the flow starts at
// step 0 and emits startFlow.
func (r *Runtime) StartFlow(ctx context.Context, flowID string, opts api.StartOptions) (*Instance, error) {
	flow := r.flows.Get(flowID)
	if flow == nil {
		return nil, fmt.Errorf("%w: %s", api.ErrFlowNotFound, flowID)
	}
	if flow.Draft && !opts.StartDraft {
		return nil, fmt.Errorf("%w: %s", api.ErrDraftFlow, flowID)
	}
	if inst, ok := r.Instance(flowID); ok {
		return inst, nil
	}
	if !opts.Again && !r.CanStart(ctx, flowID) {
		return nil, fmt.Errorf("%w: %s", api.ErrFlowSeen, flowID)
	}

	var history api.History
	fresh := true
	rf, err := r.store.GetRunningFlow(ctx, flowID)
	switch {
	case err == nil:
		history, fresh = rf.History, false
	case !errors.Is(err, persistence.ErrRunningFlowNotFound):
		r.logger.Warn("failed to load running flow", slog.String("flow", flowID), slog.Any("error", err))
	}

	return r.launch(ctx, flowID, history, fresh)
}

func (r *Runtime) launch(ctx context.Context, flowID string, history api.History, fresh bool) (*Instance, error) {
	inst := newInstance(r, flowID, history)

	r.mu.Lock()
	if existing, ok := r.instances[flowID]; ok {
		r.mu.Unlock()
		return existing, nil
	}
	r.instances[flowID] = inst
	r.mu.Unlock()

	if err := inst.start(ctx, fresh); err != nil {
		return nil, err
	}
	_ = inst.Render(ctx)
	return inst, nil
}

// Resume rehydrates every persisted running flow whose definition is
// registered and which is not active yet. It returns the number resumed.
func (r *Runtime) Resume(ctx context.Context) (int, error) {
	running, err := r.store.ListRunningFlows(ctx)
	if err != nil {
		return 0, fmt.Errorf("list running flows: %w", err)
	}

	resumed := 0
	for _, rf := range running {
		if r.flows.Get(rf.FlowID) == nil {
			r.logger.Debug("skipping running flow without definition", slog.String("flow", rf.FlowID))
			continue
		}
		if _, ok := r.Instance(rf.FlowID); ok {
			continue
		}
		if _, err := r.launch(ctx, rf.FlowID, rf.History, false); err != nil {
			r.logger.Warn("failed to resume flow", slog.String("flow", rf.FlowID), slog.Any("error", err))
			continue
		}
		resumed++
	}
	return resumed, nil
}

// Instance returns the active instance of a flow.
func (r *Runtime) Instance(flowID string) (*Instance, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.instances[flowID]
	return inst, ok
}

// Instances returns the active instances ordered by flow id.
func (r *Runtime) Instances() []*Instance {
	r.mu.Lock()
	out := make([]*Instance, 0, len(r.instances))
	for _, inst := range r.instances {
		out = append(out, inst)
	}
	r.mu.Unlock()

	sort.Slice(out, func(a, b int) bool { return out[a].flowID < out[b].flowID })
	return out
}

// EndFlow cancels the running instance of a flow.
func (r *Runtime) EndFlow(ctx context.Context, flowID string) error {
	inst, ok := r.Instance(flowID)
	if !ok {
		return fmt.Errorf("%w: %s", api.ErrFlowNotRunning, flowID)
	}
	return inst.Cancel(ctx)
}

// ResetFlow destroys the running instance without tracking and forgets
// both the persisted progress and the seen marker, so the flow can start
// again from step 0.
func (r *Runtime) ResetFlow(ctx context.Context, flowID string) error {
	if inst, ok := r.Instance(flowID); ok {
		inst.Destroy(ctx)
	}

	r.mu.Lock()
	delete(r.sessionSeen, flowID)
	r.mu.Unlock()

	if err := r.store.RemoveRunningFlow(ctx, flowID); err != nil {
		return fmt.Errorf("reset %s: %w", flowID, err)
	}
	if err := r.store.ForgetSeen(ctx, flowID); err != nil {
		return fmt.Errorf("reset %s: %w", flowID, err)
	}
	return nil
}

// CanStart reports whether the flow's frequency allows showing it now.
func (r *Runtime) CanStart(ctx context.Context, flowID string) bool {
	flow := r.flows.Get(flowID)
	if flow == nil {
		return false
	}
	switch flow.EffectiveFrequency() {
	case api.FrequencyEveryTime:
		return true
	case api.FrequencyEverySession:
		r.mu.Lock()
		defer r.mu.Unlock()
		return !r.sessionSeen[flowID]
	default:
		seen, err := r.store.SeenFlows(ctx)
		if err != nil {
			r.logger.Warn("failed to load seen flows", slog.Any("error", err))
			return false
		}
		_, ok := seen[flowID]
		return !ok
	}
}

// MarkSeen records that the user has seen the flow.
func (r *Runtime) MarkSeen(ctx context.Context, flowID string) {
	r.mu.Lock()
	r.sessionSeen[flowID] = true
	r.mu.Unlock()

	if err := r.store.MarkSeen(ctx, flowID, r.now()); err != nil {
		r.logger.Warn("failed to mark flow seen", slog.String("flow", flowID), slog.Any("error", err))
	}
}

// RenderAll retries rendering every active instance. Drivers call it when
// new elements may have appeared.
func (r *Runtime) RenderAll(ctx context.Context) {
	for _, inst := range r.Instances() {
		_ = inst.Render(ctx)
	}
}

// SetLocation records the current pathname.
func (r *Runtime) SetLocation(pathname string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.location = pathname
}

// Location returns the current pathname.
func (r *Runtime) Location() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.location
}

// SetUserProperties replaces the properties used for audience matching.
func (r *Runtime) SetUserProperties(props audience.Properties) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.userProps = props
}

func (r *Runtime) userProperties() audience.Properties {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.userProps
}

// Flush waits until queued tracking and debug events have been delivered.
func (r *Runtime) Flush(ctx context.Context) error {
	return r.worker.Flush(ctx)
}

// PendingEffects returns the number of undelivered side effects.
func (r *Runtime) PendingEffects() int {
	return r.worker.Pending()
}

// Close destroys every active instance without tracking, keeping their
// persisted progress, and stops the side-effect worker.
func (r *Runtime) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	for _, inst := range r.Instances() {
		inst.Unmount()
	}
	r.worker.Stop()
	return nil
}

func (r *Runtime) rootElementFor(flow *api.Flow) string {
	if flow != nil && flow.RootElement != "" {
		return flow.RootElement
	}
	return r.rootElement
}

// persist saves the history synchronously. Failures are logged only.
func (r *Runtime) persist(ctx context.Context, flowID string, h api.History) {
	if err := r.store.SaveRunningFlow(ctx, flowID, h); err != nil {
		r.logger.Warn("failed to persist step history", slog.String("flow", flowID), slog.Any("error", err))
	}
}

// forget removes a destroyed instance from the registry and the store.
func (r *Runtime) forget(ctx context.Context, inst *Instance) {
	r.mu.Lock()
	if r.instances[inst.flowID] == inst {
		delete(r.instances, inst.flowID)
	}
	r.mu.Unlock()

	if err := r.store.RemoveRunningFlow(ctx, inst.flowID); err != nil {
		r.logger.Warn("failed to remove running flow", slog.String("flow", inst.flowID), slog.Any("error", err))
	}
}

func (r *Runtime) submitTrack(ev api.TrackingEvent) {
	err := r.worker.Submit(taskqueue.Task{Type: taskqueue.TaskTypeTrack, Tracking: &ev})
	if err != nil {
		r.logger.Warn("dropping tracking event", slog.String("flow", ev.FlowID), slog.String("type", string(ev.Type)), slog.Any("error", err))
	}
}

func (r *Runtime) submitDebug(ev api.DebugEvent, await <-chan string) <-chan string {
	reply := make(chan string, 1)
	err := r.worker.Submit(taskqueue.Task{Type: taskqueue.TaskTypeDebug, Debug: &ev, Reply: reply, Await: await})
	if err != nil {
		r.logger.Warn("dropping debug event", slog.String("flow", ev.FlowID), slog.String("type", string(ev.Type)), slog.Any("error", err))
	}
	return reply
}

// multiTracker fans a tracking event out to several trackers.
type multiTracker []api.Tracker

func (m multiTracker) Track(ctx context.Context, ev api.TrackingEvent) error {
	var errs []error
	for _, t := range m {
		if t == nil {
			continue
		}
		if err := t.Track(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
