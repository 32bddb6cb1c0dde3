package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/petrijr/waypoint/pkg/api"
)

// State is the lifecycle state of an Instance.
type State int

const (
	// StateActive: the current step is visible or about to render.
	StateActive State = iota
	// StateWaitingForTarget: the last render could not find its target or
	// boundary element; a later Render may succeed.
	StateWaitingForTarget
	// StateDestroyed is terminal.
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateWaitingForTarget:
		return "waiting_for_target"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// errMoved is returned by advances that expected a different current step.
var errMoved = errors.New("instance moved on")

// Instance is one running flow for the current user.
//
// Every history change goes through advanceToLocked, which persists the new
// history, validates the entered step and re-arms the tooltip guard while
// the instance mutex is held. Observer callbacks are dispatched after the
// mutex is released, so observers may call back into the instance.
type Instance struct {
	id     string
	flowID string
	rt     *Runtime
	logger *slog.Logger

	mu        sync.Mutex
	nav       *navigator
	state     State
	mount     *api.Mount
	mountedAt api.StepIndex
	guard     tooltipGuard
	renderGen uint64
	notes     []func()
}

func newInstance(rt *Runtime, flowID string, history api.History) *Instance {
	id := uuid.NewString()
	return &Instance{
		id:     id,
		flowID: flowID,
		rt:     rt,
		logger: rt.logger.With(slog.String("flow", flowID), slog.String("instance", id)),
		nav:    newNavigator(history),
	}
}

// ID is unique per instance; a restarted flow gets a new id.
func (i *Instance) ID() string { return i.id }

func (i *Instance) FlowID() string { return i.flowID }

func (i *Instance) State() State {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

// CurrentIndex returns the last history entry.
func (i *Instance) CurrentIndex() api.StepIndex {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.nav.current()
}

// CurrentStep returns the step at the current index, if it resolves.
func (i *Instance) CurrentStep() (*api.Step, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.currentStepLocked()
}

// History returns a copy of the step history.
func (i *Instance) History() api.History {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.nav.history.Clone()
}

func (i *Instance) HasNextStep() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.nav.hasNext(i.flow())
}

func (i *Instance) HasPrevStep() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.nav.hasPrev()
}

// NextStep advances to the next sibling step. An optional branch enters
// that branch of the fork found at the next position.
//
// It returns api.ErrFlowIncomplete without touching history while the
// flow's steps are still loading, and api.ErrInvalidStep when the entered
// position was a fork or out of bounds, which destroys the instance.
func (i *Instance) NextStep(ctx context.Context, branch ...int) error {
	var b *int
	if len(branch) > 0 {
		b = &branch[0]
	}
	return i.next(ctx, nil, b)
}

func (i *Instance) next(ctx context.Context, at *api.StepIndex, branch *int) error {
	i.mu.Lock()
	err := i.nextLocked(ctx, at, branch)
	i.unlock()
	if err != nil {
		return err
	}
	_ = i.Render(ctx)
	return nil
}

func (i *Instance) nextLocked(ctx context.Context, at *api.StepIndex, branch *int) error {
	if i.state == StateDestroyed {
		return api.ErrInstanceDestroyed
	}
	flow := i.flow()
	if flow == nil {
		return api.ErrFlowNotFound
	}
	if flow.IncompleteSteps {
		i.logger.Warn("cannot proceed to the next step, flow hasn't been fully loaded")
		return api.ErrFlowIncomplete
	}
	if at != nil && !i.nav.current().Equal(*at) {
		return errMoved
	}

	h := append(i.nav.history.Clone(), i.nav.nextIndex(flow, branch))
	if err := i.advanceToLocked(ctx, h); err != nil {
		return err
	}

	if step, ok := i.currentStepLocked(); ok {
		i.notify(func() { i.rt.observer.OnNextStep(ctx, i.flowID, step) })
	}
	i.trackLocked(ctx, api.EventNextStep)
	i.flowUpdateLocked(ctx, api.EventNextStep, false)
	return nil
}

// PrevStep pops the history, then keeps popping past steps the user cannot
// rest on. The first history entry is never popped.
func (i *Instance) PrevStep(ctx context.Context) error {
	i.mu.Lock()
	err := i.prevLocked(ctx)
	i.unlock()
	if err != nil {
		return err
	}
	_ = i.Render(ctx)
	return nil
}

func (i *Instance) prevLocked(ctx context.Context) error {
	if i.state == StateDestroyed {
		return api.ErrInstanceDestroyed
	}
	h, ok := i.nav.prevHistory(i.flow())
	if !ok {
		return api.ErrNoPrevStep
	}
	if err := i.advanceToLocked(ctx, h); err != nil {
		return err
	}

	if step, ok := i.currentStepLocked(); ok {
		i.notify(func() { i.rt.observer.OnPrevStep(ctx, i.flowID, step) })
	}
	i.trackLocked(ctx, api.EventPrevStep)
	i.flowUpdateLocked(ctx, api.EventPrevStep, false)
	return nil
}

// Cancel ends the flow at the user's request.
func (i *Instance) Cancel(ctx context.Context) error {
	return i.end(ctx, api.EventCancelFlow)
}

// Finish ends the flow after its last step.
func (i *Instance) Finish(ctx context.Context) error {
	return i.end(ctx, api.EventFinishFlow)
}

func (i *Instance) end(ctx context.Context, typ api.EventType) error {
	i.mu.Lock()
	defer i.unlock()

	if i.state == StateDestroyed {
		return api.ErrInstanceDestroyed
	}
	i.trackLocked(ctx, typ)
	i.flowUpdateLocked(ctx, typ, true)
	i.rt.MarkSeen(ctx, i.flowID)
	i.destroyLocked(ctx, nil)
	return nil
}

// Destroy unmounts the instance and removes it from the runtime without
// emitting tracking events. It is idempotent.
func (i *Instance) Destroy(ctx context.Context) {
	i.mu.Lock()
	defer i.unlock()
	i.destroyLocked(ctx, nil)
}

// Unmount releases the rendered element and clears the waiting state.
func (i *Instance) Unmount() {
	i.mu.Lock()
	defer i.unlock()
	i.unmountLocked()
}

// Refresh re-validates and re-renders the current step after the flow
// definition changed.
func (i *Instance) Refresh(ctx context.Context) error {
	i.mu.Lock()
	if i.state == StateDestroyed {
		i.unlock()
		return api.ErrInstanceDestroyed
	}
	i.unmountLocked()
	err := i.enterLocked(ctx)
	i.unlock()
	if err != nil {
		return err
	}
	_ = i.Render(ctx)
	return nil
}

// Render asks the renderer to present the current step. It is a no-op when
// the step is already mounted, still loading, or wait-only. A result that
// arrives after the instance was destroyed or rendered again is released
// immediately.
func (i *Instance) Render(ctx context.Context) error {
	i.mu.Lock()
	if i.state == StateDestroyed {
		i.unlock()
		return api.ErrInstanceDestroyed
	}
	cur := i.nav.current()
	if i.mount != nil && i.mountedAt.Equal(cur) {
		i.unlock()
		return nil
	}
	flow := i.flow()
	step, ok := api.Resolve(flow, cur)
	if !ok {
		i.unlock()
		return nil
	}
	i.unmountLocked()
	if step.Kind() == api.KindWait {
		i.unlock()
		return nil
	}

	i.renderGen++
	gen := i.renderGen
	req := api.RenderRequest{
		FlowID:      i.flowID,
		Flow:        flow,
		Step:        step,
		Kind:        step.Kind(),
		Index:       cur,
		RootElement: i.rt.rootElementFor(flow),
		HasNextStep: i.nav.hasNext(flow),
		HasPrevStep: i.nav.hasPrev(),
		Preview:     flow.Draft,
	}
	i.unlock()

	res, err := i.rt.renderer.Render(ctx, req)

	i.mu.Lock()
	defer i.unlock()

	if i.state == StateDestroyed || gen != i.renderGen || !i.nav.current().Equal(cur) {
		releaseMount(res.Mount)
		return nil
	}
	if err != nil {
		i.logger.Warn("render failed", slog.String("step", cur.String()), slog.Any("error", err))
		res.Found = false
	}
	if !res.Found {
		releaseMount(res.Mount)
		i.state = StateWaitingForTarget
		return nil
	}

	mount := res.Mount
	i.mount = &mount
	i.mountedAt = cur
	i.state = StateActive
	if req.Kind == api.KindTooltip {
		if ref, reported := i.guard.disarm(); reported && ref != nil {
			i.debugLocked(ctx, api.DebugInvalidateTooltipError, "", ref)
		}
	}
	return nil
}

// start initializes a new or rehydrated instance. fresh is false when the
// history came from the state store.
func (i *Instance) start(ctx context.Context, fresh bool) error {
	i.mu.Lock()
	defer i.unlock()

	if flow := i.flow(); flow != nil && flow.IncompleteSteps {
		i.notify(func() { i.rt.observer.OnIncompleteFlowStart(ctx, i.flowID) })
	}
	if fresh {
		i.trackLocked(ctx, api.EventStartFlow)
		i.flowUpdateLocked(ctx, api.EventStartFlow, false)
	}
	i.rt.persist(ctx, i.flowID, i.nav.history)
	return i.enterLocked(ctx)
}

func (i *Instance) advanceToLocked(ctx context.Context, h api.History) error {
	i.nav.history = h.Clone()
	i.unmountLocked()
	i.guard.disarm()
	i.renderGen++
	i.rt.persist(ctx, i.flowID, i.nav.history)
	return i.enterLocked(ctx)
}

// enterLocked validates the current step. A fork, or an out of bounds
// position on a fully loaded flow, destroys the instance.
func (i *Instance) enterLocked(ctx context.Context) error {
	flow := i.flow()
	cur := i.nav.current()

	switch validateEntry(flow, cur) {
	case entryFork:
		i.logger.Error("stopping flow: entered invalid step, make sure to use targetBranch", slog.String("step", cur.String()))
		i.debugLocked(ctx, api.DebugInvalidStepError, "", nil)
		i.destroyLocked(ctx, api.ErrInvalidStep)
		return api.ErrInvalidStep
	case entryOutOfBounds:
		i.logger.Error("stopping flow: entered out of bound step", slog.String("step", cur.String()))
		i.debugLocked(ctx, api.DebugInvalidStepError, "", nil)
		i.destroyLocked(ctx, api.ErrInvalidStep)
		return api.ErrInvalidStep
	}

	if step, ok := api.Resolve(flow, cur); ok && step.Kind() == api.KindTooltip {
		i.guard.arm(i.rt.tooltipErrorDelay, i.tooltipTimeout)
	}
	return nil
}

func (i *Instance) tooltipTimeout(token uint64) {
	i.mu.Lock()
	defer i.unlock()

	if i.state == StateDestroyed || !i.guard.fired(token) {
		return
	}
	target := ""
	if step, ok := i.currentStepLocked(); ok {
		target = step.TargetElement
	}
	i.logger.Warn("tooltip target not found", slog.String("target", target))
	ref := i.debugLocked(context.Background(), api.DebugTooltipError, target, nil)
	i.guard.resolve(ref)
}

func (i *Instance) destroyLocked(ctx context.Context, cause error) {
	if i.state == StateDestroyed {
		return
	}
	i.unmountLocked()
	i.guard.disarm()
	i.state = StateDestroyed
	i.renderGen++
	i.rt.forget(ctx, i)
	i.notify(func() { i.rt.observer.OnFlowDestroyed(ctx, i.flowID, cause) })
}

func (i *Instance) unmountLocked() {
	if i.state == StateWaitingForTarget {
		i.state = StateActive
	}
	if i.mount == nil {
		return
	}
	releaseMount(*i.mount)
	i.mount = nil
}

func releaseMount(m api.Mount) {
	if m.Cleanup != nil {
		m.Cleanup()
	}
	if m.Element != nil {
		m.Element.Remove()
	}
}

func (i *Instance) flow() *api.Flow {
	return i.rt.flows.Get(i.flowID)
}

func (i *Instance) currentStepLocked() (*api.Step, bool) {
	return api.Resolve(i.flow(), i.nav.current())
}

// emits reports whether tracking and debug events may be sent.
func (i *Instance) emits(flow *api.Flow) bool {
	return flow != nil && !flow.Draft
}

func (i *Instance) trackLocked(ctx context.Context, typ api.EventType) {
	flow := i.flow()
	if !i.emits(flow) {
		return
	}
	cur := i.nav.current()
	step, _ := api.Resolve(flow, cur)
	ev := api.TrackingEvent{
		FlowID:    i.flowID,
		StepIndex: cur,
		StepHash:  stepHash(step),
		FlowHash:  contentHash(flow),
		Type:      typ,
		Location:  i.rt.Location(),
		At:        i.rt.now(),
	}
	if step != nil {
		ev.StepID = step.StepID
	}
	i.rt.submitTrack(ev)
}

// debugLocked submits a diagnostic and returns the future of its reference
// id. await, if set, supplies the reference id of an earlier report.
func (i *Instance) debugLocked(ctx context.Context, typ api.DebugType, target string, await <-chan string) <-chan string {
	flow := i.flow()
	if !i.emits(flow) {
		return nil
	}
	cur := i.nav.current()
	step, _ := api.Resolve(flow, cur)
	ev := api.DebugEvent{
		FlowID:        i.flowID,
		StepIndex:     cur,
		StepHash:      stepHash(step),
		FlowHash:      contentHash(flow),
		Type:          typ,
		TargetElement: target,
		At:            i.rt.now(),
	}
	return i.rt.submitDebug(ev, await)
}

// flowUpdateLocked queues a lifecycle notification. When the flow ends the
// current step is reported as the previous one.
func (i *Instance) flowUpdateLocked(ctx context.Context, typ api.EventType, end bool) {
	flow := i.flow()
	var prev *api.Step
	if p, ok := i.nav.history.Previous(); ok {
		prev, _ = api.Resolve(flow, p)
	}
	cur, _ := api.Resolve(flow, i.nav.current())
	if end {
		prev, cur = cur, nil
	}
	u := api.FlowUpdate{
		FlowID:      i.flowID,
		Location:    i.rt.Location(),
		PrevStep:    prev,
		CurrentStep: cur,
		EventType:   typ,
	}
	i.notify(func() { i.rt.observer.OnFlowUpdate(ctx, u) })
}

func (i *Instance) notify(fn func()) {
	i.notes = append(i.notes, fn)
}

// unlock releases the mutex and then runs queued notifications.
func (i *Instance) unlock() {
	notes := i.notes
	i.notes = nil
	i.mu.Unlock()
	for _, fn := range notes {
		fn()
	}
}
