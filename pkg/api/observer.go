package api

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// Observer receives lifecycle callbacks from flow instances.
//
// Implementations should be fast and non-blocking; callbacks run on the
// navigation path.
type Observer interface {
	// OnFlowUpdate is called on start, next, prev, cancel and finish.
	OnFlowUpdate(ctx context.Context, u FlowUpdate)

	// OnNextStep is called with the newly entered step after NextStep.
	OnNextStep(ctx context.Context, flowID string, step *Step)

	// OnPrevStep is called with the step returned to after PrevStep.
	OnPrevStep(ctx context.Context, flowID string, step *Step)

	// OnIncompleteFlowStart is called when a flow starts while its steps
	// are still loading.
	OnIncompleteFlowStart(ctx context.Context, flowID string)

	// OnFlowDestroyed is called once when an instance is torn down, whether
	// it ended normally or hit an invalid step.
	OnFlowDestroyed(ctx context.Context, flowID string, err error)
}

// NoopObserver is an Observer that does nothing.
// It is used as the default when no observer is configured.
type NoopObserver struct{}

func (NoopObserver) OnFlowUpdate(ctx context.Context, u FlowUpdate)                 {}
func (NoopObserver) OnNextStep(ctx context.Context, flowID string, step *Step)      {}
func (NoopObserver) OnPrevStep(ctx context.Context, flowID string, step *Step)      {}
func (NoopObserver) OnIncompleteFlowStart(ctx context.Context, flowID string)       {}
func (NoopObserver) OnFlowDestroyed(ctx context.Context, flowID string, err error) {}

// CompositeObserver fans out events to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards events to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnFlowUpdate(ctx context.Context, u FlowUpdate) {
	for _, o := range c.observers {
		o.OnFlowUpdate(ctx, u)
	}
}

func (c *CompositeObserver) OnNextStep(ctx context.Context, flowID string, step *Step) {
	for _, o := range c.observers {
		o.OnNextStep(ctx, flowID, step)
	}
}

func (c *CompositeObserver) OnPrevStep(ctx context.Context, flowID string, step *Step) {
	for _, o := range c.observers {
		o.OnPrevStep(ctx, flowID, step)
	}
}

func (c *CompositeObserver) OnIncompleteFlowStart(ctx context.Context, flowID string) {
	for _, o := range c.observers {
		o.OnIncompleteFlowStart(ctx, flowID)
	}
}

func (c *CompositeObserver) OnFlowDestroyed(ctx context.Context, flowID string, err error) {
	for _, o := range c.observers {
		o.OnFlowDestroyed(ctx, flowID, err)
	}
}

// LoggingObserver writes structured logs using log/slog.
type LoggingObserver struct {
	Logger *slog.Logger
}

// NewLoggingObserver creates an Observer that logs flow lifecycle events
// using the provided slog.Logger. If logger is nil, slog.Default() is used.
func NewLoggingObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{Logger: logger}
}

func stepAttr(key string, s *Step) slog.Attr {
	if s == nil {
		return slog.String(key, "")
	}
	if s.StepID != "" {
		return slog.String(key, s.StepID)
	}
	return slog.String(key, string(s.Kind()))
}

func (o *LoggingObserver) OnFlowUpdate(ctx context.Context, u FlowUpdate) {
	o.Logger.InfoContext(ctx, "flow_update",
		slog.String("flow", u.FlowID),
		slog.String("event", string(u.EventType)),
		stepAttr("prev_step", u.PrevStep),
		stepAttr("current_step", u.CurrentStep),
		slog.String("location", u.Location),
	)
}

func (o *LoggingObserver) OnNextStep(ctx context.Context, flowID string, step *Step) {
	o.Logger.DebugContext(ctx, "next_step",
		slog.String("flow", flowID),
		stepAttr("step", step),
	)
}

func (o *LoggingObserver) OnPrevStep(ctx context.Context, flowID string, step *Step) {
	o.Logger.DebugContext(ctx, "prev_step",
		slog.String("flow", flowID),
		stepAttr("step", step),
	)
}

func (o *LoggingObserver) OnIncompleteFlowStart(ctx context.Context, flowID string) {
	o.Logger.InfoContext(ctx, "incomplete_flow_start", slog.String("flow", flowID))
}

func (o *LoggingObserver) OnFlowDestroyed(ctx context.Context, flowID string, err error) {
	level := slog.LevelDebug
	if err != nil {
		level = slog.LevelError
	}
	o.Logger.Log(ctx, level, "flow_destroyed",
		slog.String("flow", flowID),
		slog.Any("error", err),
	)
}

// BasicMetrics collects simple lifecycle counters. It implements Observer,
// and can be combined with LoggingObserver via NewCompositeObserver.
type BasicMetrics struct {
	NoopObserver

	flowsStarted   atomic.Int64
	flowsFinished  atomic.Int64
	flowsCancelled atomic.Int64
	flowsInvalid   atomic.Int64
	nextSteps      atomic.Int64
	prevSteps      atomic.Int64
}

// BasicMetricsSnapshot is an immutable snapshot of BasicMetrics.
type BasicMetricsSnapshot struct {
	FlowsStarted   int64
	FlowsFinished  int64
	FlowsCancelled int64
	FlowsInvalid   int64
	ActiveFlows    int64

	NextSteps int64
	PrevSteps int64
}

func (m *BasicMetrics) OnFlowUpdate(ctx context.Context, u FlowUpdate) {
	switch u.EventType {
	case EventStartFlow:
		m.flowsStarted.Add(1)
	case EventFinishFlow:
		m.flowsFinished.Add(1)
	case EventCancelFlow:
		m.flowsCancelled.Add(1)
	case EventNextStep:
		m.nextSteps.Add(1)
	case EventPrevStep:
		m.prevSteps.Add(1)
	}
}

func (m *BasicMetrics) OnFlowDestroyed(ctx context.Context, flowID string, err error) {
	if err != nil {
		m.flowsInvalid.Add(1)
	}
}

// Snapshot returns a snapshot of the current metrics.
func (m *BasicMetrics) Snapshot() BasicMetricsSnapshot {
	started := m.flowsStarted.Load()
	finished := m.flowsFinished.Load()
	cancelled := m.flowsCancelled.Load()
	invalid := m.flowsInvalid.Load()

	return BasicMetricsSnapshot{
		FlowsStarted:   started,
		FlowsFinished:  finished,
		FlowsCancelled: cancelled,
		FlowsInvalid:   invalid,
		ActiveFlows:    started - finished - cancelled - invalid,
		NextSteps:      m.nextSteps.Load(),
		PrevSteps:      m.prevSteps.Load(),
	}
}
