package api

import (
	"context"
	"errors"
)

var (
	// ErrFlowNotFound is returned when no definition is registered for a flow id.
	ErrFlowNotFound = errors.New("flow not found")

	// ErrDraftFlow is returned when starting a draft flow without StartDraft.
	ErrDraftFlow = errors.New("flow is a draft")

	// ErrFlowNotRunning is returned by EndFlow when the flow has no active instance.
	ErrFlowNotRunning = errors.New("flow not running")

	// ErrFlowSeen is returned when the flow's frequency forbids showing it again.
	ErrFlowSeen = errors.New("flow already seen")

	// ErrFlowIncomplete is returned by NextStep while the flow's steps are
	// still loading. History is left untouched.
	ErrFlowIncomplete = errors.New("flow has not been fully loaded")

	// ErrInstanceDestroyed is returned by operations on a destroyed instance.
	ErrInstanceDestroyed = errors.New("flow instance destroyed")

	// ErrInvalidStep is returned when entering a step destroyed the instance
	// because the step was a fork or out of bounds.
	ErrInvalidStep = errors.New("entered invalid step")

	// ErrNoPrevStep is returned by PrevStep when history has a single entry.
	ErrNoPrevStep = errors.New("no previous step")

	// ErrNestedFork is returned for definitions with a fork inside a branch.
	ErrNestedFork = errors.New("forks cannot be nested inside branches")

	// ErrInvalidStepIndex is returned for malformed step indices.
	ErrInvalidStepIndex = errors.New("invalid step index")
)

// StartOptions controls StartFlow.
type StartOptions struct {
	// Again starts the flow even if its frequency says it was already seen.
	Again bool
	// StartDraft allows starting draft flows.
	StartDraft bool
}

// Tracker receives analytics events. Calls are fire-and-forget: a returned
// error is logged and never affects navigation.
type Tracker interface {
	Track(ctx context.Context, ev TrackingEvent) error
}

// Debugger receives author-facing diagnostics. The returned reference id is
// attached to a later invalidateTooltipError for the same step.
type Debugger interface {
	Report(ctx context.Context, ev DebugEvent) (referenceID string, err error)
}

// TrackerFunc adapts a function to Tracker.
type TrackerFunc func(ctx context.Context, ev TrackingEvent) error

func (f TrackerFunc) Track(ctx context.Context, ev TrackingEvent) error { return f(ctx, ev) }

// NoopTracker discards events.
type NoopTracker struct{}

func (NoopTracker) Track(ctx context.Context, ev TrackingEvent) error { return nil }

// NoopDebugger discards diagnostics.
type NoopDebugger struct{}

func (NoopDebugger) Report(ctx context.Context, ev DebugEvent) (string, error) { return "", nil }

// ValidateNesting returns ErrNestedFork if any branch of the flow contains a fork.
func ValidateNesting(flow *Flow) error {
	for pos, slot := range flow.Steps {
		for b, branch := range slot.Fork {
			for p, inner := range branch {
				if inner.IsFork() {
					return &NestingError{Flow: flow.ID, At: Path(pos, b, p)}
				}
			}
		}
	}
	return nil
}

// NestingError reports where a nested fork was found.
type NestingError struct {
	Flow string
	At   StepIndex
}

func (e *NestingError) Error() string {
	return "flow " + e.Flow + ": fork at " + e.At.String() + ": " + ErrNestedFork.Error()
}

func (e *NestingError) Unwrap() error { return ErrNestedFork }
