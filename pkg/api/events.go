package api

import "time"

// EventType identifies a tracking event and lifecycle transition.
type EventType string

const (
	EventStartFlow  EventType = "startFlow"
	EventNextStep   EventType = "nextStep"
	EventPrevStep   EventType = "prevStep"
	EventCancelFlow EventType = "cancelFlow"
	EventFinishFlow EventType = "finishFlow"
)

// DebugType identifies an author-facing diagnostic.
type DebugType string

const (
	DebugInvalidStepError       DebugType = "invalidStepError"
	DebugTooltipError           DebugType = "tooltipError"
	DebugInvalidateTooltipError DebugType = "invalidateTooltipError"
)

// TrackingEvent is delivered to a Tracker.
type TrackingEvent struct {
	FlowID    string
	StepIndex StepIndex
	StepID    string
	// StepHash and FlowHash are SHA-256 hex digests of the JSON encoding of
	// the current step and the flow. StepHash is empty when no step resolves.
	StepHash string
	FlowHash string
	Type     EventType
	Location string
	At       time.Time
}

// DebugEvent is delivered to a Debugger.
type DebugEvent struct {
	FlowID        string
	StepIndex     StepIndex
	StepHash      string
	FlowHash      string
	Type          DebugType
	ReferenceID   string
	TargetElement string
	At            time.Time
}

// FlowUpdate is passed to Observer.OnFlowUpdate on every transition.
// When a flow ends, CurrentStep is nil and PrevStep is the step it ended on.
type FlowUpdate struct {
	FlowID      string
	Location    string
	PrevStep    *Step
	CurrentStep *Step
	EventType   EventType
}
