package waypoint

import (
	"fmt"

	"github.com/petrijr/waypoint/internal/trigger"
	"github.com/petrijr/waypoint/pkg/api"
)

// FlowBuilder provides a fluent API for defining flows:
//
//	flow := waypoint.New("onboarding").
//	    Frequency(waypoint.FrequencyEverySession).
//	    StartOn(waypoint.OnLocation("^/dashboard$")).
//	    Modal("Welcome", "Let's get you started.").
//	    Then(waypoint.Fork(
//	        waypoint.NewBranch(waypoint.TooltipStep("#new", "Create a project", "")),
//	        waypoint.NewBranch(waypoint.ModalStep("Explore", "")),
//	    ))
//
//	if err := flow.Register(rt); err != nil {
//	    log.Fatal(err)
//	}
type FlowBuilder struct {
	flow api.Flow
}

// New creates a new flow builder with the given id.
func New(id string) *FlowBuilder {
	return &FlowBuilder{
		flow: api.Flow{
			ID:    id,
			Steps: make([]api.Slot, 0),
		},
	}
}

// ID returns the flow id.
func (b *FlowBuilder) ID() string {
	return b.flow.ID
}

// Frequency sets how often the flow may be shown.
func (b *FlowBuilder) Frequency(f Frequency) *FlowBuilder {
	b.flow.Frequency = f
	return b
}

// StartOn adds conditions that start the flow automatically.
func (b *FlowBuilder) StartOn(conditions ...WaitOptions) *FlowBuilder {
	b.flow.Start = append(b.flow.Start, conditions...)
	return b
}

// Audience adds a group of user property matchers. The flow starts
// automatically only if every matcher of at least one group holds.
func (b *FlowBuilder) Audience(matchers ...UserPropertyMatch) *FlowBuilder {
	b.flow.UserProperties = append(b.flow.UserProperties, api.UserPropertyGroup(matchers))
	return b
}

// Draft marks the flow as a draft.
func (b *FlowBuilder) Draft() *FlowBuilder {
	b.flow.Draft = true
	return b
}

// RootElement sets the boundary element the flow renders into.
func (b *FlowBuilder) RootElement(selector string) *FlowBuilder {
	b.flow.RootElement = selector
	return b
}

// Then appends slots to the top-level sequence.
func (b *FlowBuilder) Then(slots ...Slot) *FlowBuilder {
	b.flow.Steps = append(b.flow.Steps, slots...)
	return b
}

// Modal appends a modal step.
func (b *FlowBuilder) Modal(title, body string) *FlowBuilder {
	return b.Then(ModalStep(title, body))
}

// Tooltip appends a tooltip step.
func (b *FlowBuilder) Tooltip(target, title, body string) *FlowBuilder {
	return b.Then(TooltipStep(target, title, body))
}

// Banner appends a banner step.
func (b *FlowBuilder) Banner(title, body, position string) *FlowBuilder {
	return b.Then(BannerStep(title, body, position))
}

// Wait appends a wait-only step.
func (b *FlowBuilder) Wait(conditions ...WaitOptions) *FlowBuilder {
	return b.Then(WaitStep(conditions...))
}

// Fork appends a fork.
func (b *FlowBuilder) Fork(branches ...Branch) *FlowBuilder {
	return b.Then(Fork(branches...))
}

// Build validates the flow and returns a copy of it.
func (b *FlowBuilder) Build() (*Flow, error) {
	f := b.flow
	f.Steps = append([]api.Slot(nil), b.flow.Steps...)

	if f.ID == "" {
		return nil, fmt.Errorf("waypoint: flow id must not be empty")
	}
	if len(f.Steps) == 0 {
		return nil, fmt.Errorf("waypoint: flow %q has no steps", f.ID)
	}
	if err := api.ValidateNesting(&f); err != nil {
		return nil, err
	}
	for _, w := range f.Start {
		if err := trigger.Validate(w); err != nil {
			return nil, fmt.Errorf("waypoint: flow %q: start condition: %w", f.ID, err)
		}
	}
	return &f, nil
}

// MustBuild is like Build but panics on error.
func (b *FlowBuilder) MustBuild() *Flow {
	f, err := b.Build()
	if err != nil {
		panic(err)
	}
	return f
}

// Register builds the flow and registers it with the runtime.
func (b *FlowBuilder) Register(rt *Runtime) error {
	f, err := b.Build()
	if err != nil {
		return err
	}
	return rt.RegisterFlow(f)
}

// MustRegister is like Register but panics on error.
// Useful for initialization in main().
func (b *FlowBuilder) MustRegister(rt *Runtime) {
	if err := b.Register(rt); err != nil {
		panic(err)
	}
}
