package api

import "context"

// Element is a rendered node. Remove detaches it from the document.
type Element interface {
	Remove()
}

// Mount is what a Renderer hands over to the flow instance. The instance owns
// both fields until it unmounts: Cleanup runs first, then Element.Remove.
type Mount struct {
	Element Element
	Cleanup func()
}

// RenderRequest describes the step a Renderer should present.
type RenderRequest struct {
	FlowID string
	Flow   *Flow
	Step   *Step
	Kind   StepKind
	Index  StepIndex
	// RootElement is the boundary container selector; empty means the
	// document body.
	RootElement string
	HasNextStep bool
	HasPrevStep bool
	// Preview is set for draft flows.
	Preview bool
}

// RenderResult reports whether rendering could proceed.
type RenderResult struct {
	// Found is false when the tooltip target or the boundary container is
	// not present yet; the instance then waits for a later render attempt.
	Found bool
	Mount Mount
}

// Renderer presents steps. It is called on every step entry and again by
// the driver whenever new elements may have appeared.
type Renderer interface {
	Render(ctx context.Context, req RenderRequest) (RenderResult, error)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, req RenderRequest) (RenderResult, error)

func (f RendererFunc) Render(ctx context.Context, req RenderRequest) (RenderResult, error) {
	return f(ctx, req)
}

// HeadlessRenderer renders nothing and always reports the target as found.
type HeadlessRenderer struct{}

func (HeadlessRenderer) Render(ctx context.Context, req RenderRequest) (RenderResult, error) {
	return RenderResult{Found: true}, nil
}
