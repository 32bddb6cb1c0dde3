package engine

import (
	"context"

	"github.com/petrijr/waypoint/pkg/api"
)

// Activate performs what a footer button does. Next on the last step
// finishes the flow; a target branch enters that branch of the next fork.
// Links and buttons without an action do nothing.
func (i *Instance) Activate(ctx context.Context, item api.FooterActionItem) error {
	switch item.Action() {
	case api.ActionPrev:
		return i.PrevStep(ctx)
	case api.ActionNext:
		if item.TargetBranch == nil && !i.HasNextStep() {
			return i.Finish(ctx)
		}
		if item.TargetBranch != nil {
			return i.NextStep(ctx, *item.TargetBranch)
		}
		return i.NextStep(ctx)
	case api.ActionCancel:
		return i.Cancel(ctx)
	default:
		return nil
	}
}
