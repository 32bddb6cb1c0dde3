package engine

import (
	"github.com/petrijr/waypoint/pkg/api"
)

// entryStatus is the outcome of validating the current step after a
// history change.
type entryStatus int

const (
	entryOK entryStatus = iota
	// entryPending means the step does not resolve yet but the flow is still
	// loading, so it may arrive later.
	entryPending
	entryFork
	entryOutOfBounds
)

// navigator owns the step history of one instance and computes positions in
// the step tree. It has no side effects; Instance applies the results.
type navigator struct {
	history api.History
}

func newNavigator(history api.History) *navigator {
	if len(history) == 0 {
		history = api.History{api.Scalar(0)}
	}
	return &navigator{history: history.Clone()}
}

func (n *navigator) current() api.StepIndex {
	return n.history.Current()
}

// nextIndex computes the index following the current one. When branch is
// non-nil the result enters that branch of the fork at the computed index.
//
// Inside a branch the last component is incremented until the branch is
// exhausted; then the innermost (branch, position) pair is dropped and the
// position holding the fork is incremented, collapsing to a scalar when no
// further nesting remains. Forks nest a single level, so one collapse always
// lands back in the top-level sequence.
func (n *navigator) nextIndex(flow *api.Flow, branch *int) api.StepIndex {
	cur := n.current()
	var next api.StepIndex

	if cur.IsScalar() {
		next = api.Scalar(cur.Position() + 1)
	} else {
		c := cur.Components()
		parent, ok := api.Container(flow, c[:len(c)-1])
		if ok && len(parent)-1 <= cur.Last() {
			up := c[:len(c)-2]
			up[len(up)-1]++
			next, _ = api.ParsePath(up)
		} else {
			next = cur.WithLast(cur.Last() + 1)
		}
	}

	if branch != nil {
		next = next.Enter(*branch)
	}
	return next
}

// hasNext reports whether nextIndex would land on an existing slot.
func (n *navigator) hasNext(flow *api.Flow) bool {
	if flow == nil {
		return false
	}
	cur := n.current()
	if cur.IsScalar() {
		if cur.Position() == 0 && flow.IncompleteSteps {
			return true
		}
		return cur.Position() < len(flow.Steps)-1
	}

	c := cur.Components()
	if parent, ok := api.Container(flow, c[:len(c)-1]); ok && len(parent)-1 > cur.Last() {
		return true
	}
	grand, ok := api.Container(flow, c[:len(c)-3])
	return ok && len(grand)-1 > c[len(c)-3]
}

func (n *navigator) hasPrev() bool {
	return len(n.history) > 1
}

// prevHistory returns the history after stepping back: the current entry is
// dropped, then entries resolving to non-stopping steps are dropped too. The
// first entry is never dropped.
func (n *navigator) prevHistory(flow *api.Flow) (api.History, bool) {
	if !n.hasPrev() {
		return nil, false
	}
	h := n.history[:len(n.history)-1].Clone()
	for len(h) > 1 {
		step, ok := api.Resolve(flow, h.Current())
		if !ok || step.Kind().IsStopping() {
			break
		}
		h = h[:len(h)-1]
	}
	return h, true
}

// validateEntry classifies the current position of the history.
func validateEntry(flow *api.Flow, idx api.StepIndex) entryStatus {
	if flow == nil {
		return entryPending
	}
	slot, ok := api.Lookup(flow, idx)
	switch {
	case ok && slot.IsFork():
		return entryFork
	case ok:
		return entryOK
	case flow.IncompleteSteps:
		return entryPending
	default:
		return entryOutOfBounds
	}
}
