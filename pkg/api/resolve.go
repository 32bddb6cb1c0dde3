package api

// Lookup returns the slot addressed by idx, which may be a fork.
// It never panics; an out-of-range component yields false.
func Lookup(flow *Flow, idx StepIndex) (Slot, bool) {
	if flow == nil {
		return Slot{}, false
	}
	c := idx.Components()
	seq, ok := Container(flow, c[:len(c)-1])
	if !ok {
		return Slot{}, false
	}
	pos := c[len(c)-1]
	if pos < 0 || pos >= len(seq) {
		return Slot{}, false
	}
	return seq[pos], true
}

// Resolve returns the leaf step addressed by idx. Forks and out-of-range
// positions resolve to false.
func Resolve(flow *Flow, idx StepIndex) (*Step, bool) {
	slot, ok := Lookup(flow, idx)
	if !ok || slot.IsFork() {
		return nil, false
	}
	return slot.Step, true
}

// Container returns the sequence addressed by an even-length prefix of path
// components: the empty prefix is the top-level sequence, [pos, branch] is
// the chosen branch of the fork at pos, and so on.
func Container(flow *Flow, prefix []int) ([]Slot, bool) {
	if flow == nil || len(prefix)%2 != 0 {
		return nil, false
	}
	seq := flow.Steps
	for n := 0; n < len(prefix); n += 2 {
		pos, branch := prefix[n], prefix[n+1]
		if pos < 0 || pos >= len(seq) {
			return nil, false
		}
		slot := seq[pos]
		if !slot.IsFork() || branch < 0 || branch >= len(slot.Fork) {
			return nil, false
		}
		seq = slot.Fork[branch]
	}
	return seq, true
}
