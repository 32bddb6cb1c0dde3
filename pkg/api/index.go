package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// StepIndex locates a position in a flow's step tree.
//
// A scalar index is a position in the top-level sequence. A path index reads
// [topPosition, branch, positionInBranch, branch, positionInBranch, ...]; its
// length is always odd. The zero value is the scalar index 0.
type StepIndex struct {
	// path holds the components of a path index; nil for scalars.
	path   []int
	scalar int
}

// Scalar returns a top-level index.
func Scalar(pos int) StepIndex {
	return StepIndex{scalar: pos}
}

// Path returns a path index. A single component yields a scalar index.
// It panics on an even number of components; use ParsePath for untrusted input.
func Path(components ...int) StepIndex {
	idx, err := ParsePath(components)
	if err != nil {
		panic(err)
	}
	return idx
}

// ParsePath validates components and builds an index from them.
func ParsePath(components []int) (StepIndex, error) {
	if len(components) == 0 || len(components)%2 == 0 {
		return StepIndex{}, fmt.Errorf("%w: path %v must have an odd number of components", ErrInvalidStepIndex, components)
	}
	for _, c := range components {
		if c < 0 {
			return StepIndex{}, fmt.Errorf("%w: negative component in %v", ErrInvalidStepIndex, components)
		}
	}
	if len(components) == 1 {
		return Scalar(components[0]), nil
	}
	return StepIndex{path: append([]int(nil), components...)}, nil
}

// IsScalar reports whether the index addresses the top-level sequence.
func (i StepIndex) IsScalar() bool {
	return i.path == nil
}

// Position returns the top-level position of the index.
func (i StepIndex) Position() int {
	if i.path == nil {
		return i.scalar
	}
	return i.path[0]
}

// Len returns the number of components (1 for scalars).
func (i StepIndex) Len() int {
	if i.path == nil {
		return 1
	}
	return len(i.path)
}

// Components returns a copy of the components.
func (i StepIndex) Components() []int {
	if i.path == nil {
		return []int{i.scalar}
	}
	return append([]int(nil), i.path...)
}

// Last returns the final component.
func (i StepIndex) Last() int {
	if i.path == nil {
		return i.scalar
	}
	return i.path[len(i.path)-1]
}

// WithLast returns a copy with the final component replaced.
func (i StepIndex) WithLast(v int) StepIndex {
	if i.path == nil {
		return Scalar(v)
	}
	c := i.Components()
	c[len(c)-1] = v
	return StepIndex{path: c}
}

// Enter returns the index of position 0 in the given branch of the fork
// located at i.
func (i StepIndex) Enter(branch int) StepIndex {
	return StepIndex{path: append(i.Components(), branch, 0)}
}

// Equal reports whether both indices address the same position.
func (i StepIndex) Equal(o StepIndex) bool {
	if i.IsScalar() != o.IsScalar() {
		return false
	}
	if i.IsScalar() {
		return i.scalar == o.scalar
	}
	if len(i.path) != len(o.path) {
		return false
	}
	for n := range i.path {
		if i.path[n] != o.path[n] {
			return false
		}
	}
	return true
}

func (i StepIndex) String() string {
	if i.path == nil {
		return strconv.Itoa(i.scalar)
	}
	parts := make([]string, len(i.path))
	for n, c := range i.path {
		parts[n] = strconv.Itoa(c)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// MarshalJSON encodes a scalar as a number and a path as an array.
func (i StepIndex) MarshalJSON() ([]byte, error) {
	if i.path == nil {
		return json.Marshal(i.scalar)
	}
	return json.Marshal(i.path)
}

// UnmarshalJSON accepts a number or an odd-length array of numbers.
func (i *StepIndex) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var c []int
		if err := json.Unmarshal(data, &c); err != nil {
			return err
		}
		idx, err := ParsePath(c)
		if err != nil {
			return err
		}
		*i = idx
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if n < 0 {
		return fmt.Errorf("%w: negative position %d", ErrInvalidStepIndex, n)
	}
	*i = Scalar(n)
	return nil
}

// History is the stack of visited indices; the last entry is the current step.
type History []StepIndex

// Current returns the last entry, or scalar 0 for an empty history.
func (h History) Current() StepIndex {
	if len(h) == 0 {
		return Scalar(0)
	}
	return h[len(h)-1]
}

// Previous returns the entry before the current one.
func (h History) Previous() (StepIndex, bool) {
	if len(h) < 2 {
		return StepIndex{}, false
	}
	return h[len(h)-2], true
}

// Clone returns a copy that shares no backing array with h.
func (h History) Clone() History {
	return append(History(nil), h...)
}
