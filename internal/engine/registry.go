package engine

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/petrijr/waypoint/pkg/api"
)

// flowRegistry is the flow definition provider: flow lookup by id.
type flowRegistry struct {
	mu   sync.RWMutex
	byID map[string]*api.Flow
}

func newFlowRegistry() *flowRegistry {
	return &flowRegistry{
		byID: make(map[string]*api.Flow),
	}
}

func validateFlow(flow *api.Flow) error {
	if flow == nil {
		return errors.New("flow is nil")
	}
	if flow.ID == "" {
		return errors.New("flow id is required")
	}
	return api.ValidateNesting(flow)
}

func (r *flowRegistry) Register(flow *api.Flow) error {
	if err := validateFlow(flow); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[flow.ID]; exists {
		return fmt.Errorf("flow %q already registered", flow.ID)
	}
	r.byID[flow.ID] = flow
	return nil
}

// Put registers or replaces a definition. It reports whether a previous
// definition was replaced.
func (r *flowRegistry) Put(flow *api.Flow) (bool, error) {
	if err := validateFlow(flow); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, replaced := r.byID[flow.ID]
	r.byID[flow.ID] = flow
	return replaced, nil
}

// Get returns nil when the flow is unknown.
func (r *flowRegistry) Get(id string) *api.Flow {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byID[id]
}

// List returns the registered flows ordered by id.
func (r *flowRegistry) List() []*api.Flow {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*api.Flow, 0, len(r.byID))
	for _, f := range r.byID {
		out = append(out, f)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out
}
