package persistence

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/petrijr/waypoint/pkg/api"
)

// MemoryStateStore is a simple in-memory implementation of StateStore.
// Safe for concurrent use.
type MemoryStateStore struct {
	mu      sync.RWMutex
	running map[string]RunningFlow
	seen    map[string]time.Time
}

// Ensure MemoryStateStore implements StateStore.
var _ StateStore = (*MemoryStateStore)(nil)

// NewMemoryStateStore creates a new, empty in-memory store.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{
		running: make(map[string]RunningFlow),
		seen:    make(map[string]time.Time),
	}
}

func (s *MemoryStateStore) SaveRunningFlow(ctx context.Context, flowID string, history api.History) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.running[flowID] = RunningFlow{
		FlowID:    flowID,
		History:   history.Clone(),
		UpdatedAt: time.Now(),
	}
	return nil
}

func (s *MemoryStateStore) GetRunningFlow(ctx context.Context, flowID string) (RunningFlow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rf, ok := s.running[flowID]
	if !ok {
		return RunningFlow{}, ErrRunningFlowNotFound
	}
	rf.History = rf.History.Clone()
	return rf, nil
}

func (s *MemoryStateStore) ListRunningFlows(ctx context.Context) ([]RunningFlow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]RunningFlow, 0, len(s.running))
	for _, rf := range s.running {
		rf.History = rf.History.Clone()
		out = append(out, rf)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FlowID < out[j].FlowID })
	return out, nil
}

func (s *MemoryStateStore) RemoveRunningFlow(ctx context.Context, flowID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, flowID)
	return nil
}

func (s *MemoryStateStore) MarkSeen(ctx context.Context, flowID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[flowID] = at
	return nil
}

func (s *MemoryStateStore) SeenFlows(ctx context.Context) (map[string]time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]time.Time, len(s.seen))
	for id, at := range s.seen {
		out[id] = at
	}
	return out, nil
}

func (s *MemoryStateStore) ForgetSeen(ctx context.Context, flowID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.seen, flowID)
	return nil
}
