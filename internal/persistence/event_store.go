package persistence

import (
	"context"
	"sync"
	"time"

	"github.com/petrijr/waypoint/pkg/api"
)

// EventStore is an append-only log of tracking events.
type EventStore interface {
	AppendEvent(ctx context.Context, ev api.TrackingEvent) error
	// ListEvents returns events in append order. An empty flowID lists all.
	ListEvents(ctx context.Context, flowID string) ([]api.TrackingEvent, error)
}

// NoopEventStore discards all events.
type NoopEventStore struct{}

func (NoopEventStore) AppendEvent(ctx context.Context, ev api.TrackingEvent) error { return nil }
func (NoopEventStore) ListEvents(ctx context.Context, flowID string) ([]api.TrackingEvent, error) {
	return nil, nil
}

// MemoryEventStore keeps events in memory. Safe for concurrent use.
type MemoryEventStore struct {
	mu     sync.RWMutex
	events []api.TrackingEvent
}

var _ EventStore = (*MemoryEventStore)(nil)

func NewMemoryEventStore() *MemoryEventStore {
	return &MemoryEventStore{}
}

func (s *MemoryEventStore) AppendEvent(ctx context.Context, ev api.TrackingEvent) error {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *MemoryEventStore) ListEvents(ctx context.Context, flowID string) ([]api.TrackingEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []api.TrackingEvent
	for _, ev := range s.events {
		if flowID == "" || ev.FlowID == flowID {
			out = append(out, ev)
		}
	}
	return out, nil
}

// NewEventTracker returns a Tracker that appends every event to store.
func NewEventTracker(store EventStore) api.Tracker {
	return api.TrackerFunc(store.AppendEvent)
}
