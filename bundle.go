package waypoint

import (
	"context"
	"database/sql"
	"time"

	"github.com/petrijr/waypoint/internal/persistence"
)

// RunningFlow is a persisted in-progress flow.
type RunningFlow = persistence.RunningFlow

// SQLiteBundle wires together a Runtime and the SQLite stores it writes to,
// so tools can inspect the durable state of a user scope.
type SQLiteBundle struct {
	Runtime *Runtime

	state  *persistence.SQLiteStateStore
	events *persistence.SQLiteEventStore
}

// NewSQLiteBundle constructs a Runtime whose running flows, seen markers and
// tracking log for scope live in db.
//
// Typical usage:
//
//	db, _ := sql.Open("sqlite", "file:waypoint.db?_pragma=journal_mode(WAL)")
//	bundle, err := waypoint.NewSQLiteBundle(db, userID, waypoint.Config{})
//	// register flows on bundle.Runtime, then bundle.Runtime.Resume(ctx)
func NewSQLiteBundle(db *sql.DB, scope string, cfg Config) (*SQLiteBundle, error) {
	state, err := persistence.NewSQLiteStateStore(db, scope)
	if err != nil {
		return nil, err
	}
	events, err := persistence.NewSQLiteEventStore(db, scope)
	if err != nil {
		return nil, err
	}

	cfg.Store = state
	cfg.Events = events
	return &SQLiteBundle{
		Runtime: NewRuntime(cfg),
		state:   state,
		events:  events,
	}, nil
}

// RunningFlows lists the persisted in-progress flows ordered by id.
func (b *SQLiteBundle) RunningFlows(ctx context.Context) ([]RunningFlow, error) {
	return b.state.ListRunningFlows(ctx)
}

// SeenFlows maps the ids of flows the user has seen to when they were
// last seen.
func (b *SQLiteBundle) SeenFlows(ctx context.Context) (map[string]time.Time, error) {
	return b.state.SeenFlows(ctx)
}

// Events lists logged tracking events in the order they were recorded.
// An empty flowID lists the events of every flow.
func (b *SQLiteBundle) Events(ctx context.Context, flowID string) ([]TrackingEvent, error) {
	return b.events.ListEvents(ctx, flowID)
}

// Close closes the runtime. The database is left open.
func (b *SQLiteBundle) Close() error {
	return b.Runtime.Close()
}
