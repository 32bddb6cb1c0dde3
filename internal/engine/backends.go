package engine

import (
	"database/sql"

	"github.com/redis/go-redis/v9"

	"github.com/petrijr/waypoint/internal/persistence"
)

// NewInMemoryRuntime creates a runtime whose state lives in process memory.
func NewInMemoryRuntime(cfg Config) *Runtime {
	return NewRuntimeWithPersistence(persistence.Persistence{
		State:  persistence.NewMemoryStateStore(),
		Events: persistence.NewMemoryEventStore(),
	}, cfg)
}

// NewSQLiteRuntime stores running flows, seen markers and the tracking log
// for one user scope in db.
func NewSQLiteRuntime(db *sql.DB, scope string, cfg Config) (*Runtime, error) {
	state, err := persistence.NewSQLiteStateStore(db, scope)
	if err != nil {
		return nil, err
	}
	events, err := persistence.NewSQLiteEventStore(db, scope)
	if err != nil {
		return nil, err
	}
	return NewRuntimeWithPersistence(persistence.Persistence{State: state, Events: events}, cfg), nil
}

// NewPostgresRuntime stores running flows and seen markers in PostgreSQL.
// Tracking events are not logged unless cfg.Events is set.
func NewPostgresRuntime(db *sql.DB, scope string, cfg Config) (*Runtime, error) {
	state, err := persistence.NewPostgresStateStore(db, scope)
	if err != nil {
		return nil, err
	}
	return NewRuntimeWithPersistence(persistence.Persistence{State: state, Events: cfg.Events}, cfg), nil
}

// NewRedisRuntime stores running flows and seen markers under prefix.
func NewRedisRuntime(client *redis.Client, prefix string, cfg Config) *Runtime {
	return NewRuntimeWithPersistence(persistence.Persistence{
		State:  persistence.NewRedisStateStore(client, prefix),
		Events: cfg.Events,
	}, cfg)
}

// NewRuntimeWithPersistence overrides the stores in cfg with p.
func NewRuntimeWithPersistence(p persistence.Persistence, cfg Config) *Runtime {
	cfg.Store = p.State
	cfg.Events = p.Events
	return NewRuntime(cfg)
}
