package main

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"

	"github.com/petrijr/waypoint/internal/persistence"
)

type backendSettings struct {
	Kind  string
	DSN   string
	Scope string
}

// backend is an opened state backend. events is nil when the backend keeps
// no tracking log.
type backend struct {
	state  persistence.StateStore
	events persistence.EventStore
	close  func() error
}

func openBackend(ctx context.Context, s backendSettings) (*backend, error) {
	switch s.Kind {
	case "", "memory":
		return &backend{
			state:  persistence.NewMemoryStateStore(),
			events: persistence.NewMemoryEventStore(),
			close:  func() error { return nil },
		}, nil

	case "sqlite":
		dsn := s.DSN
		if dsn == "" {
			dsn = "file:waypoint.db?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
		}
		db, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		state, err := persistence.NewSQLiteStateStore(db, s.Scope)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		events, err := persistence.NewSQLiteEventStore(db, s.Scope)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return &backend{state: state, events: events, close: db.Close}, nil

	case "postgres":
		if s.DSN == "" {
			return nil, fmt.Errorf("postgres store requires --dsn")
		}
		db, err := sql.Open("pgx", s.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		state, err := persistence.NewPostgresStateStore(db, s.Scope)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return &backend{state: state, close: db.Close}, nil

	case "redis":
		addr := s.DSN
		if addr == "" {
			addr = "redis://localhost:6379/0"
		}
		opts, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		return &backend{
			state: persistence.NewRedisStateStore(client, "waypoint:"+s.Scope),
			close: client.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown store %q", s.Kind)
	}
}
