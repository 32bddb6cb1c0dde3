package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/petrijr/waypoint/pkg/api"
)

// PostgresStateStore is a StateStore backed by PostgreSQL.
//
// It expects an *sql.DB that uses a PostgreSQL driver (for example,
// "github.com/jackc/pgx/v5/stdlib").
//
// The caller is responsible for:
//   - importing the driver for its side effects, e.g.:
//     _ "github.com/jackc/pgx/v5/stdlib"
//   - providing a DSN via sql.Open.
type PostgresStateStore struct {
	db    *sql.DB
	scope string
}

// Ensure PostgresStateStore implements StateStore.
var _ StateStore = (*PostgresStateStore)(nil)

// NewPostgresStateStore initializes the required schema in the given
// database and returns a new PostgresStateStore.
func NewPostgresStateStore(db *sql.DB, scope string) (*PostgresStateStore, error) {
	s := &PostgresStateStore{db: db, scope: scope}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStateStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS waypoint_running_flows (
			scope TEXT NOT NULL,
			flow_id TEXT NOT NULL,
			history JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (scope, flow_id)
		);
		CREATE TABLE IF NOT EXISTS waypoint_seen_flows (
			scope TEXT NOT NULL,
			flow_id TEXT NOT NULL,
			seen_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (scope, flow_id)
		);
	`)
	if err != nil {
		return fmt.Errorf("init postgres schema: %w", err)
	}
	return nil
}

func (s *PostgresStateStore) SaveRunningFlow(ctx context.Context, flowID string, history api.History) error {
	data, err := EncodeHistory(history)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO waypoint_running_flows (scope, flow_id, history, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (scope, flow_id) DO UPDATE SET
			history = EXCLUDED.history,
			updated_at = EXCLUDED.updated_at`,
		s.scope, flowID, string(data), time.Now().UTC(),
	)
	return err
}

func (s *PostgresStateStore) GetRunningFlow(ctx context.Context, flowID string) (RunningFlow, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT history::text, updated_at FROM waypoint_running_flows
		WHERE scope = $1 AND flow_id = $2`, s.scope, flowID)

	var (
		data      string
		updatedAt time.Time
	)
	if err := row.Scan(&data, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RunningFlow{}, ErrRunningFlowNotFound
		}
		return RunningFlow{}, err
	}
	h, err := DecodeHistory([]byte(data))
	if err != nil {
		return RunningFlow{}, err
	}
	return RunningFlow{FlowID: flowID, History: h, UpdatedAt: updatedAt}, nil
}

func (s *PostgresStateStore) ListRunningFlows(ctx context.Context) ([]RunningFlow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT flow_id, history::text, updated_at FROM waypoint_running_flows
		WHERE scope = $1
		ORDER BY flow_id ASC`, s.scope)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunningFlow
	for rows.Next() {
		var (
			id        string
			data      string
			updatedAt time.Time
		)
		if err := rows.Scan(&id, &data, &updatedAt); err != nil {
			return nil, err
		}
		h, err := DecodeHistory([]byte(data))
		if err != nil {
			return nil, err
		}
		out = append(out, RunningFlow{FlowID: id, History: h, UpdatedAt: updatedAt})
	}
	return out, rows.Err()
}

func (s *PostgresStateStore) RemoveRunningFlow(ctx context.Context, flowID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM waypoint_running_flows WHERE scope = $1 AND flow_id = $2`, s.scope, flowID)
	return err
}

func (s *PostgresStateStore) MarkSeen(ctx context.Context, flowID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO waypoint_seen_flows (scope, flow_id, seen_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (scope, flow_id) DO UPDATE SET seen_at = EXCLUDED.seen_at`,
		s.scope, flowID, at.UTC(),
	)
	return err
}

func (s *PostgresStateStore) SeenFlows(ctx context.Context) (map[string]time.Time, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT flow_id, seen_at FROM waypoint_seen_flows WHERE scope = $1`, s.scope)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]time.Time)
	for rows.Next() {
		var (
			id string
			at time.Time
		)
		if err := rows.Scan(&id, &at); err != nil {
			return nil, err
		}
		out[id] = at
	}
	return out, rows.Err()
}

func (s *PostgresStateStore) ForgetSeen(ctx context.Context, flowID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM waypoint_seen_flows WHERE scope = $1 AND flow_id = $2`, s.scope, flowID)
	return err
}
