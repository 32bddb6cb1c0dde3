package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/petrijr/waypoint/pkg/api"
)

// SQLiteStateStore is a StateStore backed by SQLite.
//
// It expects an *sql.DB that uses a SQLite driver (for example,
// "modernc.org/sqlite"). The caller is responsible for importing
// the driver, e.g.:
//
//	import _ "modernc.org/sqlite"
//
// Rows are partitioned by scope, typically a user id, so several users can
// share one database.
type SQLiteStateStore struct {
	db    *sql.DB
	scope string
}

// Ensure SQLiteStateStore implements StateStore.
var _ StateStore = (*SQLiteStateStore)(nil)

// NewSQLiteStateStore initializes the required schema in the given
// database and returns a new SQLiteStateStore.
func NewSQLiteStateStore(db *sql.DB, scope string) (*SQLiteStateStore, error) {
	s := &SQLiteStateStore{db: db, scope: scope}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStateStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS running_flows (
			scope TEXT NOT NULL,
			flow_id TEXT NOT NULL,
			history TEXT NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (scope, flow_id)
		);
		CREATE TABLE IF NOT EXISTS seen_flows (
			scope TEXT NOT NULL,
			flow_id TEXT NOT NULL,
			seen_at INTEGER NOT NULL,
			PRIMARY KEY (scope, flow_id)
		);`,
	)
	return err
}

func (s *SQLiteStateStore) SaveRunningFlow(ctx context.Context, flowID string, history api.History) error {
	data, err := EncodeHistory(history)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO running_flows (scope, flow_id, history, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (scope, flow_id) DO UPDATE SET
			history = excluded.history,
			updated_at = excluded.updated_at`,
		s.scope, flowID, string(data), time.Now().UnixNano(),
	)
	return err
}

func (s *SQLiteStateStore) GetRunningFlow(ctx context.Context, flowID string) (RunningFlow, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT history, updated_at FROM running_flows
		WHERE scope = ? AND flow_id = ?`, s.scope, flowID)

	var (
		data      string
		updatedAt int64
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
	return RunningFlow{FlowID: flowID, History: h, UpdatedAt: time.Unix(0, updatedAt)}, nil
}

func (s *SQLiteStateStore) ListRunningFlows(ctx context.Context) ([]RunningFlow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT flow_id, history, updated_at FROM running_flows
		WHERE scope = ?
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
			updatedAt int64
		)
		if err := rows.Scan(&id, &data, &updatedAt); err != nil {
			return nil, err
		}
		h, err := DecodeHistory([]byte(data))
		if err != nil {
			return nil, err
		}
		out = append(out, RunningFlow{FlowID: id, History: h, UpdatedAt: time.Unix(0, updatedAt)})
	}
	return out, rows.Err()
}

func (s *SQLiteStateStore) RemoveRunningFlow(ctx context.Context, flowID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM running_flows WHERE scope = ? AND flow_id = ?`, s.scope, flowID)
	return err
}

func (s *SQLiteStateStore) MarkSeen(ctx context.Context, flowID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO seen_flows (scope, flow_id, seen_at)
		VALUES (?, ?, ?)
		ON CONFLICT (scope, flow_id) DO UPDATE SET seen_at = excluded.seen_at`,
		s.scope, flowID, at.UnixNano(),
	)
	return err
}

func (s *SQLiteStateStore) SeenFlows(ctx context.Context) (map[string]time.Time, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT flow_id, seen_at FROM seen_flows WHERE scope = ?`, s.scope)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]time.Time)
	for rows.Next() {
		var (
			id string
			at int64
		)
		if err := rows.Scan(&id, &at); err != nil {
			return nil, err
		}
		out[id] = time.Unix(0, at)
	}
	return out, rows.Err()
}

func (s *SQLiteStateStore) ForgetSeen(ctx context.Context, flowID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM seen_flows WHERE scope = ? AND flow_id = ?`, s.scope, flowID)
	return err
}
