package persistence

import (
	"context"
	"database/sql"
	"time"

	"github.com/petrijr/waypoint/pkg/api"
)

// SQLiteEventStore stores tracking events in SQLite.
type SQLiteEventStore struct {
	db    *sql.DB
	scope string
}

// Ensure SQLiteEventStore implements the interfaces.
var _ EventStore = (*SQLiteEventStore)(nil)

func NewSQLiteEventStore(db *sql.DB, scope string) (*SQLiteEventStore, error) {
	s := &SQLiteEventStore{db: db, scope: scope}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteEventStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS tracking_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			scope TEXT NOT NULL,
			flow_id TEXT NOT NULL,
			at INTEGER NOT NULL,
			type TEXT NOT NULL,
			step_index TEXT NOT NULL DEFAULT '0',
			step_id TEXT NOT NULL DEFAULT '',
			step_hash TEXT NOT NULL DEFAULT '',
			flow_hash TEXT NOT NULL DEFAULT '',
			location TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_tracking_events_flow_id ON tracking_events(scope, flow_id, id);
	`)
	return err
}

func (s *SQLiteEventStore) AppendEvent(ctx context.Context, ev api.TrackingEvent) error {
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	idx, err := EncodeStepIndex(ev.StepIndex)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tracking_events (scope, flow_id, at, type, step_index, step_id, step_hash, flow_hash, location)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.scope,
		ev.FlowID,
		at.UnixNano(),
		string(ev.Type),
		idx,
		ev.StepID,
		ev.StepHash,
		ev.FlowHash,
		ev.Location,
	)
	return err
}

func (s *SQLiteEventStore) ListEvents(ctx context.Context, flowID string) ([]api.TrackingEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT flow_id, at, type, step_index, step_id, step_hash, flow_hash, location
		FROM tracking_events
		WHERE scope = ? AND (? = '' OR flow_id = ?)
		ORDER BY id ASC`, s.scope, flowID, flowID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []api.TrackingEvent
	for rows.Next() {
		var (
			id       string
			atN      int64
			typ      string
			idxRaw   string
			stepID   string
			stepHash string
			flowHash string
			location string
		)
		if err := rows.Scan(&id, &atN, &typ, &idxRaw, &stepID, &stepHash, &flowHash, &location); err != nil {
			return nil, err
		}
		idx, err := DecodeStepIndex(idxRaw)
		if err != nil {
			return nil, err
		}
		out = append(out, api.TrackingEvent{
			FlowID:    id,
			At:        time.Unix(0, atN),
			Type:      api.EventType(typ),
			StepIndex: idx,
			StepID:    stepID,
			StepHash:  stepHash,
			FlowHash:  flowHash,
			Location:  location,
		})
	}
	return out, rows.Err()
}
