package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/petrijr/waypoint/pkg/api"
)

var (
	// ErrRunningFlowNotFound is returned when no progress is stored for a flow.
	ErrRunningFlowNotFound = errors.New("running flow not found")
)

// RunningFlow is the persisted progress of one flow.
type RunningFlow struct {
	FlowID    string
	History   api.History
	UpdatedAt time.Time
}

// StateStore holds the persistent state of one user: the step history of
// every running flow and the flows already seen.
//
// SaveRunningFlow is called after every history change and must be
// idempotent. RemoveRunningFlow and ForgetSeen succeed when nothing is stored.
type StateStore interface {
	SaveRunningFlow(ctx context.Context, flowID string, history api.History) error
	GetRunningFlow(ctx context.Context, flowID string) (RunningFlow, error)
	// ListRunningFlows returns running flows ordered by flow id.
	ListRunningFlows(ctx context.Context) ([]RunningFlow, error)
	RemoveRunningFlow(ctx context.Context, flowID string) error

	MarkSeen(ctx context.Context, flowID string, at time.Time) error
	// SeenFlows maps flow ids to the time they were last seen.
	SeenFlows(ctx context.Context) (map[string]time.Time, error)
	ForgetSeen(ctx context.Context, flowID string) error
}
