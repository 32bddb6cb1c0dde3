package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/petrijr/waypoint/internal/testutil"
	"github.com/petrijr/waypoint/pkg/api"
)

func TestSQLiteStateStore_Contract(t *testing.T) {
	db := testutil.OpenSQLite(t)

	store, err := NewSQLiteStateStore(db, "user-1")
	require.NoError(t, err)

	runStateStoreContract(t, store)
}

func TestSQLiteStateStore_ScopesAreIsolated(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenSQLite(t)

	alice, err := NewSQLiteStateStore(db, "alice")
	require.NoError(t, err)
	bob, err := NewSQLiteStateStore(db, "bob")
	require.NoError(t, err)

	require.NoError(t, alice.SaveRunningFlow(ctx, "onboarding", api.History{api.Scalar(0), api.Scalar(1)}))
	require.NoError(t, alice.MarkSeen(ctx, "tour", time.Now()))

	_, err = bob.GetRunningFlow(ctx, "onboarding")
	require.ErrorIs(t, err, ErrRunningFlowNotFound)

	seen, err := bob.SeenFlows(ctx)
	require.NoError(t, err)
	require.Empty(t, seen)

	list, err := alice.ListRunningFlows(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestSQLiteStateStore_SchemaIsReentrant(t *testing.T) {
	db := testutil.OpenSQLite(t)

	_, err := NewSQLiteStateStore(db, "")
	require.NoError(t, err)
	_, err = NewSQLiteStateStore(db, "")
	require.NoError(t, err)
}

func TestSQLiteEventStore_AppendAndList(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenSQLite(t)

	events, err := NewSQLiteEventStore(db, "user-1")
	require.NoError(t, err)

	at := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)
	require.NoError(t, events.AppendEvent(ctx, api.TrackingEvent{
		FlowID: "onboarding", Type: api.EventStartFlow, StepIndex: api.Scalar(0), FlowHash: "abc", At: at,
	}))
	require.NoError(t, events.AppendEvent(ctx, api.TrackingEvent{
		FlowID: "onboarding", Type: api.EventNextStep, StepIndex: api.Path(1, 0, 0), StepID: "b1", StepHash: "def",
		Location: "/settings",
	}))
	require.NoError(t, events.AppendEvent(ctx, api.TrackingEvent{FlowID: "other", Type: api.EventStartFlow}))

	got, err := events.ListEvents(ctx, "onboarding")
	require.NoError(t, err)
	require.Len(t, got, 2)

	require.Equal(t, api.EventStartFlow, got[0].Type)
	require.True(t, got[0].At.Equal(at))
	require.Equal(t, "abc", got[0].FlowHash)

	require.Equal(t, api.EventNextStep, got[1].Type)
	require.True(t, got[1].StepIndex.Equal(api.Path(1, 0, 0)))
	require.Equal(t, "b1", got[1].StepID)
	require.Equal(t, "/settings", got[1].Location)

	all, err := events.ListEvents(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestEventTracker_AppendsToStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryEventStore()
	tracker := NewEventTracker(store)

	require.NoError(t, tracker.Track(ctx, api.TrackingEvent{FlowID: "f", Type: api.EventCancelFlow}))

	got, err := store.ListEvents(ctx, "f")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, api.EventCancelFlow, got[0].Type)
	require.False(t, got[0].At.IsZero())
}

func TestHistoryCodec(t *testing.T) {
	h := api.History{api.Scalar(0), api.Path(1, 1, 0), api.Scalar(2)}

	data, err := EncodeHistory(h)
	require.NoError(t, err)
	require.JSONEq(t, `[0,[1,1,0],2]`, string(data))

	back, err := DecodeHistory(data)
	require.NoError(t, err)
	require.Len(t, back, 3)
	require.True(t, back[1].Equal(api.Path(1, 1, 0)))

	_, err = DecodeHistory([]byte(`[[1,0]]`))
	require.ErrorIs(t, err, api.ErrInvalidStepIndex)

	empty, err := DecodeHistory(nil)
	require.NoError(t, err)
	require.Empty(t, empty)
}
