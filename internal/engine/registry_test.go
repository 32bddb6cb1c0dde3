package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/petrijr/waypoint/pkg/api"
)

func TestFlowRegistry_RegisterRejectsDuplicates(t *testing.T) {
	r := newFlowRegistry()
	require.NoError(t, r.Register(branchingFlow("tour")))
	require.Error(t, r.Register(branchingFlow("tour")))
}

func TestFlowRegistry_RejectsInvalidFlows(t *testing.T) {
	r := newFlowRegistry()
	require.Error(t, r.Register(nil))
	require.Error(t, r.Register(&api.Flow{Steps: []api.Slot{modal("A")}}))

	nested := &api.Flow{
		ID: "nested",
		Steps: []api.Slot{
			api.ForkSlot(branch(api.ForkSlot(branch(modal("deep"))))),
		},
	}
	err := r.Register(nested)
	require.ErrorIs(t, err, api.ErrNestedFork)
	require.Nil(t, r.Get("nested"))
}

func TestFlowRegistry_PutReplaces(t *testing.T) {
	r := newFlowRegistry()

	replaced, err := r.Put(&api.Flow{ID: "x", Steps: []api.Slot{modal("A")}})
	require.NoError(t, err)
	require.False(t, replaced)

	replaced, err = r.Put(&api.Flow{ID: "x", Steps: []api.Slot{modal("A"), modal("B")}})
	require.NoError(t, err)
	require.True(t, replaced)
	require.Len(t, r.Get("x").Steps, 2)
}

func TestFlowRegistry_ListIsSorted(t *testing.T) {
	r := newFlowRegistry()
	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, r.Register(&api.Flow{ID: id, Steps: []api.Slot{modal(id)}}))
	}

	var ids []string
	for _, f := range r.List() {
		ids = append(ids, f.ID)
	}
	require.Equal(t, []string{"a", "b", "c"}, ids)
}
