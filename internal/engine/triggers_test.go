package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/petrijr/waypoint/internal/audience"
	"github.com/petrijr/waypoint/internal/trigger"
	"github.com/petrijr/waypoint/pkg/api"
)

func click(selectors ...string) trigger.Event {
	return trigger.Event{Kind: trigger.KindClick, Target: selectors}
}

func TestHandleEvent_AdvancesWaitingStep(t *testing.T) {
	ctx := context.Background()
	flow := &api.Flow{
		ID: "wait",
		Steps: []api.Slot{
			modal("A"),
			waitFor(api.WaitOptions{ClickElement: "#go"}),
			modal("B"),
		},
	}
	h := newHarness(t, newFakeRenderer(), []*api.Flow{flow})

	inst, err := h.rt.StartFlow(ctx, "wait", api.StartOptions{})
	require.NoError(t, err)

	// Step A has no wait conditions.
	res := h.rt.HandleEvent(ctx, click("#go"))
	require.Empty(t, res.Advanced)

	require.NoError(t, inst.NextStep(ctx))
	require.True(t, inst.CurrentIndex().Equal(api.Scalar(1)))

	res = h.rt.HandleEvent(ctx, click("#other"))
	require.Empty(t, res.Advanced)

	res = h.rt.HandleEvent(ctx, click("#go"))
	require.Equal(t, []string{"wait"}, res.Advanced)
	require.True(t, inst.CurrentIndex().Equal(api.Scalar(2)))
	require.Equal(t, []string{"A", "B"}, h.renderer.renderedTitles())

	h.flush(t)
	require.Equal(t, 2, h.tracker.count(api.EventNextStep))
}

func TestHandleEvent_EntersTargetBranch(t *testing.T) {
	ctx := context.Background()
	flow := &api.Flow{
		ID: "choose",
		Steps: []api.Slot{
			api.StepSlot(api.Step{
				Title: "Pick one",
				Wait: api.WaitList{
					{ClickElement: "#left", TargetBranch: intPtr(0)},
					{ClickElement: "#right", TargetBranch: intPtr(1)},
				},
			}),
			api.ForkSlot(branch(modal("L")), branch(modal("R"))),
		},
	}
	h := newHarness(t, newFakeRenderer(), []*api.Flow{flow})

	inst, err := h.rt.StartFlow(ctx, "choose", api.StartOptions{})
	require.NoError(t, err)

	res := h.rt.HandleEvent(ctx, click("#right"))
	require.Equal(t, []string{"choose"}, res.Advanced)
	require.True(t, inst.CurrentIndex().Equal(api.Path(1, 1, 0)))

	step, ok := inst.CurrentStep()
	require.True(t, ok)
	require.Equal(t, "R", step.Title)
}

func TestHandleEvent_ElementConditionMatchesAnyEventKind(t *testing.T) {
	ctx := context.Background()
	flow := &api.Flow{
		ID:    "panel",
		Steps: []api.Slot{waitFor(api.WaitOptions{Element: "#panel"}), modal("Done")},
	}
	h := newHarness(t, newFakeRenderer(), []*api.Flow{flow})

	inst, err := h.rt.StartFlow(ctx, "panel", api.StartOptions{})
	require.NoError(t, err)

	res := h.rt.HandleEvent(ctx, trigger.Event{Kind: trigger.KindClick, Target: []string{"#x"}, Present: []string{"#panel"}})
	require.Equal(t, []string{"panel"}, res.Advanced)
	require.True(t, inst.CurrentIndex().Equal(api.Scalar(1)))
}

func TestHandleEvent_UsesLastKnownLocation(t *testing.T) {
	ctx := context.Background()
	flow := &api.Flow{
		ID:    "loc",
		Steps: []api.Slot{waitFor(api.WaitOptions{Location: "^/settings", ClickElement: "#save"}), modal("Saved")},
	}
	h := newHarness(t, newFakeRenderer(), []*api.Flow{flow})

	inst, err := h.rt.StartFlow(ctx, "loc", api.StartOptions{})
	require.NoError(t, err)

	res := h.rt.HandleEvent(ctx, click("#save"))
	require.Empty(t, res.Advanced)

	h.rt.HandleEvent(ctx, trigger.Event{Kind: trigger.KindLocation, Location: "/settings/profile"})
	require.Equal(t, "/settings/profile", h.rt.Location())

	res = h.rt.HandleEvent(ctx, click("#save"))
	require.Equal(t, []string{"loc"}, res.Advanced)
	require.True(t, inst.CurrentIndex().Equal(api.Scalar(1)))
}

func TestHandleEvent_AutoStart(t *testing.T) {
	ctx := context.Background()
	flow := &api.Flow{
		ID:    "welcome",
		Start: api.WaitList{{Location: "^/dashboard$"}},
		Steps: []api.Slot{modal("Hi")},
	}
	h := newHarness(t, newFakeRenderer(), []*api.Flow{flow})

	res := h.rt.HandleEvent(ctx, trigger.Event{Kind: trigger.KindLocation, Location: "/settings"})
	require.Empty(t, res.Started)

	res = h.rt.HandleEvent(ctx, trigger.Event{Kind: trigger.KindLocation, Location: "/dashboard"})
	require.Equal(t, []string{"welcome"}, res.Started)

	inst, ok := h.rt.Instance("welcome")
	require.True(t, ok)

	// Already running.
	res = h.rt.HandleEvent(ctx, trigger.Event{Kind: trigger.KindElement})
	require.Empty(t, res.Started)

	// Seen once; never again.
	require.NoError(t, inst.Finish(ctx))
	res = h.rt.HandleEvent(ctx, trigger.Event{Kind: trigger.KindLocation, Location: "/dashboard"})
	require.Empty(t, res.Started)

	h.flush(t)
	require.Equal(t, []api.EventType{api.EventStartFlow, api.EventFinishFlow}, h.tracker.types())
}

func TestHandleEvent_AutoStartRespectsAudience(t *testing.T) {
	ctx := context.Background()
	flow := &api.Flow{
		ID:    "admins",
		Start: api.WaitList{{Location: "^/"}},
		UserProperties: api.UserPropertyGroups{
			{{Key: "role", Eq: "admin"}},
		},
		Steps: []api.Slot{modal("Hi")},
	}
	draft := &api.Flow{
		ID:    "draft",
		Draft: true,
		Start: api.WaitList{{Location: "^/"}},
		Steps: []api.Slot{modal("Preview")},
	}
	manual := &api.Flow{ID: "manual", Steps: []api.Slot{modal("Manual")}}
	h := newHarness(t, newFakeRenderer(), []*api.Flow{flow, draft, manual})

	h.rt.SetUserProperties(audience.Properties{"role": "member"})
	res := h.rt.HandleEvent(ctx, trigger.Event{Kind: trigger.KindLocation, Location: "/"})
	require.Empty(t, res.Started)

	h.rt.SetUserProperties(audience.Properties{"role": "admin"})
	res = h.rt.HandleEvent(ctx, trigger.Event{Kind: trigger.KindLocation, Location: "/"})
	require.Equal(t, []string{"admins"}, res.Started)
}

func TestHandleEvent_IgnoresDestroyedInstances(t *testing.T) {
	ctx := context.Background()
	flow := &api.Flow{
		ID:    "wait",
		Steps: []api.Slot{waitFor(api.WaitOptions{ClickElement: "#go"}), modal("B")},
	}
	h := newHarness(t, newFakeRenderer(), []*api.Flow{flow})

	inst, err := h.rt.StartFlow(ctx, "wait", api.StartOptions{})
	require.NoError(t, err)
	inst.Destroy(ctx)

	res := h.rt.HandleEvent(ctx, click("#go"))
	require.Empty(t, res.Advanced)
	require.True(t, inst.CurrentIndex().Equal(api.Scalar(0)))
}
