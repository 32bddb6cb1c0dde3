package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/petrijr/waypoint/internal/audience"
	"github.com/petrijr/waypoint/internal/trigger"
	"github.com/petrijr/waypoint/pkg/api"
)

// HandleResult lists what an event caused, by flow id.
type HandleResult struct {
	Advanced []string
	Started  []string
}

// HandleEvent feeds a UI event to the trigger watcher. Active instances whose
// current step waits on a matching condition advance, entering the
// condition's target branch if it has one. Then flows with a matching start
// condition are started, provided they are not running, their frequency
// allows it and the user properties match their audience.
//
// An event without a location is evaluated against the last known one.
func (r *Runtime) HandleEvent(ctx context.Context, ev trigger.Event) HandleResult {
	if ev.Location != "" {
		r.SetLocation(ev.Location)
	} else {
		ev.Location = r.Location()
	}

	var res HandleResult
	for _, inst := range r.Instances() {
		at, waits, ok := inst.waitingOn()
		if !ok {
			continue
		}
		opts, matched := trigger.MatchAny(waits, ev)
		if !matched {
			continue
		}
		err := inst.next(ctx, &at, opts.TargetBranch)
		switch {
		case err == nil, errors.Is(err, api.ErrInvalidStep):
			res.Advanced = append(res.Advanced, inst.flowID)
		case errors.Is(err, errMoved), errors.Is(err, api.ErrInstanceDestroyed):
		default:
			inst.logger.Warn("wait condition met but flow could not advance", slog.Any("error", err))
		}
	}

	props := r.userProperties()
	for _, flow := range r.Flows() {
		if !r.startable(ctx, flow, props) {
			continue
		}
		if _, matched := trigger.MatchAny(flow.Start, ev); !matched {
			continue
		}
		if _, err := r.StartFlow(ctx, flow.ID, api.StartOptions{}); err != nil {
			r.logger.Warn("failed to start flow", slog.String("flow", flow.ID), slog.Any("error", err))
			continue
		}
		res.Started = append(res.Started, flow.ID)
	}
	return res
}

func (r *Runtime) startable(ctx context.Context, flow *api.Flow, props audience.Properties) bool {
	if len(flow.Start) == 0 || flow.Draft {
		return false
	}
	if _, running := r.Instance(flow.ID); running {
		return false
	}
	return r.CanStart(ctx, flow.ID) && audience.Match(flow.UserProperties, props)
}

// waitingOn returns the current index and its wait conditions, if the
// current step has any.
func (i *Instance) waitingOn() (api.StepIndex, api.WaitList, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.state == StateDestroyed {
		return api.StepIndex{}, nil, false
	}
	step, ok := i.currentStepLocked()
	if !ok || len(step.Wait) == 0 {
		return api.StepIndex{}, nil, false
	}
	return i.nav.current(), step.Wait, true
}
