package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/petrijr/waypoint"
)

type walkOptions struct {
	branches []int
	location string
	user     map[string]string
	again    bool
}

func newWalkCmd(c *cli) *cobra.Command {
	var opts walkOptions

	cmd := &cobra.Command{
		Use:   "walk FILE [FLOW...]",
		Short: "Walk flows from a definition file step by step",
		Long: `Walk loads flow definitions and presents their steps headlessly, advancing
until a flow finishes or reaches a step that waits for user interaction.
Progress is persisted in the configured store, so a later walk resumes it.

Flows named on the command line are started explicitly. With --location,
flows whose start conditions match the pathname start automatically.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.walk(cmd.Context(), cmd.OutOrStdout(), args[0], args[1:], opts)
		},
	}

	cmd.Flags().IntSliceVar(&opts.branches, "branch", nil, "branch to enter at each fork, consumed in order (repeatable)")
	cmd.Flags().StringVar(&opts.location, "location", "", "pathname to visit before walking")
	cmd.Flags().StringToStringVar(&opts.user, "user", nil, "user property key=value (repeatable)")
	cmd.Flags().BoolVar(&opts.again, "again", false, "start flows even if they were already seen")
	return cmd
}

func (c *cli) walk(ctx context.Context, out io.Writer, file string, flowIDs []string, opts walkOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	flows, err := waypoint.LoadFlowFile(file)
	if err != nil {
		return err
	}

	be, err := openBackend(ctx, c.backendSettings())
	if err != nil {
		return err
	}
	defer be.close()

	props := make(waypoint.Properties, len(opts.user))
	for k, v := range opts.user {
		props[k] = v
	}

	runner := waypoint.NewLocalRunner(waypoint.Config{
		Store:          be.state,
		Events:         be.events,
		Logger:         c.logger,
		UserProperties: props,
	})
	defer runner.Close()

	if err := waypoint.RegisterAll(runner.Runtime, flows); err != nil {
		return err
	}
	if n, err := runner.Runtime.Resume(ctx); err != nil {
		return err
	} else if n > 0 {
		fmt.Fprintf(out, "resumed %d flow(s)\n", n)
	}

	if opts.location != "" {
		res := runner.Visit(ctx, opts.location)
		for _, id := range res.Started {
			fmt.Fprintf(out, "started %s on %s\n", id, opts.location)
		}
	}
	for _, id := range flowIDs {
		if _, err := runner.Runtime.StartFlow(ctx, id, waypoint.StartOptions{Again: opts.again}); err != nil {
			return err
		}
	}

	branches := opts.branches
	for _, inst := range runner.Runtime.Instances() {
		if err := walkInstance(ctx, out, runner.Runtime, inst, &branches); err != nil {
			return err
		}
	}

	if err := runner.Runtime.Flush(ctx); err != nil {
		return err
	}
	if be.events != nil {
		events, err := be.events.ListEvents(ctx, "")
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%d tracking event(s) recorded\n", len(events))
	}
	return nil
}

// walkInstance advances inst until it finishes or waits on a condition.
func walkInstance(ctx context.Context, out io.Writer, rt *waypoint.Runtime, inst *waypoint.Instance, branches *[]int) error {
	flow, ok := rt.Flow(inst.FlowID())
	if !ok {
		return fmt.Errorf("flow %s is not registered", inst.FlowID())
	}

	for {
		idx := inst.CurrentIndex()
		step, ok := inst.CurrentStep()
		if !ok {
			fmt.Fprintf(out, "%s %s: step not loaded\n", inst.FlowID(), idx)
			return nil
		}
		fmt.Fprintf(out, "%s %s %s %s\n", inst.FlowID(), idx, step.Kind(), step.Title)

		if len(step.Wait) > 0 {
			fmt.Fprintf(out, "  waiting for %s\n", describeWaits(step.Wait))
			return nil
		}
		if !inst.HasNextStep() {
			if err := inst.Finish(ctx); err != nil {
				return err
			}
			fmt.Fprintf(out, "%s finished\n", inst.FlowID())
			return nil
		}

		var err error
		if nextIsFork(flow, idx) {
			if len(*branches) == 0 {
				return fmt.Errorf("flow %s: the step after %s is a fork, pass --branch", inst.FlowID(), idx)
			}
			b := (*branches)[0]
			*branches = (*branches)[1:]
			err = inst.NextStep(ctx, b)
		} else {
			err = inst.NextStep(ctx)
		}
		if err != nil {
			return fmt.Errorf("flow %s: %w", inst.FlowID(), err)
		}
	}
}

// nextIsFork reports whether the slot after idx is a fork.
func nextIsFork(flow *waypoint.Flow, idx waypoint.StepIndex) bool {
	var pos int
	if idx.IsScalar() {
		pos = idx.Position() + 1
	} else {
		c := idx.Components()
		branch := flow.Steps[c[0]].Fork[c[1]]
		if c[2]+1 < len(branch) {
			return false
		}
		pos = c[0] + 1
	}
	return pos < len(flow.Steps) && flow.Steps[pos].IsFork()
}

func describeWaits(list waypoint.WaitList) string {
	parts := make([]string, 0, len(list))
	for _, w := range list {
		var conds []string
		if w.Location != "" {
			conds = append(conds, "location ~ "+w.Location)
		}
		if w.Element != "" {
			conds = append(conds, "element "+w.Element)
		}
		if w.ClickElement != "" {
			conds = append(conds, "click on "+w.ClickElement)
		}
		if w.Form != nil {
			conds = append(conds, "submit of "+w.Form.FormElement)
		}
		if len(w.Change) > 0 {
			conds = append(conds, fmt.Sprintf("change of %d field(s)", len(w.Change)))
		}
		desc := strings.Join(conds, " and ")
		if w.TargetBranch != nil {
			desc += fmt.Sprintf(" -> branch %d", *w.TargetBranch)
		}
		parts = append(parts, desc)
	}
	return strings.Join(parts, " or ")
}
