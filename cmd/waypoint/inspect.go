package main

import (
	"context"
	"fmt"
	"io"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/petrijr/waypoint"
)

func newInspectCmd(c *cli) *cobra.Command {
	var (
		flowID     string
		showEvents bool
	)

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show running flows, seen flows and tracking events of a scope",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.inspect(cmd.Context(), cmd.OutOrStdout(), flowID, showEvents)
		},
	}
	cmd.Flags().StringVar(&flowID, "flow", "", "only show this flow")
	cmd.Flags().BoolVar(&showEvents, "events", false, "list logged tracking events")
	return cmd
}

func (c *cli) inspect(ctx context.Context, out io.Writer, flowID string, showEvents bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	be, err := openBackend(ctx, c.backendSettings())
	if err != nil {
		return err
	}
	defer be.close()

	running, err := be.state.ListRunningFlows(ctx)
	if err != nil {
		return err
	}
	seen, err := be.state.SeenFlows(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "RUNNING\tSTEP\tHISTORY\tUPDATED")
	for _, rf := range running {
		if flowID != "" && rf.FlowID != flowID {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", rf.FlowID, rf.History.Current(), len(rf.History), when(rf.UpdatedAt))
	}
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "SEEN\tLAST SEEN\t\t")
	ids := make([]string, 0, len(seen))
	for id := range seen {
		if flowID == "" || id == flowID {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	for _, id := range ids {
		fmt.Fprintf(tw, "%s\t%s\t\t\n", id, when(seen[id]))
	}

	if showEvents {
		if be.events == nil {
			fmt.Fprintln(tw)
			fmt.Fprintln(tw, "the configured store keeps no tracking log")
		} else if err := printEvents(ctx, tw, be, flowID); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func printEvents(ctx context.Context, w io.Writer, be *backend, flowID string) error {
	events, err := be.events.ListEvents(ctx, flowID)
	if err != nil {
		return err
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "EVENT\tFLOW\tSTEP\tAT")
	for _, ev := range events {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", ev.Type, ev.FlowID, ev.StepIndex, when(ev.At))
	}
	return nil
}

func when(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

func newResetCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "reset FLOW...",
		Short: "Forget the progress and seen marker of flows",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			be, err := openBackend(ctx, c.backendSettings())
			if err != nil {
				return err
			}
			defer be.close()

			rt := waypoint.NewRuntime(waypoint.Config{Store: be.state, Logger: c.logger})
			defer rt.Close()
			for _, id := range args {
				if err := rt.ResetFlow(ctx, id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "reset %s\n", id)
			}
			return nil
		},
	}
}
