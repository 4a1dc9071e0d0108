package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"concierge/internal/api"
	"concierge/internal/client"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Create, control and inspect enrichment queues",
	}

	queueCmd.AddCommand(newQueueStartCommand(ctx))
	queueCmd.AddCommand(newQueueStartPendingCommand(ctx))
	queueCmd.AddCommand(newQueueActiveCommand(ctx))
	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	for _, action := range []api.Action{api.ActionPause, api.ActionResume, api.ActionStop, api.ActionSkip} {
		queueCmd.AddCommand(newQueueControlCommand(ctx, action))
	}
	queueCmd.AddCommand(newQueueWatchCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueuePruneCommand(ctx))

	return queueCmd
}

type startFlags struct {
	concurrency int
	batchID     string
	watch       bool
}

func (f *startFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.concurrency, "concurrency", 0, "Parallel lookups (1 runs sequentially; 0 uses queue.default_concurrency)")
	cmd.Flags().StringVar(&f.batchID, "batch", "", "Import batch id recorded on the queue")
	cmd.Flags().BoolVarP(&f.watch, "watch", "w", false, "Follow progress until the queue completes")
}

func (f *startFlags) concurrencyValue(cmd *cobra.Command) *int {
	if !cmd.Flags().Changed("concurrency") {
		return nil
	}
	value := f.concurrency
	return &value
}

func newQueueStartCommand(ctx *commandContext) *cobra.Command {
	var flags startFlags
	cmd := &cobra.Command{
		Use:   "start <guest-id>...",
		Short: "Enrich the given guests in order",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseGuestIDs(args)
			if err != nil {
				return err
			}
			return ctx.withClient(func(cl *client.Client) error {
				resp, err := cl.StartQueue(cmd.Context(), api.StartRequest{
					GuestIDs:    ids,
					BatchID:     flags.batchID,
					Concurrency: flags.concurrencyValue(cmd),
				})
				if err != nil {
					return err
				}
				return reportStarted(cmd, cl, resp, flags.watch)
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newQueueStartPendingCommand(ctx *commandContext) *cobra.Command {
	var flags startFlags
	cmd := &cobra.Command{
		Use:   "start-pending",
		Short: "Enrich every guest that has no result yet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(cl *client.Client) error {
				resp, err := cl.StartPending(cmd.Context(), api.StartPendingRequest{
					BatchID:     flags.batchID,
					Concurrency: flags.concurrencyValue(cmd),
				})
				if err != nil {
					return err
				}
				if resp.QueueID == "" {
					fmt.Fprintln(cmd.OutOrStdout(), "No pending guests; nothing to enrich")
					return nil
				}
				return reportStarted(cmd, cl, resp, flags.watch)
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func reportStarted(cmd *cobra.Command, cl *client.Client, resp api.StartResponse, watch bool) error {
	fmt.Fprintf(cmd.OutOrStdout(), "Queue %s started: %d guests, concurrency %d\n", resp.QueueID, resp.Total, resp.Concurrency)
	if !watch {
		return nil
	}
	return followQueue(cmd.Context(), cl, resp.QueueID, cmd.OutOrStdout(), false)
}

func newQueueActiveCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "active",
		Short: "Show the running or paused queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(cl *client.Client) error {
				active, err := cl.Active(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, active)
				}
				if !active.Active || active.QueueState == nil {
					fmt.Fprintln(cmd.OutOrStdout(), "No active queue")
					return nil
				}
				printQueueState(cmd.OutOrStdout(), *active.QueueState)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw payload")
	return cmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status <queue-id>",
		Short: "Show one queue's state and errors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(cl *client.Client) error {
				state, err := cl.Queue(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, state)
				}
				printQueueState(cmd.OutOrStdout(), state)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw payload")
	return cmd
}

func newQueueControlCommand(ctx *commandContext, action api.Action) *cobra.Command {
	short := map[api.Action]string{
		api.ActionPause:  "Pause a running queue after the job in flight",
		api.ActionResume: "Resume a paused or stopped queue",
		api.ActionStop:   "Stop a queue; it can be resumed later",
		api.ActionSkip:   "Abandon the job or jobs currently in flight",
	}[action]
	return &cobra.Command{
		Use:   string(action) + " <queue-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(cl *client.Client) error {
				resp, err := cl.Control(cmd.Context(), args[0], action)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queue %s: %s requested, status %s\n", args[0], action, resp.Status)
				return nil
			})
		},
	}
}

func newQueueWatchCommand(ctx *commandContext) *cobra.Command {
	var useSSE bool
	cmd := &cobra.Command{
		Use:   "watch [queue-id]",
		Short: "Follow a queue's progress until it completes (defaults to the active queue)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(cl *client.Client) error {
				id := ""
				if len(args) == 1 {
					id = args[0]
				} else {
					active, err := cl.Active(cmd.Context())
					if err != nil {
						return err
					}
					if !active.Active || active.QueueState == nil {
						fmt.Fprintln(cmd.OutOrStdout(), "No active queue")
						return nil
					}
					id = active.QueueID
				}
				return followQueue(cmd.Context(), cl, id, cmd.OutOrStdout(), useSSE)
			})
		},
	}
	cmd.Flags().BoolVar(&useSSE, "sse", false, "Use Server-Sent Events instead of a websocket")
	return cmd
}

// followQueue redraws a single progress line on terminals and prints one
// line per change otherwise.
func followQueue(ctx context.Context, cl *client.Client, id string, out io.Writer, useSSE bool) error {
	tty := isTerminal(out)
	var last api.QueueState
	lastLine := ""
	render := func(state api.QueueState) error {
		last = state
		line := progressLine(state)
		if line == lastLine {
			return nil
		}
		lastLine = line
		if tty {
			fmt.Fprintf(out, "\r\x1b[2K%s", line)
		} else {
			fmt.Fprintln(out, line)
		}
		return nil
	}

	var err error
	if useSSE {
		err = cl.Stream(ctx, id, render)
	} else {
		err = cl.Watch(ctx, id, render)
	}
	if tty && lastLine != "" {
		fmt.Fprintln(out)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
	if last.Status == "completed" {
		fmt.Fprintf(out, "Queue %s completed: %d/%d guests, %d errors\n", id, last.Completed, last.Total, len(last.Errors))
		if len(last.Errors) > 0 {
			fmt.Fprint(out, renderTable([]string{"Guest", "Name", "Error"}, jobErrorRows(last.Errors), []columnAlignment{alignRight}))
		}
	}
	return nil
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent queues, most recently updated first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(cl *client.Client) error {
				resp, err := cl.ListQueues(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp)
				}
				if len(resp.Queues) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No queues recorded")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"Queue", "Status", "Done", "Progress", "Errors", "Batch", "Updated"},
					queueSummaryRows(resp.Queues),
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight},
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum queues to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw payload")
	return cmd
}

func newQueuePruneCommand(ctx *commandContext) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete stopped and completed queues older than N days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(cl *client.Client) error {
				resp, err := cl.PruneQueues(cmd.Context(), days)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d queues older than %d days\n", resp.Removed, days)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&days, "older-than-days", 30, "Minimum age in days")
	return cmd
}

func printQueueState(out io.Writer, state api.QueueState) {
	fmt.Fprint(out, renderTable([]string{"Field", "Value"}, queueStateRows(state), nil))
	if len(state.Errors) > 0 {
		fmt.Fprint(out, renderTable([]string{"Guest", "Name", "Error"}, jobErrorRows(state.Errors), []columnAlignment{alignRight}))
	}
}

func parseGuestIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil || id <= 0 {
				return nil, fmt.Errorf("invalid guest id %q", part)
			}
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, errors.New("at least one guest id is required")
	}
	return ids, nil
}
