package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"concierge/internal/client"
)

func newResultsCommand(ctx *commandContext) *cobra.Command {
	resultsCmd := &cobra.Command{
		Use:   "results",
		Short: "Manage stored enrichment results",
	}

	resultsCmd.AddCommand(&cobra.Command{
		Use:   "clear <guest-id>...",
		Short: "Forget a guest's result or no-result marker so the next run retries it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseGuestIDs(args)
			if err != nil {
				return err
			}
			return ctx.withClient(func(cl *client.Client) error {
				out := cmd.OutOrStdout()
				for _, id := range ids {
					resp, err := cl.ClearResult(cmd.Context(), id)
					if err != nil {
						return fmt.Errorf("guest %d: %w", id, err)
					}
					if resp.Cleared {
						fmt.Fprintf(out, "Guest %d: result cleared\n", id)
					} else {
						fmt.Fprintf(out, "Guest %d: no stored result\n", id)
					}
				}
				return nil
			})
		},
	})

	return resultsCmd
}
