package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"concierge/internal/api"
	"concierge/internal/client"
	"concierge/internal/daemonctl"
	"concierge/internal/daemonrun"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	var logLevel string
	var development bool
	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the concierge daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel:    logLevel,
				Development: development,
			})
		},
	}
	daemonCmd.Flags().StringVar(&logLevel, "log-level", "", "Override logging.level")
	daemonCmd.Flags().BoolVar(&development, "dev", false, "Include source locations in logs")

	var startLogLevel string
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the concierge daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("resolve executable: %w", err)
			}
			cl, err := ctx.newClient()
			if err != nil {
				return err
			}
			result, err := daemonctl.EnsureStarted(cmd.Context(), cl, exe, daemonctl.LaunchOptions{
				ConfigPath: ctx.configPath(),
				LogLevel:   startLogLevel,
			}, 10*time.Second)
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			switch result.State {
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintf(stdout, "Daemon already running (pid %d)\n", result.PID)
			default:
				fmt.Fprintf(stdout, "Daemon started (pid %d)\n", result.PID)
			}
			return nil
		},
	}
	startCmd.Flags().StringVar(&startLogLevel, "log-level", "", "Override logging.level")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the background daemon; queues resume on the next start",
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, err := ctx.newClient()
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.StopAndTerminate(cmd.Context(), cl, ctx.configValue(), 10*time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.ForcedKill {
				fmt.Fprintf(stdout, "Daemon did not exit in time; killed pid %d\n", result.PID)
				return nil
			}
			fmt.Fprintf(stdout, "Daemon stopped (pid %d)\n", result.PID)
			return nil
		},
	}

	var statusJSON bool
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, preflight and enrichment coverage status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(cl *client.Client) error {
				status, err := cl.Status(cmd.Context())
				if err != nil {
					if client.IsUnavailable(err) && !statusJSON {
						fmt.Fprintln(cmd.OutOrStdout(), renderStatusLine("Daemon", statusError, "not running", isTerminal(cmd.OutOrStdout())))
						return nil
					}
					return err
				}
				if statusJSON {
					return writeJSON(cmd, status)
				}
				printDaemonStatus(cmd, status)
				return nil
			})
		},
	}
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Print the raw status payload")

	return []*cobra.Command{daemonCmd, startCmd, stopCmd, statusCmd}
}

func printDaemonStatus(cmd *cobra.Command, status api.DaemonStatus) {
	stdout := cmd.OutOrStdout()
	colorize := isTerminal(stdout)

	for _, line := range renderSectionHeader("Daemon", colorize) {
		fmt.Fprintln(stdout, line)
	}
	kind := statusError
	state := "stopped"
	if status.Running {
		kind, state = statusOK, "running"
	}
	fmt.Fprintln(stdout, renderStatusLine("Daemon", kind, fmt.Sprintf("%s (pid %d)", state, status.PID), colorize))
	fmt.Fprintln(stdout, renderStatusLine("Provider", statusInfo, status.Provider, colorize))
	fmt.Fprintln(stdout, renderStatusLine("Database", statusInfo, status.DatabasePath, colorize))
	fmt.Fprintln(stdout, renderStatusLine("Lock file", statusInfo, status.LockFilePath, colorize))
	schedule := "disabled"
	if status.Schedule != "" {
		schedule = status.Schedule
	}
	fmt.Fprintln(stdout, renderStatusLine("Pending schedule", statusInfo, schedule, colorize))
	fmt.Fprintln(stdout)

	for _, line := range renderSectionHeader("Preflight", colorize) {
		fmt.Fprintln(stdout, line)
	}
	for _, check := range status.Preflight {
		kind := statusOK
		if !check.Passed {
			kind = statusError
		}
		fmt.Fprintln(stdout, renderStatusLine(check.Name, kind, check.Detail, colorize))
	}
	fmt.Fprintln(stdout)

	for _, line := range renderSectionHeader("Active Queue", colorize) {
		fmt.Fprintln(stdout, line)
	}
	if status.Active == nil {
		fmt.Fprintln(stdout, "No active queue")
	} else {
		fmt.Fprintln(stdout, renderStatusLine(status.Active.QueueID, queueStatusKind(status.Active.Status), progressLine(*status.Active), colorize))
	}
	fmt.Fprintln(stdout)

	for _, line := range renderSectionHeader("Enrichment Coverage", colorize) {
		fmt.Fprintln(stdout, line)
	}
	rows := [][]string{
		{"Guests", fmt.Sprintf("%d", status.Results.Guests)},
		{"Found", fmt.Sprintf("%d", status.Results.Found)},
		{"No result", fmt.Sprintf("%d", status.Results.NoResult)},
		{"Pending", fmt.Sprintf("%d", status.Results.Pending)},
	}
	fmt.Fprint(stdout, renderTable([]string{"Results", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
}
