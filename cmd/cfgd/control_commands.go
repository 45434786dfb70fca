package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"cfgd/internal/ipc"
)

func newExitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "exit",
		Short: "Ask a running cfgd to exit at its next tick",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if err := client.Exit(); err != nil {
					return fmt.Errorf("request exit: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Exit requested")
				return nil
			})
		},
	}
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the progress of a running cfgd",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				status, err := client.Status()
				if err != nil {
					return fmt.Errorf("query status: %w", err)
				}
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(status)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderStatus(status))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func renderStatus(status *ipc.StatusResponse) string {
	step := status.Step
	if step == "" {
		step = "starting"
	}
	rows := [][]string{
		{"PID", strconv.Itoa(status.PID)},
		{"Run ID", status.RunID},
		{"Step", step},
		{"Cursor", strconv.Itoa(status.Cursor)},
		{"Terminating", yesNo(status.Terminating)},
		{"Startup Config", yesNo(status.HasStartup)},
		{"Config DB", status.ConfigDB},
		{"Running DB", status.RunningDB},
	}
	return renderTable([]string{"Field", "Value"}, rows, nil)
}
