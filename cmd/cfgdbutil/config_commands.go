package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"cfgd/internal/cfgdb"
	"cfgd/internal/cfgsync"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var details bool
	cmd := &cobra.Command{
		Use:   "show startup-config [json|cli]",
		Short: "Print the saved startup configuration",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := startupKind(args[0])
			if err != nil {
				return err
			}
			var format cfgsync.Format
			if len(args) == 2 {
				if format, err = cfgsync.ParseFormat(args[1]); err != nil {
					return err
				}
			}
			w, err := ctx.workflows(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return w.Show(cmd.Context(), cfgsync.ShowRequest{Kind: kind, Format: format, Details: details})
		},
	}
	cmd.Flags().BoolVar(&details, "details", false, "Also print the saved row's metadata")
	return cmd
}

func newCopyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "copy <running-config|startup-config> <startup-config|running-config>",
		Short: "Copy configuration between the running database and the startup row",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := ctx.workflows(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return w.Copy(cmd.Context(), args[0], args[1])
		},
	}
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete startup-config",
		Short: "Delete the saved startup configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := startupKind(args[0])
			if err != nil {
				return err
			}
			w, err := ctx.workflows(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return w.Delete(cmd.Context(), kind)
		},
	}
}

func newSchemaCommand(ctx *commandContext) *cobra.Command {
	schemaCmd := &cobra.Command{
		Use:   "schema",
		Short: "Database schema utilities",
	}
	schemaCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the config store and running database tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := ctx.workflows(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if err := w.InitSchemas(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schemas initialized")
			return nil
		},
	})
	return schemaCmd
}

// startupKind accepts only the startup configuration name.
func startupKind(name string) (string, error) {
	kind, err := cfgsync.KindForName(name)
	if err != nil {
		return "", err
	}
	if kind != cfgdb.KindStartup {
		return "", fmt.Errorf("%w: expected %s, got %s", cfgsync.ErrUnknownConfig, cfgsync.StartupConfig, strings.TrimSpace(name))
	}
	return kind, nil
}
