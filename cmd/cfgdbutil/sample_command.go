package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"cfgd/internal/config"
)

func newConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration file utilities",
	}

	var targetPath string
	var overwrite bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a sample cfgd.toml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			target := config.DefaultConfigPath()
			if p := strings.TrimSpace(targetPath); p != "" {
				expanded, err := config.ExpandPath(p)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}
			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}
			if err := config.CreateSample(target); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\n", target)
			return nil
		},
	}
	initCmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	initCmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite an existing file")

	configCmd.AddCommand(initCmd)
	return configCmd
}
