package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"cfgd/internal/cfgdb"
)

const exitFailure = 2

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := runCLI(ctx, newRootCommand())
	stop()
	os.Exit(code)
}

// runCLI executes cmd and returns the process exit status. Failures are
// reported on the command's stdout; stderr carries logs only.
func runCLI(ctx context.Context, cmd *cobra.Command) int {
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	if !errors.Is(err, context.Canceled) {
		fmt.Fprintln(cmd.OutOrStdout(), describeError(err))
	}
	return exitFailure
}

// describeError turns classified store errors into operator messages.
func describeError(err error) string {
	var classified cfgdb.ErrorClassifier
	if !errors.As(err, &classified) {
		return err.Error()
	}
	switch classified.ErrorKind() {
	case "not_found":
		return "No saved configuration exists"
	case "decode":
		return "Saved configuration is not valid: " + err.Error()
	case "commit_conflict":
		return "Saving the configuration failed; retry the command: " + err.Error()
	default:
		return err.Error()
	}
}
