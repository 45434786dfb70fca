package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"cfgd/internal/coordinator"
)

func main() {
	cmd := newRootCommand()
	err := cmd.Execute()
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(exitStatus(err))
}

// usageError marks failures caused by flags or configuration. They exit 1
// so the supervisor does not restart into the same mistake.
type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }

func (e usageError) Unwrap() error { return e.err }

func exitStatus(err error) int {
	var ue usageError
	if errors.As(err, &ue) {
		return coordinator.ExitConfig
	}
	return coordinator.ExitCode(err)
}
