package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"cfgd/internal/config"
	"cfgd/internal/ipc"
)

type commandContext struct {
	configFlag   string
	databaseFlag string
	configDBFlag string
	socketFlag   string
	logLevelFlag string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(strings.TrimSpace(c.configFlag))
		if err != nil {
			c.configErr = err
			return
		}
		err = cfg.Apply(config.Overrides{
			ConfigDB:   c.configDBFlag,
			RunningDB:  c.databaseFlag,
			SocketPath: c.socketFlag,
			LogLevel:   c.logLevelFlag,
		})
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) withClient(fn func(*ipc.Client) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return usageError{err}
	}
	socket := cfg.Daemon.SocketPath
	client, err := ipc.Dial(socket)
	if err != nil {
		return wrapDialError(err, socket)
	}
	defer client.Close()
	return fn(client)
}

func wrapDialError(err error, socket string) error {
	switch {
	case errors.Is(err, syscall.ENOENT) || os.IsNotExist(err):
		return fmt.Errorf("connect to cfgd: socket %s not found; cfgd is not running", socket)
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Errorf("connect to cfgd: socket %s refused the connection; verify cfgd is running", socket)
	default:
		return fmt.Errorf("connect to cfgd: %w", err)
	}
}

func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
