package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"cfgd/internal/cfgsync"
	"cfgd/internal/config"
	"cfgd/internal/logging"
)

type commandContext struct {
	configFlag   string
	databaseFlag string
	configDBFlag string
	logLevelFlag string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(strings.TrimSpace(c.configFlag))
		if err != nil {
			c.configErr = fmt.Errorf("load config: %w", err)
			return
		}
		err = cfg.Apply(config.Overrides{
			ConfigDB:  c.configDBFlag,
			RunningDB: c.databaseFlag,
			LogLevel:  c.logLevelFlag,
		})
		if err != nil {
			c.configErr = fmt.Errorf("load config: %w", err)
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// workflows builds the cfgsync workflows writing to out. Logs go to stderr
// so command output stays clean.
func (c *commandContext) workflows(out io.Writer) (*cfgsync.Workflows, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	format := cfg.Logging.Format
	if format == "auto" {
		format = "console"
	}
	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: format,
		Output: "stderr",
		File:   cfg.Logging.File,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return cfgsync.New(cfg, logger, out), nil
}
