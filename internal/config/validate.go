package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDatabases(); err != nil {
		return err
	}
	if err := c.validateDaemon(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateDatabases() error {
	if c.Databases.ConfigDB == "" {
		return errors.New("databases.config_db must be set")
	}
	if c.Databases.RunningDB == "" {
		return errors.New("databases.running_db must be set")
	}
	if c.Databases.ConfigDB == c.Databases.RunningDB {
		return fmt.Errorf("databases.config_db and databases.running_db must differ (both %q)", c.Databases.ConfigDB)
	}
	return nil
}

func (c *Config) validateDaemon() error {
	if c.Daemon.DiscoveryAttempts <= 0 {
		return errors.New("daemon.discovery_attempts must be positive")
	}
	if c.Daemon.DiscoveryIntervalMS <= 0 {
		return errors.New("daemon.discovery_interval_ms must be positive")
	}
	if c.Daemon.HardwarePollIntervalMS <= 0 {
		return errors.New("daemon.hardware_poll_interval_ms must be positive")
	}
	if c.Daemon.TickIntervalMS <= 0 {
		return errors.New("daemon.tick_interval_ms must be positive")
	}
	if c.Daemon.SyncTimeoutSeconds < 0 {
		return errors.New("daemon.sync_timeout_seconds must be zero (wait forever) or positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json", "auto":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (use console, json, or auto)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
