package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeDatabases(); err != nil {
		return err
	}
	if err := c.normalizeDaemon(); err != nil {
		return err
	}
	return c.normalizeLogging()
}

func (c *Config) normalizeDatabases() error {
	if value, ok := os.LookupEnv(RunningDBEnv); ok && strings.TrimSpace(value) != "" {
		c.Databases.RunningDB = value
	}
	if strings.TrimSpace(c.Databases.ConfigDB) == "" {
		c.Databases.ConfigDB = defaultConfigDB
	}
	if strings.TrimSpace(c.Databases.RunningDB) == "" {
		c.Databases.RunningDB = defaultRunningDB
	}

	var err error
	if c.Databases.ConfigDB, err = EndpointPath(c.Databases.ConfigDB); err != nil {
		return fmt.Errorf("databases.config_db: %w", err)
	}
	if c.Databases.RunningDB, err = EndpointPath(c.Databases.RunningDB); err != nil {
		return fmt.Errorf("databases.running_db: %w", err)
	}
	return nil
}

func (c *Config) normalizeDaemon() error {
	var err error
	if strings.TrimSpace(c.Daemon.RunDir) == "" {
		c.Daemon.RunDir = defaultRunDir
	}
	if c.Daemon.RunDir, err = expandPath(c.Daemon.RunDir); err != nil {
		return fmt.Errorf("daemon.run_dir: %w", err)
	}
	if strings.TrimSpace(c.Daemon.SocketPath) == "" {
		c.Daemon.SocketPath = filepath.Join(c.Daemon.RunDir, defaultSocketName)
	}
	if c.Daemon.SocketPath, err = expandPath(c.Daemon.SocketPath); err != nil {
		return fmt.Errorf("daemon.socket_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if strings.TrimSpace(c.Logging.File) != "" {
		var err error
		if c.Logging.File, err = expandPath(strings.TrimSpace(c.Logging.File)); err != nil {
			return fmt.Errorf("logging.file: %w", err)
		}
	}
	return nil
}
