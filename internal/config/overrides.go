package config

import (
	"fmt"
	"strings"
)

// Overrides carries command-line values. They take precedence over the file
// and the environment.
type Overrides struct {
	ConfigDB   string
	RunningDB  string
	SocketPath string
	LogLevel   string
}

// Apply sets every non-empty override and validates the result.
func (c *Config) Apply(o Overrides) error {
	var err error
	if v := strings.TrimSpace(o.ConfigDB); v != "" {
		if c.Databases.ConfigDB, err = EndpointPath(v); err != nil {
			return fmt.Errorf("config database: %w", err)
		}
	}
	if v := strings.TrimSpace(o.RunningDB); v != "" {
		if c.Databases.RunningDB, err = EndpointPath(v); err != nil {
			return fmt.Errorf("running database: %w", err)
		}
	}
	if v := strings.TrimSpace(o.SocketPath); v != "" {
		if c.Daemon.SocketPath, err = expandPath(v); err != nil {
			return fmt.Errorf("socket path: %w", err)
		}
	}
	if v := strings.TrimSpace(o.LogLevel); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	return c.Validate()
}
