package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Databases names the two stores cfgd talks to. Values are endpoint strings:
// a bare path or a path carrying a "unix:" or "file:" prefix.
type Databases struct {
	ConfigDB  string `toml:"config_db"`
	RunningDB string `toml:"running_db"`
}

// Daemon contains the coordinator's control socket location and timing knobs.
type Daemon struct {
	SocketPath             string `toml:"socket_path"`
	RunDir                 string `toml:"run_dir"`
	DiscoveryAttempts      int    `toml:"discovery_attempts"`
	DiscoveryIntervalMS    int    `toml:"discovery_interval_ms"`
	HardwarePollIntervalMS int    `toml:"hardware_poll_interval_ms"`
	TickIntervalMS         int    `toml:"tick_interval_ms"`
	// SyncTimeoutSeconds bounds the wait for a workflow connection's first
	// sync. Zero waits forever.
	SyncTimeoutSeconds int `toml:"sync_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	File   string `toml:"file"`
}

// Config encapsulates all configuration values for cfgd and cfgdbutil.
type Config struct {
	Databases Databases `toml:"databases"`
	Daemon    Daemon    `toml:"daemon"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the system-wide configuration file location.
func DefaultConfigPath() string {
	return systemConfigPath
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(systemConfigPath); err == nil && !info.IsDir() {
		return systemConfigPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return systemConfigPath, false, nil
}

// EnsureDirectories creates the directories the daemon writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Daemon.RunDir, filepath.Dir(c.Daemon.SocketPath)}
	if c.Logging.File != "" {
		dirs = append(dirs, filepath.Dir(c.Logging.File))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LockPath is the file cfgd holds an exclusive lock on while running.
func (c *Config) LockPath() string {
	return filepath.Join(c.Daemon.RunDir, "cfgd.lock")
}

// PIDPath is where cfgd records its process id.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Daemon.RunDir, "cfgd.pid")
}

func (c *Config) DiscoveryInterval() time.Duration {
	return time.Duration(c.Daemon.DiscoveryIntervalMS) * time.Millisecond
}

func (c *Config) HardwarePollInterval() time.Duration {
	return time.Duration(c.Daemon.HardwarePollIntervalMS) * time.Millisecond
}

func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Daemon.TickIntervalMS) * time.Millisecond
}

func (c *Config) SyncTimeout() time.Duration {
	return time.Duration(c.Daemon.SyncTimeoutSeconds) * time.Second
}

// EndpointPath strips a "unix:" or "file:" prefix from a database endpoint
// and expands the remainder into an absolute file path.
func EndpointPath(endpoint string) (string, error) {
	trimmed := strings.TrimSpace(endpoint)
	for _, prefix := range []string{"unix:", "file:"} {
		if strings.HasPrefix(trimmed, prefix) {
			trimmed = strings.TrimPrefix(trimmed, prefix)
			break
		}
	}
	if trimmed == "" {
		return "", fmt.Errorf("database endpoint %q has no path", endpoint)
	}
	return expandPath(trimmed)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && pathValue[1] == '/' {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the annotated sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
