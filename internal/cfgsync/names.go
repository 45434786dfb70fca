package cfgsync

import (
	"fmt"
	"strings"

	"cfgd/internal/cfgdb"
)

// Config names accepted on the command line.
const (
	StartupConfig = "startup-config"
	RunningConfig = "running-config"
)

// KindRunning names the live running database. It never appears as a row
// kind in the configuration store.
const KindRunning = "running"

// Format selects how Show prints a document.
type Format string

const (
	FormatJSON Format = "json"
	FormatCLI  Format = "cli"
)

// KindForName maps a CLI config name to a store kind.
func KindForName(name string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case StartupConfig:
		return cfgdb.KindStartup, nil
	case RunningConfig:
		return KindRunning, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownConfig, name)
	}
}

// ParseFormat validates a show format. An empty value selects json.
func ParseFormat(value string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(value))); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatCLI:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, value)
	}
}
