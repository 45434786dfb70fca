package cfgsync

import (
	"errors"

	"cfgd/internal/cfgdb"
)

var (
	// ErrNotFound is returned when no startup row exists.
	ErrNotFound = cfgdb.ErrNotFound
	// ErrUnknownConfig rejects a config name other than startup-config or
	// running-config.
	ErrUnknownConfig = errors.New("unknown config")
	// ErrUnsupportedCopy rejects any copy other than running to startup or
	// startup to running.
	ErrUnsupportedCopy = errors.New("unsupported copy")
	// ErrUnsupportedFormat rejects show formats other than json and cli.
	ErrUnsupportedFormat = errors.New("unsupported output format")
)
