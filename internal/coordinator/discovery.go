package coordinator

import (
	"context"
	"errors"
	"strings"

	"cfgd/internal/cfgdb"
	"cfgd/internal/dbconn"
	"cfgd/internal/logging"
	"cfgd/internal/poller"
)

// discover reads the startup row once over a short-lived connection with a
// fixed polling budget. Every failure is reported as "no startup document".
func (c *Coordinator) discover(ctx context.Context) (string, bool) {
	logger := logging.NewComponentLogger(c.logger, "discovery")
	store, err := cfgdb.Open(ctx, cfgdb.Options{
		Path:   c.cfg.Databases.ConfigDB,
		Wait:   poller.Bounded(c.cfg.Daemon.DiscoveryAttempts, c.cfg.DiscoveryInterval()),
		Logger: c.logger,
	})
	if err != nil {
		switch {
		case errors.Is(err, dbconn.ErrNoDatabase), errors.Is(err, poller.ErrTimeout):
			logging.WarnWithContext(logger, "config table not available", "discovery_timeout",
				logging.String(logging.FieldDatabase, c.cfg.Databases.ConfigDB),
				logging.Int("attempts", c.cfg.Daemon.DiscoveryAttempts),
				logging.Error(err),
				logging.String(logging.FieldImpact, "booting without a startup configuration"),
				logging.String(logging.FieldErrorHint, "save one with 'cfgdbutil copy running-config startup-config'"))
		default:
			logging.ErrorWithContext(logger, "config store unreadable", "discovery_failed",
				logging.String(logging.FieldDatabase, c.cfg.Databases.ConfigDB),
				logging.Error(err),
				logging.String(logging.FieldImpact, "booting without a startup configuration"))
		}
		return "", false
	}
	defer store.Close()

	row, found, err := store.FindByKind(ctx, cfgdb.KindStartup)
	if err != nil {
		logging.ErrorWithContext(logger, "reading config table failed", "discovery_failed", logging.Error(err))
		return "", false
	}
	if !found {
		if n, err := store.Count(ctx); err == nil && n > 0 {
			logger.Info("no startup row found in the config table", logging.Int("rows", n))
		} else {
			logger.Info("no rows found in the config table")
		}
		return "", false
	}
	if strings.TrimSpace(row.Payload) == "" {
		logging.WarnWithContext(logger, "startup row has no config data", "startup_row_empty",
			logging.String("uuid", row.UUID),
			logging.String(logging.FieldImpact, "booting without a startup configuration"))
		return "", false
	}
	logger.Info("config data found",
		logging.String(logging.FieldKind, row.Kind),
		logging.Int("bytes", len(row.Payload)))
	return row.Payload, true
}
