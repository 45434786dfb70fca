package cfgsync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"cfgd/internal/cfgdb"
	"cfgd/internal/config"
	"cfgd/internal/dbconn"
	"cfgd/internal/logging"
	"cfgd/internal/poller"
	"cfgd/internal/runconfig"
	"cfgd/internal/sysstate"
)

// WriterName is recorded as the writer of rows saved by these workflows.
const WriterName = "cfgdbutil"

// Workflows runs the cfgdbutil operations against the configured databases.
type Workflows struct {
	cfg    *config.Config
	logger *slog.Logger
	out    io.Writer
	now    func() time.Time
}

// New returns workflows printing human-readable output to out.
func New(cfg *config.Config, logger *slog.Logger, out io.Writer) *Workflows {
	if logger == nil {
		logger = logging.NewNop()
	}
	if out == nil {
		out = os.Stdout
	}
	return &Workflows{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "cfgsync"),
		out:    out,
		now:    time.Now,
	}
}

func (w *Workflows) syncWait() poller.Options {
	return poller.Unbounded(w.cfg.DiscoveryInterval(), w.cfg.SyncTimeout())
}

func (w *Workflows) openStore(ctx context.Context) (*cfgdb.Store, error) {
	store, err := cfgdb.Open(ctx, cfgdb.Options{
		Path:   w.cfg.Databases.ConfigDB,
		Wait:   w.syncWait(),
		Logger: w.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("open config store %s: %w", w.cfg.Databases.ConfigDB, err)
	}
	return store, nil
}

func (w *Workflows) openRunning(ctx context.Context) (*dbconn.Conn, error) {
	conn, err := dbconn.Open(ctx, dbconn.Options{
		Path:   w.cfg.Databases.RunningDB,
		Tables: []string{runconfig.TableName},
		Logger: w.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("open running database %s: %w", w.cfg.Databases.RunningDB, err)
	}
	if err := conn.AwaitSync(ctx, w.syncWait()); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("sync running database: %w", err)
	}
	return conn, nil
}

// loadStartup returns the startup row and its decoded document.
func (w *Workflows) loadStartup(ctx context.Context) (*cfgdb.Row, runconfig.Document, error) {
	store, err := w.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer store.Close()

	row, found, err := store.FindByKind(ctx, cfgdb.KindStartup)
	if err != nil {
		return nil, nil, err
	}
	if !found {
		return nil, nil, ErrNotFound
	}
	doc, err := runconfig.Decode(row.Payload)
	if err != nil {
		var decErr *runconfig.DecodeError
		if errors.As(err, &decErr) {
			logging.ErrorWithContext(w.logger, "saved configuration is not valid", "startup_decode_failed",
				logging.Int("bytes", decErr.Size),
				logging.String("summary", decErr.Summary),
				logging.Error(err))
		}
		return nil, nil, err
	}
	return row, doc, nil
}

// InitSchemas creates the configuration store table and the running
// database tables, including the system row.
func (w *Workflows) InitSchemas(ctx context.Context) error {
	if err := cfgdb.InitSchema(ctx, w.cfg.Databases.ConfigDB); err != nil {
		return fmt.Errorf("init config store: %w", err)
	}

	conn, err := dbconn.Open(ctx, dbconn.Options{
		Path:   w.cfg.Databases.RunningDB,
		Create: true,
		Logger: w.logger,
	})
	if err != nil {
		return fmt.Errorf("init running database: %w", err)
	}
	defer conn.Close()
	if err := conn.EnsureSchema(ctx, runconfig.Schema); err != nil {
		return fmt.Errorf("init running database: %w", err)
	}
	if err := sysstate.New(conn).Init(ctx); err != nil {
		return fmt.Errorf("init running database: %w", err)
	}
	w.logger.Info("schemas initialized",
		logging.String("config_db", w.cfg.Databases.ConfigDB),
		logging.String("running_db", w.cfg.Databases.RunningDB))
	return nil
}
