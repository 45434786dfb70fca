package dbconn

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"cfgd/internal/logging"
	"cfgd/internal/poller"
)

var (
	// ErrNoDatabase is returned by Open when the database file is absent and
	// Options.Create is false.
	ErrNoDatabase = errors.New("database does not exist")
	// ErrClosed is returned by operations on a closed connection.
	ErrClosed = errors.New("connection closed")
	// ErrTxnInProgress is returned when a second transaction, or a
	// non-transactional statement, is attempted while one is open.
	ErrTxnInProgress = errors.New("transaction already in progress")
)

// Options configures a connection.
type Options struct {
	// Path is the SQLite database file.
	Path string
	// Tables lists the tables that must exist before the connection counts
	// as synced.
	Tables []string
	// Create allows Open to create a missing database file.
	Create bool
	Logger *slog.Logger
}

// Conn is a single dedicated SQLite connection that tracks a change sequence
// number. The number advances once when every monitored table is first seen,
// whenever another connection commits to the database, and whenever a local
// commit completes. A Conn is not safe for concurrent use.
type Conn struct {
	db     *sql.DB
	conn   *sql.Conn
	path   string
	tables []string
	logger *slog.Logger

	seqno         uint64
	synced        bool
	dataVersion   int64
	pendingCommit bool
	txn           *Txn
	closed        bool
}

// Open connects to the database at opts.Path. It never waits for data; use
// Run or the poller to observe the first sync.
func Open(ctx context.Context, opts Options) (*Conn, error) {
	ctx = ensureContext(ctx)
	if opts.Path == "" {
		return nil, errors.New("dbconn: database path is required")
	}
	if !opts.Create {
		if _, err := os.Stat(opts.Path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", ErrNoDatabase, opts.Path)
			}
			return nil, fmt.Errorf("stat database: %w", err)
		}
	} else if dir := filepath.Dir(opts.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("acquire sqlite connection: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := conn.ExecContext(ctx, pragma); execErr != nil {
			_ = conn.Close()
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	return &Conn{
		db:     db,
		conn:   conn,
		path:   opts.Path,
		tables: append([]string(nil), opts.Tables...),
		logger: logger.With(logging.String(logging.FieldDatabase, opts.Path)),
	}, nil
}

// Path returns the database file backing the connection.
func (c *Conn) Path() string { return c.path }

// ChangeSeqno returns the connection's change sequence number.
func (c *Conn) ChangeSeqno() uint64 { return c.seqno }

// Synced reports whether every monitored table has been observed.
func (c *Conn) Synced() bool { return c.synced }

// Run performs one pass of the connection pump and reports whether the
// change sequence number advanced.
func (c *Conn) Run(ctx context.Context) (bool, error) {
	if c.closed {
		return false, ErrClosed
	}
	ctx = ensureContext(ctx)

	if c.pendingCommit {
		c.pendingCommit = false
		c.seqno++
		return true, nil
	}
	if c.txn != nil {
		return false, nil
	}

	if !c.synced {
		present, err := c.tablesPresent(ctx)
		if err != nil {
			return false, err
		}
		if !present {
			return false, nil
		}
		version, err := c.readDataVersion(ctx)
		if err != nil {
			return false, err
		}
		c.synced = true
		c.dataVersion = version
		c.seqno++
		c.logger.Debug("database synced", logging.Uint64(logging.FieldSeqno, c.seqno))
		return true, nil
	}

	version, err := c.readDataVersion(ctx)
	if err != nil {
		return false, err
	}
	if version == c.dataVersion {
		return false, nil
	}
	c.dataVersion = version
	c.seqno++
	c.logger.Debug("remote change observed", logging.Uint64(logging.FieldSeqno, c.seqno))
	return true, nil
}

// AwaitSync waits for the connection's first sync using opts.
func (c *Conn) AwaitSync(ctx context.Context, opts poller.Options) error {
	if c.synced {
		return nil
	}
	if err := poller.Await(ctx, c, opts); err != nil {
		return fmt.Errorf("wait for %s to sync: %w", c.path, err)
	}
	return nil
}

func (c *Conn) tablesPresent(ctx context.Context) (bool, error) {
	for _, table := range c.tables {
		var count int
		err := retryOnBusy(ctx, func() error {
			return c.conn.QueryRowContext(ctx,
				"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name=?", table,
			).Scan(&count)
		})
		if err != nil {
			return false, fmt.Errorf("check table %s: %w", table, err)
		}
		if count == 0 {
			return false, nil
		}
	}
	return true, nil
}

func (c *Conn) readDataVersion(ctx context.Context) (int64, error) {
	var version int64
	err := retryOnBusy(ctx, func() error {
		return c.conn.QueryRowContext(ctx, "PRAGMA data_version").Scan(&version)
	})
	if err != nil {
		return 0, fmt.Errorf("read data_version: %w", err)
	}
	return version, nil
}

// EnsureSchema executes ddl outside any transaction. The statements must be
// idempotent.
func (c *Conn) EnsureSchema(ctx context.Context, ddl string) error {
	if err := c.usable(); err != nil {
		return err
	}
	ctx = ensureContext(ctx)
	if err := retryOnBusy(ctx, func() error {
		_, err := c.conn.ExecContext(ctx, ddl)
		return err
	}); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Query runs a read outside any transaction.
func (c *Conn) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if err := c.usable(); err != nil {
		return nil, err
	}
	ctx = ensureContext(ctx)
	var rows *sql.Rows
	err := retryOnBusy(ctx, func() error {
		var qerr error
		rows, qerr = c.conn.QueryContext(ctx, query, args...)
		return qerr
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// QueryRow runs a single-row read outside any transaction and scans it into
// dest. It returns sql.ErrNoRows when nothing matched.
func (c *Conn) QueryRow(ctx context.Context, query string, args []any, dest ...any) error {
	if err := c.usable(); err != nil {
		return err
	}
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		return c.conn.QueryRowContext(ctx, query, args...).Scan(dest...)
	})
}

func (c *Conn) usable() error {
	if c.closed {
		return ErrClosed
	}
	if c.txn != nil {
		return ErrTxnInProgress
	}
	return nil
}

// Close releases the connection. An open transaction is rolled back. Calling
// Close again is a no-op.
func (c *Conn) Close() error {
	if c == nil || c.closed {
		return nil
	}
	c.closed = true
	if c.txn != nil {
		c.txn.Abort()
	}
	connErr := c.conn.Close()
	dbErr := c.db.Close()
	if connErr != nil {
		return fmt.Errorf("close connection: %w", connErr)
	}
	if dbErr != nil {
		return fmt.Errorf("close database: %w", dbErr)
	}
	return nil
}
