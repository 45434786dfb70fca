package cfgdb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"cfgd/internal/dbconn"
	"cfgd/internal/logging"
	"cfgd/internal/poller"
)

const defaultPollInterval = 100 * time.Millisecond

// Options configures Open.
type Options struct {
	Path string
	// Wait governs the wait for the first sync. The zero value waits without
	// an attempt budget, bounded only by SyncTimeout.
	Wait        poller.Options
	SyncTimeout time.Duration
	// Create creates the database file and table when missing.
	Create bool
	Logger *slog.Logger
}

// Store is the configuration row store. It owns one connection.
type Store struct {
	conn   *dbconn.Conn
	logger *slog.Logger
}

// Open connects to the configuration store and waits until the config table
// has been observed.
func Open(ctx context.Context, opts Options) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	conn, err := dbconn.Open(ctx, dbconn.Options{
		Path:   opts.Path,
		Tables: []string{TableName},
		Create: opts.Create,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	if opts.Create {
		if err := conn.EnsureSchema(ctx, Schema); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}

	wait := opts.Wait
	if wait == (poller.Options{}) {
		wait = poller.Unbounded(defaultPollInterval, opts.SyncTimeout)
	}
	if err := conn.AwaitSync(ctx, wait); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return &Store{conn: conn, logger: logging.NewComponentLogger(logger, "cfgdb")}, nil
}

// InitSchema creates the configuration store at path if needed.
func InitSchema(ctx context.Context, path string) error {
	store, err := Open(ctx, Options{Path: path, Create: true})
	if err != nil {
		return err
	}
	return store.Close()
}

// Path returns the backing database file.
func (s *Store) Path() string { return s.conn.Path() }

// FindByKind returns the first row whose kind matches. An empty table, or no
// match, yields found=false with a nil error.
func (s *Store) FindByKind(ctx context.Context, kind string) (*Row, bool, error) {
	rows, err := s.conn.Query(ctx, "SELECT "+rowColumns+" FROM config ORDER BY rowid")
	if err != nil {
		return nil, false, fmt.Errorf("scan config table: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, false, fmt.Errorf("scan config row: %w", err)
		}
		if row.Kind == kind {
			return row, true, nil
		}
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate config rows: %w", err)
	}
	return nil, false, nil
}

// Count returns the number of rows in the config table, whatever their kind.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.conn.QueryRow(ctx, "SELECT COUNT(1) FROM config", nil, &n); err != nil {
		return 0, fmt.Errorf("count config rows: %w", err)
	}
	return n, nil
}

// Insert creates a row holding the supplied fields.
func (s *Store) Insert(ctx context.Context, fields RowFields) (*Row, dbconn.TxnStatus, error) {
	if err := fields.validate(); err != nil {
		return nil, dbconn.TxnUnchanged, err
	}

	row := &Row{UUID: uuid.NewString()}
	fields.apply(row)

	cols, vals := fields.columns()
	cols = append([]string{"uuid"}, cols...)
	vals = append([]any{row.UUID}, vals...)
	query := fmt.Sprintf("INSERT INTO config (%s) VALUES (%s)", strings.Join(cols, ", "), placeholders(len(cols)))

	status, err := s.write(ctx, query, vals...)
	if err != nil {
		return nil, status, err
	}
	s.logger.Info("config row inserted",
		logging.String(logging.FieldKind, row.Kind),
		logging.String("uuid", row.UUID),
		logging.String("status", status.String()),
	)
	return row, status, nil
}

// Update writes the supplied fields onto an existing row.
func (s *Store) Update(ctx context.Context, existing *Row, fields RowFields) (*Row, dbconn.TxnStatus, error) {
	if err := fields.validate(); err != nil {
		return nil, dbconn.TxnUnchanged, err
	}
	if existing == nil || existing.UUID == "" {
		return nil, dbconn.TxnUnchanged, fmt.Errorf("%w: update requires an existing row", ErrValidation)
	}

	cols, vals := fields.columns()
	sets := make([]string, len(cols))
	for i, col := range cols {
		sets[i] = col + " = ?"
	}
	vals = append(vals, existing.UUID)
	query := fmt.Sprintf("UPDATE config SET %s WHERE uuid = ?", strings.Join(sets, ", "))

	status, err := s.write(ctx, query, vals...)
	if err != nil {
		return nil, status, err
	}

	updated := *existing
	fields.apply(&updated)
	s.logger.Info("config row updated",
		logging.String(logging.FieldKind, updated.Kind),
		logging.String("uuid", updated.UUID),
		logging.String("status", status.String()),
	)
	return &updated, status, nil
}

// DeleteByKind removes the first row of the given kind. When none exists it
// reports found=false and TxnUnchanged without opening a transaction.
func (s *Store) DeleteByKind(ctx context.Context, kind string) (dbconn.TxnStatus, bool, error) {
	row, found, err := s.FindByKind(ctx, kind)
	if err != nil {
		return dbconn.TxnError, false, err
	}
	if !found {
		return dbconn.TxnUnchanged, false, nil
	}

	status, err := s.write(ctx, "DELETE FROM config WHERE uuid = ?", row.UUID)
	if err != nil {
		return status, true, err
	}
	s.logger.Info("config row deleted",
		logging.String(logging.FieldKind, kind),
		logging.String("status", status.String()),
	)
	return status, true, nil
}

// write runs one statement in its own transaction.
func (s *Store) write(ctx context.Context, query string, args ...any) (dbconn.TxnStatus, error) {
	txn, err := s.conn.Begin(ctx)
	if err != nil {
		return dbconn.TxnError, fmt.Errorf("%w: %w", ErrCommitConflict, err)
	}
	if _, err := txn.Exec(ctx, query, args...); err != nil {
		txn.Abort()
		return dbconn.TxnError, fmt.Errorf("%w: %w", ErrCommitConflict, err)
	}
	status, err := txn.Commit(ctx)
	if err != nil || (status != dbconn.TxnSuccess && status != dbconn.TxnUnchanged) {
		if err == nil {
			err = errors.New(status.String())
		}
		return status, fmt.Errorf("%w: %w", ErrCommitConflict, err)
	}
	return status, nil
}

// Close releases the connection. A second call is a no-op.
func (s *Store) Close() error {
	if s == nil || s.conn == nil {
		return nil
	}
	return s.conn.Close()
}
