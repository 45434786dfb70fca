package sysstate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cfgd/internal/dbconn"
)

// TableName is the running database table holding the singleton row.
const TableName = "system"

// Schema creates the system table.
const Schema = `
CREATE TABLE IF NOT EXISTS system (
    id       INTEGER PRIMARY KEY CHECK (id = 1),
    cur_hw   INTEGER NOT NULL DEFAULT 0,
    cur_cfg  INTEGER NOT NULL DEFAULT 0,
    next_cfg INTEGER NOT NULL DEFAULT 0
);
`

// ErrNoRow means the system table is empty.
var ErrNoRow = errors.New("system row missing")

// State is the singleton system row.
type State struct {
	CurHW   uint64
	CurCfg  uint64
	NextCfg uint64
}

// HardwareReady reports whether hardware initialization has finished.
func (s State) HardwareReady() bool { return s.CurHW > 0 }

// Configured reports whether a configuration cycle already ran this boot.
func (s State) Configured() bool { return s.CurCfg > 0 }

// Store reads and writes the system row over a connection it does not own.
type Store struct {
	conn *dbconn.Conn
}

func New(conn *dbconn.Conn) *Store {
	return &Store{conn: conn}
}

// Init creates the table and the singleton row when absent.
func (s *Store) Init(ctx context.Context) error {
	if err := s.conn.EnsureSchema(ctx, Schema); err != nil {
		return err
	}
	return s.conn.EnsureSchema(ctx, "INSERT OR IGNORE INTO system (id) VALUES (1)")
}

// Read returns the current system row.
func (s *Store) Read(ctx context.Context) (State, error) {
	var st State
	err := s.conn.QueryRow(ctx, "SELECT cur_hw, cur_cfg, next_cfg FROM system WHERE id = 1", nil,
		&st.CurHW, &st.CurCfg, &st.NextCfg)
	if errors.Is(err, sql.ErrNoRows) {
		return State{}, ErrNoRow
	}
	if err != nil {
		return State{}, fmt.Errorf("read system row: %w", err)
	}
	return st, nil
}

// MarkCompletion increments cur_cfg and sets next_cfg to the new value in one
// transaction.
func (s *Store) MarkCompletion(ctx context.Context) (dbconn.TxnStatus, error) {
	return s.exec(ctx, "UPDATE system SET cur_cfg = cur_cfg + 1, next_cfg = cur_cfg + 1 WHERE id = 1")
}

// SetHardware records hardware initialization progress.
func (s *Store) SetHardware(ctx context.Context, value uint64) (dbconn.TxnStatus, error) {
	return s.exec(ctx, "UPDATE system SET cur_hw = ? WHERE id = 1", value)
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (dbconn.TxnStatus, error) {
	txn, err := s.conn.Begin(ctx)
	if err != nil {
		return dbconn.TxnError, err
	}
	if _, err := txn.Exec(ctx, query, args...); err != nil {
		txn.Abort()
		return dbconn.TxnError, fmt.Errorf("update system row: %w", err)
	}
	return txn.Commit(ctx)
}
