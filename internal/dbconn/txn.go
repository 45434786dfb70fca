package dbconn

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cfgd/internal/poller"
)

// TxnStatus is the outcome of a commit.
type TxnStatus int

const (
	// TxnUnchanged means the transaction modified nothing.
	TxnUnchanged TxnStatus = iota
	// TxnSuccess means the transaction modified rows and committed.
	TxnSuccess
	// TxnError means the commit failed.
	TxnError
)

func (s TxnStatus) String() string {
	switch s {
	case TxnUnchanged:
		return "unchanged"
	case TxnSuccess:
		return "success"
	case TxnError:
		return "error"
	default:
		return fmt.Sprintf("TxnStatus(%d)", int(s))
	}
}

// ErrTxnDone is returned when a finished transaction is used again.
var ErrTxnDone = errors.New("transaction already finished")

// Txn is a transaction scoped to one logical write.
type Txn struct {
	conn     *Conn
	tx       *sql.Tx
	affected int64
	done     bool
}

// Begin opens a transaction. Only one transaction may be open per connection.
func (c *Conn) Begin(ctx context.Context) (*Txn, error) {
	if err := c.usable(); err != nil {
		return nil, err
	}
	ctx = ensureContext(ctx)
	var tx *sql.Tx
	if err := retryOnBusy(ctx, func() error {
		var berr error
		tx, berr = c.conn.BeginTx(ctx, nil)
		return berr
	}); err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	t := &Txn{conn: c, tx: tx}
	c.txn = t
	return t, nil
}

// Exec runs a mutating statement inside the transaction.
func (t *Txn) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if t.done {
		return nil, ErrTxnDone
	}
	res, err := t.tx.ExecContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err == nil {
		t.affected += n
	}
	return res, nil
}

// QueryRow reads a single row inside the transaction.
func (t *Txn) QueryRow(ctx context.Context, query string, args []any, dest ...any) error {
	if t.done {
		return ErrTxnDone
	}
	return t.tx.QueryRowContext(ensureContext(ctx), query, args...).Scan(dest...)
}

// Commit finishes the transaction. A transaction that affected no rows is
// rolled back and reported as TxnUnchanged. After a successful commit the
// connection's sequence number advances once the outcome is published.
func (t *Txn) Commit(ctx context.Context) (TxnStatus, error) {
	if t.done {
		return TxnError, ErrTxnDone
	}
	t.done = true
	c := t.conn
	c.txn = nil

	if t.affected == 0 {
		if err := t.tx.Rollback(); err != nil {
			return TxnError, fmt.Errorf("rollback empty transaction: %w", err)
		}
		return TxnUnchanged, nil
	}
	if err := t.tx.Commit(); err != nil {
		return TxnError, fmt.Errorf("commit: %w", err)
	}

	c.pendingCommit = true
	changed, err := poller.WaitForChange(ctx, c, poller.CommitWait())
	if err != nil {
		return TxnError, fmt.Errorf("await commit: %w", err)
	}
	if !changed {
		return TxnError, fmt.Errorf("await commit: %w", poller.ErrTimeout)
	}
	return TxnSuccess, nil
}

// Abort rolls the transaction back. It is a no-op after Commit or Abort.
func (t *Txn) Abort() {
	if t == nil || t.done {
		return
	}
	t.done = true
	t.conn.txn = nil
	_ = t.tx.Rollback()
}
