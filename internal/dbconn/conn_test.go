package dbconn_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"cfgd/internal/dbconn"
	"cfgd/internal/poller"
)

const widgetsDDL = `CREATE TABLE IF NOT EXISTS widgets (id INTEGER PRIMARY KEY, label TEXT);`

func openConn(t *testing.T, path string, tables ...string) *dbconn.Conn {
	t.Helper()
	conn, err := dbconn.Open(context.Background(), dbconn.Options{Path: path, Tables: tables, Create: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestOpenMissingDatabaseWithoutCreate(t *testing.T) {
	_, err := dbconn.Open(context.Background(), dbconn.Options{Path: filepath.Join(t.TempDir(), "absent.db")})
	if !errors.Is(err, dbconn.ErrNoDatabase) {
		t.Fatalf("expected ErrNoDatabase, got %v", err)
	}
}

func TestFirstRunSyncsWhenTablesExist(t *testing.T) {
	ctx := context.Background()
	conn := openConn(t, filepath.Join(t.TempDir(), "a.db"), "widgets")
	if err := conn.EnsureSchema(ctx, widgetsDDL); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}

	changed, err := conn.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !changed || !conn.Synced() || conn.ChangeSeqno() != 1 {
		t.Fatalf("expected first sync, changed=%v synced=%v seqno=%d", changed, conn.Synced(), conn.ChangeSeqno())
	}

	changed, err = conn.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if changed || conn.ChangeSeqno() != 1 {
		t.Fatalf("expected idle pump to leave seqno alone, got %d", conn.ChangeSeqno())
	}
}

func TestMissingTableNeverSyncs(t *testing.T) {
	conn := openConn(t, filepath.Join(t.TempDir(), "b.db"), "widgets")
	changed, err := poller.WaitForChange(context.Background(), conn, poller.Bounded(3, time.Millisecond))
	if err != nil {
		t.Fatalf("WaitForChange: %v", err)
	}
	if changed || conn.Synced() {
		t.Fatal("expected connection without its table to stay unsynced")
	}
	if err := conn.AwaitSync(context.Background(), poller.Bounded(2, time.Millisecond)); !errors.Is(err, poller.ErrTimeout) {
		t.Fatalf("expected ErrTimeout from AwaitSync, got %v", err)
	}
}

func TestRemoteCommitAdvancesSeqno(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "c.db")
	writer := openConn(t, path, "widgets")
	if err := writer.EnsureSchema(ctx, widgetsDDL); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	watcher := openConn(t, path, "widgets")
	if err := watcher.AwaitSync(ctx, poller.Bounded(5, time.Millisecond)); err != nil {
		t.Fatalf("AwaitSync: %v", err)
	}
	before := watcher.ChangeSeqno()

	txn, err := writer.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, err := txn.Exec(ctx, "INSERT INTO widgets (label) VALUES (?)", "remote"); err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if status, err := txn.Commit(ctx); err != nil || status != dbconn.TxnSuccess {
		t.Fatalf("Commit: %v %v", status, err)
	}

	changed, err := poller.WaitForChange(ctx, watcher, poller.Bounded(10, 5*time.Millisecond))
	if err != nil {
		t.Fatalf("WaitForChange: %v", err)
	}
	if !changed || watcher.ChangeSeqno() <= before {
		t.Fatalf("expected watcher to observe remote commit, seqno %d -> %d", before, watcher.ChangeSeqno())
	}
}

func TestLocalCommitStatuses(t *testing.T) {
	ctx := context.Background()
	conn := openConn(t, filepath.Join(t.TempDir(), "d.db"), "widgets")
	if err := conn.EnsureSchema(ctx, widgetsDDL); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	if _, err := conn.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	seqno := conn.ChangeSeqno()

	txn, err := conn.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, err := conn.Begin(ctx); !errors.Is(err, dbconn.ErrTxnInProgress) {
		t.Fatalf("expected ErrTxnInProgress, got %v", err)
	}
	if err := conn.QueryRow(ctx, "SELECT 1", nil, new(int)); !errors.Is(err, dbconn.ErrTxnInProgress) {
		t.Fatalf("expected reads outside the transaction to be refused, got %v", err)
	}
	if _, err := txn.Exec(ctx, "INSERT INTO widgets (label) VALUES (?)", "local"); err != nil {
		t.Fatalf("Exec: %v", err)
	}
	status, err := txn.Commit(ctx)
	if err != nil || status != dbconn.TxnSuccess {
		t.Fatalf("Commit: %v %v", status, err)
	}
	if conn.ChangeSeqno() != seqno+1 {
		t.Fatalf("expected local commit to advance seqno to %d, got %d", seqno+1, conn.ChangeSeqno())
	}

	txn, err = conn.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, err := txn.Exec(ctx, "DELETE FROM widgets WHERE label = ?", "nothing"); err != nil {
		t.Fatalf("Exec: %v", err)
	}
	status, err = txn.Commit(ctx)
	if err != nil || status != dbconn.TxnUnchanged {
		t.Fatalf("expected unchanged commit, got %v %v", status, err)
	}
	if conn.ChangeSeqno() != seqno+1 {
		t.Fatalf("unchanged commit must not advance seqno, got %d", conn.ChangeSeqno())
	}

	var count int
	if err := conn.QueryRow(ctx, "SELECT COUNT(1) FROM widgets", nil, &count); err != nil {
		t.Fatalf("QueryRow: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 widget, got %d", count)
	}
}

func TestAbortDiscardsChanges(t *testing.T) {
	ctx := context.Background()
	conn := openConn(t, filepath.Join(t.TempDir(), "e.db"), "widgets")
	if err := conn.EnsureSchema(ctx, widgetsDDL); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	txn, err := conn.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, err := txn.Exec(ctx, "INSERT INTO widgets (label) VALUES ('gone')"); err != nil {
		t.Fatalf("Exec: %v", err)
	}
	txn.Abort()
	txn.Abort()
	if _, err := txn.Commit(ctx); !errors.Is(err, dbconn.ErrTxnDone) {
		t.Fatalf("expected ErrTxnDone, got %v", err)
	}

	var count int
	if err := conn.QueryRow(ctx, "SELECT COUNT(1) FROM widgets", nil, &count); err != nil {
		t.Fatalf("QueryRow: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected aborted insert to be discarded, got %d rows", count)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	conn, err := dbconn.Open(context.Background(), dbconn.Options{Path: filepath.Join(t.TempDir(), "f.db"), Create: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("second Close should be a no-op, got %v", err)
	}
	if _, err := conn.Run(context.Background()); !errors.Is(err, dbconn.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestTxnStatusString(t *testing.T) {
	for status, want := range map[dbconn.TxnStatus]string{
		dbconn.TxnUnchanged: "unchanged",
		dbconn.TxnSuccess:   "success",
		dbconn.TxnError:     "error",
	} {
		if status.String() != want {
			t.Fatalf("%d.String() = %q, want %q", int(status), status.String(), want)
		}
	}
}
