package testsupport

import (
	"context"
	"testing"

	"cfgd/internal/cfgdb"
	"cfgd/internal/config"
	"cfgd/internal/dbconn"
	"cfgd/internal/poller"
	"cfgd/internal/runconfig"
	"cfgd/internal/sysstate"
)

// MustInitConfigStore creates the configuration store and its table.
func MustInitConfigStore(t testing.TB, cfg *config.Config) {
	t.Helper()

	if err := cfgdb.InitSchema(context.Background(), cfg.Databases.ConfigDB); err != nil {
		t.Fatalf("cfgdb.InitSchema: %v", err)
	}
}

// MustOpenConfigStore opens a cfgdb.Store for tests, creating the table when
// missing, and registers cleanup.
func MustOpenConfigStore(t testing.TB, cfg *config.Config) *cfgdb.Store {
	t.Helper()

	store, err := cfgdb.Open(context.Background(), cfgdb.Options{
		Path:        cfg.Databases.ConfigDB,
		Create:      true,
		SyncTimeout: cfg.SyncTimeout(),
	})
	if err != nil {
		t.Fatalf("cfgdb.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// MustOpenRunning creates the running database with its running_config
// table and a zeroed system row, and returns a synced connection.
func MustOpenRunning(t testing.TB, cfg *config.Config) *dbconn.Conn {
	t.Helper()

	ctx := context.Background()
	conn, err := dbconn.Open(ctx, dbconn.Options{
		Path:   cfg.Databases.RunningDB,
		Tables: []string{runconfig.TableName, sysstate.TableName},
		Create: true,
	})
	if err != nil {
		t.Fatalf("dbconn.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})
	if err := conn.EnsureSchema(ctx, runconfig.Schema); err != nil {
		t.Fatalf("running schema: %v", err)
	}
	if err := sysstate.New(conn).Init(ctx); err != nil {
		t.Fatalf("system row: %v", err)
	}
	if err := conn.AwaitSync(ctx, poller.Bounded(5, 0)); err != nil {
		t.Fatalf("running sync: %v", err)
	}
	return conn
}

// SeedStartupRow inserts a startup row holding payload through a short-lived
// store connection.
func SeedStartupRow(t testing.TB, cfg *config.Config, payload string) *cfgdb.Row {
	t.Helper()

	ctx := context.Background()
	store, err := cfgdb.Open(ctx, cfgdb.Options{Path: cfg.Databases.ConfigDB, Create: true})
	if err != nil {
		t.Fatalf("cfgdb.Open: %v", err)
	}
	defer store.Close()

	row, status, err := store.Insert(ctx, cfgdb.RowFields{
		Kind:    cfgdb.KindStartup,
		Payload: cfgdb.StringPtr(payload),
	})
	if err != nil {
		t.Fatalf("seed startup row: %v", err)
	}
	if status != dbconn.TxnSuccess {
		t.Fatalf("seed startup row: status %v", status)
	}
	return row
}

// SeedRowOfKind writes a config row of an arbitrary kind straight through
// SQL, the way another tool sharing the table would.
func SeedRowOfKind(t testing.TB, cfg *config.Config, kind string) {
	t.Helper()

	ctx := context.Background()
	conn, err := dbconn.Open(ctx, dbconn.Options{Path: cfg.Databases.ConfigDB, Create: true})
	if err != nil {
		t.Fatalf("dbconn.Open: %v", err)
	}
	defer conn.Close()
	if err := conn.EnsureSchema(ctx, cfgdb.Schema); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	txn, err := conn.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, err := txn.Exec(ctx, "INSERT INTO config (uuid, type, config) VALUES (?, ?, ?)", kind+"-row", kind, "{}"); err != nil {
		txn.Abort()
		t.Fatalf("insert %s row: %v", kind, err)
	}
	if _, err := txn.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}
}

// ReadSystem returns the system row seen through conn.
func ReadSystem(t testing.TB, conn *dbconn.Conn) sysstate.State {
	t.Helper()

	st, err := sysstate.New(conn).Read(context.Background())
	if err != nil {
		t.Fatalf("read system row: %v", err)
	}
	return st
}
