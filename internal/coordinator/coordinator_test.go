package coordinator_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"cfgd/internal/config"
	"cfgd/internal/coordinator"
	"cfgd/internal/dbconn"
	"cfgd/internal/ipc"
	"cfgd/internal/logging"
	"cfgd/internal/poller"
	"cfgd/internal/runconfig"
	"cfgd/internal/sysstate"
	"cfgd/internal/testsupport"
)

func startRun(t *testing.T, cfg *config.Config) <-chan error {
	t.Helper()
	c, err := coordinator.New(cfg, logging.NewNop(), "test-run")
	if err != nil {
		t.Fatalf("coordinator.New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	return done
}

func waitRun(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(10 * time.Second):
		t.Fatal("coordinator did not finish")
		return nil
	}
}

func dialWhenReady(t *testing.T, path string) *ipc.Client {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		client, err := ipc.Dial(path)
		if err == nil {
			t.Cleanup(func() { _ = client.Close() })
			return client
		}
		if time.Now().After(deadline) {
			t.Fatalf("control socket never came up: %v", err)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func waitForStep(t *testing.T, client *ipc.Client, step string) *ipc.StatusResponse {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		status, err := client.Status()
		if err != nil {
			t.Fatalf("Status: %v", err)
		}
		if status.Step == step {
			return status
		}
		if time.Now().After(deadline) {
			t.Fatalf("coordinator never reached %s, last status %+v", step, status)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func setHardware(t *testing.T, conn *dbconn.Conn) {
	t.Helper()
	if _, err := sysstate.New(conn).SetHardware(context.Background(), 1); err != nil {
		t.Fatalf("SetHardware: %v", err)
	}
}

func TestRunAppliesStartupConfigAfterHardware(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.SeedStartupRow(t, cfg, `{"hostname":"sw1"}`)
	running := testsupport.MustOpenRunning(t, cfg)

	done := startRun(t, cfg)
	client := dialWhenReady(t, cfg.Daemon.SocketPath)
	status := waitForStep(t, client, "wait_hardware")
	if status.Terminating || !status.HasStartup {
		t.Fatalf("expected coordinator waiting for hardware, got %+v", status)
	}
	if status.RunID != "test-run" {
		t.Fatalf("unexpected run id %q", status.RunID)
	}

	setHardware(t, running)
	err := waitRun(t, done)
	if code := coordinator.ExitCode(err); code != coordinator.ExitOK {
		t.Fatalf("expected exit 0, got %d (%v)", code, err)
	}

	st := testsupport.ReadSystem(t, running)
	if st.CurCfg != 1 || st.NextCfg != 1 {
		t.Fatalf("expected cur_cfg=next_cfg=1, got %+v", st)
	}
	doc, err := runconfig.Read(context.Background(), running)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if doc["hostname"] != "sw1" {
		t.Fatalf("expected hostname sw1, got %#v", doc)
	}
	if _, err := os.Stat(cfg.PIDPath()); !os.IsNotExist(err) {
		t.Fatalf("expected pid file removed, stat err=%v", err)
	}
}

func TestSecondRunIsNoOp(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.SeedStartupRow(t, cfg, `{"hostname":"sw1"}`)
	running := testsupport.MustOpenRunning(t, cfg)
	setHardware(t, running)

	if err := waitRun(t, startRun(t, cfg)); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, err := runconfig.Write(context.Background(), running, runconfig.Document{"hostname": "edited"}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := waitRun(t, startRun(t, cfg)); err != nil {
		t.Fatalf("second run: %v", err)
	}

	st := testsupport.ReadSystem(t, running)
	if st.CurCfg != 1 {
		t.Fatalf("cur_cfg incremented twice: %+v", st)
	}
	doc, err := runconfig.Read(context.Background(), running)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if doc["hostname"] != "edited" {
		t.Fatalf("second run must not reapply startup config, got %#v", doc)
	}
}

func TestRunWithoutConfigStore(t *testing.T) {
	cases := map[string]func(t *testing.T, cfg *config.Config){
		"missing database": func(*testing.T, *config.Config) {},
		"missing table": func(t *testing.T, cfg *config.Config) {
			conn, err := dbconn.Open(context.Background(), dbconn.Options{Path: cfg.Databases.ConfigDB, Create: true})
			if err != nil {
				t.Fatalf("dbconn.Open: %v", err)
			}
			_ = conn.Close()
		},
		"empty table": func(t *testing.T, cfg *config.Config) {
			testsupport.MustInitConfigStore(t, cfg)
		},
		"empty payload": func(t *testing.T, cfg *config.Config) {
			testsupport.SeedStartupRow(t, cfg, "")
		},
	}
	for name, setup := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := testsupport.NewConfig(t, testsupport.WithDiscovery(3, time.Millisecond))
			setup(t, cfg)
			running := testsupport.MustOpenRunning(t, cfg)
			setHardware(t, running)

			if err := waitRun(t, startRun(t, cfg)); err != nil {
				t.Fatalf("Run: %v", err)
			}
			st := testsupport.ReadSystem(t, running)
			if st.CurCfg != 1 {
				t.Fatalf("expected completion to be marked, got %+v", st)
			}
			doc, err := runconfig.Read(context.Background(), running)
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			if len(doc) != 0 {
				t.Fatalf("expected nothing pushed, got %#v", doc)
			}
		})
	}
}

func TestExitRequestWinsOverPendingStep(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	running := testsupport.MustOpenRunning(t, cfg)

	done := startRun(t, cfg)
	client := dialWhenReady(t, cfg.Daemon.SocketPath)
	if err := client.Exit(); err != nil {
		t.Fatalf("Exit: %v", err)
	}
	if err := waitRun(t, done); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st := testsupport.ReadSystem(t, running); st.CurCfg != 0 {
		t.Fatalf("exit must not mark completion, got %+v", st)
	}
	if _, err := os.Stat(cfg.Daemon.SocketPath); !os.IsNotExist(err) {
		t.Fatalf("expected control socket removed, stat err=%v", err)
	}
}

func TestExitRequestHonoredWhileRunningDatabaseUnsynced(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithSyncTimeout(0))
	conn, err := dbconn.Open(context.Background(), dbconn.Options{Path: cfg.Databases.RunningDB, Create: true})
	if err != nil {
		t.Fatalf("dbconn.Open: %v", err)
	}
	_ = conn.Close()

	done := startRun(t, cfg)
	client := dialWhenReady(t, cfg.Daemon.SocketPath)
	waitForStep(t, client, "sync")
	if err := client.Exit(); err != nil {
		t.Fatalf("Exit: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("exit acknowledged but Run kept waiting for the running database")
	}
}

func TestRunningDatabaseSyncTimeoutIsRestart(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithSyncTimeout(1))
	conn, err := dbconn.Open(context.Background(), dbconn.Options{Path: cfg.Databases.RunningDB, Create: true})
	if err != nil {
		t.Fatalf("dbconn.Open: %v", err)
	}
	_ = conn.Close()

	err = waitRun(t, startRun(t, cfg))
	if !errors.Is(err, poller.ErrTimeout) {
		t.Fatalf("expected sync timeout, got %v", err)
	}
	if coordinator.ExitCode(err) != coordinator.ExitRestart {
		t.Fatalf("expected restart exit status, got %d", coordinator.ExitCode(err))
	}
}

func TestMalformedStartupPayloadIsConfigError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.SeedStartupRow(t, cfg, "{not json")
	running := testsupport.MustOpenRunning(t, cfg)
	setHardware(t, running)

	err := waitRun(t, startRun(t, cfg))
	var decErr *runconfig.DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if coordinator.ExitCode(err) != coordinator.ExitConfig {
		t.Fatalf("expected config exit status, got %d", coordinator.ExitCode(err))
	}
	if st := testsupport.ReadSystem(t, running); st.CurCfg != 0 {
		t.Fatalf("completion must not be marked after a failed push, got %+v", st)
	}
}

func TestSecondInstanceRefused(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil || !ok {
		t.Fatalf("TryLock: ok=%v err=%v", ok, err)
	}
	defer lock.Unlock()

	err = waitRun(t, startRun(t, cfg))
	if !errors.Is(err, coordinator.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
	if coordinator.ExitCode(err) != coordinator.ExitConfig {
		t.Fatalf("expected exit 1, got %d", coordinator.ExitCode(err))
	}
}

func TestUnusableRunDirectoryIsFatal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	blocker := filepath.Join(testsupport.BaseDir(cfg), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}
	cfg.Daemon.RunDir = filepath.Join(blocker, "run")

	err := waitRun(t, startRun(t, cfg))
	if !errors.Is(err, coordinator.ErrFatalIO) {
		t.Fatalf("expected ErrFatalIO, got %v", err)
	}
	if coordinator.ExitCode(err) != coordinator.ExitRestart {
		t.Fatalf("expected restart exit status, got %d", coordinator.ExitCode(err))
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, coordinator.ExitOK},
		{context.Canceled, coordinator.ExitOK},
		{fmt.Errorf("wrap: %w", coordinator.ErrAlreadyRunning), coordinator.ExitConfig},
		{&runconfig.DecodeError{Size: 1}, coordinator.ExitConfig},
		{fmt.Errorf("%w: socket", coordinator.ErrFatalIO), coordinator.ExitRestart},
		{errors.New("database is locked"), coordinator.ExitRestart},
	}
	for _, tc := range tests {
		if got := coordinator.ExitCode(tc.err); got != tc.want {
			t.Errorf("ExitCode(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
