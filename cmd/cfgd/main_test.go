package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"cfgd/internal/config"
	"cfgd/internal/coordinator"
	"cfgd/internal/ipc"
	"cfgd/internal/runconfig"
	"cfgd/internal/sysstate"
	"cfgd/internal/testsupport"
)

type fakeController struct {
	exits atomic.Int32
}

func (f *fakeController) RequestExit() { f.exits.Add(1) }

func (f *fakeController) Status() ipc.StatusResponse {
	return ipc.StatusResponse{PID: 42, RunID: "run-1", Cursor: 1, Step: "push_config", HasStartup: true}
}

func writeTestConfig(t *testing.T, cfg *config.Config) string {
	t.Helper()
	t.Setenv(config.RunningDBEnv, "")
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(testsupport.BaseDir(cfg), "cfgd.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func startFakeServer(t *testing.T, cfg *config.Config) *fakeController {
	t.Helper()
	ctrl := &fakeController{}
	srv, err := ipc.NewServer(context.Background(), cfg.Daemon.SocketPath, ctrl, nil)
	if err != nil {
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)
	return ctrl
}

func TestStatusCommand(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := writeTestConfig(t, cfg)
	startFakeServer(t, cfg)

	out, err := execute(t, "--config", path, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, want := range []string{"push_config", "run-1", "42", "Startup Config"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}

	out, err = execute(t, "--config", path, "status", "--json")
	if err != nil {
		t.Fatalf("status --json: %v", err)
	}
	if !strings.Contains(out, `"step": "push_config"`) {
		t.Fatalf("unexpected json output:\n%s", out)
	}
}

func TestExitCommand(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := writeTestConfig(t, cfg)
	ctrl := startFakeServer(t, cfg)

	out, err := execute(t, "--config", path, "exit")
	if err != nil {
		t.Fatalf("exit: %v", err)
	}
	if ctrl.exits.Load() != 1 {
		t.Fatalf("expected one exit request, got %d", ctrl.exits.Load())
	}
	if !strings.Contains(out, "Exit requested") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestExitCommandWithoutDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := writeTestConfig(t, cfg)

	_, err := execute(t, "--config", path, "exit")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected socket not found error, got %v", err)
	}
}

func TestRunAppliesStartupConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.SeedStartupRow(t, cfg, `{"hostname":"sw1"}`)
	running := testsupport.MustOpenRunning(t, cfg)
	if _, err := sysstate.New(running).SetHardware(context.Background(), 1); err != nil {
		t.Fatalf("SetHardware: %v", err)
	}
	path := writeTestConfig(t, cfg)

	_, err := execute(t, "--config", path)
	if code := exitStatus(err); code != coordinator.ExitOK {
		t.Fatalf("expected exit 0, got %d (%v)", code, err)
	}
	doc, err := runconfig.Read(context.Background(), running)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if doc["hostname"] != "sw1" {
		t.Fatalf("unexpected running config %#v", doc)
	}
}

func TestRunWithoutRunningDatabaseRequestsRestart(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := writeTestConfig(t, cfg)

	_, err := execute(t, "--config", path, "--database", filepath.Join(testsupport.BaseDir(cfg), "absent.db"))
	if code := exitStatus(err); code != coordinator.ExitRestart {
		t.Fatalf("expected restart exit status, got %d (%v)", code, err)
	}
}

func TestUsageErrorsExitOne(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := writeTestConfig(t, cfg)

	cases := [][]string{
		{"--config", path, "--no-such-flag"},
		{"--config", path, "extra"},
		{"--config", path, "--config-db", cfg.Databases.RunningDB},
	}
	for _, args := range cases {
		_, err := execute(t, args...)
		if code := exitStatus(err); code != coordinator.ExitConfig {
			t.Fatalf("%v: expected exit 1, got %d (%v)", args, code, err)
		}
	}
}

func TestExitStatus(t *testing.T) {
	if exitStatus(nil) != 0 {
		t.Fatal("nil error must exit 0")
	}
	if exitStatus(usageError{errors.New("bad flag")}) != coordinator.ExitConfig {
		t.Fatal("usage errors must exit 1")
	}
	if exitStatus(coordinator.ErrFatalIO) != coordinator.ExitRestart {
		t.Fatal("fatal I/O must exit 5")
	}
}

func TestCheckCommand(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := writeTestConfig(t, cfg)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	out, err := execute(t, "--config", path, "check")
	if exitStatus(err) != coordinator.ExitConfig {
		t.Fatalf("expected failure without running database, got %v", err)
	}
	if !strings.Contains(out, "fail") || !strings.Contains(out, "warn") {
		t.Fatalf("expected fail and warn rows:\n%s", out)
	}

	testsupport.MustOpenRunning(t, cfg)
	out, err = execute(t, "--config", path, "check")
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	if strings.Contains(out, "fail") {
		t.Fatalf("unexpected failure:\n%s", out)
	}
}
