package ipc_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"cfgd/internal/ipc"
	"cfgd/internal/logging"
)

type fakeController struct {
	exits atomic.Int32
}

func (f *fakeController) RequestExit() { f.exits.Add(1) }

func (f *fakeController) Status() ipc.StatusResponse {
	return ipc.StatusResponse{PID: 42, Cursor: 1, Step: "push_config", HasStartup: true}
}

func shortSocketPath(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "cfgd-ipc")
	if err != nil {
		t.Fatalf("mkdir temp: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return filepath.Join(dir, "cfgd.ctl")
}

func TestServerClientRoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	ctrl := &fakeController{}
	socket := shortSocketPath(t)
	srv, err := ipc.NewServer(ctx, socket, ctrl, logging.NewNop())
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping control socket test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()

	client, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	defer client.Close()

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if status.PID != 42 || status.Step != "push_config" || !status.HasStartup {
		t.Fatalf("unexpected status: %+v", status)
	}

	if err := client.Exit(); err != nil {
		t.Fatalf("Exit RPC failed: %v", err)
	}
	if ctrl.exits.Load() != 1 {
		t.Fatalf("expected one exit request, got %d", ctrl.exits.Load())
	}

	srv.Close()
	if _, err := os.Stat(socket); !os.IsNotExist(err) {
		t.Fatalf("expected socket removed after Close, stat err=%v", err)
	}
}

func TestNewServerRequiresController(t *testing.T) {
	if _, err := ipc.NewServer(context.Background(), shortSocketPath(t), nil, nil); err == nil {
		t.Fatal("expected error without controller")
	}
}

func TestNewServerFailsOnMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "cfgd.ctl")
	if _, err := ipc.NewServer(context.Background(), path, &fakeController{}, nil); err == nil {
		t.Fatal("expected listen error for socket in missing directory")
	}
}

func TestCloseDoesNotWaitForIdleClients(t *testing.T) {
	socket := shortSocketPath(t)
	srv, err := ipc.NewServer(context.Background(), socket, &fakeController{}, nil)
	if err != nil {
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()

	client, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	defer client.Close()
	if _, err := client.Status(); err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}

	closed := make(chan struct{})
	go func() {
		srv.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("Close blocked on an idle client connection")
	}
	if _, err := client.Status(); err == nil {
		t.Fatal("expected RPC on a closed server to fail")
	}
}

func TestCanceledContextStopsAccepting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	socket := shortSocketPath(t)
	srv, err := ipc.NewServer(ctx, socket, &fakeController{}, nil)
	if err != nil {
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)

	cancel()
	deadline := time.Now().Add(2 * time.Second)
	for {
		client, err := ipc.Dial(socket)
		if err != nil {
			return
		}
		_ = client.Close()
		if time.Now().After(deadline) {
			t.Fatal("server still accepting after context cancel")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
