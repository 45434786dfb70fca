package runconfig_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"cfgd/internal/dbconn"
	"cfgd/internal/runconfig"
)

func openRunning(t *testing.T) *dbconn.Conn {
	t.Helper()
	ctx := context.Background()
	conn, err := dbconn.Open(ctx, dbconn.Options{
		Path:   filepath.Join(t.TempDir(), "running.db"),
		Tables: []string{runconfig.TableName},
		Create: true,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	if err := conn.EnsureSchema(ctx, runconfig.Schema); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	return conn
}

func TestWriteReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	conn := openRunning(t)

	docs := []runconfig.Document{
		{"hostname": "sw1"},
		{
			"hostname": "core",
			"interface": map[string]any{
				"1": map[string]any{"admin": "up", "mtu": json.Number("9000"), "lag": nil},
				"2": map[string]any{"tags": []any{"a", "b"}, "opts": map[string]any{"x": true}},
			},
			"vlan":  map[string]any{"10": "blue", "20": map[string]any{}},
			"empty": map[string]any{},
			"ports": []any{json.Number("1"), json.Number("2")},
		},
		{},
	}
	for i, doc := range docs {
		status, err := runconfig.Write(ctx, conn, doc)
		if err != nil {
			t.Fatalf("doc %d: Write: %v", i, err)
		}
		if status != dbconn.TxnSuccess && status != dbconn.TxnUnchanged {
			t.Fatalf("doc %d: unexpected status %v", i, status)
		}
		got, err := runconfig.Read(ctx, conn)
		if err != nil {
			t.Fatalf("doc %d: Read: %v", i, err)
		}
		if !reflect.DeepEqual(got, doc) {
			t.Fatalf("doc %d: round trip mismatch\n got %#v\nwant %#v", i, got, doc)
		}
	}
}

func TestWriteReplacesPreviousConfig(t *testing.T) {
	ctx := context.Background()
	conn := openRunning(t)

	if _, err := runconfig.Write(ctx, conn, runconfig.Document{"hostname": "old", "banner": "hi"}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := runconfig.Write(ctx, conn, runconfig.Document{"hostname": "new"}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := runconfig.Read(ctx, conn)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !reflect.DeepEqual(got, runconfig.Document{"hostname": "new"}) {
		t.Fatalf("expected replaced document, got %#v", got)
	}
}

func TestRenderFromConnection(t *testing.T) {
	ctx := context.Background()
	conn := openRunning(t)
	if _, err := runconfig.Write(ctx, conn, runconfig.Document{"hostname": "sw1"}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	var b strings.Builder
	if err := runconfig.Render(ctx, conn, &b); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if b.String() != "hostname sw1\n" {
		t.Fatalf("unexpected render %q", b.String())
	}
}
