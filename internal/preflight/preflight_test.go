package preflight

import (
	"os"
	"path/filepath"
	"testing"

	"cfgd/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	result := CheckDirectoryAccess("test", t.TempDir())
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckDirectoryAccess("test", f); result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckDatabaseFile(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "ovsdb.db")
	if err := os.WriteFile(db, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckDatabaseFile("db", db); !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if result := CheckDatabaseFile("db", dir); result.Passed {
		t.Fatal("expected failure for a directory")
	}
	if result := CheckDatabaseFile("db", filepath.Join(dir, "missing.db")); result.Passed {
		t.Fatal("expected failure for missing file")
	}
}

func TestRunAllTreatsConfigStoreAsOptional(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Daemon.RunDir = base
	cfg.Databases.RunningDB = filepath.Join(base, "running.db")
	cfg.Databases.ConfigDB = filepath.Join(base, "config.db")
	if err := os.WriteFile(cfg.Databases.RunningDB, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	results := RunAll(&cfg)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if failed, ok := FirstFailure(results); ok {
		t.Fatalf("missing config store must not fail preflight, got %+v", failed)
	}

	if err := os.Remove(cfg.Databases.RunningDB); err != nil {
		t.Fatal(err)
	}
	failed, ok := FirstFailure(RunAll(&cfg))
	if !ok || failed.Name != "Running database" {
		t.Fatalf("expected running database failure, got %+v ok=%v", failed, ok)
	}
}
