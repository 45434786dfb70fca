package testsupport

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"cfgd/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config whose databases, run directory and socket live
// in per-test temp directories, with short polling intervals.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	// Unix socket paths are length limited; keep the socket out of the
	// test-named temp tree.
	sockDir, err := os.MkdirTemp("", "cfgd")
	if err != nil {
		t.Fatalf("mkdir socket dir: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(sockDir) })

	cfgVal := config.Default()
	cfgVal.Databases.ConfigDB = filepath.Join(base, "config.db")
	cfgVal.Databases.RunningDB = filepath.Join(base, "running.db")
	cfgVal.Daemon.RunDir = filepath.Join(base, "run")
	cfgVal.Daemon.SocketPath = filepath.Join(sockDir, "cfgd.ctl")
	cfgVal.Daemon.DiscoveryAttempts = 5
	cfgVal.Daemon.DiscoveryIntervalMS = 5
	cfgVal.Daemon.HardwarePollIntervalMS = 5
	cfgVal.Daemon.TickIntervalMS = 5
	cfgVal.Daemon.SyncTimeoutSeconds = 5
	cfgVal.Logging.Format = "json"
	cfgVal.Logging.Level = "error"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithDiscovery overrides the discovery pass budget.
func WithDiscovery(attempts int, interval time.Duration) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Daemon.DiscoveryAttempts = attempts
		b.cfg.Daemon.DiscoveryIntervalMS = int(interval / time.Millisecond)
	}
}

// WithSyncTimeout overrides the workflow sync timeout.
func WithSyncTimeout(seconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Daemon.SyncTimeoutSeconds = seconds
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Databases.ConfigDB)
}
