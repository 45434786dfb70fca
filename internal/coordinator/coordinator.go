package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"cfgd/internal/config"
	"cfgd/internal/dbconn"
	"cfgd/internal/dispatch"
	"cfgd/internal/ipc"
	"cfgd/internal/logging"
	"cfgd/internal/poller"
	"cfgd/internal/preflight"
	"cfgd/internal/runconfig"
	"cfgd/internal/sysstate"
)

// Coordinator applies the saved startup configuration once per boot.
type Coordinator struct {
	cfg    *config.Config
	logger *slog.Logger
	runID  string

	lock   *flock.Flock
	exitCh chan struct{}
	status atomic.Pointer[ipc.StatusResponse]
}

// New constructs a coordinator. runID tags status replies.
func New(cfg *config.Config, logger *slog.Logger, runID string) (*Coordinator, error) {
	if cfg == nil {
		return nil, errors.New("coordinator requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	c := &Coordinator{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "coordinator"),
		runID:  runID,
		lock:   flock.New(cfg.LockPath()),
		exitCh: make(chan struct{}, 1),
	}
	c.status.Store(&ipc.StatusResponse{
		PID:       os.Getpid(),
		RunID:     runID,
		ConfigDB:  cfg.Databases.ConfigDB,
		RunningDB: cfg.Databases.RunningDB,
	})
	return c, nil
}

// RequestExit asks the tick loop to stop. Safe from any goroutine.
func (c *Coordinator) RequestExit() {
	select {
	case c.exitCh <- struct{}{}:
	default:
	}
}

// Status returns the snapshot published after the latest tick.
func (c *Coordinator) Status() ipc.StatusResponse {
	return *c.status.Load()
}

// Run executes the boot sequence until it terminates, an exit is requested,
// or ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context) error {
	if err := c.checkRunDir(); err != nil {
		return err
	}
	if err := c.acquireLock(); err != nil {
		return err
	}
	defer c.releaseLock()

	payload, hasStartup := c.discover(ctx)

	running, err := dbconn.Open(ctx, dbconn.Options{
		Path:   c.cfg.Databases.RunningDB,
		Tables: []string{runconfig.TableName, sysstate.TableName},
		Logger: c.logger,
	})
	if err != nil {
		return fmt.Errorf("open running database: %w", err)
	}
	defer running.Close()

	srv, err := ipc.NewServer(ctx, c.cfg.Daemon.SocketPath, c, c.logger)
	if err != nil {
		logging.ErrorWithContext(c.logger, "control socket unavailable", "control_socket_failed",
			logging.String("socket", c.cfg.Daemon.SocketPath),
			logging.Error(err))
		return fmt.Errorf("%w: control socket: %w", ErrFatalIO, err)
	}
	srv.Serve()
	defer srv.Close()

	syncWait := poller.Unbounded(c.cfg.DiscoveryInterval(), c.cfg.SyncTimeout())
	system := sysstate.New(running)
	guard := &bootGuard{system: system}
	if timeout := c.cfg.SyncTimeout(); timeout > 0 {
		guard.deadline = time.Now().Add(timeout)
	}

	dctx := &dispatch.Context{
		Running:              running,
		System:               system,
		Translator:           runconfig.NewTranslator(running),
		StartupPayload:       payload,
		HasStartup:           hasStartup,
		SyncWait:             syncWait,
		HardwarePollInterval: c.cfg.HardwarePollInterval(),
		Logger:               logging.NewComponentLogger(c.logger, "dispatch"),
	}
	return c.loop(ctx, running, guard, dispatch.NewSequencer(dctx), hasStartup)
}

func (c *Coordinator) loop(ctx context.Context, running *dbconn.Conn, guard *bootGuard, seq *dispatch.Sequencer, hasStartup bool) error {
	ticker := time.NewTicker(c.cfg.TickInterval())
	defer ticker.Stop()

	for {
		done, err := c.tick(ctx, running, guard, seq)
		c.publish(guard, seq, hasStartup)
		if err != nil {
			var decErr *runconfig.DecodeError
			if errors.As(err, &decErr) {
				logging.ErrorWithContext(c.logger, "startup configuration is not valid", "startup_decode_failed",
					logging.Int("bytes", decErr.Size),
					logging.String("summary", decErr.Summary),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "inspect with 'cfgdbutil show startup-config json' or delete it"))
			} else if !errors.Is(err, context.Canceled) {
				logging.ErrorWithContext(c.logger, "coordinator failed", "coordinator_failed",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "the supervisor should restart cfgd"))
			}
			return err
		}
		if done {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// tick services the control channel, pumps the running connection, clears
// the boot guard and then advances the sequencer. An exit request wins over
// everything else, including a running database that has not synced yet.
func (c *Coordinator) tick(ctx context.Context, running *dbconn.Conn, guard *bootGuard, seq *dispatch.Sequencer) (bool, error) {
	select {
	case <-c.exitCh:
		c.logger.Info("exit requested over control channel")
		return true, nil
	default:
	}

	if _, err := running.Run(ctx); err != nil {
		return false, fmt.Errorf("pump running database: %w", err)
	}
	if !guard.cleared {
		configured, err := guard.check(ctx, running)
		switch {
		case err != nil:
			return false, err
		case configured:
			c.logger.Info("cur_cfg already set, cfgd exiting", logging.Uint64("cur_cfg", guard.curCfg))
			return true, nil
		case !guard.cleared:
			return false, nil
		}
	}
	if err := seq.Tick(ctx); err != nil {
		return false, err
	}
	if seq.Terminated() {
		c.logger.Info("configuration lifecycle complete")
		return true, nil
	}
	return false, nil
}

// bootGuard holds the sequencer back until the running database has synced
// and shows that no earlier run applied a configuration.
type bootGuard struct {
	system   *sysstate.Store
	deadline time.Time
	cleared  bool
	curCfg   uint64
}

// check reports true when a previous run already configured the system. It
// leaves the guard uncleared while the running database is still syncing.
func (g *bootGuard) check(ctx context.Context, running *dbconn.Conn) (bool, error) {
	if !running.Synced() {
		if !g.deadline.IsZero() && time.Now().After(g.deadline) {
			return false, fmt.Errorf("wait for %s to sync: %w", running.Path(), poller.ErrTimeout)
		}
		return false, nil
	}
	st, err := g.system.Read(ctx)
	if err != nil {
		return false, fmt.Errorf("idempotence guard: %w", err)
	}
	if st.Configured() {
		g.curCfg = st.CurCfg
		return true, nil
	}
	g.cleared = true
	return false, nil
}

func (c *Coordinator) publish(guard *bootGuard, seq *dispatch.Sequencer, hasStartup bool) {
	next := c.Status()
	next.Cursor = seq.Cursor()
	next.Step = "done"
	if !guard.cleared {
		next.Step = "sync"
	} else if step, ok := seq.Current(); ok {
		next.Step = step.String()
	}
	next.Terminating = seq.Terminated()
	next.HasStartup = hasStartup
	c.status.Store(&next)
}

func (c *Coordinator) checkRunDir() error {
	if err := c.cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("%w: %w", ErrFatalIO, err)
	}
	if result := preflight.CheckDirectoryAccess("Run directory", c.cfg.Daemon.RunDir); !result.Passed {
		return fmt.Errorf("%w: %s: %s", ErrFatalIO, result.Name, result.Detail)
	}
	return nil
}

func (c *Coordinator) acquireLock() error {
	ok, err := c.lock.TryLock()
	if err != nil {
		return fmt.Errorf("%w: acquire lock: %w", ErrFatalIO, err)
	}
	if !ok {
		return fmt.Errorf("%w (lock %s)", ErrAlreadyRunning, c.cfg.LockPath())
	}
	if err := os.WriteFile(c.cfg.PIDPath(), []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
		_ = c.lock.Unlock()
		return fmt.Errorf("%w: write pid file: %w", ErrFatalIO, err)
	}
	return nil
}

func (c *Coordinator) releaseLock() {
	_ = os.Remove(c.cfg.PIDPath())
	if err := c.lock.Unlock(); err != nil {
		logging.WarnWithContext(c.logger, "failed to release lock", "lock_release_failed",
			logging.String("lock", c.cfg.LockPath()),
			logging.Error(err))
	}
}
