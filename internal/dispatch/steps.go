package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cfgd/internal/dbconn"
	"cfgd/internal/logging"
	"cfgd/internal/poller"
	"cfgd/internal/runconfig"
	"cfgd/internal/sysstate"
)

// StepKind names one dispatch step.
type StepKind int

const (
	WaitHardware StepKind = iota
	PushConfig
	MarkDone
	Terminate
)

func (k StepKind) String() string {
	switch k {
	case WaitHardware:
		return "wait_hardware"
	case PushConfig:
		return "push_config"
	case MarkDone:
		return "mark_done"
	case Terminate:
		return "terminate"
	default:
		return fmt.Sprintf("StepKind(%d)", int(k))
	}
}

// Steps returns the fixed step order.
func Steps() []StepKind {
	return []StepKind{WaitHardware, PushConfig, MarkDone, Terminate}
}

// SystemState is the system row as the steps use it.
type SystemState interface {
	Read(ctx context.Context) (sysstate.State, error)
	MarkCompletion(ctx context.Context) (dbconn.TxnStatus, error)
}

// ConfigWriter applies a document to the running configuration.
type ConfigWriter interface {
	Write(ctx context.Context, doc runconfig.Document) (dbconn.TxnStatus, error)
}

// Syncer waits for a connection's first sync.
type Syncer interface {
	AwaitSync(ctx context.Context, opts poller.Options) error
}

// StepResult reports a step outcome. Terminated is set when the step ended
// the run without completing the sequence.
type StepResult struct {
	Done       bool
	Terminated bool
}

// Context carries everything the steps read and write.
type Context struct {
	Running    Syncer
	System     SystemState
	Translator ConfigWriter

	// StartupPayload is the payload found during discovery. HasStartup is
	// false when discovery found nothing.
	StartupPayload string
	HasStartup     bool

	SyncWait             poller.Options
	HardwarePollInterval time.Duration

	// Terminate is set once the coordinator should exit.
	Terminate bool

	Logger *slog.Logger
}

func (c *Context) logger() *slog.Logger {
	if c.Logger == nil {
		return logging.NewNop()
	}
	return c.Logger
}

// Advance runs one step against c.
func Advance(ctx context.Context, c *Context, kind StepKind) (StepResult, error) {
	switch kind {
	case WaitHardware:
		return waitHardware(ctx, c)
	case PushConfig:
		return pushConfig(ctx, c)
	case MarkDone:
		return markDone(ctx, c)
	case Terminate:
		c.Terminate = true
		return StepResult{Done: true}, nil
	default:
		return StepResult{}, fmt.Errorf("unknown dispatch step %s", kind)
	}
}

func waitHardware(ctx context.Context, c *Context) (StepResult, error) {
	st, err := c.System.Read(ctx)
	if err != nil {
		return StepResult{}, fmt.Errorf("%s: %w", WaitHardware, err)
	}
	if st.Configured() {
		c.logger().Info("cur_cfg already set, configuration already applied this boot; exiting",
			logging.Uint64("cur_cfg", st.CurCfg),
		)
		c.Terminate = true
		return StepResult{Done: true, Terminated: true}, nil
	}
	if st.HardwareReady() {
		c.logger().Info("hardware initialization complete", logging.Uint64("cur_hw", st.CurHW))
		return StepResult{Done: true}, nil
	}
	if err := sleep(ctx, c.HardwarePollInterval); err != nil {
		return StepResult{}, err
	}
	return StepResult{}, nil
}

func pushConfig(ctx context.Context, c *Context) (StepResult, error) {
	if !c.HasStartup {
		c.logger().Info("no startup configuration to push")
		return StepResult{Done: true}, nil
	}
	doc, err := runconfig.Decode(c.StartupPayload)
	if err != nil {
		return StepResult{}, fmt.Errorf("%s: %w", PushConfig, err)
	}
	if err := c.Running.AwaitSync(ctx, c.SyncWait); err != nil {
		return StepResult{}, fmt.Errorf("%s: %w", PushConfig, err)
	}
	status, err := c.Translator.Write(ctx, doc)
	if err != nil {
		return StepResult{}, fmt.Errorf("%s: write running config: %w", PushConfig, err)
	}
	c.logger().Info("startup configuration pushed",
		logging.Int("keys", len(doc)),
		logging.String("status", status.String()),
	)
	return StepResult{Done: true}, nil
}

func markDone(ctx context.Context, c *Context) (StepResult, error) {
	status, err := c.System.MarkCompletion(ctx)
	if err != nil || status != dbconn.TxnSuccess {
		attrs := []logging.Attr{
			logging.String("status", status.String()),
			logging.String(logging.FieldImpact, "completion not recorded yet; retrying next tick"),
		}
		if err != nil {
			attrs = append(attrs, logging.Error(err))
		}
		logging.WarnWithContext(c.logger(), "marking configuration done failed", "mark_done_retry", attrs...)
		return StepResult{}, nil
	}
	c.logger().Info("configuration marked done")
	return StepResult{Done: true}, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
