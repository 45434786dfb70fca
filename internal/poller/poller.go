package poller

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout reports that a wait exhausted its attempt budget or deadline
// without observing a change.
var ErrTimeout = errors.New("timed out waiting for database change")

const defaultInterval = 100 * time.Millisecond

// Pumper is a connection whose change sequence number advances as it observes
// state changes. Run performs one pass of the connection's protocol pump.
type Pumper interface {
	Run(ctx context.Context) (bool, error)
	ChangeSeqno() uint64
}

// Options bounds a wait. Attempts <= 0 means no attempt budget and Timeout
// <= 0 means no deadline.
type Options struct {
	Attempts int
	Interval time.Duration
	Timeout  time.Duration
}

// Bounded waits at most attempts pumps spaced by interval.
func Bounded(attempts int, interval time.Duration) Options {
	return Options{Attempts: attempts, Interval: interval}
}

// Unbounded pumps until the sequence number changes. A zero timeout waits
// until ctx is cancelled.
func Unbounded(interval, timeout time.Duration) Options {
	return Options{Interval: interval, Timeout: timeout}
}

// CommitWait is used after a commit to observe its outcome being published.
func CommitWait() Options {
	return Options{Interval: 5 * time.Millisecond, Timeout: 5 * time.Second}
}

// WaitForChange records p's sequence number and pumps p until the number
// changes. It returns false with a nil error when the budget or timeout is
// spent first.
func WaitForChange(ctx context.Context, p Pumper, opts Options) (bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = defaultInterval
	}

	var deadline <-chan time.Time
	if opts.Timeout > 0 {
		timer := time.NewTimer(opts.Timeout)
		defer timer.Stop()
		deadline = timer.C
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	start := p.ChangeSeqno()
	for attempt := 0; opts.Attempts <= 0 || attempt < opts.Attempts; attempt++ {
		if _, err := p.Run(ctx); err != nil {
			return false, err
		}
		if p.ChangeSeqno() != start {
			return true, nil
		}
		if opts.Attempts > 0 && attempt == opts.Attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-deadline:
			return false, nil
		case <-ticker.C:
		}
	}
	return false, nil
}

// Await is WaitForChange with an exhausted wait reported as ErrTimeout.
func Await(ctx context.Context, p Pumper, opts Options) error {
	changed, err := WaitForChange(ctx, p, opts)
	if err != nil {
		return err
	}
	if !changed {
		return ErrTimeout
	}
	return nil
}
