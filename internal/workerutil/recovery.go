// Package workerutil runs long-lived background workers with panic recovery.
package workerutil

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

const (
	// defaultInitialBackoff is the starting delay before the first restart
	// after a panic. Doubles on each attempt up to defaultMaxBackoff.
	defaultInitialBackoff = 100 * time.Millisecond

	// defaultMaxBackoff caps the delay between restarts.
	defaultMaxBackoff = 5 * time.Second

	// defaultMaxRetries limits the total number of runs before permanent stop.
	defaultMaxRetries = 10
)

// ErrRetriesExhausted is passed to OnFatal when the worker panicked on every
// allowed run.
var ErrRetriesExhausted = errors.New("worker exceeded max retries")

// RecoveryOptions configures RunWithPanicRecovery.
// Zero-value numeric fields use defaults: InitialBackoff=100ms, MaxBackoff=5s,
// MaxRetries=10. Nil callbacks are no-ops.
//
// MaxRetries counts runs, not restarts: MaxRetries=1 runs the worker once and
// reports a panic through OnFatal without restarting.
type RecoveryOptions struct {
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxRetries     int

	// OnPanic is called after each recovered panic, before the backoff wait.
	// attempt is 1-based.
	OnPanic func(worker string, attempt int)

	// OnFatal is called once when the worker stops for good: fn returned a
	// non-nil error, or ErrRetriesExhausted after repeated panics. It is not
	// called for a nil return or a cancelled context.
	OnFatal func(worker string, err error)

	// IsShutdown returns true when the application is shutting down. A panic
	// during shutdown is logged but neither restarted nor reported.
	IsShutdown func() bool
}

// applyDefaults returns a copy of opts with zero-value fields replaced.
// Also corrects MaxBackoff < InitialBackoff.
func (opts RecoveryOptions) applyDefaults() RecoveryOptions {
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = defaultInitialBackoff
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = defaultMaxBackoff
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.MaxBackoff < opts.InitialBackoff {
		slog.Warn("[DEBUG-PANIC] MaxBackoff < InitialBackoff is contradictory, using InitialBackoff as MaxBackoff",
			"initialBackoff", opts.InitialBackoff,
			"maxBackoff", opts.MaxBackoff,
		)
		opts.MaxBackoff = opts.InitialBackoff
	}
	return opts
}

// RunWithPanicRecovery launches fn in a goroutine tracked by wg.
//
// A panic is logged with its stack and fn is restarted with exponential
// backoff, up to opts.MaxRetries runs. An error returned by fn is terminal:
// it is logged and handed to opts.OnFatal without a restart. fn should
// return nil once ctx is cancelled.
func RunWithPanicRecovery(
	ctx context.Context,
	name string,
	wg *sync.WaitGroup,
	fn func(ctx context.Context) error,
	opts RecoveryOptions,
) {
	opts = opts.applyDefaults()
	wg.Go(func() {
		runRecoveryLoop(ctx, name, fn, opts)
	})
}

func runRecoveryLoop(
	ctx context.Context,
	name string,
	fn func(ctx context.Context) error,
	opts RecoveryOptions,
) {
	restartDelay := opts.InitialBackoff

	for attempt := range opts.MaxRetries {
		panicked, err := runOnce(ctx, name, fn)

		if !panicked {
			if err != nil && ctx.Err() == nil {
				slog.Error("[worker] worker stopped with error", "worker", name, "error", err)
				if opts.OnFatal != nil {
					opts.OnFatal(name, err)
				}
			}
			return
		}
		if ctx.Err() != nil {
			return
		}

		// During shutdown the app context may already be gone, so callbacks
		// that emit frontend events are skipped.
		if opts.IsShutdown != nil && opts.IsShutdown() {
			slog.Info("[DEBUG-PANIC] worker shutdown detected, stopping restart", "worker", name)
			return
		}

		if opts.OnPanic != nil {
			opts.OnPanic(name, attempt+1)
		}

		// No backoff after the final run: it only delays OnFatal.
		if attempt == opts.MaxRetries-1 {
			break
		}

		slog.Warn("[DEBUG-PANIC] restarting worker after panic",
			"worker", name,
			"restartDelay", restartDelay,
			"attempt", attempt+1,
		)
		restartTimer := time.NewTimer(restartDelay)
		select {
		case <-ctx.Done():
			restartTimer.Stop()
			return
		case <-restartTimer.C:
		}
		restartDelay = nextBackoff(restartDelay, opts.MaxBackoff)
	}

	slog.Error("[DEBUG-PANIC] worker exceeded max retries, giving up",
		"worker", name,
		"maxRetries", opts.MaxRetries,
	)
	if opts.OnFatal != nil {
		opts.OnFatal(name, fmt.Errorf("%w (%d)", ErrRetriesExhausted, opts.MaxRetries))
	}
}

func runOnce(ctx context.Context, name string, fn func(ctx context.Context) error) (panicked bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("[DEBUG-PANIC] background goroutine recovered from panic",
				"worker", name,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			panicked = true
		}
	}()
	return false, fn(ctx)
}

// nextBackoff doubles the current backoff duration, capping at maxBackoff.
func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	if current <= 0 {
		return defaultInitialBackoff
	}
	if current >= maxBackoff {
		return maxBackoff
	}
	next := current * 2
	// time.Duration is int64; doubling a large value wraps negative.
	if next > maxBackoff || next < current {
		return maxBackoff
	}
	return next
}
