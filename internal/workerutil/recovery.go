// Package workerutil runs long-lived background workers (config watching,
// script cleanup) and restarts them with backoff when they panic or fail.
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
	defaultInitialBackoff = 100 * time.Millisecond
	defaultMaxBackoff     = 5 * time.Second
	defaultMaxRetries     = 10
)

// ErrPanicked wraps a recovered panic value in the error passed to OnFailure.
var ErrPanicked = errors.New("worker panicked")

// RecoveryOptions configures Run. Zero fields use defaults: InitialBackoff
// 100ms, MaxBackoff 5s, MaxRetries 10. Set MaxRetries to 1 to run once.
type RecoveryOptions struct {
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxRetries     int

	// OnFailure is called after each failed attempt (1-based), before the backoff.
	OnFailure func(worker string, attempt int, err error)

	// OnFatal is called once the worker has failed MaxRetries times.
	OnFatal func(worker string, maxRetries int)

	// IsShutdown stops restarts while the app tears down.
	IsShutdown func() bool
}

func (opts RecoveryOptions) withDefaults() RecoveryOptions {
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
		slog.Warn("[DEBUG-WORKER] MaxBackoff below InitialBackoff, raising it",
			"initialBackoff", opts.InitialBackoff,
			"maxBackoff", opts.MaxBackoff,
		)
		opts.MaxBackoff = opts.InitialBackoff
	}
	return opts
}

// Run starts fn on a goroutine tracked by wg. A nil return or a cancelled ctx
// ends the worker; a panic or a non-nil error restarts it after a backoff that
// doubles up to MaxBackoff.
func Run(
	ctx context.Context,
	name string,
	wg *sync.WaitGroup,
	fn func(ctx context.Context) error,
	opts RecoveryOptions,
) {
	opts = opts.withDefaults()
	wg.Go(func() {
		supervise(ctx, name, fn, opts)
	})
}

func supervise(ctx context.Context, name string, fn func(ctx context.Context) error, opts RecoveryOptions) {
	delay := opts.InitialBackoff

	for attempt := 1; attempt <= opts.MaxRetries; attempt++ {
		err := runOnce(ctx, name, fn)
		if err == nil || ctx.Err() != nil {
			return
		}
		if opts.IsShutdown != nil && opts.IsShutdown() {
			slog.Info("[DEBUG-WORKER] shutdown in progress, not restarting", "worker", name)
			return
		}

		slog.Warn("[DEBUG-WORKER] worker failed",
			"worker", name,
			"attempt", attempt,
			"restartDelay", delay,
			"error", err,
		)
		if opts.OnFailure != nil {
			opts.OnFailure(name, attempt, err)
		}
		if attempt == opts.MaxRetries {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		delay = nextBackoff(delay, opts.MaxBackoff)
	}

	slog.Error("[DEBUG-WORKER] worker exceeded max retries, giving up",
		"worker", name,
		"maxRetries", opts.MaxRetries,
	)
	if opts.OnFatal != nil {
		opts.OnFatal(name, opts.MaxRetries)
	}
}

func runOnce(ctx context.Context, name string, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("[DEBUG-PANIC] background worker recovered from panic",
				"worker", name,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			err = fmt.Errorf("%w: %v", ErrPanicked, r)
		}
	}()
	return fn(ctx)
}

// nextBackoff doubles current, capped at maxBackoff. Overflow returns maxBackoff.
func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	if current <= 0 {
		return defaultInitialBackoff
	}
	next := current * 2
	if next > maxBackoff || next < current {
		return maxBackoff
	}
	return next
}
