package job

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ShutdownHookTimeout bounds how long Shutdown waits for hooks.
const ShutdownHookTimeout = 5 * time.Second

// JobContext carries the cancellation context of a job and the teardown
// hooks that must run on every exit path. The metrics export is
// registered here so the report is written whether the session ends
// cleanly, errors out, or is interrupted.
type JobContext struct {
	Ctx context.Context

	cancel        context.CancelFunc
	mu            sync.Mutex
	shutdownHooks []func(reason string)
	shutdownDone  bool
}

// NewJobContext wraps parent in a job lifecycle context.
func NewJobContext(parent context.Context) *JobContext {
	ctx, cancel := context.WithCancel(parent)
	return &JobContext{
		Ctx:    ctx,
		cancel: cancel,
	}
}

// Shutdown runs all registered hooks exactly once, then cancels the
// context. Safe to call multiple times and from multiple goroutines.
func (jc *JobContext) Shutdown(reason string) {
	jc.mu.Lock()
	if jc.shutdownDone {
		jc.mu.Unlock()
		return
	}
	jc.shutdownDone = true
	hooks := jc.shutdownHooks
	jc.mu.Unlock()

	slog.Info("job shutdown initiated", slog.String("reason", reason))

	var wg sync.WaitGroup
	for _, hook := range hooks {
		wg.Add(1)
		go func(h func(string)) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					slog.Error("shutdown hook panicked", slog.Any("panic", r))
				}
			}()
			h(reason)
		}(hook)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(ShutdownHookTimeout):
		slog.Warn("shutdown hooks timed out", slog.Duration("timeout", ShutdownHookTimeout))
	}

	jc.cancel()
}

// OnShutdown registers a teardown hook. A hook registered after shutdown
// runs immediately.
func (jc *JobContext) OnShutdown(hook func(reason string)) {
	jc.mu.Lock()
	alreadyDown := jc.shutdownDone
	if !alreadyDown {
		jc.shutdownHooks = append(jc.shutdownHooks, hook)
	}
	jc.mu.Unlock()

	if alreadyDown {
		go func() {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("shutdown hook panicked", slog.Any("panic", r))
				}
			}()
			hook("job already shut down")
		}()
	}
}

// IsShutdown reports whether the job context has been cancelled.
func (jc *JobContext) IsShutdown() bool {
	select {
	case <-jc.Ctx.Done():
		return true
	default:
		return false
	}
}

// Done exposes the cancellation channel.
func (jc *JobContext) Done() <-chan struct{} {
	return jc.Ctx.Done()
}

// Err returns the context cancellation error.
func (jc *JobContext) Err() error {
	return jc.Ctx.Err()
}
