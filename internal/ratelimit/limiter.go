// Package ratelimit throttles calls to the shared persistence backend.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

type Config struct {
	MaxCalls   int           // calls allowed per Window, 0 disables the window
	Window     time.Duration // sliding window length
	MinSpacing time.Duration // minimum gap between two consecutive calls
}

// Limiter is a sliding-window limiter with a minimum spacing between calls.
// Every gateway method calls Wait before touching the store.
type Limiter struct {
	mu    sync.Mutex
	cfg   Config
	calls []time.Time
	last  time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func New(cfg Config) *Limiter {
	return &Limiter{
		cfg:   cfg,
		now:   time.Now,
		sleep: sleepCtx,
	}
}

// Wait blocks until a call may proceed, then records it.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := l.now()
		delay := l.delayLocked(now)
		if delay <= 0 {
			l.calls = append(l.calls, now)
			l.last = now
			l.mu.Unlock()
			return nil
		}
		l.mu.Unlock()

		if err := l.sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// InWindow returns the number of calls recorded in the current window.
func (l *Limiter) InWindow() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pruneLocked(l.now())
	return len(l.calls)
}

func (l *Limiter) delayLocked(now time.Time) time.Duration {
	var delay time.Duration

	if l.cfg.MaxCalls > 0 && l.cfg.Window > 0 {
		l.pruneLocked(now)
		if len(l.calls) >= l.cfg.MaxCalls {
			delay = l.calls[0].Add(l.cfg.Window).Sub(now)
		}
	}

	if l.cfg.MinSpacing > 0 && !l.last.IsZero() {
		if gap := l.last.Add(l.cfg.MinSpacing).Sub(now); gap > delay {
			delay = gap
		}
	}
	return delay
}

func (l *Limiter) pruneLocked(now time.Time) {
	if l.cfg.Window <= 0 {
		l.calls = l.calls[:0]
		return
	}
	cutoff := now.Add(-l.cfg.Window)
	i := 0
	for i < len(l.calls) && !l.calls[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.calls = append(l.calls[:0], l.calls[i:]...)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
