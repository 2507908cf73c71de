package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu    sync.Mutex
	t     time.Time
	slept []time.Duration
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slept = append(c.slept, d)
	c.t = c.t.Add(d)
	return nil
}

func newTestLimiter(cfg Config) (*Limiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := New(cfg)
	l.now = clock.now
	l.sleep = clock.sleep
	return l, clock
}

func TestLimiter_AllowsUpToMaxWithoutSleeping(t *testing.T) {
	l, clock := newTestLimiter(Config{MaxCalls: 3, Window: time.Minute})

	for i := 0; i < 3; i++ {
		require.NoError(t, l.Wait(context.Background()))
	}
	assert.Empty(t, clock.slept)
	assert.Equal(t, 3, l.InWindow())
}

func TestLimiter_BlocksUntilWindowSlides(t *testing.T) {
	l, clock := newTestLimiter(Config{MaxCalls: 2, Window: time.Minute})

	require.NoError(t, l.Wait(context.Background()))
	clock.t = clock.t.Add(10 * time.Second)
	require.NoError(t, l.Wait(context.Background()))

	// third call waits for the first to leave the window
	require.NoError(t, l.Wait(context.Background()))
	require.Len(t, clock.slept, 1)
	assert.Equal(t, 50*time.Second, clock.slept[0])
}

func TestLimiter_EnforcesMinSpacing(t *testing.T) {
	l, clock := newTestLimiter(Config{MinSpacing: 200 * time.Millisecond})

	require.NoError(t, l.Wait(context.Background()))
	clock.t = clock.t.Add(50 * time.Millisecond)
	require.NoError(t, l.Wait(context.Background()))

	require.Len(t, clock.slept, 1)
	assert.Equal(t, 150*time.Millisecond, clock.slept[0])
}

func TestLimiter_SpacingAndWindowTakeLongerDelay(t *testing.T) {
	l, clock := newTestLimiter(Config{MaxCalls: 1, Window: time.Second, MinSpacing: 100 * time.Millisecond})

	require.NoError(t, l.Wait(context.Background()))
	require.NoError(t, l.Wait(context.Background()))

	require.Len(t, clock.slept, 1)
	assert.Equal(t, time.Second, clock.slept[0])
}

func TestLimiter_CancelledContext(t *testing.T) {
	l, _ := newTestLimiter(Config{MaxCalls: 1, Window: time.Minute})
	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := l.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, l.InWindow())
}

func TestLimiter_ConcurrentCallersNeverExceedWindow(t *testing.T) {
	l := New(Config{MaxCalls: 5, Window: time.Hour})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	var wg sync.WaitGroup
	var mu sync.Mutex
	passed := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Wait(ctx) == nil {
				mu.Lock()
				passed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, passed)
}
