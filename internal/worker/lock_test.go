package worker

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipscout-backend/internal/models"
	"clipscout-backend/internal/services"
)

func newTestLocks(t *testing.T) (*RunLocks, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRunLocks(rdb), mr
}

func TestRunLocks_OneHolderPerKind(t *testing.T) {
	locks, mr := newTestLocks(t)
	ctx := context.Background()

	release, err := locks.Acquire(ctx, models.RunKindRating)
	require.NoError(t, err)
	assert.True(t, mr.Exists(lockKey(models.RunKindRating)))
	assert.Equal(t, lockTTL, mr.TTL(lockKey(models.RunKindRating)))

	_, err = locks.Acquire(ctx, models.RunKindRating)
	assert.ErrorIs(t, err, services.ErrRunInProgress)

	other, err := locks.Acquire(ctx, models.RunKindCollection)
	require.NoError(t, err, "kinds are locked independently")
	other()

	release()
	release()
	held, err := locks.Held(ctx, models.RunKindRating)
	require.NoError(t, err)
	assert.False(t, held)

	again, err := locks.Acquire(ctx, models.RunKindRating)
	require.NoError(t, err)
	again()
}

func TestRunLocks_ReleaseKeepsForeignLock(t *testing.T) {
	locks, mr := newTestLocks(t)
	ctx := context.Background()

	release, err := locks.Acquire(ctx, models.RunKindRating)
	require.NoError(t, err)

	// The lock expired and someone else took it.
	require.NoError(t, mr.Set(lockKey(models.RunKindRating), "someone-else"))
	release()

	got, err := mr.Get(lockKey(models.RunKindRating))
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestPool_AcquireBlocksQueuedRating(t *testing.T) {
	p, _, _, _ := newTestPool(t, &fakeCollector{}, &fakeRater{})
	ctx := context.Background()

	release, err := p.Acquire(ctx, models.RunKindRating)
	require.NoError(t, err)

	active, err := p.RatingActive(ctx)
	require.NoError(t, err)
	assert.True(t, active)

	_, err = p.EnqueueRating(ctx, 5)
	assert.ErrorIs(t, err, services.ErrRunInProgress)

	release()
	_, err = p.EnqueueRating(ctx, 5)
	assert.NoError(t, err)
}
