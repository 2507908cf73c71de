package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"clipscout-backend/internal/models"
	"clipscout-backend/internal/services"
)

// releaseScript deletes the lock only while the caller still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RunLocks guards the one-pass-per-kind rule across the worker pool, the
// synchronous rating endpoint and the CLI.
type RunLocks struct {
	redis *redis.Client
}

func NewRunLocks(redisClient *redis.Client) *RunLocks {
	return &RunLocks{redis: redisClient}
}

// Acquire takes the lock for kind or returns services.ErrRunInProgress.
// The returned release is safe to call more than once.
func (l *RunLocks) Acquire(ctx context.Context, kind models.RunKind) (func(), error) {
	return l.acquire(ctx, kind, uuid.NewString())
}

func (l *RunLocks) acquire(ctx context.Context, kind models.RunKind, owner string) (func(), error) {
	key := lockKey(kind)
	ok, err := l.redis.SetNX(ctx, key, owner, lockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to take %s lock: %w", kind, err)
	}
	if !ok {
		return nil, services.ErrRunInProgress
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		if err := releaseScript.Run(context.Background(), l.redis, []string{key}, owner).Err(); err != nil {
			slog.Error("failed to release run lock", slog.String("kind", string(kind)), slog.Any("error", err))
		}
	}, nil
}

// Held reports whether any caller currently holds the lock for kind.
func (l *RunLocks) Held(ctx context.Context, kind models.RunKind) (bool, error) {
	n, err := l.redis.Exists(ctx, lockKey(kind)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func lockKey(kind models.RunKind) string {
	return fmt.Sprintf("run_lock:%s", kind)
}
