package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/fastygo/shipops/domain"
	"github.com/fastygo/shipops/repository"
)

// releaseScript deletes the lock only if it is still held by the caller's token.
var releaseScript = redislib.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type taskLocker struct {
	client redislib.UniversalClient
	prefix string
	ttl    time.Duration
	wait   time.Duration
}

// NewTaskLocker creates a Redis-backed per-task lock. ttl bounds how long a
// crashed holder can block a task; wait bounds how long Acquire polls.
func NewTaskLocker(client redislib.UniversalClient, ttl, wait time.Duration) repository.TaskLocker {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	if wait < 0 {
		wait = 0
	}
	return &taskLocker{
		client: client,
		prefix: "task-lock:",
		ttl:    ttl,
		wait:   wait,
	}
}

func (l *taskLocker) Acquire(ctx context.Context, taskID string) (func(context.Context) error, error) {
	key := l.key(taskID)
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)
	backoff := 25 * time.Millisecond

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func(releaseCtx context.Context) error {
				return releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err()
			}, nil
		}
		if !time.Now().Add(backoff).Before(deadline) {
			return nil, domain.ErrTaskLocked
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 200*time.Millisecond {
			backoff *= 2
		}
	}
}

func (l *taskLocker) key(taskID string) string {
	return fmt.Sprintf("%s%s", l.prefix, taskID)
}
