package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// PushRateLimiter caps push-operations to at most one enqueue per connection
// per window, coalescing bursts of rapid canonical edits into the next
// allowed slot instead of flooding the platform with requests. It is backed
// by Redis so the limit holds across every api/worker process sharing the
// same broker, not just in one process's memory.
type PushRateLimiter struct {
	redis  *redis.Client
	window time.Duration
}

// NewPushRateLimiter creates a limiter enforcing one allowed push per
// connection per window.
func NewPushRateLimiter(client *redis.Client, window time.Duration) *PushRateLimiter {
	return &PushRateLimiter{redis: client, window: window}
}

func rateLimitKey(connectionID uuid.UUID) string {
	return "push-rate-limit:" + connectionID.String()
}

// Allow reports whether a push may be enqueued now for connectionID. It
// claims the window atomically via SET NX so concurrent callers across
// processes cannot both pass the check for the same window.
func (l *PushRateLimiter) Allow(ctx context.Context, connectionID uuid.UUID) (bool, error) {
	ok, err := l.redis.SetNX(ctx, rateLimitKey(connectionID), 1, l.window).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

// RetryAfter returns how long until the current window for connectionID
// expires, for callers that want to schedule a delayed retry instead of
// dropping the request.
func (l *PushRateLimiter) RetryAfter(ctx context.Context, connectionID uuid.UUID) (time.Duration, error) {
	ttl, err := l.redis.TTL(ctx, rateLimitKey(connectionID)).Result()
	if err != nil {
		return 0, err
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}
