package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestAsynqClient(t *testing.T) (*asynq.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := asynq.NewClient(asynq.RedisClientOpt{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func redisClientFor(t *testing.T, mr *miniredis.Miniredis) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// decodeTaskPayload unmarshals the JSON payload asynq stored on info back
// into dest, since asynq.TaskInfo only exposes the raw bytes.
func decodeTaskPayload(info *asynq.TaskInfo, dest interface{}) error {
	return json.Unmarshal(info.Payload, dest)
}

func TestEnqueuer_EnqueueInitialScan(t *testing.T) {
	client, _ := newTestAsynqClient(t)
	enqueuer := NewEnqueuer(client)

	connectionID := uuid.New()
	info, err := enqueuer.EnqueueInitialScan(connectionID)
	require.NoError(t, err)
	require.Equal(t, TypeInitialScan, info.Type)
	require.Equal(t, QueueInitialScan, info.Queue)

	var payload InitialScanPayload
	require.NoError(t, decodeTaskPayload(info, &payload))
	require.Equal(t, connectionID, payload.ConnectionID)
}

func TestEnqueuer_EnqueuePushInventory(t *testing.T) {
	client, _ := newTestAsynqClient(t)
	enqueuer := NewEnqueuer(client)

	connectionID, variantID := uuid.New(), uuid.New()
	info, err := enqueuer.EnqueuePushInventory(connectionID, variantID)
	require.NoError(t, err)
	require.Equal(t, TypePushInventory, info.Type)
	require.Equal(t, QueuePushOperations, info.Queue)

	var payload PushInventoryPayload
	require.NoError(t, decodeTaskPayload(info, &payload))
	require.Equal(t, connectionID, payload.ConnectionID)
	require.Equal(t, variantID, payload.ProductVariantID)
}

func TestEnqueuer_EnqueueWebhookProcess(t *testing.T) {
	client, _ := newTestAsynqClient(t)
	enqueuer := NewEnqueuer(client)

	connectionID := uuid.New()
	info, err := enqueuer.EnqueueWebhookProcess(connectionID, "inventory_levels/update", []byte(`{"ok":true}`))
	require.NoError(t, err)
	require.Equal(t, TypeWebhookProcess, info.Type)

	var payload WebhookProcessPayload
	require.NoError(t, decodeTaskPayload(info, &payload))
	require.Equal(t, "inventory_levels/update", payload.Topic)
	require.Equal(t, []byte(`{"ok":true}`), payload.Body)
}

func TestProgressReporter_ReportAndGet(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redisClientFor(t, mr)
	reporter := NewProgressReporter(client, 0)

	ctx := context.Background()
	taskID := uuid.New().String()

	missing, err := reporter.Get(ctx, taskID)
	require.NoError(t, err)
	require.Equal(t, -1, missing.Percent)

	require.NoError(t, reporter.Report(ctx, taskID, 42, "fetching products"))

	got, err := reporter.Get(ctx, taskID)
	require.NoError(t, err)
	require.Equal(t, 42, got.Percent)
	require.Equal(t, "fetching products", got.Description)
}

func TestPushRateLimiter_AllowOncePerWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redisClientFor(t, mr)
	limiter := NewPushRateLimiter(client, 30*time.Second)

	ctx := context.Background()
	connectionID := uuid.New()

	first, err := limiter.Allow(ctx, connectionID)
	require.NoError(t, err)
	require.True(t, first)

	second, err := limiter.Allow(ctx, connectionID)
	require.NoError(t, err)
	require.False(t, second)

	ttl, err := limiter.RetryAfter(ctx, connectionID)
	require.NoError(t, err)
	require.Greater(t, ttl.Seconds(), float64(0))
}

func TestPushRateLimiter_AllowsAgainAfterWindowExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redisClientFor(t, mr)
	limiter := NewPushRateLimiter(client, 10*time.Second)

	ctx := context.Background()
	connectionID := uuid.New()

	ok, err := limiter.Allow(ctx, connectionID)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(11 * time.Second)

	ok, err = limiter.Allow(ctx, connectionID)
	require.NoError(t, err)
	require.True(t, ok)
}
