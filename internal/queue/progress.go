package queue

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ProgressReporter publishes scan/reconciliation progress to a small Redis
// hash keyed by task id, so an HTTP endpoint can poll it without the worker
// holding any request open.
type ProgressReporter struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewProgressReporter creates a reporter whose entries expire after ttl so a
// crashed job doesn't leave stale progress behind forever.
func NewProgressReporter(client *redis.Client, ttl time.Duration) *ProgressReporter {
	return &ProgressReporter{redis: client, ttl: ttl}
}

func progressKey(taskID string) string {
	return "scan-progress:" + taskID
}

// Report records percent complete and a human-readable description for
// taskID.
func (p *ProgressReporter) Report(ctx context.Context, taskID string, percent int, description string) error {
	key := progressKey(taskID)
	pipe := p.redis.TxPipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"percent":     strconv.Itoa(percent),
		"description": description,
	})
	pipe.Expire(ctx, key, p.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// Progress is the shape a caller reads back; Percent is -1 when no progress
// has been reported yet (key missing or expired).
type Progress struct {
	Percent     int
	Description string
}

// Get reads back the last reported progress for taskID.
func (p *ProgressReporter) Get(ctx context.Context, taskID string) (Progress, error) {
	vals, err := p.redis.HGetAll(ctx, progressKey(taskID)).Result()
	if err != nil {
		return Progress{}, err
	}
	if len(vals) == 0 {
		return Progress{Percent: -1}, nil
	}
	percent, _ := strconv.Atoi(vals["percent"])
	return Progress{Percent: percent, Description: vals["description"]}, nil
}
