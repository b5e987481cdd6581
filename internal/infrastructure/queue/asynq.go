// Package queue wires up the asynq client and server against Redis: queue
// priorities, concurrency, and the semaphore-based per-queue caps layered on
// top of asynq's global worker pool.
package queue

import (
	"context"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/semaphore"

	"github.com/kirimku/catalog-sync-engine/internal/config"
	"github.com/kirimku/catalog-sync-engine/internal/queue"
)

// RedisConfig is the subset of the Redis settings in config.AppConfig asynq
// needs.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func (c RedisConfig) toAsynq() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: c.Addr, Password: c.Password, DB: c.DB}
}

// NewClient builds the asynq.Client used by the API process and by the
// worker process's own job handlers to enqueue follow-up work.
func NewClient(cfg RedisConfig) *asynq.Client {
	return asynq.NewClient(cfg.toAsynq())
}

// Fallback concurrency caps per queue, used only if the config's Worker.*
// weights are left at zero (e.g. in tests that build a Semaphores directly).
const (
	initialScanConcurrency       = 4
	reconciliationConcurrency    = 4
	pushOperationsConcurrency    = 8
	webhookProcessingConcurrency = 16
)

// Semaphores bundles the per-queue concurrency limiters a worker mux
// middleware consults before letting a handler run.
type Semaphores struct {
	InitialScan       *semaphore.Weighted
	Reconciliation    *semaphore.Weighted
	PushOperations    *semaphore.Weighted
	WebhookProcessing *semaphore.Weighted
}

func orDefault(weight int64, fallback int64) int64 {
	if weight <= 0 {
		return fallback
	}
	return weight
}

// NewSemaphores builds the per-queue concurrency limiters from
// config.AppConfig.Worker, falling back to the package defaults for any
// weight left unset.
func NewSemaphores() *Semaphores {
	w := config.AppConfig.Worker
	return &Semaphores{
		InitialScan:       semaphore.NewWeighted(orDefault(w.ScanWeight, initialScanConcurrency)),
		Reconciliation:    semaphore.NewWeighted(orDefault(w.ReconciliationWeight, reconciliationConcurrency)),
		PushOperations:    semaphore.NewWeighted(orDefault(w.PushWeight, pushOperationsConcurrency)),
		WebhookProcessing: semaphore.NewWeighted(orDefault(w.WebhookWeight, webhookProcessingConcurrency)),
	}
}

func (s *Semaphores) forQueue(name string) *semaphore.Weighted {
	switch name {
	case queue.QueueInitialScan:
		return s.InitialScan
	case queue.QueueReconciliation:
		return s.Reconciliation
	case queue.QueuePushOperations:
		return s.PushOperations
	case queue.QueueWebhookProcessing:
		return s.WebhookProcessing
	default:
		return nil
	}
}

// Middleware returns an asynq.MiddlewareFunc that acquires the semaphore
// for the task's queue before running the handler and releases it after,
// so the queue-level cap holds regardless of which worker goroutine picks
// the task up.
func (s *Semaphores) Middleware() asynq.MiddlewareFunc {
	return func(next asynq.Handler) asynq.Handler {
		return asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
			queueName, _ := asynq.GetQueueName(ctx)
			sem := s.forQueue(queueName)
			if sem == nil {
				return next.ProcessTask(ctx, task)
			}
			if err := sem.Acquire(ctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)
			return next.ProcessTask(ctx, task)
		})
	}
}

// NewServer builds the asynq.Server consuming every named queue at a
// priority weighting that favors push-operations latency over bulk scan
// throughput.
func NewServer(cfg RedisConfig, concurrency int) *asynq.Server {
	if concurrency <= 0 {
		concurrency = config.AppConfig.Worker.Concurrency
	}
	return asynq.NewServer(cfg.toAsynq(), asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue.QueuePushOperations:    6,
			queue.QueueWebhookProcessing: 3,
			queue.QueueReconciliation:    2,
			queue.QueueInitialScan:       1,
		},
	})
}
