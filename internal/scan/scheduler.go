package scan

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/kirimku/catalog-sync-engine/internal/domain/entity"
	"github.com/kirimku/catalog-sync-engine/internal/domain/repository"
	"github.com/kirimku/catalog-sync-engine/internal/infrastructure/logger"
	"github.com/kirimku/catalog-sync-engine/internal/queue"
)

// Scheduler periodically enqueues a reconciliation job for every enabled
// connection in syncing, regardless of when it last synced, independent of
// whatever triggers reconciliation on demand through the HTTP surface.
type Scheduler struct {
	Connections repository.PlatformConnectionRepository
	Enqueuer    *queue.Enqueuer
	cron        *cron.Cron
}

// NewScheduler builds a scheduler that has not yet been started.
func NewScheduler(connections repository.PlatformConnectionRepository, enqueuer *queue.Enqueuer) *Scheduler {
	return &Scheduler{
		Connections: connections,
		Enqueuer:    enqueuer,
		cron:        cron.New(),
	}
}

// Start schedules the sweep at the given cron spec (e.g. "0 */4 * * *" for
// every 4 hours) and starts the underlying cron runner.
func (s *Scheduler) Start(spec string) error {
	_, err := s.cron.AddFunc(spec, func() {
		if err := s.sweep(context.Background()); err != nil {
			logger.Logger.Error().Err(err).Msg("reconciliation sweep failed")
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the cron runner, waiting for any in-flight sweep to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) sweep(ctx context.Context) error {
	connections, err := s.Connections.ListEnabledForReconciliation(ctx)
	if err != nil {
		return err
	}

	for _, conn := range connections {
		if conn.Status != entity.ConnectionStatusSyncing {
			continue
		}
		if _, err := s.Enqueuer.EnqueueReconciliation(conn.ID); err != nil {
			logger.Logger.Warn().Err(err).Str("connection_id", conn.ID.String()).Msg("failed to enqueue reconciliation")
			continue
		}
		logger.Logger.Info().Str("connection_id", conn.ID.String()).Msg("enqueued reconciliation sweep")
	}
	return nil
}
