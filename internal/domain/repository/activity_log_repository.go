package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/kirimku/catalog-sync-engine/internal/domain/entity"
)

// ActivityLogRepository is the append-only store's contract for ActivityLog
// rows. There is deliberately no Update or Delete: once written, an entry is
// permanent.
type ActivityLogRepository interface {
	Insert(ctx context.Context, entry *entity.ActivityLog) error

	// ListByEntity returns the audit trail for one entity, newest first.
	ListByEntity(ctx context.Context, userID uuid.UUID, entityType entity.ActivityEntityType, entityID uuid.UUID, limit int) ([]*entity.ActivityLog, error)

	// ListByUser returns the audit trail for a user across all entities,
	// newest first, paginated.
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.ActivityLog, error)
}
