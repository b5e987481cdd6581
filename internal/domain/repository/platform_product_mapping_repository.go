package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/kirimku/catalog-sync-engine/internal/domain/entity"
)

// PlatformProductMappingRepository is the canonical store's contract for
// PlatformProductMapping rows.
type PlatformProductMappingRepository interface {
	// BatchUpsert inserts or updates mappings keyed by
	// (PlatformConnectionID, ProductVariantID).
	BatchUpsert(ctx context.Context, mappings []*entity.PlatformProductMapping) error

	GetByVariantAndConnection(ctx context.Context, variantID, connectionID uuid.UUID) (*entity.PlatformProductMapping, error)

	// GetByPlatformVariantID looks up a mapping by the platform's own
	// variant identifier within one connection, the lookup webhook
	// processing uses to find which canonical variant a platform event is
	// about.
	GetByPlatformVariantID(ctx context.Context, connectionID uuid.UUID, platformVariantID string) (*entity.PlatformProductMapping, error)

	ListByConnection(ctx context.Context, connectionID uuid.UUID) ([]*entity.PlatformProductMapping, error)

	// ListByVariant returns every mapping across all connections for one
	// canonical variant, used to fan inventory webhooks out to every other
	// platform that variant is also mapped on.
	ListByVariant(ctx context.Context, variantID uuid.UUID) ([]*entity.PlatformProductMapping, error)

	MarkSynced(ctx context.Context, id uuid.UUID) error

	MarkSyncFailed(ctx context.Context, id uuid.UUID, reason string) error

	Delete(ctx context.Context, id uuid.UUID) error
}
