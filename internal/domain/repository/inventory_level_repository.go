package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/kirimku/catalog-sync-engine/internal/domain/entity"
)

// InventoryLevelRepository is the canonical store's contract for
// InventoryLevel rows, keyed by the (ProductVariantID, PlatformConnectionID,
// PlatformLocationID) uniqueness invariant.
type InventoryLevelRepository interface {
	// BatchUpsert inserts or updates inventory levels, one row per
	// (variant, connection, location) identity. Stale platform observations
	// are dropped per entity.InventoryLevel.ApplyPlatformUpdate semantics
	// before this is called.
	BatchUpsert(ctx context.Context, levels []*entity.InventoryLevel) error

	// GetByVariantAndConnection returns every level recorded for a variant
	// under one connection (one per platform location).
	GetByVariantAndConnection(ctx context.Context, variantID, connectionID uuid.UUID) ([]*entity.InventoryLevel, error)

	// ListByConnection returns every level recorded under one connection,
	// used by the reconciliation processor to diff against a fresh platform
	// snapshot.
	ListByConnection(ctx context.Context, connectionID uuid.UUID) ([]*entity.InventoryLevel, error)
}
