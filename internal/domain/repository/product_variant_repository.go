package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/kirimku/catalog-sync-engine/internal/domain/entity"
)

// ProductVariantRepository is the canonical store's contract for
// ProductVariant rows.
type ProductVariantRepository interface {
	// Create inserts a new variant.
	Create(ctx context.Context, variant *entity.ProductVariant) error

	// BatchUpsert inserts or updates variants keyed by ID. Used by the initial
	// scan processor to persist an entire platform catalog in one round trip
	// per batch; the processor first resolves an existing (UserID, Sku) row
	// through FindBySku so a re-scanned SKU reuses that row's ID.
	BatchUpsert(ctx context.Context, variants []*entity.ProductVariant) error

	// GetByID fetches a variant by id, scoped to userID.
	GetByID(ctx context.Context, userID, id uuid.UUID) (*entity.ProductVariant, error)

	// ListByProductID returns every variant belonging to productID, scoped
	// to userID.
	ListByProductID(ctx context.Context, userID, productID uuid.UUID) ([]*entity.ProductVariant, error)

	// FindBySku looks up a variant by its normalized SKU within one user's
	// catalog, used by the mapping engine's exact-SKU match rule.
	FindBySku(ctx context.Context, userID uuid.UUID, normalizedSku string) (*entity.ProductVariant, error)

	// FindByBarcode looks up a variant by barcode within one user's catalog,
	// used by the mapping engine's exact-barcode match rule.
	FindByBarcode(ctx context.Context, userID uuid.UUID, barcode string) (*entity.ProductVariant, error)

	// ListByProductIDs returns every variant across a batch of products, used
	// by the mapping engine's fuzzy title matching pass.
	ListByProductIDs(ctx context.Context, userID uuid.UUID, productIDs []uuid.UUID) ([]*entity.ProductVariant, error)

	// ListByIDs returns variants by id, used by the reconciliation processor
	// to gather candidates already mapped to a connection.
	ListByIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]*entity.ProductVariant, error)

	// Update applies a partial patch to an existing variant.
	Update(ctx context.Context, userID, id uuid.UUID, patch ProductVariantPatch) error
}

// ProductVariantPatch carries the subset of ProductVariant fields a partial
// update may change. A nil field means "leave unchanged".
type ProductVariantPatch struct {
	Title            *string
	Price            *string // decimal string, parsed by the caller's validation layer
	CompareAtPrice   *string
	Cost             *string
	IsTaxable        *bool
	RequiresShipping *bool
}
