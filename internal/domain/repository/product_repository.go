package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/kirimku/catalog-sync-engine/internal/domain/entity"
)

// ProductRepository is the canonical store's contract for Product rows (C1).
// All writes are scoped by UserID; callers are expected to have already
// checked ownership via entity.Product.Owns before calling Update or Delete.
type ProductRepository interface {
	// Create inserts a new product.
	Create(ctx context.Context, product *entity.Product) error

	// GetByID fetches a product by id, scoped to userID.
	GetByID(ctx context.Context, userID, id uuid.UUID) (*entity.Product, error)

	// ListByUser returns every non-archived product owned by userID, newest
	// first, paginated by limit/offset.
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Product, error)

	// Update applies a partial patch to an existing product. Only non-nil
	// fields in patch are applied; all others are left unchanged.
	Update(ctx context.Context, userID, id uuid.UUID, patch ProductPatch) error

	// Archive marks a product archived without deleting its row or its
	// variants' history.
	Archive(ctx context.Context, userID, id uuid.UUID) error
}

// ProductPatch carries the subset of Product fields a partial update may
// change. A nil field means "leave unchanged".
type ProductPatch struct {
	Title       *string
	Description *string
	ImageURLs   *[]string
}
