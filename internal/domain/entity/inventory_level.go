package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// InventoryLevel is the quantity of one variant at one platform connection's
// location. A variant not tracked per-location on the platform side gets a
// single row with a nil PlatformLocationID.
type InventoryLevel struct {
	ID                   uuid.UUID  `json:"id" db:"id"`
	ProductVariantID     uuid.UUID  `json:"product_variant_id" db:"product_variant_id"`
	PlatformConnectionID uuid.UUID  `json:"platform_connection_id" db:"platform_connection_id"`
	PlatformLocationID   *string    `json:"platform_location_id" db:"platform_location_id"`
	Quantity             int        `json:"quantity" db:"quantity"`
	LastPlatformUpdateAt *time.Time `json:"last_platform_update_at" db:"last_platform_update_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NewInventoryLevel creates an inventory level row for a variant at a
// connection, optionally scoped to a platform location.
func NewInventoryLevel(variantID, connectionID uuid.UUID, platformLocationID *string, quantity int) *InventoryLevel {
	now := time.Now()
	return &InventoryLevel{
		ID:                   uuid.New(),
		ProductVariantID:     variantID,
		PlatformConnectionID: connectionID,
		PlatformLocationID:   platformLocationID,
		Quantity:             quantity,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

// Validate checks the invariants an InventoryLevel must satisfy.
func (il *InventoryLevel) Validate() error {
	if il.ProductVariantID == uuid.Nil {
		return fmt.Errorf("inventory level validation: product variant id is required")
	}
	if il.PlatformConnectionID == uuid.Nil {
		return fmt.Errorf("inventory level validation: platform connection id is required")
	}
	if il.Quantity < 0 {
		return fmt.Errorf("inventory level validation: quantity cannot be negative")
	}
	return nil
}

// ApplyPlatformUpdate records a quantity observed from the platform at time
// observedAt. Stale updates (observedAt older than the current record) are
// dropped rather than applied, since platform webhooks and reconciliation
// scans can race.
func (il *InventoryLevel) ApplyPlatformUpdate(quantity int, observedAt time.Time) bool {
	if il.LastPlatformUpdateAt != nil && observedAt.Before(*il.LastPlatformUpdateAt) {
		return false
	}
	il.Quantity = quantity
	il.LastPlatformUpdateAt = &observedAt
	il.UpdatedAt = time.Now()
	return true
}

// SameLocation reports whether two levels refer to the same
// (variant, connection, location) identity, the uniqueness invariant this
// entity must honor on upsert.
func (il *InventoryLevel) SameLocation(other *InventoryLevel) bool {
	if il.ProductVariantID != other.ProductVariantID {
		return false
	}
	if il.PlatformConnectionID != other.PlatformConnectionID {
		return false
	}
	switch {
	case il.PlatformLocationID == nil && other.PlatformLocationID == nil:
		return true
	case il.PlatformLocationID == nil || other.PlatformLocationID == nil:
		return false
	default:
		return *il.PlatformLocationID == *other.PlatformLocationID
	}
}

func (il *InventoryLevel) String() string {
	return fmt.Sprintf("InventoryLevel{VariantID: %s, ConnectionID: %s, Quantity: %d}",
		il.ProductVariantID, il.PlatformConnectionID, il.Quantity)
}
