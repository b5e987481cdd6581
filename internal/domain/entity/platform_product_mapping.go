package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MappingSyncStatus is the outcome of the most recent attempt to push a
// canonical variant to the platform side of a mapping.
type MappingSyncStatus string

const (
	MappingSyncStatusSuccess MappingSyncStatus = "success"
	MappingSyncStatusError   MappingSyncStatus = "error"
	MappingSyncStatusPending MappingSyncStatus = "pending"
)

// PlatformProductMapping links one canonical ProductVariant to its
// counterpart on one platform connection. A variant may have at most one
// mapping per connection; a platform variant may be claimed by at most one
// canonical variant per connection (both invariants are enforced by unique
// indexes at the storage layer, see migrations).
type PlatformProductMapping struct {
	ID                   uuid.UUID `json:"id" db:"id"`
	PlatformConnectionID uuid.UUID `json:"platform_connection_id" db:"platform_connection_id"`
	ProductVariantID     uuid.UUID `json:"product_variant_id" db:"product_variant_id"`

	PlatformProductID string  `json:"platform_product_id" db:"platform_product_id"`
	PlatformVariantID string  `json:"platform_variant_id" db:"platform_variant_id"`
	PlatformSku       *string `json:"platform_sku" db:"platform_sku"`

	IsEnabled        bool               `json:"is_enabled" db:"is_enabled"`
	SyncStatus       MappingSyncStatus  `json:"sync_status" db:"sync_status"`
	SyncErrorMessage *string            `json:"sync_error_message" db:"sync_error_message"`
	LastSyncedAt     *time.Time         `json:"last_synced_at" db:"last_synced_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NewPlatformProductMapping creates an enabled, pending mapping between a
// canonical variant and a platform-side product/variant pair.
func NewPlatformProductMapping(connectionID, variantID uuid.UUID, platformProductID, platformVariantID string) *PlatformProductMapping {
	now := time.Now()
	return &PlatformProductMapping{
		ID:                   uuid.New(),
		PlatformConnectionID: connectionID,
		ProductVariantID:     variantID,
		PlatformProductID:    platformProductID,
		PlatformVariantID:    platformVariantID,
		IsEnabled:            true,
		SyncStatus:           MappingSyncStatusPending,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

// Validate checks the invariants a PlatformProductMapping must satisfy.
func (m *PlatformProductMapping) Validate() error {
	if m.PlatformConnectionID == uuid.Nil {
		return fmt.Errorf("mapping validation: platform connection id is required")
	}
	if m.ProductVariantID == uuid.Nil {
		return fmt.Errorf("mapping validation: product variant id is required")
	}
	if m.PlatformProductID == "" {
		return fmt.Errorf("mapping validation: platform product id is required")
	}
	if m.PlatformVariantID == "" {
		return fmt.Errorf("mapping validation: platform variant id is required")
	}
	return nil
}

// MarkSynced records a successful push and clears any prior error.
func (m *PlatformProductMapping) MarkSynced() {
	now := time.Now()
	m.SyncStatus = MappingSyncStatusSuccess
	m.SyncErrorMessage = nil
	m.LastSyncedAt = &now
	m.UpdatedAt = now
}

// MarkSyncFailed records a failed push attempt without changing
// PlatformProductID/PlatformVariantID — the mapping survives a failed push
// so the next push can retry against the same platform identity.
func (m *PlatformProductMapping) MarkSyncFailed(reason string) {
	m.SyncStatus = MappingSyncStatusError
	m.SyncErrorMessage = &reason
	m.UpdatedAt = time.Now()
}

func (m *PlatformProductMapping) String() string {
	return fmt.Sprintf("PlatformProductMapping{VariantID: %s, ConnectionID: %s, PlatformVariantID: %s, Status: %s}",
		m.ProductVariantID, m.PlatformConnectionID, m.PlatformVariantID, m.SyncStatus)
}
