package push

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirimku/catalog-sync-engine/internal/domain/entity"
	"github.com/kirimku/catalog-sync-engine/internal/platform"
	"github.com/kirimku/catalog-sync-engine/internal/platform/mock"
	"github.com/kirimku/catalog-sync-engine/internal/repotest"
)

type fixture struct {
	coordinator *Coordinator
	connections *repotest.Connections
	mappings    *repotest.Mappings
	activity    *repotest.Activity
	conn        *entity.PlatformConnection
	product     *entity.Product
	variant     *entity.ProductVariant
	adapter     *mock.Adapter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	userID := uuid.New()
	conn := entity.NewPlatformConnection(userID, entity.PlatformType("mock"), "Test Store")
	conn.IsEnabled = true

	product := entity.NewProduct(userID, "Red Shirt")
	variant := entity.NewProductVariant(product.ID, userID, "Small", decimal.NewFromFloat(19.99))
	sku := "SHIRT-RED-S"
	variant.Sku = &sku

	adapter := mock.New()
	registry := platform.NewRegistry()
	registry.Register(adapter)

	connections := repotest.NewConnections(conn)
	mappings := repotest.NewMappings()
	activity := repotest.NewActivity()

	coordinator := &Coordinator{
		Connections: connections,
		Products:    repotest.NewProducts(product),
		Variants:    repotest.NewVariants(variant),
		Inventory:   repotest.NewInventory(),
		Mappings:    mappings,
		Activity:    activity,
		Vault:       repotest.Vault{},
		Registry:    registry,
	}

	return &fixture{
		coordinator: coordinator,
		connections: connections,
		mappings:    mappings,
		activity:    activity,
		conn:        conn,
		product:     product,
		variant:     variant,
		adapter:     adapter,
	}
}

func TestCoordinator_ExecuteProductCreate_Success(t *testing.T) {
	f := newFixture(t)
	err := f.coordinator.ExecuteProductCreate(context.Background(), f.conn.UserID, f.conn.ID, f.product.ID)
	require.NoError(t, err)

	m, err := f.mappings.GetByVariantAndConnection(context.Background(), f.variant.ID, f.conn.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.MappingSyncStatusSuccess, m.SyncStatus)
	assert.NotEmpty(t, m.PlatformProductID)

	entries := f.activity.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "PRODUCT_PUSH_CREATED_SUCCESS", entries[0].EventType)
}

// TestCoordinator_ExecuteProductCreate_PlatformFailure covers the push
// partial-failure scenario: the platform rejects the create call, so no
// mapping is written and the connection records the error instead of
// silently succeeding.
func TestCoordinator_ExecuteProductCreate_PlatformFailure(t *testing.T) {
	f := newFixture(t)
	f.adapter.CreateErr = errors.New("platform rate limited")

	err := f.coordinator.ExecuteProductCreate(context.Background(), f.conn.UserID, f.conn.ID, f.product.ID)
	require.Error(t, err)

	_, getErr := f.mappings.GetByVariantAndConnection(context.Background(), f.variant.ID, f.conn.ID)
	assert.Error(t, getErr, "no mapping should exist after a failed create")

	updatedConn, err := f.connections.GetByIDUnscoped(context.Background(), f.conn.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ConnectionStatusError, updatedConn.Status)

	entries := f.activity.All()
	require.Len(t, entries, 1)
	assert.Equal(t, entity.ActivityStatusError, entries[0].Status)
}

// TestCoordinator_ExecuteProductCreate_AllVariantsMissingSkuSkipsPlatformCall
// covers the create boundary behavior: when every variant lacks a SKU, no
// platform call is made at all, and an ActivityLog entry records the skip.
func TestCoordinator_ExecuteProductCreate_AllVariantsMissingSkuSkipsPlatformCall(t *testing.T) {
	f := newFixture(t)
	f.variant.Sku = nil

	err := f.coordinator.ExecuteProductCreate(context.Background(), f.conn.UserID, f.conn.ID, f.product.ID)
	require.NoError(t, err)

	_, getErr := f.mappings.GetByVariantAndConnection(context.Background(), f.variant.ID, f.conn.ID)
	assert.Error(t, getErr, "no mapping should exist when the platform call is skipped")

	assert.Empty(t, f.adapter.Snapshot(f.conn.ID.String()), "no product should have been created on the platform")

	entries := f.activity.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "PRODUCT_PUSH_CREATED_SKIPPED", entries[0].EventType)
	assert.Equal(t, entity.ActivityStatusWarning, entries[0].Status)
}

func TestCoordinator_ExecuteProductDelete_RemovesMapping(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.coordinator.ExecuteProductCreate(context.Background(), f.conn.UserID, f.conn.ID, f.product.ID))

	_, err := f.mappings.GetByVariantAndConnection(context.Background(), f.variant.ID, f.conn.ID)
	require.NoError(t, err)

	err = f.coordinator.ExecuteProductDelete(context.Background(), f.conn.UserID, f.conn.ID, f.product.ID)
	require.NoError(t, err)

	_, getErr := f.mappings.GetByVariantAndConnection(context.Background(), f.variant.ID, f.conn.ID)
	assert.Error(t, getErr, "mapping should be gone after delete")

	entries := f.activity.All()
	require.Len(t, entries, 2) // create success + delete success
	assert.Equal(t, "PRODUCT_PUSH_DELETED_SUCCESS", entries[1].EventType)
}

func TestCoordinator_ExecuteProductDelete_IdempotentWhenAlreadyUnmapped(t *testing.T) {
	f := newFixture(t)
	err := f.coordinator.ExecuteProductDelete(context.Background(), f.conn.UserID, f.conn.ID, f.product.ID)
	require.NoError(t, err)
	assert.Empty(t, f.activity.All())
}

func TestCoordinator_ExecuteInventoryUpdate_PushesCurrentQuantity(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.coordinator.ExecuteProductCreate(context.Background(), f.conn.UserID, f.conn.ID, f.product.ID))

	level := entity.NewInventoryLevel(f.variant.ID, f.conn.ID, nil, 42)
	require.NoError(t, f.coordinator.Inventory.BatchUpsert(context.Background(), []*entity.InventoryLevel{level}))

	err := f.coordinator.ExecuteInventoryUpdate(context.Background(), f.conn.UserID, f.conn.ID, f.variant.ID)
	require.NoError(t, err)

	entries := f.activity.All()
	last := entries[len(entries)-1]
	assert.Equal(t, "INVENTORY_PUSH_SUCCESS", last.EventType)
}
