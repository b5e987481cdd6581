package webhook

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirimku/catalog-sync-engine/internal/domain/entity"
	"github.com/kirimku/catalog-sync-engine/internal/platform"
	"github.com/kirimku/catalog-sync-engine/internal/platform/mock"
	"github.com/kirimku/catalog-sync-engine/internal/repotest"
)

// TestProcessor_ProcessInventoryUpdate_FansOutButSuppressesOrigin drives S4:
// an inventory webhook from connA updates the canonical level and is pushed
// out to connB (also mapped to the same variant), but connA itself never
// receives a SetInventory call for its own event.
func TestProcessor_ProcessInventoryUpdate_FansOutButSuppressesOrigin(t *testing.T) {
	userID := uuid.New()
	connA := entity.NewPlatformConnection(userID, entity.PlatformType("mock"), "Store A")
	connB := entity.NewPlatformConnection(userID, entity.PlatformType("mock"), "Store B")
	connB.IsEnabled = true

	variant := entity.NewProductVariant(uuid.New(), userID, "Small", decimal.NewFromInt(10))

	mappingA := entity.NewPlatformProductMapping(connA.ID, variant.ID, "platform-product-a", "platform-variant-a")
	mappingB := entity.NewPlatformProductMapping(connB.ID, variant.ID, "platform-product-b", "platform-variant-b")

	adapterA := mock.New()
	adapterB := mock.New()
	// Seed each adapter's catalog so SetInventory can find the variant by
	// platform variant id.
	adapterA.Seed(connA.ID.String(), []platform.RemoteProduct{{
		PlatformProductID: "platform-product-a",
		Variants:          []platform.RemoteVariant{{PlatformVariantID: "platform-variant-a"}},
	}}, nil)
	adapterB.Seed(connB.ID.String(), []platform.RemoteProduct{{
		PlatformProductID: "platform-product-b",
		Variants:          []platform.RemoteVariant{{PlatformVariantID: "platform-variant-b"}},
	}}, nil)

	connections := repotest.NewConnections(connA, connB)
	mappings := repotest.NewMappings(mappingA, mappingB)
	inventory := repotest.NewInventory()

	// Two distinct mock.Adapter instances can't both register under the
	// same "mock" platform type key, so route SetInventory calls through a
	// small per-connection dispatcher that mirrors what a real per-platform
	// registry does across two different platform types.
	registry := platform.NewRegistry()
	registry.Register(&dualAdapter{a: adapterA, b: adapterB, connA: connA.ID, connB: connB.ID})

	p := &Processor{
		Mappings:    mappings,
		Inventory:   inventory,
		Connections: connections,
		Registry:    registry,
	}

	err := p.ProcessInventoryUpdate(context.Background(), connA.ID, "platform-variant-a", 7, nil, time.Now())
	require.NoError(t, err)

	levels, err := inventory.GetByVariantAndConnection(context.Background(), variant.ID, connA.ID)
	require.NoError(t, err)
	require.Len(t, levels, 1)
	assert.Equal(t, 7, levels[0].Quantity)

	// connB's adapter received the fanned-out update...
	bProducts := adapterB.Snapshot(connB.ID.String())
	require.Len(t, bProducts, 1)
	require.Len(t, bProducts[0].Variants, 1)
	assert.Equal(t, 7, bProducts[0].Variants[0].InventoryByLocation["default"])

	// ...but connA, the origin, was never pushed back its own update.
	aProducts := adapterA.Snapshot(connA.ID.String())
	require.Len(t, aProducts, 1)
	assert.Empty(t, aProducts[0].Variants[0].InventoryByLocation)
}

// TestProcessor_ProcessInventoryUpdate_FanOutUsesTargetConnectionLocation
// drives the S4 corresponding-location case: connA's webhook names connA's
// own platform location id, which must never be reused verbatim against
// connB. connB's existing InventoryLevel for the variant carries connB's own
// location id, and that is what the fan-out SetInventory call must receive.
func TestProcessor_ProcessInventoryUpdate_FanOutUsesTargetConnectionLocation(t *testing.T) {
	userID := uuid.New()
	connA := entity.NewPlatformConnection(userID, entity.PlatformType("mock"), "Store A")
	connB := entity.NewPlatformConnection(userID, entity.PlatformType("mock"), "Store B")
	connB.IsEnabled = true

	variant := entity.NewProductVariant(uuid.New(), userID, "Small", decimal.NewFromInt(10))

	mappingA := entity.NewPlatformProductMapping(connA.ID, variant.ID, "platform-product-a", "platform-variant-a")
	mappingB := entity.NewPlatformProductMapping(connB.ID, variant.ID, "platform-product-b", "platform-variant-b")

	adapterA := mock.New()
	adapterB := mock.New()
	adapterA.Seed(connA.ID.String(), []platform.RemoteProduct{{
		PlatformProductID: "platform-product-a",
		Variants:          []platform.RemoteVariant{{PlatformVariantID: "platform-variant-a"}},
	}}, nil)
	adapterB.Seed(connB.ID.String(), []platform.RemoteProduct{{
		PlatformProductID: "platform-product-b",
		Variants:          []platform.RemoteVariant{{PlatformVariantID: "platform-variant-b"}},
	}}, nil)

	connections := repotest.NewConnections(connA, connB)
	mappings := repotest.NewMappings(mappingA, mappingB)

	// connB already has a known inventory level for this variant, scoped to
	// connB's own platform location id "clover-loc-4" — a different id space
	// than connA's "shopify-loc-1".
	connBLocation := "clover-loc-4"
	existingB := entity.NewInventoryLevel(variant.ID, connB.ID, &connBLocation, 3)
	inventory := repotest.NewInventory(existingB)

	registry := platform.NewRegistry()
	registry.Register(&dualAdapter{a: adapterA, b: adapterB, connA: connA.ID, connB: connB.ID})

	p := &Processor{
		Mappings:    mappings,
		Inventory:   inventory,
		Connections: connections,
		Registry:    registry,
	}

	connALocation := "shopify-loc-1"
	err := p.ProcessInventoryUpdate(context.Background(), connA.ID, "platform-variant-a", 4, &connALocation, time.Now())
	require.NoError(t, err)

	bProducts := adapterB.Snapshot(connB.ID.String())
	require.Len(t, bProducts, 1)
	require.Len(t, bProducts[0].Variants, 1)
	assert.Equal(t, 4, bProducts[0].Variants[0].InventoryByLocation[connBLocation],
		"fan-out must target connB's own location id, not connA's")
	assert.NotContains(t, bProducts[0].Variants[0].InventoryByLocation, connALocation)
}

// TestProcessor_ProcessInventoryUpdate_StaleEventDropped confirms a webhook
// reporting an older observation than what's already recorded is dropped
// rather than overwriting the canonical level or fanning out.
func TestProcessor_ProcessInventoryUpdate_StaleEventDropped(t *testing.T) {
	userID := uuid.New()
	conn := entity.NewPlatformConnection(userID, entity.PlatformType("mock"), "Store A")
	variant := entity.NewProductVariant(uuid.New(), userID, "Small", decimal.NewFromInt(10))
	variantMapping := entity.NewPlatformProductMapping(conn.ID, variant.ID, "pp", "pv")

	now := time.Now()
	existing := entity.NewInventoryLevel(variant.ID, conn.ID, nil, 10)
	existing.LastPlatformUpdateAt = &now

	connections := repotest.NewConnections(conn)
	mappings := repotest.NewMappings(variantMapping)
	inventory := repotest.NewInventory(existing)
	registry := platform.NewRegistry()
	registry.Register(mock.New())

	p := &Processor{Mappings: mappings, Inventory: inventory, Connections: connections, Registry: registry}

	err := p.ProcessInventoryUpdate(context.Background(), conn.ID, "pv", 999, nil, now.Add(-time.Hour))
	require.NoError(t, err)

	levels, err := inventory.GetByVariantAndConnection(context.Background(), variant.ID, conn.ID)
	require.NoError(t, err)
	require.Len(t, levels, 1)
	assert.Equal(t, 10, levels[0].Quantity, "stale event must not overwrite the current quantity")
}

// dualAdapter routes platform.Adapter calls to one of two underlying mock
// adapters by connection id, standing in for two distinct platform
// connections that would normally be served by two different registered
// adapters under two different platform types.
type dualAdapter struct {
	a, b         *mock.Adapter
	connA, connB uuid.UUID
}

func (d *dualAdapter) pick(conn *entity.PlatformConnection) *mock.Adapter {
	if conn.ID == d.connA {
		return d.a
	}
	return d.b
}

func (d *dualAdapter) Type() entity.PlatformType { return entity.PlatformType("mock") }

func (d *dualAdapter) FetchAll(ctx context.Context, conn *entity.PlatformConnection, cursor func([]platform.RemoteProduct) error) error {
	return d.pick(conn).FetchAll(ctx, conn, cursor)
}
func (d *dualAdapter) FetchByIDs(ctx context.Context, conn *entity.PlatformConnection, ids []string) ([]platform.RemoteProduct, error) {
	return d.pick(conn).FetchByIDs(ctx, conn, ids)
}
func (d *dualAdapter) ListLocations(ctx context.Context, conn *entity.PlatformConnection) ([]platform.RemoteLocation, error) {
	return d.pick(conn).ListLocations(ctx, conn)
}
func (d *dualAdapter) CreateProduct(ctx context.Context, conn *entity.PlatformConnection, input platform.ProductInput, inventoryLevels [][]*entity.InventoryLevel, targetLocations []platform.RemoteLocation) (*platform.RemoteProduct, error) {
	return d.pick(conn).CreateProduct(ctx, conn, input, inventoryLevels, targetLocations)
}
func (d *dualAdapter) UpdateProduct(ctx context.Context, conn *entity.PlatformConnection, platformProductID string, input platform.ProductInput) (*platform.RemoteProduct, error) {
	return d.pick(conn).UpdateProduct(ctx, conn, platformProductID, input)
}
func (d *dualAdapter) DeleteProduct(ctx context.Context, conn *entity.PlatformConnection, platformProductID string) error {
	return d.pick(conn).DeleteProduct(ctx, conn, platformProductID)
}
func (d *dualAdapter) SetInventory(ctx context.Context, conn *entity.PlatformConnection, platformVariantID string, platformLocationID *string, quantity int) error {
	return d.pick(conn).SetInventory(ctx, conn, platformVariantID, platformLocationID, quantity)
}
func (d *dualAdapter) VerifyWebhook(conn *entity.PlatformConnection, r *http.Request, body []byte) error {
	return d.pick(conn).VerifyWebhook(conn, r, body)
}
func (d *dualAdapter) ParseWebhook(topic string, body []byte) (*platform.WebhookEvent, error) {
	return d.a.ParseWebhook(topic, body)
}
