package scan

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirimku/catalog-sync-engine/internal/domain/entity"
	"github.com/kirimku/catalog-sync-engine/internal/platform"
	"github.com/kirimku/catalog-sync-engine/internal/platform/mock"
	"github.com/kirimku/catalog-sync-engine/internal/repotest"
)

// failingFetchAdapter is a minimal platform.Adapter whose FetchAll always
// errors, used to exercise Run's fetch-failure path without teaching
// mock.Adapter to fail on command.
type failingFetchAdapter struct{}

func (failingFetchAdapter) Type() entity.PlatformType { return entity.PlatformType("mock") }
func (failingFetchAdapter) FetchAll(ctx context.Context, conn *entity.PlatformConnection, cursor func([]platform.RemoteProduct) error) error {
	return fmt.Errorf("platform unreachable")
}
func (failingFetchAdapter) FetchByIDs(ctx context.Context, conn *entity.PlatformConnection, ids []string) ([]platform.RemoteProduct, error) {
	return nil, nil
}
func (failingFetchAdapter) ListLocations(ctx context.Context, conn *entity.PlatformConnection) ([]platform.RemoteLocation, error) {
	return nil, nil
}
func (failingFetchAdapter) CreateProduct(ctx context.Context, conn *entity.PlatformConnection, input platform.ProductInput, inventoryLevels [][]*entity.InventoryLevel, targetLocations []platform.RemoteLocation) (*platform.RemoteProduct, error) {
	return nil, nil
}
func (failingFetchAdapter) UpdateProduct(ctx context.Context, conn *entity.PlatformConnection, platformProductID string, input platform.ProductInput) (*platform.RemoteProduct, error) {
	return nil, nil
}
func (failingFetchAdapter) DeleteProduct(ctx context.Context, conn *entity.PlatformConnection, platformProductID string) error {
	return nil
}
func (failingFetchAdapter) SetInventory(ctx context.Context, conn *entity.PlatformConnection, platformVariantID string, platformLocationID *string, quantity int) error {
	return nil
}
func (failingFetchAdapter) VerifyWebhook(conn *entity.PlatformConnection, r *http.Request, body []byte) error {
	return nil
}
func (failingFetchAdapter) ParseWebhook(topic string, body []byte) (*platform.WebhookEvent, error) {
	return nil, nil
}

func newTestProcessor(t *testing.T, conn *entity.PlatformConnection, adapter *mock.Adapter) (*Processor, *repotest.Connections, *repotest.Variants, *repotest.Inventory) {
	t.Helper()
	connections := repotest.NewConnections(conn)
	products := repotest.NewProducts()
	variants := repotest.NewVariants()
	inventory := repotest.NewInventory()
	registry := platform.NewRegistry()
	registry.Register(adapter)

	p := New(connections, products, variants, inventory, repotest.Vault{}, registry, nil)
	return p, connections, variants, inventory
}

func seededConnection(t *testing.T) *entity.PlatformConnection {
	t.Helper()
	conn := entity.NewPlatformConnection(uuid.New(), entity.PlatformType("mock"), "Test Store")
	require.NoError(t, conn.TransitionTo(entity.ConnectionStatusConnecting))
	conn.EncryptedCredentials = []byte("token")
	return conn
}

func TestProcessor_Run_HappyPath(t *testing.T) {
	conn := seededConnection(t)
	adapter := mock.New()
	adapter.Seed(conn.ID.String(), []platform.RemoteProduct{
		{
			PlatformProductID: "p1",
			Title:             "Red Shirt",
			ImageURLs:         []string{"https://cdn.example.com/red-shirt.jpg"},
			Variants: []platform.RemoteVariant{
				{
					PlatformVariantID:   "v1",
					Title:               "Small",
					Sku:                 "SHIRT-RED-S",
					Price:               "19.99",
					InventoryByLocation: map[string]int{"loc-1": 5},
				},
			},
		},
	}, []platform.RemoteLocation{{PlatformLocationID: "loc-1", Name: "Main Warehouse"}})

	p, connections, variants, inventory := newTestProcessor(t, conn, adapter)

	err := p.Run(context.Background(), conn.UserID, conn.ID, "")
	require.NoError(t, err)

	updated, err := connections.GetByIDUnscoped(context.Background(), conn.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ConnectionStatusNeedsReview, updated.Status)
	assert.NotNil(t, updated.LastSyncSuccessAt)

	persisted := variants.All()
	require.Len(t, persisted, 1)
	require.NotNil(t, persisted[0].Sku)
	assert.Equal(t, "SHIRT-RED-S", *persisted[0].Sku)

	all := inventory.All()
	require.Len(t, all, 1)
	assert.Equal(t, 5, all[0].Quantity)
	require.NotNil(t, all[0].PlatformLocationID)
	assert.Equal(t, "loc-1", *all[0].PlatformLocationID)

	summary, ok := updated.PlatformSpecificData["scan_summary"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 1, summary["count_products"])
	assert.Equal(t, 1, summary["count_variants"])
}

// TestProcessor_Run_ResolvesVariantImageFromPlatform covers step 6: a
// variant whose platform data names an image url the product didn't
// already carry gets that url appended to the product and its ImageID set
// to the appended position.
func TestProcessor_Run_ResolvesVariantImageFromPlatform(t *testing.T) {
	conn := seededConnection(t)
	adapter := mock.New()
	adapter.Seed(conn.ID.String(), []platform.RemoteProduct{
		{
			PlatformProductID: "p1",
			Title:             "Red Shirt",
			Variants: []platform.RemoteVariant{
				{
					PlatformVariantID: "v1",
					Title:             "Small",
					Sku:               "SHIRT-RED-S",
					Price:             "19.99",
					ImageURL:          "https://cdn.example.com/red-shirt-small.jpg",
				},
			},
		},
	}, nil)

	products := repotest.NewProducts()
	connections := repotest.NewConnections(conn)
	variants := repotest.NewVariants()
	inventory := repotest.NewInventory()
	registry := platform.NewRegistry()
	registry.Register(adapter)
	p := New(connections, products, variants, inventory, repotest.Vault{}, registry, nil)

	err := p.Run(context.Background(), conn.UserID, conn.ID, "")
	require.NoError(t, err)

	persisted := variants.All()
	require.Len(t, persisted, 1)
	require.NotNil(t, persisted[0].ImageID)
	assert.Equal(t, 0, *persisted[0].ImageID)

	stored, err := products.GetByID(context.Background(), conn.UserID, persisted[0].ProductID)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://cdn.example.com/red-shirt-small.jpg"}, stored.ImageURLs)
}

func TestProcessor_Run_FetchFailureMarksConnectionError(t *testing.T) {
	conn := seededConnection(t)
	connections := repotest.NewConnections(conn)
	registry := platform.NewRegistry()
	registry.Register(failingFetchAdapter{})
	p := New(connections, repotest.NewProducts(), repotest.NewVariants(), repotest.NewInventory(), repotest.Vault{}, registry, nil)

	err := p.Run(context.Background(), conn.UserID, conn.ID, "")
	require.Error(t, err)

	updated, getErr := connections.GetByIDUnscoped(context.Background(), conn.ID)
	require.NoError(t, getErr)
	assert.Equal(t, entity.ConnectionStatusError, updated.Status)
	require.NotNil(t, updated.LastErrorMessage)
}

func TestProcessor_Run_WrongOwnerRejected(t *testing.T) {
	conn := seededConnection(t)
	adapter := mock.New()
	p, _, _, _ := newTestProcessor(t, conn, adapter)

	err := p.Run(context.Background(), uuid.New(), conn.ID, "")
	require.Error(t, err)
}
