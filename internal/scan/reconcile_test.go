package scan

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirimku/catalog-sync-engine/internal/domain/entity"
	"github.com/kirimku/catalog-sync-engine/internal/mapping"
	"github.com/kirimku/catalog-sync-engine/internal/platform"
	"github.com/kirimku/catalog-sync-engine/internal/platform/mock"
	"github.com/kirimku/catalog-sync-engine/internal/repotest"
)

// TestProcessor_Reconcile_RegeneratesSuggestions checks that reconciling a
// syncing connection regenerates mapping_suggestions against its one
// SKU-matched canonical candidate, returns the connection to needs_review,
// and leaves the canonical variant row itself untouched.
func TestProcessor_Reconcile_RegeneratesSuggestions(t *testing.T) {
	conn := seededConnection(t)
	require.NoError(t, conn.TransitionTo(entity.ConnectionStatusScanning))
	require.NoError(t, conn.TransitionTo(entity.ConnectionStatusSyncing))

	existingVariant := entity.NewProductVariant(uuid.New(), conn.UserID, "Large Red Cotton T-Shirt", decimal.NewFromInt(10))
	sku := "SHIRT-RED-L"
	existingVariant.Sku = &sku

	adapter := mock.New()
	adapter.Seed(conn.ID.String(), []platform.RemoteProduct{
		{
			PlatformProductID: "p1",
			Title:             "Red Shirt",
			Variants: []platform.RemoteVariant{
				{PlatformVariantID: "v1", Title: "Large Red Cotton T-Shirt", Sku: "SHIRT-RED-L"},
			},
		},
	}, nil)

	connections := repotest.NewConnections(conn)
	variants := repotest.NewVariants(existingVariant)
	inventory := repotest.NewInventory(entity.NewInventoryLevel(existingVariant.ID, conn.ID, nil, 3))
	registry := platform.NewRegistry()
	registry.Register(adapter)

	p := New(connections, repotest.NewProducts(), variants, inventory, repotest.Vault{}, registry, nil)

	err := p.Reconcile(context.Background(), conn.UserID, conn.ID)
	require.NoError(t, err)

	updated, err := connections.GetByIDUnscoped(context.Background(), conn.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ConnectionStatusNeedsReview, updated.Status)

	suggestions, ok := updated.PlatformSpecificData["mapping_suggestions"].([]mapping.Suggestion)
	require.True(t, ok)
	require.Len(t, suggestions, 1)
	assert.Equal(t, mapping.MatchKindSku, suggestions[0].Kind)
	assert.Equal(t, existingVariant.ID, suggestions[0].CanonicalVariant.ID)

	// The canonical row itself must be untouched: Reconcile never persists
	// products or variants, only regenerates suggestions.
	stillThere := variants.All()
	require.Len(t, stillThere, 1)
	assert.Equal(t, "Large Red Cotton T-Shirt", stillThere[0].Title)
}
