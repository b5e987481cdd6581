package mapping

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirimku/catalog-sync-engine/internal/domain/entity"
	"github.com/kirimku/catalog-sync-engine/internal/platform"
)

func variant(title, sku, barcode string) *entity.ProductVariant {
	v := entity.NewProductVariant(uuid.New(), uuid.New(), title, decimal.NewFromInt(10))
	if sku != "" {
		v.Sku = &sku
	}
	if barcode != "" {
		v.Barcode = &barcode
	}
	return v
}

func TestSuggest_ExactBarcodeWins(t *testing.T) {
	existing := variant("Red Shirt", "SHIRT-RED", "012345678905")
	candidates := []*entity.ProductVariant{existing}

	remote := []platform.RemoteVariant{
		{PlatformVariantID: "pv1", Title: "Completely Different Name", Barcode: "012345678905"},
	}

	suggestions := Suggest(remote, candidates)
	require.Len(t, suggestions, 1)
	assert.Equal(t, MatchKindBarcode, suggestions[0].Kind)
	assert.Equal(t, existing.ID, suggestions[0].CanonicalVariant.ID)
	assert.Equal(t, 1.0, suggestions[0].Score)
}

func TestSuggest_ExactSkuWhenNoBarcodeMatch(t *testing.T) {
	existing := variant("Blue Hat", "HAT-BLUE", "")
	candidates := []*entity.ProductVariant{existing}

	remote := []platform.RemoteVariant{
		{PlatformVariantID: "pv1", Title: "Something Else", Sku: "hat-blue"},
	}

	suggestions := Suggest(remote, candidates)
	require.Len(t, suggestions, 1)
	assert.Equal(t, MatchKindSku, suggestions[0].Kind)
	assert.Equal(t, existing.ID, suggestions[0].CanonicalVariant.ID)
	assert.Equal(t, 0.95, suggestions[0].Score)
}

func TestSuggest_FuzzyTitleAboveThreshold(t *testing.T) {
	existing := variant("Large Red Cotton Crew Neck T-Shirt", "", "")
	candidates := []*entity.ProductVariant{existing}

	remote := []platform.RemoteVariant{
		{PlatformVariantID: "pv1", Title: "Large Red Cotton Crew Neck T-Shirt Tall"},
	}

	suggestions := Suggest(remote, candidates)
	require.Len(t, suggestions, 1)
	assert.Equal(t, MatchKindTitle, suggestions[0].Kind)
	assert.GreaterOrEqual(t, suggestions[0].Score, titleMatchThreshold)
}

func TestSuggest_NoMatchBelowThreshold(t *testing.T) {
	existing := variant("Leather Wallet", "", "")
	candidates := []*entity.ProductVariant{existing}

	remote := []platform.RemoteVariant{
		{PlatformVariantID: "pv1", Title: "Ceramic Coffee Mug"},
	}

	suggestions := Suggest(remote, candidates)
	require.Len(t, suggestions, 1)
	assert.Equal(t, MatchKindNone, suggestions[0].Kind)
	assert.Nil(t, suggestions[0].CanonicalVariant)
}

func TestSuggest_CandidateClaimedOnlyOnce(t *testing.T) {
	shared := variant("Standard Mug", "MUG-STD", "")
	candidates := []*entity.ProductVariant{shared}

	remote := []platform.RemoteVariant{
		{PlatformVariantID: "pv1", Title: "Standard Mug", Sku: "MUG-STD"},
		{PlatformVariantID: "pv2", Title: "Standard Mug", Sku: "MUG-STD"},
	}

	suggestions := Suggest(remote, candidates)
	require.Len(t, suggestions, 2)

	matched := 0
	for _, s := range suggestions {
		if s.Kind != MatchKindNone {
			matched++
		}
	}
	assert.Equal(t, 1, matched, "only one platform variant should claim the shared candidate")
}

func TestToCanonical_FallsBackToProductTitleWhenVariantTitleEmpty(t *testing.T) {
	userID := uuid.New()
	remote := platform.RemoteProduct{
		PlatformProductID: "p1",
		Title:             "Classic Hoodie",
		Variants: []platform.RemoteVariant{
			{PlatformVariantID: "v1", Title: "", Price: "39.99"},
		},
	}

	product, variants := ToCanonical(userID, remote)
	require.Len(t, variants, 1)
	assert.Equal(t, "Classic Hoodie", product.Title)
	assert.Equal(t, "Classic Hoodie", variants[0].Title)
	assert.True(t, variants[0].Price.Equal(decimal.NewFromFloat(39.99)))
}

func TestToPlatformInput_RoundTripsCoreFields(t *testing.T) {
	userID := uuid.New()
	product := entity.NewProduct(userID, "Ceramic Mug")
	v := variant("Ceramic Mug", "MUG-001", "")
	weight := decimal.NewFromFloat(0.4)
	v.Weight = &weight
	v.WeightUnit = entity.WeightUnitKilogram
	v.Options = map[string]string{"Color": "White"}

	input, kept, dropped := ToPlatformInput(product, []*entity.ProductVariant{v}, PushModeUpdate)
	require.Len(t, input.Variants, 1)
	require.Len(t, kept, 1)
	assert.Empty(t, dropped)
	assert.Equal(t, "Ceramic Mug", input.Title)
	assert.Equal(t, "MUG-001", input.Variants[0].Sku)
	assert.Equal(t, "0.4", input.Variants[0].Weight)
	assert.Equal(t, "kg", input.Variants[0].WeightUnit)
	assert.Equal(t, map[string]string{"Color": "White"}, input.Variants[0].Options)
}

func TestToPlatformInput_CreateDropsSkuLessVariants(t *testing.T) {
	userID := uuid.New()
	product := entity.NewProduct(userID, "Ceramic Mug")
	withSku := variant("Ceramic Mug - Blue", "MUG-001", "")
	noSku := variant("Ceramic Mug - Red", "", "")

	input, kept, dropped := ToPlatformInput(product, []*entity.ProductVariant{withSku, noSku}, PushModeCreate)
	require.Len(t, input.Variants, 1)
	require.Len(t, kept, 1)
	require.Len(t, dropped, 1)
	assert.Equal(t, withSku.ID, kept[0].ID)
	assert.Equal(t, noSku.ID, dropped[0].ID)
	assert.Equal(t, "MUG-001", input.Variants[0].Sku)
}

func TestToPlatformInput_UpdateKeepsSkuLessVariants(t *testing.T) {
	userID := uuid.New()
	product := entity.NewProduct(userID, "Ceramic Mug")
	noSku := variant("Ceramic Mug - Red", "", "")

	input, kept, dropped := ToPlatformInput(product, []*entity.ProductVariant{noSku}, PushModeUpdate)
	require.Len(t, input.Variants, 1)
	require.Len(t, kept, 1)
	assert.Empty(t, dropped)
}

func TestToPlatformInput_SingleVariantWithoutOptionsGetsDefaultTitleOption(t *testing.T) {
	userID := uuid.New()
	product := entity.NewProduct(userID, "Leather Wallet")
	v := variant("Leather Wallet", "WALLET-001", "")

	input, _, _ := ToPlatformInput(product, []*entity.ProductVariant{v}, PushModeUpdate)
	require.Len(t, input.Variants, 1)
	assert.Equal(t, map[string]string{"Title": "Default Title"}, input.Variants[0].Options)
}
