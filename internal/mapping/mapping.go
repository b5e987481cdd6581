// Package mapping translates between the canonical model and a platform's
// wire shape (ToPlatformInput, ToCanonical), and proposes links between
// existing canonical variants and freshly scanned platform variants
// (Suggest) when no PlatformProductMapping exists yet.
package mapping

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kirimku/catalog-sync-engine/internal/domain/entity"
	"github.com/kirimku/catalog-sync-engine/internal/platform"
)

// MatchKind identifies which rule produced a Suggestion.
type MatchKind string

const (
	MatchKindBarcode MatchKind = "barcode"
	MatchKindSku     MatchKind = "sku"
	MatchKindTitle   MatchKind = "title"
	MatchKindNone    MatchKind = "none"
)

// titleMatchThreshold is the minimum Jaccard token-set similarity a fuzzy
// title match must clear to be suggested at all.
const titleMatchThreshold = 0.85

// Suggestion pairs a scanned platform variant with a candidate existing
// canonical variant, or no candidate when nothing matched.
type Suggestion struct {
	PlatformVariantID string
	CanonicalVariant  *entity.ProductVariant // nil when Kind == MatchKindNone
	Kind              MatchKind
	Score             float64
}

// ToCanonical builds a new, unpersisted Product and its ProductVariants from
// a platform product fetched during a scan. The product and each variant get
// a freshly generated uuid.UUID, and each variant's ProductID is the new
// product's ID; the scan processor tracks them by TempIDs of its own.
func ToCanonical(userID uuid.UUID, remote platform.RemoteProduct) (*entity.Product, []*entity.ProductVariant) {
	product := entity.NewProduct(userID, remote.Title)
	if remote.Description != "" {
		desc := remote.Description
		product.Description = &desc
	}
	product.ImageURLs = append([]string(nil), remote.ImageURLs...)

	variants := make([]*entity.ProductVariant, 0, len(remote.Variants))
	for _, rv := range remote.Variants {
		variants = append(variants, variantFromRemote(product.ID, userID, remote.Title, rv))
	}
	return product, variants
}

func variantFromRemote(productID, userID uuid.UUID, productTitle string, rv platform.RemoteVariant) *entity.ProductVariant {
	price, _ := decimal.NewFromString(rv.Price)

	// Shopify variants often carry no independent name of their own (just
	// option values like "Large / Red"); falling back to the parent
	// product's title keeps the canonical Title field always meaningful.
	title := rv.Title
	if title == "" {
		title = productTitle
	}

	v := entity.NewProductVariant(productID, userID, title, price)
	if rv.Sku != "" {
		sku := rv.Sku
		v.Sku = &sku
	}
	if rv.Barcode != "" {
		barcode := rv.Barcode
		v.Barcode = &barcode
	}
	if rv.CompareAtPrice != "" {
		if cmp, err := decimal.NewFromString(rv.CompareAtPrice); err == nil {
			v.CompareAtPrice = &cmp
		}
	}
	return v
}

// PushMode distinguishes the two call sites that build a platform.ProductInput:
// a create push drops a variant with no SKU rather than sending it (most
// platforms require a SKU to create a sellable unit), while an update push
// sends every variant as-is, since its platform-side slot already exists.
type PushMode string

const (
	PushModeCreate PushMode = "create"
	PushModeUpdate PushMode = "update"
)

// ToPlatformInput builds the platform-shaped payload for pushing a canonical
// product and its variants, the inverse of ToCanonical. It returns the
// platform input alongside the subset of variants it actually kept (parallel
// to input.Variants, same order and length) and the variants it dropped
// because mode == PushModeCreate and they have no SKU; the caller decides
// how to log or report the drop.
func ToPlatformInput(product *entity.Product, variants []*entity.ProductVariant, mode PushMode) (input platform.ProductInput, kept, dropped []*entity.ProductVariant) {
	input = platform.ProductInput{
		Title:     product.Title,
		ImageURLs: append([]string(nil), product.ImageURLs...),
	}
	if product.Description != nil {
		input.Description = *product.Description
	}

	for _, v := range variants {
		if mode == PushModeCreate && (v.Sku == nil || *v.Sku == "") {
			dropped = append(dropped, v)
			continue
		}

		vi := platform.VariantInput{
			Title: v.Title,
			Price: v.Price.String(),
		}
		if v.Sku != nil {
			vi.Sku = *v.Sku
		}
		if v.Barcode != nil {
			vi.Barcode = *v.Barcode
		}
		if v.CompareAtPrice != nil {
			vi.CompareAtPrice = v.CompareAtPrice.String()
		}
		if v.Weight != nil {
			vi.Weight = v.Weight.String()
			vi.WeightUnit = string(v.WeightUnit)
		}
		if len(v.Options) > 0 {
			vi.Options = v.Options
		}

		input.Variants = append(input.Variants, vi)
		kept = append(kept, v)
	}

	// Shopify (and platforms following its convention) require every variant
	// to carry at least one option; a single-variant product with no options
	// of its own gets the platform's own placeholder instead of an empty map.
	if len(input.Variants) == 1 && len(input.Variants[0].Options) == 0 {
		input.Variants[0].Options = map[string]string{"Title": "Default Title"}
	}

	return input, kept, dropped
}

// Suggest proposes a canonical match for each scanned platform variant
// against a pool of candidate existing variants, applying match rules in
// priority order: exact barcode, then exact normalized SKU, then fuzzy title
// similarity, then no match. Each candidate is consumed by at most one
// suggestion, highest-priority match first, so two platform variants cannot
// both claim the same canonical variant.
func Suggest(remoteVariants []platform.RemoteVariant, candidates []*entity.ProductVariant) []Suggestion {
	claimed := make(map[uuid.UUID]bool, len(candidates))
	suggestions := make([]Suggestion, 0, len(remoteVariants))

	byBarcode := make(map[string]*entity.ProductVariant)
	bySku := make(map[string]*entity.ProductVariant)
	for _, c := range candidates {
		if c.Barcode != nil && *c.Barcode != "" {
			byBarcode[*c.Barcode] = c
		}
		if sku := c.NormalizedSku(); sku != "" {
			bySku[sku] = c
		}
	}

	// Pass 1: exact barcode.
	remaining := make([]platform.RemoteVariant, 0, len(remoteVariants))
	for _, rv := range remoteVariants {
		if rv.Barcode != "" {
			if c, ok := byBarcode[rv.Barcode]; ok && !claimed[c.ID] {
				claimed[c.ID] = true
				suggestions = append(suggestions, Suggestion{PlatformVariantID: rv.PlatformVariantID, CanonicalVariant: c, Kind: MatchKindBarcode, Score: 1.0})
				continue
			}
		}
		remaining = append(remaining, rv)
	}

	// Pass 2: exact normalized SKU.
	stillRemaining := make([]platform.RemoteVariant, 0, len(remaining))
	for _, rv := range remaining {
		normalized := strings.ToUpper(strings.TrimSpace(rv.Sku))
		if normalized != "" {
			if c, ok := bySku[normalized]; ok && !claimed[c.ID] {
				claimed[c.ID] = true
				suggestions = append(suggestions, Suggestion{PlatformVariantID: rv.PlatformVariantID, CanonicalVariant: c, Kind: MatchKindSku, Score: 0.95})
				continue
			}
		}
		stillRemaining = append(stillRemaining, rv)
	}

	// Pass 3: fuzzy title match, highest score wins, ties broken by
	// candidate order (first unclaimed candidate in input order).
	for _, rv := range stillRemaining {
		best, bestScore := bestTitleMatch(rv.Title, candidates, claimed)
		if best != nil {
			claimed[best.ID] = true
			suggestions = append(suggestions, Suggestion{PlatformVariantID: rv.PlatformVariantID, CanonicalVariant: best, Kind: MatchKindTitle, Score: bestScore})
			continue
		}
		suggestions = append(suggestions, Suggestion{PlatformVariantID: rv.PlatformVariantID, Kind: MatchKindNone})
	}

	return suggestions
}

func bestTitleMatch(title string, candidates []*entity.ProductVariant, claimed map[uuid.UUID]bool) (*entity.ProductVariant, float64) {
	var best *entity.ProductVariant
	bestScore := 0.0
	tokens := tokenSet(title)

	for _, c := range candidates {
		if claimed[c.ID] {
			continue
		}
		score := jaccard(tokens, tokenSet(c.Title))
		if score >= titleMatchThreshold && score > bestScore {
			best = c
			bestScore = score
		}
	}
	return best, bestScore
}

func tokenSet(s string) map[string]bool {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	intersection := 0
	for t := range a {
		if b[t] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
