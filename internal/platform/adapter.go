// Package platform defines the capability interface every e-commerce
// platform integration implements, and a registry that resolves a
// entity.PlatformType to its adapter. Adapters are pure translators between
// a platform's wire shape and the canonical model; they hold no storage
// logic of their own.
package platform

import (
	"context"
	"net/http"
	"time"

	"github.com/kirimku/catalog-sync-engine/internal/domain/entity"
)

// RemoteProduct is a platform product as fetched from the platform, still in
// the platform's own shape, before the mapping engine translates it.
type RemoteProduct struct {
	PlatformProductID string
	Title             string
	Description       string
	ImageURLs         []string
	Variants          []RemoteVariant
}

// RemoteVariant is a platform variant, one level below RemoteProduct.
type RemoteVariant struct {
	PlatformVariantID   string
	Title               string
	Sku                 string
	Barcode             string
	Price               string // decimal string, platform currency units
	CompareAtPrice      string
	ImageURL            string
	InventoryByLocation map[string]int // platform location id -> quantity
}

// RemoteLocation is a stock location as the platform defines it.
type RemoteLocation struct {
	PlatformLocationID string
	Name                string
}

// ProductInput is what the canonical side sends when creating or updating a
// product on the platform, produced by the mapping engine's ToPlatformInput.
type ProductInput struct {
	Title       string
	Description string
	ImageURLs   []string
	Variants    []VariantInput
}

// VariantInput is the per-variant half of ProductInput.
type VariantInput struct {
	Title          string
	Sku            string
	Barcode        string
	Price          string
	CompareAtPrice string
	Weight         string // decimal string, empty when the variant carries no weight
	WeightUnit     string

	// Options maps option name to option value (e.g. {"Color": "Red"}), the
	// same shape as entity.ProductVariant.Options. Most platforms require at
	// least one option per variant; a single-variant product with no options
	// of its own gets a synthetic {"Title": "Default Title"} entry instead of
	// an empty map.
	Options map[string]string
}

// WebhookEvent is a parsed, adapter-normalized webhook payload, after
// signature verification and before it is dispatched to a handler.
type WebhookEvent struct {
	Topic             string
	PlatformProductID string
	PlatformVariantID string

	// Quantity and PlatformLocationID are populated for inventory-update
	// topics only; Quantity is nil for every other topic.
	Quantity           *int
	PlatformLocationID *string

	OccurredAt time.Time
	Raw        map[string]interface{}
}

// Adapter is the capability interface a platform integration must satisfy.
// Implementations are looked up by entity.PlatformType through a Registry;
// callers never type-assert a concrete adapter type.
type Adapter interface {
	// Type returns the platform type this adapter serves.
	Type() entity.PlatformType

	// FetchAll streams every product in the platform catalog to the cursor
	// callback, page by page, until exhausted or the callback returns an
	// error.
	FetchAll(ctx context.Context, conn *entity.PlatformConnection, cursor func([]RemoteProduct) error) error

	// FetchByIDs fetches a specific set of products by platform product id,
	// used by the reconciliation processor to refresh a bounded set of rows.
	FetchByIDs(ctx context.Context, conn *entity.PlatformConnection, platformProductIDs []string) ([]RemoteProduct, error)

	// ListLocations returns every stock location configured on the platform
	// account.
	ListLocations(ctx context.Context, conn *entity.PlatformConnection) ([]RemoteLocation, error)

	// CreateProduct creates a new product (with its variants) on the
	// platform and returns the created RemoteProduct with platform ids
	// populated. inventoryLevels[i] holds whatever canonical InventoryLevel
	// rows already exist for input.Variants[i] (often none, for a variant
	// that has never synced anywhere); targetLocations is the platform's own
	// location list, used to seed a quantity of 0 for any location a variant
	// has no recorded level for yet. Every targetLocation must end up with an
	// explicit quantity on the created variant, never left unset.
	CreateProduct(ctx context.Context, conn *entity.PlatformConnection, input ProductInput, inventoryLevels [][]*entity.InventoryLevel, targetLocations []RemoteLocation) (*RemoteProduct, error)

	// UpdateProduct updates an existing platform product in place.
	UpdateProduct(ctx context.Context, conn *entity.PlatformConnection, platformProductID string, input ProductInput) (*RemoteProduct, error)

	// DeleteProduct removes a product from the platform catalog.
	DeleteProduct(ctx context.Context, conn *entity.PlatformConnection, platformProductID string) error

	// SetInventory pushes a quantity for one variant at one location. A nil
	// platformLocationID targets the platform's default/only location.
	SetInventory(ctx context.Context, conn *entity.PlatformConnection, platformVariantID string, platformLocationID *string, quantity int) error

	// VerifyWebhook validates the signature of an inbound webhook request
	// against the connection's credentials, returning an
	// errors.ErrorTypeSignature AppError on mismatch.
	VerifyWebhook(conn *entity.PlatformConnection, r *http.Request, body []byte) error

	// ParseWebhook decodes a verified webhook body into a normalized event.
	ParseWebhook(topic string, body []byte) (*WebhookEvent, error)
}

// SeedInventoryByLocation builds the initial per-location quantity map a
// newly created platform variant should carry: every targetLocation starts
// at 0, then any matching recorded InventoryLevel overrides that default.
// A level with no PlatformLocationID (the platform has no location concept
// of its own) seeds the single "default" location when targetLocations is
// empty. Shared by adapters so CreateProduct's zero-default rule is applied
// identically everywhere.
func SeedInventoryByLocation(levels []*entity.InventoryLevel, targetLocations []RemoteLocation) map[string]int {
	byLocation := make(map[string]int, len(targetLocations))
	for _, loc := range targetLocations {
		byLocation[loc.PlatformLocationID] = 0
	}
	for _, l := range levels {
		if l.PlatformLocationID == nil {
			if len(targetLocations) == 0 {
				byLocation["default"] = l.Quantity
			}
			continue
		}
		byLocation[*l.PlatformLocationID] = l.Quantity
	}
	return byLocation
}

// Registry resolves a PlatformType to its Adapter.
type Registry struct {
	adapters map[entity.PlatformType]Adapter
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[entity.PlatformType]Adapter)}
}

// Register adds an adapter to the registry, keyed by its own Type().
func (r *Registry) Register(a Adapter) {
	r.adapters[a.Type()] = a
}

// Get resolves platform to its adapter, or (nil, false) if none is
// registered.
func (r *Registry) Get(platform entity.PlatformType) (Adapter, bool) {
	a, ok := r.adapters[platform]
	return a, ok
}
