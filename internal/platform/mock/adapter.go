// Package mock provides an in-memory Adapter implementation used by the
// scenario tests in internal/scan, internal/push, and internal/webhook: a
// fully scriptable stand-in for a real platform so those tests can drive
// S1-S6 without a network dependency.
package mock

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/kirimku/catalog-sync-engine/internal/domain/entity"
	"github.com/kirimku/catalog-sync-engine/internal/platform"
)

// Adapter is a scriptable in-memory platform, keyed by connection id so a
// single Adapter instance can serve many connections within one test.
type Adapter struct {
	mu        sync.Mutex
	products  map[string][]platform.RemoteProduct // connection id -> catalog
	locations map[string][]platform.RemoteLocation
	nextID    int

	// CreateErr/SetInventoryErr let tests inject a platform failure that
	// every create / set-inventory call returns while the field is set.
	CreateErr       error
	SetInventoryErr error
}

// New creates an empty mock adapter.
func New() *Adapter {
	return &Adapter{
		products:  make(map[string][]platform.RemoteProduct),
		locations: make(map[string][]platform.RemoteLocation),
	}
}

// Type implements platform.Adapter.
func (a *Adapter) Type() entity.PlatformType {
	return entity.PlatformType("mock")
}

// Seed installs a catalog for a connection, as if it already existed on the
// platform before a scan runs.
func (a *Adapter) Seed(connectionID string, products []platform.RemoteProduct, locations []platform.RemoteLocation) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.products[connectionID] = products
	a.locations[connectionID] = locations
}

func (a *Adapter) FetchAll(ctx context.Context, conn *entity.PlatformConnection, cursor func([]platform.RemoteProduct) error) error {
	a.mu.Lock()
	products := append([]platform.RemoteProduct(nil), a.products[conn.ID.String()]...)
	a.mu.Unlock()

	const pageSize = 2
	for i := 0; i < len(products); i += pageSize {
		end := i + pageSize
		if end > len(products) {
			end = len(products)
		}
		if err := cursor(products[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (a *Adapter) FetchByIDs(ctx context.Context, conn *entity.PlatformConnection, platformProductIDs []string) ([]platform.RemoteProduct, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	wanted := make(map[string]bool, len(platformProductIDs))
	for _, id := range platformProductIDs {
		wanted[id] = true
	}
	var out []platform.RemoteProduct
	for _, p := range a.products[conn.ID.String()] {
		if wanted[p.PlatformProductID] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (a *Adapter) ListLocations(ctx context.Context, conn *entity.PlatformConnection) ([]platform.RemoteLocation, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]platform.RemoteLocation(nil), a.locations[conn.ID.String()]...), nil
}

func (a *Adapter) CreateProduct(ctx context.Context, conn *entity.PlatformConnection, input platform.ProductInput, inventoryLevels [][]*entity.InventoryLevel, targetLocations []platform.RemoteLocation) (*platform.RemoteProduct, error) {
	if a.CreateErr != nil {
		return nil, a.CreateErr
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	a.nextID++
	remote := platform.RemoteProduct{
		PlatformProductID: fmt.Sprintf("mock-product-%d", a.nextID),
		Title:             input.Title,
		Description:       input.Description,
		ImageURLs:         input.ImageURLs,
	}
	for i, v := range input.Variants {
		a.nextID++
		var levels []*entity.InventoryLevel
		if i < len(inventoryLevels) {
			levels = inventoryLevels[i]
		}
		remote.Variants = append(remote.Variants, platform.RemoteVariant{
			PlatformVariantID:   fmt.Sprintf("mock-variant-%d", a.nextID),
			Title:               v.Title,
			Sku:                 v.Sku,
			Barcode:             v.Barcode,
			Price:               v.Price,
			CompareAtPrice:      v.CompareAtPrice,
			InventoryByLocation: platform.SeedInventoryByLocation(levels, targetLocations),
		})
	}

	key := conn.ID.String()
	a.products[key] = append(a.products[key], remote)
	return &remote, nil
}

func (a *Adapter) UpdateProduct(ctx context.Context, conn *entity.PlatformConnection, platformProductID string, input platform.ProductInput) (*platform.RemoteProduct, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := conn.ID.String()
	for i, p := range a.products[key] {
		if p.PlatformProductID == platformProductID {
			a.products[key][i].Title = input.Title
			a.products[key][i].Description = input.Description
			a.products[key][i].ImageURLs = input.ImageURLs
			return &a.products[key][i], nil
		}
	}
	return nil, fmt.Errorf("mock adapter: product %s not found", platformProductID)
}

func (a *Adapter) DeleteProduct(ctx context.Context, conn *entity.PlatformConnection, platformProductID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := conn.ID.String()
	filtered := a.products[key][:0]
	for _, p := range a.products[key] {
		if p.PlatformProductID != platformProductID {
			filtered = append(filtered, p)
		}
	}
	a.products[key] = filtered
	return nil
}

func (a *Adapter) SetInventory(ctx context.Context, conn *entity.PlatformConnection, platformVariantID string, platformLocationID *string, quantity int) error {
	if a.SetInventoryErr != nil {
		return a.SetInventoryErr
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	key := conn.ID.String()
	for pi, p := range a.products[key] {
		for vi, v := range p.Variants {
			if v.PlatformVariantID != platformVariantID {
				continue
			}
			if v.InventoryByLocation == nil {
				v.InventoryByLocation = map[string]int{}
			}
			loc := "default"
			if platformLocationID != nil {
				loc = *platformLocationID
			}
			v.InventoryByLocation[loc] = quantity
			a.products[key][pi].Variants[vi] = v
			return nil
		}
	}
	return fmt.Errorf("mock adapter: variant %s not found", platformVariantID)
}

// Snapshot returns a copy of a connection's in-memory catalog, for test
// assertions against what CreateProduct/SetInventory actually wrote.
func (a *Adapter) Snapshot(connectionID string) []platform.RemoteProduct {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]platform.RemoteProduct(nil), a.products[connectionID]...)
}

// VerifyWebhook validates a hex-encoded HMAC-SHA256 signature of the body,
// read from the X-Mock-Hmac-Sha256 header and keyed by the connection's
// PlatformSpecificData["webhook_secret"], so webhook ingestor tests exercise
// a real verification path against a mock secret.
func (a *Adapter) VerifyWebhook(conn *entity.PlatformConnection, r *http.Request, body []byte) error {
	signature := r.Header.Get("X-Mock-Hmac-Sha256")
	if signature == "" {
		return fmt.Errorf("mock adapter: missing signature header")
	}
	secret, _ := conn.PlatformSpecificData["webhook_secret"].(string)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return fmt.Errorf("mock adapter: signature mismatch")
	}
	return nil
}

// inventoryUpdateTopic is the mock platform's made-up equivalent of
// Shopify's "inventory_levels/update": the only topic ParseWebhook reads a
// quantity out of.
const inventoryUpdateTopic = "inventory/update"

func (a *Adapter) ParseWebhook(topic string, body []byte) (*platform.WebhookEvent, error) {
	if topic == inventoryUpdateTopic {
		var payload struct {
			VariantID  string `json:"variant_id"`
			LocationID string `json:"location_id"`
			Quantity   int    `json:"quantity"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, fmt.Errorf("mock adapter: failed to decode inventory webhook body: %w", err)
		}
		event := &platform.WebhookEvent{
			Topic:             topic,
			PlatformVariantID: payload.VariantID,
			Quantity:          &payload.Quantity,
			OccurredAt:        time.Now(),
		}
		if payload.LocationID != "" {
			event.PlatformLocationID = &payload.LocationID
		}
		return event, nil
	}

	return &platform.WebhookEvent{
		Topic:      topic,
		OccurredAt: time.Now(),
		Raw:        map[string]interface{}{"body": string(body)},
	}, nil
}
