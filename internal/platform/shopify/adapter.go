// Package shopify implements platform.Adapter against Shopify's Admin REST
// API. Pagination follows Shopify's Link-header cursor convention; webhook
// signatures are HMAC-SHA256 over the raw request body, base64-encoded,
// exactly as Shopify signs them.
package shopify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/kirimku/catalog-sync-engine/internal/domain/entity"
	appErrors "github.com/kirimku/catalog-sync-engine/internal/domain/errors"
	"github.com/kirimku/catalog-sync-engine/internal/platform"
)

const apiVersion = "2024-01"

// Adapter talks to Shopify's Admin REST API for one connection at a time;
// it is stateless between calls, all state lives on the
// entity.PlatformConnection passed in.
type Adapter struct {
	httpClient *http.Client
}

// New creates a Shopify adapter using the given HTTP client, or a client
// with a 30-second timeout if client is nil.
func New(client *http.Client) *Adapter {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Adapter{httpClient: client}
}

func (a *Adapter) Type() entity.PlatformType {
	return entity.PlatformTypeShopify
}

func shopDomain(conn *entity.PlatformConnection) (string, error) {
	domain, _ := conn.PlatformSpecificData["shop_domain"].(string)
	if domain == "" {
		return "", appErrors.NewConfigError("shopify connection missing shop_domain", nil)
	}
	return domain, nil
}

func (a *Adapter) baseURL(conn *entity.PlatformConnection, path string) (string, error) {
	domain, err := shopDomain(conn)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("https://%s/admin/api/%s/%s", domain, apiVersion, path), nil
}

func (a *Adapter) doRequest(ctx context.Context, conn *entity.PlatformConnection, accessToken, method, rawURL string, body interface{}) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, appErrors.NewConfigError("failed to encode shopify request body", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, appErrors.NewConfigError("failed to build shopify request", err)
	}
	req.Header.Set("X-Shopify-Access-Token", accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, appErrors.NewPlatformTransientError("shopify", "request failed", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		resp.Body.Close()
		return nil, appErrors.NewPlatformAuthError("shopify", "access token rejected", fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		resp.Body.Close()
		return nil, appErrors.NewPlatformTransientError("shopify", "server busy", fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, appErrors.NewPlatformUserError("shopify", string(b), fmt.Errorf("status %d", resp.StatusCode))
	}
	return resp, nil
}

type shopifyProduct struct {
	ID       int64            `json:"id"`
	Title    string           `json:"title"`
	BodyHTML string           `json:"body_html"`
	Images   []shopifyImage   `json:"images"`
	Variants []shopifyVariant `json:"variants"`

	// VariantsCount is the platform's own count of how many variants this
	// product actually has; when it exceeds len(Variants), the inline page
	// did not carry the full list and the remaining pages must be fetched
	// from the variants sub-resource before the product is handed to the
	// cursor callback.
	VariantsCount int `json:"variants_count"`
}

type shopifyImage struct {
	ID  int64  `json:"id"`
	Src string `json:"src"`
}

type shopifyVariant struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	Sku             string `json:"sku"`
	Barcode         string `json:"barcode"`
	Price           string `json:"price"`
	CompareAtPrice  string `json:"compare_at_price"`
	InventoryItemID int64  `json:"inventory_item_id"`
	ImageID         int64  `json:"image_id,omitempty"`
	Weight          float64 `json:"weight,omitempty"`
	WeightUnit      string  `json:"weight_unit,omitempty"`
	Option1         string  `json:"option1,omitempty"`
	Option2         string  `json:"option2,omitempty"`
	Option3         string  `json:"option3,omitempty"`
}

type shopifyLocation struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func toRemoteProduct(p shopifyProduct) platform.RemoteProduct {
	rp := platform.RemoteProduct{
		PlatformProductID: strconv.FormatInt(p.ID, 10),
		Title:             p.Title,
		Description:       p.BodyHTML,
	}
	imageURLByID := make(map[int64]string, len(p.Images))
	for _, img := range p.Images {
		rp.ImageURLs = append(rp.ImageURLs, img.Src)
		imageURLByID[img.ID] = img.Src
	}
	for _, v := range p.Variants {
		rp.Variants = append(rp.Variants, platform.RemoteVariant{
			// Shopify variants frequently have no independent name (just
			// option values, e.g. "Large / Red"), so the adapter reports
			// the product title as the variant title.
			PlatformVariantID: strconv.FormatInt(v.ID, 10),
			Title:             p.Title,
			Sku:               v.Sku,
			Barcode:           v.Barcode,
			Price:             v.Price,
			CompareAtPrice:    v.CompareAtPrice,
			ImageURL:          imageURLByID[v.ImageID],
		})
	}
	return rp
}

// fetchRemainingVariants paginates a product's variants sub-resource with
// Shopify's since_id cursor convention until the platform's own
// VariantsCount is satisfied or a page comes back empty, appending to the
// variants the inline products.json page already carried.
func (a *Adapter) fetchRemainingVariants(ctx context.Context, conn *entity.PlatformConnection, accessToken string, productID int64, have []shopifyVariant, want int) ([]shopifyVariant, error) {
	all := append([]shopifyVariant(nil), have...)
	for len(all) < want {
		sinceID := int64(0)
		if len(all) > 0 {
			sinceID = all[len(all)-1].ID
		}
		rawURL, err := a.baseURL(conn, fmt.Sprintf("products/%d/variants.json?limit=250&since_id=%d", productID, sinceID))
		if err != nil {
			return nil, err
		}
		resp, err := a.doRequest(ctx, conn, accessToken, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		var page struct {
			Variants []shopifyVariant `json:"variants"`
		}
		decodeErr := json.NewDecoder(resp.Body).Decode(&page)
		resp.Body.Close()
		if decodeErr != nil {
			return nil, appErrors.NewPlatformTransientError("shopify", "failed to decode variants page", decodeErr)
		}
		if len(page.Variants) == 0 {
			break
		}
		all = append(all, page.Variants...)
	}
	return all, nil
}

var linkNextRe = regexp.MustCompile(`<([^>]+)>;\s*rel="next"`)

func nextPageURL(linkHeader string) string {
	m := linkNextRe.FindStringSubmatch(linkHeader)
	if len(m) != 2 {
		return ""
	}
	return m[1]
}

func (a *Adapter) FetchAll(ctx context.Context, conn *entity.PlatformConnection, cursor func([]platform.RemoteProduct) error) error {
	accessToken, err := accessTokenFor(conn)
	if err != nil {
		return err
	}

	next, err := a.baseURL(conn, "products.json?limit=50")
	if err != nil {
		return err
	}

	for next != "" {
		resp, err := a.doRequest(ctx, conn, accessToken, http.MethodGet, next, nil)
		if err != nil {
			return err
		}

		var page struct {
			Products []shopifyProduct `json:"products"`
		}
		decodeErr := json.NewDecoder(resp.Body).Decode(&page)
		link := resp.Header.Get("Link")
		resp.Body.Close()
		if decodeErr != nil {
			return appErrors.NewPlatformTransientError("shopify", "failed to decode products page", decodeErr)
		}

		remote := make([]platform.RemoteProduct, 0, len(page.Products))
		for _, p := range page.Products {
			if p.VariantsCount > len(p.Variants) {
				variants, err := a.fetchRemainingVariants(ctx, conn, accessToken, p.ID, p.Variants, p.VariantsCount)
				if err != nil {
					return err
				}
				p.Variants = variants
			}
			remote = append(remote, toRemoteProduct(p))
		}
		if err := cursor(remote); err != nil {
			return err
		}

		next = nextPageURL(link)
	}
	return nil
}

func (a *Adapter) FetchByIDs(ctx context.Context, conn *entity.PlatformConnection, platformProductIDs []string) ([]platform.RemoteProduct, error) {
	accessToken, err := accessTokenFor(conn)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(platformProductIDs))
	ids = append(ids, platformProductIDs...)
	rawURL, err := a.baseURL(conn, "products.json?ids="+url.QueryEscape(joinComma(ids)))
	if err != nil {
		return nil, err
	}

	resp, err := a.doRequest(ctx, conn, accessToken, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var page struct {
		Products []shopifyProduct `json:"products"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, appErrors.NewPlatformTransientError("shopify", "failed to decode products", err)
	}

	out := make([]platform.RemoteProduct, 0, len(page.Products))
	for _, p := range page.Products {
		out = append(out, toRemoteProduct(p))
	}
	return out, nil
}

func joinComma(items []string) string {
	out := ""
	for i, it := range items {
		if i > 0 {
			out += ","
		}
		out += it
	}
	return out
}

func (a *Adapter) ListLocations(ctx context.Context, conn *entity.PlatformConnection) ([]platform.RemoteLocation, error) {
	accessToken, err := accessTokenFor(conn)
	if err != nil {
		return nil, err
	}
	rawURL, err := a.baseURL(conn, "locations.json")
	if err != nil {
		return nil, err
	}
	resp, err := a.doRequest(ctx, conn, accessToken, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var page struct {
		Locations []shopifyLocation `json:"locations"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, appErrors.NewPlatformTransientError("shopify", "failed to decode locations", err)
	}

	out := make([]platform.RemoteLocation, 0, len(page.Locations))
	for _, l := range page.Locations {
		out = append(out, platform.RemoteLocation{
			PlatformLocationID: strconv.FormatInt(l.ID, 10),
			Name:               l.Name,
		})
	}
	return out, nil
}

func fromProductInput(input platform.ProductInput) shopifyProduct {
	sp := shopifyProduct{Title: input.Title, BodyHTML: input.Description}
	for _, u := range input.ImageURLs {
		sp.Images = append(sp.Images, shopifyImage{Src: u})
	}
	for _, v := range input.Variants {
		sv := shopifyVariant{
			Title:          v.Title,
			Sku:            v.Sku,
			Barcode:        v.Barcode,
			Price:          v.Price,
			CompareAtPrice: v.CompareAtPrice,
			WeightUnit:     v.WeightUnit,
		}
		if v.Weight != "" {
			if w, err := strconv.ParseFloat(v.Weight, 64); err == nil {
				sv.Weight = w
			}
		}
		sv.Option1, sv.Option2, sv.Option3 = optionsToFields(v.Options)
		sp.Variants = append(sp.Variants, sv)
	}
	return sp
}

// optionsToFields flattens a canonical option map onto Shopify's fixed
// option1/option2/option3 variant fields, in alphabetical order of option
// name for a deterministic mapping. Shopify variants carry at most 3
// options; any beyond the third are dropped.
func optionsToFields(options map[string]string) (string, string, string) {
	if len(options) == 0 {
		return "", "", ""
	}
	names := make([]string, 0, len(options))
	for name := range options {
		names = append(names, name)
	}
	sort.Strings(names)

	values := make([]string, 3)
	for i, name := range names {
		if i >= 3 {
			break
		}
		values[i] = options[name]
	}
	return values[0], values[1], values[2]
}

func (a *Adapter) CreateProduct(ctx context.Context, conn *entity.PlatformConnection, input platform.ProductInput, inventoryLevels [][]*entity.InventoryLevel, targetLocations []platform.RemoteLocation) (*platform.RemoteProduct, error) {
	accessToken, err := accessTokenFor(conn)
	if err != nil {
		return nil, err
	}
	rawURL, err := a.baseURL(conn, "products.json")
	if err != nil {
		return nil, err
	}

	body := struct {
		Product shopifyProduct `json:"product"`
	}{Product: fromProductInput(input)}

	resp, err := a.doRequest(ctx, conn, accessToken, http.MethodPost, rawURL, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var created struct {
		Product shopifyProduct `json:"product"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, appErrors.NewPlatformTransientError("shopify", "failed to decode created product", err)
	}
	remote := toRemoteProduct(created.Product)

	// Shopify only accepts an inventory_quantity on the variant payload for a
	// single, shop-default location; every other location (and any quantity
	// above zero for a multi-location shop) must be seeded with an explicit
	// inventory_levels/set call once the variant (and its inventory_item_id)
	// exists.
	for i, v := range remote.Variants {
		var levels []*entity.InventoryLevel
		if i < len(inventoryLevels) {
			levels = inventoryLevels[i]
		}
		byLocation := platform.SeedInventoryByLocation(levels, targetLocations)
		for locationID, quantity := range byLocation {
			loc := locationID
			if loc == "default" {
				continue
			}
			if err := a.SetInventory(ctx, conn, v.PlatformVariantID, &loc, quantity); err != nil {
				return nil, err
			}
		}
	}
	return &remote, nil
}

func (a *Adapter) UpdateProduct(ctx context.Context, conn *entity.PlatformConnection, platformProductID string, input platform.ProductInput) (*platform.RemoteProduct, error) {
	accessToken, err := accessTokenFor(conn)
	if err != nil {
		return nil, err
	}
	rawURL, err := a.baseURL(conn, "products/"+url.PathEscape(platformProductID)+".json")
	if err != nil {
		return nil, err
	}

	body := struct {
		Product shopifyProduct `json:"product"`
	}{Product: fromProductInput(input)}

	resp, err := a.doRequest(ctx, conn, accessToken, http.MethodPut, rawURL, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var updated struct {
		Product shopifyProduct `json:"product"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&updated); err != nil {
		return nil, appErrors.NewPlatformTransientError("shopify", "failed to decode updated product", err)
	}
	remote := toRemoteProduct(updated.Product)
	return &remote, nil
}

func (a *Adapter) DeleteProduct(ctx context.Context, conn *entity.PlatformConnection, platformProductID string) error {
	accessToken, err := accessTokenFor(conn)
	if err != nil {
		return err
	}
	rawURL, err := a.baseURL(conn, "products/"+url.PathEscape(platformProductID)+".json")
	if err != nil {
		return err
	}
	resp, err := a.doRequest(ctx, conn, accessToken, http.MethodDelete, rawURL, nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (a *Adapter) SetInventory(ctx context.Context, conn *entity.PlatformConnection, platformVariantID string, platformLocationID *string, quantity int) error {
	accessToken, err := accessTokenFor(conn)
	if err != nil {
		return err
	}
	if platformLocationID == nil {
		return appErrors.NewConfigError("shopify requires a location id to set inventory", nil)
	}

	rawURL, err := a.baseURL(conn, "inventory_levels/set.json")
	if err != nil {
		return err
	}

	locationID, _ := strconv.ParseInt(*platformLocationID, 10, 64)
	inventoryItemID, _ := strconv.ParseInt(platformVariantID, 10, 64)

	body := struct {
		LocationID      int64 `json:"location_id"`
		InventoryItemID int64 `json:"inventory_item_id"`
		Available       int   `json:"available"`
	}{LocationID: locationID, InventoryItemID: inventoryItemID, Available: quantity}

	resp, err := a.doRequest(ctx, conn, accessToken, http.MethodPost, rawURL, body)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// VerifyWebhook checks the X-Shopify-Hmac-Sha256 header: base64(HMAC-SHA256
// over the raw body, keyed by the connection's webhook secret), compared in
// constant time.
func (a *Adapter) VerifyWebhook(conn *entity.PlatformConnection, r *http.Request, body []byte) error {
	secret, _ := conn.PlatformSpecificData["webhook_secret"].(string)
	if secret == "" {
		return appErrors.NewConfigError("shopify connection missing webhook_secret", nil)
	}

	signature := r.Header.Get("X-Shopify-Hmac-Sha256")
	if signature == "" {
		return appErrors.NewSignatureError("missing X-Shopify-Hmac-Sha256 header")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return appErrors.NewSignatureError("webhook signature mismatch")
	}
	return nil
}

// inventoryLevelsUpdateTopic is the Shopify webhook topic announcing a
// quantity change at one location for one inventory item.
const inventoryLevelsUpdateTopic = "inventory_levels/update"

func (a *Adapter) ParseWebhook(topic string, body []byte) (*platform.WebhookEvent, error) {
	if topic == inventoryLevelsUpdateTopic {
		var payload struct {
			InventoryItemID int64 `json:"inventory_item_id"`
			LocationID      int64 `json:"location_id"`
			Available       int   `json:"available"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, appErrors.NewConfigError("failed to decode shopify inventory webhook body", err)
		}
		locationID := strconv.FormatInt(payload.LocationID, 10)
		quantity := payload.Available
		return &platform.WebhookEvent{
			Topic:              topic,
			PlatformVariantID:  strconv.FormatInt(payload.InventoryItemID, 10),
			Quantity:           &quantity,
			PlatformLocationID: &locationID,
			OccurredAt:         time.Now(),
		}, nil
	}

	var payload struct {
		ID       int64            `json:"id"`
		Variants []shopifyVariant `json:"variants"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, appErrors.NewConfigError("failed to decode shopify webhook body", err)
	}

	event := &platform.WebhookEvent{
		Topic:             topic,
		PlatformProductID: strconv.FormatInt(payload.ID, 10),
		OccurredAt:        time.Now(),
	}
	if len(payload.Variants) > 0 {
		event.PlatformVariantID = strconv.FormatInt(payload.Variants[0].ID, 10)
	}
	return event, nil
}

func accessTokenFor(conn *entity.PlatformConnection) (string, error) {
	// Real credentials are sealed through repository.CredentialVault and
	// decrypted by the caller before reaching the adapter; PlatformConnection
	// never carries plaintext, so callers pass the decrypted token in via
	// context in production wiring. Here we read a decrypted value the
	// caller is expected to have stashed on PlatformSpecificData under a
	// request-scoped key after vault decryption.
	token, _ := conn.PlatformSpecificData["_decrypted_access_token"].(string)
	if token == "" {
		return "", appErrors.NewPlatformAuthError("shopify", "no access token available", nil)
	}
	return token, nil
}
