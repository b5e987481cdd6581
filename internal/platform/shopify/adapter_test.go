package shopify

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirimku/catalog-sync-engine/internal/domain/entity"
	appErrors "github.com/kirimku/catalog-sync-engine/internal/domain/errors"
	"github.com/kirimku/catalog-sync-engine/internal/platform"
)

func hmacBase64(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func newTestConnection() *entity.PlatformConnection {
	conn := entity.NewPlatformConnection(uuid.New(), entity.PlatformTypeShopify, "Test Shop")
	conn.PlatformSpecificData["shop_domain"] = "test-shop.myshopify.com"
	conn.PlatformSpecificData["webhook_secret"] = "shhh"
	conn.PlatformSpecificData["_decrypted_access_token"] = "shpat_test_token"
	return conn
}

func TestAdapter_VerifyWebhook_ValidSignature(t *testing.T) {
	a := New(nil)
	conn := newTestConnection()
	body := []byte(`{"id":123}`)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/shopify/products-update", nil)
	req.Header.Set("X-Shopify-Hmac-Sha256", hmacBase64("shhh", body))

	assert.NoError(t, a.VerifyWebhook(conn, req, body))
}

func TestAdapter_VerifyWebhook_BadSignature(t *testing.T) {
	a := New(nil)
	conn := newTestConnection()
	body := []byte(`{"id":123}`)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/shopify/products-update", nil)
	req.Header.Set("X-Shopify-Hmac-Sha256", "not-the-right-signature")

	err := a.VerifyWebhook(conn, req, body)
	require.Error(t, err)
	appErr, ok := err.(*appErrors.AppError)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrorTypeSignature, appErr.Type)
}

func TestAdapter_VerifyWebhook_MissingHeader(t *testing.T) {
	a := New(nil)
	conn := newTestConnection()
	body := []byte(`{"id":123}`)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/shopify/products-update", nil)
	err := a.VerifyWebhook(conn, req, body)
	require.Error(t, err)
	appErr, ok := err.(*appErrors.AppError)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrorTypeSignature, appErr.Type)
}

func TestAdapter_VerifyWebhook_MissingSecret(t *testing.T) {
	a := New(nil)
	conn := newTestConnection()
	delete(conn.PlatformSpecificData, "webhook_secret")
	body := []byte(`{"id":123}`)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/shopify/products-update", nil)
	err := a.VerifyWebhook(conn, req, body)
	require.Error(t, err)
	appErr, ok := err.(*appErrors.AppError)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrorTypeConfig, appErr.Type)
}

func TestAdapter_ParseWebhook_InventoryLevelsUpdate(t *testing.T) {
	a := New(nil)
	body := []byte(`{"inventory_item_id":555,"location_id":999,"available":7}`)

	event, err := a.ParseWebhook(inventoryLevelsUpdateTopic, body)
	require.NoError(t, err)
	assert.Equal(t, inventoryLevelsUpdateTopic, event.Topic)
	assert.Equal(t, "555", event.PlatformVariantID)
	require.NotNil(t, event.Quantity)
	assert.Equal(t, 7, *event.Quantity)
	require.NotNil(t, event.PlatformLocationID)
	assert.Equal(t, "999", *event.PlatformLocationID)
}

func TestAdapter_ParseWebhook_ProductTopic(t *testing.T) {
	a := New(nil)
	body := []byte(`{"id":42,"variants":[{"id":100}]}`)

	event, err := a.ParseWebhook("products/update", body)
	require.NoError(t, err)
	assert.Equal(t, "products/update", event.Topic)
	assert.Equal(t, "42", event.PlatformProductID)
	assert.Equal(t, "100", event.PlatformVariantID)
	assert.Nil(t, event.Quantity)
}

func TestAccessTokenFor_MissingTokenErrors(t *testing.T) {
	conn := newTestConnection()
	delete(conn.PlatformSpecificData, "_decrypted_access_token")

	_, err := accessTokenFor(conn)
	require.Error(t, err)
	appErr, ok := err.(*appErrors.AppError)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrorTypePlatformAuth, appErr.Type)
}

func TestNextPageURL(t *testing.T) {
	link := `<https://shop.myshopify.com/admin/api/2024-01/products.json?page_info=abc>; rel="next"`
	assert.Equal(t, "https://shop.myshopify.com/admin/api/2024-01/products.json?page_info=abc", nextPageURL(link))
	assert.Equal(t, "", nextPageURL(""))
}

func TestAdapter_FetchAll_SinglePage(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "shpat_test_token", r.Header.Get("X-Shopify-Access-Token"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"products":[{"id":1,"title":"Widget","variants":[{"id":10,"sku":"SKU-1"}]}]}`))
	}))
	defer srv.Close()

	a := New(srv.Client())
	conn := newTestConnection()
	conn.PlatformSpecificData["shop_domain"] = srv.Listener.Addr().String()

	var fetched []string
	err := a.FetchAll(context.Background(), conn, func(products []platform.RemoteProduct) error {
		for _, p := range products {
			fetched = append(fetched, p.Title)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Widget"}, fetched)
}

// TestAdapter_FetchAll_PaginatesVariantsPastInlinePage covers the case where
// a product's own variants_count exceeds what products.json inlined: the
// remaining pages must be fetched from the variants sub-resource before the
// product reaches the cursor callback, so the final canonical variant count
// matches variants_count.
func TestAdapter_FetchAll_PaginatesVariantsPastInlinePage(t *testing.T) {
	var variantsRequests int
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/admin/api/2024-01/products.json":
			_, _ = w.Write([]byte(`{"products":[{"id":1,"title":"Widget","variants_count":3,"variants":[{"id":10,"sku":"SKU-1"}],"images":[{"id":500,"src":"https://cdn.example.com/widget.jpg"}]}]}`))
		case r.URL.Path == "/admin/api/2024-01/products/1/variants.json":
			variantsRequests++
			if r.URL.Query().Get("since_id") == "10" {
				_, _ = w.Write([]byte(`{"variants":[{"id":11,"sku":"SKU-2","image_id":500},{"id":12,"sku":"SKU-3"}]}`))
				return
			}
			_, _ = w.Write([]byte(`{"variants":[]}`))
		default:
			t.Fatalf("unexpected request path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	a := New(srv.Client())
	conn := newTestConnection()
	conn.PlatformSpecificData["shop_domain"] = srv.Listener.Addr().String()

	var got []platform.RemoteProduct
	err := a.FetchAll(context.Background(), conn, func(products []platform.RemoteProduct) error {
		got = append(got, products...)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Len(t, got[0].Variants, 3)
	assert.Equal(t, 1, variantsRequests)
	assert.Equal(t, "https://cdn.example.com/widget.jpg", got[0].Variants[1].ImageURL)
	assert.Empty(t, got[0].Variants[0].ImageURL)
}
