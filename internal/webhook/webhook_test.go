package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirimku/catalog-sync-engine/internal/domain/entity"
	"github.com/kirimku/catalog-sync-engine/internal/platform"
	"github.com/kirimku/catalog-sync-engine/internal/platform/mock"
)

// fixedLocator always resolves to the same connection, standing in for
// RepositoryLocator so these tests exercise Ingestor.Handle without a
// platform type registered in identifierHeader.
type fixedLocator struct {
	conn *entity.PlatformConnection
}

func (f fixedLocator) Locate(ctx context.Context, platformType entity.PlatformType, r *http.Request, body []byte) ([]*entity.PlatformConnection, error) {
	if f.conn == nil {
		return nil, ErrNoMatchingConnection
	}
	return []*entity.PlatformConnection{f.conn}, nil
}

func newRequest(t *testing.T, body string, signature string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/mock/inventory-update", bytes.NewBufferString(body))
	req.Header.Set("X-Mock-Hmac-Sha256", signature)
	return req
}

func newGinContext(req *http.Request) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Params = gin.Params{{Key: "platform", Value: "mock"}, {Key: "topic", Value: "inventory/update"}}
	return c, w
}

func TestIngestor_Handle_SignatureFailureReturns401(t *testing.T) {
	conn := entity.NewPlatformConnection(uuid.New(), entity.PlatformType("mock"), "Test Store")
	conn.IsEnabled = true
	conn.PlatformSpecificData["webhook_secret"] = "shh"

	registry := platform.NewRegistry()
	registry.Register(mock.New())

	in := NewIngestor(fixedLocator{conn: conn}, registry, nil)

	req := newRequest(t, `{"variant_id":"pv","quantity":3}`, "not-the-right-signature")
	c, w := newGinContext(req)

	in.Handle(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestIngestor_Handle_NoMatchingConnectionReturns400(t *testing.T) {
	registry := platform.NewRegistry()
	registry.Register(mock.New())
	in := NewIngestor(fixedLocator{}, registry, nil)

	req := newRequest(t, `{}`, "whatever")
	c, w := newGinContext(req)

	in.Handle(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIngestor_Handle_UnknownPlatformReturns400(t *testing.T) {
	registry := platform.NewRegistry() // nothing registered
	in := NewIngestor(fixedLocator{}, registry, nil)

	req := newRequest(t, `{}`, "whatever")
	c, w := newGinContext(req)

	in.Handle(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIngestor_Handle_DisabledConnectionAcksWithoutEnqueue(t *testing.T) {
	conn := entity.NewPlatformConnection(uuid.New(), entity.PlatformType("mock"), "Test Store")
	conn.IsEnabled = false
	conn.PlatformSpecificData["webhook_secret"] = "shh"

	registry := platform.NewRegistry()
	registry.Register(mock.New())
	in := NewIngestor(fixedLocator{conn: conn}, registry, nil)

	body := `{"variant_id":"pv","quantity":3}`
	sig := hmacHex(t, "shh", body)
	req := newRequest(t, body, sig)
	c, w := newGinContext(req)

	in.Handle(c)

	require.Equal(t, http.StatusOK, w.Code)
}

func hmacHex(t *testing.T, secret, body string) string {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}
