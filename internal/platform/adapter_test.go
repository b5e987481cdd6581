package platform_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kirimku/catalog-sync-engine/internal/domain/entity"
	"github.com/kirimku/catalog-sync-engine/internal/platform"
	"github.com/kirimku/catalog-sync-engine/internal/platform/mock"
	"github.com/kirimku/catalog-sync-engine/internal/platform/shopify"
)

func TestRegistry_RegisterAndGet(t *testing.T) {
	reg := platform.NewRegistry()
	mockAdapter := mock.New()
	shopifyAdapter := shopify.New(http.DefaultClient)

	reg.Register(mockAdapter)
	reg.Register(shopifyAdapter)

	got, ok := reg.Get(entity.PlatformType("mock"))
	assert.True(t, ok)
	assert.Same(t, mockAdapter, got)

	got, ok = reg.Get(entity.PlatformTypeShopify)
	assert.True(t, ok)
	assert.Same(t, shopifyAdapter, got)
}

func TestRegistry_GetUnknownPlatform(t *testing.T) {
	reg := platform.NewRegistry()
	_, ok := reg.Get(entity.PlatformType("unregistered"))
	assert.False(t, ok)
}
