package webhook

import (
	"context"
	"net/http"

	"github.com/kirimku/catalog-sync-engine/internal/domain/entity"
	"github.com/kirimku/catalog-sync-engine/internal/domain/repository"
)

// identifierHeader names, per platform, the HTTP header a webhook delivery
// carries its account identifier on, and the PlatformSpecificData key that
// identifier was stored under when the connection was created.
var identifierHeader = map[entity.PlatformType]struct {
	header string
	dataKey string
}{
	entity.PlatformTypeShopify: {header: "X-Shopify-Shop-Domain", dataKey: "shop_domain"},
	entity.PlatformTypeSquare:  {header: "X-Square-Merchant-Id", dataKey: "merchant_id"},
	entity.PlatformTypeClover:  {header: "X-Clover-Merchant-Id", dataKey: "merchant_id"},
}

// RepositoryLocator resolves a webhook's owning connection by matching a
// platform-specific account identifier carried on the request header
// against the value stored on PlatformConnection.PlatformSpecificData at
// connect time.
type RepositoryLocator struct {
	Connections repository.PlatformConnectionRepository
}

// NewRepositoryLocator builds a RepositoryLocator.
func NewRepositoryLocator(connections repository.PlatformConnectionRepository) *RepositoryLocator {
	return &RepositoryLocator{Connections: connections}
}

// Locate implements ConnectionLocator.
func (l *RepositoryLocator) Locate(ctx context.Context, platformType entity.PlatformType, r *http.Request, body []byte) ([]*entity.PlatformConnection, error) {
	spec, ok := identifierHeader[platformType]
	if !ok {
		return nil, ErrNoMatchingConnection
	}
	identifier := r.Header.Get(spec.header)
	if identifier == "" {
		return nil, ErrNoMatchingConnection
	}

	candidates, err := l.Connections.ListByPlatform(ctx, platformType)
	if err != nil {
		return nil, err
	}

	var matches []*entity.PlatformConnection
	for _, conn := range candidates {
		stored, _ := conn.PlatformSpecificData[spec.dataKey].(string)
		if stored != "" && stored == identifier {
			matches = append(matches, conn)
		}
	}
	if len(matches) == 0 {
		return nil, ErrNoMatchingConnection
	}
	return matches, nil
}
