// Package webhook implements the webhook ingestor (C7): fast signature
// verification and connection resolution on the HTTP path, with the actual
// event processing handed off to the webhook-processing queue so the
// platform's webhook delivery never blocks on downstream work.
package webhook

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kirimku/catalog-sync-engine/internal/domain/entity"
	appErrors "github.com/kirimku/catalog-sync-engine/internal/domain/errors"
	"github.com/kirimku/catalog-sync-engine/internal/infrastructure/logger"
	"github.com/kirimku/catalog-sync-engine/internal/platform"
	"github.com/kirimku/catalog-sync-engine/internal/queue"
)

// ConnectionLocator resolves the owning connection for an inbound webhook
// from platform-specific signal (Shopify: shop domain header; Square/Clover:
// a merchant id in the payload or a header), ahead of signature
// verification against that connection's secret.
type ConnectionLocator interface {
	// Locate returns the candidate connections that could own this
	// request, oldest first, for Ingestor to try signature verification
	// against in order.
	Locate(ctx context.Context, platformType entity.PlatformType, r *http.Request, body []byte) ([]*entity.PlatformConnection, error)
}

// Ingestor is the gin handler implementing the 5-step webhook ingestion
// flow.
type Ingestor struct {
	Locator  ConnectionLocator
	Registry *platform.Registry
	Enqueuer *queue.Enqueuer
}

// NewIngestor builds an Ingestor.
func NewIngestor(locator ConnectionLocator, registry *platform.Registry, enqueuer *queue.Enqueuer) *Ingestor {
	return &Ingestor{Locator: locator, Registry: registry, Enqueuer: enqueuer}
}

// Handle implements gin.HandlerFunc for POST /webhook/:platform/:topic.
func (in *Ingestor) Handle(c *gin.Context) {
	platformType := entity.PlatformType(c.Param("platform"))
	topic := c.Param("topic")

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		logger.Logger.Warn().Err(err).Msg("failed to read webhook body")
		c.Status(http.StatusBadRequest)
		return
	}

	adapter, ok := in.Registry.Get(platformType)
	if !ok {
		c.Status(http.StatusBadRequest)
		return
	}

	// Step 3: identify the owning connection before verification, since
	// the secret to verify against lives on the connection itself.
	candidates, err := in.Locator.Locate(c.Request.Context(), platformType, c.Request, body)
	if err != nil || len(candidates) == 0 {
		c.Status(http.StatusBadRequest)
		return
	}
	if len(candidates) > 1 {
		logger.Logger.Warn().
			Str("platform", string(platformType)).
			Int("candidate_count", len(candidates)).
			Msg("multiple connections matched webhook locator, using oldest")
	}
	conn := candidates[0]

	// Step 2: verify signature.
	if err := adapter.VerifyWebhook(conn, c.Request, body); err != nil {
		logger.Logger.Warn().Err(err).Str("connection_id", conn.ID.String()).Msg("webhook signature verification failed")
		c.Status(http.StatusUnauthorized)
		return
	}

	// Step 4: disabled connections ack without processing.
	if !conn.IsEnabled {
		c.Status(http.StatusOK)
		return
	}

	// Step 5: respond immediately, then enqueue. Platforms retry
	// aggressively on a slow response, so the ack must come before any
	// downstream work.
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()

	if _, err := in.Enqueuer.EnqueueWebhookProcess(conn.ID, topic, body); err != nil {
		logger.Logger.Error().Err(err).Str("connection_id", conn.ID.String()).Msg("failed to enqueue webhook for processing")
	}
}

// ErrNoMatchingConnection is returned by a ConnectionLocator implementation
// when no connection claims the webhook.
var ErrNoMatchingConnection = appErrors.NewConfigError("no connection matched webhook", nil)
