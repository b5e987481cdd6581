// Package http assembles the gin.Engine exposing the sync engine's external
// interfaces (D3): the webhook ingestor (C7) and the connection lifecycle
// surface of spec §6.
package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirimku/catalog-sync-engine/internal/interfaces/http/handler"
	"github.com/kirimku/catalog-sync-engine/internal/webhook"
	"github.com/kirimku/catalog-sync-engine/pkg/metrics"
	"github.com/kirimku/catalog-sync-engine/pkg/middleware"
)

// Router wraps the gin.Engine serving the sync engine's HTTP surface.
type Router struct {
	engine *gin.Engine
}

// NewRouter builds the engine with the standard middleware stack
// (recovery, request ids, gin's request logger, Prometheus, CORS/security
// headers).
func NewRouter(connHandler *handler.ConnectionHandler, ingestor *webhook.Ingestor) *Router {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestIDMiddleware())
	engine.Use(gin.Logger())

	collector := metrics.GetGlobalMetricsCollector()
	engine.Use(metrics.PrometheusMiddleware(collector))
	engine.Use(middleware.CORSMiddleware())
	engine.Use(middleware.SecurityHeadersMiddleware())

	engine.GET("/healthz", healthCheck)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// This path param layout (platform, then topic) is one level more
	// specific than spec §6's POST /webhook/{platform}: the ingestor needs
	// to know which event topic arrived to dispatch the right processor,
	// and platforms carry that in the path rather than a shared header.
	engine.POST("/webhook/:platform/:topic", ingestor.Handle)

	sync := engine.Group("/sync/connections/:id")
	sync.POST("/start-scan", connHandler.StartScan)
	sync.GET("/scan-summary", connHandler.ScanSummary)
	sync.GET("/mapping-suggestions", connHandler.MappingSuggestions)
	sync.POST("/confirm-mappings", connHandler.ConfirmMappings)
	sync.POST("/activate-sync", connHandler.ActivateSync)

	return &Router{engine: engine}
}

// Engine returns the underlying gin.Engine for http.Server wiring.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "time": time.Now().UTC()})
}

// requestIDMiddleware takes X-Request-ID (or mints one), stores it in the
// gin context under "request_id" for error responses, and echoes it in the
// X-Request-ID response header.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}
