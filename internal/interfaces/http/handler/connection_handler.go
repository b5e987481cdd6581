// Package handler implements the HTTP lifecycle surface (D3) of the sync
// engine: connection-scoped scan/reconciliation/mapping endpoints, wired
// directly to the C4-C8 components rather than an application/usecase
// layer, since the sync engine's "use cases" are the Queue*/Execute*
// methods those components already expose.
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kirimku/catalog-sync-engine/internal/application/dto"
	"github.com/kirimku/catalog-sync-engine/internal/domain/entity"
	appErrors "github.com/kirimku/catalog-sync-engine/internal/domain/errors"
	"github.com/kirimku/catalog-sync-engine/internal/domain/repository"
	"github.com/kirimku/catalog-sync-engine/internal/interfaces/http/validation"
	"github.com/kirimku/catalog-sync-engine/internal/queue"
	"github.com/kirimku/catalog-sync-engine/internal/scan"
	"github.com/kirimku/catalog-sync-engine/pkg/cache"
)

// ConnectionHandler implements the connection lifecycle endpoints of spec
// §6: start-scan, scan-summary, mapping-suggestions, confirm-mappings,
// activate-sync.
type ConnectionHandler struct {
	Connections repository.PlatformConnectionRepository
	Mappings    repository.PlatformProductMappingRepository
	Variants    repository.ProductVariantRepository
	Enqueuer    *queue.Enqueuer
	Progress    *queue.ProgressReporter
	Suggestions cache.Cache
}

// NewConnectionHandler builds a ConnectionHandler.
func NewConnectionHandler(
	connections repository.PlatformConnectionRepository,
	mappings repository.PlatformProductMappingRepository,
	variants repository.ProductVariantRepository,
	enqueuer *queue.Enqueuer,
	progress *queue.ProgressReporter,
	suggestions cache.Cache,
) *ConnectionHandler {
	return &ConnectionHandler{
		Connections: connections,
		Mappings:    mappings,
		Variants:    variants,
		Enqueuer:    enqueuer,
		Progress:    progress,
		Suggestions: suggestions,
	}
}

func userIDFromContext(c *gin.Context) (uuid.UUID, bool) {
	raw, exists := c.Get("user_id")
	if !exists {
		return uuid.Nil, false
	}
	switch v := raw.(type) {
	case uuid.UUID:
		return v, true
	case string:
		id, err := uuid.Parse(v)
		return id, err == nil
	default:
		return uuid.Nil, false
	}
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, dto.ErrorResponse{
		Error: dto.ErrorDetail{
			Code:    code,
			Message: message,
		},
		RequestID: c.GetString("request_id"),
		Timestamp: time.Now(),
		Path:      c.Request.URL.Path,
		Method:    c.Request.Method,
	})
}

// respondAppError maps an AppError (or any other error) to an HTTP status
// using its declared Code, per the error taxonomy of §7.
func respondAppError(c *gin.Context, err error) {
	if appErr, ok := err.(*appErrors.AppError); ok {
		respondError(c, appErr.Code, string(appErr.Type), appErr.Message)
		return
	}
	respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
}

func connectionIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_CONNECTION_ID", "connection id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

// StartScan handles POST /sync/connections/:id/start-scan.
func (h *ConnectionHandler) StartScan(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "UNAUTHENTICATED", "missing caller identity")
		return
	}
	connectionID, ok := connectionIDParam(c)
	if !ok {
		return
	}

	conn, err := h.Connections.GetByID(c.Request.Context(), userID, connectionID)
	if err != nil {
		respondAppError(c, err)
		return
	}
	if !conn.Owns(userID) {
		respondError(c, http.StatusForbidden, "AUTHORIZATION_ERROR", "connection does not belong to caller")
		return
	}

	task, err := h.Enqueuer.EnqueueInitialScan(connectionID)
	if err != nil {
		respondAppError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"jobId": task.ID})
}

// ScanSummary handles GET /sync/connections/:id/scan-summary.
func (h *ConnectionHandler) ScanSummary(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "UNAUTHENTICATED", "missing caller identity")
		return
	}
	connectionID, ok := connectionIDParam(c)
	if !ok {
		return
	}

	conn, err := h.Connections.GetByID(c.Request.Context(), userID, connectionID)
	if err != nil {
		respondAppError(c, err)
		return
	}

	summary, _ := conn.PlatformSpecificData["scan_summary"].(map[string]interface{})
	if summary == nil {
		c.JSON(http.StatusOK, gin.H{
			"countProducts":  0,
			"countVariants":  0,
			"countLocations": 0,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"countProducts":  summary["count_products"],
		"countVariants":  summary["count_variants"],
		"countLocations": summary["count_locations"],
	})
}

// MappingSuggestions handles GET /sync/connections/:id/mapping-suggestions.
// Reads through a short-lived cache (D5) before falling back to the
// connection's persisted PlatformSpecificData, per SPEC_FULL.md's D5 note.
func (h *ConnectionHandler) MappingSuggestions(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "UNAUTHENTICATED", "missing caller identity")
		return
	}
	connectionID, ok := connectionIDParam(c)
	if !ok {
		return
	}

	cacheKey := "mapping-suggestions:" + connectionID.String()
	if cached, found := h.Suggestions.Get(cacheKey); found {
		c.JSON(http.StatusOK, gin.H{"suggestions": cached})
		return
	}

	conn, err := h.Connections.GetByID(c.Request.Context(), userID, connectionID)
	if err != nil {
		respondAppError(c, err)
		return
	}

	suggestions := conn.PlatformSpecificData["mapping_suggestions"]
	h.Suggestions.Set(cacheKey, suggestions, 10*time.Minute)
	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}

// ConfirmMappingsRequest is the body of POST /sync/connections/:id/confirm-mappings.
type ConfirmMappingsRequest struct {
	Mappings []ConfirmedMapping `json:"mappings" validate:"required,min=1,dive"`
}

// ConfirmedMapping is one user-approved (platform variant, canonical
// variant) pairing.
type ConfirmedMapping struct {
	PlatformProductID string    `json:"platformProductId" validate:"required"`
	PlatformVariantID string    `json:"platformVariantId" validate:"required"`
	VariantID         uuid.UUID `json:"variantId" validate:"required"`
}

// ConfirmMappings handles POST /sync/connections/:id/confirm-mappings: it
// persists the user's mapping choices and transitions the connection to
// syncing.
func (h *ConnectionHandler) ConfirmMappings(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "UNAUTHENTICATED", "missing caller identity")
		return
	}
	connectionID, ok := connectionIDParam(c)
	if !ok {
		return
	}

	var req ConfirmMappingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if err := validation.Struct(req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	conn, err := h.Connections.GetByID(c.Request.Context(), userID, connectionID)
	if err != nil {
		respondAppError(c, err)
		return
	}
	if !conn.Owns(userID) {
		respondError(c, http.StatusForbidden, "AUTHORIZATION_ERROR", "connection does not belong to caller")
		return
	}

	mappings := make([]*entity.PlatformProductMapping, 0, len(req.Mappings))
	for _, m := range req.Mappings {
		mappings = append(mappings, entity.NewPlatformProductMapping(connectionID, m.VariantID, m.PlatformProductID, m.PlatformVariantID))
	}
	if len(mappings) > 0 {
		if err := h.Mappings.BatchUpsert(c.Request.Context(), mappings); err != nil {
			respondAppError(c, err)
			return
		}
	}

	if err := conn.TransitionTo(entity.ConnectionStatusSyncing); err != nil {
		respondError(c, http.StatusConflict, "INVALID_TRANSITION", err.Error())
		return
	}
	if err := h.Connections.UpdateStatus(c.Request.Context(), conn.ID, conn.Status, nil); err != nil {
		respondAppError(c, err)
		return
	}
	h.Suggestions.Delete("mapping-suggestions:" + connectionID.String())

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ActivateSync handles POST /sync/connections/:id/activate-sync: enqueues a
// reconciliation pass so the first post-confirmation sync picks up anything
// that drifted since the scan ran.
func (h *ConnectionHandler) ActivateSync(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "UNAUTHENTICATED", "missing caller identity")
		return
	}
	connectionID, ok := connectionIDParam(c)
	if !ok {
		return
	}

	conn, err := h.Connections.GetByID(c.Request.Context(), userID, connectionID)
	if err != nil {
		respondAppError(c, err)
		return
	}
	if !conn.Owns(userID) {
		respondError(c, http.StatusForbidden, "AUTHORIZATION_ERROR", "connection does not belong to caller")
		return
	}

	task, err := h.Enqueuer.EnqueueReconciliation(connectionID)
	if err != nil {
		respondAppError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"jobId": task.ID})
}

// ensure scan.Processor's progress reporter interface is satisfiable by
// queue.ProgressReporter without an adapter type; referenced here only to
// keep the import meaningful if ConnectionHandler grows a progress-polling
// endpoint.
var _ scan.ProgressReporter = (*queue.ProgressReporter)(nil)
