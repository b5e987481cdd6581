package entity

import (
	"time"

	"github.com/google/uuid"
)

// ActivityEntityType identifies the kind of row an ActivityLog entry is
// about.
type ActivityEntityType string

const (
	ActivityEntityProduct            ActivityEntityType = "product"
	ActivityEntityProductVariant     ActivityEntityType = "product_variant"
	ActivityEntityInventoryLevel     ActivityEntityType = "inventory_level"
	ActivityEntityPlatformConnection ActivityEntityType = "platform_connection"
	ActivityEntityMapping            ActivityEntityType = "platform_product_mapping"
)

// ActivityStatus is the outcome an ActivityLog entry records.
type ActivityStatus string

const (
	ActivityStatusSuccess ActivityStatus = "success"
	ActivityStatusWarning ActivityStatus = "warning"
	ActivityStatusError   ActivityStatus = "error"
	ActivityStatusInfo    ActivityStatus = "info"
)

// ActivityLog is an append-only audit trail entry. Rows are never updated or
// deleted once written; callers only ever insert.
type ActivityLog struct {
	ID         uuid.UUID          `json:"id" db:"id"`
	UserID     uuid.UUID          `json:"user_id" db:"user_id"`
	EntityType ActivityEntityType `json:"entity_type" db:"entity_type"`
	EntityID   uuid.UUID          `json:"entity_id" db:"entity_id"`
	EventType  string             `json:"event_type" db:"event_type"`
	Status     ActivityStatus     `json:"status" db:"status"`
	Message    string             `json:"message" db:"message"`

	// Details carries event-specific structured context (e.g. the platform
	// error payload, the fields that changed) for debugging, serialized as
	// JSONB.
	Details map[string]interface{} `json:"details" db:"details"`

	Timestamp time.Time `json:"timestamp" db:"timestamp"`
}

// NewActivityLog creates a new append-only log entry stamped with the
// current time.
func NewActivityLog(userID uuid.UUID, entityType ActivityEntityType, entityID uuid.UUID, eventType string, status ActivityStatus, message string) *ActivityLog {
	return &ActivityLog{
		ID:         uuid.New(),
		UserID:     userID,
		EntityType: entityType,
		EntityID:   entityID,
		EventType:  eventType,
		Status:     status,
		Message:    message,
		Details:    map[string]interface{}{},
		Timestamp:  time.Now(),
	}
}

// WithDetail attaches a key/value pair to Details and returns the receiver
// for chaining at the call site.
func (a *ActivityLog) WithDetail(key string, value interface{}) *ActivityLog {
	if a.Details == nil {
		a.Details = map[string]interface{}{}
	}
	a.Details[key] = value
	return a
}
