package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/kirimku/catalog-sync-engine/internal/domain/entity"
	"github.com/kirimku/catalog-sync-engine/internal/domain/repository"
)

// PostgreSQLActivityLogRepository implements repository.ActivityLogRepository
// over Postgres via sqlx. Rows are append-only: there is no Update or
// Delete method, matching the domain contract.
type PostgreSQLActivityLogRepository struct {
	db *sqlx.DB
}

// NewPostgreSQLActivityLogRepository builds a PostgreSQLActivityLogRepository.
func NewPostgreSQLActivityLogRepository(db *sqlx.DB) repository.ActivityLogRepository {
	return &PostgreSQLActivityLogRepository{db: db}
}

type activityLogRow struct {
	ID         uuid.UUID `db:"id"`
	UserID     uuid.UUID `db:"user_id"`
	EntityType string    `db:"entity_type"`
	EntityID   uuid.UUID `db:"entity_id"`
	EventType  string    `db:"event_type"`
	Status     string    `db:"status"`
	Message    string    `db:"message"`
	Details    []byte    `db:"details"`
	Timestamp  time.Time `db:"timestamp"`
}

func (r *activityLogRow) toEntity() (*entity.ActivityLog, error) {
	var details map[string]interface{}
	if len(r.Details) > 0 {
		if err := json.Unmarshal(r.Details, &details); err != nil {
			return nil, fmt.Errorf("unmarshal activity log details: %w", err)
		}
	}
	return &entity.ActivityLog{
		ID:         r.ID,
		UserID:     r.UserID,
		EntityType: entity.ActivityEntityType(r.EntityType),
		EntityID:   r.EntityID,
		EventType:  r.EventType,
		Status:     entity.ActivityStatus(r.Status),
		Message:    r.Message,
		Details:    details,
		Timestamp:  r.Timestamp,
	}, nil
}

const activityLogColumns = `id, user_id, entity_type, entity_id, event_type, status, message, details, timestamp`

func (r *PostgreSQLActivityLogRepository) Insert(ctx context.Context, entry *entity.ActivityLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	details, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("marshal activity log details: %w", err)
	}

	query := `
		INSERT INTO activity_logs (` + activityLogColumns + `)
		VALUES (:id, :user_id, :entity_type, :entity_id, :event_type, :status, :message, :details, :timestamp)`

	params := map[string]interface{}{
		"id":          entry.ID,
		"user_id":     entry.UserID,
		"entity_type": string(entry.EntityType),
		"entity_id":   entry.EntityID,
		"event_type":  entry.EventType,
		"status":      string(entry.Status),
		"message":     entry.Message,
		"details":     details,
		"timestamp":   entry.Timestamp,
	}

	if _, err := r.db.NamedExecContext(ctx, query, params); err != nil {
		ctxInfo := map[string]interface{}{"id": entry.ID, "user_id": entry.UserID}
		return WrapWithContext(MapPostgreSQLError(err, "ActivityLog", ctxInfo), "InsertActivityLog", ctxInfo)
	}
	return nil
}

func (r *PostgreSQLActivityLogRepository) ListByEntity(ctx context.Context, userID uuid.UUID, entityType entity.ActivityEntityType, entityID uuid.UUID, limit int) ([]*entity.ActivityLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := `
		SELECT ` + activityLogColumns + ` FROM activity_logs
		WHERE user_id = $1 AND entity_type = $2 AND entity_id = $3
		ORDER BY timestamp DESC LIMIT $4`

	var rows []activityLogRow
	if err := r.db.SelectContext(ctx, &rows, query, userID, string(entityType), entityID, limit); err != nil {
		ctxInfo := map[string]interface{}{"entity_id": entityID}
		return nil, WrapWithContext(MapPostgreSQLError(err, "ActivityLog", ctxInfo), "ListActivityLogByEntity", ctxInfo)
	}
	return toActivityLogs(rows)
}

func (r *PostgreSQLActivityLogRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.ActivityLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := `
		SELECT ` + activityLogColumns + ` FROM activity_logs
		WHERE user_id = $1
		ORDER BY timestamp DESC LIMIT $2 OFFSET $3`

	var rows []activityLogRow
	if err := r.db.SelectContext(ctx, &rows, query, userID, limit, offset); err != nil {
		ctxInfo := map[string]interface{}{"user_id": userID}
		return nil, WrapWithContext(MapPostgreSQLError(err, "ActivityLog", ctxInfo), "ListActivityLogByUser", ctxInfo)
	}
	return toActivityLogs(rows)
}

func toActivityLogs(rows []activityLogRow) ([]*entity.ActivityLog, error) {
	entries := make([]*entity.ActivityLog, 0, len(rows))
	for _, row := range rows {
		e, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}
