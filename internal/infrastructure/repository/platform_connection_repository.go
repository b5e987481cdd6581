package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/kirimku/catalog-sync-engine/internal/domain/entity"
	"github.com/kirimku/catalog-sync-engine/internal/domain/repository"
)

// PostgreSQLPlatformConnectionRepository implements
// repository.PlatformConnectionRepository over Postgres via sqlx.
type PostgreSQLPlatformConnectionRepository struct {
	db *sqlx.DB
}

// NewPostgreSQLPlatformConnectionRepository builds a
// PostgreSQLPlatformConnectionRepository.
func NewPostgreSQLPlatformConnectionRepository(db *sqlx.DB) repository.PlatformConnectionRepository {
	return &PostgreSQLPlatformConnectionRepository{db: db}
}

// connectionRow is the wire shape for platform_connections:
// PlatformSpecificData is stored as a JSONB column.
type connectionRow struct {
	ID          uuid.UUID `db:"id"`
	UserID      uuid.UUID `db:"user_id"`
	Platform    string    `db:"platform"`
	DisplayName string    `db:"display_name"`
	IsEnabled   bool      `db:"is_enabled"`
	Status      string    `db:"status"`

	PlatformSpecificData []byte `db:"platform_specific_data"`
	EncryptedCredentials []byte `db:"encrypted_credentials"`

	LastSyncAttemptAt *time.Time `db:"last_sync_attempt_at"`
	LastSyncSuccessAt *time.Time `db:"last_sync_success_at"`
	LastErrorMessage  *string    `db:"last_error_message"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func toConnectionRow(c *entity.PlatformConnection) (*connectionRow, error) {
	data, err := json.Marshal(c.PlatformSpecificData)
	if err != nil {
		return nil, fmt.Errorf("marshal platform specific data: %w", err)
	}
	return &connectionRow{
		ID:                   c.ID,
		UserID:               c.UserID,
		Platform:             string(c.Platform),
		DisplayName:          c.DisplayName,
		IsEnabled:            c.IsEnabled,
		Status:               string(c.Status),
		PlatformSpecificData: data,
		EncryptedCredentials: c.EncryptedCredentials,
		LastSyncAttemptAt:    c.LastSyncAttemptAt,
		LastSyncSuccessAt:    c.LastSyncSuccessAt,
		LastErrorMessage:     c.LastErrorMessage,
		CreatedAt:            c.CreatedAt,
		UpdatedAt:            c.UpdatedAt,
	}, nil
}

func (r *connectionRow) toEntity() (*entity.PlatformConnection, error) {
	var data map[string]interface{}
	if len(r.PlatformSpecificData) > 0 {
		if err := json.Unmarshal(r.PlatformSpecificData, &data); err != nil {
			return nil, fmt.Errorf("unmarshal platform specific data: %w", err)
		}
	}
	if data == nil {
		data = map[string]interface{}{}
	}
	return &entity.PlatformConnection{
		ID:                   r.ID,
		UserID:               r.UserID,
		Platform:             entity.PlatformType(r.Platform),
		DisplayName:          r.DisplayName,
		IsEnabled:            r.IsEnabled,
		Status:               entity.ConnectionStatus(r.Status),
		PlatformSpecificData: data,
		EncryptedCredentials: r.EncryptedCredentials,
		LastSyncAttemptAt:    r.LastSyncAttemptAt,
		LastSyncSuccessAt:    r.LastSyncSuccessAt,
		LastErrorMessage:     r.LastErrorMessage,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}, nil
}

const connectionColumns = `id, user_id, platform, display_name, is_enabled, status,
	platform_specific_data, encrypted_credentials,
	last_sync_attempt_at, last_sync_success_at, last_error_message, created_at, updated_at`

func (r *PostgreSQLPlatformConnectionRepository) Create(ctx context.Context, conn *entity.PlatformConnection) error {
	if err := conn.Validate(); err != nil {
		return fmt.Errorf("platform connection validation failed: %w", err)
	}
	if conn.ID == uuid.Nil {
		conn.ID = uuid.New()
	}
	now := time.Now()
	conn.CreatedAt = now
	conn.UpdatedAt = now

	row, err := toConnectionRow(conn)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO platform_connections (` + connectionColumns + `)
		VALUES (:id, :user_id, :platform, :display_name, :is_enabled, :status,
			:platform_specific_data, :encrypted_credentials,
			:last_sync_attempt_at, :last_sync_success_at, :last_error_message, :created_at, :updated_at)`

	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		ctxInfo := map[string]interface{}{"id": conn.ID, "user_id": conn.UserID}
		return WrapWithContext(MapPostgreSQLError(err, "PlatformConnection", ctxInfo), "CreatePlatformConnection", ctxInfo)
	}
	return nil
}

func (r *PostgreSQLPlatformConnectionRepository) GetByID(ctx context.Context, userID, id uuid.UUID) (*entity.PlatformConnection, error) {
	query := `SELECT ` + connectionColumns + ` FROM platform_connections WHERE id = $1 AND user_id = $2`
	return r.getOne(ctx, query, id, userID)
}

func (r *PostgreSQLPlatformConnectionRepository) GetByIDUnscoped(ctx context.Context, id uuid.UUID) (*entity.PlatformConnection, error) {
	query := `SELECT ` + connectionColumns + ` FROM platform_connections WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *PostgreSQLPlatformConnectionRepository) getOne(ctx context.Context, query string, args ...interface{}) (*entity.PlatformConnection, error) {
	var row connectionRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, NewNotFoundError("PlatformConnection", args[0])
		}
		ctxInfo := map[string]interface{}{"id": args[0]}
		return nil, WrapWithContext(MapPostgreSQLError(err, "PlatformConnection", ctxInfo), "GetPlatformConnection", ctxInfo)
	}
	return row.toEntity()
}

func (r *PostgreSQLPlatformConnectionRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*entity.PlatformConnection, error) {
	query := `SELECT ` + connectionColumns + ` FROM platform_connections WHERE user_id = $1 ORDER BY created_at ASC`
	return r.listByQuery(ctx, query, userID)
}

func (r *PostgreSQLPlatformConnectionRepository) ListByPlatform(ctx context.Context, platform entity.PlatformType) ([]*entity.PlatformConnection, error) {
	query := `SELECT ` + connectionColumns + ` FROM platform_connections WHERE platform = $1 ORDER BY created_at ASC`
	return r.listByQuery(ctx, query, string(platform))
}

func (r *PostgreSQLPlatformConnectionRepository) ListEnabledForReconciliation(ctx context.Context) ([]*entity.PlatformConnection, error) {
	query := `
		SELECT ` + connectionColumns + ` FROM platform_connections
		WHERE is_enabled = true AND status IN ('syncing', 'reconciling')`
	return r.listByQuery(ctx, query)
}

func (r *PostgreSQLPlatformConnectionRepository) listByQuery(ctx context.Context, query string, args ...interface{}) ([]*entity.PlatformConnection, error) {
	var rows []connectionRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, WrapWithContext(MapPostgreSQLError(err, "PlatformConnection", nil), "ListPlatformConnections", nil)
	}
	conns := make([]*entity.PlatformConnection, 0, len(rows))
	for _, row := range rows {
		c, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		conns = append(conns, c)
	}
	return conns, nil
}

func (r *PostgreSQLPlatformConnectionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.ConnectionStatus, errorMessage *string) error {
	query := `UPDATE platform_connections SET status = $2, last_error_message = $3, updated_at = now() WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, string(status), errorMessage)
	if err != nil {
		ctxInfo := map[string]interface{}{"id": id}
		return WrapWithContext(MapPostgreSQLError(err, "PlatformConnection", ctxInfo), "UpdatePlatformConnectionStatus", ctxInfo)
	}
	return checkRowsAffected(result, "PlatformConnection", id)
}

func (r *PostgreSQLPlatformConnectionRepository) UpdateSyncTimestamps(ctx context.Context, id uuid.UUID, conn *entity.PlatformConnection) error {
	data, err := json.Marshal(conn.PlatformSpecificData)
	if err != nil {
		return fmt.Errorf("marshal platform specific data: %w", err)
	}
	query := `
		UPDATE platform_connections
		SET last_sync_attempt_at = $2, last_sync_success_at = $3, platform_specific_data = $4, updated_at = now()
		WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, conn.LastSyncAttemptAt, conn.LastSyncSuccessAt, data)
	if err != nil {
		ctxInfo := map[string]interface{}{"id": id}
		return WrapWithContext(MapPostgreSQLError(err, "PlatformConnection", ctxInfo), "UpdatePlatformConnectionSyncTimestamps", ctxInfo)
	}
	return checkRowsAffected(result, "PlatformConnection", id)
}

func (r *PostgreSQLPlatformConnectionRepository) UpdateEncryptedCredentials(ctx context.Context, id uuid.UUID, ciphertext []byte) error {
	query := `UPDATE platform_connections SET encrypted_credentials = $2, updated_at = now() WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, ciphertext)
	if err != nil {
		ctxInfo := map[string]interface{}{"id": id}
		return WrapWithContext(MapPostgreSQLError(err, "PlatformConnection", ctxInfo), "UpdatePlatformConnectionCredentials", ctxInfo)
	}
	return checkRowsAffected(result, "PlatformConnection", id)
}

func (r *PostgreSQLPlatformConnectionRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	query := `DELETE FROM platform_connections WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		ctxInfo := map[string]interface{}{"id": id}
		return WrapWithContext(MapPostgreSQLError(err, "PlatformConnection", ctxInfo), "DeletePlatformConnection", ctxInfo)
	}
	return checkRowsAffected(result, "PlatformConnection", id)
}
