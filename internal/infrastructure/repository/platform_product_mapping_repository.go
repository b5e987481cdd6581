package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/kirimku/catalog-sync-engine/internal/domain/entity"
	"github.com/kirimku/catalog-sync-engine/internal/domain/repository"
)

// PostgreSQLPlatformProductMappingRepository implements
// repository.PlatformProductMappingRepository over Postgres via sqlx.
type PostgreSQLPlatformProductMappingRepository struct {
	db *sqlx.DB
}

// NewPostgreSQLPlatformProductMappingRepository builds a
// PostgreSQLPlatformProductMappingRepository.
func NewPostgreSQLPlatformProductMappingRepository(db *sqlx.DB) repository.PlatformProductMappingRepository {
	return &PostgreSQLPlatformProductMappingRepository{db: db}
}

const mappingColumns = `id, platform_connection_id, product_variant_id,
	platform_product_id, platform_variant_id, platform_sku,
	is_enabled, sync_status, sync_error_message, last_synced_at, created_at, updated_at`

func (r *PostgreSQLPlatformProductMappingRepository) BatchUpsert(ctx context.Context, mappings []*entity.PlatformProductMapping) error {
	if len(mappings) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin mapping batch upsert tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	query := `
		INSERT INTO platform_product_mappings (` + mappingColumns + `)
		VALUES (:id, :platform_connection_id, :product_variant_id,
			:platform_product_id, :platform_variant_id, :platform_sku,
			:is_enabled, :sync_status, :sync_error_message, :last_synced_at, :created_at, :updated_at)
		ON CONFLICT (platform_connection_id, product_variant_id) DO UPDATE SET
			platform_product_id = EXCLUDED.platform_product_id,
			platform_variant_id = EXCLUDED.platform_variant_id,
			platform_sku = EXCLUDED.platform_sku,
			is_enabled = EXCLUDED.is_enabled,
			sync_status = EXCLUDED.sync_status,
			sync_error_message = EXCLUDED.sync_error_message,
			last_synced_at = EXCLUDED.last_synced_at,
			updated_at = EXCLUDED.updated_at`

	now := time.Now()
	for _, m := range mappings {
		if err := m.Validate(); err != nil {
			tx.Rollback()
			return fmt.Errorf("mapping validation failed: %w", err)
		}
		if m.ID == uuid.Nil {
			m.ID = uuid.New()
		}
		m.UpdatedAt = now
		if m.CreatedAt.IsZero() {
			m.CreatedAt = now
		}
		if _, err := tx.NamedExecContext(ctx, query, m); err != nil {
			tx.Rollback()
			ctxInfo := map[string]interface{}{"id": m.ID, "variant_id": m.ProductVariantID}
			return WrapWithContext(MapPostgreSQLError(err, "PlatformProductMapping", ctxInfo), "BatchUpsertMappings", ctxInfo)
		}
	}
	return tx.Commit()
}

func (r *PostgreSQLPlatformProductMappingRepository) GetByVariantAndConnection(ctx context.Context, variantID, connectionID uuid.UUID) (*entity.PlatformProductMapping, error) {
	query := `SELECT ` + mappingColumns + ` FROM platform_product_mappings WHERE product_variant_id = $1 AND platform_connection_id = $2`
	var m entity.PlatformProductMapping
	if err := r.db.GetContext(ctx, &m, query, variantID, connectionID); err != nil {
		if err == sql.ErrNoRows {
			return nil, NewNotFoundError("PlatformProductMapping", variantID)
		}
		ctxInfo := map[string]interface{}{"variant_id": variantID, "connection_id": connectionID}
		return nil, WrapWithContext(MapPostgreSQLError(err, "PlatformProductMapping", ctxInfo), "GetMappingByVariantAndConnection", ctxInfo)
	}
	return &m, nil
}

func (r *PostgreSQLPlatformProductMappingRepository) GetByPlatformVariantID(ctx context.Context, connectionID uuid.UUID, platformVariantID string) (*entity.PlatformProductMapping, error) {
	query := `SELECT ` + mappingColumns + ` FROM platform_product_mappings WHERE platform_connection_id = $1 AND platform_variant_id = $2`
	var m entity.PlatformProductMapping
	if err := r.db.GetContext(ctx, &m, query, connectionID, platformVariantID); err != nil {
		if err == sql.ErrNoRows {
			return nil, NewNotFoundError("PlatformProductMapping", platformVariantID)
		}
		ctxInfo := map[string]interface{}{"connection_id": connectionID, "platform_variant_id": platformVariantID}
		return nil, WrapWithContext(MapPostgreSQLError(err, "PlatformProductMapping", ctxInfo), "GetMappingByPlatformVariantID", ctxInfo)
	}
	return &m, nil
}

func (r *PostgreSQLPlatformProductMappingRepository) ListByConnection(ctx context.Context, connectionID uuid.UUID) ([]*entity.PlatformProductMapping, error) {
	query := `SELECT ` + mappingColumns + ` FROM platform_product_mappings WHERE platform_connection_id = $1`
	var mappings []*entity.PlatformProductMapping
	if err := r.db.SelectContext(ctx, &mappings, query, connectionID); err != nil {
		ctxInfo := map[string]interface{}{"connection_id": connectionID}
		return nil, WrapWithContext(MapPostgreSQLError(err, "PlatformProductMapping", ctxInfo), "ListMappingsByConnection", ctxInfo)
	}
	return mappings, nil
}

func (r *PostgreSQLPlatformProductMappingRepository) ListByVariant(ctx context.Context, variantID uuid.UUID) ([]*entity.PlatformProductMapping, error) {
	query := `SELECT ` + mappingColumns + ` FROM platform_product_mappings WHERE product_variant_id = $1`
	var mappings []*entity.PlatformProductMapping
	if err := r.db.SelectContext(ctx, &mappings, query, variantID); err != nil {
		ctxInfo := map[string]interface{}{"variant_id": variantID}
		return nil, WrapWithContext(MapPostgreSQLError(err, "PlatformProductMapping", ctxInfo), "ListMappingsByVariant", ctxInfo)
	}
	return mappings, nil
}

func (r *PostgreSQLPlatformProductMappingRepository) MarkSynced(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE platform_product_mappings SET sync_status = 'success', sync_error_message = NULL, last_synced_at = now(), updated_at = now() WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		ctxInfo := map[string]interface{}{"id": id}
		return WrapWithContext(MapPostgreSQLError(err, "PlatformProductMapping", ctxInfo), "MarkMappingSynced", ctxInfo)
	}
	return checkRowsAffected(result, "PlatformProductMapping", id)
}

func (r *PostgreSQLPlatformProductMappingRepository) MarkSyncFailed(ctx context.Context, id uuid.UUID, reason string) error {
	query := `UPDATE platform_product_mappings SET sync_status = 'error', sync_error_message = $2, updated_at = now() WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, reason)
	if err != nil {
		ctxInfo := map[string]interface{}{"id": id}
		return WrapWithContext(MapPostgreSQLError(err, "PlatformProductMapping", ctxInfo), "MarkMappingSyncFailed", ctxInfo)
	}
	return checkRowsAffected(result, "PlatformProductMapping", id)
}

func (r *PostgreSQLPlatformProductMappingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM platform_product_mappings WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		ctxInfo := map[string]interface{}{"id": id}
		return WrapWithContext(MapPostgreSQLError(err, "PlatformProductMapping", ctxInfo), "DeleteMapping", ctxInfo)
	}
	return checkRowsAffected(result, "PlatformProductMapping", id)
}
