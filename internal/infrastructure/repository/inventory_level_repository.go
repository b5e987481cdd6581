package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/kirimku/catalog-sync-engine/internal/domain/entity"
	"github.com/kirimku/catalog-sync-engine/internal/domain/repository"
)

// PostgreSQLInventoryLevelRepository implements
// repository.InventoryLevelRepository over Postgres via sqlx.
type PostgreSQLInventoryLevelRepository struct {
	db *sqlx.DB
}

// NewPostgreSQLInventoryLevelRepository builds a
// PostgreSQLInventoryLevelRepository.
func NewPostgreSQLInventoryLevelRepository(db *sqlx.DB) repository.InventoryLevelRepository {
	return &PostgreSQLInventoryLevelRepository{db: db}
}

const inventoryLevelColumns = `id, product_variant_id, platform_connection_id, platform_location_id,
	quantity, last_platform_update_at, created_at, updated_at`

// BatchUpsert upserts each level keyed by the (product_variant_id,
// platform_connection_id, platform_location_id) uniqueness invariant,
// matching entity.InventoryLevel.SameLocation. A nullable
// platform_location_id can't participate in a standard unique index match
// against NULL, so the table declares a unique index over a coalesced
// sentinel column (see migrations) and this upsert targets that index.
func (r *PostgreSQLInventoryLevelRepository) BatchUpsert(ctx context.Context, levels []*entity.InventoryLevel) error {
	if len(levels) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin inventory batch upsert tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	query := `
		INSERT INTO inventory_levels (` + inventoryLevelColumns + `)
		VALUES (:id, :product_variant_id, :platform_connection_id, :platform_location_id,
			:quantity, :last_platform_update_at, :created_at, :updated_at)
		ON CONFLICT (product_variant_id, platform_connection_id, (coalesce(platform_location_id, '')))
		DO UPDATE SET
			quantity = EXCLUDED.quantity,
			last_platform_update_at = EXCLUDED.last_platform_update_at,
			updated_at = EXCLUDED.updated_at`

	now := time.Now()
	for _, l := range levels {
		if err := l.Validate(); err != nil {
			tx.Rollback()
			return fmt.Errorf("inventory level validation failed: %w", err)
		}
		if l.ID == uuid.Nil {
			l.ID = uuid.New()
		}
		l.UpdatedAt = now
		if l.CreatedAt.IsZero() {
			l.CreatedAt = now
		}
		if _, err := tx.NamedExecContext(ctx, query, l); err != nil {
			tx.Rollback()
			ctxInfo := map[string]interface{}{"id": l.ID, "variant_id": l.ProductVariantID}
			return WrapWithContext(MapPostgreSQLError(err, "InventoryLevel", ctxInfo), "BatchUpsertInventoryLevels", ctxInfo)
		}
	}
	return tx.Commit()
}

func (r *PostgreSQLInventoryLevelRepository) GetByVariantAndConnection(ctx context.Context, variantID, connectionID uuid.UUID) ([]*entity.InventoryLevel, error) {
	query := `SELECT ` + inventoryLevelColumns + ` FROM inventory_levels WHERE product_variant_id = $1 AND platform_connection_id = $2`
	var levels []*entity.InventoryLevel
	if err := r.db.SelectContext(ctx, &levels, query, variantID, connectionID); err != nil {
		ctxInfo := map[string]interface{}{"variant_id": variantID, "connection_id": connectionID}
		return nil, WrapWithContext(MapPostgreSQLError(err, "InventoryLevel", ctxInfo), "GetInventoryByVariantAndConnection", ctxInfo)
	}
	return levels, nil
}

func (r *PostgreSQLInventoryLevelRepository) ListByConnection(ctx context.Context, connectionID uuid.UUID) ([]*entity.InventoryLevel, error) {
	query := `SELECT ` + inventoryLevelColumns + ` FROM inventory_levels WHERE platform_connection_id = $1`
	var levels []*entity.InventoryLevel
	if err := r.db.SelectContext(ctx, &levels, query, connectionID); err != nil {
		ctxInfo := map[string]interface{}{"connection_id": connectionID}
		return nil, WrapWithContext(MapPostgreSQLError(err, "InventoryLevel", ctxInfo), "ListInventoryByConnection", ctxInfo)
	}
	return levels, nil
}
