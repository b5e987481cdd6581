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

// PostgreSQLProductRepository implements repository.ProductRepository over
// Postgres via sqlx.
type PostgreSQLProductRepository struct {
	db *sqlx.DB
}

// NewPostgreSQLProductRepository builds a PostgreSQLProductRepository.
func NewPostgreSQLProductRepository(db *sqlx.DB) repository.ProductRepository {
	return &PostgreSQLProductRepository{db: db}
}

// productRow is the wire shape for the products table: ImageURLs is stored
// as a JSONB column, which sqlx can't marshal through the entity's `db:"-"`
// field directly.
type productRow struct {
	ID          uuid.UUID `db:"id"`
	UserID      uuid.UUID `db:"user_id"`
	IsArchived  bool      `db:"is_archived"`
	Title       string    `db:"title"`
	Description *string   `db:"description"`
	ImageURLs   []byte    `db:"image_urls"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func toProductRow(p *entity.Product) (*productRow, error) {
	imageURLs, err := json.Marshal(p.ImageURLs)
	if err != nil {
		return nil, fmt.Errorf("marshal image urls: %w", err)
	}
	return &productRow{
		ID:          p.ID,
		UserID:      p.UserID,
		IsArchived:  p.IsArchived,
		Title:       p.Title,
		Description: p.Description,
		ImageURLs:   imageURLs,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}, nil
}

func (r *productRow) toEntity() (*entity.Product, error) {
	var imageURLs []string
	if len(r.ImageURLs) > 0 {
		if err := json.Unmarshal(r.ImageURLs, &imageURLs); err != nil {
			return nil, fmt.Errorf("unmarshal image urls: %w", err)
		}
	}
	return &entity.Product{
		ID:          r.ID,
		UserID:      r.UserID,
		IsArchived:  r.IsArchived,
		Title:       r.Title,
		Description: r.Description,
		ImageURLs:   imageURLs,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}, nil
}

func (r *PostgreSQLProductRepository) Create(ctx context.Context, product *entity.Product) error {
	if err := product.Validate(); err != nil {
		return fmt.Errorf("product validation failed: %w", err)
	}
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	now := time.Now()
	product.CreatedAt = now
	product.UpdatedAt = now

	row, err := toProductRow(product)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO products (id, user_id, is_archived, title, description, image_urls, created_at, updated_at)
		VALUES (:id, :user_id, :is_archived, :title, :description, :image_urls, :created_at, :updated_at)`

	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		ctxInfo := map[string]interface{}{"id": product.ID, "user_id": product.UserID}
		return WrapWithContext(MapPostgreSQLError(err, "Product", ctxInfo), "CreateProduct", ctxInfo)
	}
	return nil
}

func (r *PostgreSQLProductRepository) GetByID(ctx context.Context, userID, id uuid.UUID) (*entity.Product, error) {
	query := `
		SELECT id, user_id, is_archived, title, description, image_urls, created_at, updated_at
		FROM products
		WHERE id = $1 AND user_id = $2`

	var row productRow
	if err := r.db.GetContext(ctx, &row, query, id, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, NewNotFoundError("Product", id)
		}
		ctxInfo := map[string]interface{}{"id": id}
		return nil, WrapWithContext(MapPostgreSQLError(err, "Product", ctxInfo), "GetProductByID", ctxInfo)
	}
	return row.toEntity()
}

func (r *PostgreSQLProductRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Product, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := `
		SELECT id, user_id, is_archived, title, description, image_urls, created_at, updated_at
		FROM products
		WHERE user_id = $1 AND is_archived = false
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	var rows []productRow
	if err := r.db.SelectContext(ctx, &rows, query, userID, limit, offset); err != nil {
		ctxInfo := map[string]interface{}{"user_id": userID}
		return nil, WrapWithContext(MapPostgreSQLError(err, "Product", ctxInfo), "ListProductsByUser", ctxInfo)
	}

	products := make([]*entity.Product, 0, len(rows))
	for _, row := range rows {
		p, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}

func (r *PostgreSQLProductRepository) Update(ctx context.Context, userID, id uuid.UUID, patch repository.ProductPatch) error {
	sets := []string{"updated_at = now()"}
	args := []interface{}{}
	argN := 1

	addSet := func(column string, value interface{}) {
		argN++
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argN))
		args = append(args, value)
	}

	if patch.Title != nil {
		addSet("title", *patch.Title)
	}
	if patch.Description != nil {
		addSet("description", *patch.Description)
	}
	if patch.ImageURLs != nil {
		encoded, err := json.Marshal(*patch.ImageURLs)
		if err != nil {
			return fmt.Errorf("marshal image urls: %w", err)
		}
		addSet("image_urls", encoded)
	}
	if len(sets) == 1 {
		return nil
	}

	query := fmt.Sprintf("UPDATE products SET %s WHERE id = $1 AND user_id = $%d", joinSets(sets), argN+1)
	allArgs := append([]interface{}{id}, args...)
	allArgs = append(allArgs, userID)

	result, err := r.db.ExecContext(ctx, query, allArgs...)
	if err != nil {
		ctxInfo := map[string]interface{}{"id": id}
		return WrapWithContext(MapPostgreSQLError(err, "Product", ctxInfo), "UpdateProduct", ctxInfo)
	}
	return checkRowsAffected(result, "Product", id)
}

func (r *PostgreSQLProductRepository) Archive(ctx context.Context, userID, id uuid.UUID) error {
	query := `UPDATE products SET is_archived = true, updated_at = now() WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		ctxInfo := map[string]interface{}{"id": id}
		return WrapWithContext(MapPostgreSQLError(err, "Product", ctxInfo), "ArchiveProduct", ctxInfo)
	}
	return checkRowsAffected(result, "Product", id)
}
