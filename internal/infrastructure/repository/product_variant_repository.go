package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/kirimku/catalog-sync-engine/internal/domain/entity"
	"github.com/kirimku/catalog-sync-engine/internal/domain/repository"
)

// PostgreSQLProductVariantRepository implements
// repository.ProductVariantRepository over Postgres via sqlx.
type PostgreSQLProductVariantRepository struct {
	db *sqlx.DB
}

// NewPostgreSQLProductVariantRepository builds a
// PostgreSQLProductVariantRepository.
func NewPostgreSQLProductVariantRepository(db *sqlx.DB) repository.ProductVariantRepository {
	return &PostgreSQLProductVariantRepository{db: db}
}

// variantRow is the wire shape for product_variants: Options is stored as a
// JSONB column, which sqlx can't marshal through the entity's `db:"-"` field
// directly.
type variantRow struct {
	ID        uuid.UUID `db:"id"`
	ProductID uuid.UUID `db:"product_id"`
	UserID    uuid.UUID `db:"user_id"`

	Sku     *string `db:"sku"`
	Barcode *string `db:"barcode"`

	Title       string  `db:"title"`
	Description *string `db:"description"`

	Price          decimal.Decimal  `db:"price"`
	CompareAtPrice *decimal.Decimal `db:"compare_at_price"`
	Cost           *decimal.Decimal `db:"cost"`

	Weight     *decimal.Decimal `db:"weight"`
	WeightUnit string           `db:"weight_unit"`

	Options []byte `db:"options"`

	IsTaxable        bool    `db:"is_taxable"`
	TaxCode          *string `db:"tax_code"`
	RequiresShipping bool    `db:"requires_shipping"`

	ImageID *int `db:"image_id"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func toVariantRow(v *entity.ProductVariant) (*variantRow, error) {
	options, err := json.Marshal(v.Options)
	if err != nil {
		return nil, fmt.Errorf("marshal variant options: %w", err)
	}
	return &variantRow{
		ID:               v.ID,
		ProductID:        v.ProductID,
		UserID:           v.UserID,
		Sku:              v.Sku,
		Barcode:          v.Barcode,
		Title:            v.Title,
		Description:      v.Description,
		Price:            v.Price,
		CompareAtPrice:   v.CompareAtPrice,
		Cost:             v.Cost,
		Weight:           v.Weight,
		WeightUnit:       string(v.WeightUnit),
		Options:          options,
		IsTaxable:        v.IsTaxable,
		TaxCode:          v.TaxCode,
		RequiresShipping: v.RequiresShipping,
		ImageID:          v.ImageID,
		CreatedAt:        v.CreatedAt,
		UpdatedAt:        v.UpdatedAt,
	}, nil
}

func (r *variantRow) toEntity() (*entity.ProductVariant, error) {
	var options map[string]string
	if len(r.Options) > 0 {
		if err := json.Unmarshal(r.Options, &options); err != nil {
			return nil, fmt.Errorf("unmarshal variant options: %w", err)
		}
	}
	return &entity.ProductVariant{
		ID:               r.ID,
		ProductID:        r.ProductID,
		UserID:           r.UserID,
		Sku:              r.Sku,
		Barcode:          r.Barcode,
		Title:            r.Title,
		Description:      r.Description,
		Price:            r.Price,
		CompareAtPrice:   r.CompareAtPrice,
		Cost:             r.Cost,
		Weight:           r.Weight,
		WeightUnit:       entity.WeightUnit(r.WeightUnit),
		Options:          options,
		IsTaxable:        r.IsTaxable,
		TaxCode:          r.TaxCode,
		RequiresShipping: r.RequiresShipping,
		ImageID:          r.ImageID,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}, nil
}

const variantColumns = `id, product_id, user_id, sku, barcode, title, description,
	price, compare_at_price, cost, weight, weight_unit, options,
	is_taxable, tax_code, requires_shipping, image_id, created_at, updated_at`

func (r *PostgreSQLProductVariantRepository) Create(ctx context.Context, variant *entity.ProductVariant) error {
	if err := variant.Validate(); err != nil {
		return fmt.Errorf("variant validation failed: %w", err)
	}
	if variant.ID == uuid.Nil {
		variant.ID = uuid.New()
	}
	now := time.Now()
	variant.CreatedAt = now
	variant.UpdatedAt = now

	row, err := toVariantRow(variant)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO product_variants (` + variantColumns + `)
		VALUES (:id, :product_id, :user_id, :sku, :barcode, :title, :description,
			:price, :compare_at_price, :cost, :weight, :weight_unit, :options,
			:is_taxable, :tax_code, :requires_shipping, :image_id, :created_at, :updated_at)`

	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		ctxInfo := map[string]interface{}{"id": variant.ID, "sku": variant.Sku}
		return WrapWithContext(MapPostgreSQLError(err, "ProductVariant", ctxInfo), "CreateProductVariant", ctxInfo)
	}
	return nil
}

// BatchUpsert upserts each variant keyed by its own ID. Scan/reconciliation
// always assign IDs before calling this (either a freshly generated one for
// a never-before-seen platform variant, or the existing canonical ID once a
// mapping has resolved which row it corresponds to), so ID is always the
// correct conflict target; callers resolve the (UserID, Sku) identity
// themselves via FindBySku before deciding which ID to assign.
func (r *PostgreSQLProductVariantRepository) BatchUpsert(ctx context.Context, variants []*entity.ProductVariant) error {
	if len(variants) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch upsert tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	query := `
		INSERT INTO product_variants (` + variantColumns + `)
		VALUES (:id, :product_id, :user_id, :sku, :barcode, :title, :description,
			:price, :compare_at_price, :cost, :weight, :weight_unit, :options,
			:is_taxable, :tax_code, :requires_shipping, :image_id, :created_at, :updated_at)
		ON CONFLICT (id) DO UPDATE SET
			sku = EXCLUDED.sku,
			barcode = EXCLUDED.barcode,
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			price = EXCLUDED.price,
			compare_at_price = EXCLUDED.compare_at_price,
			cost = EXCLUDED.cost,
			weight = EXCLUDED.weight,
			weight_unit = EXCLUDED.weight_unit,
			options = EXCLUDED.options,
			is_taxable = EXCLUDED.is_taxable,
			tax_code = EXCLUDED.tax_code,
			requires_shipping = EXCLUDED.requires_shipping,
			image_id = EXCLUDED.image_id,
			updated_at = EXCLUDED.updated_at`

	now := time.Now()
	for _, v := range variants {
		if v.ID == uuid.Nil {
			v.ID = uuid.New()
		}
		v.UpdatedAt = now
		if v.CreatedAt.IsZero() {
			v.CreatedAt = now
		}
		row, err := toVariantRow(v)
		if err != nil {
			tx.Rollback()
			return err
		}
		if _, err := tx.NamedExecContext(ctx, query, row); err != nil {
			tx.Rollback()
			ctxInfo := map[string]interface{}{"id": v.ID, "sku": v.Sku}
			return WrapWithContext(MapPostgreSQLError(err, "ProductVariant", ctxInfo), "BatchUpsertProductVariants", ctxInfo)
		}
	}
	return tx.Commit()
}

func (r *PostgreSQLProductVariantRepository) GetByID(ctx context.Context, userID, id uuid.UUID) (*entity.ProductVariant, error) {
	query := `SELECT ` + variantColumns + ` FROM product_variants WHERE id = $1 AND user_id = $2`
	var row variantRow
	if err := r.db.GetContext(ctx, &row, query, id, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, NewNotFoundError("ProductVariant", id)
		}
		ctxInfo := map[string]interface{}{"id": id}
		return nil, WrapWithContext(MapPostgreSQLError(err, "ProductVariant", ctxInfo), "GetProductVariantByID", ctxInfo)
	}
	return row.toEntity()
}

func (r *PostgreSQLProductVariantRepository) ListByProductID(ctx context.Context, userID, productID uuid.UUID) ([]*entity.ProductVariant, error) {
	query := `SELECT ` + variantColumns + ` FROM product_variants WHERE product_id = $1 AND user_id = $2 ORDER BY created_at ASC`
	return r.listByQuery(ctx, query, productID, userID)
}

func (r *PostgreSQLProductVariantRepository) FindBySku(ctx context.Context, userID uuid.UUID, normalizedSku string) (*entity.ProductVariant, error) {
	query := `SELECT ` + variantColumns + ` FROM product_variants WHERE user_id = $1 AND upper(trim(sku)) = $2 LIMIT 1`
	var row variantRow
	if err := r.db.GetContext(ctx, &row, query, userID, normalizedSku); err != nil {
		if err == sql.ErrNoRows {
			return nil, NewNotFoundError("ProductVariant", normalizedSku)
		}
		ctxInfo := map[string]interface{}{"sku": normalizedSku}
		return nil, WrapWithContext(MapPostgreSQLError(err, "ProductVariant", ctxInfo), "FindProductVariantBySku", ctxInfo)
	}
	return row.toEntity()
}

func (r *PostgreSQLProductVariantRepository) FindByBarcode(ctx context.Context, userID uuid.UUID, barcode string) (*entity.ProductVariant, error) {
	query := `SELECT ` + variantColumns + ` FROM product_variants WHERE user_id = $1 AND barcode = $2 LIMIT 1`
	var row variantRow
	if err := r.db.GetContext(ctx, &row, query, userID, barcode); err != nil {
		if err == sql.ErrNoRows {
			return nil, NewNotFoundError("ProductVariant", barcode)
		}
		ctxInfo := map[string]interface{}{"barcode": barcode}
		return nil, WrapWithContext(MapPostgreSQLError(err, "ProductVariant", ctxInfo), "FindProductVariantByBarcode", ctxInfo)
	}
	return row.toEntity()
}

func (r *PostgreSQLProductVariantRepository) ListByProductIDs(ctx context.Context, userID uuid.UUID, productIDs []uuid.UUID) ([]*entity.ProductVariant, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	query := `SELECT ` + variantColumns + ` FROM product_variants WHERE user_id = $1 AND product_id = ANY($2) ORDER BY created_at ASC`
	return r.listByQuery(ctx, query, userID, pqUUIDArray(productIDs))
}

func (r *PostgreSQLProductVariantRepository) ListByIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]*entity.ProductVariant, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + variantColumns + ` FROM product_variants WHERE user_id = $1 AND id = ANY($2) ORDER BY created_at ASC`
	return r.listByQuery(ctx, query, userID, pqUUIDArray(ids))
}

func (r *PostgreSQLProductVariantRepository) listByQuery(ctx context.Context, query string, args ...interface{}) ([]*entity.ProductVariant, error) {
	var rows []variantRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, WrapWithContext(MapPostgreSQLError(err, "ProductVariant", nil), "ListProductVariants", nil)
	}
	variants := make([]*entity.ProductVariant, 0, len(rows))
	for _, row := range rows {
		v, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		variants = append(variants, v)
	}
	return variants, nil
}

func (r *PostgreSQLProductVariantRepository) Update(ctx context.Context, userID, id uuid.UUID, patch repository.ProductVariantPatch) error {
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
	if patch.Price != nil {
		price, err := decimal.NewFromString(*patch.Price)
		if err != nil {
			return fmt.Errorf("invalid price: %w", err)
		}
		addSet("price", price)
	}
	if patch.CompareAtPrice != nil {
		compareAt, err := decimal.NewFromString(*patch.CompareAtPrice)
		if err != nil {
			return fmt.Errorf("invalid compare-at price: %w", err)
		}
		addSet("compare_at_price", compareAt)
	}
	if patch.Cost != nil {
		cost, err := decimal.NewFromString(*patch.Cost)
		if err != nil {
			return fmt.Errorf("invalid cost: %w", err)
		}
		addSet("cost", cost)
	}
	if patch.IsTaxable != nil {
		addSet("is_taxable", *patch.IsTaxable)
	}
	if patch.RequiresShipping != nil {
		addSet("requires_shipping", *patch.RequiresShipping)
	}
	if len(sets) == 1 {
		return nil
	}

	query := fmt.Sprintf("UPDATE product_variants SET %s WHERE id = $1 AND user_id = $%d", joinSets(sets), argN+1)
	allArgs := append([]interface{}{id}, args...)
	allArgs = append(allArgs, userID)

	result, err := r.db.ExecContext(ctx, query, allArgs...)
	if err != nil {
		ctxInfo := map[string]interface{}{"id": id}
		return WrapWithContext(MapPostgreSQLError(err, "ProductVariant", ctxInfo), "UpdateProductVariant", ctxInfo)
	}
	return checkRowsAffected(result, "ProductVariant", id)
}
