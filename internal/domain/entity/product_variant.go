package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WeightUnit is the unit a ProductVariant.Weight is expressed in.
type WeightUnit string

const (
	WeightUnitGram     WeightUnit = "g"
	WeightUnitKilogram WeightUnit = "kg"
	WeightUnitPound    WeightUnit = "lb"
	WeightUnitOunce    WeightUnit = "oz"
)

// ProductVariant is a sellable unit of a Product: one SKU, one price, one set
// of option values (e.g. Color=Red, Size=Large). A variant belongs to exactly
// one product; deleting the product cascades to its variants.
type ProductVariant struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ProductID uuid.UUID `json:"product_id" db:"product_id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`

	Sku     *string `json:"sku" db:"sku"`
	Barcode *string `json:"barcode" db:"barcode"`

	Title       string  `json:"title" db:"title"`
	Description *string `json:"description" db:"description"`

	Price          decimal.Decimal  `json:"price" db:"price"`
	CompareAtPrice *decimal.Decimal `json:"compare_at_price" db:"compare_at_price"`
	Cost           *decimal.Decimal `json:"cost" db:"cost"`

	Weight     *decimal.Decimal `json:"weight" db:"weight"`
	WeightUnit WeightUnit       `json:"weight_unit" db:"weight_unit"`

	// Options maps option name to option value, e.g. {"Color": "Red"}. Order
	// of the map carries no meaning; display order is derived at the
	// presentation layer from a separate options schema, out of scope here.
	Options map[string]string `json:"options" db:"-"`

	IsTaxable        bool    `json:"is_taxable" db:"is_taxable"`
	TaxCode          *string `json:"tax_code" db:"tax_code"`
	RequiresShipping bool    `json:"requires_shipping" db:"requires_shipping"`

	// ImageID is a weak reference into the parent Product's ImageURLs list
	// (by position, not a foreign key) and may point at an image that has
	// since been removed.
	ImageID *int `json:"image_id" db:"image_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NewProductVariant creates a new variant owned by userID under productID.
func NewProductVariant(productID, userID uuid.UUID, title string, price decimal.Decimal) *ProductVariant {
	now := time.Now()
	return &ProductVariant{
		ID:               uuid.New(),
		ProductID:        productID,
		UserID:           userID,
		Title:            title,
		Price:            price,
		WeightUnit:       WeightUnitKilogram,
		IsTaxable:        true,
		RequiresShipping: true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// NormalizedSku trims and upper-cases the SKU for uniqueness comparisons and
// exact-match suggestion scoring; nil/empty SKUs normalize to "".
func (pv *ProductVariant) NormalizedSku() string {
	if pv.Sku == nil {
		return ""
	}
	return strings.ToUpper(strings.TrimSpace(*pv.Sku))
}

// ValidatePricing validates price-related invariants.
func (pv *ProductVariant) ValidatePricing() error {
	if pv.Price.IsNegative() {
		return fmt.Errorf("variant validation: price cannot be negative")
	}
	if pv.CompareAtPrice != nil && pv.CompareAtPrice.IsNegative() {
		return fmt.Errorf("variant validation: compare-at price cannot be negative")
	}
	if pv.Cost != nil && pv.Cost.IsNegative() {
		return fmt.Errorf("variant validation: cost cannot be negative")
	}
	return nil
}

// Validate performs comprehensive validation of the variant, mirroring the
// product-level Validate contract.
func (pv *ProductVariant) Validate() error {
	if pv.ProductID == uuid.Nil {
		return fmt.Errorf("variant validation: product id is required")
	}
	if pv.UserID == uuid.Nil {
		return fmt.Errorf("variant validation: user id is required")
	}
	if err := pv.ValidatePricing(); err != nil {
		return err
	}
	if len(pv.Options) > 10 {
		return fmt.Errorf("variant validation: cannot have more than 10 options")
	}
	return nil
}

// Owns reports whether userID is the variant's owner.
func (pv *ProductVariant) Owns(userID uuid.UUID) bool {
	return pv.UserID == userID
}

func (pv *ProductVariant) String() string {
	sku := ""
	if pv.Sku != nil {
		sku = *pv.Sku
	}
	return fmt.Sprintf("ProductVariant{ID: %s, ProductID: %s, Sku: %q}", pv.ID, pv.ProductID, sku)
}
