package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Product is the canonical, platform-independent representation of a
// product. It owns an ordered list of image URLs that variants reference
// weakly by position (see ProductVariant.ImageID).
type Product struct {
	ID          uuid.UUID `json:"id" db:"id"`
	UserID      uuid.UUID `json:"user_id" db:"user_id"`
	IsArchived  bool      `json:"is_archived" db:"is_archived"`
	Title       string    `json:"title" db:"title"`
	Description *string   `json:"description" db:"description"`
	ImageURLs   []string  `json:"image_urls" db:"-"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NewProduct creates a new canonical product owned by userID.
func NewProduct(userID uuid.UUID, title string) *Product {
	now := time.Now()
	return &Product{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate checks the invariants a Product must satisfy before it is
// persisted.
func (p *Product) Validate() error {
	if p.UserID == uuid.Nil {
		return fmt.Errorf("product validation: user id is required")
	}
	if p.Title == "" {
		return fmt.Errorf("product validation: title is required")
	}
	if len(p.Title) > 500 {
		return fmt.Errorf("product validation: title cannot exceed 500 characters")
	}
	return nil
}

// Owns reports whether userID is the product's owner, the check every
// canonical write path must perform before mutating a Product.
func (p *Product) Owns(userID uuid.UUID) bool {
	return p.UserID == userID
}

// Archive marks the product archived. Archiving never deletes rows; it is a
// visibility flag only.
func (p *Product) Archive() {
	p.IsArchived = true
	p.UpdatedAt = time.Now()
}

func (p *Product) String() string {
	return fmt.Sprintf("Product{ID: %s, UserID: %s, Title: %q}", p.ID, p.UserID, p.Title)
}
