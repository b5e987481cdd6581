// Package repotest provides in-memory fakes for the domain/repository
// interfaces, shared by the scan, push, and webhook package tests so each
// one doesn't reinvent the same map-backed stand-ins.
package repotest

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/kirimku/catalog-sync-engine/internal/domain/entity"
	appErrors "github.com/kirimku/catalog-sync-engine/internal/domain/errors"
	"github.com/kirimku/catalog-sync-engine/internal/domain/repository"
)

// Connections is an in-memory PlatformConnectionRepository.
type Connections struct {
	byID map[uuid.UUID]*entity.PlatformConnection
}

func NewConnections(conns ...*entity.PlatformConnection) *Connections {
	c := &Connections{byID: make(map[uuid.UUID]*entity.PlatformConnection)}
	for _, conn := range conns {
		c.byID[conn.ID] = conn
	}
	return c
}

func (c *Connections) Create(ctx context.Context, conn *entity.PlatformConnection) error {
	c.byID[conn.ID] = conn
	return nil
}

func (c *Connections) GetByID(ctx context.Context, userID, id uuid.UUID) (*entity.PlatformConnection, error) {
	conn, ok := c.byID[id]
	if !ok || conn.UserID != userID {
		return nil, appErrors.NewNotFoundError(fmt.Sprintf("%s %s", "platform connection", id.String()))
	}
	return conn, nil
}

func (c *Connections) GetByIDUnscoped(ctx context.Context, id uuid.UUID) (*entity.PlatformConnection, error) {
	conn, ok := c.byID[id]
	if !ok {
		return nil, appErrors.NewNotFoundError(fmt.Sprintf("%s %s", "platform connection", id.String()))
	}
	return conn, nil
}

func (c *Connections) ListByUser(ctx context.Context, userID uuid.UUID) ([]*entity.PlatformConnection, error) {
	var out []*entity.PlatformConnection
	for _, conn := range c.byID {
		if conn.UserID == userID {
			out = append(out, conn)
		}
	}
	return out, nil
}

func (c *Connections) ListByPlatform(ctx context.Context, platform entity.PlatformType) ([]*entity.PlatformConnection, error) {
	var out []*entity.PlatformConnection
	for _, conn := range c.byID {
		if conn.Platform == platform {
			out = append(out, conn)
		}
	}
	return out, nil
}

func (c *Connections) ListEnabledForReconciliation(ctx context.Context) ([]*entity.PlatformConnection, error) {
	var out []*entity.PlatformConnection
	for _, conn := range c.byID {
		if conn.IsEnabled {
			out = append(out, conn)
		}
	}
	return out, nil
}

func (c *Connections) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.ConnectionStatus, errorMessage *string) error {
	conn, ok := c.byID[id]
	if !ok {
		return appErrors.NewNotFoundError(fmt.Sprintf("%s %s", "platform connection", id.String()))
	}
	conn.Status = status
	conn.LastErrorMessage = errorMessage
	return nil
}

func (c *Connections) UpdateSyncTimestamps(ctx context.Context, id uuid.UUID, conn *entity.PlatformConnection) error {
	existing, ok := c.byID[id]
	if !ok {
		return appErrors.NewNotFoundError(fmt.Sprintf("%s %s", "platform connection", id.String()))
	}
	existing.LastSyncAttemptAt = conn.LastSyncAttemptAt
	existing.LastSyncSuccessAt = conn.LastSyncSuccessAt
	return nil
}

func (c *Connections) UpdateEncryptedCredentials(ctx context.Context, id uuid.UUID, ciphertext []byte) error {
	conn, ok := c.byID[id]
	if !ok {
		return appErrors.NewNotFoundError(fmt.Sprintf("%s %s", "platform connection", id.String()))
	}
	conn.EncryptedCredentials = ciphertext
	return nil
}

func (c *Connections) Delete(ctx context.Context, userID, id uuid.UUID) error {
	delete(c.byID, id)
	return nil
}

// Vault is a passthrough CredentialVault: it "encrypts" by returning the
// plaintext unchanged, so tests can assert on decrypted values without
// wiring real AES-GCM key material.
type Vault struct{}

func (Vault) Encrypt(ctx context.Context, plaintext []byte) ([]byte, error) { return plaintext, nil }
func (Vault) Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error) {
	return ciphertext, nil
}
func (Vault) UpdateCredentials(ctx context.Context, connectionID uuid.UUID, plaintext []byte) error {
	return nil
}

// Products is an in-memory ProductRepository.
type Products struct {
	byID map[uuid.UUID]*entity.Product
}

func NewProducts(products ...*entity.Product) *Products {
	p := &Products{byID: make(map[uuid.UUID]*entity.Product)}
	for _, product := range products {
		p.byID[product.ID] = product
	}
	return p
}

func (p *Products) Create(ctx context.Context, product *entity.Product) error {
	p.byID[product.ID] = product
	return nil
}

func (p *Products) GetByID(ctx context.Context, userID, id uuid.UUID) (*entity.Product, error) {
	product, ok := p.byID[id]
	if !ok || product.UserID != userID {
		return nil, appErrors.NewNotFoundError(fmt.Sprintf("%s %s", "product", id.String()))
	}
	return product, nil
}

func (p *Products) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Product, error) {
	var out []*entity.Product
	for _, product := range p.byID {
		if product.UserID == userID && !product.IsArchived {
			out = append(out, product)
		}
	}
	return out, nil
}

func (p *Products) Update(ctx context.Context, userID, id uuid.UUID, patch repository.ProductPatch) error {
	product, ok := p.byID[id]
	if !ok || product.UserID != userID {
		return appErrors.NewNotFoundError(fmt.Sprintf("%s %s", "product", id.String()))
	}
	if patch.Title != nil {
		product.Title = *patch.Title
	}
	if patch.Description != nil {
		product.Description = patch.Description
	}
	if patch.ImageURLs != nil {
		product.ImageURLs = *patch.ImageURLs
	}
	return nil
}

func (p *Products) Archive(ctx context.Context, userID, id uuid.UUID) error {
	product, ok := p.byID[id]
	if !ok {
		return appErrors.NewNotFoundError(fmt.Sprintf("%s %s", "product", id.String()))
	}
	product.Archive()
	return nil
}

// Variants is an in-memory ProductVariantRepository.
type Variants struct {
	byID map[uuid.UUID]*entity.ProductVariant
}

func NewVariants(variants ...*entity.ProductVariant) *Variants {
	v := &Variants{byID: make(map[uuid.UUID]*entity.ProductVariant)}
	for _, variant := range variants {
		v.byID[variant.ID] = variant
	}
	return v
}

func (v *Variants) Create(ctx context.Context, variant *entity.ProductVariant) error {
	v.byID[variant.ID] = variant
	return nil
}

// All returns every variant currently stored, for test assertions.
func (v *Variants) All() []*entity.ProductVariant {
	out := make([]*entity.ProductVariant, 0, len(v.byID))
	for _, variant := range v.byID {
		out = append(out, variant)
	}
	return out
}

func (v *Variants) BatchUpsert(ctx context.Context, variants []*entity.ProductVariant) error {
	for _, variant := range variants {
		if variant.ID == uuid.Nil {
			variant.ID = uuid.New()
		}
		v.byID[variant.ID] = variant
	}
	return nil
}

func (v *Variants) GetByID(ctx context.Context, userID, id uuid.UUID) (*entity.ProductVariant, error) {
	variant, ok := v.byID[id]
	if !ok || variant.UserID != userID {
		return nil, appErrors.NewNotFoundError(fmt.Sprintf("%s %s", "product variant", id.String()))
	}
	return variant, nil
}

func (v *Variants) ListByProductID(ctx context.Context, userID, productID uuid.UUID) ([]*entity.ProductVariant, error) {
	var out []*entity.ProductVariant
	for _, variant := range v.byID {
		if variant.UserID == userID && variant.ProductID == productID {
			out = append(out, variant)
		}
	}
	return out, nil
}

func (v *Variants) FindBySku(ctx context.Context, userID uuid.UUID, normalizedSku string) (*entity.ProductVariant, error) {
	for _, variant := range v.byID {
		if variant.UserID == userID && variant.NormalizedSku() == normalizedSku {
			return variant, nil
		}
	}
	return nil, appErrors.NewNotFoundError(fmt.Sprintf("%s %s", "product variant", normalizedSku))
}

func (v *Variants) FindByBarcode(ctx context.Context, userID uuid.UUID, barcode string) (*entity.ProductVariant, error) {
	for _, variant := range v.byID {
		if variant.UserID == userID && variant.Barcode != nil && *variant.Barcode == barcode {
			return variant, nil
		}
	}
	return nil, appErrors.NewNotFoundError(fmt.Sprintf("%s %s", "product variant", barcode))
}

func (v *Variants) ListByProductIDs(ctx context.Context, userID uuid.UUID, productIDs []uuid.UUID) ([]*entity.ProductVariant, error) {
	wanted := make(map[uuid.UUID]bool, len(productIDs))
	for _, id := range productIDs {
		wanted[id] = true
	}
	var out []*entity.ProductVariant
	for _, variant := range v.byID {
		if variant.UserID == userID && wanted[variant.ProductID] {
			out = append(out, variant)
		}
	}
	return out, nil
}

func (v *Variants) ListByIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]*entity.ProductVariant, error) {
	var out []*entity.ProductVariant
	for _, id := range ids {
		if variant, ok := v.byID[id]; ok && variant.UserID == userID {
			out = append(out, variant)
		}
	}
	return out, nil
}

func (v *Variants) Update(ctx context.Context, userID, id uuid.UUID, patch repository.ProductVariantPatch) error {
	variant, ok := v.byID[id]
	if !ok || variant.UserID != userID {
		return appErrors.NewNotFoundError(fmt.Sprintf("%s %s", "product variant", id.String()))
	}
	if patch.Title != nil {
		variant.Title = *patch.Title
	}
	if patch.IsTaxable != nil {
		variant.IsTaxable = *patch.IsTaxable
	}
	if patch.RequiresShipping != nil {
		variant.RequiresShipping = *patch.RequiresShipping
	}
	return nil
}

// Inventory is an in-memory InventoryLevelRepository.
type Inventory struct {
	levels []*entity.InventoryLevel
}

func NewInventory(levels ...*entity.InventoryLevel) *Inventory {
	return &Inventory{levels: levels}
}

func (inv *Inventory) BatchUpsert(ctx context.Context, levels []*entity.InventoryLevel) error {
	for _, level := range levels {
		replaced := false
		for i, existing := range inv.levels {
			if existing.SameLocation(level) {
				inv.levels[i] = level
				replaced = true
				break
			}
		}
		if !replaced {
			inv.levels = append(inv.levels, level)
		}
	}
	return nil
}

func (inv *Inventory) GetByVariantAndConnection(ctx context.Context, variantID, connectionID uuid.UUID) ([]*entity.InventoryLevel, error) {
	var out []*entity.InventoryLevel
	for _, level := range inv.levels {
		if level.ProductVariantID == variantID && level.PlatformConnectionID == connectionID {
			out = append(out, level)
		}
	}
	return out, nil
}

func (inv *Inventory) ListByConnection(ctx context.Context, connectionID uuid.UUID) ([]*entity.InventoryLevel, error) {
	var out []*entity.InventoryLevel
	for _, level := range inv.levels {
		if level.PlatformConnectionID == connectionID {
			out = append(out, level)
		}
	}
	return out, nil
}

// All returns every level currently stored, for test assertions.
func (inv *Inventory) All() []*entity.InventoryLevel {
	return inv.levels
}

// Mappings is an in-memory PlatformProductMappingRepository.
type Mappings struct {
	byID map[uuid.UUID]*entity.PlatformProductMapping
}

func NewMappings(mappings ...*entity.PlatformProductMapping) *Mappings {
	m := &Mappings{byID: make(map[uuid.UUID]*entity.PlatformProductMapping)}
	for _, mapping := range mappings {
		m.byID[mapping.ID] = mapping
	}
	return m
}

func (m *Mappings) BatchUpsert(ctx context.Context, mappings []*entity.PlatformProductMapping) error {
	for _, mapping := range mappings {
		if mapping.ID == uuid.Nil {
			mapping.ID = uuid.New()
		}
		m.byID[mapping.ID] = mapping
	}
	return nil
}

func (m *Mappings) GetByVariantAndConnection(ctx context.Context, variantID, connectionID uuid.UUID) (*entity.PlatformProductMapping, error) {
	for _, mapping := range m.byID {
		if mapping.ProductVariantID == variantID && mapping.PlatformConnectionID == connectionID {
			return mapping, nil
		}
	}
	return nil, appErrors.NewNotFoundError(fmt.Sprintf("%s %s", "platform product mapping", variantID.String()))
}

func (m *Mappings) GetByPlatformVariantID(ctx context.Context, connectionID uuid.UUID, platformVariantID string) (*entity.PlatformProductMapping, error) {
	for _, mapping := range m.byID {
		if mapping.PlatformConnectionID == connectionID && mapping.PlatformVariantID == platformVariantID {
			return mapping, nil
		}
	}
	return nil, appErrors.NewNotFoundError(fmt.Sprintf("%s %s", "platform product mapping", platformVariantID))
}

func (m *Mappings) ListByConnection(ctx context.Context, connectionID uuid.UUID) ([]*entity.PlatformProductMapping, error) {
	var out []*entity.PlatformProductMapping
	for _, mapping := range m.byID {
		if mapping.PlatformConnectionID == connectionID {
			out = append(out, mapping)
		}
	}
	return out, nil
}

func (m *Mappings) ListByVariant(ctx context.Context, variantID uuid.UUID) ([]*entity.PlatformProductMapping, error) {
	var out []*entity.PlatformProductMapping
	for _, mapping := range m.byID {
		if mapping.ProductVariantID == variantID {
			out = append(out, mapping)
		}
	}
	return out, nil
}

func (m *Mappings) MarkSynced(ctx context.Context, id uuid.UUID) error {
	mapping, ok := m.byID[id]
	if !ok {
		return appErrors.NewNotFoundError(fmt.Sprintf("%s %s", "platform product mapping", id.String()))
	}
	mapping.MarkSynced()
	return nil
}

func (m *Mappings) MarkSyncFailed(ctx context.Context, id uuid.UUID, reason string) error {
	mapping, ok := m.byID[id]
	if !ok {
		return appErrors.NewNotFoundError(fmt.Sprintf("%s %s", "platform product mapping", id.String()))
	}
	mapping.MarkSyncFailed(reason)
	return nil
}

func (m *Mappings) Delete(ctx context.Context, id uuid.UUID) error {
	delete(m.byID, id)
	return nil
}

// Activity is an in-memory ActivityLogRepository.
type Activity struct {
	entries []*entity.ActivityLog
}

func NewActivity() *Activity {
	return &Activity{}
}

func (a *Activity) Insert(ctx context.Context, entry *entity.ActivityLog) error {
	a.entries = append(a.entries, entry)
	return nil
}

func (a *Activity) ListByEntity(ctx context.Context, userID uuid.UUID, entityType entity.ActivityEntityType, entityID uuid.UUID, limit int) ([]*entity.ActivityLog, error) {
	var out []*entity.ActivityLog
	for _, entry := range a.entries {
		if entry.UserID == userID && entry.EntityType == entityType && entry.EntityID == entityID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (a *Activity) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.ActivityLog, error) {
	var out []*entity.ActivityLog
	for _, entry := range a.entries {
		if entry.UserID == userID {
			out = append(out, entry)
		}
	}
	return out, nil
}

// All returns every entry recorded, for test assertions.
func (a *Activity) All() []*entity.ActivityLog {
	return a.entries
}
