// Package push implements the push coordinator (C8): queueing entry points
// that guard against racing an in-flight scan, and the Execute* handlers an
// asynq worker calls to actually push a canonical change out to every
// enabled platform connection.
package push

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/kirimku/catalog-sync-engine/internal/domain/entity"
	appErrors "github.com/kirimku/catalog-sync-engine/internal/domain/errors"
	"github.com/kirimku/catalog-sync-engine/internal/domain/repository"
	"github.com/kirimku/catalog-sync-engine/internal/infrastructure/logger"
	"github.com/kirimku/catalog-sync-engine/internal/mapping"
	"github.com/kirimku/catalog-sync-engine/internal/platform"
	"github.com/kirimku/catalog-sync-engine/internal/queue"
)

// ErrScanInProgress is returned by the Queue* entry points when the user's
// connections include one that is currently connecting, scanning or
// reconciling:
// pushing canonical changes while a scan is re-deriving that same
// connection's mappings would race.
var ErrScanInProgress = errors.New("push: a scan or reconciliation is in progress for one of this product's connections")

// Coordinator queues and executes push operations.
type Coordinator struct {
	Connections repository.PlatformConnectionRepository
	Products    repository.ProductRepository
	Variants    repository.ProductVariantRepository
	Inventory   repository.InventoryLevelRepository
	Mappings    repository.PlatformProductMappingRepository
	Activity    repository.ActivityLogRepository
	Vault       repository.CredentialVault
	Registry    *platform.Registry
	Enqueuer    *queue.Enqueuer
	RateLimiter *queue.PushRateLimiter
}

func (c *Coordinator) checkNotBusy(ctx context.Context, userID uuid.UUID) error {
	connections, err := c.Connections.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	for _, conn := range connections {
		if conn.IsBusy() {
			return ErrScanInProgress
		}
	}
	return nil
}

// QueueProductCreate enqueues a product-create push after checking no
// connection is mid-scan.
func (c *Coordinator) QueueProductCreate(ctx context.Context, userID, productID uuid.UUID) error {
	if err := c.checkNotBusy(ctx, userID); err != nil {
		return err
	}
	connections, err := c.Connections.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	for _, conn := range connections {
		if !conn.IsEnabled {
			continue
		}
		if _, err := c.Enqueuer.EnqueuePushProductCreate(conn.ID, productID); err != nil {
			return err
		}
	}
	return nil
}

// QueueProductUpdate enqueues a product-update push.
func (c *Coordinator) QueueProductUpdate(ctx context.Context, userID, productID uuid.UUID) error {
	if err := c.checkNotBusy(ctx, userID); err != nil {
		return err
	}
	connections, err := c.Connections.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	for _, conn := range connections {
		if !conn.IsEnabled {
			continue
		}
		if _, err := c.Enqueuer.EnqueuePushProductUpdate(conn.ID, productID); err != nil {
			return err
		}
	}
	return nil
}

// QueueProductDelete enqueues a product-delete push.
func (c *Coordinator) QueueProductDelete(ctx context.Context, userID, productID uuid.UUID) error {
	if err := c.checkNotBusy(ctx, userID); err != nil {
		return err
	}
	connections, err := c.Connections.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	for _, conn := range connections {
		if !conn.IsEnabled {
			continue
		}
		if _, err := c.Enqueuer.EnqueuePushProductDelete(conn.ID, productID); err != nil {
			return err
		}
	}
	return nil
}

// QueueInventoryUpdate enqueues an inventory push for one variant.
func (c *Coordinator) QueueInventoryUpdate(ctx context.Context, userID, variantID uuid.UUID) error {
	if err := c.checkNotBusy(ctx, userID); err != nil {
		return err
	}
	connections, err := c.Connections.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	for _, conn := range connections {
		if !conn.IsEnabled {
			continue
		}
		if _, err := c.Enqueuer.EnqueuePushInventory(conn.ID, variantID); err != nil {
			return err
		}
	}
	return nil
}

func (c *Coordinator) loadProductWithVariants(ctx context.Context, userID, productID uuid.UUID) (*entity.Product, []*entity.ProductVariant, error) {
	product, err := c.Products.GetByID(ctx, userID, productID)
	if err != nil {
		return nil, nil, err
	}
	if !product.Owns(userID) {
		return nil, nil, appErrors.NewAuthorizationError("product does not belong to caller")
	}
	variants, err := c.Variants.ListByProductID(ctx, userID, productID)
	if err != nil {
		return nil, nil, err
	}
	return product, variants, nil
}

// ExecuteProductCreate pushes a new product (with variants) to one
// connection, recording the mapping and an ActivityLog entry on success or
// failure.
func (c *Coordinator) ExecuteProductCreate(ctx context.Context, userID, connectionID, productID uuid.UUID) error {
	product, variants, err := c.loadProductWithVariants(ctx, userID, productID)
	if err != nil {
		return err
	}
	if len(variants) == 0 {
		logger.Logger.Warn().Str("product_id", productID.String()).Msg("skipping push: product has no variants")
		return nil
	}

	conn, err := c.Connections.GetByIDUnscoped(ctx, connectionID)
	if err != nil {
		return err
	}
	adapter, ok := c.Registry.Get(conn.Platform)
	if !ok {
		return appErrors.NewConfigError("no adapter registered for platform "+string(conn.Platform), nil)
	}

	input, kept, dropped := mapping.ToPlatformInput(product, variants, mapping.PushModeCreate)
	for _, v := range dropped {
		logger.Logger.Warn().Str("variant_id", v.ID.String()).Msg("dropping variant from create push: missing SKU")
	}
	if len(kept) == 0 {
		c.logActivity(ctx, userID, productID, "PRODUCT_PUSH_CREATED_SKIPPED", entity.ActivityStatusWarning, "all variants are missing a SKU; no platform call was made")
		return nil
	}

	inventoryLevels := make([][]*entity.InventoryLevel, len(kept))
	for i, variant := range kept {
		levels, err := c.Inventory.GetByVariantAndConnection(ctx, variant.ID, conn.ID)
		if err != nil {
			return err
		}
		inventoryLevels[i] = levels
	}
	targetLocations, err := adapter.ListLocations(ctx, conn)
	if err != nil {
		return err
	}

	remote, err := adapter.CreateProduct(ctx, conn, input, inventoryLevels, targetLocations)
	if err != nil {
		c.logActivity(ctx, userID, productID, "PRODUCT_PUSH_CREATED_FAILED", entity.ActivityStatusError, err.Error())
		conn.MarkError(err.Error())
		_ = c.Connections.UpdateStatus(ctx, conn.ID, conn.Status, conn.LastErrorMessage)
		return err
	}

	for i, variant := range kept {
		if i >= len(remote.Variants) {
			break
		}
		m := entity.NewPlatformProductMapping(conn.ID, variant.ID, remote.PlatformProductID, remote.Variants[i].PlatformVariantID)
		if variant.Sku != nil {
			m.PlatformSku = variant.Sku
		}
		m.MarkSynced()
		if err := c.Mappings.BatchUpsert(ctx, []*entity.PlatformProductMapping{m}); err != nil {
			return err
		}
	}

	c.logActivity(ctx, userID, productID, "PRODUCT_PUSH_CREATED_SUCCESS", entity.ActivityStatusSuccess, fmt.Sprintf("created on %s", conn.Platform))
	return nil
}

// ExecuteProductUpdate pushes an update to an already-mapped product.
func (c *Coordinator) ExecuteProductUpdate(ctx context.Context, userID, connectionID, productID uuid.UUID) error {
	product, variants, err := c.loadProductWithVariants(ctx, userID, productID)
	if err != nil {
		return err
	}

	conn, err := c.Connections.GetByIDUnscoped(ctx, connectionID)
	if err != nil {
		return err
	}
	adapter, ok := c.Registry.Get(conn.Platform)
	if !ok {
		return appErrors.NewConfigError("no adapter registered for platform "+string(conn.Platform), nil)
	}

	if len(variants) == 0 {
		return nil
	}
	m, err := c.Mappings.GetByVariantAndConnection(ctx, variants[0].ID, conn.ID)
	if err != nil {
		return appErrors.NewMappingMissingError("no mapping exists for this product on this connection")
	}

	input, _, _ := mapping.ToPlatformInput(product, variants, mapping.PushModeUpdate)
	if _, err := adapter.UpdateProduct(ctx, conn, m.PlatformProductID, input); err != nil {
		c.logActivity(ctx, userID, productID, "PRODUCT_PUSH_UPDATED_FAILED", entity.ActivityStatusError, err.Error())
		_ = c.Mappings.MarkSyncFailed(ctx, m.ID, err.Error())
		return err
	}

	_ = c.Mappings.MarkSynced(ctx, m.ID)
	c.logActivity(ctx, userID, productID, "PRODUCT_PUSH_UPDATED_SUCCESS", entity.ActivityStatusSuccess, fmt.Sprintf("updated on %s", conn.Platform))
	return nil
}

// ExecuteProductDelete removes the product from one connection's platform
// and deletes every variant's mapping row on that connection, so no orphaned
// mapping survives the product.
func (c *Coordinator) ExecuteProductDelete(ctx context.Context, userID, connectionID, productID uuid.UUID) error {
	variants, err := c.Variants.ListByProductID(ctx, userID, productID)
	if err != nil {
		return err
	}
	if len(variants) == 0 {
		return nil
	}

	conn, err := c.Connections.GetByIDUnscoped(ctx, connectionID)
	if err != nil {
		return err
	}
	adapter, ok := c.Registry.Get(conn.Platform)
	if !ok {
		return appErrors.NewConfigError("no adapter registered for platform "+string(conn.Platform), nil)
	}

	m, err := c.Mappings.GetByVariantAndConnection(ctx, variants[0].ID, conn.ID)
	if err != nil {
		// Already unmapped; deleting is idempotent.
		return nil
	}

	if err := adapter.DeleteProduct(ctx, conn, m.PlatformProductID); err != nil {
		c.logActivity(ctx, userID, productID, "PRODUCT_PUSH_DELETED_FAILED", entity.ActivityStatusError, err.Error())
		return err
	}
	for _, v := range variants {
		vm, err := c.Mappings.GetByVariantAndConnection(ctx, v.ID, conn.ID)
		if err != nil {
			continue
		}
		if err := c.Mappings.Delete(ctx, vm.ID); err != nil {
			return err
		}
	}

	c.logActivity(ctx, userID, productID, "PRODUCT_PUSH_DELETED_SUCCESS", entity.ActivityStatusSuccess, fmt.Sprintf("deleted on %s", conn.Platform))
	return nil
}

// ExecuteInventoryUpdate pushes a variant's current quantity to one
// connection.
func (c *Coordinator) ExecuteInventoryUpdate(ctx context.Context, userID, connectionID, variantID uuid.UUID) error {
	variant, err := c.Variants.GetByID(ctx, userID, variantID)
	if err != nil {
		return err
	}
	if !variant.Owns(userID) {
		return appErrors.NewAuthorizationError("variant does not belong to caller")
	}

	conn, err := c.Connections.GetByIDUnscoped(ctx, connectionID)
	if err != nil {
		return err
	}
	adapter, ok := c.Registry.Get(conn.Platform)
	if !ok {
		return appErrors.NewConfigError("no adapter registered for platform "+string(conn.Platform), nil)
	}

	m, err := c.Mappings.GetByVariantAndConnection(ctx, variantID, conn.ID)
	if err != nil {
		return appErrors.NewMappingMissingError("no mapping exists for this variant on this connection")
	}

	levels, err := c.Inventory.GetByVariantAndConnection(ctx, variantID, conn.ID)
	if err != nil {
		return err
	}
	for _, level := range levels {
		if err := adapter.SetInventory(ctx, conn, m.PlatformVariantID, level.PlatformLocationID, level.Quantity); err != nil {
			c.logActivity(ctx, userID, variantID, "INVENTORY_PUSH_FAILED", entity.ActivityStatusError, err.Error())
			return err
		}
	}
	c.logActivity(ctx, userID, variantID, "INVENTORY_PUSH_SUCCESS", entity.ActivityStatusSuccess, fmt.Sprintf("pushed to %s", conn.Platform))
	return nil
}

func (c *Coordinator) logActivity(ctx context.Context, userID, entityID uuid.UUID, eventType string, status entity.ActivityStatus, message string) {
	entry := entity.NewActivityLog(userID, entity.ActivityEntityProduct, entityID, eventType, status, message)
	if err := c.Activity.Insert(ctx, entry); err != nil {
		logger.Logger.Warn().Err(err).Msg("failed to write activity log entry")
	}
}
