package webhook

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kirimku/catalog-sync-engine/internal/domain/entity"
	"github.com/kirimku/catalog-sync-engine/internal/domain/repository"
	"github.com/kirimku/catalog-sync-engine/internal/infrastructure/logger"
	"github.com/kirimku/catalog-sync-engine/internal/platform"
)

// Processor handles a verified webhook event off the webhook-processing
// queue: it updates the canonical InventoryLevel and fans the new quantity
// out to every other platform connection mapped to the same variant,
// suppressing an echo back to the platform the event originated from.
type Processor struct {
	Mappings    repository.PlatformProductMappingRepository
	Inventory   repository.InventoryLevelRepository
	Connections repository.PlatformConnectionRepository
	Registry    *platform.Registry
}

// ProcessInventoryUpdate applies an inventory webhook event: updates the
// canonical level for the variant the event's PlatformVariantID maps to on
// originConnectionID, then pushes the new quantity to every other mapped
// connection for that variant.
func (p *Processor) ProcessInventoryUpdate(ctx context.Context, originConnectionID uuid.UUID, platformVariantID string, quantity int, platformLocationID *string, observedAt time.Time) error {
	mapping, err := p.Mappings.GetByPlatformVariantID(ctx, originConnectionID, platformVariantID)
	if err != nil {
		return err
	}

	levels, err := p.Inventory.GetByVariantAndConnection(ctx, mapping.ProductVariantID, originConnectionID)
	if err != nil {
		return err
	}

	var level *entity.InventoryLevel
	for _, l := range levels {
		if samePlatformLocation(l.PlatformLocationID, platformLocationID) {
			level = l
			break
		}
	}
	if level == nil {
		level = entity.NewInventoryLevel(mapping.ProductVariantID, originConnectionID, platformLocationID, quantity)
	}
	if !level.ApplyPlatformUpdate(quantity, observedAt) {
		// Stale event, nothing to fan out.
		return nil
	}
	if err := p.Inventory.BatchUpsert(ctx, []*entity.InventoryLevel{level}); err != nil {
		return err
	}

	// Fan out to every other connection mapped to this variant, skipping
	// the origin connection so the platform that sent the webhook does not
	// receive its own update echoed back.
	allMappings, err := p.Mappings.ListByVariant(ctx, mapping.ProductVariantID)
	if err != nil {
		return err
	}
	for _, m := range allMappings {
		if m.PlatformConnectionID == originConnectionID || !m.IsEnabled {
			continue
		}
		conn, err := p.Connections.GetByIDUnscoped(ctx, m.PlatformConnectionID)
		if err != nil {
			logger.Logger.Warn().Err(err).Str("connection_id", m.PlatformConnectionID.String()).Msg("failed to load connection for inventory fan-out")
			continue
		}
		adapter, ok := p.Registry.Get(conn.Platform)
		if !ok {
			continue
		}
		targetLocationID, err := p.targetLocationID(ctx, mapping.ProductVariantID, conn.ID)
		if err != nil {
			logger.Logger.Warn().Err(err).Str("connection_id", conn.ID.String()).Msg("failed to resolve target connection's location for inventory fan-out")
			continue
		}
		if err := adapter.SetInventory(ctx, conn, m.PlatformVariantID, targetLocationID, quantity); err != nil {
			logger.Logger.Warn().Err(err).
				Str("connection_id", conn.ID.String()).
				Str("variant_id", mapping.ProductVariantID.String()).
				Msg("failed to fan out inventory update")
		}
	}
	return nil
}

// targetLocationID resolves the platform location id a fan-out SetInventory
// call should target on connectionID: a platform location id is scoped to
// its own connection, so the origin event's location id (if any) never
// applies to a different connection. It looks up that connection's own,
// previously-recorded InventoryLevel for the variant instead. A variant with
// no location-scoped level yet on that connection targets the platform's
// default location (nil).
func (p *Processor) targetLocationID(ctx context.Context, variantID, connectionID uuid.UUID) (*string, error) {
	levels, err := p.Inventory.GetByVariantAndConnection(ctx, variantID, connectionID)
	if err != nil {
		return nil, err
	}
	for _, l := range levels {
		if l.PlatformLocationID != nil {
			return l.PlatformLocationID, nil
		}
	}
	return nil, nil
}

func samePlatformLocation(a, b *string) bool {
	switch {
	case a == nil && b == nil:
		return true
	case a == nil || b == nil:
		return false
	default:
		return *a == *b
	}
}
