// Package scan implements the initial scan pipeline (C5) and the
// reconciliation processor (C6), which reuses the same fetch+map+suggest
// steps. Both drive entity.PlatformConnection through its state machine and
// leave temporary correlation ids (entity.TempID) behind once persistence
// assigns real uuid.UUIDs.
package scan

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kirimku/catalog-sync-engine/internal/domain/entity"
	appErrors "github.com/kirimku/catalog-sync-engine/internal/domain/errors"
	"github.com/kirimku/catalog-sync-engine/internal/domain/repository"
	"github.com/kirimku/catalog-sync-engine/internal/infrastructure/logger"
	"github.com/kirimku/catalog-sync-engine/internal/mapping"
	"github.com/kirimku/catalog-sync-engine/internal/platform"
)

// ProgressReporter is the narrow slice of queue.ProgressReporter the
// processor needs, kept as an interface here so this package does not
// import Redis directly.
type ProgressReporter interface {
	Report(ctx context.Context, taskID string, percent int, description string) error
}

// noopProgress discards progress reports, used by callers (tests, the
// reconciliation pass which has no taskID) that don't need them.
type noopProgress struct{}

func (noopProgress) Report(context.Context, string, int, string) error { return nil }

// Processor runs the initial scan pipeline against one connection.
type Processor struct {
	Connections repository.PlatformConnectionRepository
	Products    repository.ProductRepository
	Variants    repository.ProductVariantRepository
	Inventory   repository.InventoryLevelRepository
	Vault       repository.CredentialVault
	Registry    *platform.Registry
	Progress    ProgressReporter
}

// New builds a Processor, defaulting Progress to a no-op reporter when none
// is given.
func New(
	connections repository.PlatformConnectionRepository,
	products repository.ProductRepository,
	variants repository.ProductVariantRepository,
	inventory repository.InventoryLevelRepository,
	vault repository.CredentialVault,
	registry *platform.Registry,
	progress ProgressReporter,
) *Processor {
	if progress == nil {
		progress = noopProgress{}
	}
	return &Processor{
		Connections: connections,
		Products:    products,
		Variants:    variants,
		Inventory:   inventory,
		Vault:       vault,
		Registry:    registry,
		Progress:    progress,
	}
}

// scanState accumulates the in-memory, temp-id-correlated results of steps
// 2-3 before anything is persisted.
type scanState struct {
	products        map[entity.TempID]*entity.Product
	variants        map[entity.TempID]*entity.ProductVariant
	variantProduct  map[entity.TempID]entity.TempID // variant temp id -> parent product temp id
	remoteVariants  []platform.RemoteVariant         // flattened, for suggestions
	inventoryByVariant map[entity.TempID][]platform.RemoteVariant
}

// Run drives connectionID through connecting/scanning/needs_review per the
// 10-step pipeline. taskID is used only for progress reporting and may be
// empty.
func (p *Processor) Run(ctx context.Context, userID, connectionID uuid.UUID, taskID string) error {
	// Step 1: validate + transition to scanning.
	conn, err := p.Connections.GetByID(ctx, userID, connectionID)
	if err != nil {
		return err
	}
	if !conn.Owns(userID) {
		return appErrors.NewAuthorizationError("connection does not belong to caller")
	}
	if err := conn.TransitionTo(entity.ConnectionStatusScanning); err != nil {
		return appErrors.NewConfigError(err.Error(), err)
	}
	conn.MarkSyncAttempt()
	if err := p.Connections.UpdateStatus(ctx, conn.ID, conn.Status, nil); err != nil {
		return err
	}
	if err := p.decryptCredentials(ctx, conn); err != nil {
		return err
	}

	adapter, ok := p.Registry.Get(conn.Platform)
	if !ok {
		return appErrors.NewConfigError(fmt.Sprintf("no adapter registered for platform %s", conn.Platform), nil)
	}

	// Step 2: fetch.
	p.report(ctx, taskID, 10, "fetching catalog")
	state := &scanState{
		products:           make(map[entity.TempID]*entity.Product),
		variants:           make(map[entity.TempID]*entity.ProductVariant),
		variantProduct:     make(map[entity.TempID]entity.TempID),
		inventoryByVariant: make(map[entity.TempID][]platform.RemoteVariant),
	}

	err = adapter.FetchAll(ctx, conn, func(batch []platform.RemoteProduct) error {
		p.mapBatch(userID, batch, state)
		return nil
	})
	if err != nil {
		conn.MarkError(err.Error())
		_ = p.Connections.UpdateStatus(ctx, conn.ID, conn.Status, conn.LastErrorMessage)
		return err
	}

	locations, err := adapter.ListLocations(ctx, conn)
	if err != nil {
		conn.MarkError(err.Error())
		_ = p.Connections.UpdateStatus(ctx, conn.ID, conn.Status, conn.LastErrorMessage)
		return err
	}

	p.report(ctx, taskID, 30, "mapping to canonical model")
	// Step 3 already happened inside mapBatch as products streamed in.

	// Step 4: persist products, build tempProductID -> real id map.
	p.report(ctx, taskID, 50, "persisting products")
	productIDMap := make(map[entity.TempID]uuid.UUID, len(state.products))
	for tempID, product := range state.products {
		if err := p.Products.Create(ctx, product); err != nil {
			logger.Logger.Warn().Err(err).Str("temp_id", string(tempID)).Msg("failed to persist scanned product")
			continue
		}
		productIDMap[tempID] = product.ID
	}

	// Step 5: rewire variants to real product ids, drop orphans, build
	// tempVariantID -> real id map.
	p.report(ctx, taskID, 60, "persisting variants")
	variantIDMap := make(map[entity.TempID]uuid.UUID, len(state.variants))
	toUpsert := make([]*entity.ProductVariant, 0, len(state.variants))
	for tempID, variant := range state.variants {
		parentTemp := state.variantProduct[tempID]
		realProductID, ok := productIDMap[parentTemp]
		if !ok {
			logger.Logger.Warn().Str("temp_id", string(tempID)).Msg("dropping variant: parent product failed to persist")
			continue
		}
		variant.ProductID = realProductID
		if sku := variant.NormalizedSku(); sku != "" {
			if existing, err := p.Variants.FindBySku(ctx, userID, sku); err == nil {
				variant.ID = existing.ID
			}
		}
		toUpsert = append(toUpsert, variant)
	}

	// Step 6: resolve each variant's ImageID as a weak position reference
	// into its parent product's ImageURLs, appending a platform-supplied
	// image url the product doesn't carry yet. Runs before the batch upsert
	// below so the resolved reference lands in the same write.
	p.resolveVariantImages(ctx, userID, state, productIDMap)

	if len(toUpsert) > 0 {
		if err := p.Variants.BatchUpsert(ctx, toUpsert); err != nil {
			return err
		}
	}
	for tempID, variant := range state.variants {
		if _, dropped := productIDMap[state.variantProduct[tempID]]; dropped {
			variantIDMap[tempID] = variant.ID
		}
	}

	// Step 7: rewire inventory to real variant ids, drop orphans, batch
	// upsert keyed on (variantId, connectionId, locationId).
	p.report(ctx, taskID, 75, "persisting inventory levels")
	levels := make([]*entity.InventoryLevel, 0)
	now := time.Now()
	for tempID, remoteVariants := range state.inventoryByVariant {
		realVariantID, ok := variantIDMap[tempID]
		if !ok {
			continue
		}
		for _, rv := range remoteVariants {
			for locationID, quantity := range rv.InventoryByLocation {
				loc := locationID
				level := entity.NewInventoryLevel(realVariantID, conn.ID, &loc, quantity)
				level.LastPlatformUpdateAt = &now
				levels = append(levels, level)
			}
		}
	}
	if len(levels) > 0 {
		if err := p.Inventory.BatchUpsert(ctx, levels); err != nil {
			return err
		}
	}

	// Step 8: analyze and persist scan summary.
	p.report(ctx, taskID, 85, "analyzing scan results")
	conn.PlatformSpecificData["scan_summary"] = map[string]interface{}{
		"count_products":  len(productIDMap),
		"count_variants":  len(variantIDMap),
		"count_locations": len(locations),
	}

	// Step 9: generate suggestions over the platform's variant list only;
	// when the platform returned no variants, no suggestions are produced.
	candidates, err := p.Variants.ListByProductIDs(ctx, userID, uniqueProductIDs(productIDMap))
	if err != nil {
		return err
	}
	remoteForSuggestions := state.remoteVariants
	suggestions := mapping.Suggest(remoteForSuggestions, candidates)
	conn.PlatformSpecificData["mapping_suggestions"] = suggestions

	// Step 10: transition to needs_review.
	if err := conn.TransitionTo(entity.ConnectionStatusNeedsReview); err != nil {
		return appErrors.NewConfigError(err.Error(), err)
	}
	conn.MarkSyncSuccess()
	delete(conn.PlatformSpecificData, "_decrypted_access_token")
	if err := p.Connections.UpdateSyncTimestamps(ctx, conn.ID, conn); err != nil {
		return err
	}
	if err := p.Connections.UpdateStatus(ctx, conn.ID, conn.Status, nil); err != nil {
		return err
	}
	p.report(ctx, taskID, 100, "scan complete")
	return nil
}

func (p *Processor) mapBatch(userID uuid.UUID, batch []platform.RemoteProduct, state *scanState) {
	for _, remote := range batch {
		product, variants := mapping.ToCanonical(userID, remote)
		productTemp := entity.TempProductID(remote.PlatformProductID)
		state.products[productTemp] = product

		for i, variant := range variants {
			rv := remote.Variants[i]
			variantTemp := entity.TempVariantID(rv.PlatformVariantID)
			state.variants[variantTemp] = variant
			state.variantProduct[variantTemp] = productTemp
			state.inventoryByVariant[variantTemp] = append(state.inventoryByVariant[variantTemp], rv)
			state.remoteVariants = append(state.remoteVariants, rv)
		}
	}
}

// resolveVariantImages sets each scanned variant's ImageID to the position
// of its platform-reported image url within the parent product's ImageURLs,
// appending the url first if the product doesn't already carry it. A
// variant whose platform data names no image is left with a nil ImageID.
// Any product whose ImageURLs grew this way is persisted immediately, since
// step 4 already wrote the product row without these late-discovered urls.
func (p *Processor) resolveVariantImages(ctx context.Context, userID uuid.UUID, state *scanState, productIDMap map[entity.TempID]uuid.UUID) {
	touched := make(map[entity.TempID]bool)

	for variantTemp, variant := range state.variants {
		imageURL := ""
		for _, rv := range state.inventoryByVariant[variantTemp] {
			if rv.ImageURL != "" {
				imageURL = rv.ImageURL
				break
			}
		}
		if imageURL == "" {
			continue
		}

		productTemp := state.variantProduct[variantTemp]
		product, ok := state.products[productTemp]
		if !ok {
			continue
		}

		idx := indexOfImageURL(product.ImageURLs, imageURL)
		if idx == -1 {
			product.ImageURLs = append(product.ImageURLs, imageURL)
			idx = len(product.ImageURLs) - 1
			touched[productTemp] = true
		}
		variant.ImageID = &idx
	}

	for productTemp := range touched {
		realProductID, ok := productIDMap[productTemp]
		if !ok {
			continue
		}
		urls := append([]string(nil), state.products[productTemp].ImageURLs...)
		if err := p.Products.Update(ctx, userID, realProductID, repository.ProductPatch{ImageURLs: &urls}); err != nil {
			logger.Logger.Warn().Err(err).Str("product_id", realProductID.String()).Msg("failed to persist product images resolved during scan")
		}
	}
}

func indexOfImageURL(urls []string, url string) int {
	for i, u := range urls {
		if u == url {
			return i
		}
	}
	return -1
}

func uniqueProductIDs(m map[entity.TempID]uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(m))
	out := make([]uuid.UUID, 0, len(m))
	for _, id := range m {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func (p *Processor) report(ctx context.Context, taskID string, percent int, description string) {
	if taskID == "" {
		return
	}
	if err := p.Progress.Report(ctx, taskID, percent, description); err != nil {
		logger.Logger.Warn().Err(err).Msg("failed to report scan progress")
	}
}

func (p *Processor) decryptCredentials(ctx context.Context, conn *entity.PlatformConnection) error {
	if len(conn.EncryptedCredentials) == 0 {
		return appErrors.NewPlatformAuthError(string(conn.Platform), "connection has no stored credentials", nil)
	}
	plaintext, err := p.Vault.Decrypt(ctx, conn.EncryptedCredentials)
	if err != nil {
		return appErrors.NewPlatformAuthError(string(conn.Platform), "failed to decrypt credentials", err)
	}
	if conn.PlatformSpecificData == nil {
		conn.PlatformSpecificData = map[string]interface{}{}
	}
	conn.PlatformSpecificData["_decrypted_access_token"] = string(plaintext)
	return nil
}
