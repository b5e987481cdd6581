package scan

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kirimku/catalog-sync-engine/internal/domain/entity"
	appErrors "github.com/kirimku/catalog-sync-engine/internal/domain/errors"
	"github.com/kirimku/catalog-sync-engine/internal/mapping"
	"github.com/kirimku/catalog-sync-engine/internal/platform"
)

// Reconcile re-runs the fetch, map, and suggest steps of the initial scan
// pipeline (steps 2-3 and 9) against an already-onboarded connection. Unlike
// Run, it never re-persists products or variants: the canonical store stays
// the source of truth once a user has confirmed mappings, and drift
// detection is left to the regenerated suggestions. It overwrites
// mapping_suggestions, stamps last_reconciliation_at, and returns the
// connection to needs_review.
func (p *Processor) Reconcile(ctx context.Context, userID, connectionID uuid.UUID) error {
	conn, err := p.Connections.GetByID(ctx, userID, connectionID)
	if err != nil {
		return err
	}
	if !conn.Owns(userID) {
		return appErrors.NewAuthorizationError("connection does not belong to caller")
	}
	if err := conn.TransitionTo(entity.ConnectionStatusReconciling); err != nil {
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
		return appErrors.NewConfigError("no adapter registered for platform "+string(conn.Platform), nil)
	}

	var remoteVariants []platform.RemoteVariant
	err = adapter.FetchAll(ctx, conn, func(batch []platform.RemoteProduct) error {
		for _, rp := range batch {
			remoteVariants = append(remoteVariants, rp.Variants...)
		}
		return nil
	})
	if err != nil {
		conn.MarkError(err.Error())
		_ = p.Connections.UpdateStatus(ctx, conn.ID, conn.Status, conn.LastErrorMessage)
		return err
	}

	candidates, err := p.reconciliationCandidates(ctx, userID, conn.ID)
	if err != nil {
		return err
	}

	suggestions := mapping.Suggest(remoteVariants, candidates)
	if conn.PlatformSpecificData == nil {
		conn.PlatformSpecificData = map[string]interface{}{}
	}
	conn.PlatformSpecificData["mapping_suggestions"] = suggestions
	conn.PlatformSpecificData["last_reconciliation_at"] = time.Now()

	if err := conn.TransitionTo(entity.ConnectionStatusNeedsReview); err != nil {
		return appErrors.NewConfigError(err.Error(), err)
	}
	conn.MarkSyncSuccess()
	delete(conn.PlatformSpecificData, "_decrypted_access_token")
	if err := p.Connections.UpdateSyncTimestamps(ctx, conn.ID, conn); err != nil {
		return err
	}
	return p.Connections.UpdateStatus(ctx, conn.ID, conn.Status, nil)
}

// reconciliationCandidates gathers the canonical variants that have an
// inventory level row on connectionID, the candidate pool suggestions are
// scored against. Falls back to an empty pool (no suggestions) rather than scanning
// a user's entire catalog, since reconciliation only concerns itself with
// variants this connection already knows about.
func (p *Processor) reconciliationCandidates(ctx context.Context, userID, connectionID uuid.UUID) ([]*entity.ProductVariant, error) {
	levels, err := p.Inventory.ListByConnection(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	if len(levels) == 0 {
		return nil, nil
	}

	seen := make(map[uuid.UUID]bool, len(levels))
	ids := make([]uuid.UUID, 0, len(levels))
	for _, level := range levels {
		if !seen[level.ProductVariantID] {
			seen[level.ProductVariantID] = true
			ids = append(ids, level.ProductVariantID)
		}
	}
	return p.Variants.ListByIDs(ctx, userID, ids)
}
