// Package worker wires the asynq.ServeMux dispatching each queue task type
// (C4) to the scan (C5/C6), push (C8), and webhook (C7) processors. It is
// the worker-side counterpart of internal/interfaces/http: the HTTP process
// enqueues, this package's handlers execute.
package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	appErrors "github.com/kirimku/catalog-sync-engine/internal/domain/errors"
	"github.com/kirimku/catalog-sync-engine/internal/domain/repository"
	"github.com/kirimku/catalog-sync-engine/internal/infrastructure/logger"
	"github.com/kirimku/catalog-sync-engine/internal/platform"
	"github.com/kirimku/catalog-sync-engine/internal/push"
	"github.com/kirimku/catalog-sync-engine/internal/queue"
	"github.com/kirimku/catalog-sync-engine/internal/scan"
	"github.com/kirimku/catalog-sync-engine/internal/webhook"
)

// Handlers bundles every collaborator a task handler needs to resolve a
// connection's owning user before delegating to the matching processor.
type Handlers struct {
	Connections      repository.PlatformConnectionRepository
	Scanner          *scan.Processor
	Push             *push.Coordinator
	WebhookProcessor *webhook.Processor
	Registry         *platform.Registry
	Progress         *queue.ProgressReporter
}

// NewMux builds the asynq.ServeMux used by cmd/worker, one handler per task
// type in the internal/queue catalog.
func NewMux(h *Handlers) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TypeInitialScan, h.handleInitialScan)
	mux.HandleFunc(queue.TypeReconciliation, h.handleReconciliation)
	mux.HandleFunc(queue.TypePushProductCreate, h.handlePushProductCreate)
	mux.HandleFunc(queue.TypePushProductUpdate, h.handlePushProductUpdate)
	mux.HandleFunc(queue.TypePushProductDelete, h.handlePushProductDelete)
	mux.HandleFunc(queue.TypePushInventory, h.handlePushInventory)
	mux.HandleFunc(queue.TypeWebhookProcess, h.handleWebhookProcess)
	return mux
}

// classify turns a processor error into either nil (non-retryable, already
// logged and recorded on the affected row) or the error itself so asynq
// retries it, per §7's propagation policy.
func classify(ctx context.Context, taskType string, err error) error {
	if err == nil {
		return nil
	}
	appErr, ok := err.(*appErrors.AppError)
	if !ok {
		logger.ErrorLogger().Err(err).Str("task_type", taskType).Msg("unclassified task error, retrying")
		return err
	}
	if appErr.IsRetryable() {
		logger.ErrorLogger().Err(err).Str("task_type", taskType).Str("error_type", string(appErr.Type)).Msg("retryable task error")
		return err
	}
	logger.ErrorLogger().Err(err).Str("task_type", taskType).Str("error_type", string(appErr.Type)).Msg("non-retryable task error, not retrying")
	return nil
}

func (h *Handlers) handleInitialScan(ctx context.Context, t *asynq.Task) error {
	var p queue.InitialScanPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("worker: invalid initial scan payload: %w", err)
	}
	conn, err := h.Connections.GetByIDUnscoped(ctx, p.ConnectionID)
	if err != nil {
		return classify(ctx, queue.TypeInitialScan, err)
	}
	taskID, _ := asynq.GetTaskID(ctx)
	err = h.Scanner.Run(ctx, conn.UserID, p.ConnectionID, taskID)
	return classify(ctx, queue.TypeInitialScan, err)
}

func (h *Handlers) handleReconciliation(ctx context.Context, t *asynq.Task) error {
	var p queue.ReconciliationPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("worker: invalid reconciliation payload: %w", err)
	}
	conn, err := h.Connections.GetByIDUnscoped(ctx, p.ConnectionID)
	if err != nil {
		return classify(ctx, queue.TypeReconciliation, err)
	}
	err = h.Scanner.Reconcile(ctx, conn.UserID, p.ConnectionID)
	return classify(ctx, queue.TypeReconciliation, err)
}

func (h *Handlers) handlePushProductCreate(ctx context.Context, t *asynq.Task) error {
	var p queue.PushProductPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("worker: invalid push product payload: %w", err)
	}
	conn, err := h.Connections.GetByIDUnscoped(ctx, p.ConnectionID)
	if err != nil {
		return classify(ctx, queue.TypePushProductCreate, err)
	}
	err = h.Push.ExecuteProductCreate(ctx, conn.UserID, p.ConnectionID, p.ProductID)
	return classify(ctx, queue.TypePushProductCreate, err)
}

func (h *Handlers) handlePushProductUpdate(ctx context.Context, t *asynq.Task) error {
	var p queue.PushProductPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("worker: invalid push product payload: %w", err)
	}
	conn, err := h.Connections.GetByIDUnscoped(ctx, p.ConnectionID)
	if err != nil {
		return classify(ctx, queue.TypePushProductUpdate, err)
	}
	err = h.Push.ExecuteProductUpdate(ctx, conn.UserID, p.ConnectionID, p.ProductID)
	return classify(ctx, queue.TypePushProductUpdate, err)
}

func (h *Handlers) handlePushProductDelete(ctx context.Context, t *asynq.Task) error {
	var p queue.PushProductPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("worker: invalid push product payload: %w", err)
	}
	conn, err := h.Connections.GetByIDUnscoped(ctx, p.ConnectionID)
	if err != nil {
		return classify(ctx, queue.TypePushProductDelete, err)
	}
	err = h.Push.ExecuteProductDelete(ctx, conn.UserID, p.ConnectionID, p.ProductID)
	return classify(ctx, queue.TypePushProductDelete, err)
}

func (h *Handlers) handlePushInventory(ctx context.Context, t *asynq.Task) error {
	var p queue.PushInventoryPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("worker: invalid push inventory payload: %w", err)
	}
	conn, err := h.Connections.GetByIDUnscoped(ctx, p.ConnectionID)
	if err != nil {
		return classify(ctx, queue.TypePushInventory, err)
	}
	err = h.Push.ExecuteInventoryUpdate(ctx, conn.UserID, p.ConnectionID, p.ProductVariantID)
	return classify(ctx, queue.TypePushInventory, err)
}

func (h *Handlers) handleWebhookProcess(ctx context.Context, t *asynq.Task) error {
	var p queue.WebhookProcessPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("worker: invalid webhook process payload: %w", err)
	}
	conn, err := h.Connections.GetByIDUnscoped(ctx, p.ConnectionID)
	if err != nil {
		return classify(ctx, queue.TypeWebhookProcess, err)
	}
	adapter, ok := h.Registry.Get(conn.Platform)
	if !ok {
		logger.ErrorLogger().Str("platform", string(conn.Platform)).Msg("webhook process: no adapter registered")
		return nil
	}
	event, err := adapter.ParseWebhook(p.Topic, p.Body)
	if err != nil {
		return classify(ctx, queue.TypeWebhookProcess, err)
	}
	if event.Quantity == nil {
		// Product-topic webhooks (create/update/delete) are reconciled by
		// the next scheduled sweep rather than applied inline; only
		// inventory-quantity topics are processed synchronously here.
		return nil
	}
	err = h.WebhookProcessor.ProcessInventoryUpdate(ctx, p.ConnectionID, event.PlatformVariantID, *event.Quantity, event.PlatformLocationID, event.OccurredAt)
	return classify(ctx, queue.TypeWebhookProcess, err)
}
