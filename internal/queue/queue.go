// Package queue defines the asynq task catalog for the sync engine: queue
// names, task type strings, and the typed payloads each task carries. It is
// grounded on the task-creator-function pattern from the inventory sync
// service in the retrieved examples (one typed payload struct and one
// `new<X>Task` constructor per job kind).
package queue

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Queue names, each with its own worker concurrency cap set in
// internal/infrastructure/queue.
const (
	QueueInitialScan      = "initial-scan"
	QueueReconciliation   = "reconciliation"
	QueuePushOperations   = "push-operations"
	QueueWebhookProcessing = "webhook-processing"
)

// Task type strings registered on the asynq.ServeMux in cmd/worker.
const (
	TypeInitialScan       = "scan:initial"
	TypeReconciliation    = "scan:reconciliation"
	TypePushProductCreate = "push:product_create"
	TypePushProductUpdate = "push:product_update"
	TypePushProductDelete = "push:product_delete"
	TypePushInventory     = "push:inventory_update"
	TypeWebhookProcess    = "webhook:process"
)

// InitialScanPayload starts a full-catalog scan of one connection.
type InitialScanPayload struct {
	ConnectionID uuid.UUID `json:"connection_id"`
}

// ReconciliationPayload runs a reconciliation diff pass over one connection,
// either triggered by the cron schedule or on demand.
type ReconciliationPayload struct {
	ConnectionID uuid.UUID `json:"connection_id"`
}

// PushProductPayload pushes one canonical product (with its variants) to one
// connection's platform.
type PushProductPayload struct {
	ConnectionID uuid.UUID `json:"connection_id"`
	ProductID    uuid.UUID `json:"product_id"`
}

// PushInventoryPayload pushes one variant's current quantity to one
// connection's platform.
type PushInventoryPayload struct {
	ConnectionID     uuid.UUID `json:"connection_id"`
	ProductVariantID uuid.UUID `json:"product_variant_id"`
}

// WebhookProcessPayload hands a verified, already-persisted raw webhook
// event to a worker for processing, keeping the HTTP handler itself fast.
type WebhookProcessPayload struct {
	ConnectionID uuid.UUID `json:"connection_id"`
	Topic        string    `json:"topic"`
	Body         []byte    `json:"body"`
}

// Enqueuer wraps an asynq.Client with one typed method per task kind so
// callers never hand-build asynq.NewTask calls at the use site.
type Enqueuer struct {
	client *asynq.Client
}

// NewEnqueuer wraps client.
func NewEnqueuer(client *asynq.Client) *Enqueuer {
	return &Enqueuer{client: client}
}

func (e *Enqueuer) enqueue(taskType string, payload interface{}, queue string, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	task := asynq.NewTask(taskType, data)
	allOpts := append([]asynq.Option{asynq.Queue(queue)}, opts...)
	return e.client.Enqueue(task, allOpts...)
}

// EnqueueInitialScan schedules a full-catalog scan for connectionID.
func (e *Enqueuer) EnqueueInitialScan(connectionID uuid.UUID) (*asynq.TaskInfo, error) {
	return e.enqueue(TypeInitialScan, InitialScanPayload{ConnectionID: connectionID}, QueueInitialScan, asynq.MaxRetry(3))
}

// EnqueueReconciliation schedules a reconciliation pass for connectionID.
func (e *Enqueuer) EnqueueReconciliation(connectionID uuid.UUID) (*asynq.TaskInfo, error) {
	return e.enqueue(TypeReconciliation, ReconciliationPayload{ConnectionID: connectionID}, QueueReconciliation, asynq.MaxRetry(3))
}

// EnqueuePushProductCreate schedules a product create push.
func (e *Enqueuer) EnqueuePushProductCreate(connectionID, productID uuid.UUID) (*asynq.TaskInfo, error) {
	return e.enqueue(TypePushProductCreate, PushProductPayload{ConnectionID: connectionID, ProductID: productID}, QueuePushOperations, asynq.MaxRetry(5))
}

// EnqueuePushProductUpdate schedules a product update push.
func (e *Enqueuer) EnqueuePushProductUpdate(connectionID, productID uuid.UUID) (*asynq.TaskInfo, error) {
	return e.enqueue(TypePushProductUpdate, PushProductPayload{ConnectionID: connectionID, ProductID: productID}, QueuePushOperations, asynq.MaxRetry(5))
}

// EnqueuePushProductDelete schedules a product delete push.
func (e *Enqueuer) EnqueuePushProductDelete(connectionID, productID uuid.UUID) (*asynq.TaskInfo, error) {
	return e.enqueue(TypePushProductDelete, PushProductPayload{ConnectionID: connectionID, ProductID: productID}, QueuePushOperations, asynq.MaxRetry(5))
}

// EnqueuePushInventory schedules an inventory push for one variant.
func (e *Enqueuer) EnqueuePushInventory(connectionID, variantID uuid.UUID) (*asynq.TaskInfo, error) {
	return e.enqueue(TypePushInventory, PushInventoryPayload{ConnectionID: connectionID, ProductVariantID: variantID}, QueuePushOperations, asynq.MaxRetry(5))
}

// EnqueueWebhookProcess hands off a verified webhook body for async
// processing.
func (e *Enqueuer) EnqueueWebhookProcess(connectionID uuid.UUID, topic string, body []byte) (*asynq.TaskInfo, error) {
	return e.enqueue(TypeWebhookProcess, WebhookProcessPayload{ConnectionID: connectionID, Topic: topic, Body: body}, QueueWebhookProcessing, asynq.MaxRetry(3))
}
