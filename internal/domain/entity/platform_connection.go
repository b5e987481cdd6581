package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PlatformType identifies which e-commerce platform a connection talks to.
type PlatformType string

const (
	PlatformTypeShopify PlatformType = "shopify"
	PlatformTypeSquare  PlatformType = "square"
	PlatformTypeClover  PlatformType = "clover"
)

// Valid reports whether t is a known platform type.
func (t PlatformType) Valid() bool {
	switch t {
	case PlatformTypeShopify, PlatformTypeSquare, PlatformTypeClover:
		return true
	default:
		return false
	}
}

// ConnectionStatus is the connection's position in its lifecycle.
type ConnectionStatus string

const (
	ConnectionStatusDisconnected ConnectionStatus = "disconnected"
	ConnectionStatusConnecting   ConnectionStatus = "connecting"
	ConnectionStatusScanning     ConnectionStatus = "scanning"
	ConnectionStatusNeedsReview  ConnectionStatus = "needs_review"
	ConnectionStatusSyncing      ConnectionStatus = "syncing"
	ConnectionStatusReconciling  ConnectionStatus = "reconciling"
	ConnectionStatusError        ConnectionStatus = "error"
)

// Valid reports whether s is a known connection status.
func (s ConnectionStatus) Valid() bool {
	switch s {
	case ConnectionStatusDisconnected, ConnectionStatusConnecting, ConnectionStatusScanning,
		ConnectionStatusNeedsReview, ConnectionStatusSyncing, ConnectionStatusReconciling,
		ConnectionStatusError:
		return true
	default:
		return false
	}
}

// connectionTransitions enumerates the legal edges of the connection state
// machine. Connecting, scanning, syncing and reconciling can move to error;
// error is left either by disconnecting or by reconnecting directly.
var connectionTransitions = map[ConnectionStatus][]ConnectionStatus{
	ConnectionStatusDisconnected: {ConnectionStatusConnecting},
	ConnectionStatusConnecting:   {ConnectionStatusScanning, ConnectionStatusError, ConnectionStatusDisconnected},
	ConnectionStatusScanning:     {ConnectionStatusNeedsReview, ConnectionStatusSyncing, ConnectionStatusError, ConnectionStatusDisconnected},
	ConnectionStatusNeedsReview:  {ConnectionStatusSyncing, ConnectionStatusDisconnected},
	ConnectionStatusSyncing:      {ConnectionStatusReconciling, ConnectionStatusError, ConnectionStatusDisconnected},
	ConnectionStatusReconciling:  {ConnectionStatusNeedsReview, ConnectionStatusSyncing, ConnectionStatusError, ConnectionStatusDisconnected},
	ConnectionStatusError:        {ConnectionStatusDisconnected, ConnectionStatusConnecting},
}

// PlatformConnection is one tenant's link to one platform account. Credential
// material is never stored on this struct directly: EncryptedCredentials
// holds the vault-sealed ciphertext and is decrypted on demand through
// repository.CredentialVault.
type PlatformConnection struct {
	ID          uuid.UUID        `json:"id" db:"id"`
	UserID      uuid.UUID        `json:"user_id" db:"user_id"`
	Platform    PlatformType     `json:"platform" db:"platform"`
	DisplayName string           `json:"display_name" db:"display_name"`
	IsEnabled   bool             `json:"is_enabled" db:"is_enabled"`
	Status      ConnectionStatus `json:"status" db:"status"`

	// PlatformSpecificData holds opaque, platform-shaped configuration (shop
	// domain, location filters, API version) that has no canonical meaning
	// outside that platform's adapter.
	PlatformSpecificData map[string]interface{} `json:"platform_specific_data" db:"platform_specific_data"`

	EncryptedCredentials []byte `json:"-" db:"encrypted_credentials"`

	LastSyncAttemptAt *time.Time `json:"last_sync_attempt_at" db:"last_sync_attempt_at"`
	LastSyncSuccessAt *time.Time `json:"last_sync_success_at" db:"last_sync_success_at"`
	LastErrorMessage  *string    `json:"last_error_message" db:"last_error_message"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NewPlatformConnection creates a disconnected connection awaiting
// credentials.
func NewPlatformConnection(userID uuid.UUID, platform PlatformType, displayName string) *PlatformConnection {
	now := time.Now()
	return &PlatformConnection{
		ID:                   uuid.New(),
		UserID:               userID,
		Platform:             platform,
		DisplayName:          displayName,
		Status:               ConnectionStatusDisconnected,
		PlatformSpecificData: map[string]interface{}{},
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

// Validate checks the invariants a PlatformConnection must satisfy.
func (pc *PlatformConnection) Validate() error {
	if pc.UserID == uuid.Nil {
		return fmt.Errorf("platform connection validation: user id is required")
	}
	if !pc.Platform.Valid() {
		return fmt.Errorf("platform connection validation: unknown platform %q", pc.Platform)
	}
	if pc.DisplayName == "" {
		return fmt.Errorf("platform connection validation: display name is required")
	}
	return nil
}

// Owns reports whether userID is the connection's owner.
func (pc *PlatformConnection) Owns(userID uuid.UUID) bool {
	return pc.UserID == userID
}

// CanTransitionTo reports whether the connection may move from its current
// status to newStatus.
func (pc *PlatformConnection) CanTransitionTo(newStatus ConnectionStatus) bool {
	if !newStatus.Valid() {
		return false
	}
	for _, allowed := range connectionTransitions[pc.Status] {
		if allowed == newStatus {
			return true
		}
	}
	return false
}

// TransitionTo moves the connection to newStatus, or returns an error if the
// transition is not legal from the current status.
func (pc *PlatformConnection) TransitionTo(newStatus ConnectionStatus) error {
	if !pc.CanTransitionTo(newStatus) {
		return fmt.Errorf("platform connection: cannot transition from %s to %s", pc.Status, newStatus)
	}
	pc.Status = newStatus
	pc.UpdatedAt = time.Now()
	return nil
}

// MarkSyncAttempt records that a sync pass (scan, reconciliation, or push)
// started just now.
func (pc *PlatformConnection) MarkSyncAttempt() {
	now := time.Now()
	pc.LastSyncAttemptAt = &now
	pc.UpdatedAt = now
}

// MarkSyncSuccess records a successful sync pass and clears any prior error.
func (pc *PlatformConnection) MarkSyncSuccess() {
	now := time.Now()
	pc.LastSyncSuccessAt = &now
	pc.LastErrorMessage = nil
	pc.UpdatedAt = now
}

// MarkError transitions the connection to error and records why.
func (pc *PlatformConnection) MarkError(message string) {
	pc.Status = ConnectionStatusError
	pc.LastErrorMessage = &message
	pc.UpdatedAt = time.Now()
}

// IsBusy reports whether the connection is in a state where enqueueing a new
// push operation would race with an in-flight scan or reconciliation pass.
func (pc *PlatformConnection) IsBusy() bool {
	switch pc.Status {
	case ConnectionStatusScanning, ConnectionStatusReconciling, ConnectionStatusConnecting:
		return true
	default:
		return false
	}
}

func (pc *PlatformConnection) String() string {
	return fmt.Sprintf("PlatformConnection{ID: %s, Platform: %s, Status: %s}", pc.ID, pc.Platform, pc.Status)
}
