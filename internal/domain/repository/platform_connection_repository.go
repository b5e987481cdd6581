package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/kirimku/catalog-sync-engine/internal/domain/entity"
)

// PlatformConnectionRepository is the canonical store's contract for
// PlatformConnection rows.
type PlatformConnectionRepository interface {
	Create(ctx context.Context, conn *entity.PlatformConnection) error

	GetByID(ctx context.Context, userID, id uuid.UUID) (*entity.PlatformConnection, error)

	// GetByIDUnscoped fetches a connection without a user-ownership check,
	// used only by worker-side job handlers that were dispatched with a
	// connection id already resolved at enqueue time.
	GetByIDUnscoped(ctx context.Context, id uuid.UUID) (*entity.PlatformConnection, error)

	ListByUser(ctx context.Context, userID uuid.UUID) ([]*entity.PlatformConnection, error)

	// ListByPlatform returns every connection of one platform type across
	// all users, unscoped, used by the webhook ConnectionLocator to find
	// the candidate(s) a platform-specific identifier in an inbound
	// webhook could belong to.
	ListByPlatform(ctx context.Context, platform entity.PlatformType) ([]*entity.PlatformConnection, error)

	// ListEnabledForReconciliation returns every enabled connection whose
	// status permits a reconciliation sweep (syncing or reconciling), used
	// by the scheduled cron job.
	ListEnabledForReconciliation(ctx context.Context) ([]*entity.PlatformConnection, error)

	// UpdateStatus persists a status transition already validated by
	// entity.PlatformConnection.CanTransitionTo.
	UpdateStatus(ctx context.Context, id uuid.UUID, status entity.ConnectionStatus, errorMessage *string) error

	// UpdateSyncTimestamps persists LastSyncAttemptAt/LastSyncSuccessAt.
	UpdateSyncTimestamps(ctx context.Context, id uuid.UUID, conn *entity.PlatformConnection) error

	// UpdateEncryptedCredentials persists a vault-sealed credential blob,
	// used as the CredentialVault.UpdateCredentials persistence callback.
	UpdateEncryptedCredentials(ctx context.Context, id uuid.UUID, ciphertext []byte) error

	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// CredentialVault seals and unseals platform credentials. Implementations
// never return plaintext credentials except through Decrypt, and callers
// must not persist the result.
type CredentialVault interface {
	// Encrypt seals plaintext credentials (an access token, shared secret,
	// or OAuth refresh token) for storage on PlatformConnection.EncryptedCredentials.
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)

	// Decrypt unseals credentials sealed by Encrypt.
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)

	// UpdateCredentials re-encrypts and persists new credentials for an
	// existing connection, e.g. after an OAuth token refresh.
	UpdateCredentials(ctx context.Context, connectionID uuid.UUID, plaintext []byte) error
}
