// Package vault implements repository.CredentialVault with AES-256-GCM
// envelope encryption: a master key (derived from the configured passphrase
// via Argon2id, the same KDF this stack uses for password hashing)
// seals each connection's platform credentials before they ever reach the
// database.
package vault

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"

	"github.com/kirimku/catalog-sync-engine/internal/domain/repository"
)

// The argon2 parameters are tuned for a key derived once per process start,
// not per request.
const (
	argon2Time    = 1
	argon2Memory  = 64 * 1024
	argon2Threads = 4
	keyLength     = 32 // AES-256
)

// AESGCMVault seals credentials with a key derived from a passphrase and a
// fixed, configured salt. The salt is deployment-wide, not per-secret: what
// must stay secret is the passphrase, held outside the repository in the
// process's configuration.
type AESGCMVault struct {
	aead   cipher.AEAD
	update func(ctx context.Context, connectionID uuid.UUID, ciphertext []byte) error
}

// New derives a key from passphrase and salt and builds the AEAD cipher. The
// updater callback is how UpdateCredentials persists re-encrypted
// credentials without the vault importing the repository implementation
// directly.
func New(passphrase, salt string, updater func(ctx context.Context, connectionID uuid.UUID, ciphertext []byte) error) (*AESGCMVault, error) {
	key := argon2.IDKey([]byte(passphrase), []byte(salt), argon2Time, argon2Memory, argon2Threads, keyLength)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("vault: failed to build cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("vault: failed to build gcm: %w", err)
	}

	return &AESGCMVault{aead: aead, update: updater}, nil
}

var _ repository.CredentialVault = (*AESGCMVault)(nil)

// Encrypt seals plaintext behind a fresh random nonce, prepended to the
// ciphertext so Decrypt needs no side-channel to recover it.
func (v *AESGCMVault) Encrypt(ctx context.Context, plaintext []byte) ([]byte, error) {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("vault: failed to generate nonce: %w", err)
	}
	return v.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt recovers plaintext sealed by Encrypt.
func (v *AESGCMVault) Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error) {
	nonceSize := v.aead.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("vault: ciphertext too short")
	}
	nonce, sealed := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := v.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("vault: failed to decrypt: %w", err)
	}
	return plaintext, nil
}

// UpdateCredentials re-encrypts plaintext and persists it via the updater
// callback supplied at construction.
func (v *AESGCMVault) UpdateCredentials(ctx context.Context, connectionID uuid.UUID, plaintext []byte) error {
	ciphertext, err := v.Encrypt(ctx, plaintext)
	if err != nil {
		return err
	}
	return v.update(ctx, connectionID, ciphertext)
}
