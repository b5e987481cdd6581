package vault

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAESGCMVault_EncryptDecryptRoundTrip(t *testing.T) {
	v, err := New("correct-horse-battery-staple", "deployment-salt", nil)
	require.NoError(t, err)

	plaintext := []byte("shpat_super_secret_access_token")
	ciphertext, err := v.Encrypt(context.Background(), plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, ciphertext)

	decrypted, err := v.Decrypt(context.Background(), ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestAESGCMVault_EncryptProducesDistinctCiphertexts(t *testing.T) {
	v, err := New("correct-horse-battery-staple", "deployment-salt", nil)
	require.NoError(t, err)

	plaintext := []byte("same plaintext twice")
	first, err := v.Encrypt(context.Background(), plaintext)
	require.NoError(t, err)
	second, err := v.Encrypt(context.Background(), plaintext)
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "fresh random nonce should make repeat encryptions differ")
}

func TestAESGCMVault_DecryptRejectsTamperedCiphertext(t *testing.T) {
	v, err := New("correct-horse-battery-staple", "deployment-salt", nil)
	require.NoError(t, err)

	ciphertext, err := v.Encrypt(context.Background(), []byte("sensitive"))
	require.NoError(t, err)
	tampered := append([]byte(nil), ciphertext...)
	tampered[len(tampered)-1] ^= 0xFF

	_, err = v.Decrypt(context.Background(), tampered)
	assert.Error(t, err)
}

func TestAESGCMVault_DecryptRejectsShortCiphertext(t *testing.T) {
	v, err := New("correct-horse-battery-staple", "deployment-salt", nil)
	require.NoError(t, err)

	_, err = v.Decrypt(context.Background(), []byte("short"))
	assert.Error(t, err)
}

func TestAESGCMVault_UpdateCredentialsInvokesUpdater(t *testing.T) {
	var gotConnectionID uuid.UUID
	var gotCiphertext []byte
	updater := func(ctx context.Context, connectionID uuid.UUID, ciphertext []byte) error {
		gotConnectionID = connectionID
		gotCiphertext = ciphertext
		return nil
	}

	v, err := New("correct-horse-battery-staple", "deployment-salt", updater)
	require.NoError(t, err)

	connectionID := uuid.New()
	require.NoError(t, v.UpdateCredentials(context.Background(), connectionID, []byte("new-token")))

	assert.Equal(t, connectionID, gotConnectionID)
	decrypted, err := v.Decrypt(context.Background(), gotCiphertext)
	require.NoError(t, err)
	assert.Equal(t, []byte("new-token"), decrypted)
}
