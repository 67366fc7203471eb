package crypto

import (
	"crypto/ed25519"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return pub, priv
}

func TestNewPublicKey(t *testing.T) {
	pub, _ := generateKey(t)

	pk, err := NewPublicKey(pub)
	require.NoError(t, err)
	assert.Equal(t, AlgorithmEd25519, pk.Algorithm)
	assert.Equal(t, []byte(pub), pk.KeyBytes)
}

func TestNewPublicKey_InvalidSize(t *testing.T) {
	_, err := NewPublicKey([]byte{1, 2, 3})
	assert.Error(t, err)

	_, err = NewPublicKey(nil)
	assert.Error(t, err)
}

func TestParsePublicKeyHex(t *testing.T) {
	pub, _ := generateKey(t)
	encoded := hex.EncodeToString(pub)

	pk, err := ParsePublicKeyHex(encoded)
	require.NoError(t, err)
	assert.Equal(t, encoded, pk.String())
}

func TestParsePublicKeyHex_NotHex(t *testing.T) {
	_, err := ParsePublicKeyHex("zz-not-hex")
	assert.Error(t, err)
}

func TestVerify(t *testing.T) {
	pub, priv := generateKey(t)
	pk, err := NewPublicKey(pub)
	require.NoError(t, err)

	message := []byte("package content digest")
	signature := ed25519.Sign(priv, message)

	assert.True(t, pk.Verify(message, signature))
	assert.False(t, pk.Verify([]byte("tampered"), signature))
	assert.False(t, pk.Verify(message, signature[:32]), "short signatures are rejected")
}

func TestVerifySignature(t *testing.T) {
	pub, priv := generateKey(t)
	pk, err := NewPublicKey(pub)
	require.NoError(t, err)

	message := []byte("package content digest")
	signature := ed25519.Sign(priv, message)

	assert.NoError(t, VerifySignature(pk, message, signature))
	assert.ErrorIs(t, VerifySignature(pk, message, signature[:32]), ErrInvalidSignatureLength)
	assert.ErrorIs(t, VerifySignature(pk, []byte("tampered"), signature), ErrInvalidSignature)
}

func TestFingerprint(t *testing.T) {
	pub, _ := generateKey(t)
	pk, err := NewPublicKey(pub)
	require.NoError(t, err)

	fp := pk.Fingerprint()
	assert.Len(t, fp, 16)
	assert.Equal(t, fp, pk.Fingerprint(), "fingerprint is deterministic")
}
