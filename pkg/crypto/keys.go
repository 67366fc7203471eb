// Package crypto provides the Ed25519 primitives used to verify
// extension package signatures.
package crypto

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

const (
	// AlgorithmEd25519 identifies the only signature algorithm in use.
	AlgorithmEd25519 = "ed25519"
)

var (
	// ErrInvalidSignatureLength is returned when a signature is not the
	// 64 bytes Ed25519 requires.
	ErrInvalidSignatureLength = errors.New("invalid signature length: Ed25519 signatures must be exactly 64 bytes")

	// ErrInvalidSignature is returned when cryptographic verification
	// fails.
	ErrInvalidSignature = errors.New("invalid signature: cryptographic verification failed")
)

// PublicKey wraps a raw Ed25519 public key.
type PublicKey struct {
	// Algorithm identifies the signature algorithm, always "ed25519".
	Algorithm string

	// KeyBytes holds the raw 32-byte Ed25519 public key.
	KeyBytes []byte
}

// NewPublicKey creates a PublicKey from raw key bytes, validating the
// Ed25519 key size.
func NewPublicKey(keyBytes []byte) (*PublicKey, error) {
	if len(keyBytes) == 0 {
		return nil, fmt.Errorf("key bytes cannot be empty")
	}
	if len(keyBytes) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("invalid Ed25519 public key size: expected %d bytes, got %d",
			ed25519.PublicKeySize, len(keyBytes))
	}

	return &PublicKey{
		Algorithm: AlgorithmEd25519,
		KeyBytes:  keyBytes,
	}, nil
}

// ParsePublicKeyHex creates a PublicKey from a hex-encoded key string,
// the encoding extension manifests carry.
func ParsePublicKeyHex(encoded string) (*PublicKey, error) {
	raw, err := hex.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("public key is not valid hex: %w", err)
	}
	return NewPublicKey(raw)
}

// Fingerprint returns the first 8 bytes of the SHA-256 hash of the key,
// hex-encoded. Used for compact key identification in logs and error
// messages.
func (pk *PublicKey) Fingerprint() string {
	hash := sha256.Sum256(pk.KeyBytes)
	return hex.EncodeToString(hash[:8])
}

// Verify checks an Ed25519 signature over message with this key.
func (pk *PublicKey) Verify(message, signature []byte) bool {
	if len(signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pk.KeyBytes), message, signature)
}

// VerifySignature checks an Ed25519 signature over message, reporting
// why verification failed: a malformed signature length and a
// cryptographic mismatch are distinct sentinels.
func VerifySignature(pk *PublicKey, message, signature []byte) error {
	if len(signature) != ed25519.SignatureSize {
		return ErrInvalidSignatureLength
	}
	if !pk.Verify(message, signature) {
		return ErrInvalidSignature
	}
	return nil
}

// String returns the hex encoding of the raw key bytes.
func (pk *PublicKey) String() string {
	return hex.EncodeToString(pk.KeyBytes)
}
