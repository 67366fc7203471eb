package extension

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/relaypoint/relaypoint/pkg/crypto"
)

// VerifyResult is the outcome of a signature check over the package
// file set.
type VerifyResult struct {
	Valid bool
	Error string
}

// SignatureVerifier checks a package signature over the full archive
// file set plus the parsed manifest. Implementations other than the
// built-in Ed25519 verifier can be injected, matching the external
// verification routine of the producing SDK.
type SignatureVerifier interface {
	VerifySignature(files []FileEntry, manifest *Manifest) VerifyResult
}

// Ed25519Verifier verifies the manifest-declared Ed25519 signature over
// the canonical digest of the package contents.
type Ed25519Verifier struct{}

// VerifySignature computes the canonical content digest and checks the
// manifest's signature against the manifest's public key.
func (Ed25519Verifier) VerifySignature(files []FileEntry, manifest *Manifest) VerifyResult {
	if manifest.Signature == "" {
		return VerifyResult{Error: "manifest carries no signature"}
	}

	pubKey, err := crypto.ParsePublicKeyHex(manifest.PublicKey)
	if err != nil {
		return VerifyResult{Error: "invalid public key: " + err.Error()}
	}

	signature, err := hex.DecodeString(manifest.Signature)
	if err != nil {
		return VerifyResult{Error: "signature is not valid hex"}
	}

	digest := ContentDigest(files)
	if err := crypto.VerifySignature(pubKey, digest, signature); err != nil {
		return VerifyResult{Error: fmt.Sprintf("key %s: %v", pubKey.Fingerprint(), err)}
	}
	return VerifyResult{Valid: true}
}

// ContentDigest computes the canonical SHA-256 digest of a package file
// set: each entry's path and content in path order, separated by NUL
// bytes. The manifest entry itself is excluded because it carries the
// signature.
func ContentDigest(files []FileEntry) []byte {
	h := sha256.New()
	for _, f := range files {
		if f.Path == ManifestPath {
			continue
		}
		h.Write([]byte(f.Path))
		h.Write([]byte{0})
		h.Write(f.Content)
		h.Write([]byte{0})
	}
	return h.Sum(nil)
}
