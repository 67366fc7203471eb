package extension

import (
	"fmt"
	"strings"
)

// RejectReason tags why a package was rejected. Each reason requires a
// different corrective action from the uploader, so they are surfaced
// distinctly instead of as one generic failure.
type RejectReason string

const (
	RejectBadFormat         RejectReason = "bad_format"
	RejectMissingManifest   RejectReason = "missing_manifest"
	RejectInvalidManifest   RejectReason = "invalid_manifest"
	RejectPublicKeyMismatch RejectReason = "public_key_mismatch"
	RejectVersionTooLow     RejectReason = "version_too_low"
	RejectInvalidSignature  RejectReason = "invalid_signature"
	RejectParseError        RejectReason = "parse_error"
)

// VerifyError is a terminal rejection of an uploaded package.
type VerifyError struct {
	Reason RejectReason
	Err    error
}

func (e *VerifyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("package rejected (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("package rejected (%s)", e.Reason)
}

func (e *VerifyError) Unwrap() error {
	return e.Err
}

func reject(reason RejectReason, err error) *VerifyError {
	return &VerifyError{Reason: reason, Err: err}
}

// Verifier validates an uploaded extension package. ExpectedPublicKey
// and CurrentVersion are set when the upload is a new version of an
// already published extension; empty values skip the continuity and
// monotonicity checks.
type Verifier struct {
	ExpectedPublicKey string
	CurrentVersion    string
	Signature         SignatureVerifier
}

// NewVerifier creates a verifier with the built-in Ed25519 signature
// check.
func NewVerifier() *Verifier {
	return &Verifier{Signature: Ed25519Verifier{}}
}

// Result is an accepted package: its verified manifest and, when
// present, the extracted icon.
type Result struct {
	Manifest *Manifest
	Icon     *Icon
}

// Verify runs the full pipeline over an uploaded archive:
// format check, manifest extraction and validation, public-key
// continuity, version monotonicity, and signature verification, then
// best-effort icon extraction. Rejection at any step is terminal and
// returns a *VerifyError.
func (v *Verifier) Verify(filename string, data []byte) (*Result, error) {
	if !strings.HasSuffix(filename, PackageExt) {
		return nil, reject(RejectBadFormat, fmt.Errorf("expected a %s package", PackageExt))
	}

	archive, err := OpenArchive(data)
	if err != nil {
		return nil, reject(RejectParseError, err)
	}

	manifestData, ok, err := archive.File(ManifestPath)
	if err != nil {
		return nil, reject(RejectParseError, err)
	}
	if !ok {
		return nil, reject(RejectMissingManifest, fmt.Errorf("no manifest at %s", ManifestPath))
	}

	manifest, err := ParseManifest(manifestData)
	if err != nil {
		return nil, reject(RejectInvalidManifest, err)
	}

	if v.ExpectedPublicKey != "" && manifest.PublicKey != v.ExpectedPublicKey {
		return nil, reject(RejectPublicKeyMismatch,
			fmt.Errorf("public key must not change across versions"))
	}

	if v.CurrentVersion != "" && CompareVersions(manifest.Version, v.CurrentVersion) <= 0 {
		return nil, reject(RejectVersionTooLow,
			fmt.Errorf("version %s is not higher than current %s", manifest.Version, v.CurrentVersion))
	}

	files, err := archive.Entries()
	if err != nil {
		return nil, reject(RejectParseError, err)
	}

	verifier := v.Signature
	if verifier == nil {
		verifier = Ed25519Verifier{}
	}
	if result := verifier.VerifySignature(files, manifest); !result.Valid {
		return nil, reject(RejectInvalidSignature, fmt.Errorf("%s", result.Error))
	}

	return &Result{
		Manifest: manifest,
		Icon:     ExtractIcon(archive, manifest),
	}, nil
}
