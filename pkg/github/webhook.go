package github

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
)

// SignatureHeader is the request header carrying the webhook HMAC.
const SignatureHeader = "X-Hub-Signature-256"

var (
	// ErrMissingSignature is returned when the signature header is absent.
	ErrMissingSignature = errors.New("missing webhook signature")

	// ErrInvalidSignature is returned when the signature does not match
	// the request body.
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// WebhookPayload is a release event delivered by the upstream host.
type WebhookPayload struct {
	Action  string  `json:"action"`
	Release Release `json:"release"`
}

// VerifySignature checks the HMAC-SHA256 signature of a webhook delivery.
// The digest must be computed over the exact raw body bytes; re-encoding
// a parsed payload does not reproduce the upstream byte encoding. The
// comparison is constant time.
func VerifySignature(body []byte, signature, secret string) error {
	if signature == "" {
		return ErrMissingSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return ErrInvalidSignature
	}
	return nil
}

// ParseWebhookPayload decodes a verified webhook body. Callers must run
// VerifySignature first; unverified bodies are never parsed.
func ParseWebhookPayload(body []byte) (*WebhookPayload, error) {
	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("malformed webhook payload: %w", err)
	}
	return &payload, nil
}
