package github

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signBody(t *testing.T, body []byte, secret string) string {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature_Valid(t *testing.T) {
	body := []byte(`{"action":"published"}`)
	sig := signBody(t, body, "s3cret")

	assert.NoError(t, VerifySignature(body, sig, "s3cret"))
}

func TestVerifySignature_MissingHeader(t *testing.T) {
	err := VerifySignature([]byte("{}"), "", "s3cret")
	assert.ErrorIs(t, err, ErrMissingSignature)
}

func TestVerifySignature_WrongSecret(t *testing.T) {
	body := []byte(`{"action":"published"}`)
	sig := signBody(t, body, "other-secret")

	assert.ErrorIs(t, VerifySignature(body, sig, "s3cret"), ErrInvalidSignature)
}

func TestVerifySignature_TamperedBody(t *testing.T) {
	body := []byte(`{"action":"published"}`)
	sig := signBody(t, body, "s3cret")
	tampered := []byte(`{"action":"deleted"}  `)

	assert.ErrorIs(t, VerifySignature(tampered, sig, "s3cret"), ErrInvalidSignature)
}

func TestVerifySignature_MalformedHeader(t *testing.T) {
	body := []byte(`{}`)
	assert.ErrorIs(t, VerifySignature(body, "sha1=deadbeef", "s3cret"), ErrInvalidSignature)
}

func TestParseWebhookPayload(t *testing.T) {
	body := []byte(`{
		"action": "published",
		"release": {
			"tag_name": "v1.0.0",
			"prerelease": false,
			"published_at": "2024-03-01T12:00:00Z",
			"assets": [
				{"name": "app.exe", "browser_download_url": "https://example.com/app.exe", "size": 42}
			]
		}
	}`)

	payload, err := ParseWebhookPayload(body)
	require.NoError(t, err)
	assert.Equal(t, "published", payload.Action)
	assert.Equal(t, "v1.0.0", payload.Release.TagName)
	require.Len(t, payload.Release.Assets, 1)
	assert.Equal(t, int64(42), payload.Release.Assets[0].Size)
}

func TestParseWebhookPayload_Malformed(t *testing.T) {
	_, err := ParseWebhookPayload([]byte("{not json"))
	assert.Error(t, err)
}
