package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"

	"shopify-tenant-sync/internal/domain"
)

// WebhookVerifier checks the X-Shopify-Hmac-Sha256 header against the raw body
type WebhookVerifier struct {
	secret []byte
}

// NewWebhookVerifier creates a verifier for the app's shared secret
func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{secret: []byte(secret)}
}

// Verify returns ErrSignature unless signature is the base64 HMAC-SHA256 of payload
func (v *WebhookVerifier) Verify(payload []byte, signature string) error {
	if len(v.secret) == 0 {
		return domain.NewError(domain.KindSignature, "verify webhook", errors.New("webhook secret not configured"))
	}
	if signature == "" {
		return domain.NewError(domain.KindSignature, "verify webhook", errors.New("missing signature"))
	}

	given, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return domain.NewError(domain.KindSignature, "verify webhook", errors.New("signature is not base64"))
	}
	if !hmac.Equal(given, Sign(v.secret, payload)) {
		return domain.NewError(domain.KindSignature, "verify webhook", errors.New("signature mismatch"))
	}
	return nil
}

// Sign computes the raw HMAC-SHA256 of payload
func Sign(secret []byte, payload []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return mac.Sum(nil)
}

// SignBase64 computes the header value the provider would send for payload
func SignBase64(secret string, payload []byte) string {
	return base64.StdEncoding.EncodeToString(Sign([]byte(secret), payload))
}
