package shopify

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"shopify-tenant-sync/internal/ports"

	"github.com/rs/zerolog"
)

// sealedPrefix marks tokens written by TokenManager so plaintext rows from
// before encryption was enabled still load
const sealedPrefix = "enc:v1:"

// TokenManager encrypts Shopify access tokens with AES-256-GCM before storage
type TokenManager struct {
	aead   cipher.AEAD
	logger zerolog.Logger
}

var _ ports.TokenSealer = (*TokenManager)(nil)

// LoadKeyFromBase64 decodes a 32-byte key
func LoadKeyFromBase64(b64 string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(b64))
	if err != nil {
		return nil, fmt.Errorf("failed to decode encryption key: %w", err)
	}
	if len(key) != 32 {
		return nil, errors.New("encryption key must decode to 32 bytes")
	}
	return key, nil
}

// NewTokenManager creates a new token manager
func NewTokenManager(key []byte, logger zerolog.Logger) (*TokenManager, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &TokenManager{aead: aead, logger: logger}, nil
}

// Seal encrypts an access token before storage
func (tm *TokenManager) Seal(token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("token cannot be empty")
	}

	nonce := make([]byte, tm.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ct := tm.aead.Seal(nil, nonce, []byte(token), nil)
	return sealedPrefix + base64.RawURLEncoding.EncodeToString(append(nonce, ct...)), nil
}

// Open decrypts an access token after retrieval
func (tm *TokenManager) Open(sealed string) (string, error) {
	if sealed == "" {
		return "", fmt.Errorf("encrypted token cannot be empty")
	}
	if !strings.HasPrefix(sealed, sealedPrefix) {
		tm.logger.Debug().Msg("Loaded token stored without encryption")
		return sealed, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(sealed, sealedPrefix))
	if err != nil {
		return "", fmt.Errorf("failed to decode token: %w", err)
	}
	ns := tm.aead.NonceSize()
	if len(raw) < ns {
		return "", errors.New("ciphertext too short")
	}

	pt, err := tm.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt token: %w", err)
	}
	return string(pt), nil
}
