package ports

import (
	"context"
	"time"
)

// TenantLocker grants a short-lived exclusive token per key
type TenantLocker interface {
	// TryLock returns ok=false without error when the key is already held
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Release(ctx context.Context, key string, token string) error
	// Extend resets the ttl of a lock still held by token; ok=false once the lock was lost
	Extend(ctx context.Context, key string, token string, ttl time.Duration) (ok bool, err error)
}

// OAuthStateStore keeps short-lived nonces bound to a shop: OAuth state between
// redirect and callback, and the signup claim issued after install
type OAuthStateStore interface {
	Save(ctx context.Context, state string, shop string, ttl time.Duration) error
	// Consume returns the shop bound to state and deletes it; "" when unknown or expired
	Consume(ctx context.Context, state string) (string, error)
}

// WebhookDeduplicator remembers delivery ids so redelivered webhooks are applied once
type WebhookDeduplicator interface {
	// FirstSeen reports true the first time id is offered within ttl
	FirstSeen(ctx context.Context, id string, ttl time.Duration) (bool, error)
}

// TokenSealer encrypts access tokens at rest
type TokenSealer interface {
	Seal(plaintext string) (string, error)
	Open(sealed string) (string, error)
}
