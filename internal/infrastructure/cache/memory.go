package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"shopify-tenant-sync/internal/ports"

	"github.com/google/uuid"
)

type entry struct {
	value     string
	expiresAt time.Time
}

// memoryStore is a TTL map used when no Redis is configured
type memoryStore struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

func newMemoryStore() *memoryStore {
	return &memoryStore{entries: make(map[string]entry), now: time.Now}
}

// setNX must be called with mu held
func (m *memoryStore) setNX(key, value string, ttl time.Duration) bool {
	now := m.now()
	if e, ok := m.entries[key]; ok && now.Before(e.expiresAt) {
		return false
	}
	m.entries[key] = entry{value: value, expiresAt: now.Add(ttl)}
	return true
}

// sweep drops expired entries; called with mu held
func (m *memoryStore) sweep() {
	now := m.now()
	for k, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, k)
		}
	}
}

// MemoryLocker is an in-process TenantLocker for single-replica deployments
type MemoryLocker struct {
	store *memoryStore
}

var _ ports.TenantLocker = (*MemoryLocker)(nil)

// NewMemoryLocker creates an in-process locker
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{store: newMemoryStore()}
}

// TryLock acquires key for ttl
func (l *MemoryLocker) TryLock(_ context.Context, key string, ttl time.Duration) (string, bool, error) {
	if key == "" {
		return "", false, errors.New("lock key is empty")
	}
	if ttl <= 0 {
		return "", false, errors.New("lock ttl must be positive")
	}

	token := uuid.NewString()
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	if !l.store.setNX(key, token, ttl) {
		return "", false, nil
	}
	return token, true, nil
}

// Release deletes key only if it still holds token
func (l *MemoryLocker) Release(_ context.Context, key, token string) error {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	if e, ok := l.store.entries[key]; ok && e.value == token {
		delete(l.store.entries, key)
	}
	return nil
}

// Extend pushes the expiry of key forward if token still holds it
func (l *MemoryLocker) Extend(_ context.Context, key, token string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, errors.New("lock ttl must be positive")
	}
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	e, ok := l.store.entries[key]
	if !ok || e.value != token || !l.store.now().Before(e.expiresAt) {
		return false, nil
	}
	l.store.entries[key] = entry{value: token, expiresAt: l.store.now().Add(ttl)}
	return true, nil
}

// MemoryStateStore is an in-process OAuthStateStore
type MemoryStateStore struct {
	store *memoryStore
}

var _ ports.OAuthStateStore = (*MemoryStateStore)(nil)

// NewMemoryStateStore creates an in-process state store
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{store: newMemoryStore()}
}

// Save binds state to shop for ttl
func (s *MemoryStateStore) Save(_ context.Context, state string, shop string, ttl time.Duration) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	s.store.sweep()
	s.store.entries[state] = entry{value: shop, expiresAt: s.store.now().Add(ttl)}
	return nil
}

// Consume reads and deletes state
func (s *MemoryStateStore) Consume(_ context.Context, state string) (string, error) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	e, ok := s.store.entries[state]
	delete(s.store.entries, state)
	if !ok || !s.store.now().Before(e.expiresAt) {
		return "", nil
	}
	return e.value, nil
}

// MemoryDeduplicator is an in-process WebhookDeduplicator
type MemoryDeduplicator struct {
	store *memoryStore
}

var _ ports.WebhookDeduplicator = (*MemoryDeduplicator)(nil)

// NewMemoryDeduplicator creates an in-process deduplicator
func NewMemoryDeduplicator() *MemoryDeduplicator {
	return &MemoryDeduplicator{store: newMemoryStore()}
}

// FirstSeen records id and reports whether it was new
func (d *MemoryDeduplicator) FirstSeen(_ context.Context, id string, ttl time.Duration) (bool, error) {
	if id == "" {
		return true, nil
	}
	d.store.mu.Lock()
	defer d.store.mu.Unlock()
	d.store.sweep()
	return d.store.setNX(id, "1", ttl), nil
}
