package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestMemoryLocker(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	locker := NewMemoryLocker()
	locker.store.now = clock.now

	token, ok, err := locker.TryLock(ctx, "sync:a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = locker.TryLock(ctx, "sync:a", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second holder must be refused")

	_, ok, err = locker.TryLock(ctx, "sync:b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "other keys are independent")

	require.NoError(t, locker.Release(ctx, "sync:a", "not-the-token"))
	_, ok, _ = locker.TryLock(ctx, "sync:a", time.Minute)
	assert.False(t, ok, "release with a foreign token is ignored")

	require.NoError(t, locker.Release(ctx, "sync:a", token))
	_, ok, _ = locker.TryLock(ctx, "sync:a", time.Minute)
	assert.True(t, ok)

	clock.t = clock.t.Add(2 * time.Minute)
	_, ok, _ = locker.TryLock(ctx, "sync:a", time.Minute)
	assert.True(t, ok, "expired lock can be taken")

	_, _, err = locker.TryLock(ctx, "", time.Minute)
	assert.Error(t, err)
	_, _, err = locker.TryLock(ctx, "k", 0)
	assert.Error(t, err)
}

func TestMemoryStateStore(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	store := NewMemoryStateStore()
	store.store.now = clock.now

	require.NoError(t, store.Save(ctx, "abc", "a.myshop.com", 10*time.Minute))
	shop, err := store.Consume(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "a.myshop.com", shop)

	shop, err = store.Consume(ctx, "abc")
	require.NoError(t, err)
	assert.Empty(t, shop, "state is single use")

	require.NoError(t, store.Save(ctx, "old", "a.myshop.com", time.Minute))
	clock.t = clock.t.Add(time.Hour)
	shop, err = store.Consume(ctx, "old")
	require.NoError(t, err)
	assert.Empty(t, shop)
}

func TestMemoryDeduplicator(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	dedupe := NewMemoryDeduplicator()
	dedupe.store.now = clock.now

	first, err := dedupe.FirstSeen(ctx, "wh-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := dedupe.FirstSeen(ctx, "wh-1", time.Hour)
	require.NoError(t, err)
	assert.False(t, again)

	noID, err := dedupe.FirstSeen(ctx, "", time.Hour)
	require.NoError(t, err)
	assert.True(t, noID)

	clock.t = clock.t.Add(2 * time.Hour)
	later, err := dedupe.FirstSeen(ctx, "wh-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, later)
}

func TestMemoryLocker_Extend(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	locker := NewMemoryLocker()
	locker.store.now = clock.now

	token, ok, err := locker.TryLock(ctx, "sync:a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	clock.t = clock.t.Add(50 * time.Second)
	ok, err = locker.Extend(ctx, "sync:a", token, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	clock.t = clock.t.Add(50 * time.Second)
	_, ok, _ = locker.TryLock(ctx, "sync:a", time.Minute)
	assert.False(t, ok, "extended lock is still held past the original ttl")

	ok, err = locker.Extend(ctx, "sync:a", "not-the-token", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	clock.t = clock.t.Add(2 * time.Minute)
	ok, err = locker.Extend(ctx, "sync:a", token, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "an expired lock cannot be revived")

	_, err = locker.Extend(ctx, "sync:a", token, 0)
	assert.Error(t, err)
}

func TestMemoryStateStore_DropsAbandonedStates(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	store := NewMemoryStateStore()
	store.store.now = clock.now

	for _, state := range []string{"a", "b", "c"} {
		require.NoError(t, store.Save(ctx, state, "a.myshop.com", 10*time.Minute))
	}
	clock.t = clock.t.Add(time.Hour)
	require.NoError(t, store.Save(ctx, "fresh", "a.myshop.com", 10*time.Minute))

	store.store.mu.Lock()
	defer store.store.mu.Unlock()
	assert.Len(t, store.store.entries, 1)
	assert.Contains(t, store.store.entries, "fresh")
}
