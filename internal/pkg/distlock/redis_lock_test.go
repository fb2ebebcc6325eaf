package distlock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestRedisLockAcquireRelease(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()

	lock := NewRedisLock(client, "sales-2025-09-15.csv", time.Minute)
	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	// A second holder cannot take the same run key while it is held.
	other := NewRedisLock(client, "sales-2025-09-15.csv", time.Minute)
	ok, err = other.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, lock.Release(ctx))
	ok, err = other.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLockDistinctKeysIndependent(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()

	a := NewRedisLock(client, "file-a.csv", time.Minute)
	b := NewRedisLock(client, "file-b.csv", time.Minute)

	ok, err := a.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLockReleaseOnlyOwn(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()

	holder := NewRedisLock(client, "file.csv", time.Minute)
	ok, err := holder.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// A non-owner release must not free the holder's lock.
	intruder := NewRedisLock(client, "file.csv", time.Minute)
	require.NoError(t, intruder.Release(ctx))

	ok, err = intruder.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "lock must survive a foreign release")
}

func TestRedisLockExtendOnlyOwn(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()

	holder := NewRedisLock(client, "file.csv", time.Minute)
	ok, err := holder.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = holder.Extend(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	intruder := NewRedisLock(client, "file.csv", time.Minute)
	ok, err = intruder.Extend(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "a non-owner cannot extend the lock")

	require.NoError(t, holder.Release(ctx))
	ok, err = holder.Extend(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "a released lock cannot be extended")
}
