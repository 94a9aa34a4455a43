package locksvc

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ies/core/evaluation"
)

func TestRedisLocker(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	locker := NewRedisLocker(client)
	ttl := time.Minute

	lock, err := locker.GetLock(ctx, "f1")
	require.NoError(t, err)
	assert.False(t, lock.IsLocked)

	lock, err = locker.AcquireLock(ctx, "f1", "alice", ttl)
	require.NoError(t, err)
	assert.True(t, lock.IsLocked)
	assert.Equal(t, "alice", lock.HolderID)
	assert.False(t, lock.ExpiresAt.IsZero())
	assert.Equal(t, "alice", mustGet(t, mr, "ies:formlock:f1"))

	// held by someone else
	lock, err = locker.AcquireLock(ctx, "f1", "bob", ttl)
	assert.Equal(t, evaluation.ErrFormLocked, err)
	assert.Equal(t, "alice", lock.HolderID)

	// the holder refreshes its lease
	mr.FastForward(30 * time.Second)
	_, err = locker.AcquireLock(ctx, "f1", "alice", ttl)
	require.NoError(t, err)
	assert.Equal(t, ttl, mr.TTL("ies:formlock:f1"))

	// only the holder releases
	require.NoError(t, locker.ReleaseLock(ctx, "f1", "bob"))
	assert.True(t, mr.Exists("ies:formlock:f1"))
	require.NoError(t, locker.ReleaseLock(ctx, "f1", "alice"))
	assert.False(t, mr.Exists("ies:formlock:f1"))

	// expired leases are free
	_, err = locker.AcquireLock(ctx, "f2", "alice", ttl)
	require.NoError(t, err)
	mr.FastForward(ttl + time.Second)
	lock, err = locker.AcquireLock(ctx, "f2", "bob", ttl)
	require.NoError(t, err)
	assert.Equal(t, "bob", lock.HolderID)
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, key string) string {
	t.Helper()
	val, err := mr.Get(key)
	require.NoError(t, err)
	return val
}
