package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisBackend(t *testing.T) (*RedisBackend, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := NewRedisClient(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisBackend(client, "vitrine:"), mr
}

func TestRedisBackendGetSet(t *testing.T) {
	ctx := context.Background()
	backend, mr := newRedisBackend(t)

	_, err := backend.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, backend.Set(ctx, "k", "v"))
	got, err := backend.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	stored, err := mr.Get("vitrine:k")
	require.NoError(t, err)
	assert.Equal(t, "v", stored)
	assert.Zero(t, mr.TTL("vitrine:k"))
}

func TestRedisBackendRetention(t *testing.T) {
	ctx := context.Background()
	backend, mr := newRedisBackend(t)
	backend.Retention = 24 * time.Hour

	require.NoError(t, backend.Set(ctx, "k", "v"))
	assert.Equal(t, 24*time.Hour, mr.TTL("vitrine:k"))
}

func TestStoreOverRedis(t *testing.T) {
	ctx := context.Background()
	backend, _ := newRedisBackend(t)
	clock := &fakeClock{t: time.Now()}
	store := NewStore(backend, WithClock(clock.Now))

	require.NoError(t, store.Write(ctx, "selectedSize", "M"))
	got, err := Read(ctx, store, "selectedSize", "")
	require.NoError(t, err)
	assert.Equal(t, "M", got)

	clock.Advance(16 * time.Minute)
	got, err = Read(ctx, store, "selectedSize", "")
	require.NoError(t, err)
	assert.Equal(t, "", got)
}
