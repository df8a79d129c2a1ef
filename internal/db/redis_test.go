package db

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisClientForTest(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})
	return server, client
}

func ptr(s string) *string { return &s }

func TestRedisRefreshStoreSlot(t *testing.T) {
	server, client := newRedisClientForTest(t)
	store := NewRedisRefreshStore(client, "test", time.Hour)
	ctx := context.Background()

	_, ok, err := store.GetRefreshHash(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.UpdateRefreshHash(ctx, "u1", ptr("h1")))
	hash, ok, err := store.GetRefreshHash(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "h1", hash)
	assert.True(t, server.Exists("test:refresh:u1"))
	assert.Equal(t, time.Hour, server.TTL("test:refresh:u1"))

	require.NoError(t, store.UpdateRefreshHash(ctx, "u1", nil))
	_, ok, err = store.GetRefreshHash(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisRefreshStoreSwap(t *testing.T) {
	_, client := newRedisClientForTest(t)
	store := NewRedisRefreshStore(client, "test", time.Hour)
	ctx := context.Background()

	swapped, err := store.SwapRefreshHash(ctx, "u1", "h1", ptr("h2"))
	require.NoError(t, err)
	assert.False(t, swapped, "empty slot never swaps")

	require.NoError(t, store.UpdateRefreshHash(ctx, "u1", ptr("h1")))

	swapped, err = store.SwapRefreshHash(ctx, "u1", "stale", ptr("h2"))
	require.NoError(t, err)
	assert.False(t, swapped)

	swapped, err = store.SwapRefreshHash(ctx, "u1", "h1", ptr("h2"))
	require.NoError(t, err)
	assert.True(t, swapped)
	hash, _, _ := store.GetRefreshHash(ctx, "u1")
	assert.Equal(t, "h2", hash)

	swapped, err = store.SwapRefreshHash(ctx, "u1", "h2", nil)
	require.NoError(t, err)
	assert.True(t, swapped)
	_, ok, _ := store.GetRefreshHash(ctx, "u1")
	assert.False(t, ok)
}

func TestRedisRefreshStoreConcurrentSwap(t *testing.T) {
	_, client := newRedisClientForTest(t)
	store := NewRedisRefreshStore(client, "test", time.Hour)
	ctx := context.Background()
	require.NoError(t, store.UpdateRefreshHash(ctx, "u1", ptr("h0")))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.SwapRefreshHash(ctx, "u1", "h0", ptr("next"))
			if err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}
