package redisclient

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	return New(redis.NewClient(&redis.Options{Addr: mr.Addr()})), mr
}

func TestLock(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestClient(t)

	token, ok, err := c.AcquireLock(ctx, "order:1", 10*time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEmpty(t, token)

	_, ok, err = c.AcquireLock(ctx, "order:1", 10*time.Second)
	require.NoError(t, err)
	assert.False(t, ok, "second acquire must fail while held")

	// a stale token must not release someone else's lock
	require.NoError(t, c.ReleaseLock(ctx, "order:1", "not-the-owner"))
	assert.True(t, mr.Exists("lock:order:1"))

	require.NoError(t, c.ReleaseLock(ctx, "order:1", token))
	assert.False(t, mr.Exists("lock:order:1"))

	_, ok, err = c.AcquireLock(ctx, "order:1", 10*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLockExpires(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestClient(t)

	_, ok, err := c.AcquireLock(ctx, "order:2", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	_, ok, err = c.AcquireLock(ctx, "order:2", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIdempotency(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestClient(t)

	_, found, err := c.LookupOrder(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.RememberOrder(ctx, "abc", 1042, time.Hour))

	id, found, err := c.LookupOrder(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(1042), id)
}

func TestFlashSaleCache(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestClient(t)

	type entry struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}

	var got []entry
	hit, err := c.GetFlashSales(ctx, &got)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.SetFlashSales(ctx, []entry{{ID: 1, Name: "Durga Puja"}}, time.Minute))

	hit, err = c.GetFlashSales(ctx, &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []entry{{ID: 1, Name: "Durga Puja"}}, got)

	require.NoError(t, c.InvalidateFlashSales(ctx))
	hit, err = c.GetFlashSales(ctx, &got)
	require.NoError(t, err)
	assert.False(t, hit)
}
