package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprint(t *testing.T) {
	base := Fingerprint("v2", "product_search", "0.000000", "0.000000", "1000", "-")

	assert.Len(t, base, 64)
	assert.Equal(t, base, Fingerprint("v2", "product_search", "0.000000", "0.000000", "1000", "-"))

	variants := map[string]string{
		"version": Fingerprint("v3", "product_search", "0.000000", "0.000000", "1000", "-"),
		"type":    Fingerprint("v2", "merchant_search", "0.000000", "0.000000", "1000", "-"),
		"lat":     Fingerprint("v2", "product_search", "0.000001", "0.000000", "1000", "-"),
		"lng":     Fingerprint("v2", "product_search", "0.000000", "0.000001", "1000", "-"),
		"radius":  Fingerprint("v2", "product_search", "0.000000", "0.000000", "1001", "-"),
		"name":    Fingerprint("v2", "product_search", "0.000000", "0.000000", "1000", `"cola"`),
	}
	for name, key := range variants {
		assert.NotEqual(t, base, key, name)
	}
}

func TestMemory_GetSetExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()
	c.Start()
	defer c.Stop()

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 50*time.Millisecond))
	require.NoError(t, c.Set(ctx, "forever", []byte("x"), 0))
	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	assert.Eventually(t, func() bool {
		_, ok, _ := c.Get(ctx, "k")
		return !ok
	}, 2*time.Second, 10*time.Millisecond, "entry must expire after ttl")
	assert.Eventually(t, func() bool { return c.Len() == 1 }, 2*time.Second, 10*time.Millisecond,
		"janitor must evict the expired entry")

	_, ok, _ = c.Get(ctx, "forever")
	assert.True(t, ok)
}

func TestMemory_ReadDoesNotExtendTTL(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()
	start := time.Now()
	require.NoError(t, c.Set(ctx, "k", []byte("v"), 100*time.Millisecond))

	time.Sleep(60 * time.Millisecond)
	_, _, _ = c.Get(ctx, "k")

	time.Sleep(time.Until(start.Add(110 * time.Millisecond)))
	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok, "hit must not push expiry forward")
}

func TestMemory_StoresCopy(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()
	buf := []byte("abc")
	require.NoError(t, c.Set(ctx, "k", buf, 0))
	buf[0] = 'x'

	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "abc", string(got))
}

func TestRedis_GetSetExpiry(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	c := NewRedisCache(mr.Addr(), "geomarket")

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", []byte(`[{"id":1}]`), 120*time.Second))
	assert.True(t, mr.Exists("geomarket:k"))

	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `[{"id":1}]`, string(got))

	mr.FastForward(121 * time.Second)
	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedis_ServerDown(t *testing.T) {
	mr := miniredis.RunT(t)
	c := NewRedisCache(mr.Addr(), "geomarket")
	mr.Close()

	_, _, err := c.Get(context.Background(), "k")
	assert.Error(t, err)
}
