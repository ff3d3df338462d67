package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_SetThenGet(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "abc123", "https://example.com", time.Hour))

	got, ok, err := c.Get(ctx, "abc123")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "https://example.com", got)
}

func TestMemoryCache_MissForUnknownKey(t *testing.T) {
	c := NewMemoryCache()

	_, ok, err := c.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCache_ExpiresAfterTTL(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "short-lived", "https://example.com", time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, ok, err := c.Get(ctx, "short-lived")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCache_Delete(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "abc123", "https://example.com", time.Hour))
	require.NoError(t, c.Delete(ctx, "abc123"))

	_, ok, err := c.Get(ctx, "abc123")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNullCache_AlwaysMisses(t *testing.T) {
	c := NewNullCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "abc123", "https://example.com", time.Hour))

	_, ok, err := c.Get(ctx, "abc123")
	require.NoError(t, err)
	assert.False(t, ok)
}
