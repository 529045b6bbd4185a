package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFundingCache_SetAndGet(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewFundingCache(client)
	ctx := context.Background()

	ref := "psp-ref-001"
	value := []byte(`{"wallet_id":"abc","new_balance":5000}`)

	// Get before set => nil
	result, err := cache.Get(ctx, ref)
	assert.NoError(t, err)
	assert.Nil(t, result)

	// Set
	err = cache.Set(ctx, ref, value, 24*time.Hour)
	require.NoError(t, err)

	// Get after set
	result, err = cache.Get(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, value, result)
}

func TestFundingCache_TTLExpiry(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewFundingCache(client)
	ctx := context.Background()

	ref := "psp-ref-002"

	err := cache.Set(ctx, ref, []byte(`{"data":"test"}`), 1*time.Second)
	require.NoError(t, err)

	// Fast-forward time in miniredis
	s.FastForward(2 * time.Second)

	result, err := cache.Get(ctx, ref)
	assert.NoError(t, err)
	assert.Nil(t, result, "expired reference should return nil")
}

func TestFundingCache_OverwriteKey(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewFundingCache(client)
	ctx := context.Background()

	ref := "psp-ref-003"

	err := cache.Set(ctx, ref, []byte("first"), 1*time.Hour)
	require.NoError(t, err)

	err = cache.Set(ctx, ref, []byte("second"), 1*time.Hour)
	require.NoError(t, err)

	result, err := cache.Get(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), result)
}
