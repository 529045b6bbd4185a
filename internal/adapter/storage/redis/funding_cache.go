package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// FundingCache implements ports.FundingCache using Redis. It is the layer-1
// duplicate check for external funding references; the ledger's unique
// constraint remains the source of truth.
type FundingCache struct {
	client *goredis.Client
	prefix string
}

// NewFundingCache creates a new Redis-backed funding cache.
func NewFundingCache(client *goredis.Client) *FundingCache {
	return &FundingCache{
		client: client,
		prefix: "funding:",
	}
}

// Get retrieves a cached funding result by external reference.
// Returns nil, nil if the reference has not been seen.
func (c *FundingCache) Get(ctx context.Context, externalRef string) ([]byte, error) {
	val, err := c.client.Get(ctx, c.prefix+externalRef).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis funding get: %w", err)
	}
	return val, nil
}

// Set stores a funding result with TTL.
func (c *FundingCache) Set(ctx context.Context, externalRef string, value []byte, ttl time.Duration) error {
	err := c.client.Set(ctx, c.prefix+externalRef, value, ttl).Err()
	if err != nil {
		return fmt.Errorf("redis funding set: %w", err)
	}
	return nil
}
