package quotation

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "quotation:"

// Cache keeps rendered quotations in Redis as JSON.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a cache helper. A nil client disables caching.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func cacheKey(id uuid.UUID) string {
	return cacheKeyPrefix + id.String()
}

// Get reports whether the quotation was cached.
func (c *Cache) Get(ctx context.Context, id uuid.UUID) (Quotation, bool, error) {
	var q Quotation
	if c == nil || c.client == nil {
		return q, false, nil
	}
	data, err := c.client.Get(ctx, cacheKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return q, false, nil
		}
		return q, false, err
	}
	if err := json.Unmarshal(data, &q); err != nil {
		return q, false, err
	}
	return q, true, nil
}

// Set stores q with the configured TTL.
func (c *Cache) Set(ctx context.Context, q Quotation) error {
	if c == nil || c.client == nil || c.ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(q)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheKey(q.ID), data, c.ttl).Err()
}

// Delete evicts a cached quotation.
func (c *Cache) Delete(ctx context.Context, id uuid.UUID) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, cacheKey(id)).Err()
}
