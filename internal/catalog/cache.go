package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache wraps Redis helpers for JSON payloads. Listing keys embed a
// generation counter so a single INCR invalidates every cached page after a
// catalog write, without scanning for keys.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

const generationKey = "catalog:gen"

// NewCache constructs a cache helper. A nil client disables caching.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// GetJSON unmarshals a cached JSON payload into dst. It reports whether the key existed.
func (c *Cache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	if c == nil || c.client == nil || key == "" {
		return false, nil
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON serialises v as JSON and stores it with the configured TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, v any) error {
	if c == nil || c.client == nil || key == "" {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// Delete removes specific keys.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if c == nil || c.client == nil || len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// Generation returns the current listing generation.
func (c *Cache) Generation(ctx context.Context) int64 {
	if c == nil || c.client == nil {
		return 0
	}
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if err != nil {
		return 0
	}
	return gen
}

// BumpGeneration invalidates every generation-scoped key at once.
func (c *Cache) BumpGeneration(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, generationKey).Err()
}

func productKey(id int64) string {
	return fmt.Sprintf("catalog:product:%d", id)
}

func listKey(gen int64, q string, categoryID int64, limit, offset int) string {
	return fmt.Sprintf("catalog:list:%d:%s:%d:%d:%d", gen, q, categoryID, limit, offset)
}

func categoriesKey(gen int64) string {
	return fmt.Sprintf("catalog:categories:%d", gen)
}
