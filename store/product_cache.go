package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"mabletask/admin/models"
)

const (
	productListPrefix = "products:all:"
	productGenKey     = "products:gen"
)

func productListKey(gen int64) string {
	return productListPrefix + strconv.FormatInt(gen, 10)
}

// ProductCache keeps the full product listing in Redis under a key versioned
// by a generation counter. Invalidate bumps the generation, so a listing read
// from the database before a write can only land under a retired key.
type ProductCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewProductCache(client *redis.Client, ttl time.Duration) *ProductCache {
	return &ProductCache{client: client, ttl: ttl}
}

// Generation returns the current listing generation, 0 before the first write.
func (c *ProductCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, productGenKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read product cache generation: %w", err)
	}
	return gen, nil
}

// Get reports a miss as (nil, false, nil).
func (c *ProductCache) Get(ctx context.Context, gen int64) ([]models.Product, bool, error) {
	data, err := c.client.Get(ctx, productListKey(gen)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read product cache: %w", err)
	}

	var products []models.Product
	if err := json.Unmarshal([]byte(data), &products); err != nil {
		return nil, false, fmt.Errorf("failed to decode product cache: %w", err)
	}
	return products, true, nil
}

// Set stores products under gen, which must be the generation read before
// the database query that produced them.
func (c *ProductCache) Set(ctx context.Context, gen int64, products []models.Product) error {
	data, err := json.Marshal(products)
	if err != nil {
		return fmt.Errorf("failed to encode product cache: %w", err)
	}
	if err := c.client.Set(ctx, productListKey(gen), string(data), c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write product cache: %w", err)
	}
	return nil
}

// Invalidate retires every listing cached so far. Old keys expire with their TTL.
func (c *ProductCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, productGenKey).Err(); err != nil {
		return fmt.Errorf("failed to invalidate product cache: %w", err)
	}
	return nil
}
