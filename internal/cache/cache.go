package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/drcartoon/cartoonbox/internal/metrics"
	"github.com/drcartoon/cartoonbox/pkg/models"
)

// Cache keeps short-lived copies of catalog responses so a page refresh does
// not hammer the external archive. The TTL is short on purpose; the archive
// is the source of truth.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache creates a new cache instance
func NewCache(host string, port int, password string, db int, ttl time.Duration) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{client: client, ttl: ttl}, nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// SetSearch caches the result set for a search key.
func (c *Cache) SetSearch(ctx context.Context, key string, items []models.CatalogItem) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to marshal search results: %w", err)
	}

	return c.client.Set(ctx, "catalog:search:"+key, data, c.ttl).Err()
}

// GetSearch retrieves cached search results; a miss returns nil, nil.
func (c *Cache) GetSearch(ctx context.Context, key string) ([]models.CatalogItem, error) {
	data, err := c.client.Get(ctx, "catalog:search:"+key).Bytes()
	if err != nil {
		if err == redis.Nil {
			metrics.CatalogCacheHits.WithLabelValues("miss").Inc()
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("failed to get search results from cache: %w", err)
	}

	var items []models.CatalogItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal search results: %w", err)
	}

	metrics.CatalogCacheHits.WithLabelValues("hit").Inc()
	return items, nil
}

// SetDetail caches one item's metadata view.
func (c *Cache) SetDetail(ctx context.Context, videoID string, detail *models.CatalogDetail) error {
	data, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("failed to marshal detail: %w", err)
	}

	return c.client.Set(ctx, "catalog:detail:"+videoID, data, c.ttl).Err()
}

// GetDetail retrieves one item's cached metadata view; a miss returns nil, nil.
func (c *Cache) GetDetail(ctx context.Context, videoID string) (*models.CatalogDetail, error) {
	data, err := c.client.Get(ctx, "catalog:detail:"+videoID).Bytes()
	if err != nil {
		if err == redis.Nil {
			metrics.CatalogCacheHits.WithLabelValues("miss").Inc()
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("failed to get detail from cache: %w", err)
	}

	var detail models.CatalogDetail
	if err := json.Unmarshal(data, &detail); err != nil {
		return nil, fmt.Errorf("failed to unmarshal detail: %w", err)
	}

	metrics.CatalogCacheHits.WithLabelValues("hit").Inc()
	return &detail, nil
}

// Health check
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
