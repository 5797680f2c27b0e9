package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// GetEnumeration returns cached distinct filter values for a field.
// A cache miss returns (nil, nil).
func (c *Client) GetEnumeration(ctx context.Context, field string) ([]string, error) {
	raw, err := c.rdb.Get(ctx, enumerationKey(field)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get enumeration %s: %w", field, err)
	}

	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, fmt.Errorf("decode enumeration %s: %w", field, err)
	}
	return values, nil
}

// SetEnumeration caches distinct filter values for a field with a TTL.
func (c *Client) SetEnumeration(ctx context.Context, field string, values []string, ttl time.Duration) error {
	raw, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode enumeration %s: %w", field, err)
	}
	return c.rdb.Set(ctx, enumerationKey(field), raw, ttl).Err()
}

func enumerationKey(field string) string {
	return fmt.Sprintf("catalog:distinct:%s", field)
}
