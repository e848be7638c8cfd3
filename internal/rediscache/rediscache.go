// Package rediscache keeps web search responses in Redis so several
// phrasecheck processes can share them.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/valpere/phrasecheck/internal/search"
)

// DefaultPrefix namespaces the keys written by Cache.
const DefaultPrefix = "phrasecheck:search:"

type Config struct {
	Addr     string `mapstructure:"addr" json:"addr" validate:"omitempty,hostname_port"`
	Password string `mapstructure:"password" json:"-"`
	DB       int    `mapstructure:"db" json:"db" validate:"min=0"`
	Prefix   string `mapstructure:"prefix" json:"prefix"`
}

// Cache implements search.Cache on top of a Redis client.
type Cache struct {
	client redis.Cmdable
	prefix string
}

// New wraps client. An empty prefix selects DefaultPrefix.
func New(client redis.Cmdable, prefix string) *Cache {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Cache{client: client, prefix: prefix}
}

// Dial connects to the server described by cfg and checks it answers.
func Dial(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis %s: %w", cfg.Addr, err)
	}
	return client, nil
}

func (c *Cache) key(k string) string {
	return c.prefix + k
}

func (c *Cache) GetSearch(ctx context.Context, key string) ([]search.Hit, bool, error) {
	raw, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var hits []search.Hit
	if err := json.Unmarshal(raw, &hits); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached hits: %w", err)
	}
	return hits, true, nil
}

// PutSearch stores hits under key. A ttl ≤ 0 stores them without expiry.
func (c *Cache) PutSearch(ctx context.Context, key string, hits []search.Hit, ttl time.Duration) error {
	raw, err := json.Marshal(hits)
	if err != nil {
		return fmt.Errorf("failed to encode hits: %w", err)
	}
	if ttl < 0 {
		ttl = 0
	}
	return c.client.Set(ctx, c.key(key), raw, ttl).Err()
}

// Clear deletes every key under the cache prefix and returns how many were
// removed.
func (c *Cache) Clear(ctx context.Context) (int64, error) {
	var removed int64
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	var batch []string
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := c.client.Del(ctx, batch...).Result()
		removed += n
		batch = batch[:0]
		return err
	}
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := flush(); err != nil {
				return removed, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return removed, err
	}
	return removed, flush()
}
