// Package search queries web search engines for pages that may corroborate a
// translated phrase.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/time/rate"
)

// ErrNoAPIKey is returned by clients that need a key and were given none.
var ErrNoAPIKey = errors.New("search API key required")

// Hit is one organic search result.
type Hit struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Abstract string `json:"abstract"`
}

// Client runs a web search and returns results in rank order, at most
// maxResults of them.
type Client interface {
	Name() string
	Search(ctx context.Context, query string, maxResults int) ([]Hit, error)
}

// Quote wraps phrase in double quotes for an exact-phrase query.
func Quote(phrase string) string {
	return `"` + strings.ReplaceAll(phrase, `"`, "") + `"`
}

// Cache stores search responses keyed by engine, query and result count.
type Cache interface {
	GetSearch(ctx context.Context, key string) ([]Hit, bool, error)
	PutSearch(ctx context.Context, key string, hits []Hit, ttl time.Duration) error
}

// CacheKey builds the key under which a response is cached.
func CacheKey(engine, query string, maxResults int) string {
	return fmt.Sprintf("%s|%d|%s", engine, maxResults, norm.NFC.String(strings.TrimSpace(query)))
}

// CachedClient answers repeated queries from a Cache. Cache failures are
// not fatal: the wrapped client is queried instead.
type CachedClient struct {
	next  Client
	cache Cache
	ttl   time.Duration
	log   *zap.Logger
}

// NewCachedClient wraps next with cache. A ttl ≤ 0 keeps entries forever.
func NewCachedClient(next Client, cache Cache, ttl time.Duration, log *zap.Logger) *CachedClient {
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedClient{next: next, cache: cache, ttl: ttl, log: log}
}

func (c *CachedClient) Name() string {
	return c.next.Name()
}

func (c *CachedClient) Search(ctx context.Context, query string, maxResults int) ([]Hit, error) {
	key := CacheKey(c.next.Name(), query, maxResults)
	hits, ok, err := c.cache.GetSearch(ctx, key)
	if err != nil {
		c.log.Debug("search cache read failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		return hits, nil
	}

	hits, err = c.next.Search(ctx, query, maxResults)
	if err != nil {
		return nil, err
	}
	if err := c.cache.PutSearch(ctx, key, hits, c.ttl); err != nil {
		c.log.Debug("search cache write failed", zap.String("key", key), zap.Error(err))
	}
	return hits, nil
}

// LimitedClient spaces out requests to respect an engine's rate limit.
type LimitedClient struct {
	next    Client
	limiter *rate.Limiter
}

// NewLimitedClient allows perSecond requests per second with a burst of one.
// perSecond ≤ 0 disables limiting.
func NewLimitedClient(next Client, perSecond float64) *LimitedClient {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &LimitedClient{next: next, limiter: rate.NewLimiter(limit, 1)}
}

func (c *LimitedClient) Name() string {
	return c.next.Name()
}

func (c *LimitedClient) Search(ctx context.Context, query string, maxResults int) ([]Hit, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	return c.next.Search(ctx, query, maxResults)
}

func truncate(hits []Hit, maxResults int) []Hit {
	if maxResults > 0 && len(hits) > maxResults {
		return hits[:maxResults]
	}
	return hits
}
