// Package rediscache provides read-through Redis caching for reference
// lookups. Only successful answers are cached; errors always reach the caller
// and are retried on the next validation.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"rwadirectory/internal/ports"
)

const DefaultTTL = 6 * time.Hour

const keyPrefix = "rwa:ref:"

// store is the slice of Redis the cache uses.
type store interface {
	get(ctx context.Context, key string) ([]byte, bool, error)
	set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type redisStore struct{ client *redis.Client }

func (s redisStore) get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (s redisStore) set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

// Cache wraps reference clients with a shared Redis cache.
type Cache struct {
	store  store
	ttl    time.Duration
	logger *zap.Logger
}

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func New(client *redis.Client, ttl time.Duration, logger *zap.Logger) *Cache {
	return newCache(redisStore{client: client}, ttl, logger)
}

func newCache(s store, ttl time.Duration, logger *zap.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{store: s, ttl: ttl, logger: logger.Named("rediscache")}
}

func through[T any](ctx context.Context, c *Cache, key string, fetch func() (T, error)) (T, error) {
	key = keyPrefix + key
	if raw, ok, err := c.store.get(ctx, key); err != nil {
		c.logger.Debug("cache read failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			return v, nil
		}
	}

	v, err := fetch()
	if err != nil {
		return v, err
	}
	if raw, err := json.Marshal(v); err == nil {
		if err := c.store.set(ctx, key, raw, c.ttl); err != nil {
			c.logger.Debug("cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return v, nil
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Phishing caches a ports.PhishingLookup.
func (c *Cache) Phishing(next ports.PhishingLookup) ports.PhishingLookup {
	return phishing{c: c, next: next}
}

// Reputation caches a ports.URLReputation.
func (c *Cache) Reputation(next ports.URLReputation) ports.URLReputation {
	return reputation{c: c, next: next}
}

// Sanctions caches a ports.SanctionsSearch.
func (c *Cache) Sanctions(next ports.SanctionsSearch) ports.SanctionsSearch {
	return sanctions{c: c, next: next}
}

type phishing struct {
	c    *Cache
	next ports.PhishingLookup
}

func (p phishing) LookupDomain(ctx context.Context, domain string) (ports.PhishingVerdict, error) {
	return through(ctx, p.c, "phish:"+normalize(domain), func() (ports.PhishingVerdict, error) {
		return p.next.LookupDomain(ctx, domain)
	})
}

type reputation struct {
	c    *Cache
	next ports.URLReputation
}

func (r reputation) CheckURL(ctx context.Context, rawURL string) (ports.ThreatVerdict, error) {
	return through(ctx, r.c, "url:"+strings.TrimSpace(rawURL), func() (ports.ThreatVerdict, error) {
		return r.next.CheckURL(ctx, rawURL)
	})
}

type sanctions struct {
	c    *Cache
	next ports.SanctionsSearch
}

func (s sanctions) SearchName(ctx context.Context, name string) (ports.SanctionsMatch, error) {
	return through(ctx, s.c, "sanction:name:"+normalize(name), func() (ports.SanctionsMatch, error) {
		return s.next.SearchName(ctx, name)
	})
}

func (s sanctions) SearchAddress(ctx context.Context, address string) (ports.SanctionsMatch, error) {
	return through(ctx, s.c, "sanction:addr:"+normalize(address), func() (ports.SanctionsMatch, error) {
		return s.next.SearchAddress(ctx, address)
	})
}
