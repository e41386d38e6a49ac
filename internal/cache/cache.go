package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotCached is returned by Get when the key holds no value.
var ErrNotCached = errors.New("cache: key not cached")

// Cache is a keyed TTL cache storing JSON-encoded values in Redis under
// a shared prefix.
type Cache[T any] struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewCache builds a cache whose keys live under "cache:<name>:".
func NewCache[T any](rdb *redis.Client, name string, ttl time.Duration) *Cache[T] {
	return &Cache[T]{rdb: rdb, prefix: fmt.Sprintf("cache:%s:", name), ttl: ttl}
}

func (c *Cache[T]) key(k string) string { return c.prefix + k }

// Set stores the value under key with the cache's TTL.
func (c *Cache[T]) Set(ctx context.Context, k string, v T) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key(k), payload, c.ttl).Err()
}

// Get returns the cached value, or ErrNotCached on a miss.
func (c *Cache[T]) Get(ctx context.Context, k string) (T, error) {
	var v T
	data, err := c.rdb.Get(ctx, c.key(k)).Bytes()
	if errors.Is(err, redis.Nil) {
		return v, ErrNotCached
	}
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, err
	}
	return v, nil
}

// Delete removes the key.
func (c *Cache[T]) Delete(ctx context.Context, k string) error {
	return c.rdb.Del(ctx, c.key(k)).Err()
}

// Fetch returns the cached value when present and accepted by validator,
// otherwise calls loader, caches its result and returns it. Loader errors
// propagate unchanged and nothing is cached for them. When renew is true
// a cache hit refreshes the key's TTL. A nil validator accepts everything.
func (c *Cache[T]) Fetch(ctx context.Context, k string, renew bool, validator func(T) bool, loader func(ctx context.Context) (T, error)) (T, error) {
	v, err := c.Get(ctx, k)
	if err == nil && (validator == nil || validator(v)) {
		if renew {
			_ = c.rdb.Expire(ctx, c.key(k), c.ttl).Err()
		}
		return v, nil
	}

	v, err = loader(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	if err := c.Set(ctx, k, v); err != nil {
		return v, err
	}
	return v, nil
}

// FetchMaybe is Fetch for loaders that can report absence: a loader
// returning ok=false yields (zero, false, nil) and caches nothing, so
// the next call asks the loader again.
func (c *Cache[T]) FetchMaybe(ctx context.Context, k string, renew bool, loader func(ctx context.Context) (T, bool, error)) (T, bool, error) {
	v, err := c.Get(ctx, k)
	if err == nil {
		if renew {
			_ = c.rdb.Expire(ctx, c.key(k), c.ttl).Err()
		}
		return v, true, nil
	}

	v, ok, err := loader(ctx)
	if err != nil || !ok {
		var zero T
		return zero, false, err
	}
	if err := c.Set(ctx, k, v); err != nil {
		return v, true, err
	}
	return v, true, nil
}
