package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	fetchedMarkerTTL = 30 * time.Minute
	defaultSetTTL    = time.Hour
)

// SetLoader loads the full membership set for a subject from the
// primary store.
type SetLoader func(ctx context.Context, subject string) ([]string, error)

// SetCache mirrors a per-subject membership set (followings, blockings,
// channel subscriptions) into a Redis set. A companion ":fetched" marker
// key records that the set was synced recently; once the marker lapses
// the next read reloads the whole set from the loader.
type SetCache struct {
	rdb    *redis.Client
	name   string
	ttl    time.Duration
	loader SetLoader
}

// NewSetCache builds a set cache named name. ttl bounds the lifetime of
// the Redis set itself; a negative ttl selects the one-hour default.
func NewSetCache(rdb *redis.Client, name string, ttl time.Duration, loader SetLoader) *SetCache {
	if ttl < 0 {
		ttl = defaultSetTTL
	}
	return &SetCache{rdb: rdb, name: name, ttl: ttl, loader: loader}
}

func (s *SetCache) key(subject string) string {
	return fmt.Sprintf("setcache:%s:%s", s.name, subject)
}

func (s *SetCache) fetchedKey(subject string) string {
	return s.key(subject) + ":fetched"
}

// ensure resyncs the set from the loader when the fetched marker has
// expired. The loader's members are merged into the existing set rather
// than replacing it: a write-through Add made before the marker existed
// must stay visible. Stale members age out with the set's own TTL, or
// via an explicit Clear.
func (s *SetCache) ensure(ctx context.Context, subject string) error {
	n, err := s.rdb.Exists(ctx, s.fetchedKey(subject)).Result()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	members, err := s.loader(ctx, subject)
	if err != nil {
		return err
	}

	pipe := s.rdb.TxPipeline()
	if len(members) > 0 {
		args := make([]interface{}, len(members))
		for i, m := range members {
			args[i] = m
		}
		pipe.SAdd(ctx, s.key(subject), args...)
	}
	pipe.Expire(ctx, s.key(subject), s.ttl)
	pipe.Set(ctx, s.fetchedKey(subject), "1", fetchedMarkerTTL)
	_, err = pipe.Exec(ctx)
	return err
}

// Add inserts members into the subject's set without consulting the
// loader, so write-through updates are visible immediately.
func (s *SetCache) Add(ctx context.Context, subject string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	pipe := s.rdb.TxPipeline()
	pipe.SAdd(ctx, s.key(subject), args...)
	pipe.Expire(ctx, s.key(subject), s.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// Remove deletes members from the subject's set.
func (s *SetCache) Remove(ctx context.Context, subject string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	return s.rdb.SRem(ctx, s.key(subject), args...).Err()
}

// Has reports whether member belongs to the subject's set, resyncing
// first when stale.
func (s *SetCache) Has(ctx context.Context, subject, member string) (bool, error) {
	if err := s.ensure(ctx, subject); err != nil {
		return false, err
	}
	return s.rdb.SIsMember(ctx, s.key(subject), member).Result()
}

// GetAll returns every member of the subject's set, resyncing first when
// stale.
func (s *SetCache) GetAll(ctx context.Context, subject string) ([]string, error) {
	if err := s.ensure(ctx, subject); err != nil {
		return nil, err
	}
	members, err := s.rdb.SMembers(ctx, s.key(subject)).Result()
	if err != nil {
		return nil, err
	}
	return members, nil
}

// Exists reports whether the subject's set is currently non-empty.
func (s *SetCache) Exists(ctx context.Context, subject string) (bool, error) {
	if err := s.ensure(ctx, subject); err != nil {
		return false, err
	}
	n, err := s.rdb.SCard(ctx, s.key(subject)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Clear drops the subject's set and its fetched marker, forcing the next
// read to reload from the primary store.
func (s *SetCache) Clear(ctx context.Context, subject string) error {
	return s.rdb.Del(ctx, s.key(subject), s.fetchedKey(subject)).Err()
}
