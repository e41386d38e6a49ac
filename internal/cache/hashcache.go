package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// HashLoader loads the full field→expiry map for a subject. An empty
// expiry string means the entry never expires.
type HashLoader func(ctx context.Context, subject string) (map[string]string, error)

// HashCache mirrors a per-subject map of members with optional
// per-member expiry times into a Redis hash. Values are RFC 3339
// timestamps; the empty string marks an entry without expiry. Expired
// entries are evicted lazily on read.
type HashCache struct {
	rdb    *redis.Client
	name   string
	ttl    time.Duration
	loader HashLoader
	now    func() time.Time
}

// NewHashCache builds a hash cache named name. A negative ttl selects
// the one-hour default.
func NewHashCache(rdb *redis.Client, name string, ttl time.Duration, loader HashLoader) *HashCache {
	if ttl < 0 {
		ttl = defaultSetTTL
	}
	return &HashCache{rdb: rdb, name: name, ttl: ttl, loader: loader, now: time.Now}
}

func (h *HashCache) key(subject string) string {
	return fmt.Sprintf("hashcache:%s:%s", h.name, subject)
}

func (h *HashCache) fetchedKey(subject string) string {
	return h.key(subject) + ":fetched"
}

func (h *HashCache) ensure(ctx context.Context, subject string) error {
	n, err := h.rdb.Exists(ctx, h.fetchedKey(subject)).Result()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	entries, err := h.loader(ctx, subject)
	if err != nil {
		return err
	}

	pipe := h.rdb.TxPipeline()
	pipe.Del(ctx, h.key(subject))
	if len(entries) > 0 {
		args := make([]interface{}, 0, len(entries)*2)
		for field, expiry := range entries {
			args = append(args, field, expiry)
		}
		pipe.HSet(ctx, h.key(subject), args...)
		pipe.Expire(ctx, h.key(subject), h.ttl)
	}
	pipe.Set(ctx, h.fetchedKey(subject), "1", fetchedMarkerTTL)
	_, err = pipe.Exec(ctx)
	return err
}

// Set records field for subject with an optional expiry.
func (h *HashCache) Set(ctx context.Context, subject, field string, expiresAt *time.Time) error {
	value := ""
	if expiresAt != nil {
		value = expiresAt.UTC().Format(time.RFC3339Nano)
	}
	pipe := h.rdb.TxPipeline()
	pipe.HSet(ctx, h.key(subject), field, value)
	pipe.Expire(ctx, h.key(subject), h.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// Delete removes field from the subject's hash.
func (h *HashCache) Delete(ctx context.Context, subject, field string) error {
	return h.rdb.HDel(ctx, h.key(subject), field).Err()
}

// expired reports whether the stored expiry value has passed. Unparsable
// values count as expired so bad entries age out.
func (h *HashCache) expired(value string) bool {
	if value == "" {
		return false
	}
	at, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return true
	}
	return !at.After(h.now())
}

// Has reports whether subject currently holds an unexpired entry for
// field, evicting it when expired.
func (h *HashCache) Has(ctx context.Context, subject, field string) (bool, error) {
	if err := h.ensure(ctx, subject); err != nil {
		return false, err
	}
	value, err := h.rdb.HGet(ctx, h.key(subject), field).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if h.expired(value) {
		_ = h.rdb.HDel(ctx, h.key(subject), field).Err()
		return false, nil
	}
	return true, nil
}

// GetAll returns the subject's unexpired fields, evicting expired ones.
func (h *HashCache) GetAll(ctx context.Context, subject string) ([]string, error) {
	if err := h.ensure(ctx, subject); err != nil {
		return nil, err
	}
	entries, err := h.rdb.HGetAll(ctx, h.key(subject)).Result()
	if err != nil {
		return nil, err
	}
	fields := make([]string, 0, len(entries))
	var stale []string
	for field, value := range entries {
		if h.expired(value) {
			stale = append(stale, field)
			continue
		}
		fields = append(fields, field)
	}
	if len(stale) > 0 {
		_ = h.rdb.HDel(ctx, h.key(subject), stale...).Err()
	}
	return fields, nil
}

// Clear drops the subject's hash and its fetched marker.
func (h *HashCache) Clear(ctx context.Context, subject string) error {
	return h.rdb.Del(ctx, h.key(subject), h.fetchedKey(subject)).Err()
}
