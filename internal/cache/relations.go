package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/d60-Lab/columnfeed/internal/model"
)

// RelationSource loads relationship state from the primary store. The
// repository layer implements it.
type RelationSource interface {
	FollowingIDs(ctx context.Context, userID string) ([]string, error)
	LocalFollowerIDs(ctx context.Context, userID string) ([]string, error)
	ChannelFollowingIDs(ctx context.Context, userID string) ([]string, error)
	MutingsWithExpiry(ctx context.Context, userID string) (map[string]string, error)
	MutedInstances(ctx context.Context, userID string) ([]string, error)
	BlockerIDs(ctx context.Context, userID string) ([]string, error)
	BlockingIDs(ctx context.Context, userID string) ([]string, error)
	RenoteMuteeIDs(ctx context.Context, userID string) ([]string, error)
	MutedWords(ctx context.Context, userID string) ([]model.MutedWord, error)
	SuspendedIDs(ctx context.Context) ([]string, error)
}

// Relations bundles the per-relation caches the feed path reads on every
// request. All caches are write-through: relationship mutations update
// Redis synchronously so feeds reflect them immediately.
type Relations struct {
	Following       *SetCache
	LocalFollowers  *SetCache
	ChannelFollows  *SetCache
	Mutings         *HashCache
	InstanceMutings *SetCache
	Blockers        *SetCache
	Blockings       *SetCache
	RenoteMutings   *SetCache
	Suspended       *SetCache // instance-wide, single subject
	MutedWords      *Cache[[]model.MutedWord]

	source RelationSource
}

// suspendedSubject keys the instance-wide suspended account set.
const suspendedSubject = "local"

// NewRelations wires every relation cache against src. ttl bounds the
// Redis set lifetimes; a negative ttl selects the default.
func NewRelations(rdb *redis.Client, src RelationSource, ttl time.Duration) *Relations {
	return &Relations{
		Following:       NewSetCache(rdb, "following", ttl, src.FollowingIDs),
		LocalFollowers:  NewSetCache(rdb, "localFollowers", ttl, src.LocalFollowerIDs),
		ChannelFollows:  NewSetCache(rdb, "channelFollowing", ttl, src.ChannelFollowingIDs),
		Mutings:         NewHashCache(rdb, "muting", ttl, src.MutingsWithExpiry),
		InstanceMutings: NewSetCache(rdb, "instanceMute", ttl, src.MutedInstances),
		Blockers:        NewSetCache(rdb, "blockers", ttl, src.BlockerIDs),
		Blockings:       NewSetCache(rdb, "blocking", ttl, src.BlockingIDs),
		RenoteMutings:   NewSetCache(rdb, "renoteMuting", ttl, src.RenoteMuteeIDs),
		Suspended: NewSetCache(rdb, "suspended", ttl, func(ctx context.Context, _ string) ([]string, error) {
			return src.SuspendedIDs(ctx)
		}),
		MutedWords: NewCache[[]model.MutedWord](rdb, "mutedWords", ttl),
		source:     src,
	}
}

// Snapshot is a point-in-time view of one user's relationship state,
// consumed by the feed filter pipeline.
type Snapshot struct {
	UserID         string
	Following      map[string]struct{}
	ChannelFollows map[string]struct{}
	Mutings        map[string]struct{}
	MutedInstances map[string]struct{}
	Blockers       map[string]struct{}
	Blockings      map[string]struct{}
	RenoteMutings  map[string]struct{}
	Suspended      map[string]struct{}
	MutedWords     []model.MutedWord
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Snapshot assembles the full relationship view for userID, reading
// each relation cache (resyncing stale ones from the primary store).
func (r *Relations) Snapshot(ctx context.Context, userID string) (*Snapshot, error) {
	following, err := r.Following.GetAll(ctx, userID)
	if err != nil {
		return nil, err
	}
	channels, err := r.ChannelFollows.GetAll(ctx, userID)
	if err != nil {
		return nil, err
	}
	mutings, err := r.Mutings.GetAll(ctx, userID)
	if err != nil {
		return nil, err
	}
	instances, err := r.InstanceMutings.GetAll(ctx, userID)
	if err != nil {
		return nil, err
	}
	blockers, err := r.Blockers.GetAll(ctx, userID)
	if err != nil {
		return nil, err
	}
	blockings, err := r.Blockings.GetAll(ctx, userID)
	if err != nil {
		return nil, err
	}
	renoteMutings, err := r.RenoteMutings.GetAll(ctx, userID)
	if err != nil {
		return nil, err
	}
	suspended, err := r.Suspended.GetAll(ctx, suspendedSubject)
	if err != nil {
		return nil, err
	}
	words, err := r.MutedWords.Fetch(ctx, userID, false, nil, func(ctx context.Context) ([]model.MutedWord, error) {
		return r.source.MutedWords(ctx, userID)
	})
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		UserID:         userID,
		Following:      toSet(following),
		ChannelFollows: toSet(channels),
		Mutings:        toSet(mutings),
		MutedInstances: toSet(instances),
		Blockers:       toSet(blockers),
		Blockings:      toSet(blockings),
		RenoteMutings:  toSet(renoteMutings),
		Suspended:      toSet(suspended),
		MutedWords:     words,
	}, nil
}
