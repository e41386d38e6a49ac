package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/d60-Lab/columnfeed/internal/cache"
	"github.com/d60-Lab/columnfeed/internal/store"
)

// CountService serves per-note aggregate counts behind short-lived
// caches, so hot notes do not hit the store on every render.
type CountService struct {
	store     store.Store
	renotes   *cache.Cache[int64]
	reactions *cache.Cache[int64]
}

func NewCountService(st store.Store, rdb *redis.Client) *CountService {
	return &CountService{
		store:     st,
		renotes:   cache.NewCache[int64](rdb, "renoteCount", time.Hour),
		reactions: cache.NewCache[int64](rdb, "reactionCount", time.Hour),
	}
}

// RenoteCount counts boosts of a note.
func (s *CountService) RenoteCount(ctx context.Context, noteID string) (int64, error) {
	return s.renotes.Fetch(ctx, noteID, false, nil, func(ctx context.Context) (int64, error) {
		rows, err := s.store.Select(ctx, store.NoteByRenoteID, store.Row{"renoteId": noteID})
		if err != nil {
			return 0, err
		}
		return int64(len(rows)), nil
	})
}

// ReactionCount counts reactions on a note.
func (s *CountService) ReactionCount(ctx context.Context, noteID string) (int64, error) {
	return s.reactions.Fetch(ctx, noteID, false, nil, func(ctx context.Context) (int64, error) {
		rows, err := s.store.Select(ctx, store.ReactionsByNoteID, store.Row{"noteId": noteID})
		if err != nil {
			return 0, err
		}
		return int64(len(rows)), nil
	})
}

// Invalidate drops both cached counts for a note after a mutation.
func (s *CountService) Invalidate(ctx context.Context, noteID string) {
	_ = s.renotes.Delete(ctx, noteID)
	_ = s.reactions.Delete(ctx, noteID)
}
