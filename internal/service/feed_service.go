package service

import (
	"context"

	"github.com/d60-Lab/columnfeed/internal/cache"
	"github.com/d60-Lab/columnfeed/internal/feed"
	"github.com/d60-Lab/columnfeed/internal/model"
)

// FeedService assembles feed pages: one relationship snapshot per
// request, a filter chain built for the feed kind, and a pagination
// engine call. Because the store cannot filter server-side, the engine
// re-fetches deeper partitions whenever the filters eat into the page.
type FeedService struct {
	engine    *feed.Engine
	relations *cache.Relations
}

func NewFeedService(engine *feed.Engine, relations *cache.Relations) *FeedService {
	return &FeedService{engine: engine, relations: relations}
}

// actor builds the filter context for a user, or nil for anonymous
// callers.
func (s *FeedService) actor(ctx context.Context, userID string) (*feed.ActorContext, error) {
	if userID == "" || s.relations == nil {
		return nil, nil
	}
	snap, err := s.relations.Snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}

	blocked := make(map[string]struct{}, len(snap.Blockers)+len(snap.Blockings)+len(snap.Suspended))
	for _, set := range []map[string]struct{}{snap.Blockers, snap.Blockings, snap.Suspended} {
		for id := range set {
			blocked[id] = struct{}{}
		}
	}

	return &feed.ActorContext{
		UserID:         userID,
		Following:      snap.Following,
		ChannelFollows: snap.ChannelFollows,
		Muted:          snap.Mutings,
		MutedInstances: snap.MutedInstances,
		Blocked:        blocked,
		RenoteMuted:    snap.RenoteMutings,
		WordMute:       feed.CompileWordMute(snap.MutedWords),
	}, nil
}

// standardFilters is the chain every public feed applies. excludeAuthor
// exempts one author from the user-mute check, for that author's own
// page.
func standardFilters(actor *feed.ActorContext, withReplies bool, excludeAuthor string) feed.Filter {
	return feed.Compose(
		func(ps []model.Post) []model.Post { return feed.FilterVisibility(ps, actor) },
		func(ps []model.Post) []model.Post { return feed.FilterReplies(ps, actor, withReplies) },
		func(ps []model.Post) []model.Post { return feed.FilterChannel(ps, actor) },
		func(ps []model.Post) []model.Post { return feed.FilterMutedUsers(ps, actor, excludeAuthor) },
		func(ps []model.Post) []model.Post { return feed.FilterBlocked(ps, actor) },
		func(ps []model.Post) []model.Post { return feed.FilterMutedRenotes(ps, actor) },
		func(ps []model.Post) []model.Post { return feed.FilterWordMuted(ps, actor) },
	)
}

// Home serves the fan-out home timeline of p.UserID.
func (s *FeedService) Home(ctx context.Context, p feed.Params) ([]model.Post, error) {
	actor, err := s.actor(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	return s.engine.Notes(ctx, feed.KindHome, p, standardFilters(actor, true, ""))
}

// Local serves the instance-local public feed.
func (s *FeedService) Local(ctx context.Context, actorID string, withReplies bool, p feed.Params) ([]model.Post, error) {
	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	return s.engine.Notes(ctx, feed.KindLocal, p, standardFilters(actor, withReplies, ""))
}

// Global serves the federated public feed.
func (s *FeedService) Global(ctx context.Context, actorID string, withReplies bool, p feed.Params) ([]model.Post, error) {
	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	return s.engine.Notes(ctx, feed.KindGlobal, p, standardFilters(actor, withReplies, ""))
}

// Score serves the trending ("featured") feed.
func (s *FeedService) Score(ctx context.Context, actorID string, p feed.Params) ([]model.Post, error) {
	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	return s.engine.Notes(ctx, feed.KindScore, p, standardFilters(actor, true, ""))
}

// User serves one author's page; that author is exempt from the
// caller's user mutes but not from blocks.
func (s *FeedService) User(ctx context.Context, actorID string, withReplies bool, p feed.Params) ([]model.Post, error) {
	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	return s.engine.Notes(ctx, feed.KindUser, p, standardFilters(actor, withReplies, p.UserID))
}

// Channel serves one channel's feed. Membership gating happens at the
// channel layer upstream; the standard filters still apply, minus the
// channel filter itself.
func (s *FeedService) Channel(ctx context.Context, actorID string, p feed.Params) ([]model.Post, error) {
	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	filter := feed.Compose(
		func(ps []model.Post) []model.Post { return feed.FilterVisibility(ps, actor) },
		func(ps []model.Post) []model.Post { return feed.FilterMutedUsers(ps, actor, "") },
		func(ps []model.Post) []model.Post { return feed.FilterBlocked(ps, actor) },
		func(ps []model.Post) []model.Post { return feed.FilterWordMuted(ps, actor) },
	)
	return s.engine.Notes(ctx, feed.KindChannel, p, filter)
}

// Renotes serves the boosts of one note.
func (s *FeedService) Renotes(ctx context.Context, actorID string, p feed.Params) ([]model.Post, error) {
	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	return s.engine.Notes(ctx, feed.KindRenotes, p, standardFilters(actor, true, ""))
}

// List serves a user-list feed over its member pool.
func (s *FeedService) List(ctx context.Context, actorID string, p feed.Params) ([]model.Post, error) {
	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	return s.engine.Notes(ctx, feed.KindList, p, standardFilters(actor, true, ""))
}

// Antenna serves an antenna feed over its matched-author pool.
func (s *FeedService) Antenna(ctx context.Context, actorID string, p feed.Params) ([]model.Post, error) {
	actor, err := s.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	return s.engine.Notes(ctx, feed.KindAntenna, p, standardFilters(actor, true, ""))
}

// Reactions serves the reactions one user has made.
func (s *FeedService) Reactions(ctx context.Context, p feed.Params) ([]model.Reaction, error) {
	return s.engine.Reactions(ctx, p)
}

// MutedIDs exposes the caller's current user-mute set, for paths that
// filter outside the post pipeline (notifications).
func (s *FeedService) MutedIDs(ctx context.Context, userID string) (map[string]struct{}, error) {
	if userID == "" || s.relations == nil {
		return nil, nil
	}
	ids, err := s.relations.Mutings.GetAll(ctx, userID)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}
