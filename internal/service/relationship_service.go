package service

import (
	"context"
	"errors"
	"time"

	"github.com/d60-Lab/columnfeed/internal/cache"
	"github.com/d60-Lab/columnfeed/internal/model"
	"github.com/d60-Lab/columnfeed/internal/repository"
)

var (
	ErrFollowSelf = errors.New("cannot follow self")
	ErrBlocked    = errors.New("relation blocked")
)

// RelationshipService mutates the social graph. Every mutation writes
// the relational source of truth and the Redis relation caches
// synchronously, so feeds see the change immediately instead of waiting
// for the next resync.
type RelationshipService struct {
	repo      repository.RelationRepository
	relations *cache.Relations
}

func NewRelationshipService(repo repository.RelationRepository, relations *cache.Relations) *RelationshipService {
	return &RelationshipService{repo: repo, relations: relations}
}

// Follow makes fromUserID follow toUserID. Rejected when either side
// blocks the other.
func (s *RelationshipService) Follow(ctx context.Context, fromUserID, toUserID string) error {
	if fromUserID == toUserID {
		return ErrFollowSelf
	}
	if blocked, err := s.eitherBlocks(ctx, fromUserID, toUserID); err != nil {
		return err
	} else if blocked {
		return ErrBlocked
	}
	if err := s.repo.CreateFollow(ctx, fromUserID, toUserID, ""); err != nil {
		return err
	}
	if err := s.relations.Following.Add(ctx, fromUserID, toUserID); err != nil {
		return err
	}
	return s.relations.LocalFollowers.Add(ctx, toUserID, fromUserID)
}

// Unfollow removes the follow edge in both cache directions.
func (s *RelationshipService) Unfollow(ctx context.Context, fromUserID, toUserID string) error {
	if err := s.repo.DeleteFollow(ctx, fromUserID, toUserID); err != nil {
		return err
	}
	if err := s.relations.Following.Remove(ctx, fromUserID, toUserID); err != nil {
		return err
	}
	return s.relations.LocalFollowers.Remove(ctx, toUserID, fromUserID)
}

// Mute hides muteeID's posts from muterID, optionally until expiresAt.
func (s *RelationshipService) Mute(ctx context.Context, muterID, muteeID string, expiresAt *time.Time) error {
	if err := s.repo.CreateMuting(ctx, muterID, muteeID, expiresAt); err != nil {
		return err
	}
	return s.relations.Mutings.Set(ctx, muterID, muteeID, expiresAt)
}

func (s *RelationshipService) Unmute(ctx context.Context, muterID, muteeID string) error {
	if err := s.repo.DeleteMuting(ctx, muterID, muteeID); err != nil {
		return err
	}
	return s.relations.Mutings.Delete(ctx, muterID, muteeID)
}

// MuteRenotes hides muteeID's boost-only renotes from muterID.
func (s *RelationshipService) MuteRenotes(ctx context.Context, muterID, muteeID string) error {
	if err := s.repo.CreateRenoteMuting(ctx, muterID, muteeID); err != nil {
		return err
	}
	return s.relations.RenoteMutings.Add(ctx, muterID, muteeID)
}

func (s *RelationshipService) UnmuteRenotes(ctx context.Context, muterID, muteeID string) error {
	if err := s.repo.DeleteRenoteMuting(ctx, muterID, muteeID); err != nil {
		return err
	}
	return s.relations.RenoteMutings.Remove(ctx, muterID, muteeID)
}

// Block makes blockerID block blockeeID and severs follows in both
// directions.
func (s *RelationshipService) Block(ctx context.Context, blockerID, blockeeID string) error {
	if err := s.repo.CreateBlocking(ctx, blockerID, blockeeID); err != nil {
		return err
	}
	if err := s.relations.Blockings.Add(ctx, blockerID, blockeeID); err != nil {
		return err
	}
	if err := s.relations.Blockers.Add(ctx, blockeeID, blockerID); err != nil {
		return err
	}
	if err := s.Unfollow(ctx, blockerID, blockeeID); err != nil {
		return err
	}
	return s.Unfollow(ctx, blockeeID, blockerID)
}

func (s *RelationshipService) Unblock(ctx context.Context, blockerID, blockeeID string) error {
	if err := s.repo.DeleteBlocking(ctx, blockerID, blockeeID); err != nil {
		return err
	}
	if err := s.relations.Blockings.Remove(ctx, blockerID, blockeeID); err != nil {
		return err
	}
	return s.relations.Blockers.Remove(ctx, blockeeID, blockerID)
}

// FollowChannel subscribes userID to channelID.
func (s *RelationshipService) FollowChannel(ctx context.Context, userID, channelID string) error {
	if err := s.repo.CreateChannelFollowing(ctx, userID, channelID); err != nil {
		return err
	}
	return s.relations.ChannelFollows.Add(ctx, userID, channelID)
}

func (s *RelationshipService) UnfollowChannel(ctx context.Context, userID, channelID string) error {
	if err := s.repo.DeleteChannelFollowing(ctx, userID, channelID); err != nil {
		return err
	}
	return s.relations.ChannelFollows.Remove(ctx, userID, channelID)
}

// SetMutedWords replaces the user's hard word-mute rules.
func (s *RelationshipService) SetMutedWords(ctx context.Context, userID string, words []model.MutedWord) error {
	profile, err := s.loadOrNewProfile(ctx, userID)
	if err != nil {
		return err
	}
	profile.MutedWords = words
	if err := s.repo.SaveProfile(ctx, profile); err != nil {
		return err
	}
	return s.relations.MutedWords.Set(ctx, userID, words)
}

// SetMutedInstances replaces the user's muted instance hosts.
func (s *RelationshipService) SetMutedInstances(ctx context.Context, userID string, hosts []string) error {
	profile, err := s.loadOrNewProfile(ctx, userID)
	if err != nil {
		return err
	}
	profile.MutedInstances = hosts
	if err := s.repo.SaveProfile(ctx, profile); err != nil {
		return err
	}
	// Drop the cached set so the next read reloads the new list.
	return s.relations.InstanceMutings.Clear(ctx, userID)
}

// Snapshot returns the user's full relation state as the feed layer
// sees it.
func (s *RelationshipService) Snapshot(ctx context.Context, userID string) (*cache.Snapshot, error) {
	return s.relations.Snapshot(ctx, userID)
}

func (s *RelationshipService) loadOrNewProfile(ctx context.Context, userID string) (*model.UserProfile, error) {
	profile, err := s.repo.Profile(ctx, userID)
	if errors.Is(err, model.ErrProfileNotFound) {
		return &model.UserProfile{UserID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *RelationshipService) eitherBlocks(ctx context.Context, a, b string) (bool, error) {
	if blocked, err := s.relations.Blockings.Has(ctx, a, b); err != nil || blocked {
		return blocked, err
	}
	return s.relations.Blockings.Has(ctx, b, a)
}
