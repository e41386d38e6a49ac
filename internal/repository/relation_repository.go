package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/columnfeed/internal/model"
)

// RelationRepository is the relational source of truth for follow,
// mute, block and channel edges. The Redis relation caches load from it
// and every mutation here is paired with a synchronous cache update in
// the service layer.
type RelationRepository interface {
	CreateFollow(ctx context.Context, followerID, followeeID, followerHost string) error
	DeleteFollow(ctx context.Context, followerID, followeeID string) error
	FollowExists(ctx context.Context, followerID, followeeID string) (bool, error)

	CreateMuting(ctx context.Context, muterID, muteeID string, expiresAt *time.Time) error
	DeleteMuting(ctx context.Context, muterID, muteeID string) error

	CreateRenoteMuting(ctx context.Context, muterID, muteeID string) error
	DeleteRenoteMuting(ctx context.Context, muterID, muteeID string) error

	CreateBlocking(ctx context.Context, blockerID, blockeeID string) error
	DeleteBlocking(ctx context.Context, blockerID, blockeeID string) error

	CreateChannelFollowing(ctx context.Context, followerID, channelID string) error
	DeleteChannelFollowing(ctx context.Context, followerID, channelID string) error

	// Loaders backing the Redis relation caches.
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

	Profile(ctx context.Context, userID string) (*model.UserProfile, error)
	SaveProfile(ctx context.Context, profile *model.UserProfile) error
}

type relationRepository struct {
	db *gorm.DB
}

func NewRelationRepository(db *gorm.DB) RelationRepository { return &relationRepository{db: db} }

func (r *relationRepository) CreateFollow(ctx context.Context, followerID, followeeID, followerHost string) error {
	f := &model.Follow{
		ID:           uuid.New().String(),
		FollowerID:   followerID,
		FolloweeID:   followeeID,
		FollowerHost: followerHost,
	}
	// Idempotent: re-following is a no-op.
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(f).Error
}

func (r *relationRepository) DeleteFollow(ctx context.Context, followerID, followeeID string) error {
	return r.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Delete(&model.Follow{}).Error
}

func (r *relationRepository) FollowExists(ctx context.Context, followerID, followeeID string) (bool, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.Follow{}).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

func (r *relationRepository) CreateMuting(ctx context.Context, muterID, muteeID string, expiresAt *time.Time) error {
	m := &model.Muting{
		ID:        uuid.New().String(),
		MuterID:   muterID,
		MuteeID:   muteeID,
		ExpiresAt: expiresAt,
	}
	// Re-muting refreshes the expiry instead of failing.
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "muter_id"}, {Name: "mutee_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"expires_at"}),
	}).Create(m).Error
}

func (r *relationRepository) DeleteMuting(ctx context.Context, muterID, muteeID string) error {
	return r.db.WithContext(ctx).
		Where("muter_id = ? AND mutee_id = ?", muterID, muteeID).
		Delete(&model.Muting{}).Error
}

func (r *relationRepository) CreateRenoteMuting(ctx context.Context, muterID, muteeID string) error {
	m := &model.RenoteMuting{ID: uuid.New().String(), MuterID: muterID, MuteeID: muteeID}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(m).Error
}

func (r *relationRepository) DeleteRenoteMuting(ctx context.Context, muterID, muteeID string) error {
	return r.db.WithContext(ctx).
		Where("muter_id = ? AND mutee_id = ?", muterID, muteeID).
		Delete(&model.RenoteMuting{}).Error
}

func (r *relationRepository) CreateBlocking(ctx context.Context, blockerID, blockeeID string) error {
	b := &model.Blocking{ID: uuid.New().String(), BlockerID: blockerID, BlockeeID: blockeeID}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(b).Error
}

func (r *relationRepository) DeleteBlocking(ctx context.Context, blockerID, blockeeID string) error {
	return r.db.WithContext(ctx).
		Where("blocker_id = ? AND blockee_id = ?", blockerID, blockeeID).
		Delete(&model.Blocking{}).Error
}

func (r *relationRepository) CreateChannelFollowing(ctx context.Context, followerID, channelID string) error {
	f := &model.ChannelFollowing{ID: uuid.New().String(), FollowerID: followerID, FolloweeID: channelID}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(f).Error
}

func (r *relationRepository) DeleteChannelFollowing(ctx context.Context, followerID, channelID string) error {
	return r.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", followerID, channelID).
		Delete(&model.ChannelFollowing{}).Error
}

func (r *relationRepository) FollowingIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.Follow{}).
		Select("followee_id").
		Where("follower_id = ?", userID).
		Scan(&ids).Error
	return ids, err
}

func (r *relationRepository) LocalFollowerIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.Follow{}).
		Select("follower_id").
		Where("followee_id = ? AND follower_host = ''", userID).
		Scan(&ids).Error
	return ids, err
}

func (r *relationRepository) ChannelFollowingIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.ChannelFollowing{}).
		Select("followee_id").
		Where("follower_id = ?", userID).
		Scan(&ids).Error
	return ids, err
}

func (r *relationRepository) MutingsWithExpiry(ctx context.Context, userID string) (map[string]string, error) {
	var rows []model.Muting
	if err := r.db.WithContext(ctx).
		Where("muter_id = ?", userID).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, m := range rows {
		expiry := ""
		if m.ExpiresAt != nil {
			expiry = m.ExpiresAt.UTC().Format(time.RFC3339Nano)
		}
		out[m.MuteeID] = expiry
	}
	return out, nil
}

func (r *relationRepository) BlockerIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.Blocking{}).
		Select("blocker_id").
		Where("blockee_id = ?", userID).
		Scan(&ids).Error
	return ids, err
}

func (r *relationRepository) BlockingIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.Blocking{}).
		Select("blockee_id").
		Where("blocker_id = ?", userID).
		Scan(&ids).Error
	return ids, err
}

func (r *relationRepository) RenoteMuteeIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.RenoteMuting{}).
		Select("mutee_id").
		Where("muter_id = ?", userID).
		Scan(&ids).Error
	return ids, err
}

func (r *relationRepository) SuspendedIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.User{}).
		Select("id").
		Where("is_suspended = ?", true).
		Scan(&ids).Error
	return ids, err
}

func (r *relationRepository) MutedWords(ctx context.Context, userID string) ([]model.MutedWord, error) {
	profile, err := r.Profile(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrProfileNotFound) {
			return []model.MutedWord{}, nil
		}
		return nil, err
	}
	return profile.MutedWords, nil
}

func (r *relationRepository) MutedInstances(ctx context.Context, userID string) ([]string, error) {
	profile, err := r.Profile(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrProfileNotFound) {
			return []string{}, nil
		}
		return nil, err
	}
	return profile.MutedInstances, nil
}

func (r *relationRepository) Profile(ctx context.Context, userID string) (*model.UserProfile, error) {
	var p model.UserProfile
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *relationRepository) SaveProfile(ctx context.Context, profile *model.UserProfile) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		UpdateAll: true,
	}).Create(profile).Error
}
