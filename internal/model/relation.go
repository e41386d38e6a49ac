package model

import "time"

// Follow records that FollowerID follows FolloweeID.
// idx_follow_pair = (follower_id, followee_id) keeps the edge unique.
type Follow struct {
	ID           string `gorm:"primaryKey;type:varchar(36)"`
	FollowerID   string `gorm:"type:varchar(36);index:idx_follow_follower;index:idx_follow_pair,unique;not null"`
	FolloweeID   string `gorm:"type:varchar(36);index:idx_follow_followee;index:idx_follow_pair,unique;not null"`
	FollowerHost string `gorm:"type:varchar(256)"` // "" = local follower
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (Follow) TableName() string { return "follows" }

// Muting hides MuteeID's posts from MuterID. A nil ExpiresAt mutes forever.
type Muting struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	MuterID   string `gorm:"type:varchar(36);index:idx_muting_muter;index:idx_muting_pair,unique;not null"`
	MuteeID   string `gorm:"type:varchar(36);index:idx_muting_pair,unique;not null"`
	ExpiresAt *time.Time
	CreatedAt time.Time
}

func (Muting) TableName() string { return "mutings" }

// RenoteMuting hides MuteeID's boost-only renotes from MuterID.
type RenoteMuting struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	MuterID   string `gorm:"type:varchar(36);index:idx_renote_muting_muter;index:idx_renote_muting_pair,unique;not null"`
	MuteeID   string `gorm:"type:varchar(36);index:idx_renote_muting_pair,unique;not null"`
	CreatedAt time.Time
}

func (RenoteMuting) TableName() string { return "renote_mutings" }

// Blocking records that BlockerID blocks BlockeeID.
type Blocking struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	BlockerID string `gorm:"type:varchar(36);index:idx_blocking_blocker;index:idx_blocking_pair,unique;not null"`
	BlockeeID string `gorm:"type:varchar(36);index:idx_blocking_blockee;index:idx_blocking_pair,unique;not null"`
	CreatedAt time.Time
}

func (Blocking) TableName() string { return "blockings" }

// Channel is a topic room posts may be scoped to.
type Channel struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	Name      string `gorm:"type:varchar(128)"`
	UserID    string `gorm:"type:varchar(36);index:idx_channel_owner"`
	CreatedAt time.Time
}

func (Channel) TableName() string { return "channels" }

// ChannelFollowing records that FollowerID follows channel FolloweeID.
type ChannelFollowing struct {
	ID         string `gorm:"primaryKey;type:varchar(36)"`
	FollowerID string `gorm:"type:varchar(36);index:idx_channel_following_follower;index:idx_channel_following_pair,unique;not null"`
	FolloweeID string `gorm:"type:varchar(36);index:idx_channel_following_pair,unique;not null"`
	CreatedAt  time.Time
}

func (ChannelFollowing) TableName() string { return "channel_followings" }
