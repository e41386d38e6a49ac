package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/d60-Lab/columnfeed/internal/cache"
	"github.com/d60-Lab/columnfeed/internal/model"
	"github.com/d60-Lab/columnfeed/internal/repository"
)

func newRelationshipFixture(t *testing.T) (*RelationshipService, *cache.Relations, repository.RelationRepository) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.UserProfile{},
		&model.Follow{},
		&model.Muting{},
		&model.RenoteMuting{},
		&model.Blocking{},
		&model.Channel{},
		&model.ChannelFollowing{},
	))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	repo := repository.NewRelationRepository(db)
	relations := cache.NewRelations(rdb, repo, time.Hour)
	return NewRelationshipService(repo, relations), relations, repo
}

func TestFollowWritesThroughBothCacheDirections(t *testing.T) {
	ctx := context.Background()
	svc, relations, repo := newRelationshipFixture(t)

	require.NoError(t, svc.Follow(ctx, "u1", "u2"))

	ok, err := relations.Following.Has(ctx, "u1", "u2")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = relations.LocalFollowers.Has(ctx, "u2", "u1")
	require.NoError(t, err)
	assert.True(t, ok)

	// The relational row exists too.
	exists, err := repo.FollowExists(ctx, "u1", "u2")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, svc.Unfollow(ctx, "u1", "u2"))
	ok, err = relations.Following.Has(ctx, "u1", "u2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFollowSelfRejected(t *testing.T) {
	svc, _, _ := newRelationshipFixture(t)
	assert.ErrorIs(t, svc.Follow(context.Background(), "u1", "u1"), ErrFollowSelf)
}

func TestBlockSeversFollowsAndPreventsNewOnes(t *testing.T) {
	ctx := context.Background()
	svc, relations, repo := newRelationshipFixture(t)

	require.NoError(t, svc.Follow(ctx, "u1", "u2"))
	require.NoError(t, svc.Follow(ctx, "u2", "u1"))

	require.NoError(t, svc.Block(ctx, "u1", "u2"))

	for _, pair := range [][2]string{{"u1", "u2"}, {"u2", "u1"}} {
		exists, err := repo.FollowExists(ctx, pair[0], pair[1])
		require.NoError(t, err)
		assert.False(t, exists, "block must sever %s -> %s", pair[0], pair[1])
	}

	assert.ErrorIs(t, svc.Follow(ctx, "u1", "u2"), ErrBlocked)
	assert.ErrorIs(t, svc.Follow(ctx, "u2", "u1"), ErrBlocked)

	snap, err := relations.Snapshot(ctx, "u2")
	require.NoError(t, err)
	assert.Contains(t, snap.Blockers, "u1")

	require.NoError(t, svc.Unblock(ctx, "u1", "u2"))
	assert.NoError(t, svc.Follow(ctx, "u1", "u2"))
}

func TestMuteWithExpiry(t *testing.T) {
	ctx := context.Background()
	svc, relations, _ := newRelationshipFixture(t)

	until := time.Now().Add(time.Hour)
	require.NoError(t, svc.Mute(ctx, "u1", "noisy", &until))
	require.NoError(t, svc.Mute(ctx, "u1", "forever", nil))

	snap, err := relations.Snapshot(ctx, "u1")
	require.NoError(t, err)
	assert.Contains(t, snap.Mutings, "noisy")
	assert.Contains(t, snap.Mutings, "forever")

	require.NoError(t, svc.Unmute(ctx, "u1", "noisy"))
	snap, err = relations.Snapshot(ctx, "u1")
	require.NoError(t, err)
	assert.NotContains(t, snap.Mutings, "noisy")
}

func TestRenoteMuteRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, relations, _ := newRelationshipFixture(t)

	require.NoError(t, svc.MuteRenotes(ctx, "u1", "booster"))
	snap, err := relations.Snapshot(ctx, "u1")
	require.NoError(t, err)
	assert.Contains(t, snap.RenoteMutings, "booster")

	require.NoError(t, svc.UnmuteRenotes(ctx, "u1", "booster"))
	snap, err = relations.Snapshot(ctx, "u1")
	require.NoError(t, err)
	assert.NotContains(t, snap.RenoteMutings, "booster")
}

func TestChannelFollowRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, relations, _ := newRelationshipFixture(t)

	require.NoError(t, svc.FollowChannel(ctx, "u1", "c1"))
	ok, err := relations.ChannelFollows.Has(ctx, "u1", "c1")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, svc.UnfollowChannel(ctx, "u1", "c1"))
	ok, err = relations.ChannelFollows.Has(ctx, "u1", "c1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetMutedWordsAndInstances(t *testing.T) {
	ctx := context.Background()
	svc, relations, _ := newRelationshipFixture(t)

	words := []model.MutedWord{{Words: []string{"spoiler"}}, {Pattern: "/^breaking/i"}}
	require.NoError(t, svc.SetMutedWords(ctx, "u1", words))
	require.NoError(t, svc.SetMutedInstances(ctx, "u1", []string{"bad.example"}))

	snap, err := relations.Snapshot(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, snap.MutedWords, 2)
	assert.Contains(t, snap.MutedInstances, "bad.example")

	// The second write must not wipe the first field.
	require.NoError(t, svc.SetMutedInstances(ctx, "u1", []string{"worse.example"}))
	snap, err = relations.Snapshot(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, snap.MutedWords, 2)
	assert.Contains(t, snap.MutedInstances, "worse.example")
}
