package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/d60-Lab/columnfeed/internal/model"
)

func ids(posts []model.Post) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.ID
	}
	return out
}

func set(members ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(members))
	for _, m := range members {
		s[m] = struct{}{}
	}
	return s
}

func TestFilterVisibilityUnauthenticated(t *testing.T) {
	posts := []model.Post{
		{ID: "pub", Visibility: model.VisibilityPublic, UserID: "a"},
		{ID: "home", Visibility: model.VisibilityHome, UserID: "a"},
		{ID: "fol", Visibility: model.VisibilityFollowers, UserID: "a"},
		{ID: "spec", Visibility: model.VisibilitySpecified, UserID: "a", VisibleUserIDs: []string{"b"}},
	}

	assert.Equal(t, []string{"pub", "home"}, ids(FilterVisibility(posts, nil)))
	assert.Equal(t, []string{"pub", "home"}, ids(FilterVisibility(posts, &ActorContext{})))
}

func TestFilterVisibilityAuthenticated(t *testing.T) {
	actor := &ActorContext{UserID: "me", Following: set("friend")}
	posts := []model.Post{
		{ID: "own", Visibility: model.VisibilityFollowers, UserID: "me"},
		{ID: "followed", Visibility: model.VisibilityFollowers, UserID: "friend"},
		{ID: "stranger", Visibility: model.VisibilityFollowers, UserID: "other"},
		{ID: "replyToMe", Visibility: model.VisibilityFollowers, UserID: "other", ReplyID: "x", ReplyUserID: "me"},
		{ID: "dm", Visibility: model.VisibilitySpecified, UserID: "other", VisibleUserIDs: []string{"me"}},
		{ID: "otherDm", Visibility: model.VisibilitySpecified, UserID: "other", VisibleUserIDs: []string{"them"}},
		{ID: "mention", Visibility: model.VisibilitySpecified, UserID: "other", Mentions: []string{"me"}},
	}

	assert.Equal(t,
		[]string{"own", "followed", "replyToMe", "dm", "mention"},
		ids(FilterVisibility(posts, actor)))
}

func TestFilterReplies(t *testing.T) {
	actor := &ActorContext{UserID: "me"}
	posts := []model.Post{
		{ID: "plain", UserID: "a"},
		{ID: "selfReply", UserID: "a", ReplyID: "x", ReplyUserID: "a"},
		{ID: "replyToOther", UserID: "a", ReplyID: "x", ReplyUserID: "b"},
		{ID: "replyToMe", UserID: "a", ReplyID: "x", ReplyUserID: "me"},
		{ID: "myReply", UserID: "me", ReplyID: "x", ReplyUserID: "b"},
	}

	assert.Equal(t, ids(posts), ids(FilterReplies(posts, actor, true)))
	assert.Equal(t,
		[]string{"plain", "selfReply", "replyToMe", "myReply"},
		ids(FilterReplies(posts, actor, false)))
	assert.Equal(t,
		[]string{"plain", "selfReply"},
		ids(FilterReplies(posts, nil, false)))

	// Anonymous viewers never see third-party replies, even when the
	// page asks for them.
	assert.Equal(t,
		[]string{"plain", "selfReply"},
		ids(FilterReplies(posts, nil, true)))
}

func TestFilterChannel(t *testing.T) {
	actor := &ActorContext{UserID: "me", ChannelFollows: set("c1")}
	posts := []model.Post{
		{ID: "open", UserID: "a"},
		{ID: "followedChan", UserID: "a", ChannelID: "c1"},
		{ID: "otherChan", UserID: "a", ChannelID: "c2"},
	}

	assert.Equal(t, []string{"open", "followedChan"}, ids(FilterChannel(posts, actor)))
	assert.Equal(t, []string{"open"}, ids(FilterChannel(posts, nil)))
}

func TestFilterMutedUsers(t *testing.T) {
	actor := &ActorContext{
		UserID:         "me",
		Muted:          set("noisy"),
		MutedInstances: set("bad.example"),
	}
	posts := []model.Post{
		{ID: "ok", UserID: "a"},
		{ID: "byMuted", UserID: "noisy"},
		{ID: "replyToMuted", UserID: "a", ReplyID: "x", ReplyUserID: "noisy"},
		{ID: "boostOfMuted", UserID: "a", RenoteID: "x", RenoteUserID: "noisy"},
		{ID: "fromBadHost", UserID: "b", UserHost: "bad.example"},
		{ID: "boostFromBadHost", UserID: "a", RenoteID: "x", RenoteUserID: "c", RenoteUserHost: "bad.example"},
	}

	assert.Equal(t, []string{"ok"}, ids(FilterMutedUsers(posts, actor, "")))
	// The profile owner is exempt on their own page.
	assert.Equal(t, []string{"ok", "byMuted"}, ids(FilterMutedUsers(posts, actor, "noisy")))
}

func TestFilterBlocked(t *testing.T) {
	actor := &ActorContext{UserID: "me", Blocked: set("foe")}
	posts := []model.Post{
		{ID: "ok", UserID: "a"},
		{ID: "byFoe", UserID: "foe"},
		{ID: "replyToFoe", UserID: "a", ReplyID: "x", ReplyUserID: "foe"},
		{ID: "boostOfFoe", UserID: "a", RenoteID: "x", RenoteUserID: "foe"},
	}
	assert.Equal(t, []string{"ok"}, ids(FilterBlocked(posts, actor)))
}

func TestFilterMutedRenotes(t *testing.T) {
	actor := &ActorContext{UserID: "me", RenoteMuted: set("booster")}
	posts := []model.Post{
		{ID: "plain", UserID: "booster"},
		{ID: "boost", UserID: "booster", RenoteID: "x", RenoteUserID: "a"},
		{ID: "quote", UserID: "booster", RenoteID: "x", RenoteUserID: "a", Text: "my take"},
		{ID: "otherBoost", UserID: "friend", RenoteID: "x", RenoteUserID: "a"},
	}
	assert.Equal(t, []string{"plain", "quote", "otherBoost"}, ids(FilterMutedRenotes(posts, actor)))
}

func TestFilterWordMutedSelfExempt(t *testing.T) {
	actor := &ActorContext{
		UserID:   "me",
		WordMute: CompileWordMute([]model.MutedWord{{Words: []string{"spoiler"}}}),
	}
	posts := []model.Post{
		{ID: "clean", UserID: "a", Text: "nothing"},
		{ID: "muted", UserID: "a", Text: "big spoiler ahead"},
		{ID: "mine", UserID: "me", Text: "my own spoiler"},
	}
	assert.Equal(t, []string{"clean", "mine"}, ids(FilterWordMuted(posts, actor)))
}

func TestFiltersAreIdempotent(t *testing.T) {
	actor := &ActorContext{
		UserID:         "me",
		Following:      set("friend"),
		ChannelFollows: set("c1"),
		Muted:          set("noisy"),
		Blocked:        set("foe"),
		RenoteMuted:    set("booster"),
		WordMute:       CompileWordMute([]model.MutedWord{{Words: []string{"spoiler"}}}),
	}
	posts := []model.Post{
		{ID: "1", Visibility: model.VisibilityPublic, UserID: "a"},
		{ID: "2", Visibility: model.VisibilityFollowers, UserID: "friend"},
		{ID: "3", Visibility: model.VisibilityPublic, UserID: "noisy"},
		{ID: "4", Visibility: model.VisibilityPublic, UserID: "foe"},
		{ID: "5", Visibility: model.VisibilityPublic, UserID: "booster", RenoteID: "x", RenoteUserID: "a"},
		{ID: "6", Visibility: model.VisibilityPublic, UserID: "a", Text: "spoiler"},
		{ID: "7", Visibility: model.VisibilityPublic, UserID: "a", ChannelID: "c9"},
	}

	full := Compose(
		func(ps []model.Post) []model.Post { return FilterVisibility(ps, actor) },
		func(ps []model.Post) []model.Post { return FilterChannel(ps, actor) },
		func(ps []model.Post) []model.Post { return FilterMutedUsers(ps, actor, "") },
		func(ps []model.Post) []model.Post { return FilterBlocked(ps, actor) },
		func(ps []model.Post) []model.Post { return FilterMutedRenotes(ps, actor) },
		func(ps []model.Post) []model.Post { return FilterWordMuted(ps, actor) },
	)

	once := full(posts)
	twice := full(once)
	assert.Equal(t, ids(once), ids(twice))
	assert.Equal(t, []string{"1", "2"}, ids(once))
}
