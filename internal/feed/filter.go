package feed

import (
	"slices"

	"github.com/d60-Lab/columnfeed/internal/model"
)

// ActorContext carries the relationship state of the requesting user.
// A nil context or empty UserID means the caller is unauthenticated.
// The id sets are precomputed from the relation caches; the filters
// themselves never touch Redis or the store.
type ActorContext struct {
	UserID         string
	Following      map[string]struct{}
	ChannelFollows map[string]struct{}
	Muted          map[string]struct{}
	MutedInstances map[string]struct{}
	Blocked        map[string]struct{}
	RenoteMuted    map[string]struct{}
	WordMute       *WordMute
}

// Authenticated reports whether the context identifies a user.
func (a *ActorContext) Authenticated() bool { return a != nil && a.UserID != "" }

func (a *ActorContext) follows(userID string) bool {
	if a == nil {
		return false
	}
	_, ok := a.Following[userID]
	return ok
}

// Filter narrows a fetched page of posts. All filters are pure and
// idempotent; the pagination engine applies them inside its scan loop.
type Filter func([]model.Post) []model.Post

// Compose chains filters left to right into one.
func Compose(filters ...Filter) Filter {
	return func(posts []model.Post) []model.Post {
		for _, f := range filters {
			posts = f(posts)
		}
		return posts
	}
}

func keepIf(posts []model.Post, keep func(model.Post) bool) []model.Post {
	out := make([]model.Post, 0, len(posts))
	for _, p := range posts {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

// FilterVisibility drops posts the actor may not see. Unauthenticated
// callers see only public and home posts; authenticated callers also see
// their own posts, posts mentioning or addressed to them, and
// followers-only posts from accounts they follow or replies addressed
// to them.
func FilterVisibility(posts []model.Post, actor *ActorContext) []model.Post {
	return keepIf(posts, func(p model.Post) bool {
		if p.Visibility == model.VisibilityPublic || p.Visibility == model.VisibilityHome {
			return true
		}
		if !actor.Authenticated() {
			return false
		}
		if p.UserID == actor.UserID {
			return true
		}
		if slices.Contains(p.Mentions, actor.UserID) || slices.Contains(p.VisibleUserIDs, actor.UserID) {
			return true
		}
		if p.Visibility == model.VisibilityFollowers {
			return actor.follows(p.UserID) || p.ReplyUserID == actor.UserID
		}
		return false
	})
}

// FilterReplies hides replies when withReplies is false, keeping
// self-replies and, for authenticated actors, their own posts and
// replies addressed to them. Unauthenticated viewers never see
// third-party replies, regardless of withReplies.
func FilterReplies(posts []model.Post, actor *ActorContext, withReplies bool) []model.Post {
	if withReplies && actor.Authenticated() {
		return posts
	}
	return keepIf(posts, func(p model.Post) bool {
		if !p.IsReply() || p.ReplyUserID == p.UserID {
			return true
		}
		if actor.Authenticated() && (p.UserID == actor.UserID || p.ReplyUserID == actor.UserID) {
			return true
		}
		return false
	})
}

// FilterChannel drops channel-scoped posts from channels the actor does
// not follow.
func FilterChannel(posts []model.Post, actor *ActorContext) []model.Post {
	return keepIf(posts, func(p model.Post) bool {
		if p.ChannelID == "" {
			return true
		}
		if actor == nil {
			return false
		}
		_, ok := actor.ChannelFollows[p.ChannelID]
		return ok
	})
}

// FilterMutedUsers drops posts authored by, replying to, or boosting a
// muted user or a user from a muted instance. excludeUserID exempts one
// author id, for pages dedicated to that user.
func FilterMutedUsers(posts []model.Post, actor *ActorContext, excludeUserID string) []model.Post {
	if actor == nil {
		return posts
	}
	mutedUser := func(id string) bool {
		if id == "" || id == excludeUserID {
			return false
		}
		_, ok := actor.Muted[id]
		return ok
	}
	mutedHost := func(host string) bool {
		if host == "" {
			return false
		}
		_, ok := actor.MutedInstances[host]
		return ok
	}
	return keepIf(posts, func(p model.Post) bool {
		if mutedUser(p.UserID) || mutedUser(p.ReplyUserID) || mutedUser(p.RenoteUserID) {
			return false
		}
		if mutedHost(p.UserHost) || mutedHost(p.ReplyUserHost) || mutedHost(p.RenoteUserHost) {
			return false
		}
		return true
	})
}

// FilterBlocked drops posts whose author, reply target author, or
// renote target author is in the actor's combined block set (users the
// actor blocks, users blocking the actor, and suspended accounts).
func FilterBlocked(posts []model.Post, actor *ActorContext) []model.Post {
	if actor == nil || len(actor.Blocked) == 0 {
		return posts
	}
	blocked := func(id string) bool {
		if id == "" {
			return false
		}
		_, ok := actor.Blocked[id]
		return ok
	}
	return keepIf(posts, func(p model.Post) bool {
		return !blocked(p.UserID) && !blocked(p.ReplyUserID) && !blocked(p.RenoteUserID)
	})
}

// FilterMutedRenotes drops boost-only renotes from renote-muted users.
// Quotes carry their own text and stay visible.
func FilterMutedRenotes(posts []model.Post, actor *ActorContext) []model.Post {
	if actor == nil || len(actor.RenoteMuted) == 0 {
		return posts
	}
	return keepIf(posts, func(p model.Post) bool {
		if !p.IsRenote() || p.IsQuote() {
			return true
		}
		_, ok := actor.RenoteMuted[p.UserID]
		return !ok
	})
}

// FilterWordMuted drops posts tripping the actor's hard word mutes.
// The actor's own posts are exempt.
func FilterWordMuted(posts []model.Post, actor *ActorContext) []model.Post {
	if actor == nil || actor.WordMute.Empty() {
		return posts
	}
	return keepIf(posts, func(p model.Post) bool {
		if p.UserID == actor.UserID {
			return true
		}
		return !actor.WordMute.Matches(p)
	})
}
