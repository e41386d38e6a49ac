package store

import (
	"time"

	"github.com/d60-Lab/columnfeed/internal/model"
)

// PostRow flattens a canonical post into a note-table row.
func PostRow(p model.Post) Row {
	r := Row{
		"createdAtDate": DayBucket(p.CreatedAt),
		"createdAt":     p.CreatedAt.UTC(),
		"id":            p.ID,
		"visibility":    string(p.Visibility),
		"content":       p.Text,
		"cw":            p.CW,
		"renoteCount":   p.RenoteCount,
		"repliesCount":  p.RepliesCount,
		"score":         p.Score,

		"files":          p.Files,
		"visibleUserIds": p.VisibleUserIDs,
		"mentions":       p.Mentions,
		"tags":           p.Tags,

		"hasPoll":   p.HasPoll,
		"channelId": p.ChannelID,
		"userId":    p.UserID,
		"userHost":  p.UserHost,

		"replyId":       p.ReplyID,
		"replyUserId":   p.ReplyUserID,
		"replyUserHost": p.ReplyUserHost,
		"replyContent":  p.ReplyText,
		"replyCw":       p.ReplyCW,
		"replyFiles":    p.ReplyFiles,

		"renoteId":       p.RenoteID,
		"renoteUserId":   p.RenoteUserID,
		"renoteUserHost": p.RenoteUserHost,
		"renoteContent":  p.RenoteText,
		"renoteCw":       p.RenoteCW,
		"renoteFiles":    p.RenoteFiles,

		"reactions": p.Reactions,
		"noteEdit":  p.Edits,
	}
	if p.Poll != nil {
		r["poll"] = p.Poll
	}
	if p.UpdatedAt != nil {
		r["updatedAt"] = p.UpdatedAt.UTC()
	}
	return r
}

// TimelineRow flattens a per-recipient copy of a post.
func TimelineRow(feedUserID string, p model.Post) Row {
	r := PostRow(p)
	r["feedUserId"] = feedUserID
	return r
}

// TimelineKey identifies one timeline copy for updates and deletes.
func TimelineKey(e model.TimelineEntry) Row {
	return Row{
		"feedUserId":    e.FeedUserID,
		"createdAtDate": DayBucket(e.CreatedAt),
		"createdAt":     e.CreatedAt.UTC(),
		"userId":        e.UserID,
	}
}

// PostKey identifies the canonical row of a post.
func PostKey(p model.Post) Row {
	return Row{
		"createdAtDate": DayBucket(p.CreatedAt),
		"createdAt":     p.CreatedAt.UTC(),
		"userId":        p.UserID,
	}
}

// NotificationRow flattens a notification.
func NotificationRow(n model.Notification) Row {
	r := Row{
		"targetId":      n.TargetID,
		"createdAtDate": DayBucket(n.CreatedAt),
		"createdAt":     n.CreatedAt.UTC(),
		"id":            n.ID,
		"notifierId":    n.NotifierID,
		"notifierHost":  n.NotifierHost,
		"type":          string(n.Type),
		"entityId":      n.EntityID,
		"reaction":      n.Reaction,
		"customBody":    n.CustomBody,
		"customHeader":  n.CustomHeader,
		"customIcon":    n.CustomIcon,
	}
	if n.Choice != nil {
		r["choice"] = *n.Choice
	}
	return r
}

// ReactionRow flattens a reaction.
func ReactionRow(re model.Reaction) Row {
	return Row{
		"id":        re.ID,
		"noteId":    re.NoteID,
		"userId":    re.UserID,
		"reaction":  re.Reaction,
		"createdAt": re.CreatedAt.UTC(),
	}
}

// PollVoteRow flattens a poll vote.
func PollVoteRow(v model.PollVote) Row {
	createdAt := v.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return Row{
		"noteId":    v.NoteID,
		"userId":    v.UserID,
		"userHost":  v.UserHost,
		"choice":    v.Choice,
		"createdAt": createdAt.UTC(),
	}
}
