package model

import "time"

type NotificationType string

const (
	NotificationFollow    NotificationType = "follow"
	NotificationMention   NotificationType = "mention"
	NotificationReply     NotificationType = "reply"
	NotificationRenote    NotificationType = "renote"
	NotificationQuote     NotificationType = "quote"
	NotificationReaction  NotificationType = "reaction"
	NotificationPollVote  NotificationType = "pollVote"
	NotificationPollEnded NotificationType = "pollEnded"
	NotificationApp       NotificationType = "app"
)

// Notification is a wide-column notification row, partitioned by target and
// day. Read/unread state is not tracked on this path: rows are always
// reported as read.
type Notification struct {
	ID        string
	TargetID  string
	CreatedAt time.Time

	NotifierID   string
	NotifierHost string
	Type         NotificationType

	// EntityID references the note, follow request, or other entity the
	// notification is about.
	EntityID string

	Reaction     string
	Choice       *int
	CustomBody   string
	CustomHeader string
	CustomIcon   string
}
