package store

// The query catalog. Each entry names a table (or projection of one) and the
// columns a statement binds; implementations render or interpret them. The
// set of tables mirrors the access patterns the feed layer needs: by-date,
// by-id, by-user, by-renote, by-channel, score feed, per-recipient home
// timelines, reactions, poll votes, and notifications.

// SelectQuery reads rows by exact key-column match.
type SelectQuery struct {
	Table string
	Keys  []string
}

// InsertQuery writes one row with the listed columns.
type InsertQuery struct {
	Table   string
	Columns []string
}

// UpdateQuery conditionally assigns Set columns on rows matching Keys.
type UpdateQuery struct {
	Table string
	Set   []string
	Keys  []string
}

// DeleteQuery removes rows matching Keys.
type DeleteQuery struct {
	Table string
	Keys  []string
}

// noteColumns is the full canonical post column set, shared by the note and
// home_timeline tables.
var noteColumns = []string{
	"createdAtDate", "createdAt", "id", "visibility", "content", "cw",
	"renoteCount", "repliesCount", "score",
	"files", "visibleUserIds", "mentions", "tags",
	"hasPoll", "poll", "channelId", "userId", "userHost",
	"replyId", "replyUserId", "replyUserHost", "replyContent", "replyCw", "replyFiles",
	"renoteId", "renoteUserId", "renoteUserHost", "renoteContent", "renoteCw", "renoteFiles",
	"reactions", "noteEdit", "updatedAt",
}

var homeColumns = append([]string{"feedUserId"}, noteColumns...)

var noteKey = []string{"createdAtDate", "createdAt", "userId"}
var homeKey = []string{"feedUserId", "createdAtDate", "createdAt", "userId"}

var (
	InsertNote          = InsertQuery{Table: "note", Columns: noteColumns}
	NoteByDate          = SelectQuery{Table: "note", Keys: []string{"createdAtDate"}}
	NoteByID            = SelectQuery{Table: "note_by_id", Keys: []string{"id"}}
	NoteByUserID        = SelectQuery{Table: "note_by_user_id", Keys: []string{"userId"}}
	NoteByRenoteID      = SelectQuery{Table: "note_by_renote_id", Keys: []string{"renoteId"}}
	NoteByRenoteAndUser = SelectQuery{Table: "note_by_renote_id_and_user_id", Keys: []string{"renoteId", "userId"}}
	NoteByChannelID     = SelectQuery{Table: "note_by_channel_id", Keys: []string{"channelId"}}
	// score_feed admits only score > 0 rows; the predicate lives in the
	// view definition so pages stay time-clustered.
	ScoreFeedByDate = SelectQuery{Table: "score_feed", Keys: []string{"createdAtDate"}}
	DeleteNote      = DeleteQuery{Table: "note", Keys: noteKey}

	UpdateNoteRenoteCount  = UpdateQuery{Table: "note", Set: []string{"renoteCount", "score"}, Keys: noteKey}
	UpdateNoteRepliesCount = UpdateQuery{Table: "note", Set: []string{"repliesCount"}, Keys: noteKey}
	UpdateNoteReactions    = UpdateQuery{Table: "note", Set: []string{"reactions", "score"}, Keys: noteKey}

	InsertHomeTimeline        = InsertQuery{Table: "home_timeline", Columns: homeColumns}
	HomeTimelineByUserAndDate = SelectQuery{Table: "home_timeline", Keys: []string{"feedUserId", "createdAtDate"}}
	HomeTimelineByID          = SelectQuery{Table: "home_timeline_by_id", Keys: []string{"id"}}
	DeleteHomeTimeline        = DeleteQuery{Table: "home_timeline", Keys: homeKey}

	UpdateHomeRenoteCount  = UpdateQuery{Table: "home_timeline", Set: []string{"renoteCount", "score"}, Keys: homeKey}
	UpdateHomeRepliesCount = UpdateQuery{Table: "home_timeline", Set: []string{"repliesCount"}, Keys: homeKey}
	UpdateHomeReactions    = UpdateQuery{Table: "home_timeline", Set: []string{"reactions", "score"}, Keys: homeKey}

	LocalTimelineByDate  = SelectQuery{Table: "local_timeline", Keys: []string{"createdAtDate"}}
	GlobalTimelineByDate = SelectQuery{Table: "global_timeline", Keys: []string{"createdAtDate"}}

	InsertReaction = InsertQuery{Table: "reaction", Columns: []string{
		"id", "noteId", "userId", "reaction", "createdAt",
	}}
	ReactionsByNoteID     = SelectQuery{Table: "reaction", Keys: []string{"noteId"}}
	ReactionsByUserID     = SelectQuery{Table: "reaction_by_user_id", Keys: []string{"userId"}}
	ReactionByNoteAndUser = SelectQuery{Table: "reaction", Keys: []string{"noteId", "userId"}}
	DeleteReaction        = DeleteQuery{Table: "reaction", Keys: []string{"noteId", "userId"}}

	InsertPollVote = InsertQuery{Table: "poll_vote", Columns: []string{
		"noteId", "userId", "userHost", "choice", "createdAt",
	}}
	PollVotesByNote = SelectQuery{Table: "poll_vote", Keys: []string{"noteId"}}

	InsertNotification = InsertQuery{Table: "notification", Columns: []string{
		"targetId", "createdAtDate", "createdAt", "id", "notifierId", "notifierHost",
		"type", "entityId", "reaction", "choice", "customBody", "customHeader", "customIcon",
	}}
	NotificationsByTarget = SelectQuery{Table: "notification", Keys: []string{"targetId", "createdAtDate"}}
)
