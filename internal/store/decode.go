package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/d60-Lab/columnfeed/internal/model"
)

// Row decoders: pure mappers from generic rows to typed entities.
// Optional multi-valued columns decode to empty (non-nil) collections and
// optional scalars to zero values; no decoder performs I/O. The only
// error source is a structured column carrying JSON text that does not
// parse.

// DecodePost maps a note-shaped row to a canonical post.
func DecodePost(r Row) (model.Post, error) {
	var err error
	p := model.Post{
		ID:         asString(r, "id"),
		CreatedAt:  asTime(r, "createdAt"),
		Visibility: model.Visibility(asString(r, "visibility")),
		Text:       asString(r, "content"),
		CW:         asString(r, "cw"),

		UserID:    asString(r, "userId"),
		UserHost:  asString(r, "userHost"),
		ChannelID: asString(r, "channelId"),

		ReplyID:       asString(r, "replyId"),
		ReplyUserID:   asString(r, "replyUserId"),
		ReplyUserHost: asString(r, "replyUserHost"),
		ReplyText:     asString(r, "replyContent"),
		ReplyCW:       asString(r, "replyCw"),
		ReplyFiles:    asFiles(r, "replyFiles", &err),

		RenoteID:       asString(r, "renoteId"),
		RenoteUserID:   asString(r, "renoteUserId"),
		RenoteUserHost: asString(r, "renoteUserHost"),
		RenoteText:     asString(r, "renoteContent"),
		RenoteCW:       asString(r, "renoteCw"),
		RenoteFiles:    asFiles(r, "renoteFiles", &err),

		Files:          asFiles(r, "files", &err),
		Mentions:       asStrings(r, "mentions", &err),
		VisibleUserIDs: asStrings(r, "visibleUserIds", &err),
		Tags:           asStrings(r, "tags", &err),

		HasPoll: asBool(r, "hasPoll"),
		Poll:    asPoll(r, "poll", &err),

		Reactions:    asReactions(r, "reactions", &err),
		RenoteCount:  asInt(r, "renoteCount"),
		RepliesCount: asInt(r, "repliesCount"),
		Score:        asInt(r, "score"),

		Edits:     asEdits(r, "noteEdit", &err),
		UpdatedAt: asTimePtr(r, "updatedAt"),
	}
	if err != nil {
		return model.Post{}, err
	}
	return p, nil
}

// DecodeTimelineEntry maps a home-timeline row: the post shape plus the
// recipient id.
func DecodeTimelineEntry(r Row) (model.TimelineEntry, error) {
	p, err := DecodePost(r)
	if err != nil {
		return model.TimelineEntry{}, err
	}
	return model.TimelineEntry{
		FeedUserID: asString(r, "feedUserId"),
		Post:       p,
	}, nil
}

// DecodeNotification maps a notification row.
func DecodeNotification(r Row) (model.Notification, error) {
	return model.Notification{
		ID:           asString(r, "id"),
		TargetID:     asString(r, "targetId"),
		CreatedAt:    asTime(r, "createdAt"),
		NotifierID:   asString(r, "notifierId"),
		NotifierHost: asString(r, "notifierHost"),
		Type:         model.NotificationType(asString(r, "type")),
		EntityID:     asString(r, "entityId"),
		Reaction:     asString(r, "reaction"),
		Choice:       asIntPtr(r, "choice"),
		CustomBody:   asString(r, "customBody"),
		CustomHeader: asString(r, "customHeader"),
		CustomIcon:   asString(r, "customIcon"),
	}, nil
}

// DecodeReaction maps a reaction row.
func DecodeReaction(r Row) (model.Reaction, error) {
	return model.Reaction{
		ID:        asString(r, "id"),
		NoteID:    asString(r, "noteId"),
		UserID:    asString(r, "userId"),
		Reaction:  asString(r, "reaction"),
		CreatedAt: asTime(r, "createdAt"),
	}, nil
}

// DecodePollVote maps a poll_vote row.
func DecodePollVote(r Row) (model.PollVote, error) {
	var err error
	v := model.PollVote{
		NoteID:    asString(r, "noteId"),
		UserID:    asString(r, "userId"),
		UserHost:  asString(r, "userHost"),
		Choice:    asInts(r, "choice", &err),
		CreatedAt: asTime(r, "createdAt"),
	}
	if err != nil {
		return model.PollVote{}, err
	}
	return v, nil
}

func asString(r Row, col string) string {
	switch v := r[col].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return ""
	}
}

func asTime(r Row, col string) time.Time {
	if v, ok := r[col].(time.Time); ok {
		return v.UTC()
	}
	return time.Time{}
}

func asTimePtr(r Row, col string) *time.Time {
	if v, ok := r[col].(time.Time); ok && !v.IsZero() {
		u := v.UTC()
		return &u
	}
	return nil
}

func asInt(r Row, col string) int {
	switch v := r[col].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func asIntPtr(r Row, col string) *int {
	if _, ok := r[col]; !ok {
		return nil
	}
	if r[col] == nil {
		return nil
	}
	n := asInt(r, col)
	return &n
}

func asBool(r Row, col string) bool {
	v, _ := r[col].(bool)
	return v
}

// unmarshalWire parses a JSON-text column, recording the first failure
// in errp. "null" decodes to the zero value and is not a failure.
func unmarshalWire(b []byte, col string, out any, errp *error) {
	if err := json.Unmarshal(b, out); err != nil && *errp == nil {
		*errp = fmt.Errorf("decode column %q: %w", col, err)
	}
}

func asStrings(r Row, col string, errp *error) []string {
	switch v := r[col].(type) {
	case []string:
		if v == nil {
			return []string{}
		}
		return v
	case string:
		var out []string
		unmarshalWire([]byte(v), col, &out, errp)
		if out != nil {
			return out
		}
	case []byte:
		var out []string
		unmarshalWire(v, col, &out, errp)
		if out != nil {
			return out
		}
	}
	return []string{}
}

func asInts(r Row, col string, errp *error) []int {
	switch v := r[col].(type) {
	case []int:
		if v == nil {
			return []int{}
		}
		return v
	case string:
		var out []int
		unmarshalWire([]byte(v), col, &out, errp)
		if out != nil {
			return out
		}
	case []byte:
		var out []int
		unmarshalWire(v, col, &out, errp)
		if out != nil {
			return out
		}
	}
	return []int{}
}

func asFiles(r Row, col string, errp *error) []model.DriveFile {
	switch v := r[col].(type) {
	case []model.DriveFile:
		if v == nil {
			return []model.DriveFile{}
		}
		return v
	case string:
		var out []model.DriveFile
		unmarshalWire([]byte(v), col, &out, errp)
		if out != nil {
			return out
		}
	case []byte:
		var out []model.DriveFile
		unmarshalWire(v, col, &out, errp)
		if out != nil {
			return out
		}
	}
	return []model.DriveFile{}
}

func asReactions(r Row, col string, errp *error) map[string]int {
	switch v := r[col].(type) {
	case map[string]int:
		if v == nil {
			return map[string]int{}
		}
		return v
	case string:
		var out map[string]int
		unmarshalWire([]byte(v), col, &out, errp)
		if out != nil {
			return out
		}
	case []byte:
		var out map[string]int
		unmarshalWire(v, col, &out, errp)
		if out != nil {
			return out
		}
	}
	return map[string]int{}
}

func asPoll(r Row, col string, errp *error) *model.Poll {
	switch v := r[col].(type) {
	case *model.Poll:
		return v
	case model.Poll:
		return &v
	case string:
		if v == "" {
			return nil
		}
		out := &model.Poll{}
		unmarshalWire([]byte(v), col, out, errp)
		return out
	case []byte:
		if len(v) == 0 {
			return nil
		}
		out := &model.Poll{}
		unmarshalWire(v, col, out, errp)
		return out
	}
	return nil
}

func asEdits(r Row, col string, errp *error) []model.NoteEdit {
	switch v := r[col].(type) {
	case []model.NoteEdit:
		if v == nil {
			return []model.NoteEdit{}
		}
		return v
	case string:
		var out []model.NoteEdit
		unmarshalWire([]byte(v), col, &out, errp)
		if out != nil {
			return out
		}
	case []byte:
		var out []model.NoteEdit
		unmarshalWire(v, col, &out, errp)
		if out != nil {
			return out
		}
	}
	return []model.NoteEdit{}
}
