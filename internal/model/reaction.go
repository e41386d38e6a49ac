package model

import "time"

// Reaction is a single actor's reaction to a post, queryable by post or by
// actor through separate projection tables.
type Reaction struct {
	ID        string
	NoteID    string
	UserID    string
	Reaction  string
	CreatedAt time.Time
}

// PollVote accumulates one voter's chosen options for a post's poll. The row
// is keyed (noteId, userId) so casting again merges choices.
type PollVote struct {
	NoteID    string
	UserID    string
	UserHost  string
	Choice    []int
	CreatedAt time.Time
}
