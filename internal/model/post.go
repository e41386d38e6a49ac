package model

import "time"

// Visibility controls who may see a post.
type Visibility string

const (
	VisibilityPublic    Visibility = "public"
	VisibilityHome      Visibility = "home"
	VisibilityFollowers Visibility = "followers"
	VisibilitySpecified Visibility = "specified"
)

// DriveFile is an attachment snapshot embedded in post rows.
type DriveFile struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	Name         string `json:"name"`
	Comment      string `json:"comment,omitempty"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
	IsSensitive  bool   `json:"isSensitive"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
}

// Poll is the choice list attached to a post. Vote counts are accumulated in
// poll_vote rows, not here.
type Poll struct {
	ExpiresAt *time.Time     `json:"expiresAt"`
	Multiple  bool           `json:"multiple"`
	Choices   map[int]string `json:"choices"`
}

// NoteEdit is one entry of a post's edit history.
type NoteEdit struct {
	Text      string      `json:"text"`
	CW        string      `json:"cw,omitempty"`
	Files     []DriveFile `json:"files"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// Post is the canonical wide-column row of a note. Reply/renote preview
// fields are denormalized copies taken at write time, not foreign keys; they
// go stale only on explicit re-propagation.
type Post struct {
	ID         string
	CreatedAt  time.Time
	Visibility Visibility
	Text       string
	CW         string

	UserID    string
	UserHost  string // "" = local author
	ChannelID string

	ReplyID       string
	ReplyUserID   string
	ReplyUserHost string
	ReplyText     string
	ReplyCW       string
	ReplyFiles    []DriveFile

	RenoteID       string
	RenoteUserID   string
	RenoteUserHost string
	RenoteText     string
	RenoteCW       string
	RenoteFiles    []DriveFile

	Files          []DriveFile
	Mentions       []string
	VisibleUserIDs []string
	Tags           []string

	HasPoll bool
	Poll    *Poll

	Reactions    map[string]int
	RenoteCount  int
	RepliesCount int
	Score        int

	Edits     []NoteEdit
	UpdatedAt *time.Time
}

// IsRenote reports whether the post boosts another post.
func (p Post) IsRenote() bool { return p.RenoteID != "" }

// IsQuote reports whether the post is a boost carrying its own text.
func (p Post) IsQuote() bool { return p.IsRenote() && p.Text != "" }

// IsReply reports whether the post replies to another post.
func (p Post) IsReply() bool { return p.ReplyID != "" }
