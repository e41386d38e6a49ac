package model

// TimelineEntry is the per-recipient denormalized copy of a Post written by
// the fan-out path. Copies live in different partitions and share no
// transaction; counters are mirrored from the canonical row on a best-effort
// basis.
type TimelineEntry struct {
	FeedUserID string
	Post
}
