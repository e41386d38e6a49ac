package feed

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/columnfeed/internal/model"
	"github.com/d60-Lab/columnfeed/internal/store"
	"github.com/d60-Lab/columnfeed/pkg/aid"
)

// countingStore records how many queries ran and which day partitions
// they touched.
type countingStore struct {
	store.Store
	selects    int
	partitions map[string]bool
}

func newCountingStore(inner store.Store) *countingStore {
	return &countingStore{Store: inner, partitions: map[string]bool{}}
}

func (c *countingStore) SelectPage(ctx context.Context, q store.SelectQuery, w store.Window, key store.Row) ([]store.Row, error) {
	c.selects++
	if day, ok := key["createdAtDate"].(time.Time); ok {
		c.partitions[day.Format("2006-01-02")] = true
	}
	return c.Store.SelectPage(ctx, q, w, key)
}

func insertPublic(t *testing.T, st store.Store, at time.Time, userID string) model.Post {
	t.Helper()
	p := model.Post{ID: aid.New(at), CreatedAt: at, Visibility: model.VisibilityPublic, Text: "post", UserID: userID}
	require.NoError(t, st.Insert(context.Background(), store.InsertNote, store.PostRow(p)))
	return p
}

func assertDescending(t *testing.T, posts []model.Post) {
	t.Helper()
	for i := 1; i < len(posts); i++ {
		assert.False(t, posts[i].CreatedAt.After(posts[i-1].CreatedAt),
			"posts must be non-increasing by creation time")
	}
}

func TestNotesLocalOrderingAcrossPartitions(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	base := time.Date(2023, 6, 10, 12, 0, 0, 0, time.UTC)

	for day := 0; day < 3; day++ {
		for i := 0; i < 4; i++ {
			insertPublic(t, mem, base.AddDate(0, 0, -day).Add(time.Duration(i)*time.Minute), "u1")
		}
	}

	engine := NewEngine(mem, 0, 0)
	posts, err := engine.Notes(ctx, KindLocal, Params{Limit: 12, UntilDate: base.Add(time.Hour)}, nil)
	require.NoError(t, err)
	assert.Len(t, posts, 12)
	assertDescending(t, posts)
}

func TestNotesScoreFeedIsTimeOrdered(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	base := time.Date(2023, 6, 10, 12, 0, 0, 0, time.UTC)

	// High engagement on the oldest posts must not reorder the feed:
	// the score only gates membership, the clustering stays temporal.
	for day := 0; day < 3; day++ {
		for i := 0; i < 3; i++ {
			at := base.AddDate(0, 0, -day).Add(time.Duration(i) * time.Minute)
			p := model.Post{
				ID: aid.New(at), CreatedAt: at,
				Visibility: model.VisibilityPublic,
				UserID:     "u1",
				Score:      100*day + i + 1,
			}
			require.NoError(t, mem.Insert(ctx, store.InsertNote, store.PostRow(p)))
		}
	}
	// Score zero: never part of the feed.
	insertPublic(t, mem, base.Add(-time.Hour), "u1")

	engine := NewEngine(mem, 0, 0)
	posts, err := engine.Notes(ctx, KindScore, Params{Limit: 20, UntilDate: base.Add(time.Hour)}, nil)
	require.NoError(t, err)
	assert.Len(t, posts, 9)
	assertDescending(t, posts)
}

func TestNotesSparseDataPartitionBound(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	cs := newCountingStore(mem)
	base := time.Date(2023, 6, 20, 12, 0, 0, 0, time.UTC)

	// 5 posts scattered over the newest 14 days; everything else empty.
	for _, daysBack := range []int{0, 2, 5, 9, 13} {
		insertPublic(t, mem, base.AddDate(0, 0, -daysBack), "u1")
	}

	engine := NewEngine(cs, 0, 0)
	posts, err := engine.Notes(ctx, KindLocal, Params{Limit: 10, UntilDate: base.Add(time.Hour)}, nil)
	require.NoError(t, err)

	// Sparse data is truncated, not an error.
	assert.Len(t, posts, 5)
	assertDescending(t, posts)
	assert.LessOrEqual(t, len(cs.partitions), DefaultMaxPartitions)
	assert.LessOrEqual(t, cs.selects, DefaultMaxPartitions)
}

func TestNotesCursorPaging(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	base := time.Date(2023, 6, 10, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 30; i++ {
		insertPublic(t, mem, base.Add(time.Duration(i)*time.Minute), "u1")
	}

	engine := NewEngine(mem, 0, 0)
	first, err := engine.Notes(ctx, KindLocal, Params{Limit: 10, UntilDate: base.Add(time.Hour)}, nil)
	require.NoError(t, err)
	require.Len(t, first, 10)

	second, err := engine.Notes(ctx, KindLocal,
		Params{Limit: 10, UntilID: first[len(first)-1].ID}, nil)
	require.NoError(t, err)
	require.Len(t, second, 10)

	// No overlap, strictly older.
	seen := map[string]bool{}
	for _, p := range first {
		seen[p.ID] = true
	}
	for _, p := range second {
		assert.False(t, seen[p.ID])
		assert.True(t, p.CreatedAt.Before(first[len(first)-1].CreatedAt))
	}
}

func TestNotesSinceBoundStopsScan(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	base := time.Date(2023, 6, 10, 12, 0, 0, 0, time.UTC)

	insertPublic(t, mem, base, "u1")
	insertPublic(t, mem, base.AddDate(0, 0, -3), "u1")

	engine := NewEngine(mem, 0, 0)
	posts, err := engine.Notes(ctx, KindLocal,
		Params{Limit: 10, UntilDate: base.Add(time.Hour), SinceDate: base.AddDate(0, 0, -1)}, nil)
	require.NoError(t, err)
	assert.Len(t, posts, 1)
}

func TestNotesMissingParameters(t *testing.T) {
	ctx := context.Background()
	cs := newCountingStore(store.NewMemory())
	engine := NewEngine(cs, 0, 0)

	cases := []struct {
		kind Kind
		p    Params
	}{
		{KindHome, Params{Limit: 10}},
		{KindUser, Params{Limit: 10}},
		{KindChannel, Params{Limit: 10}},
		{KindRenotes, Params{Limit: 10}},
		{KindList, Params{Limit: 10}},
		{KindAntenna, Params{Limit: 10}},
	}
	for _, tc := range cases {
		_, err := engine.Notes(ctx, tc.kind, tc.p, nil)
		assert.ErrorIs(t, err, ErrMissingParameter, "kind %s", tc.kind)
	}
	assert.Zero(t, cs.selects, "parameter errors must fail before any query")

	_, err := engine.Notes(ctx, Kind("bogus"), Params{Limit: 10}, nil)
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestNotesNilStoreDegradesToEmpty(t *testing.T) {
	engine := NewEngine(nil, 0, 0)
	posts, err := engine.Notes(context.Background(), KindLocal, Params{Limit: 10}, nil)
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestNotesHomeScopedToRecipient(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	at := time.Date(2023, 6, 10, 12, 0, 0, 0, time.UTC)

	p := model.Post{ID: aid.New(at), CreatedAt: at, Visibility: model.VisibilityHome, UserID: "author"}
	require.NoError(t, mem.Insert(ctx, store.InsertHomeTimeline, store.TimelineRow("reader", p)))
	require.NoError(t, mem.Insert(ctx, store.InsertHomeTimeline, store.TimelineRow("other", p)))

	engine := NewEngine(mem, 0, 0)
	posts, err := engine.Notes(ctx, KindHome,
		Params{Limit: 10, UserID: "reader", UntilDate: at.Add(time.Hour)}, nil)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, p.ID, posts[0].ID)
}

func TestNotesFilterTriggersRefetch(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	base := time.Date(2023, 6, 10, 12, 0, 0, 0, time.UTC)

	// Newest partition holds only filtered-out posts; the engine must
	// keep walking to fill the page from the older partition.
	for i := 0; i < 3; i++ {
		insertPublic(t, mem, base.Add(time.Duration(i)*time.Minute), "noisy")
	}
	want1 := insertPublic(t, mem, base.AddDate(0, 0, -1), "ok")
	want2 := insertPublic(t, mem, base.AddDate(0, 0, -1).Add(-time.Minute), "ok")

	dropNoisy := func(posts []model.Post) []model.Post {
		out := make([]model.Post, 0, len(posts))
		for _, p := range posts {
			if p.UserID != "noisy" {
				out = append(out, p)
			}
		}
		return out
	}

	engine := NewEngine(mem, 0, 0)
	posts, err := engine.Notes(ctx, KindLocal,
		Params{Limit: 2, UntilDate: base.Add(time.Hour)}, dropNoisy)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, []string{want1.ID, want2.ID}, []string{posts[0].ID, posts[1].ID})
}

func TestNotesListPoolSinglePass(t *testing.T) {
	ctx := context.Background()
	cs := newCountingStore(store.NewMemory())
	base := time.Date(2023, 6, 10, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		insertPublic(t, cs.Store, base.Add(-time.Duration(i)*time.Minute), "a")
	}
	for i := 0; i < 2; i++ {
		insertPublic(t, cs.Store, base.AddDate(0, 0, -1).Add(-time.Duration(i)*time.Minute), "b")
	}

	engine := NewEngine(cs, 0, 0)
	posts, err := engine.Notes(ctx, KindList,
		Params{Limit: 6, UserIDs: []string{"a", "b"}, UntilDate: base.Add(time.Hour)}, nil)
	require.NoError(t, err)

	// One query per pool member; merged output is globally ordered.
	assert.Equal(t, 2, cs.selects)
	require.Len(t, posts, 5)
	assertDescending(t, posts)
	authors := map[string]int{}
	for _, p := range posts {
		authors[p.UserID]++
	}
	assert.Equal(t, map[string]int{"a": 3, "b": 2}, authors)
}

func TestNotifications(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	base := time.Date(2023, 6, 10, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		at := base.Add(-time.Duration(i) * time.Minute)
		n := model.Notification{
			ID:         aid.New(at),
			TargetID:   "me",
			CreatedAt:  at,
			NotifierID: "u2",
			Type:       model.NotificationReply,
			EntityID:   "n1",
		}
		require.NoError(t, mem.Insert(ctx, store.InsertNotification, store.NotificationRow(n)))
	}
	other := model.Notification{
		ID: aid.New(base), TargetID: "someone-else", CreatedAt: base,
		NotifierID: "u2", Type: model.NotificationFollow,
	}
	require.NoError(t, mem.Insert(ctx, store.InsertNotification, store.NotificationRow(other)))

	engine := NewEngine(mem, 0, 0)
	items, err := engine.Notifications(ctx,
		Params{Limit: 10, UserID: "me", UntilDate: base.Add(time.Hour)}, nil)
	require.NoError(t, err)
	assert.Len(t, items, 3)
	for _, n := range items {
		assert.Equal(t, "me", n.TargetID)
	}
	assert.True(t, sort.SliceIsSorted(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	}))

	_, err = engine.Notifications(ctx, Params{Limit: 10}, nil)
	assert.ErrorIs(t, err, ErrMissingParameter)
}

func TestReactionsByActor(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	base := time.Date(2023, 6, 10, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 2; i++ {
		at := base.Add(-time.Duration(i) * time.Minute)
		r := model.Reaction{ID: aid.New(at), NoteID: aid.New(at.Add(-time.Hour)), UserID: "me", Reaction: "⭐", CreatedAt: at}
		require.NoError(t, mem.Insert(ctx, store.InsertReaction, store.ReactionRow(r)))
	}

	engine := NewEngine(mem, 0, 0)
	items, err := engine.Reactions(ctx,
		Params{Limit: 10, UserID: "me", UntilDate: base.Add(time.Hour)})
	require.NoError(t, err)
	assert.Len(t, items, 2)

	_, err = engine.Reactions(ctx, Params{Limit: 10})
	assert.ErrorIs(t, err, ErrMissingParameter)
}
