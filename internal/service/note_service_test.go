package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/columnfeed/internal/model"
	"github.com/d60-Lab/columnfeed/internal/store"
)

type staticFollowers struct{ ids []string }

func (s staticFollowers) GetAll(ctx context.Context, subject string) ([]string, error) {
	return s.ids, nil
}

func timelineRecipients(t *testing.T, st store.Store, noteID string) []string {
	t.Helper()
	rows, err := st.Select(context.Background(), store.HomeTimelineByID, store.Row{"id": noteID})
	require.NoError(t, err)
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		entry, err := store.DecodeTimelineEntry(row)
		require.NoError(t, err)
		out = append(out, entry.FeedUserID)
	}
	return out
}

func canonical(t *testing.T, st store.Store, noteID string) model.Post {
	t.Helper()
	rows, err := st.Select(context.Background(), store.NoteByID, store.Row{"id": noteID})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	p, err := store.DecodePost(rows[0])
	require.NoError(t, err)
	return p
}

func TestCreateFansOutToAuthorAndFollowers(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := NewNoteService(mem, staticFollowers{ids: []string{"f1", "f2", "f3"}})

	post, err := svc.Create(ctx, model.Post{UserID: "author", Text: "hello", Visibility: model.VisibilityHome})
	require.NoError(t, err)
	require.NotEmpty(t, post.ID)

	assert.ElementsMatch(t, []string{"author", "f1", "f2", "f3"},
		timelineRecipients(t, mem, post.ID))
}

func TestCreateSkipsFanOutForChannelAndDirect(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := NewNoteService(mem, staticFollowers{ids: []string{"f1"}})

	chanPost, err := svc.Create(ctx, model.Post{UserID: "author", ChannelID: "c1", Visibility: model.VisibilityPublic})
	require.NoError(t, err)
	assert.Empty(t, timelineRecipients(t, mem, chanPost.ID))

	dm, err := svc.Create(ctx, model.Post{UserID: "author", Visibility: model.VisibilitySpecified, VisibleUserIDs: []string{"f1"}})
	require.NoError(t, err)
	assert.Empty(t, timelineRecipients(t, mem, dm.ID))

	// Canonical rows still exist.
	assert.Equal(t, "c1", canonical(t, mem, chanPost.ID).ChannelID)
	assert.Equal(t, model.VisibilitySpecified, canonical(t, mem, dm.ID).Visibility)
}

func TestDeleteRemovesCanonicalAndAllCopies(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := NewNoteService(mem, staticFollowers{ids: []string{"f1", "f2", "f3"}})

	post, err := svc.Create(ctx, model.Post{UserID: "author", Text: "bye"})
	require.NoError(t, err)
	require.Len(t, timelineRecipients(t, mem, post.ID), 4)

	require.NoError(t, svc.Delete(ctx, post.ID))

	rows, err := mem.Select(ctx, store.NoteByID, store.Row{"id": post.ID})
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Empty(t, timelineRecipients(t, mem, post.ID))

	assert.ErrorIs(t, svc.Delete(ctx, post.ID), ErrNoteNotFound)
}

func TestRenoteCounterPropagation(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := NewNoteService(mem, staticFollowers{ids: []string{"f1"}})

	original, err := svc.Create(ctx, model.Post{UserID: "author", Text: "original"})
	require.NoError(t, err)

	boost, err := svc.Create(ctx, model.Post{UserID: "booster", RenoteID: original.ID, RenoteUserID: "author"})
	require.NoError(t, err)

	got := canonical(t, mem, original.ID)
	assert.Equal(t, 1, got.RenoteCount)
	assert.Equal(t, 1, got.Score)

	// Copies carry the same counter.
	rows, err := mem.Select(ctx, store.HomeTimelineByID, store.Row{"id": original.ID})
	require.NoError(t, err)
	for _, row := range rows {
		entry, err := store.DecodeTimelineEntry(row)
		require.NoError(t, err)
		assert.Equal(t, 1, entry.RenoteCount)
	}

	require.NoError(t, svc.Delete(ctx, boost.ID))
	got = canonical(t, mem, original.ID)
	assert.Equal(t, 0, got.RenoteCount)
	assert.Equal(t, 0, got.Score)
}

func TestRenoteCounterKeptWhileSiblingBoostRemains(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := NewNoteService(mem, staticFollowers{})

	original, err := svc.Create(ctx, model.Post{UserID: "author", Text: "original"})
	require.NoError(t, err)

	first, err := svc.Create(ctx, model.Post{UserID: "booster", RenoteID: original.ID})
	require.NoError(t, err)
	_, err = svc.Create(ctx, model.Post{UserID: "booster", RenoteID: original.ID, Text: "quoting too"})
	require.NoError(t, err)
	assert.Equal(t, 2, canonical(t, mem, original.ID).RenoteCount)

	// The same user still has one boost left, so the counter holds.
	require.NoError(t, svc.Delete(ctx, first.ID))
	assert.Equal(t, 2, canonical(t, mem, original.ID).RenoteCount)
}

func TestReplyCounterPropagation(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := NewNoteService(mem, staticFollowers{})

	parent, err := svc.Create(ctx, model.Post{UserID: "author", Text: "parent"})
	require.NoError(t, err)

	reply, err := svc.Create(ctx, model.Post{UserID: "other", ReplyID: parent.ID, ReplyUserID: "author", Text: "re"})
	require.NoError(t, err)
	assert.Equal(t, 1, canonical(t, mem, parent.ID).RepliesCount)

	require.NoError(t, svc.Delete(ctx, reply.ID))
	assert.Equal(t, 0, canonical(t, mem, parent.ID).RepliesCount)
}

func TestCountSameRenotes(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := NewNoteService(mem, staticFollowers{})

	original, err := svc.Create(ctx, model.Post{UserID: "author", Text: "original"})
	require.NoError(t, err)
	b1, err := svc.Create(ctx, model.Post{UserID: "booster", RenoteID: original.ID})
	require.NoError(t, err)
	_, err = svc.Create(ctx, model.Post{UserID: "booster", RenoteID: original.ID})
	require.NoError(t, err)
	_, err = svc.Create(ctx, model.Post{UserID: "someone-else", RenoteID: original.ID})
	require.NoError(t, err)

	n, err := svc.CountSameRenotes(ctx, "booster", original.ID, b1.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = svc.CountSameRenotes(ctx, "booster", original.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestCounterUpdateDoesNotResurrectDeletedCopy(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := NewNoteService(mem, staticFollowers{ids: []string{"f1"}})

	original, err := svc.Create(ctx, model.Post{UserID: "author", Text: "original"})
	require.NoError(t, err)

	// One copy disappears out-of-band (e.g. recipient purge).
	rows, err := mem.Select(ctx, store.HomeTimelineByID, store.Row{"id": original.ID})
	require.NoError(t, err)
	entry, err := store.DecodeTimelineEntry(rows[0])
	require.NoError(t, err)
	require.NoError(t, mem.Delete(ctx, store.DeleteHomeTimeline, store.TimelineKey(entry)))

	_, err = svc.Create(ctx, model.Post{UserID: "booster", RenoteID: original.ID})
	require.NoError(t, err)

	remaining := timelineRecipients(t, mem, original.ID)
	assert.Len(t, remaining, 1)
	assert.NotContains(t, remaining, entry.FeedUserID)
	assert.Equal(t, 1, canonical(t, mem, original.ID).RenoteCount)
}
