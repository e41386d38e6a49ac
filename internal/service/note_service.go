package service

import (
	"context"
	"errors"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"github.com/d60-Lab/columnfeed/internal/model"
	"github.com/d60-Lab/columnfeed/internal/store"
	"github.com/d60-Lab/columnfeed/pkg/aid"
	"github.com/d60-Lab/columnfeed/pkg/logger"
)

var ErrNoteNotFound = errors.New("note not found")

// followerSet is the slice of the relation cache the fan-out path needs.
// *cache.SetCache satisfies it.
type followerSet interface {
	GetAll(ctx context.Context, subject string) ([]string, error)
}

// NoteService owns the note write path: the canonical row plus the
// fan-out to per-recipient home timeline copies. Copies live in
// different partitions, so there is no cross-copy transaction; per-copy
// failures are logged and reported but never block the canonical write
// or sibling copies.
type NoteService struct {
	store     store.Store
	followers followerSet
}

func NewNoteService(st store.Store, followers followerSet) *NoteService {
	return &NoteService{store: st, followers: followers}
}

// Create writes the canonical note row and fans out one home timeline
// copy per recipient (the author plus each local follower). Channel and
// direct posts skip home fan-out; local/global/score feeds are
// store-side projections of the canonical row and need no extra writes.
// Boosting or replying bumps the referenced note's counters.
func (s *NoteService) Create(ctx context.Context, post model.Post) (model.Post, error) {
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}
	if post.ID == "" {
		post.ID = aid.New(post.CreatedAt)
	}
	if post.Visibility == "" {
		post.Visibility = model.VisibilityPublic
	}

	if err := s.store.Insert(ctx, store.InsertNote, store.PostRow(post)); err != nil {
		return model.Post{}, err
	}

	if post.ChannelID == "" && post.Visibility != model.VisibilitySpecified {
		s.fanOutHome(ctx, post)
	}

	if post.RenoteID != "" {
		s.bumpRenoteCount(ctx, post.RenoteID, 1)
	}
	if post.ReplyID != "" {
		s.bumpRepliesCount(ctx, post.ReplyID, 1)
	}
	return post, nil
}

func (s *NoteService) fanOutHome(ctx context.Context, post model.Post) {
	recipients := []string{post.UserID}
	if s.followers != nil && post.UserHost == "" {
		followerIDs, err := s.followers.GetAll(ctx, post.UserID)
		if err != nil {
			logger.Error("loading followers for fan-out",
				zap.String("noteId", post.ID), zap.Error(err))
			sentry.CaptureException(err)
		} else {
			recipients = append(recipients, followerIDs...)
		}
	}
	for _, recipient := range recipients {
		if err := s.store.Insert(ctx, store.InsertHomeTimeline, store.TimelineRow(recipient, post)); err != nil {
			logger.Error("fan-out copy write failed",
				zap.String("noteId", post.ID),
				zap.String("recipient", recipient),
				zap.Error(err))
			sentry.CaptureException(err)
		}
	}
}

// Delete removes the canonical row and every live home timeline copy,
// and walks back the counters Create bumped. The renote counter is only
// decremented when the author has no other boost of the same note left.
func (s *NoteService) Delete(ctx context.Context, noteID string) error {
	post, err := s.byID(ctx, noteID)
	if err != nil {
		return err
	}

	if post.RenoteID != "" {
		remaining, err := s.CountSameRenotes(ctx, post.UserID, post.RenoteID, post.ID)
		if err != nil {
			logger.Error("counting sibling renotes", zap.String("noteId", noteID), zap.Error(err))
		} else if remaining == 0 {
			s.bumpRenoteCount(ctx, post.RenoteID, -1)
		}
	}
	if post.ReplyID != "" {
		s.bumpRepliesCount(ctx, post.ReplyID, -1)
	}

	if err := s.store.Delete(ctx, store.DeleteNote, store.PostKey(post)); err != nil {
		return err
	}

	copies, err := s.store.Select(ctx, store.HomeTimelineByID, store.Row{"id": post.ID})
	if err != nil {
		logger.Error("discovering timeline copies", zap.String("noteId", noteID), zap.Error(err))
		sentry.CaptureException(err)
		return nil
	}
	for _, row := range copies {
		entry, err := store.DecodeTimelineEntry(row)
		if err != nil {
			logger.Error("decoding timeline copy", zap.String("noteId", noteID), zap.Error(err))
			continue
		}
		if err := s.store.Delete(ctx, store.DeleteHomeTimeline, store.TimelineKey(entry)); err != nil {
			logger.Error("deleting timeline copy",
				zap.String("noteId", noteID),
				zap.String("recipient", entry.FeedUserID),
				zap.Error(err))
			sentry.CaptureException(err)
		}
	}
	return nil
}

// CountSameRenotes counts the author's boosts of renoteID, excluding
// excludeNoteID.
func (s *NoteService) CountSameRenotes(ctx context.Context, userID, renoteID, excludeNoteID string) (int, error) {
	rows, err := s.store.Select(ctx, store.NoteByRenoteAndUser,
		store.Row{"renoteId": renoteID, "userId": userID})
	if err != nil {
		return 0, err
	}
	n := 0
	for _, row := range rows {
		p, err := store.DecodePost(row)
		if err != nil {
			continue
		}
		if p.ID != excludeNoteID {
			n++
		}
	}
	return n, nil
}

// SetReactions propagates a new reaction aggregate and score to the
// canonical row and every live copy.
func (s *NoteService) SetReactions(ctx context.Context, post model.Post, reactions map[string]int, score int) {
	s.propagate(ctx, post,
		store.UpdateNoteReactions, store.UpdateHomeReactions,
		store.Row{"reactions": reactions, "score": score})
}

func (s *NoteService) bumpRenoteCount(ctx context.Context, noteID string, delta int) {
	target, err := s.byID(ctx, noteID)
	if err != nil {
		logger.Warn("renote target missing", zap.String("noteId", noteID), zap.Error(err))
		return
	}
	count := target.RenoteCount + delta
	score := target.Score + delta
	if count < 0 {
		count = 0
	}
	if score < 0 {
		score = 0
	}
	s.propagate(ctx, target,
		store.UpdateNoteRenoteCount, store.UpdateHomeRenoteCount,
		store.Row{"renoteCount": count, "score": score})
}

func (s *NoteService) bumpRepliesCount(ctx context.Context, noteID string, delta int) {
	target, err := s.byID(ctx, noteID)
	if err != nil {
		logger.Warn("reply target missing", zap.String("noteId", noteID), zap.Error(err))
		return
	}
	count := target.RepliesCount + delta
	if count < 0 {
		count = 0
	}
	s.propagate(ctx, target,
		store.UpdateNoteRepliesCount, store.UpdateHomeRepliesCount,
		store.Row{"repliesCount": count})
}

// propagate applies a counter update to the canonical row, then to each
// copy found via the by-id lookup. Updates are conditional (IF EXISTS)
// so a concurrently deleted row is never resurrected. Concurrent
// read-modify-write increments can lose updates; that staleness is
// accepted, not prevented.
func (s *NoteService) propagate(ctx context.Context, target model.Post, noteQ, homeQ store.UpdateQuery, set store.Row) {
	if _, err := s.store.UpdateIfExists(ctx, noteQ, set, store.PostKey(target)); err != nil {
		logger.Error("updating canonical note", zap.String("noteId", target.ID), zap.Error(err))
		sentry.CaptureException(err)
	}

	copies, err := s.store.Select(ctx, store.HomeTimelineByID, store.Row{"id": target.ID})
	if err != nil {
		logger.Error("discovering timeline copies", zap.String("noteId", target.ID), zap.Error(err))
		sentry.CaptureException(err)
		return
	}
	for _, row := range copies {
		entry, err := store.DecodeTimelineEntry(row)
		if err != nil {
			logger.Error("decoding timeline copy", zap.String("noteId", target.ID), zap.Error(err))
			continue
		}
		if _, err := s.store.UpdateIfExists(ctx, homeQ, set, store.TimelineKey(entry)); err != nil {
			logger.Error("updating timeline copy",
				zap.String("noteId", target.ID),
				zap.String("recipient", entry.FeedUserID),
				zap.Error(err))
			sentry.CaptureException(err)
		}
	}
}

// Get returns the canonical note row.
func (s *NoteService) Get(ctx context.Context, noteID string) (model.Post, error) {
	return s.byID(ctx, noteID)
}

func (s *NoteService) byID(ctx context.Context, noteID string) (model.Post, error) {
	rows, err := s.store.Select(ctx, store.NoteByID, store.Row{"id": noteID})
	if err != nil {
		return model.Post{}, err
	}
	if len(rows) == 0 {
		return model.Post{}, ErrNoteNotFound
	}
	return store.DecodePost(rows[0])
}
