package service

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/d60-Lab/columnfeed/internal/model"
	"github.com/d60-Lab/columnfeed/internal/store"
	"github.com/d60-Lab/columnfeed/pkg/aid"
)

var (
	ErrAlreadyReacted = errors.New("user already reacted to this note")
	ErrNoPoll         = errors.New("note has no poll")
	ErrPollExpired    = errors.New("poll has expired")
	ErrBadPollChoice  = errors.New("invalid poll choice")
)

// ReactionService owns reactions and poll votes: the per-user rows, the
// aggregate counters on the note and its copies, and the notifications
// to the note's author.
type ReactionService struct {
	store         store.Store
	notes         *NoteService
	notifications *NotificationService
}

func NewReactionService(st store.Store, notes *NoteService, notifications *NotificationService) *ReactionService {
	return &ReactionService{store: st, notes: notes, notifications: notifications}
}

// React records userID's reaction to a note and propagates the new
// aggregate to every copy. One reaction per user per note.
func (s *ReactionService) React(ctx context.Context, noteID, userID, symbol string) error {
	post, err := s.notes.Get(ctx, noteID)
	if err != nil {
		return err
	}

	existing, err := s.store.Select(ctx, store.ReactionByNoteAndUser,
		store.Row{"noteId": noteID, "userId": userID})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return ErrAlreadyReacted
	}

	now := time.Now().UTC()
	r := model.Reaction{ID: aid.New(now), NoteID: noteID, UserID: userID, Reaction: symbol, CreatedAt: now}
	if err := s.store.Insert(ctx, store.InsertReaction, store.ReactionRow(r)); err != nil {
		return err
	}

	reactions := cloneCounts(post.Reactions)
	reactions[symbol]++
	s.notes.SetReactions(ctx, post, reactions, post.Score+1)

	return s.notifications.Notify(ctx, model.Notification{
		TargetID:   post.UserID,
		NotifierID: userID,
		Type:       model.NotificationReaction,
		EntityID:   noteID,
		Reaction:   symbol,
	})
}

// Unreact withdraws userID's reaction, if any.
func (s *ReactionService) Unreact(ctx context.Context, noteID, userID string) error {
	post, err := s.notes.Get(ctx, noteID)
	if err != nil {
		return err
	}

	existing, err := s.store.Select(ctx, store.ReactionByNoteAndUser,
		store.Row{"noteId": noteID, "userId": userID})
	if err != nil {
		return err
	}
	if len(existing) == 0 {
		return nil
	}
	r, err := store.DecodeReaction(existing[0])
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, store.DeleteReaction,
		store.Row{"noteId": noteID, "userId": userID}); err != nil {
		return err
	}

	reactions := cloneCounts(post.Reactions)
	if reactions[r.Reaction] <= 1 {
		delete(reactions, r.Reaction)
	} else {
		reactions[r.Reaction]--
	}
	score := post.Score - 1
	if score < 0 {
		score = 0
	}
	s.notes.SetReactions(ctx, post, reactions, score)
	return nil
}

// Vote records a poll vote. Repeat votes merge into the voter's
// existing choice set; a single-choice poll accepts one option.
func (s *ReactionService) Vote(ctx context.Context, noteID, userID string, choices []int) error {
	post, err := s.notes.Get(ctx, noteID)
	if err != nil {
		return err
	}
	if !post.HasPoll || post.Poll == nil {
		return ErrNoPoll
	}
	if post.Poll.ExpiresAt != nil && !post.Poll.ExpiresAt.After(time.Now()) {
		return ErrPollExpired
	}
	if len(choices) == 0 || (!post.Poll.Multiple && len(choices) > 1) {
		return ErrBadPollChoice
	}
	for _, c := range choices {
		if _, ok := post.Poll.Choices[c]; !ok {
			return ErrBadPollChoice
		}
	}

	merged := slices.Clone(choices)
	votes, err := s.store.Select(ctx, store.PollVotesByNote, store.Row{"noteId": noteID})
	if err != nil {
		return err
	}
	for _, row := range votes {
		v, err := store.DecodePollVote(row)
		if err != nil {
			continue
		}
		if v.UserID != userID {
			continue
		}
		for _, c := range v.Choice {
			if !slices.Contains(merged, c) {
				merged = append(merged, c)
			}
		}
	}
	slices.Sort(merged)

	vote := model.PollVote{NoteID: noteID, UserID: userID, Choice: merged, CreatedAt: time.Now().UTC()}
	if err := s.store.Insert(ctx, store.InsertPollVote, store.PollVoteRow(vote)); err != nil {
		return err
	}

	choice := choices[0]
	return s.notifications.Notify(ctx, model.Notification{
		TargetID:   post.UserID,
		NotifierID: userID,
		Type:       model.NotificationPollVote,
		EntityID:   noteID,
		Choice:     &choice,
	})
}

// Votes lists a note's accumulated poll votes.
func (s *ReactionService) Votes(ctx context.Context, noteID string) ([]model.PollVote, error) {
	rows, err := s.store.Select(ctx, store.PollVotesByNote, store.Row{"noteId": noteID})
	if err != nil {
		return nil, err
	}
	out := make([]model.PollVote, 0, len(rows))
	for _, row := range rows {
		v, err := store.DecodePollVote(row)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func cloneCounts(m map[string]int) map[string]int {
	out := make(map[string]int, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}
