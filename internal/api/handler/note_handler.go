package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/columnfeed/internal/model"
	"github.com/d60-Lab/columnfeed/internal/service"
	"github.com/d60-Lab/columnfeed/pkg/response"
)

type createNoteRequest struct {
	Text           string             `json:"text"`
	CW             string             `json:"cw"`
	Visibility     string             `json:"visibility"`
	ChannelID      string             `json:"channel_id"`
	ReplyID        string             `json:"reply_id"`
	RenoteID       string             `json:"renote_id"`
	Files          []model.DriveFile  `json:"files"`
	Mentions       []string           `json:"mentions"`
	VisibleUserIDs []string           `json:"visible_user_ids"`
	Tags           []string           `json:"tags"`
	Poll           *createPollRequest `json:"poll"`
}

type createPollRequest struct {
	Choices   []string `json:"choices" binding:"required,min=2"`
	Multiple  bool     `json:"multiple"`
	ExpiresAt *int64   `json:"expires_at"` // unix millis
}

// CreateNote authors a note and fans it out to follower timelines.
// @Summary Create a note
// @Tags notes
// @Accept json
// @Produce json
// @Param request body createNoteRequest true "note body"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/notes [post]
func (h *Handler) CreateNote(c *gin.Context) {
	actor := actorID(c)
	if actor == "" {
		response.BadRequest(c, "authentication required")
		return
	}
	var req createNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	post := model.Post{
		UserID:         actor,
		Text:           req.Text,
		CW:             req.CW,
		Visibility:     model.Visibility(req.Visibility),
		ChannelID:      req.ChannelID,
		ReplyID:        req.ReplyID,
		RenoteID:       req.RenoteID,
		Files:          req.Files,
		Mentions:       req.Mentions,
		VisibleUserIDs: req.VisibleUserIDs,
		Tags:           req.Tags,
	}
	if req.Poll != nil {
		choices := make(map[int]string, len(req.Poll.Choices))
		for i, text := range req.Poll.Choices {
			choices[i] = text
		}
		poll := &model.Poll{Choices: choices, Multiple: req.Poll.Multiple}
		if req.Poll.ExpiresAt != nil {
			at := time.UnixMilli(*req.Poll.ExpiresAt).UTC()
			poll.ExpiresAt = &at
		}
		post.HasPoll = true
		post.Poll = poll
	}

	created, err := h.noteService.Create(c.Request.Context(), post)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, created)
}

// GetNote returns the canonical copy of one note.
// @Summary Get a note
// @Tags notes
// @Param note_id path string true "note id"
// @Produce json
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/notes/{note_id} [get]
func (h *Handler) GetNote(c *gin.Context) {
	post, err := h.noteService.Get(c.Request.Context(), c.Param("note_id"))
	if errors.Is(err, service.ErrNoteNotFound) {
		response.NotFound(c, err.Error())
		return
	}
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, post)
}

// DeleteNote removes a note and every timeline copy of it.
// @Summary Delete a note
// @Tags notes
// @Param note_id path string true "note id"
// @Produce json
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/notes/{note_id} [delete]
func (h *Handler) DeleteNote(c *gin.Context) {
	err := h.noteService.Delete(c.Request.Context(), c.Param("note_id"))
	if errors.Is(err, service.ErrNoteNotFound) {
		response.NotFound(c, err.Error())
		return
	}
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, nil)
}

// NoteCounts returns the cached renote and reaction totals of a note.
// @Summary Note engagement counts
// @Tags notes
// @Param note_id path string true "note id"
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/notes/{note_id}/counts [get]
func (h *Handler) NoteCounts(c *gin.Context) {
	noteID := c.Param("note_id")
	ctx := c.Request.Context()
	renotes, err := h.countService.RenoteCount(ctx, noteID)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	reactions, err := h.countService.ReactionCount(ctx, noteID)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"renotes": renotes, "reactions": reactions})
}

type reactRequest struct {
	Symbol string `json:"symbol" binding:"required"`
}

// React records one reaction per user per note.
// @Summary React to a note
// @Tags notes
// @Accept json
// @Produce json
// @Param note_id path string true "note id"
// @Param request body reactRequest true "reaction symbol"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/notes/{note_id}/reactions [post]
func (h *Handler) React(c *gin.Context) {
	actor := actorID(c)
	if actor == "" {
		response.BadRequest(c, "authentication required")
		return
	}
	var req reactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	err := h.reactionService.React(c.Request.Context(), c.Param("note_id"), actor, req.Symbol)
	switch {
	case errors.Is(err, service.ErrNoteNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, service.ErrAlreadyReacted):
		response.BadRequest(c, err.Error())
	case err != nil:
		response.InternalError(c, err)
	default:
		h.countService.Invalidate(c.Request.Context(), c.Param("note_id"))
		response.Success(c, nil)
	}
}

// Unreact removes the caller's reaction, if any.
// @Summary Remove a reaction
// @Tags notes
// @Param note_id path string true "note id"
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/notes/{note_id}/reactions [delete]
func (h *Handler) Unreact(c *gin.Context) {
	actor := actorID(c)
	if actor == "" {
		response.BadRequest(c, "authentication required")
		return
	}
	if err := h.reactionService.Unreact(c.Request.Context(), c.Param("note_id"), actor); err != nil {
		response.InternalError(c, err)
		return
	}
	h.countService.Invalidate(c.Request.Context(), c.Param("note_id"))
	response.Success(c, nil)
}

type voteRequest struct {
	Choices []int `json:"choices" binding:"required,min=1"`
}

// Vote records poll choices, merging with the caller's earlier votes on
// multiple-choice polls.
// @Summary Vote on a poll
// @Tags notes
// @Accept json
// @Produce json
// @Param note_id path string true "note id"
// @Param request body voteRequest true "choice indexes"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/notes/{note_id}/votes [post]
func (h *Handler) Vote(c *gin.Context) {
	actor := actorID(c)
	if actor == "" {
		response.BadRequest(c, "authentication required")
		return
	}
	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	err := h.reactionService.Vote(c.Request.Context(), c.Param("note_id"), actor, req.Choices)
	switch {
	case errors.Is(err, service.ErrNoteNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, service.ErrNoPoll),
		errors.Is(err, service.ErrPollExpired),
		errors.Is(err, service.ErrBadPollChoice):
		response.BadRequest(c, err.Error())
	case err != nil:
		response.InternalError(c, err)
	default:
		response.Success(c, nil)
	}
}

// Votes lists the recorded votes of a poll.
// @Summary Poll votes
// @Tags notes
// @Param note_id path string true "note id"
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/notes/{note_id}/votes [get]
func (h *Handler) Votes(c *gin.Context) {
	votes, err := h.reactionService.Votes(c.Request.Context(), c.Param("note_id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, votes)
}
