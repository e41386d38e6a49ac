package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/columnfeed/internal/model"
	"github.com/d60-Lab/columnfeed/internal/service"
	"github.com/d60-Lab/columnfeed/pkg/response"
)

type relationRequest struct {
	FromUserID string `json:"from_user_id" binding:"required"`
	ToUserID   string `json:"to_user_id" binding:"required"`
}

func (h *Handler) relationCall(c *gin.Context, fn func(ctx *gin.Context, from, to string) error) {
	var req relationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	err := fn(c, req.FromUserID, req.ToUserID)
	switch {
	case errors.Is(err, service.ErrFollowSelf), errors.Is(err, service.ErrBlocked):
		response.BadRequest(c, err.Error())
	case err != nil:
		response.InternalError(c, err)
	default:
		response.Success(c, nil)
	}
}

// Follow makes from_user_id follow to_user_id, updating the relational
// store and the Redis follow sets in the same call.
// @Summary Follow a user
// @Tags relations
// @Accept json
// @Produce json
// @Param request body relationRequest true "follow pair"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/relations/follow [post]
func (h *Handler) Follow(c *gin.Context) {
	h.relationCall(c, func(c *gin.Context, from, to string) error {
		return h.relService.Follow(c.Request.Context(), from, to)
	})
}

// Unfollow removes a follow edge.
// @Summary Unfollow a user
// @Tags relations
// @Accept json
// @Produce json
// @Param request body relationRequest true "follow pair"
// @Success 200 {object} response.Response
// @Router /api/v1/relations/unfollow [post]
func (h *Handler) Unfollow(c *gin.Context) {
	h.relationCall(c, func(c *gin.Context, from, to string) error {
		return h.relService.Unfollow(c.Request.Context(), from, to)
	})
}

type muteRequest struct {
	FromUserID string `json:"from_user_id" binding:"required"`
	ToUserID   string `json:"to_user_id" binding:"required"`
	ExpiresAt  *int64 `json:"expires_at"` // unix millis, absent = forever
}

// Mute hides to_user_id from from_user_id's feeds, optionally until
// expires_at.
// @Summary Mute a user
// @Tags relations
// @Accept json
// @Produce json
// @Param request body muteRequest true "mute pair with optional expiry"
// @Success 200 {object} response.Response
// @Router /api/v1/relations/mute [post]
func (h *Handler) Mute(c *gin.Context) {
	var req muteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	var expiresAt *time.Time
	if req.ExpiresAt != nil {
		at := time.UnixMilli(*req.ExpiresAt).UTC()
		expiresAt = &at
	}
	if err := h.relService.Mute(c.Request.Context(), req.FromUserID, req.ToUserID, expiresAt); err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, nil)
}

// Unmute lifts a user mute.
// @Summary Unmute a user
// @Tags relations
// @Accept json
// @Produce json
// @Param request body relationRequest true "mute pair"
// @Success 200 {object} response.Response
// @Router /api/v1/relations/unmute [post]
func (h *Handler) Unmute(c *gin.Context) {
	h.relationCall(c, func(c *gin.Context, from, to string) error {
		return h.relService.Unmute(c.Request.Context(), from, to)
	})
}

// MuteRenotes hides to_user_id's bare boosts while keeping their own
// notes visible.
// @Summary Mute a user's renotes
// @Tags relations
// @Accept json
// @Produce json
// @Param request body relationRequest true "mute pair"
// @Success 200 {object} response.Response
// @Router /api/v1/relations/renote-mute [post]
func (h *Handler) MuteRenotes(c *gin.Context) {
	h.relationCall(c, func(c *gin.Context, from, to string) error {
		return h.relService.MuteRenotes(c.Request.Context(), from, to)
	})
}

// UnmuteRenotes lifts a renote mute.
// @Summary Unmute a user's renotes
// @Tags relations
// @Accept json
// @Produce json
// @Param request body relationRequest true "mute pair"
// @Success 200 {object} response.Response
// @Router /api/v1/relations/renote-unmute [post]
func (h *Handler) UnmuteRenotes(c *gin.Context) {
	h.relationCall(c, func(c *gin.Context, from, to string) error {
		return h.relService.UnmuteRenotes(c.Request.Context(), from, to)
	})
}

// Block severs follows in both directions and rejects new ones.
// @Summary Block a user
// @Tags relations
// @Accept json
// @Produce json
// @Param request body relationRequest true "block pair"
// @Success 200 {object} response.Response
// @Router /api/v1/relations/block [post]
func (h *Handler) Block(c *gin.Context) {
	h.relationCall(c, func(c *gin.Context, from, to string) error {
		return h.relService.Block(c.Request.Context(), from, to)
	})
}

// Unblock lifts a block.
// @Summary Unblock a user
// @Tags relations
// @Accept json
// @Produce json
// @Param request body relationRequest true "block pair"
// @Success 200 {object} response.Response
// @Router /api/v1/relations/unblock [post]
func (h *Handler) Unblock(c *gin.Context) {
	h.relationCall(c, func(c *gin.Context, from, to string) error {
		return h.relService.Unblock(c.Request.Context(), from, to)
	})
}

type channelFollowRequest struct {
	UserID    string `json:"user_id" binding:"required"`
	ChannelID string `json:"channel_id" binding:"required"`
}

// FollowChannel subscribes a user to a channel.
// @Summary Follow a channel
// @Tags relations
// @Accept json
// @Produce json
// @Param request body channelFollowRequest true "subscription"
// @Success 200 {object} response.Response
// @Router /api/v1/relations/channels/follow [post]
func (h *Handler) FollowChannel(c *gin.Context) {
	var req channelFollowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.relService.FollowChannel(c.Request.Context(), req.UserID, req.ChannelID); err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, nil)
}

// UnfollowChannel removes a channel subscription.
// @Summary Unfollow a channel
// @Tags relations
// @Accept json
// @Produce json
// @Param request body channelFollowRequest true "subscription"
// @Success 200 {object} response.Response
// @Router /api/v1/relations/channels/unfollow [post]
func (h *Handler) UnfollowChannel(c *gin.Context) {
	var req channelFollowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.relService.UnfollowChannel(c.Request.Context(), req.UserID, req.ChannelID); err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, nil)
}

type mutedWordsRequest struct {
	Words []model.MutedWord `json:"words"`
}

// SetMutedWords replaces the caller's hard word-mute rules.
// @Summary Set muted words
// @Tags relations
// @Accept json
// @Produce json
// @Param request body mutedWordsRequest true "word-mute rules"
// @Success 200 {object} response.Response
// @Router /api/v1/relations/muted-words [put]
func (h *Handler) SetMutedWords(c *gin.Context) {
	actor := actorID(c)
	if actor == "" {
		response.BadRequest(c, "authentication required")
		return
	}
	var req mutedWordsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.relService.SetMutedWords(c.Request.Context(), actor, req.Words); err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, nil)
}

type mutedInstancesRequest struct {
	Hosts []string `json:"hosts"`
}

// SetMutedInstances replaces the caller's muted instance hosts.
// @Summary Set muted instances
// @Tags relations
// @Accept json
// @Produce json
// @Param request body mutedInstancesRequest true "instance hosts"
// @Success 200 {object} response.Response
// @Router /api/v1/relations/muted-instances [put]
func (h *Handler) SetMutedInstances(c *gin.Context) {
	actor := actorID(c)
	if actor == "" {
		response.BadRequest(c, "authentication required")
		return
	}
	var req mutedInstancesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.relService.SetMutedInstances(c.Request.Context(), actor, req.Hosts); err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, nil)
}

// RelationSnapshot dumps the cached relation state of one user, mostly
// for debugging cache drift.
// @Summary Relation snapshot
// @Tags relations
// @Param user_id path string true "user id"
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/relations/{user_id}/snapshot [get]
func (h *Handler) RelationSnapshot(c *gin.Context) {
	snap, err := h.relService.Snapshot(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, snap)
}
