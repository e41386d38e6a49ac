package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/columnfeed/pkg/response"
)

// Notifications serves the caller's notification feed, dropping entries
// from muted notifiers.
// @Summary Notification feed
// @Tags notifications
// @Produce json
// @Param limit query int false "page size" default(10)
// @Success 200 {object} response.Response
// @Router /api/v1/notifications [get]
func (h *Handler) Notifications(c *gin.Context) {
	actor := actorID(c)
	if actor == "" {
		response.BadRequest(c, "authentication required")
		return
	}
	ctx := c.Request.Context()
	muted, err := h.feedService.MutedIDs(ctx, actor)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	p := pageParams(c)
	p.UserID = actor
	items, err := h.notificationService.List(ctx, p, muted)
	if err != nil {
		feedError(c, err)
		return
	}
	response.Success(c, items)
}

// UserReactions serves the reactions one user has made, newest first.
// @Summary Reactions by a user
// @Tags notifications
// @Param user_id path string true "user id"
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/users/{user_id}/reactions [get]
func (h *Handler) UserReactions(c *gin.Context) {
	p := pageParams(c)
	p.UserID = c.Param("user_id")
	items, err := h.feedService.Reactions(c.Request.Context(), p)
	if err != nil {
		feedError(c, err)
		return
	}
	response.Success(c, items)
}
