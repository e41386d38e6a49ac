package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/columnfeed/internal/feed"
	"github.com/d60-Lab/columnfeed/pkg/response"
)

// pageParams parses the cursor query parameters common to every feed
// endpoint.
func pageParams(c *gin.Context) feed.Params {
	p := feed.Params{
		SinceID: c.Query("since_id"),
		UntilID: c.Query("until_id"),
	}
	p.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "10"))
	if v := c.Query("since_date"); v != "" {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			p.SinceDate = time.UnixMilli(ms).UTC()
		}
	}
	if v := c.Query("until_date"); v != "" {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			p.UntilDate = time.UnixMilli(ms).UTC()
		}
	}
	return p
}

func withReplies(c *gin.Context) bool {
	v, _ := strconv.ParseBool(c.DefaultQuery("with_replies", "false"))
	return v
}

// HomeTimeline serves the caller's fan-out home feed.
// @Summary Home timeline
// @Tags timelines
// @Produce json
// @Param limit query int false "page size" default(10)
// @Param since_id query string false "oldest note id (exclusive)"
// @Param until_id query string false "newest note id (exclusive)"
// @Success 200 {object} response.Response
// @Router /api/v1/timelines/home [get]
func (h *Handler) HomeTimeline(c *gin.Context) {
	actor := actorID(c)
	if actor == "" {
		response.BadRequest(c, "authentication required")
		return
	}
	p := pageParams(c)
	p.UserID = actor
	posts, err := h.feedService.Home(c.Request.Context(), p)
	if err != nil {
		feedError(c, err)
		return
	}
	response.Success(c, posts)
}

// LocalTimeline serves notes by local authors.
// @Summary Local timeline
// @Tags timelines
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/timelines/local [get]
func (h *Handler) LocalTimeline(c *gin.Context) {
	posts, err := h.feedService.Local(c.Request.Context(), actorID(c), withReplies(c), pageParams(c))
	if err != nil {
		feedError(c, err)
		return
	}
	response.Success(c, posts)
}

// GlobalTimeline serves all public notes, local and federated.
// @Summary Global timeline
// @Tags timelines
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/timelines/global [get]
func (h *Handler) GlobalTimeline(c *gin.Context) {
	posts, err := h.feedService.Global(c.Request.Context(), actorID(c), withReplies(c), pageParams(c))
	if err != nil {
		feedError(c, err)
		return
	}
	response.Success(c, posts)
}

// ScoreTimeline serves notes ordered within each day by engagement
// score.
// @Summary Trending timeline
// @Tags timelines
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/timelines/score [get]
func (h *Handler) ScoreTimeline(c *gin.Context) {
	posts, err := h.feedService.Score(c.Request.Context(), actorID(c), pageParams(c))
	if err != nil {
		feedError(c, err)
		return
	}
	response.Success(c, posts)
}

// UserTimeline serves one author's notes.
// @Summary User timeline
// @Tags timelines
// @Param user_id path string true "author id"
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/timelines/user/{user_id} [get]
func (h *Handler) UserTimeline(c *gin.Context) {
	p := pageParams(c)
	p.UserID = c.Param("user_id")
	posts, err := h.feedService.User(c.Request.Context(), actorID(c), withReplies(c), p)
	if err != nil {
		feedError(c, err)
		return
	}
	response.Success(c, posts)
}

// NoteRenotes serves the boosts one note has received, newest first.
// @Summary Renotes of a note
// @Tags notes
// @Param note_id path string true "boosted note id"
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/notes/{note_id}/renotes [get]
func (h *Handler) NoteRenotes(c *gin.Context) {
	p := pageParams(c)
	p.NoteID = c.Param("note_id")
	posts, err := h.feedService.Renotes(c.Request.Context(), actorID(c), p)
	if err != nil {
		feedError(c, err)
		return
	}
	response.Success(c, posts)
}

// ChannelTimeline serves one channel's notes.
// @Summary Channel timeline
// @Tags timelines
// @Param channel_id path string true "channel id"
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/timelines/channel/{channel_id} [get]
func (h *Handler) ChannelTimeline(c *gin.Context) {
	p := pageParams(c)
	p.ChannelID = c.Param("channel_id")
	posts, err := h.feedService.Channel(c.Request.Context(), actorID(c), p)
	if err != nil {
		feedError(c, err)
		return
	}
	response.Success(c, posts)
}

type poolRequest struct {
	UserIDs   []string `json:"user_ids" binding:"required,min=1"`
	Limit     int      `json:"limit"`
	SinceID   string   `json:"since_id"`
	UntilID   string   `json:"until_id"`
	SinceDate int64    `json:"since_date"`
	UntilDate int64    `json:"until_date"`
}

func (r poolRequest) params() feed.Params {
	p := feed.Params{
		Limit:   r.Limit,
		SinceID: r.SinceID,
		UntilID: r.UntilID,
		UserIDs: r.UserIDs,
	}
	if r.SinceDate > 0 {
		p.SinceDate = time.UnixMilli(r.SinceDate).UTC()
	}
	if r.UntilDate > 0 {
		p.UntilDate = time.UnixMilli(r.UntilDate).UTC()
	}
	return p
}

// ListTimeline merges the per-author columns of a user list. The member
// pool comes in the body because lists can hold hundreds of ids.
// @Summary List timeline
// @Tags timelines
// @Accept json
// @Produce json
// @Param request body poolRequest true "list members and cursor"
// @Success 200 {object} response.Response
// @Router /api/v1/timelines/list [post]
func (h *Handler) ListTimeline(c *gin.Context) {
	var req poolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	posts, err := h.feedService.List(c.Request.Context(), actorID(c), req.params())
	if err != nil {
		feedError(c, err)
		return
	}
	response.Success(c, posts)
}

// AntennaTimeline merges the per-author columns of an antenna's matched
// authors.
// @Summary Antenna timeline
// @Tags timelines
// @Accept json
// @Produce json
// @Param request body poolRequest true "matched authors and cursor"
// @Success 200 {object} response.Response
// @Router /api/v1/timelines/antenna [post]
func (h *Handler) AntennaTimeline(c *gin.Context) {
	var req poolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	posts, err := h.feedService.Antenna(c.Request.Context(), actorID(c), req.params())
	if err != nil {
		feedError(c, err)
		return
	}
	response.Success(c, posts)
}
