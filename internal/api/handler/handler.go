package handler

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/time/rate"

	"github.com/d60-Lab/columnfeed/internal/feed"
	"github.com/d60-Lab/columnfeed/internal/service"
	"github.com/d60-Lab/columnfeed/pkg/response"
)

// Handler holds the services behind the HTTP surface.
type Handler struct {
	feedService         *service.FeedService
	noteService         *service.NoteService
	relService          *service.RelationshipService
	notificationService *service.NotificationService
	reactionService     *service.ReactionService
	countService        *service.CountService
}

func NewHandler(
	feedService *service.FeedService,
	noteService *service.NoteService,
	relService *service.RelationshipService,
	notificationService *service.NotificationService,
	reactionService *service.ReactionService,
	countService *service.CountService,
) *Handler {
	return &Handler{
		feedService:         feedService,
		noteService:         noteService,
		relService:          relService,
		notificationService: notificationService,
		reactionService:     reactionService,
		countService:        countService,
	}
}

// actorID returns the authenticated user carried by the gateway, empty
// for anonymous requests.
func actorID(c *gin.Context) string {
	return c.GetHeader("X-User-Id")
}

// feedError maps pagination errors onto the response envelope.
func feedError(c *gin.Context, err error) {
	if errors.Is(err, feed.ErrMissingParameter) || errors.Is(err, feed.ErrUnknownKind) {
		response.BadRequest(c, err.Error())
		return
	}
	response.InternalError(c, err)
}

func rateLimit(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, response.Response{
				Code:    http.StatusTooManyRequests,
				Message: "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}

// NewRouter wires all routes onto a gin engine.
func NewRouter(h *Handler, serviceName string, rps float64, burst int) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	if rps > 0 {
		r.Use(rateLimit(rate.NewLimiter(rate.Limit(rps), burst)))
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	{
		timelines := v1.Group("/timelines")
		{
			timelines.GET("/home", h.HomeTimeline)
			timelines.GET("/local", h.LocalTimeline)
			timelines.GET("/global", h.GlobalTimeline)
			timelines.GET("/score", h.ScoreTimeline)
			timelines.GET("/user/:user_id", h.UserTimeline)
			timelines.GET("/channel/:channel_id", h.ChannelTimeline)
			timelines.POST("/list", h.ListTimeline)
			timelines.POST("/antenna", h.AntennaTimeline)
		}
		notes := v1.Group("/notes")
		{
			notes.POST("", h.CreateNote)
			notes.GET("/:note_id", h.GetNote)
			notes.DELETE("/:note_id", h.DeleteNote)
			notes.GET("/:note_id/counts", h.NoteCounts)
			notes.GET("/:note_id/renotes", h.NoteRenotes)
			notes.POST("/:note_id/reactions", h.React)
			notes.DELETE("/:note_id/reactions", h.Unreact)
			notes.POST("/:note_id/votes", h.Vote)
			notes.GET("/:note_id/votes", h.Votes)
		}
		relations := v1.Group("/relations")
		{
			relations.POST("/follow", h.Follow)
			relations.POST("/unfollow", h.Unfollow)
			relations.POST("/mute", h.Mute)
			relations.POST("/unmute", h.Unmute)
			relations.POST("/renote-mute", h.MuteRenotes)
			relations.POST("/renote-unmute", h.UnmuteRenotes)
			relations.POST("/block", h.Block)
			relations.POST("/unblock", h.Unblock)
			relations.POST("/channels/follow", h.FollowChannel)
			relations.POST("/channels/unfollow", h.UnfollowChannel)
			relations.PUT("/muted-words", h.SetMutedWords)
			relations.PUT("/muted-instances", h.SetMutedInstances)
			relations.GET("/:user_id/snapshot", h.RelationSnapshot)
		}
		v1.GET("/notifications", h.Notifications)
		v1.GET("/users/:user_id/reactions", h.UserReactions)
	}
	return r
}
