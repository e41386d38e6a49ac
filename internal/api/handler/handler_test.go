package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/d60-Lab/columnfeed/internal/cache"
	"github.com/d60-Lab/columnfeed/internal/feed"
	"github.com/d60-Lab/columnfeed/internal/model"
	"github.com/d60-Lab/columnfeed/internal/repository"
	"github.com/d60-Lab/columnfeed/internal/service"
	"github.com/d60-Lab/columnfeed/internal/store"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.UserProfile{},
		&model.Follow{},
		&model.Muting{},
		&model.RenoteMuting{},
		&model.Blocking{},
		&model.Channel{},
		&model.ChannelFollowing{},
	))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	st := store.NewMemory()
	repo := repository.NewRelationRepository(db)
	relations := cache.NewRelations(rdb, repo, time.Hour)
	engine := feed.NewEngine(st, 0, 0)

	noteService := service.NewNoteService(st, relations.LocalFollowers)
	notificationService := service.NewNotificationService(st, engine)
	h := NewHandler(
		service.NewFeedService(engine, relations),
		noteService,
		service.NewRelationshipService(repo, relations),
		notificationService,
		service.NewReactionService(st, noteService, notificationService),
		service.NewCountService(st, rdb),
	)
	return NewRouter(h, "columnfeed-test", 0, 0)
}

func doJSON(t *testing.T, r *gin.Engine, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User-Id", user)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func dataList(t *testing.T, w *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var env struct {
		Code int              `json:"code"`
		Data []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.Equal(t, 0, env.Code)
	return env.Data
}

func TestCreateAndFetchNote(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/notes", "alice", gin.H{
		"text": "hello", "visibility": "public",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var created struct {
		Data model.Post `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.Data.ID)

	w = doJSON(t, r, http.MethodGet, "/api/v1/notes/"+created.Data.ID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/notes/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateNoteRequiresAuth(t *testing.T) {
	r := newTestRouter(t)
	w := doJSON(t, r, http.MethodPost, "/api/v1/notes", "", gin.H{"text": "hi"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHomeTimelineSeesFollowedAuthors(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/relations/follow", "", gin.H{
		"from_user_id": "alice", "to_user_id": "bob",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/v1/notes", "bob", gin.H{
		"text": "from bob", "visibility": "home",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/timelines/home", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	posts := dataList(t, w)
	require.Len(t, posts, 1)
	assert.Equal(t, "bob", posts[0]["UserID"])

	// carol does not follow bob and sees nothing.
	w = doJSON(t, r, http.MethodGet, "/api/v1/timelines/home", "carol", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, dataList(t, w))
}

func TestLocalTimelineAndMute(t *testing.T) {
	r := newTestRouter(t)

	for i, author := range []string{"alice", "bob"} {
		w := doJSON(t, r, http.MethodPost, "/api/v1/notes", author, gin.H{
			"text": fmt.Sprintf("note %d", i), "visibility": "public",
		})
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := doJSON(t, r, http.MethodGet, "/api/v1/timelines/local", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, dataList(t, w), 2)

	w = doJSON(t, r, http.MethodPost, "/api/v1/relations/mute", "", gin.H{
		"from_user_id": "carol", "to_user_id": "bob",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/timelines/local", "carol", nil)
	require.Equal(t, http.StatusOK, w.Code)
	posts := dataList(t, w)
	require.Len(t, posts, 1)
	assert.Equal(t, "alice", posts[0]["UserID"])
}

func TestFollowValidation(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/relations/follow", "", gin.H{
		"from_user_id": "alice",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/v1/relations/follow", "", gin.H{
		"from_user_id": "alice", "to_user_id": "alice",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReactionFlowAndCounts(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/notes", "alice", gin.H{
		"text": "react to me", "visibility": "public",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var created struct {
		Data model.Post `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	noteID := created.Data.ID

	w = doJSON(t, r, http.MethodPost, "/api/v1/notes/"+noteID+"/reactions", "bob", gin.H{"symbol": "👍"})
	require.Equal(t, http.StatusOK, w.Code)

	// Second reaction from the same user is rejected.
	w = doJSON(t, r, http.MethodPost, "/api/v1/notes/"+noteID+"/reactions", "bob", gin.H{"symbol": "🎉"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/notes/"+noteID+"/counts", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var counts struct {
		Data struct {
			Reactions int64 `json:"reactions"`
			Renotes   int64 `json:"renotes"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &counts))
	assert.Equal(t, int64(1), counts.Data.Reactions)
	assert.Equal(t, int64(0), counts.Data.Renotes)
}

func TestListTimelineBadRequest(t *testing.T) {
	r := newTestRouter(t)
	w := doJSON(t, r, http.MethodPost, "/api/v1/timelines/list", "", gin.H{"user_ids": []string{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNotificationsRequireAuth(t *testing.T) {
	r := newTestRouter(t)
	w := doJSON(t, r, http.MethodGet, "/api/v1/notifications", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthz(t *testing.T) {
	r := newTestRouter(t)
	w := doJSON(t, r, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
