package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/drcartoon/cartoonbox/internal/library"
	"github.com/drcartoon/cartoonbox/internal/logging"
	"github.com/drcartoon/cartoonbox/internal/middleware"
	"github.com/drcartoon/cartoonbox/pkg/models"
)

func setupTestAPI(t *testing.T) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger, err := logging.NewDefaultLogger()
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	store := library.NewMemoryStore()
	api := &API{
		service: library.NewService(store, logger, models.DefaultHistoryLimit),
		store:   store,
		log:     logger,
	}

	middleware.SetJWTSecret("test-secret")
	token, err := middleware.GenerateToken(models.Session{
		UID:     "user-1",
		Profile: models.Profile{Email: "kid@example.com", DisplayName: "Kid"},
	}, time.Hour)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	return setupRouter(api, logger), token
}

func doJSON(router *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	router, _ := setupTestAPI(t)

	w := doJSON(router, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestLibraryRequiresSession(t *testing.T) {
	router, _ := setupTestAPI(t)

	paths := []struct{ method, path string }{
		{"GET", "/api/v1/library/favorites"},
		{"GET", "/api/v1/library/history"},
		{"POST", "/api/v1/library/history"},
		{"DELETE", "/api/v1/library/history"},
		{"GET", "/api/v1/library/history/export"},
		{"GET", "/api/v1/library/progress/video-1"},
		{"GET", "/api/v1/library/resumables"},
	}

	for _, p := range paths {
		w := doJSON(router, p.method, p.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", p.method, p.path)
	}
}

func TestFavoriteToggleFlow(t *testing.T) {
	router, token := setupTestAPI(t)

	w := doJSON(router, "PUT", "/api/v1/library/favorites/video-1", token, gin.H{"title": "Adventures"})
	assert.Equal(t, http.StatusOK, w.Code)

	var toggled struct {
		VideoID   string `json:"video_id"`
		Favorited bool   `json:"favorited"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &toggled))
	assert.True(t, toggled.Favorited)

	w = doJSON(router, "GET", "/api/v1/library/favorites", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var listing struct {
		Favorites []models.FavoriteEntry `json:"favorites"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &listing))
	assert.Len(t, listing.Favorites, 1)
	assert.Equal(t, "Adventures", listing.Favorites[0].Title)

	// Second toggle removes.
	w = doJSON(router, "PUT", "/api/v1/library/favorites/video-1", token, gin.H{"title": "Adventures"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &toggled))
	assert.False(t, toggled.Favorited)
}

func TestHistoryFlow(t *testing.T) {
	router, token := setupTestAPI(t)

	for i := 0; i < 3; i++ {
		w := doJSON(router, "POST", "/api/v1/library/history", token, gin.H{
			"video_id": fmt.Sprintf("video-%d", i),
			"title":    "Episode",
		})
		assert.Equal(t, http.StatusCreated, w.Code)
	}

	w := doJSON(router, "GET", "/api/v1/library/history?limit=2", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var listing struct {
		History []models.WatchHistoryEntry `json:"history"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &listing))
	assert.Len(t, listing.History, 2)
	assert.Equal(t, "video-2", listing.History[0].VideoID)

	w = doJSON(router, "GET", "/api/v1/library/history?limit=-1", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, "DELETE", "/api/v1/library/history", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, "GET", "/api/v1/library/history", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	listing.History = nil
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &listing))
	assert.Len(t, listing.History, 0)
}

func TestHistoryRequiresVideoID(t *testing.T) {
	router, token := setupTestAPI(t)

	w := doJSON(router, "POST", "/api/v1/library/history", token, gin.H{"title": "Episode"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProgressFlow(t *testing.T) {
	router, token := setupTestAPI(t)

	w := doJSON(router, "GET", "/api/v1/library/progress/video-1", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var progress struct {
		VideoID         string `json:"video_id"`
		PositionSeconds int    `json:"position_seconds"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &progress))
	assert.Equal(t, 0, progress.PositionSeconds)

	w = doJSON(router, "PUT", "/api/v1/library/progress/video-1", token, gin.H{"position_seconds": 300})
	assert.Equal(t, http.StatusOK, w.Code)

	// Explicit reset to 0 round-trips.
	w = doJSON(router, "PUT", "/api/v1/library/progress/video-1", token, gin.H{"position_seconds": 0})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, "GET", "/api/v1/library/progress/video-1", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &progress))
	assert.Equal(t, 0, progress.PositionSeconds)

	w = doJSON(router, "PUT", "/api/v1/library/progress/video-1", token, gin.H{"position_seconds": -10})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResumablesFlow(t *testing.T) {
	router, token := setupTestAPI(t)

	w := doJSON(router, "POST", "/api/v1/library/history", token, gin.H{"video_id": "video-1", "title": "Adventures"})
	assert.Equal(t, http.StatusCreated, w.Code)
	w = doJSON(router, "POST", "/api/v1/library/history", token, gin.H{"video_id": "video-2", "title": "Space Cats"})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(router, "PUT", "/api/v1/library/progress/video-1", token, gin.H{"position_seconds": 120})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, "GET", "/api/v1/library/resumables", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var listing struct {
		Resumables []models.Resumable `json:"resumables"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &listing))
	assert.Len(t, listing.Resumables, 1)
	assert.Equal(t, "video-1", listing.Resumables[0].VideoID)
	assert.Equal(t, 120, listing.Resumables[0].PositionSeconds)
}

func TestExportHistory(t *testing.T) {
	router, token := setupTestAPI(t)

	w := doJSON(router, "POST", "/api/v1/library/history", token, gin.H{"video_id": "video-1", "title": "Adventures"})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(router, "GET", "/api/v1/library/history/export", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "watch_history.csv")
	assert.Contains(t, w.Body.String(), "video_id,title,watched_at,exported_at")
	assert.Contains(t, w.Body.String(), "video-1")
}

func TestLogout(t *testing.T) {
	router, _ := setupTestAPI(t)

	w := doJSON(router, "POST", "/auth/logout", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
