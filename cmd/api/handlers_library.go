package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/drcartoon/cartoonbox/internal/library"
	"github.com/drcartoon/cartoonbox/internal/metrics"
	"github.com/drcartoon/cartoonbox/internal/middleware"
	"github.com/drcartoon/cartoonbox/pkg/models"
)

// Health check endpoint
func (api *API) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := api.store.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
	})
}

// libraryError maps the service error taxonomy onto HTTP statuses.
func libraryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, library.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Sign-in required"})
	case errors.Is(err, library.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
	case errors.Is(err, library.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, library.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Library temporarily unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}

// List favorites endpoint
func (api *API) listFavorites(c *gin.Context) {
	sess, _ := middleware.GetSession(c)

	favorites, err := api.service.ListFavorites(c.Request.Context(), sess)
	if err != nil {
		libraryError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"favorites": favorites})
}

// Toggle favorite endpoint
func (api *API) toggleFavorite(c *gin.Context) {
	sess, _ := middleware.GetSession(c)
	videoID := c.Param("video_id")

	var req struct {
		Title string `json:"title"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	favorited, err := api.service.ToggleFavorite(c.Request.Context(), sess, videoID, req.Title)
	if err != nil {
		libraryError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"video_id": videoID, "favorited": favorited})
}

// List history endpoint
func (api *API) listHistory(c *gin.Context) {
	sess, _ := middleware.GetSession(c)

	limit := 0
	if rawLimit := c.Query("limit"); rawLimit != "" {
		parsed, err := strconv.Atoi(rawLimit)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = parsed
	}

	entries, err := api.service.ListHistory(c.Request.Context(), sess, limit)
	if err != nil {
		libraryError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"history": entries})
}

// Record watch endpoint
func (api *API) recordWatch(c *gin.Context) {
	sess, _ := middleware.GetSession(c)

	var req struct {
		VideoID string `json:"video_id" binding:"required"`
		Title   string `json:"title"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := api.service.RecordWatch(c.Request.Context(), sess, req.VideoID, req.Title); err != nil {
		libraryError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Watch recorded", "video_id": req.VideoID})
}

// Clear history endpoint
func (api *API) clearHistory(c *gin.Context) {
	sess, _ := middleware.GetSession(c)

	if err := api.service.ClearHistory(c.Request.Context(), sess); err != nil {
		libraryError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "History cleared"})
}

// Export history endpoint. The CSV is returned inline; with archival
// enabled and ?archive=true it is stored and a download link returned
// instead.
func (api *API) exportHistory(c *gin.Context) {
	sess, _ := middleware.GetSession(c)

	data, err := api.service.ExportHistoryCSV(c.Request.Context(), sess)
	if err != nil {
		libraryError(c, err)
		return
	}

	metrics.HistoryExportsTotal.Inc()

	if api.archiver != nil && c.Query("archive") == "true" {
		objectName, err := api.archiver.ArchiveExport(c.Request.Context(), sess.UID, data, time.Now())
		if err != nil {
			api.log.WithUserID(sess.UID).WithError(err).Error("Failed to archive export")
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Export archival failed"})
			return
		}
		url, err := api.archiver.PresignedURL(c.Request.Context(), objectName, time.Hour)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Export archival failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"object": objectName, "url": url})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="watch_history.csv"`)
	c.Data(http.StatusOK, "text/csv", data)
}

// Get progress endpoint
func (api *API) getProgress(c *gin.Context) {
	sess, _ := middleware.GetSession(c)
	videoID := c.Param("video_id")

	position, err := api.service.GetProgress(c.Request.Context(), sess, videoID)
	if err != nil {
		libraryError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"video_id": videoID, "position_seconds": position})
}

// Save progress endpoint
func (api *API) saveProgress(c *gin.Context) {
	sess, _ := middleware.GetSession(c)
	videoID := c.Param("video_id")

	var req struct {
		PositionSeconds *int `json:"position_seconds" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := api.service.SaveProgress(c.Request.Context(), sess, videoID, *req.PositionSeconds); err != nil {
		libraryError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"video_id": videoID, "position_seconds": *req.PositionSeconds})
}

// List resumables endpoint
func (api *API) listResumables(c *gin.Context) {
	sess, _ := middleware.GetSession(c)

	resumables, err := api.service.ComputeResumables(c.Request.Context(), sess)
	if err != nil {
		libraryError(c, err)
		return
	}

	if resumables == nil {
		resumables = []models.Resumable{}
	}
	c.JSON(http.StatusOK, gin.H{"resumables": resumables})
}
