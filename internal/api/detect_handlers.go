package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"fakenews/internal/detection"
	"fakenews/internal/detector"

	"github.com/gin-gonic/gin"
)

type DetectRequest struct {
	NewsText string `json:"newsText"`
	URL      string `json:"url"`
}

type ExplainRequest struct {
	Text string `json:"text"`
}

func serviceUnavailable(c *gin.Context) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": gin.H{"message": "Service unavailable"}})
}

// POST /detect
func DetectHandler(d Detector) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d == nil {
			serviceUnavailable(c)
			return
		}
		userId, ok := currentUserID(c)
		if !ok {
			abortUnauthenticated(c)
			return
		}
		var req DetectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "Invalid request"}})
			return
		}
		res, err := d.Detect(c.Request.Context(), userId, detector.Input{Text: req.NewsText, URL: req.URL})
		switch {
		case err == nil:
			c.JSON(http.StatusOK, res)
		case errors.Is(err, detector.ErrEmptyText):
			c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "News text is required"}})
		case errors.Is(err, detector.ErrArticle):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": gin.H{"message": "Could not read article", "details": err.Error()}})
		case errors.Is(err, detector.ErrClassification):
			log.Printf("[Detect] Classifier failed for user %d: %v", userId, err)
			c.JSON(http.StatusBadGateway, gin.H{"error": gin.H{"message": "Classification service unavailable"}})
		default:
			log.Printf("[Detect] Failed for user %d: %v", userId, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"message": "Failed to save detection"}})
		}
	}
}

// POST /explain always answers 200; failures are carried in the explanation text.
func ExplainHandler(e Explainer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if e == nil {
			serviceUnavailable(c)
			return
		}
		var req ExplainRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "Invalid request"}})
			return
		}
		c.JSON(http.StatusOK, gin.H{"explanation": e.Explain(c.Request.Context(), req.Text)})
	}
}

// GET /detections
func ListDetectionsHandler(store DetectionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil {
			serviceUnavailable(c)
			return
		}
		userId, ok := currentUserID(c)
		if !ok {
			abortUnauthenticated(c)
			return
		}
		list, err := store.ListByUser(c.Request.Context(), userId)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"message": "List error"}})
			return
		}
		if list == nil {
			list = []detection.Detection{}
		}
		c.JSON(http.StatusOK, list)
	}
}

// GET /detections/:id
func GetDetectionHandler(store DetectionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil {
			serviceUnavailable(c)
			return
		}
		userId, ok := currentUserID(c)
		if !ok {
			abortUnauthenticated(c)
			return
		}
		id, ok := parseID(c)
		if !ok {
			return
		}
		d, err := store.Get(c.Request.Context(), userId, id)
		if errors.Is(err, detection.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"message": "Detection not found"}})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"message": "Load error"}})
			return
		}
		c.JSON(http.StatusOK, d)
	}
}

// DELETE /detections/:id
func DeleteDetectionHandler(store DetectionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil {
			serviceUnavailable(c)
			return
		}
		userId, ok := currentUserID(c)
		if !ok {
			abortUnauthenticated(c)
			return
		}
		id, ok := parseID(c)
		if !ok {
			return
		}
		err := store.Delete(c.Request.Context(), userId, id)
		if errors.Is(err, detection.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"message": "Detection not found"}})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"message": "Delete error"}})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Detection deleted"})
	}
}

// GET /detections/stats
func DetectionStatsHandler(store DetectionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil {
			serviceUnavailable(c)
			return
		}
		userId, ok := currentUserID(c)
		if !ok {
			abortUnauthenticated(c)
			return
		}
		stats, err := store.StatsByUser(c.Request.Context(), userId)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"message": "Stats error"}})
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

// GET /detections/export streams the user's history as a CSV attachment.
func ExportDetectionsHandler(store DetectionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil {
			serviceUnavailable(c)
			return
		}
		userId, ok := currentUserID(c)
		if !ok {
			abortUnauthenticated(c)
			return
		}
		list, err := store.ListByUser(c.Request.Context(), userId)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"message": "Export error"}})
			return
		}
		name := detection.ExportFilename(time.Now())
		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
		c.Status(http.StatusOK)
		if err := detection.WriteCSV(c.Writer, list); err != nil {
			log.Printf("[Export] Failed writing CSV for user %d: %v", userId, err)
		}
	}
}
