package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger checks a backing service
type Pinger interface {
	PingContext(ctx context.Context) error
}

// JobStatusReporter reports scheduled job status
type JobStatusReporter interface {
	GetJobStatus() map[string]interface{}
}

// SystemHandler serves health and operational endpoints
type SystemHandler struct {
	db      Pinger
	jobs    JobStatusReporter
	version string
}

// NewSystemHandler creates a new system handler
func NewSystemHandler(db Pinger, jobs JobStatusReporter, version string) *SystemHandler {
	return &SystemHandler{
		db:      db,
		jobs:    jobs,
		version: version,
	}
}

// Health handles GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"database": "unhealthy",
			"error":    err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"database":  "healthy",
		"version":   h.version,
		"timestamp": time.Now().Unix(),
	})
}

// JobStatus handles GET /api/admin/jobs
func (h *SystemHandler) JobStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.jobs.GetJobStatus())
}
