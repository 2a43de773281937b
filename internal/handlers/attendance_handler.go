package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/autoattend/autoattend-backend/internal/middleware"
	"github.com/autoattend/autoattend-backend/internal/models"
	"github.com/autoattend/autoattend-backend/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AttendanceRecorder records badge scans
type AttendanceRecorder interface {
	Record(ctx context.Context, rawHex, action string) (*services.RecordResult, error)
}

// AttendanceReports serves attendance listings, stats and exports
type AttendanceReports interface {
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceView, error)
	Stats(ctx context.Context) (*models.AttendanceStats, error)
	ExportCSV(ctx context.Context, filter models.AttendanceFilter, w io.Writer) error
}

// AttendanceHandler handles scanner and attendance report endpoints
type AttendanceHandler struct {
	recorder AttendanceRecorder
	reports  AttendanceReports
	logger   *logrus.Logger
}

// NewAttendanceHandler creates a new attendance handler
func NewAttendanceHandler(recorder AttendanceRecorder, reports AttendanceReports, logger *logrus.Logger) *AttendanceHandler {
	return &AttendanceHandler{
		recorder: recorder,
		reports:  reports,
		logger:   logger,
	}
}

// Detect handles POST /api/esp32/detect
func (h *AttendanceHandler) Detect(c *gin.Context) {
	var req models.DetectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if claims, ok := middleware.GetDeviceClaims(c); ok {
		h.logger.WithFields(logrus.Fields{
			"device_id": claims.DeviceID,
			"hex_value": req.HexValue,
		}).Debug("Scan from authenticated device")
	}

	result, err := h.recorder.Record(c.Request.Context(), req.HexValue, req.Action)
	if err != nil {
		var dup *services.DuplicateEventError
		switch {
		case errors.Is(err, services.ErrInvalidBadge):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid hex value - cannot convert to employee name"})
		case errors.Is(err, services.ErrEmployeeNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Employee not found",
				"details": fmt.Sprintf("No active employee found with hex value '%s'", strings.ToUpper(strings.TrimSpace(req.HexValue))),
			})
		case errors.As(err, &dup):
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   dup.Title(),
				"message": dup.Message(),
			})
		default:
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to record attendance"})
		}
		return
	}

	if result.Deduped {
		c.JSON(http.StatusOK, models.DedupedResponse{Success: true, Deduped: true})
		return
	}

	employee := result.Employee
	c.JSON(http.StatusOK, models.DetectResponse{
		Success:            true,
		EmployeeName:       employee.Name,
		EmployeeRole:       employee.Role,
		EmployeeDepartment: employee.Department,
		EmployeeEmpID:      employee.EmpID,
		Status:             result.Record.Status,
		RecordedAt:         result.RecordedAt,
		TimestampDetails:   result.Timestamp,
	})
}

// ListAttendance handles GET /api/attendance
func (h *AttendanceHandler) ListAttendance(c *gin.Context) {
	filter, ok := bindAttendanceFilter(c)
	if !ok {
		return
	}

	records, err := h.reports.List(c.Request.Context(), filter)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list attendance")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch attendance"})
		return
	}
	if records == nil {
		records = []models.AttendanceView{}
	}
	c.JSON(http.StatusOK, records)
}

// GetStats handles GET /api/attendance/stats
func (h *AttendanceHandler) GetStats(c *gin.Context) {
	stats, err := h.reports.Stats(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to compute attendance stats")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ExportAttendance handles GET /api/attendance/export
func (h *AttendanceHandler) ExportAttendance(c *gin.Context) {
	filter, ok := bindAttendanceFilter(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.reports.ExportCSV(c.Request.Context(), filter, &buf); err != nil {
		if errors.Is(err, services.ErrExportRangeRequired) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Provide either ?date=YYYY-MM-DD or ?month=YYYY-MM"})
			return
		}
		h.logger.WithError(err).Error("Failed to export attendance")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to export attendance"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, services.ExportFilename(filter)))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func bindAttendanceFilter(c *gin.Context) (models.AttendanceFilter, bool) {
	var filter models.AttendanceFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid query parameters",
			"details": err.Error(),
		})
		return filter, false
	}
	return filter, true
}
