package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/autoattend/autoattend-backend/internal/models"
	"github.com/autoattend/autoattend-backend/internal/services"
	"github.com/autoattend/autoattend-backend/pkg/storage"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// FirmwareStore publishes and serves scanner firmware
type FirmwareStore interface {
	Manifest(ctx context.Context) (*models.OTAManifest, error)
	Open(ctx context.Context, key string) (*storage.Object, error)
	Upload(ctx context.Context, version string, firmware io.Reader) (*models.OTAManifest, error)
}

// OTAHandler handles firmware update endpoints
type OTAHandler struct {
	firmware FirmwareStore
	audit    auditTrail
	logger   *logrus.Logger
}

// NewOTAHandler creates a new OTA handler
func NewOTAHandler(firmware FirmwareStore, audit AuditLogger, logger *logrus.Logger) *OTAHandler {
	return &OTAHandler{
		firmware: firmware,
		audit:    auditTrail{audit: audit, logger: logger},
		logger:   logger,
	}
}

// GetManifest handles GET /api/ota/manifest
func (h *OTAHandler) GetManifest(c *gin.Context) {
	manifest, err := h.firmware.Manifest(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, manifest)
}

// Download handles GET /api/ota/download
func (h *OTAHandler) Download(c *gin.Context) {
	obj, err := h.firmware.Open(c.Request.Context(), c.Query("key"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer obj.Body.Close()

	c.DataFromReader(http.StatusOK, obj.Size, "application/octet-stream", obj.Body, map[string]string{
		"Content-Disposition": `attachment; filename="firmware.bin"`,
	})
}

// Upload handles POST /api/ota/upload (multipart: version, firmware)
func (h *OTAHandler) Upload(c *gin.Context) {
	version := c.PostForm("version")

	var firmware io.Reader
	if header, err := c.FormFile("firmware"); err == nil {
		file, err := header.Open()
		if err != nil {
			h.logger.WithError(err).Error("Failed to open uploaded firmware")
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "firmware file required"})
			return
		}
		defer file.Close()
		firmware = file
	}

	manifest, err := h.firmware.Upload(c.Request.Context(), version, firmware)
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.audit.safeLogUserAction(c, "ota_upload", "firmware", manifest.Key, map[string]interface{}{
		"version": manifest.Version,
		"size":    manifest.Size,
		"sha256":  manifest.SHA256,
	})

	c.JSON(http.StatusOK, models.OTAUploadResponse{
		OK:          true,
		Manifest:    *manifest,
		DownloadURL: services.DownloadURL(manifest.Key),
	})
}

func (h *OTAHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrOTADisabled):
		c.JSON(http.StatusNotImplemented, ErrorResponse{Error: "OTA disabled (no object storage configured)"})
	case errors.Is(err, services.ErrManifestNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "No manifest found"})
	case errors.Is(err, services.ErrFirmwareNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Firmware not found"})
	case errors.Is(err, services.ErrInvalidFirmwareKey):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid key"})
	case errors.Is(err, services.ErrVersionRequired),
		errors.Is(err, services.ErrInvalidVersion),
		errors.Is(err, services.ErrFirmwareRequired):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, services.ErrFirmwareTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: err.Error()})
	case errors.Is(err, storage.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "Object storage temporarily unavailable"})
	default:
		h.logger.WithError(err).Error("OTA request failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "OTA request failed"})
	}
}
