package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/autoattend/autoattend-backend/internal/middleware"
	"github.com/autoattend/autoattend-backend/pkg/jwt"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// DeviceTokenIssuer signs scanner tokens
type DeviceTokenIssuer interface {
	GenerateDeviceToken(deviceID string, issuedBy int64) (string, time.Time, error)
}

// DeviceHandler handles scanner provisioning
type DeviceHandler struct {
	tokens DeviceTokenIssuer
	audit  auditTrail
	logger *logrus.Logger
}

// NewDeviceHandler creates a new device handler
func NewDeviceHandler(tokens DeviceTokenIssuer, audit AuditLogger, logger *logrus.Logger) *DeviceHandler {
	return &DeviceHandler{
		tokens: tokens,
		audit:  auditTrail{audit: audit, logger: logger},
		logger: logger,
	}
}

// IssueTokenRequest represents the request to provision a scanner
type IssueTokenRequest struct {
	DeviceID string `json:"device_id" binding:"required,max=64"`
}

// IssueTokenResponse carries the bearer token to flash onto the scanner
type IssueTokenResponse struct {
	DeviceID  string    `json:"device_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IssueToken handles POST /api/devices/token
func (h *DeviceHandler) IssueToken(c *gin.Context) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	var req IssueTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	token, expiresAt, err := h.tokens.GenerateDeviceToken(req.DeviceID, user.ID)
	if errors.Is(err, jwt.ErrSecretNotConfigured) {
		h.logger.WithField("device_id", req.DeviceID).Warn("Device token requested but DEVICE_JWT_SECRET is not set")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: "Device tokens are not configured",
			Code:  "DEVICE_TOKENS_DISABLED",
		})
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("device_id", req.DeviceID).Error("Failed to issue device token")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Failed to issue device token", Message: err.Error()})
		return
	}

	h.audit.safeLogUserAction(c, "device_token_issue", "device", req.DeviceID, map[string]interface{}{
		"expires_at": expiresAt,
	})

	c.JSON(http.StatusOK, IssueTokenResponse{
		DeviceID:  req.DeviceID,
		Token:     token,
		ExpiresAt: expiresAt,
	})
}
