package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/autoattend/autoattend-backend/internal/middleware"
	"github.com/autoattend/autoattend-backend/internal/models"
	"github.com/autoattend/autoattend-backend/internal/services"
	"github.com/autoattend/autoattend-backend/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SessionManager is the authentication surface used by the dashboard endpoints
type SessionManager interface {
	Login(ctx context.Context, identifier, password string) (*services.LoginResult, error)
	Logout(ctx context.Context, token string) error
	ChangePassword(ctx context.Context, user *models.User, currentPassword, newPassword string) error
	SessionTTL() time.Duration
}

// LoginRateLimiter throttles failed logins
type LoginRateLimiter interface {
	CheckLoginRateLimit(ctx context.Context, identifier, ip string) error
	RecordFailure(ctx context.Context, identifier, ip string) error
	ClearFailures(ctx context.Context, identifier string) error
}

// AuthHandler handles dashboard login and account endpoints
type AuthHandler struct {
	auth        SessionManager
	rateLimiter LoginRateLimiter
	audit       auditTrail
	cookieName  string
	logger      *logrus.Logger
}

// NewAuthHandler creates a new auth handler. rateLimiter may be nil.
func NewAuthHandler(
	auth SessionManager,
	rateLimiter LoginRateLimiter,
	audit AuditLogger,
	cookieName string,
	logger *logrus.Logger,
) *AuthHandler {
	return &AuthHandler{
		auth:        auth,
		rateLimiter: rateLimiter,
		audit:       auditTrail{audit: audit, logger: logger},
		cookieName:  cookieName,
		logger:      logger,
	}
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

// LoginResponse represents the response after a successful login
type LoginResponse struct {
	Success bool              `json:"success"`
	User    models.ClientUser `json:"user"`
}

// Login handles POST /api/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	identifier := strings.TrimSpace(req.Identifier)
	if identifier == "" {
		identifier = strings.TrimSpace(req.Username)
	}
	password := strings.TrimSpace(req.Password)
	if identifier == "" || password == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Username/email and password are required"})
		return
	}

	ctx := c.Request.Context()
	ip := utils.GetRealIP(c)
	normalized := strings.ToLower(identifier)

	if h.rateLimiter != nil {
		if err := h.rateLimiter.CheckLoginRateLimit(ctx, normalized, ip); err != nil {
			var rateLimitErr *services.RateLimitError
			if errors.As(err, &rateLimitErr) {
				h.audit.safeLogRateLimitViolation(c, normalized, rateLimitErr.Type, rateLimitErr.RetryAfter)
				c.JSON(http.StatusTooManyRequests, gin.H{
					"error":       rateLimitErr.Message,
					"code":        "RATE_LIMIT_EXCEEDED",
					"retry_after": rateLimitErr.RetryAfter.Unix(),
				})
				return
			}
			h.logger.WithError(err).Error("Failed to check login rate limit")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Login failed"})
			return
		}
	}

	result, err := h.auth.Login(ctx, identifier, password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMissingCredentials):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Username/email and password are required"})
		case errors.Is(err, services.ErrInvalidCredentials):
			if h.rateLimiter != nil {
				if err := h.rateLimiter.RecordFailure(ctx, normalized, ip); err != nil {
					h.logger.WithError(err).Warn("Failed to record login failure")
				}
			}
			h.audit.safeLogLogin(c, nil, normalized, false, "invalid_credentials")
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid credentials"})
		default:
			h.logger.WithError(err).Error("Login failed")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Login failed"})
		}
		return
	}

	if h.rateLimiter != nil {
		if err := h.rateLimiter.ClearFailures(ctx, normalized); err != nil {
			h.logger.WithError(err).Warn("Failed to clear login failures")
		}
	}

	userID := result.User.ID
	h.audit.safeLogLogin(c, &userID, normalized, true, "")
	h.setSessionCookie(c, result.Token, int(h.auth.SessionTTL().Seconds()))

	h.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"ip":      ip,
	}).Info("User logged in")

	c.JSON(http.StatusOK, LoginResponse{
		Success: true,
		User:    result.User.ToClient(),
	})
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}
	c.JSON(http.StatusOK, user.ToClient())
}

// Logout handles GET /api/logout. It always clears the cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	token, err := c.Cookie(h.cookieName)
	if err == nil && token != "" {
		if err := h.auth.Logout(c.Request.Context(), token); err != nil {
			h.logger.WithError(err).Warn("Failed to delete session on logout")
		}
		h.audit.safeLogUserAction(c, "logout", "session", "", nil)
	}

	h.setSessionCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ChangePassword handles POST /api/account/password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	current := strings.TrimSpace(req.CurrentPassword)
	next := strings.TrimSpace(req.NewPassword)

	err := h.auth.ChangePassword(c.Request.Context(), user, current, next)
	if err != nil {
		var weak *services.WeakPasswordError
		switch {
		case errors.Is(err, services.ErrMissingCredentials):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Current and new passwords are required"})
		case errors.As(err, &weak):
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: fmt.Sprintf("New password must be at least %d characters long", weak.MinLength),
			})
		case errors.Is(err, services.ErrWrongPassword):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Current password is incorrect"})
		case errors.Is(err, services.ErrUnauthorized):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "User not found"})
		default:
			h.logger.WithError(err).WithField("user_id", user.ID).Error("Failed to change password")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to change password"})
		}
		return
	}

	h.audit.safeLogUserAction(c, "password_change", "user", fmt.Sprintf("%d", user.ID), nil)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// setSessionCookie writes the session cookie; a negative maxAge deletes it
func (h *AuthHandler) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookieName, value, maxAge, "/", "", utils.IsSecureRequest(c), true)
}
