package handlers

import (
	"context"
	"time"

	"github.com/autoattend/autoattend-backend/internal/middleware"
	"github.com/autoattend/autoattend-backend/internal/services"
	"github.com/autoattend/autoattend-backend/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AuditLogger records security and admin events
type AuditLogger interface {
	LogLogin(ctx context.Context, userID *int64, identifier string, success bool, reason string, meta services.RequestMeta) error
	LogRateLimitViolation(ctx context.Context, identifier, limitType string, retryAfter time.Time, meta services.RequestMeta) error
	LogUserAction(ctx context.Context, action, entityType, entityID string, details map[string]interface{}, meta services.RequestMeta) error
}

// auditTrail logs audit events without failing the request
type auditTrail struct {
	audit  AuditLogger
	logger *logrus.Logger
}

// requestMeta collects the caller's user, IP and user agent
func requestMeta(c *gin.Context) services.RequestMeta {
	meta := services.RequestMeta{
		IPAddress: utils.GetRealIP(c),
		UserAgent: utils.GetUserAgent(c),
	}
	if user, ok := middleware.GetCurrentUser(c); ok {
		id := user.ID
		meta.UserID = &id
	}
	return meta
}

func (a auditTrail) logAuditError(operation string, err error) {
	if err != nil {
		a.logger.WithError(err).WithField("operation", operation).Error("Audit log write failed")
	}
}

func (a auditTrail) safeLogLogin(c *gin.Context, userID *int64, identifier string, success bool, reason string) {
	if a.audit == nil {
		return
	}
	a.logAuditError("LogLogin", a.audit.LogLogin(c.Request.Context(), userID, identifier, success, reason, requestMeta(c)))
}

func (a auditTrail) safeLogRateLimitViolation(c *gin.Context, identifier, limitType string, retryAfter time.Time) {
	if a.audit == nil {
		return
	}
	a.logAuditError("LogRateLimitViolation", a.audit.LogRateLimitViolation(c.Request.Context(), identifier, limitType, retryAfter, requestMeta(c)))
}

func (a auditTrail) safeLogUserAction(c *gin.Context, action, entityType, entityID string, details map[string]interface{}) {
	if a.audit == nil {
		return
	}
	a.logAuditError("LogUserAction", a.audit.LogUserAction(c.Request.Context(), action, entityType, entityID, details, requestMeta(c)))
}
