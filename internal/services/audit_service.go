package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/autoattend/autoattend-backend/internal/database"
	"github.com/autoattend/autoattend-backend/internal/utils"
)

// AuditService handles audit logging for security and admin events
type AuditService struct {
	db      database.DB
	enabled bool
}

// NewAuditService creates a new audit service. When disabled every Log call is a no-op.
func NewAuditService(db database.DB, enabled bool) *AuditService {
	return &AuditService{
		db:      db,
		enabled: enabled,
	}
}

// AuditEvent represents an event to be logged
type AuditEvent struct {
	UserID     *int64                 // nil for pre-authentication events
	Action     string                 // e.g. "login", "employee_create", "ota_upload"
	EntityType string                 // e.g. "user", "employee", "firmware"
	EntityID   string                 // ID of the affected entity, may be empty
	IPAddress  string                 // Client IP address
	UserAgent  string                 // Client user agent
	Details    map[string]interface{} // Additional details stored as JSONB
}

// RequestMeta identifies who made a request and from where
type RequestMeta struct {
	UserID    *int64
	IPAddress string
	UserAgent string
}

// LogLogin logs a login attempt
func (s *AuditService) LogLogin(ctx context.Context, userID *int64, identifier string, success bool, reason string, meta RequestMeta) error {
	details := map[string]interface{}{
		"identifier":  identifier,
		"success":     success,
		"device_info": utils.ParseUserAgent(meta.UserAgent),
	}
	if reason != "" {
		details["reason"] = reason
	}

	action := "login_failed"
	if success {
		action = "login"
	}

	entityID := ""
	if userID != nil {
		entityID = strconv.FormatInt(*userID, 10)
	}

	return s.logEvent(ctx, AuditEvent{
		UserID:     userID,
		Action:     action,
		EntityType: "user",
		EntityID:   entityID,
		IPAddress:  meta.IPAddress,
		UserAgent:  meta.UserAgent,
		Details:    details,
	})
}

// LogRateLimitViolation logs a blocked login due to too many failures
func (s *AuditService) LogRateLimitViolation(ctx context.Context, identifier, limitType string, retryAfter time.Time, meta RequestMeta) error {
	return s.logEvent(ctx, AuditEvent{
		Action:     "rate_limit_violation",
		EntityType: "login",
		IPAddress:  meta.IPAddress,
		UserAgent:  meta.UserAgent,
		Details: map[string]interface{}{
			"identifier":  identifier,
			"limit_type":  limitType,
			"retry_after": retryAfter,
		},
	})
}

// LogUserAction logs an action taken by an authenticated user on an entity
func (s *AuditService) LogUserAction(ctx context.Context, action, entityType, entityID string, details map[string]interface{}, meta RequestMeta) error {
	if details == nil {
		details = map[string]interface{}{}
	}
	details["device_info"] = utils.ParseUserAgent(meta.UserAgent)

	return s.logEvent(ctx, AuditEvent{
		UserID:     meta.UserID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		IPAddress:  meta.IPAddress,
		UserAgent:  meta.UserAgent,
		Details:    details,
	})
}

// logEvent writes to the audit_logs table
func (s *AuditService) logEvent(ctx context.Context, event AuditEvent) error {
	if !s.enabled {
		return nil
	}

	details, err := json.Marshal(event.Details)
	if err != nil {
		return fmt.Errorf("failed to encode audit details: %w", err)
	}

	query := `
		INSERT INTO audit_logs (user_id, action, entity_type, entity_id, ip_address, user_agent, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`

	_, err = s.db.ExecContext(ctx, query,
		event.UserID,
		event.Action,
		event.EntityType,
		nullableText(event.EntityID),
		event.IPAddress,
		event.UserAgent,
		string(details),
	)
	if err != nil {
		return fmt.Errorf("failed to log audit event: %w", err)
	}

	return nil
}

// CleanupOldAuditLogs removes audit logs older than the specified duration
func (s *AuditService) CleanupOldAuditLogs(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoffTime := time.Now().Add(-olderThan)

	result, err := s.db.ExecContext(ctx, `DELETE FROM audit_logs WHERE created_at < $1`, cutoffTime)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old audit logs: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}

// nullableText maps an empty string to NULL
func nullableText(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
