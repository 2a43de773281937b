package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/autoattend/autoattend-backend/internal/database"
)

// RateLimitConfig holds login rate limiting configuration
type RateLimitConfig struct {
	MaxIdentifierFailures int           // Max failed logins per username/email
	IdentifierWindow      time.Duration // Time window for identifier limit
	MaxIPFailures         int           // Max failed logins per IP
	IPWindow              time.Duration // Time window for IP limit
}

// DefaultRateLimitConfig returns the default rate limit configuration
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxIdentifierFailures: 5,                // 5 failures
		IdentifierWindow:      15 * time.Minute, // per 15 minutes
		MaxIPFailures:         20,               // 20 failures
		IPWindow:              1 * time.Hour,    // per hour
	}
}

// RateLimitError represents a rate limit exceeded error
type RateLimitError struct {
	Message    string
	RetryAfter time.Time
	Type       string // "identifier" or "ip"
}

func (e *RateLimitError) Error() string {
	return e.Message
}

// RateLimitService throttles failed login attempts
type RateLimitService struct {
	db     database.DB
	config RateLimitConfig
}

// NewRateLimitService creates a new rate limit service
func NewRateLimitService(db database.DB, config RateLimitConfig) *RateLimitService {
	return &RateLimitService{
		db:     db,
		config: config,
	}
}

// CheckLoginRateLimit returns a *RateLimitError when the identifier or IP has too many recent failures
func (s *RateLimitService) CheckLoginRateLimit(ctx context.Context, identifier, ip string) error {
	if identifier != "" {
		count, lastFailure, err := s.getFailureCount(ctx, identifier, "identifier", s.config.IdentifierWindow)
		if err != nil {
			return fmt.Errorf("failed to check identifier rate limit: %w", err)
		}

		if count >= s.config.MaxIdentifierFailures {
			retryAfter := lastFailure.Add(s.config.IdentifierWindow)
			return &RateLimitError{
				Message:    fmt.Sprintf("Too many failed login attempts for this account. Please try again after %s", retryAfter.Format("15:04:05")),
				RetryAfter: retryAfter,
				Type:       "identifier",
			}
		}
	}

	if ip != "" {
		count, lastFailure, err := s.getFailureCount(ctx, ip, "ip", s.config.IPWindow)
		if err != nil {
			return fmt.Errorf("failed to check IP rate limit: %w", err)
		}

		if count >= s.config.MaxIPFailures {
			retryAfter := lastFailure.Add(s.config.IPWindow)
			return &RateLimitError{
				Message:    fmt.Sprintf("Too many failed login attempts from this IP address. Please try again after %s", retryAfter.Format("15:04:05")),
				RetryAfter: retryAfter,
				Type:       "ip",
			}
		}
	}

	return nil
}

// getFailureCount gets the number of failures within the time window and the time of the latest one
func (s *RateLimitService) getFailureCount(ctx context.Context, identifier, identifierType string, window time.Duration) (int, time.Time, error) {
	windowStart := time.Now().Add(-window)

	query := `
		SELECT COUNT(*), COALESCE(MAX(created_at), NOW())
		FROM login_attempts
		WHERE identifier = $1
		  AND identifier_type = $2
		  AND created_at > $3
	`

	var count int
	var lastFailure time.Time

	err := s.db.QueryRowxContext(ctx, query, identifier, identifierType, windowStart).Scan(&count, &lastFailure)
	if err != nil && err != sql.ErrNoRows {
		return 0, time.Time{}, err
	}

	return count, lastFailure, nil
}

// RecordFailure records a failed login for both the identifier and the IP
func (s *RateLimitService) RecordFailure(ctx context.Context, identifier, ip string) error {
	if identifier != "" {
		if err := s.recordAttempt(ctx, identifier, "identifier"); err != nil {
			return fmt.Errorf("failed to record identifier failure: %w", err)
		}
	}

	if ip != "" {
		if err := s.recordAttempt(ctx, ip, "ip"); err != nil {
			return fmt.Errorf("failed to record IP failure: %w", err)
		}
	}

	return nil
}

// ClearFailures forgets an identifier's failures after a successful login
func (s *RateLimitService) ClearFailures(ctx context.Context, identifier string) error {
	query := `DELETE FROM login_attempts WHERE identifier = $1 AND identifier_type = 'identifier'`

	if _, err := s.db.ExecContext(ctx, query, identifier); err != nil {
		return fmt.Errorf("failed to clear login failures: %w", err)
	}
	return nil
}

func (s *RateLimitService) recordAttempt(ctx context.Context, identifier, identifierType string) error {
	query := `
		INSERT INTO login_attempts (identifier, identifier_type, created_at)
		VALUES ($1, $2, NOW())
	`

	_, err := s.db.ExecContext(ctx, query, identifier, identifierType)
	return err
}

// CleanupExpiredAttempts removes attempts older than the longest window
func (s *RateLimitService) CleanupExpiredAttempts(ctx context.Context) (int64, error) {
	maxWindow := s.config.IPWindow
	if s.config.IdentifierWindow > maxWindow {
		maxWindow = s.config.IdentifierWindow
	}

	cutoffTime := time.Now().Add(-maxWindow)

	result, err := s.db.ExecContext(ctx, `DELETE FROM login_attempts WHERE created_at < $1`, cutoffTime)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup login attempts: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}
