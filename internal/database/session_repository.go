package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/autoattend/autoattend-backend/internal/models"
)

// SessionRepository handles login session database operations
type SessionRepository struct {
	db DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db DB) *SessionRepository {
	return &SessionRepository{
		db: db,
	}
}

// Create stores a new session keyed by the token hash
func (r *SessionRepository) Create(ctx context.Context, tokenHash string, userID int64, expiresAt time.Time) error {
	query := `
		INSERT INTO sessions (token_hash, user_id, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
	`

	if _, err := r.db.ExecContext(ctx, query, tokenHash, userID, expiresAt); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetWithUser retrieves a session and its user by token hash. Returns nil, nil when not found.
func (r *SessionRepository) GetWithUser(ctx context.Context, tokenHash string) (*models.SessionWithUser, error) {
	query := `
		SELECT
			s.token_hash, s.user_id, s.expires_at, s.created_at, s.updated_at,
			u.id AS "user.id",
			u.username AS "user.username",
			u.email AS "user.email",
			u.role AS "user.role",
			u.must_change_password AS "user.must_change_password",
			u.password_hash AS "user.password_hash",
			u.password_salt AS "user.password_salt",
			u.created_at AS "user.created_at",
			u.updated_at AS "user.updated_at"
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token_hash = $1
		LIMIT 1
	`

	var session models.SessionWithUser
	err := r.db.GetContext(ctx, &session, query, tokenHash)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}

// Extend slides the session expiry forward
func (r *SessionRepository) Extend(ctx context.Context, tokenHash string, expiresAt time.Time) error {
	query := `UPDATE sessions SET expires_at = $1, updated_at = NOW() WHERE token_hash = $2`

	if _, err := r.db.ExecContext(ctx, query, expiresAt, tokenHash); err != nil {
		return fmt.Errorf("failed to extend session: %w", err)
	}
	return nil
}

// Delete removes a session
func (r *SessionRepository) Delete(ctx context.Context, tokenHash string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token_hash = $1`, tokenHash); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes every session past its expiry and returns how many were removed
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < NOW()`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected, nil
}
