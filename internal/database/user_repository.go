package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/autoattend/autoattend-backend/internal/models"
)

const userColumns = `id, username, email, role, must_change_password, password_hash, password_salt, created_at, updated_at`

// UserRepository handles user database operations
type UserRepository struct {
	db DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{
		db: db,
	}
}

// GetByIdentifier finds a user by case-insensitive username or email.
// Returns nil, nil when no user matches.
func (r *UserRepository) GetByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users
		WHERE LOWER(username) = LOWER($1) OR LOWER(email) = LOWER($1)
		ORDER BY id ASC
		LIMIT 1
	`

	var user models.User
	err := r.db.GetContext(ctx, &user, query, identifier)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by identifier: %w", err)
	}
	return &user, nil
}

// GetByID retrieves a user by ID. Returns nil, nil when not found.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	var user models.User
	err := r.db.GetContext(ctx, &user, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// UpdatePassword stores a new bcrypt hash, drops any legacy salt and clears must_change_password
func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	query := `
		UPDATE users
		SET password_hash = $1, password_salt = NULL, must_change_password = FALSE, updated_at = NOW()
		WHERE id = $2
	`

	if _, err := r.db.ExecContext(ctx, query, passwordHash, id); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// UpgradePasswordHash replaces a legacy salted hash with bcrypt without touching other flags
func (r *UserRepository) UpgradePasswordHash(ctx context.Context, id int64, passwordHash string) error {
	query := `UPDATE users SET password_hash = $1, password_salt = NULL, updated_at = NOW() WHERE id = $2`

	if _, err := r.db.ExecContext(ctx, query, passwordHash, id); err != nil {
		return fmt.Errorf("failed to upgrade password hash: %w", err)
	}
	return nil
}

// Upsert creates a user or resets the password and role of an existing one with the same username
func (r *UserRepository) Upsert(ctx context.Context, username, email, role, passwordHash string, mustChange bool) (*models.User, error) {
	query := `
		INSERT INTO users (username, email, role, must_change_password, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (username) DO UPDATE
		SET email = EXCLUDED.email,
			role = EXCLUDED.role,
			must_change_password = EXCLUDED.must_change_password,
			password_hash = EXCLUDED.password_hash,
			password_salt = NULL,
			updated_at = NOW()
		RETURNING ` + userColumns

	var user models.User
	err := r.db.GetContext(ctx, &user, query, username, nullString(email), role, mustChange, passwordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	return &user, nil
}
