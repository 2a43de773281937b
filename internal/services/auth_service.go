package services

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/autoattend/autoattend-backend/internal/models"
	"github.com/autoattend/autoattend-backend/internal/utils"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrMissingCredentials = errors.New("identifier and password are required")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrWrongPassword      = errors.New("current password is incorrect")
)

// WeakPasswordError is returned when a new password is shorter than the minimum
type WeakPasswordError struct {
	MinLength int
}

func (e *WeakPasswordError) Error() string {
	return fmt.Sprintf("new password must be at least %d characters", e.MinLength)
}

// UserStore is the subset of the user repository used by authentication
type UserStore interface {
	GetByIdentifier(ctx context.Context, identifier string) (*models.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	UpgradePasswordHash(ctx context.Context, id int64, passwordHash string) error
}

// SessionStore persists login sessions keyed by token hash
type SessionStore interface {
	Create(ctx context.Context, tokenHash string, userID int64, expiresAt time.Time) error
	GetWithUser(ctx context.Context, tokenHash string) (*models.SessionWithUser, error)
	Extend(ctx context.Context, tokenHash string, expiresAt time.Time) error
	Delete(ctx context.Context, tokenHash string) error
}

// LoginResult carries the raw session token for the cookie and the logged-in user
type LoginResult struct {
	Token     string
	User      *models.User
	ExpiresAt time.Time
}

// AuthService handles dashboard login and cookie sessions
type AuthService struct {
	users             UserStore
	sessions          SessionStore
	sessionTTL        time.Duration
	bcryptCost        int
	minPasswordLength int
	logger            *logrus.Logger
	now               func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(users UserStore, sessions SessionStore, sessionTTL time.Duration, bcryptCost, minPasswordLength int, logger *logrus.Logger) *AuthService {
	return &AuthService{
		users:             users,
		sessions:          sessions,
		sessionTTL:        sessionTTL,
		bcryptCost:        bcryptCost,
		minPasswordLength: minPasswordLength,
		logger:            logger,
		now:               time.Now,
	}
}

// SessionTTL returns how long a session stays valid without activity
func (s *AuthService) SessionTTL() time.Duration {
	return s.sessionTTL
}

// Login verifies credentials and opens a new session.
// The returned user is nil only when err is non-nil.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	user, err := s.users.GetByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	if !s.verifyPassword(ctx, user, password) {
		return nil, ErrInvalidCredentials
	}

	token := utils.GenerateSessionToken()
	expiresAt := s.now().Add(s.sessionTTL)
	if err := s.sessions.Create(ctx, utils.HashToken(token), user.ID, expiresAt); err != nil {
		return nil, err
	}

	return &LoginResult{
		Token:     token,
		User:      user,
		ExpiresAt: expiresAt,
	}, nil
}

// verifyPassword checks bcrypt hashes, and salted SHA-256 hashes for legacy
// accounts which are upgraded to bcrypt on success.
func (s *AuthService) verifyPassword(ctx context.Context, user *models.User, password string) bool {
	if !user.HasLegacyPassword() {
		return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
	}

	if !legacyPasswordMatches(user.PasswordSalt.String, user.PasswordHash, password) {
		return false
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", user.ID).Warn("Failed to hash password for upgrade")
		return true
	}
	if err := s.users.UpgradePasswordHash(ctx, user.ID, string(hash)); err != nil {
		s.logger.WithError(err).WithField("user_id", user.ID).Warn("Failed to upgrade legacy password hash")
		return true
	}

	user.PasswordHash = string(hash)
	user.PasswordSalt.Valid = false
	user.PasswordSalt.String = ""
	s.logger.WithField("user_id", user.ID).Info("Upgraded legacy password hash to bcrypt")
	return true
}

func legacyPasswordMatches(salt, storedHash, password string) bool {
	sum := sha256.Sum256([]byte(salt + password))
	computed := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(computed), []byte(strings.ToLower(storedHash))) == 1
}

// Authenticate resolves a session token to its user and slides the expiry forward.
// Unknown or expired tokens return ErrUnauthorized; expired sessions are deleted.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}

	tokenHash := utils.HashToken(token)
	session, err := s.sessions.GetWithUser(ctx, tokenHash)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrUnauthorized
	}

	now := s.now()
	if session.IsExpired(now) {
		if err := s.sessions.Delete(ctx, tokenHash); err != nil {
			s.logger.WithError(err).Warn("Failed to delete expired session")
		}
		return nil, ErrUnauthorized
	}

	if err := s.sessions.Extend(ctx, tokenHash, now.Add(s.sessionTTL)); err != nil {
		s.logger.WithError(err).WithField("user_id", session.UserID).Warn("Failed to extend session")
	}

	user := session.User
	return &user, nil
}

// Logout deletes the session behind a token. Empty tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.Delete(ctx, utils.HashToken(token))
}

// ChangePassword verifies the current password and stores a bcrypt hash of the new one
func (s *AuthService) ChangePassword(ctx context.Context, user *models.User, currentPassword, newPassword string) error {
	if currentPassword == "" || newPassword == "" {
		return ErrMissingCredentials
	}
	if len(newPassword) < s.minPasswordLength {
		return &WeakPasswordError{MinLength: s.minPasswordLength}
	}

	fresh, err := s.users.GetByIdentifier(ctx, user.Username)
	if err != nil {
		return err
	}
	if fresh == nil {
		return ErrUnauthorized
	}
	if !s.verifyPassword(ctx, fresh, currentPassword) {
		return ErrWrongPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return s.users.UpdatePassword(ctx, fresh.ID, string(hash))
}
