package handlers

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/autoattend/autoattend-backend/internal/models"
	"github.com/autoattend/autoattend-backend/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSessions struct {
	user       *models.User
	password   string
	loggedOut  []string
	changeErr  error
	changedTo  string
	sessionTTL time.Duration
}

func (f *fakeSessions) Login(ctx context.Context, identifier, password string) (*services.LoginResult, error) {
	if f.user == nil || password != f.password {
		return nil, services.ErrInvalidCredentials
	}
	return &services.LoginResult{Token: "session-token", User: f.user, ExpiresAt: time.Now().Add(f.sessionTTL)}, nil
}

func (f *fakeSessions) Logout(ctx context.Context, token string) error {
	f.loggedOut = append(f.loggedOut, token)
	return nil
}

func (f *fakeSessions) ChangePassword(ctx context.Context, user *models.User, currentPassword, newPassword string) error {
	if f.changeErr != nil {
		return f.changeErr
	}
	f.changedTo = newPassword
	return nil
}

func (f *fakeSessions) SessionTTL() time.Duration {
	return f.sessionTTL
}

type fakeRateLimiter struct {
	limitErr error
	failures int
	cleared  int
}

func (f *fakeRateLimiter) CheckLoginRateLimit(ctx context.Context, identifier, ip string) error {
	return f.limitErr
}

func (f *fakeRateLimiter) RecordFailure(ctx context.Context, identifier, ip string) error {
	f.failures++
	return nil
}

func (f *fakeRateLimiter) ClearFailures(ctx context.Context, identifier string) error {
	f.cleared++
	return nil
}

func newAuthFixture() (*AuthHandler, *fakeSessions, *fakeRateLimiter, *fakeAudit) {
	sessions := &fakeSessions{
		user:       &models.User{ID: 1, Username: "admin", Role: "admin", MustChangePassword: true},
		password:   "admin123",
		sessionTTL: 7 * 24 * time.Hour,
	}
	limiter := &fakeRateLimiter{}
	audit := &fakeAudit{}
	return NewAuthHandler(sessions, limiter, audit, "AA_AUTH", quietLogger()), sessions, limiter, audit
}

func TestLogin_Success(t *testing.T) {
	handler, _, limiter, audit := newAuthFixture()
	router := setupTestRouter()
	router.POST("/api/login", handler.Login)

	w := doJSON(t, router, http.MethodPost, "/api/login", map[string]string{
		"username": "  Admin ",
		"password": "admin123",
	})

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "admin", user["username"])
	assert.Equal(t, true, user["mustChangePassword"])

	cookie := w.Header().Get("Set-Cookie")
	assert.Contains(t, cookie, "AA_AUTH=session-token")
	assert.Contains(t, cookie, "HttpOnly")
	assert.Contains(t, cookie, "SameSite=Lax")
	assert.Contains(t, cookie, "Max-Age=604800")
	assert.NotContains(t, cookie, "Secure")

	assert.Equal(t, 1, limiter.cleared)
	assert.Equal(t, []string{"login"}, audit.actions())
}

func TestLogin_SecureCookieBehindTLSProxy(t *testing.T) {
	handler, _, _, _ := newAuthFixture()
	router := setupTestRouter()
	router.POST("/api/login", handler.Login)

	req := strings.NewReader(`{"identifier":"admin","password":"admin123"}`)
	w := doRaw(router, http.MethodPost, "/api/login", req, map[string]string{
		"Content-Type":      "application/json",
		"X-Forwarded-Proto": "https",
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Set-Cookie"), "Secure")
}

func TestLogin_MissingCredentials(t *testing.T) {
	handler, _, _, _ := newAuthFixture()
	router := setupTestRouter()
	router.POST("/api/login", handler.Login)

	w := doJSON(t, router, http.MethodPost, "/api/login", map[string]string{"identifier": "admin"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Username/email and password are required", decodeBody(t, w)["error"])
}

func TestLogin_InvalidCredentials(t *testing.T) {
	handler, _, limiter, audit := newAuthFixture()
	router := setupTestRouter()
	router.POST("/api/login", handler.Login)

	w := doJSON(t, router, http.MethodPost, "/api/login", map[string]string{
		"identifier": "admin",
		"password":   "wrong",
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid credentials", decodeBody(t, w)["error"])
	assert.Equal(t, 1, limiter.failures)
	assert.Equal(t, []string{"login_failed"}, audit.actions())
	assert.Empty(t, w.Header().Get("Set-Cookie"))
}

func TestLogin_RateLimited(t *testing.T) {
	handler, _, limiter, audit := newAuthFixture()
	retryAfter := time.Now().Add(10 * time.Minute)
	limiter.limitErr = &services.RateLimitError{Message: "Too many failed login attempts", RetryAfter: retryAfter, Type: "identifier"}

	router := setupTestRouter()
	router.POST("/api/login", handler.Login)

	w := doJSON(t, router, http.MethodPost, "/api/login", map[string]string{
		"identifier": "admin",
		"password":   "admin123",
	})

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", body["code"])
	assert.Equal(t, float64(retryAfter.Unix()), body["retry_after"])
	assert.Equal(t, []string{"rate_limit_exceeded"}, audit.actions())
}

func TestMe(t *testing.T) {
	handler, sessions, _, _ := newAuthFixture()
	router := setupTestRouter()
	router.GET("/api/auth/me", withUser(sessions.user), handler.Me)

	w := doJSON(t, router, http.MethodGet, "/api/auth/me", nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "admin", body["username"])
	assert.Nil(t, body["email"])
}

func TestLogout_ClearsCookie(t *testing.T) {
	handler, sessions, _, audit := newAuthFixture()
	router := setupTestRouter()
	router.GET("/api/logout", handler.Logout)

	w := doJSON(t, router, http.MethodGet, "/api/logout", nil, &http.Cookie{Name: "AA_AUTH", Value: "abc"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"abc"}, sessions.loggedOut)
	assert.Contains(t, w.Header().Get("Set-Cookie"), "Max-Age=0")
	assert.Equal(t, []string{"logout"}, audit.actions())
}

func TestLogout_WithoutCookie(t *testing.T) {
	handler, sessions, _, audit := newAuthFixture()
	router := setupTestRouter()
	router.GET("/api/logout", handler.Logout)

	w := doJSON(t, router, http.MethodGet, "/api/logout", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, sessions.loggedOut)
	assert.Empty(t, audit.actions())
}

func TestChangePassword(t *testing.T) {
	tests := []struct {
		name       string
		body       map[string]string
		serviceErr error
		wantStatus int
		wantError  string
	}{
		{
			name:       "success",
			body:       map[string]string{"currentPassword": "admin123", "newPassword": "n3w-passw0rd"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing fields",
			body:       map[string]string{"currentPassword": "admin123"},
			serviceErr: services.ErrMissingCredentials,
			wantStatus: http.StatusBadRequest,
			wantError:  "Current and new passwords are required",
		},
		{
			name:       "too short",
			body:       map[string]string{"currentPassword": "admin123", "newPassword": "short"},
			serviceErr: &services.WeakPasswordError{MinLength: 8},
			wantStatus: http.StatusBadRequest,
			wantError:  "New password must be at least 8 characters long",
		},
		{
			name:       "wrong current password",
			body:       map[string]string{"currentPassword": "nope", "newPassword": "n3w-passw0rd"},
			serviceErr: services.ErrWrongPassword,
			wantStatus: http.StatusBadRequest,
			wantError:  "Current password is incorrect",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, sessions, _, audit := newAuthFixture()
			sessions.changeErr = tt.serviceErr

			router := setupTestRouter()
			router.POST("/api/account/password", withUser(sessions.user), handler.ChangePassword)

			w := doJSON(t, router, http.MethodPost, "/api/account/password", tt.body)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, decodeBody(t, w)["error"])
				assert.Empty(t, audit.actions())
			} else {
				assert.Equal(t, "n3w-passw0rd", sessions.changedTo)
				assert.Equal(t, []string{"password_change"}, audit.actions())
			}
		})
	}
}

func TestChangePassword_RequiresUser(t *testing.T) {
	handler, _, _, _ := newAuthFixture()
	router := setupTestRouter()
	router.POST("/api/account/password", handler.ChangePassword)

	w := doJSON(t, router, http.MethodPost, "/api/account/password", map[string]string{})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
