package middleware

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/autoattend/autoattend-backend/internal/models"
	"github.com/autoattend/autoattend-backend/internal/services"
	"github.com/autoattend/autoattend-backend/pkg/jwt"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCookie = "AA_AUTH"

type stubAuthenticator struct {
	users map[string]*models.User
	err   error
}

func (s *stubAuthenticator) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	if user, ok := s.users[token]; ok {
		return user, nil
	}
	return nil, services.ErrUnauthorized
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func TestSessionAuth_Success(t *testing.T) {
	router := setupTestRouter()
	auth := &stubAuthenticator{users: map[string]*models.User{
		"good-token": {ID: 7, Username: "admin", Role: "admin"},
	}}

	router.GET("/protected", SessionAuth(auth, testCookie, quietLogger()), func(c *gin.Context) {
		user, ok := GetCurrentUser(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"username": user.Username})
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: testCookie, Value: "good-token"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "admin")
}

func TestSessionAuth_MissingCookie(t *testing.T) {
	router := setupTestRouter()
	router.GET("/protected", SessionAuth(&stubAuthenticator{}, testCookie, quietLogger()), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, w.Body.String())
}

func TestSessionAuth_UnknownToken(t *testing.T) {
	router := setupTestRouter()
	router.GET("/protected", SessionAuth(&stubAuthenticator{}, testCookie, quietLogger()), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: testCookie, Value: "stale"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSessionAuth_LookupFailure(t *testing.T) {
	router := setupTestRouter()
	auth := &stubAuthenticator{err: errors.New("connection refused")}
	router.GET("/protected", SessionAuth(auth, testCookie, quietLogger()), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: testCookie, Value: "any"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetCurrentUser_NotSet(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, ok := GetCurrentUser(c)
	assert.False(t, ok)
}

func TestDeviceAuth(t *testing.T) {
	service := jwt.NewService("device-secret-for-tests", time.Hour)
	validToken, _, err := service.GenerateDeviceToken("scanner-lobby", 1)
	require.NoError(t, err)

	expired := jwt.NewService("device-secret-for-tests", -time.Hour)
	expiredToken, _, err := expired.GenerateDeviceToken("scanner-lobby", 1)
	require.NoError(t, err)

	tests := []struct {
		name       string
		required   bool
		header     string
		wantStatus int
		wantCode   string
		wantDevice string
	}{
		{name: "optional without header", required: false, wantStatus: http.StatusOK},
		{name: "required without header", required: true, wantStatus: http.StatusUnauthorized, wantCode: "MISSING_AUTH_HEADER"},
		{name: "bad format", required: true, header: "Token abc", wantStatus: http.StatusUnauthorized, wantCode: "INVALID_AUTH_FORMAT"},
		{name: "invalid token", required: false, header: "Bearer nope", wantStatus: http.StatusUnauthorized, wantCode: "INVALID_TOKEN"},
		{name: "expired token", required: true, header: "Bearer " + expiredToken, wantStatus: http.StatusUnauthorized, wantCode: "TOKEN_EXPIRED"},
		{name: "valid token", required: true, header: "Bearer " + validToken, wantStatus: http.StatusOK, wantDevice: "scanner-lobby"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupTestRouter()
			router.POST("/detect", DeviceAuth(service, tt.required), func(c *gin.Context) {
				deviceID := ""
				if claims, ok := GetDeviceClaims(c); ok {
					deviceID = claims.DeviceID
				}
				c.JSON(http.StatusOK, gin.H{"device_id": deviceID})
			})

			req := httptest.NewRequest(http.MethodPost, "/detect", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantCode != "" {
				assert.Contains(t, w.Body.String(), tt.wantCode)
			}
			if tt.wantDevice != "" {
				assert.Contains(t, w.Body.String(), tt.wantDevice)
			}
		})
	}
}

type stubDeviceValidator struct {
	err error
}

func (s stubDeviceValidator) ValidateDeviceToken(token string) (*jwt.Claims, error) {
	return nil, s.err
}

func TestDeviceAuth_ErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{name: "wrapped expiry", err: fmt.Errorf("scanner-lobby: %w", jwt.ErrTokenExpired), wantCode: "TOKEN_EXPIRED"},
		{name: "message mentions expired", err: errors.New("key for expired-scanner revoked"), wantCode: "INVALID_TOKEN"},
		{name: "secret not configured", err: jwt.ErrSecretNotConfigured, wantCode: "INVALID_TOKEN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupTestRouter()
			router.POST("/detect", DeviceAuth(stubDeviceValidator{err: tt.err}, false), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodPost, "/detect", nil)
			req.Header.Set("Authorization", "Bearer some-token")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantCode)
		})
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})

	router := setupTestRouter()
	router.Use(RequestLogger(logger, testCookie))
	router.GET("/missing", func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "nope"})
	})

	req := httptest.NewRequest(http.MethodGet, "/missing?x=1", nil)
	req.AddCookie(&http.Cookie{Name: testCookie, Value: "secret-token-value"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	out := buf.String()
	assert.Contains(t, out, `"status":404`)
	assert.Contains(t, out, `"path":"/missing"`)
	assert.Contains(t, out, `"has_session":true`)
	assert.Contains(t, out, "client error")
	assert.NotContains(t, out, "secret-token-value")
}
