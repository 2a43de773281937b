package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenType represents the type of JWT token
type TokenType string

const (
	DeviceToken TokenType = "device"

	issuer = "autoattend"
)

var (
	// ErrSecretNotConfigured is returned when no signing secret is set
	ErrSecretNotConfigured = errors.New("device token secret is not configured")

	// ErrTokenExpired is returned for a well-signed token past its expiry
	ErrTokenExpired = errors.New("device token has expired")

	// ErrInvalidToken is returned for any other rejected token
	ErrInvalidToken = errors.New("invalid device token")
)

// Claims represents the claims carried by a scanner device token
type Claims struct {
	DeviceID  string    `json:"device_id"`
	IssuedBy  int64     `json:"issued_by"`
	TokenType TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

// Service issues and validates device tokens
type Service struct {
	secret string
	expiry time.Duration
}

// NewService creates a new JWT service
func NewService(secret string, expiry time.Duration) *Service {
	return &Service{
		secret: secret,
		expiry: expiry,
	}
}

// GenerateDeviceToken issues an HS256 token for a scanner
func (s *Service) GenerateDeviceToken(deviceID string, issuedBy int64) (string, time.Time, error) {
	if s.secret == "" {
		return "", time.Time{}, ErrSecretNotConfigured
	}

	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return "", time.Time{}, fmt.Errorf("device id is required")
	}

	now := time.Now()
	expiresAt := now.Add(s.expiry)
	claims := Claims{
		DeviceID:  deviceID,
		IssuedBy:  issuedBy,
		TokenType: DeviceToken,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   deviceID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign device token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// ValidateDeviceToken validates and parses a device token
func (s *Service) ValidateDeviceToken(tokenString string) (*Claims, error) {
	if s.secret == "" {
		return nil, ErrSecretNotConfigured
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.secret), nil
	}, jwt.WithIssuer(issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: failed to parse token: %w", ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected claims", ErrInvalidToken)
	}

	if claims.TokenType != DeviceToken {
		return nil, fmt.Errorf("%w: invalid token type: expected %s, got %s", ErrInvalidToken, DeviceToken, claims.TokenType)
	}

	return claims, nil
}
