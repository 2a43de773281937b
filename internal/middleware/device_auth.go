package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/autoattend/autoattend-backend/pkg/jwt"
	"github.com/gin-gonic/gin"
)

// DeviceContextKey is the key used to store scanner claims in the gin context
const DeviceContextKey = "device"

// DeviceTokenValidator validates scanner bearer tokens
type DeviceTokenValidator interface {
	ValidateDeviceToken(token string) (*jwt.Claims, error)
}

// DeviceAuth validates the scanner's bearer token.
// When required is false, requests without an Authorization header pass through,
// but a header that is present must still carry a valid token.
func DeviceAuth(validator DeviceTokenValidator, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			if !required {
				c.Next()
				return
			}
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Authorization header is required",
				"code":    "MISSING_AUTH_HEADER",
			})
			c.Abort()
			return
		}

		// Check Bearer prefix
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Invalid authorization header format. Expected: Bearer <token>",
				"code":    "INVALID_AUTH_FORMAT",
			})
			c.Abort()
			return
		}

		claims, err := validator.ValidateDeviceToken(parts[1])
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				c.JSON(http.StatusUnauthorized, gin.H{
					"error":   "unauthorized",
					"message": "Device token has expired",
					"code":    "TOKEN_EXPIRED",
				})
			} else {
				c.JSON(http.StatusUnauthorized, gin.H{
					"error":   "unauthorized",
					"message": "Invalid device token",
					"code":    "INVALID_TOKEN",
				})
			}
			c.Abort()
			return
		}

		c.Set(DeviceContextKey, claims)
		c.Set("device_id", claims.DeviceID)
		c.Next()
	}
}

// GetDeviceClaims retrieves scanner claims from the gin context
func GetDeviceClaims(c *gin.Context) (*jwt.Claims, bool) {
	value, exists := c.Get(DeviceContextKey)
	if !exists {
		return nil, false
	}

	claims, ok := value.(*jwt.Claims)
	return claims, ok
}
