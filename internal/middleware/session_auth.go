package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/autoattend/autoattend-backend/internal/models"
	"github.com/autoattend/autoattend-backend/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// UserContextKey is the key used to store the signed-in user in the gin context
const UserContextKey = "user"

// SessionAuthenticator resolves a session cookie to a user
type SessionAuthenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// SessionAuth validates the session cookie and stores the user in context
func SessionAuth(auth SessionAuthenticator, cookieName string, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cookieName)
		if err != nil || token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		user, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, services.ErrUnauthorized) {
				logger.WithError(err).Error("Failed to look up session")
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		c.Set(UserContextKey, user)
		c.Set("user_id", user.ID)
		c.Next()
	}
}

// GetCurrentUser retrieves the signed-in user from the gin context
func GetCurrentUser(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get(UserContextKey)
	if !exists {
		return nil, false
	}

	user, ok := value.(*models.User)
	return user, ok && user != nil
}
