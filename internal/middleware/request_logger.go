package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RequestLogger logs every request with its status and latency
func RequestLogger(logger *logrus.Logger, sessionCookie string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         c.ClientIP(),
			"latency_ms": time.Since(start).Milliseconds(),
			"user_agent": c.Request.UserAgent(),
		}

		// Never log the cookie or token itself
		_, cookieErr := c.Request.Cookie(sessionCookie)
		fields["has_session"] = cookieErr == nil
		fields["has_auth"] = c.GetHeader("Authorization") != ""

		if userID, exists := c.Get("user_id"); exists {
			fields["user_id"] = userID
		}
		if deviceID, exists := c.Get("device_id"); exists {
			fields["device_id"] = deviceID
		}

		entry := logger.WithFields(fields)

		if len(c.Errors) > 0 {
			for i, err := range c.Errors {
				entry = entry.WithField(fmt.Sprintf("error_%d", i), err.Error())
			}
			entry.Error("Request failed with errors")
			return
		}

		status := c.Writer.Status()
		switch {
		case status >= 500:
			entry.Error("Request completed with server error")
		case status >= 400:
			entry.Warn("Request completed with client error")
		default:
			entry.Info("Request completed successfully")
		}
	}
}
