package utils

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// GetRealIP extracts the client IP address from the request.
//
// Priority order:
// 1. X-Real-IP header (set by reverse proxies like Nginx)
// 2. X-Forwarded-For header, first public address in the list
// 3. Gin's ClientIP() for direct connections
//
// Scanners on the office LAN connect directly, so private addresses are
// accepted as the last resort.
func GetRealIP(c *gin.Context) string {
	realIP := strings.TrimSpace(c.Request.Header.Get("X-Real-IP"))
	if isValidIP(realIP) && !isPrivateIP(net.ParseIP(realIP)) {
		return realIP
	}

	if forwarded := c.Request.Header.Get("X-Forwarded-For"); forwarded != "" {
		ips := strings.Split(forwarded, ",")
		for _, ipStr := range ips {
			clientIP := strings.TrimSpace(ipStr)
			if isValidIP(clientIP) && !isPrivateIP(net.ParseIP(clientIP)) && !IsLocalhost(clientIP) {
				return clientIP
			}
		}
		if first := strings.TrimSpace(ips[0]); isValidIP(first) {
			return first
		}
	}

	return c.ClientIP()
}

// GetUserAgent extracts the User-Agent header from the request
func GetUserAgent(c *gin.Context) string {
	ua := c.Request.UserAgent()
	if ua == "" {
		return "Unknown"
	}
	return ua
}

// IsSecureRequest reports whether the client reached us over HTTPS,
// either directly or through a TLS-terminating proxy
func IsSecureRequest(c *gin.Context) bool {
	if c.Request.TLS != nil {
		return true
	}
	return strings.EqualFold(c.Request.Header.Get("X-Forwarded-Proto"), "https")
}

// IsLocalhost checks if an IP address is localhost
func IsLocalhost(ip string) bool {
	return ip == "127.0.0.1" || ip == "::1" || ip == "localhost"
}

func isValidIP(ip string) bool {
	return net.ParseIP(ip) != nil
}

// isPrivateIP checks if an IP is in a private range
func isPrivateIP(ip net.IP) bool {
	if ip == nil {
		return false
	}
	return ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast()
}
