package utils

import (
	"strings"

	ua "github.com/mssola/user_agent"
)

// DeviceInfo holds parsed information from a User-Agent string
type DeviceInfo struct {
	DeviceType string `json:"device_type"` // scanner, mobile, tablet, desktop, unknown
	OS         string `json:"os"`
	Browser    string `json:"browser"`
	BrowserVer string `json:"browser_ver"`
	IsBot      bool   `json:"is_bot"`
	Raw        string `json:"raw"`
}

// scannerAgents are User-Agent markers sent by badge scanner firmware
var scannerAgents = []string{"esp32httpclient", "esp8266httpclient", "esp32"}

// ParseUserAgent parses a User-Agent string for audit logs
func ParseUserAgent(userAgent string) DeviceInfo {
	if userAgent == "" || userAgent == "Unknown" {
		return DeviceInfo{
			DeviceType: "unknown",
			OS:         "Unknown",
			Browser:    "Unknown",
			Raw:        userAgent,
		}
	}

	if IsScanner(userAgent) {
		return DeviceInfo{
			DeviceType: "scanner",
			OS:         "Unknown",
			Browser:    "Unknown",
			Raw:        userAgent,
		}
	}

	parser := ua.New(userAgent)
	browser, version := parser.Browser()
	if browser == "" {
		browser = "Unknown"
	}

	return DeviceInfo{
		DeviceType: getDeviceType(parser),
		OS:         getOS(parser),
		Browser:    browser,
		BrowserVer: version,
		IsBot:      parser.Bot(),
		Raw:        userAgent,
	}
}

// IsScanner reports whether the User-Agent belongs to badge scanner firmware
func IsScanner(userAgent string) bool {
	lower := strings.ToLower(userAgent)
	for _, marker := range scannerAgents {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func getDeviceType(parser *ua.UserAgent) string {
	if !parser.Mobile() {
		return "desktop"
	}
	lower := strings.ToLower(parser.UA())
	if strings.Contains(lower, "ipad") || strings.Contains(lower, "tablet") {
		return "tablet"
	}
	return "mobile"
}

func getOS(parser *ua.UserAgent) string {
	info := parser.OSInfo()
	if info.Name == "" {
		return "Unknown"
	}
	if info.Version != "" {
		return info.Name + " " + info.Version
	}
	return info.Name
}
