package utils

import (
	"strings"

	ua "github.com/mssola/user_agent"
)

// DeviceInfo is what the payment audit trail keeps about the customer's browser
type DeviceInfo struct {
	DeviceType string `json:"device_type"` // mobile, tablet, desktop
	OS         string `json:"os"`
	Browser    string `json:"browser"`
	BrowserVer string `json:"browser_ver"`
	IsBot      bool   `json:"is_bot"`
	Platform   string `json:"platform"` // android, ios, windows, mac, linux
}

var tabletIndicators = []string{"ipad", "tablet", "kindle", "sm-t", "nexus 7", "nexus 9", "nexus 10"}

var platforms = []struct{ prefix, name string }{
	{"android", "android"},
	{"iphone os", "ios"},
	{"ios", "ios"},
	{"chrome os", "chromeos"},
	{"windows", "windows"},
	{"mac os x", "mac"},
	{"macos", "mac"},
	{"linux", "linux"},
	{"ubuntu", "linux"},
}

// ParseUserAgent parses a User-Agent string
func ParseUserAgent(userAgent string) DeviceInfo {
	if userAgent == "" || userAgent == "Unknown" {
		return DeviceInfo{
			DeviceType: "unknown",
			OS:         "Unknown",
			Browser:    "Unknown",
			Platform:   "unknown",
		}
	}

	parser := ua.New(userAgent)
	browser, version := parser.Browser()
	if browser == "" {
		browser = "Unknown"
	}

	osInfo := parser.OSInfo()
	os := "Unknown"
	if osInfo.Name != "" {
		os = strings.TrimSpace(osInfo.Name + " " + osInfo.Version)
	}

	return DeviceInfo{
		DeviceType: deviceType(parser),
		OS:         os,
		Browser:    browser,
		BrowserVer: version,
		IsBot:      parser.Bot(),
		Platform:   platformOf(osInfo.Name),
	}
}

func deviceType(parser *ua.UserAgent) string {
	raw := strings.ToLower(parser.UA())
	for _, indicator := range tabletIndicators {
		if strings.Contains(raw, indicator) {
			return "tablet"
		}
	}
	if parser.Mobile() {
		return "mobile"
	}
	return "desktop"
}

func platformOf(osName string) string {
	name := strings.ToLower(osName)
	for _, p := range platforms {
		if strings.Contains(name, p.prefix) {
			return p.name
		}
	}
	return "unknown"
}
