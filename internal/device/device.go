package device

import (
	"fmt"
	"strings"
)

// Platform is the operating system family reported for a device.
type Platform string

const (
	PlatformWindows Platform = "Windows"
	PlatformMacOS   Platform = "macOS"
	PlatformLinux   Platform = "Linux"
	PlatformAndroid Platform = "Android"
	PlatformIOS     Platform = "iOS"
	PlatformUnknown Platform = "Unknown"
)

// Browser is the browser family reported for a device.
type Browser string

const (
	BrowserChrome  Browser = "Chrome"
	BrowserFirefox Browser = "Firefox"
	BrowserSafari  Browser = "Safari"
	BrowserEdge    Browser = "Edge"
	BrowserUnknown Browser = "Unknown"
)

// Info is the device descriptor transmitted with an attendance submission.
// It is computed once per attempt and never persisted client-side.
type Info struct {
	Platform         Platform `json:"platform"`
	Browser          Browser  `json:"browser"`
	ScreenResolution string   `json:"screen_resolution"`
	Timezone         string   `json:"timezone"`
	UserAgent        string   `json:"user_agent"`
	Language         string   `json:"language"`
	Fingerprint      string   `json:"device_fingerprint"`
}

// Profile holds the raw characteristics a fingerprint is derived from.
// CanvasData is a rendered-canvas snapshot encoded as a data URI; it stays
// empty when no 2D context is available and generation proceeds without it.
type Profile struct {
	UserAgent           string
	Language            string
	ScreenWidth         int
	ScreenHeight        int
	Timezone            string
	TimezoneOffsetMin   int
	CanvasData          string
	HardwareConcurrency int
	DeviceMemoryGB      int
}

// NewInfo derives the full descriptor, fingerprint included, from a profile.
func NewInfo(p Profile) Info {
	return Info{
		Platform:         DetectPlatform(p.UserAgent),
		Browser:          DetectBrowser(p.UserAgent),
		ScreenResolution: fmt.Sprintf("%dx%d", p.ScreenWidth, p.ScreenHeight),
		Timezone:         p.Timezone,
		UserAgent:        p.UserAgent,
		Language:         p.Language,
		Fingerprint:      Fingerprint(p),
	}
}

// DetectPlatform classifies the OS family from a user agent string.
func DetectPlatform(ua string) Platform {
	switch {
	case strings.Contains(ua, "iPhone"), strings.Contains(ua, "iPad"), strings.Contains(ua, "iPod"):
		return PlatformIOS
	case strings.Contains(ua, "Android"):
		return PlatformAndroid
	case strings.Contains(ua, "Windows"):
		return PlatformWindows
	case strings.Contains(ua, "Mac OS X"), strings.Contains(ua, "Macintosh"):
		return PlatformMacOS
	case strings.Contains(ua, "Linux"):
		return PlatformLinux
	default:
		return PlatformUnknown
	}
}

// DetectBrowser classifies the browser family from a user agent string.
// Edge must be checked before Chrome, and Chrome before Safari, since their
// user agents embed each other's tokens.
func DetectBrowser(ua string) Browser {
	switch {
	case strings.Contains(ua, "Edg/"), strings.Contains(ua, "Edge/"):
		return BrowserEdge
	case strings.Contains(ua, "Firefox/"):
		return BrowserFirefox
	case strings.Contains(ua, "Chrome/"), strings.Contains(ua, "CriOS/"):
		return BrowserChrome
	case strings.Contains(ua, "Safari/"):
		return BrowserSafari
	default:
		return BrowserUnknown
	}
}
