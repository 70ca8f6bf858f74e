package score

import (
	"regexp"
	"strings"
)

// UserAgentInfo is the browser/OS family extracted from a User-Agent string.
type UserAgentInfo struct {
	Browser string
	OS      string
	Mobile  bool
}

var (
	edgePattern    = regexp.MustCompile(`Edg(?:e|A|iOS)?\/\d+`)
	chromePattern  = regexp.MustCompile(`Chrome\/\d+`)
	criosPattern   = regexp.MustCompile(`CriOS\/\d+`)
	firefoxPattern = regexp.MustCompile(`Firefox\/\d+`)
	fxiosPattern   = regexp.MustCompile(`FxiOS\/\d+`)
	safariPattern  = regexp.MustCompile(`Safari\/\d+`)
	iePattern      = regexp.MustCompile(`MSIE \d+|Trident\/\d+`)
)

// ParseUserAgent extracts browser and OS families from a declared UA string.
// The second return value is false when the string yields neither a browser
// nor an OS family, which the scoring engine treats as a parse failure.
//
// Chrome and Firefox on iOS identify as CriOS/FxiOS and are reported as
// distinct families so the incompatibility table only fires on genuinely
// impossible claims.
func ParseUserAgent(ua string) (UserAgentInfo, bool) {
	info := UserAgentInfo{}
	if strings.TrimSpace(ua) == "" {
		return info, false
	}

	switch {
	case edgePattern.MatchString(ua):
		info.Browser = "Edge"
	case criosPattern.MatchString(ua):
		info.Browser = "Chrome iOS"
	case chromePattern.MatchString(ua):
		info.Browser = "Chrome"
	case fxiosPattern.MatchString(ua):
		info.Browser = "Firefox iOS"
	case firefoxPattern.MatchString(ua):
		info.Browser = "Firefox"
	case iePattern.MatchString(ua):
		info.Browser = "IE"
	case safariPattern.MatchString(ua):
		info.Browser = "Safari"
	}

	switch {
	case strings.Contains(ua, "Windows"):
		info.OS = "Windows"
	case strings.Contains(ua, "iPhone"), strings.Contains(ua, "iPad"), strings.Contains(ua, "iPod"):
		info.OS = "iOS"
		info.Mobile = true
	case strings.Contains(ua, "Android"):
		info.OS = "Android"
		info.Mobile = true
	case strings.Contains(ua, "Mac OS X"), strings.Contains(ua, "Macintosh"):
		info.OS = "macOS"
	case strings.Contains(ua, "Linux"):
		info.OS = "Linux"
	}

	if strings.Contains(ua, "Mobile") {
		info.Mobile = true
	}

	return info, info.Browser != "" || info.OS != ""
}
