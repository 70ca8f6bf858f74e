// Package score computes a bot-likelihood score from request metadata,
// client-reported signals and the outcome of the arithmetic challenge.
//
// Scoring is a deliberately uncalibrated additive heuristic: each triggered
// signal contributes a fixed weight and the total is clamped into [0,100].
// The engine is a pure function of its inputs and holds no mutable state.
package score

import (
	"encoding/json"
	"strings"
)

// Weights for individual signal contributions.
const (
	WeightChallengeFailed   = 30
	WeightAutomationFlag    = 25
	WeightHeadless          = 20
	WeightBlockedUserAgent  = 20
	WeightInconsistentUA    = 25
	WeightUnparseableUA     = 10
	WeightBlockedOrigin     = 50
	WeightSuspiciousHeader  = 5
	WeightMissingHeader     = 10
	WeightCookiesDisabled   = 15
	WeightLowMouseActivity  = 10
	WeightLowScrollActivity = 10
	WeightNoKeyPresses      = 5
)

// BrowserOSPair names a browser family and OS family that cannot occur
// together on real hardware.
type BrowserOSPair struct {
	Browser string
	OS      string
}

// DefaultIncompatiblePairs lists combinations that no shipping browser
// produces. The table is configuration, not an attempt at a universal set.
var DefaultIncompatiblePairs = []BrowserOSPair{
	{Browser: "Chrome", OS: "iOS"},   // Chrome on iOS identifies as CriOS
	{Browser: "Safari", OS: "Windows"},
	{Browser: "IE", OS: "Android"},
}

// Config holds the tunable inputs to the scoring engine. Zero values mean
// "no entries"; use DefaultConfig for the shipped defaults.
type Config struct {
	OriginBlocklist    []string
	OriginAllowlist    []string
	UserAgentBlocklist []string
	SuspiciousHeaders  []string
	ExpectedHeaders    []string
	TrackMouse         bool
	TrackScroll        bool
	MouseFloor         int
	ScrollFloor        int
	IncompatiblePairs  []BrowserOSPair
}

// DefaultConfig returns the scoring configuration used when nothing is
// overridden.
func DefaultConfig() Config {
	return Config{
		UserAgentBlocklist: []string{
			"PhantomJS", "HeadlessChrome", "Headless", "Playwright",
			"Selenium", "webdriver", "puppeteer", "cypress", "Scrapy",
			"python-requests", "Go-http-client", "node-fetch",
		},
		SuspiciousHeaders: []string{
			"X-Forwarded-For", "Via", "Forwarded", "X-Real-IP",
			"X-ProxyUser-Ip", "CF-Connecting-IP",
		},
		ExpectedHeaders:   []string{"Accept", "Accept-Language", "Accept-Encoding"},
		TrackMouse:        true,
		TrackScroll:       true,
		MouseFloor:        3,
		ScrollFloor:       1,
		IncompatiblePairs: DefaultIncompatiblePairs,
	}
}

// RequestMeta is the server-observed side of a detection request.
// Header keys must be lowercased by the caller.
type RequestMeta struct {
	Origin    string
	UserAgent string
	Headers   map[string]string
}

// AutomationIndicators are client-reported automation probe results.
type AutomationIndicators struct {
	Webdriver     bool `json:"webdriver"`
	Selenium      bool `json:"selenium"`
	Phantom       bool `json:"phantom"`
	Nightmare     bool `json:"nightmare"`
	DOMAutomation bool `json:"domAutomation"`
	Headless      bool `json:"headless"`
}

// UserActivity counts interaction events observed by the client script.
type UserActivity struct {
	MouseMovements        int   `json:"mouseMovements"`
	ScrollEvents          int   `json:"scrollEvents"`
	KeyPresses            int   `json:"keyPresses"`
	TimeSinceLastActivity int64 `json:"timeSinceLastActivity,omitempty"`
}

// Signals is the client-reported payload of a check request. Fields beyond
// the scored ones are kept only for detection record snapshots.
type Signals struct {
	Fingerprint    string               `json:"fingerprint"`
	CookiesEnabled bool                 `json:"cookiesEnabled"`
	Automation     AutomationIndicators `json:"automationIndicators"`
	Activity       UserActivity         `json:"userActivity"`
	Language       string               `json:"language,omitempty"`
	Timezone       int                  `json:"timezone,omitempty"`
	Screen         json.RawMessage      `json:"screen,omitempty"`
	WebGL          json.RawMessage      `json:"webGL,omitempty"`
}

// ChallengeOutcome summarizes the challenge half of a check request. A
// missing or expired challenge is indistinguishable from a wrong answer and
// scores the same.
type ChallengeOutcome struct {
	Found  bool
	Passed bool
}

// Engine scores detection requests against a fixed configuration.
type Engine struct {
	cfg Config
}

// NewEngine creates an engine for the given configuration.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Score computes the bot-likelihood score in [0,100]. Deterministic for
// identical inputs; no side effects.
func (e *Engine) Score(meta RequestMeta, sig Signals, outcome ChallengeOutcome) int {
	if containsFold(e.cfg.OriginAllowlist, meta.Origin) {
		return 0
	}

	score := 0

	if !outcome.Found || !outcome.Passed {
		score += WeightChallengeFailed
	}

	// Each automation flag carries its full weight; no per-flag cap.
	for _, flagged := range []bool{
		sig.Automation.Webdriver,
		sig.Automation.Selenium,
		sig.Automation.Phantom,
		sig.Automation.Nightmare,
		sig.Automation.DOMAutomation,
	} {
		if flagged {
			score += WeightAutomationFlag
		}
	}
	if sig.Automation.Headless {
		score += WeightHeadless
	}

	ua := strings.ToLower(meta.UserAgent)
	for _, blocked := range e.cfg.UserAgentBlocklist {
		if strings.Contains(ua, strings.ToLower(blocked)) {
			score += WeightBlockedUserAgent
			break
		}
	}

	if info, ok := ParseUserAgent(meta.UserAgent); !ok {
		score += WeightUnparseableUA
	} else {
		for _, pair := range e.cfg.IncompatiblePairs {
			if info.Browser == pair.Browser && info.OS == pair.OS {
				score += WeightInconsistentUA
				break
			}
		}
	}

	if containsFold(e.cfg.OriginBlocklist, meta.Origin) {
		score += WeightBlockedOrigin
	}

	for _, header := range e.cfg.SuspiciousHeaders {
		if _, ok := meta.Headers[strings.ToLower(header)]; ok {
			score += WeightSuspiciousHeader
		}
	}

	for _, header := range e.cfg.ExpectedHeaders {
		if _, ok := meta.Headers[strings.ToLower(header)]; !ok {
			score += WeightMissingHeader
		}
	}

	if !sig.CookiesEnabled {
		score += WeightCookiesDisabled
	}

	if e.cfg.TrackMouse && sig.Activity.MouseMovements < e.cfg.MouseFloor {
		score += WeightLowMouseActivity
	}
	if e.cfg.TrackScroll && sig.Activity.ScrollEvents < e.cfg.ScrollFloor {
		score += WeightLowScrollActivity
	}
	if sig.Activity.KeyPresses == 0 {
		score += WeightNoKeyPresses
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}

func containsFold(list []string, value string) bool {
	for _, v := range list {
		if strings.EqualFold(v, value) {
			return true
		}
	}
	return false
}
