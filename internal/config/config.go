// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Optional Redis backend for the challenge and token stores.
	// In-memory stores are used when unset.
	RedisURL string

	// Detection thresholds
	ScoreThreshold int // score at or above this marks a visitor suspicious
	BlockThreshold int // score at or above this returns a decoy token

	// Lifetimes
	TokenValidity     time.Duration
	ChallengeValidity time.Duration

	// Challenge generation
	ChallengeDifficulty int // 1..3, controls operand magnitude

	// Scoring inputs
	OriginBlocklist    []string
	OriginAllowlist    []string
	UserAgentBlocklist []string
	SuspiciousHeaders  []string
	ExpectedHeaders    []string
	TrackMouse         bool
	TrackScroll        bool
	MouseFloor         int
	ScrollFloor        int

	// Detection log bound
	DetectionLogMax int

	// External CAPTCHA solving service (optional)
	CaptchaAPIKey string
}

const (
	DefaultPort                = "3000"
	DefaultEnv                 = "development"
	DefaultLogLevel            = "info"
	DefaultScoreThreshold      = 60
	DefaultBlockThreshold      = 85
	DefaultTokenValidity       = 1800 * time.Second
	DefaultChallengeValidity   = 5 * time.Minute
	DefaultChallengeDifficulty = 2
	DefaultMouseFloor          = 3
	DefaultScrollFloor         = 1
	DefaultDetectionLogMax     = 10000
)

// DefaultUserAgentBlocklist lists substrings of automation tools commonly
// found in declared user agents. Matching is case-insensitive.
var DefaultUserAgentBlocklist = []string{
	"PhantomJS", "HeadlessChrome", "Headless", "Playwright",
	"Selenium", "webdriver", "puppeteer", "cypress", "Scrapy",
	"python-requests", "Go-http-client", "node-fetch",
}

// DefaultSuspiciousHeaders are headers added by proxies and relays that a
// browser talking to us directly would not send.
var DefaultSuspiciousHeaders = []string{
	"X-Forwarded-For", "Via", "Forwarded", "X-Real-IP",
	"X-ProxyUser-Ip", "CF-Connecting-IP",
}

// DefaultExpectedHeaders are content-negotiation headers every real browser
// sends; each missing one adds to the score.
var DefaultExpectedHeaders = []string{
	"Accept", "Accept-Language", "Accept-Encoding",
}

// Load reads configuration from environment variables. It loads a .env file
// if present (for local development).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:                getEnv("PORT", DefaultPort),
		Env:                 getEnv("ENV", DefaultEnv),
		LogLevel:            getEnv("LOG_LEVEL", DefaultLogLevel),
		RedisURL:            os.Getenv("REDIS_URL"),
		ScoreThreshold:      getEnvInt("SCORE_THRESHOLD", DefaultScoreThreshold),
		BlockThreshold:      getEnvInt("BLOCK_THRESHOLD", DefaultBlockThreshold),
		TokenValidity:       getEnvSeconds("TOKEN_VALIDITY_SECONDS", DefaultTokenValidity),
		ChallengeValidity:   getEnvSeconds("CHALLENGE_VALIDITY_SECONDS", DefaultChallengeValidity),
		ChallengeDifficulty: getEnvInt("CHALLENGE_DIFFICULTY", DefaultChallengeDifficulty),
		OriginBlocklist:     getEnvList("ORIGIN_BLOCKLIST", nil),
		OriginAllowlist:     getEnvList("ORIGIN_ALLOWLIST", nil),
		UserAgentBlocklist:  getEnvList("USER_AGENT_BLOCKLIST", DefaultUserAgentBlocklist),
		SuspiciousHeaders:   getEnvList("SUSPICIOUS_HEADERS", DefaultSuspiciousHeaders),
		ExpectedHeaders:     getEnvList("EXPECTED_HEADERS", DefaultExpectedHeaders),
		TrackMouse:          getEnvBool("TRACK_MOUSE", true),
		TrackScroll:         getEnvBool("TRACK_SCROLL", true),
		MouseFloor:          getEnvInt("MOUSE_FLOOR", DefaultMouseFloor),
		ScrollFloor:         getEnvInt("SCROLL_FLOOR", DefaultScrollFloor),
		DetectionLogMax:     getEnvInt("DETECTION_LOG_MAX", DefaultDetectionLogMax),
		CaptchaAPIKey:       os.Getenv("CAPTCHA_API_KEY"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.ChallengeDifficulty < 1 || c.ChallengeDifficulty > 3 {
		return fmt.Errorf("CHALLENGE_DIFFICULTY must be 1, 2 or 3 (got %d)", c.ChallengeDifficulty)
	}
	if c.ScoreThreshold < 0 || c.ScoreThreshold > 100 {
		return fmt.Errorf("SCORE_THRESHOLD must be in [0,100] (got %d)", c.ScoreThreshold)
	}
	if c.BlockThreshold < c.ScoreThreshold || c.BlockThreshold > 100 {
		return fmt.Errorf("BLOCK_THRESHOLD must be in [SCORE_THRESHOLD,100] (got %d)", c.BlockThreshold)
	}
	if c.TokenValidity <= 0 {
		return fmt.Errorf("TOKEN_VALIDITY_SECONDS must be positive")
	}
	if c.ChallengeValidity <= 0 {
		return fmt.Errorf("CHALLENGE_VALIDITY_SECONDS must be positive")
	}
	return nil
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvSeconds(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil && i > 0 {
			return time.Duration(i) * time.Second
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
