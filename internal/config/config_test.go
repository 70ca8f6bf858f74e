package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultEnv, cfg.Env)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Empty(t, cfg.RedisURL)
	assert.Equal(t, DefaultScoreThreshold, cfg.ScoreThreshold)
	assert.Equal(t, DefaultBlockThreshold, cfg.BlockThreshold)
	assert.Equal(t, DefaultTokenValidity, cfg.TokenValidity)
	assert.Equal(t, DefaultChallengeValidity, cfg.ChallengeValidity)
	assert.Equal(t, DefaultChallengeDifficulty, cfg.ChallengeDifficulty)
	assert.Equal(t, DefaultUserAgentBlocklist, cfg.UserAgentBlocklist)
	assert.Equal(t, DefaultSuspiciousHeaders, cfg.SuspiciousHeaders)
	assert.Equal(t, DefaultExpectedHeaders, cfg.ExpectedHeaders)
	assert.True(t, cfg.TrackMouse)
	assert.True(t, cfg.TrackScroll)
	assert.Equal(t, DefaultDetectionLogMax, cfg.DetectionLogMax)
	assert.False(t, cfg.IsProduction())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("ENV", "production")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("SCORE_THRESHOLD", "50")
	t.Setenv("BLOCK_THRESHOLD", "90")
	t.Setenv("TOKEN_VALIDITY_SECONDS", "600")
	t.Setenv("CHALLENGE_DIFFICULTY", "3")
	t.Setenv("ORIGIN_BLOCKLIST", "1.2.3.4, 5.6.7.8")
	t.Setenv("TRACK_MOUSE", "false")
	t.Setenv("DETECTION_LOG_MAX", "500")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.Equal(t, 50, cfg.ScoreThreshold)
	assert.Equal(t, 90, cfg.BlockThreshold)
	assert.Equal(t, 600*time.Second, cfg.TokenValidity)
	assert.Equal(t, 3, cfg.ChallengeDifficulty)
	assert.Equal(t, []string{"1.2.3.4", "5.6.7.8"}, cfg.OriginBlocklist)
	assert.False(t, cfg.TrackMouse)
	assert.True(t, cfg.TrackScroll)
	assert.Equal(t, 500, cfg.DetectionLogMax)
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("SCORE_THRESHOLD", "not-a-number")
	t.Setenv("TRACK_MOUSE", "maybe")
	t.Setenv("TOKEN_VALIDITY_SECONDS", "-10")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultScoreThreshold, cfg.ScoreThreshold)
	assert.True(t, cfg.TrackMouse)
	assert.Equal(t, DefaultTokenValidity, cfg.TokenValidity)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			ScoreThreshold:      60,
			BlockThreshold:      85,
			TokenValidity:       time.Minute,
			ChallengeValidity:   time.Minute,
			ChallengeDifficulty: 2,
		}
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"difficulty too low", func(c *Config) { c.ChallengeDifficulty = 0 }},
		{"difficulty too high", func(c *Config) { c.ChallengeDifficulty = 4 }},
		{"score threshold negative", func(c *Config) { c.ScoreThreshold = -1 }},
		{"score threshold above scale", func(c *Config) { c.ScoreThreshold = 101 }},
		{"block threshold below score threshold", func(c *Config) { c.BlockThreshold = 59 }},
		{"block threshold above scale", func(c *Config) { c.BlockThreshold = 101 }},
		{"zero token validity", func(c *Config) { c.TokenValidity = 0 }},
		{"zero challenge validity", func(c *Config) { c.ChallengeValidity = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadRejectsInvalidDifficulty(t *testing.T) {
	t.Setenv("CHALLENGE_DIFFICULTY", "7")

	_, err := Load()
	assert.Error(t, err)
}
