package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults(t *testing.T) {
	t.Setenv("MESSAGE_LIMIT", "")
	t.Setenv("MIN_PARTICIPANTS", "")
	t.Setenv("MAX_CHANNELS", "")
	t.Setenv("SESSIONS_DIR", "")
	t.Setenv("SCAN_CONCURRENCY", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.MessageLimit)
	assert.Equal(t, 1500, cfg.MinParticipants)
	assert.Equal(t, 50, cfg.MaxChannels)
	assert.Equal(t, "./sessions", cfg.SessionsDir)
	assert.Equal(t, 0, cfg.ScanConcurrency)
	assert.Empty(t, cfg.DatabaseURL, "persistence is opt-in")
}

func TestConfig_FromEnv(t *testing.T) {
	t.Setenv("SESSIONS_DIR", "/custom/sessions")
	t.Setenv("MESSAGE_LIMIT", "250")
	t.Setenv("TG_RPS", "5.5")
	t.Setenv("TG_API_ID", "12345")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/custom/sessions", cfg.SessionsDir)
	assert.Equal(t, 250, cfg.MessageLimit)
	assert.InDelta(t, 5.5, cfg.TGRateLimit, 0.0001)
	assert.Equal(t, 12345, cfg.TGApiID)
}

func TestConfig_InvalidIntFallsBack(t *testing.T) {
	t.Setenv("MESSAGE_LIMIT", "lots")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.MessageLimit)
}
