package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoadAppConfigDefaults(t *testing.T) {
	clearEnv(t, "APP_PORT", "APP_ENV", "RELAY_URL", "HEARTBEAT_INTERVAL", "CONFIRMATION_TTL",
		"GENERATION_ENGINE", "OPENAI_API_KEY", "TRANSCRIPTION_LANGUAGE", "CATALOG_FILE",
		"CATALOG_REDIS_KEY", "DEVICE_CHANNEL", "SHORTCUT_CHANNEL", "AWS_BUCKET_NAME")

	cfg, err := LoadAppConfig(NewValidator())
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "ws://127.0.0.1:8765/ws", cfg.RelayURL)
	assert.Equal(t, 25*time.Second, cfg.HeartbeatInterval)
	assert.Equal(t, 120*time.Second, cfg.ConfirmationTTL)
	assert.Equal(t, EngineLlamaCpp, cfg.GenerationEngine)
	assert.Equal(t, "assistant:catalog", cfg.CatalogKey)
	assert.False(t, cfg.ArchiveVoiceNotes)
}

func TestLoadAppConfigRejects(t *testing.T) {
	cases := map[string]map[string]string{
		"bad engine":       {"GENERATION_ENGINE": "markov"},
		"openai needs key": {"GENERATION_ENGINE": "openai", "OPENAI_API_KEY": ""},
		"bad duration":     {"CONFIRMATION_TTL": "soon"},
		"tiny heartbeat":   {"HEARTBEAT_INTERVAL": "10ms"},
		"bad relay url":    {"RELAY_URL": "not a url"},
	}

	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t, "GENERATION_ENGINE", "OPENAI_API_KEY", "CONFIRMATION_TTL", "HEARTBEAT_INTERVAL", "RELAY_URL")
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := LoadAppConfig(NewValidator())
			assert.Error(t, err)
		})
	}
}

func TestLoadRelayConfig(t *testing.T) {
	clearEnv(t, "RELAY_PORT", "ALLOWED_IP", "TARGET_JID", "STATUS_INTERVAL")

	cfg, err := LoadRelayConfig(NewValidator())
	require.NoError(t, err)
	assert.Equal(t, RelayConfig{Port: "8765", AllowedIP: "127.0.0.1", StatusInterval: 30 * time.Second}, cfg)

	t.Setenv("TARGET_JID", "6281234@s.whatsapp.net")
	t.Setenv("ALLOWED_IP", "*")
	cfg, err = LoadRelayConfig(NewValidator())
	require.NoError(t, err)
	assert.Equal(t, "*", cfg.AllowedIP)

	t.Setenv("TARGET_JID", "nobody")
	_, err = LoadRelayConfig(NewValidator())
	assert.Error(t, err)
}
