package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	EngineLlamaCpp = "llamacpp"
	EngineOpenAI   = "openai"
	EngineGemini   = "gemini"
)

type AppConfig struct {
	Port                  string        `validate:"required,numeric"`
	Env                   string        `validate:"required"`
	RelayURL              string        `validate:"required,url"`
	HeartbeatInterval     time.Duration `validate:"min=1s"`
	ConfirmationTTL       time.Duration `validate:"min=1s"`
	GenerationEngine      string        `validate:"oneof=llamacpp openai gemini"`
	OpenAIKey             string        `validate:"required_if=GenerationEngine openai"`
	TranscriptionLanguage string        `validate:"omitempty,len=2"`
	CatalogFile           string
	CatalogKey            string `validate:"required"`
	DeviceChannel         string `validate:"required"`
	ShortcutChannel       string `validate:"required"`
	ArchiveVoiceNotes     bool
}

type RelayConfig struct {
	Port           string        `validate:"required,numeric"`
	AllowedIP      string        `validate:"required"`
	TargetJID      string        `validate:"omitempty,contains=@"`
	StatusInterval time.Duration `validate:"min=1s"`
}

func NewValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func LoadAppConfig(validate *validator.Validate) (AppConfig, error) {
	heartbeat, err := durationEnv("HEARTBEAT_INTERVAL", 25*time.Second)
	if err != nil {
		return AppConfig{}, err
	}
	ttl, err := durationEnv("CONFIRMATION_TTL", 120*time.Second)
	if err != nil {
		return AppConfig{}, err
	}

	cfg := AppConfig{
		Port:                  stringEnv("APP_PORT", "3000"),
		Env:                   stringEnv("APP_ENV", "development"),
		RelayURL:              stringEnv("RELAY_URL", "ws://127.0.0.1:8765/ws"),
		HeartbeatInterval:     heartbeat,
		ConfirmationTTL:       ttl,
		GenerationEngine:      strings.ToLower(stringEnv("GENERATION_ENGINE", EngineLlamaCpp)),
		OpenAIKey:             os.Getenv("OPENAI_API_KEY"),
		TranscriptionLanguage: stringEnv("TRANSCRIPTION_LANGUAGE", "en"),
		CatalogFile:           os.Getenv("CATALOG_FILE"),
		CatalogKey:            stringEnv("CATALOG_REDIS_KEY", "assistant:catalog"),
		DeviceChannel:         stringEnv("DEVICE_CHANNEL", "assistant:devices"),
		ShortcutChannel:       stringEnv("SHORTCUT_CHANNEL", "assistant:shortcuts"),
		ArchiveVoiceNotes:     os.Getenv("AWS_BUCKET_NAME") != "",
	}

	if err := validate.Struct(cfg); err != nil {
		return AppConfig{}, fmt.Errorf("invalid app config: %w", err)
	}
	return cfg, nil
}

func LoadRelayConfig(validate *validator.Validate) (RelayConfig, error) {
	interval, err := durationEnv("STATUS_INTERVAL", 30*time.Second)
	if err != nil {
		return RelayConfig{}, err
	}

	cfg := RelayConfig{
		Port:           stringEnv("RELAY_PORT", "8765"),
		AllowedIP:      stringEnv("ALLOWED_IP", "127.0.0.1"),
		TargetJID:      os.Getenv("TARGET_JID"),
		StatusInterval: interval,
	}

	if err := validate.Struct(cfg); err != nil {
		return RelayConfig{}, fmt.Errorf("invalid relay config: %w", err)
	}
	return cfg, nil
}

func stringEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
