package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime settings for the storybook service.
type Config struct {
	BindAddr string
	Env      string

	ArkAPIKey  string
	ArkBaseURL string
	ChatModel  string
	ImageModel string
	ImageSize  string
	MockAPIs   bool

	PromptVersion string

	SessionRoot   string
	SessionTTL    time.Duration
	SweepInterval time.Duration

	StoryRetries    int
	UpstreamTimeout time.Duration
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:        ":" + envOrDefault("PORT", "8080"),
		Env:             envOrDefault("APP_ENV", "development"),
		ArkAPIKey:       strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		ArkBaseURL:      envOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com"),
		ChatModel:       envOrDefault("ARK_CHAT_MODEL", "doubao-seed-1-6"),
		ImageModel:      envOrDefault("ARK_IMAGE_MODEL", "doubao-seedream-4.0"),
		ImageSize:       envOrDefault("ARK_IMAGE_SIZE", "1024x1024"),
		PromptVersion:   envOrDefault("PROMPT_VERSION", ""),
		SessionRoot:     envOrDefault("SESSION_ROOT", "static/avatars"),
		SessionTTL:      time.Hour,
		SweepInterval:   10 * time.Minute,
		StoryRetries:    1,
		UpstreamTimeout: 90 * time.Second,
	}

	var err error
	cfg.MockAPIs, err = boolFromEnv("ARK_MOCK", false)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionTTL, err = durationFromEnv("SESSION_TTL", cfg.SessionTTL)
	if err != nil {
		return Config{}, err
	}
	cfg.SweepInterval, err = durationFromEnv("SWEEP_INTERVAL", cfg.SweepInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.StoryRetries, err = intFromEnv("STORY_RETRIES", cfg.StoryRetries)
	if err != nil {
		return Config{}, err
	}
	cfg.UpstreamTimeout, err = durationFromEnv("UPSTREAM_TIMEOUT", cfg.UpstreamTimeout)
	if err != nil {
		return Config{}, err
	}

	if cfg.SessionTTL <= 0 {
		return Config{}, fmt.Errorf("SESSION_TTL must be positive")
	}
	if cfg.SweepInterval <= 0 {
		return Config{}, fmt.Errorf("SWEEP_INTERVAL must be positive")
	}
	if cfg.StoryRetries < 0 {
		return Config{}, fmt.Errorf("STORY_RETRIES must be >= 0")
	}
	if cfg.UpstreamTimeout < time.Second {
		return Config{}, fmt.Errorf("UPSTREAM_TIMEOUT must be at least 1s")
	}

	return cfg, nil
}

// Production reports whether the service runs with production settings.
func (c Config) Production() bool {
	return c.Env == "production"
}

func envOrDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
