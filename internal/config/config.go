package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the wearable assistant service.
type Config struct {
	BindAddr                 string
	ShutdownTimeout          time.Duration
	SessionInactivityTimeout time.Duration
	MetricsNamespace         string

	AllowAnyOrigin bool

	WakeWords []string

	DebounceNonFinal     time.Duration
	DebounceFinal        time.Duration
	DebounceWakeWordOnly time.Duration
	HardCutoff           time.Duration
	ProcessingGrace      time.Duration
	HeadUpWindow         time.Duration

	PhotoTTL          time.Duration
	NotificationLimit int
	GateContextLimit  int

	TurnBudget int

	ModelProvider   string
	AnthropicAPIKey string
	AnthropicModel  string
	OpenAIAPIKey    string
	OpenAIModel     string

	SearchAPIURL   string
	SearchAPIKey   string
	GeocodeAPIURL  string
	TimezoneAPIURL string
	ToolCatalogURL string
	ToolTimeout    time.Duration

	DatabaseURL string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:                 envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:         envOrDefault("APP_METRICS_NAMESPACE", "oasis"),
		AllowAnyOrigin:           false,
		WakeWords:                splitList(envOrDefault("WAKE_WORDS", "hey mira,hey mera,hey mirror,amira,hey amira")),
		DebounceNonFinal:         3000 * time.Millisecond,
		DebounceFinal:            1500 * time.Millisecond,
		DebounceWakeWordOnly:     8000 * time.Millisecond,
		HardCutoff:               15 * time.Second,
		ProcessingGrace:          1500 * time.Millisecond,
		HeadUpWindow:             10 * time.Second,
		PhotoTTL:                 60 * time.Second,
		NotificationLimit:        5,
		GateContextLimit:         6,
		TurnBudget:               5,
		ModelProvider:            envOrDefault("MODEL_PROVIDER", "auto"),
		AnthropicAPIKey:          trimmedEnv("ANTHROPIC_API_KEY"),
		AnthropicModel:           envOrDefault("ANTHROPIC_MODEL", "claude-3-5-sonnet-20241022"),
		OpenAIAPIKey:             trimmedEnv("OPENAI_API_KEY"),
		OpenAIModel:              envOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		SearchAPIURL:             envOrDefault("SEARCH_API_URL", "https://api.search.brave.com/res/v1/web/search"),
		SearchAPIKey:             trimmedEnv("SEARCH_API_KEY"),
		GeocodeAPIURL:            envOrDefault("GEOCODE_API_URL", "https://nominatim.openstreetmap.org/reverse"),
		TimezoneAPIURL:           envOrDefault("TIMEZONE_API_URL", "https://timeapi.io/api/timezone/coordinate"),
		ToolCatalogURL:           trimmedEnv("TOOL_CATALOG_URL"),
		ToolTimeout:              40 * time.Second,
		DatabaseURL:              trimmedEnv("DATABASE_URL"),
		ShutdownTimeout:          15 * time.Second,
		SessionInactivityTimeout: 5 * time.Minute,
	}

	var err error
	if cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout); err != nil {
		return Config{}, err
	}
	if cfg.SessionInactivityTimeout, err = durationFromEnv("APP_SESSION_INACTIVITY_TIMEOUT", cfg.SessionInactivityTimeout); err != nil {
		return Config{}, err
	}
	if cfg.DebounceNonFinal, err = durationFromEnv("WAKE_DEBOUNCE_NON_FINAL", cfg.DebounceNonFinal); err != nil {
		return Config{}, err
	}
	if cfg.DebounceFinal, err = durationFromEnv("WAKE_DEBOUNCE_FINAL", cfg.DebounceFinal); err != nil {
		return Config{}, err
	}
	if cfg.DebounceWakeWordOnly, err = durationFromEnv("WAKE_DEBOUNCE_WAKE_WORD_ONLY", cfg.DebounceWakeWordOnly); err != nil {
		return Config{}, err
	}
	if cfg.HardCutoff, err = durationFromEnv("WAKE_HARD_CUTOFF", cfg.HardCutoff); err != nil {
		return Config{}, err
	}
	if cfg.ProcessingGrace, err = durationFromEnv("WAKE_PROCESSING_GRACE", cfg.ProcessingGrace); err != nil {
		return Config{}, err
	}
	if cfg.HeadUpWindow, err = durationFromEnv("WAKE_HEAD_UP_WINDOW", cfg.HeadUpWindow); err != nil {
		return Config{}, err
	}
	if cfg.PhotoTTL, err = durationFromEnv("PHOTO_TTL", cfg.PhotoTTL); err != nil {
		return Config{}, err
	}
	if cfg.ToolTimeout, err = durationFromEnv("TOOL_HTTP_TIMEOUT", cfg.ToolTimeout); err != nil {
		return Config{}, err
	}
	if cfg.NotificationLimit, err = intFromEnv("NOTIFICATION_READ_LIMIT", cfg.NotificationLimit); err != nil {
		return Config{}, err
	}
	if cfg.GateContextLimit, err = intFromEnv("GATE_CONTEXT_LIMIT", cfg.GateContextLimit); err != nil {
		return Config{}, err
	}
	if cfg.TurnBudget, err = intFromEnv("AGENT_TURN_BUDGET", cfg.TurnBudget); err != nil {
		return Config{}, err
	}
	if cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin); err != nil {
		return Config{}, err
	}

	if len(cfg.WakeWords) == 0 {
		return Config{}, fmt.Errorf("WAKE_WORDS must name at least one phrase")
	}
	if cfg.TurnBudget <= 0 {
		return Config{}, fmt.Errorf("AGENT_TURN_BUDGET must be positive")
	}
	if cfg.NotificationLimit <= 0 {
		return Config{}, fmt.Errorf("NOTIFICATION_READ_LIMIT must be positive")
	}
	if cfg.GateContextLimit <= 0 {
		return Config{}, fmt.Errorf("GATE_CONTEXT_LIMIT must be positive")
	}
	if cfg.HardCutoff < time.Second {
		return Config{}, fmt.Errorf("WAKE_HARD_CUTOFF must be at least 1s")
	}
	if cfg.SessionInactivityTimeout < 5*time.Second {
		return Config{}, fmt.Errorf("APP_SESSION_INACTIVITY_TIMEOUT must be at least 5s")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func trimmedEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := trimmedEnv(key)
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
	v := trimmedEnv(key)
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
	v := strings.ToLower(trimmedEnv(key))
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
