package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Wissididom/twitch-sus-user-logger/internal/twitch"
)

// Config holds all configuration for the application.
type Config struct {
	Port string `mapstructure:"port"`

	EventSubSecret        string        `mapstructure:"eventsub_secret"`
	EventSubMaxMessageAge time.Duration `mapstructure:"eventsub_max_message_age"`
	MaxBodySize           int64         `mapstructure:"max_body_size"`

	DiscordWebhookURL string `mapstructure:"discord_webhook_url"`
	ThreadID          string `mapstructure:"thread_id"`
	DiscordRateLimit  int    `mapstructure:"discord_rate_limit"`

	TwitchClientID     string `mapstructure:"twitch_client_id"`
	TwitchClientSecret string `mapstructure:"twitch_client_secret"`
	TwitchRedirectURI  string `mapstructure:"twitch_redirect_uri"`

	DatabaseURL string `mapstructure:"database_url"`
	RedisURL    string `mapstructure:"redis_url"`

	NumWorkers      int           `mapstructure:"num_workers"`
	QueueSize       int           `mapstructure:"queue_size"`
	DeliveryTimeout time.Duration `mapstructure:"delivery_timeout"`

	LogLevel string `mapstructure:"log_level"`
}

var defaults = map[string]any{
	"port":                     "3000",
	"eventsub_secret":          "",
	"eventsub_max_message_age": "0s",
	"max_body_size":            1 << 20,
	"discord_webhook_url":      "",
	"thread_id":                "",
	"discord_rate_limit":       0,
	"twitch_client_id":         "",
	"twitch_client_secret":     "",
	"twitch_redirect_uri":      "",
	"database_url":             "",
	"redis_url":                "",
	"num_workers":              4,
	"queue_size":               100,
	"delivery_timeout":         "10s",
	"log_level":                "info",
}

// Load reads configuration from environment variables. A .env file in the
// working directory is loaded first when present; it never overrides
// variables that are already set.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.NumWorkers < 1 {
		return nil, fmt.Errorf("NUM_WORKERS must be at least 1")
	}
	if cfg.QueueSize < 0 {
		return nil, fmt.Errorf("QUEUE_SIZE must not be negative")
	}
	if cfg.MaxBodySize <= 0 {
		return nil, fmt.Errorf("MAX_BODY_SIZE must be positive")
	}
	if cfg.DeliveryTimeout <= 0 {
		return nil, fmt.Errorf("DELIVERY_TIMEOUT must be positive")
	}
	if _, err := parseLevel(cfg.LogLevel); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks what the webhook server needs to run.
func (c *Config) Validate() error {
	var errs []error
	if c.EventSubSecret == "" {
		errs = append(errs, errors.New("EVENTSUB_SECRET is required"))
	}
	if c.DiscordWebhookURL == "" {
		errs = append(errs, errors.New("DISCORD_WEBHOOK_URL is required"))
	}
	return errors.Join(errs...)
}

// TwitchCredentials returns the Twitch application settings.
func (c *Config) TwitchCredentials() twitch.Credentials {
	return twitch.Credentials{
		ClientID:     c.TwitchClientID,
		ClientSecret: c.TwitchClientSecret,
		RedirectURI:  c.TwitchRedirectURI,
	}
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q", s)
	}
	return level, nil
}
