package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

const (
	StoreFile     = "file"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"8080"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	BotToken          string   `env:"BOT_TOKEN"`
	GuildID           string   `env:"GUILD_ID"`
	CommandPrefix     string   `env:"COMMAND_PREFIX" default:"\\"`
	PollsChannel      string   `env:"POLLS_CHANNEL"`
	SuggestionChannel string   `env:"SUGGESTION_CHANNEL"`
	StartupChannels   []string `env:"STARTUP_CHANNELS"`

	CommandRatePerMinute int `env:"COMMAND_RATE_PER_MINUTE" default:"20"`

	PollStore   string `env:"POLL_STORE" default:"file"`
	PollsFile   string `env:"POLLS_FILE" default:"data/polls.json"`
	RedisURL    string `env:"REDIS_URL"`
	DatabaseURL string `env:"DATABASE_URL"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, &env.Options{SliceSep: ","}); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg.StartupChannels = compact(cfg.StartupChannels)
	cfg.PollStore = strings.ToLower(strings.TrimSpace(cfg.PollStore))

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func validate(cfg *Config) error {
	if cfg.BotToken == "" {
		return errors.New("BOT_TOKEN is required")
	}
	if strings.TrimSpace(cfg.CommandPrefix) == "" {
		return errors.New("COMMAND_PREFIX must not be blank")
	}
	if cfg.CommandRatePerMinute <= 0 {
		return fmt.Errorf("COMMAND_RATE_PER_MINUTE must be positive, got %d", cfg.CommandRatePerMinute)
	}

	switch cfg.PollStore {
	case StoreFile:
		if cfg.PollsFile == "" {
			return errors.New("POLLS_FILE is required when POLL_STORE=file")
		}
	case StoreRedis:
		if cfg.RedisURL == "" {
			return errors.New("REDIS_URL is required when POLL_STORE=redis")
		}
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when POLL_STORE=postgres")
		}
	default:
		return fmt.Errorf("POLL_STORE must be one of file, redis, postgres, got %q", cfg.PollStore)
	}

	return nil
}
