package config

import (
	"fmt"
	"os"
	"time"

	"chain-arena/internal/constants"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	DBPath          string
	ServerPort      string
	LogLevel        string
	CharacterAPIURL string
	ImageBaseURL    string
	AdminSecret     string
	RefreshPeriod   time.Duration
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		DBPath:          getEnv("DB_PATH", "arena.db"),
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		CharacterAPIURL: getEnv("CHARACTER_API_URL", ""),
		ImageBaseURL:    getEnv("IMAGE_BASE_URL", ""),
		AdminSecret:     getEnv("ADMIN_SECRET", ""),
		RefreshPeriod:   constants.DefaultRefreshPeriod,
	}

	if raw := os.Getenv("REFRESH_PERIOD"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid REFRESH_PERIOD %q: %w", raw, err)
		}
		cfg.RefreshPeriod = d
	}

	if cfg.CharacterAPIURL == "" {
		return nil, fmt.Errorf("CHARACTER_API_URL is required")
	}
	if cfg.AdminSecret == "" {
		return nil, fmt.Errorf("ADMIN_SECRET is required")
	}

	logger.Info().
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Str("character_api_url", cfg.CharacterAPIURL).
		Dur("refresh_period", cfg.RefreshPeriod).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

var Module = fx.Provide(Load)
