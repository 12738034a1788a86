package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gamedash/internal/constants"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

var ErrAuthIncomplete = errors.New("AUTH_USER and AUTH_PASSWORD_HASH must be set together")

type Config struct {
	DataPath         string
	ServerPort       string
	LogLevel         string
	AuthUser         string
	AuthPasswordHash string
	RateLimit        float64 // requests per second per client; 0 disables
	ScatterLimit     int
	CORSOrigins      []string
	DotEnv           bool // a .env file was read
}

// Load reads the configuration from the environment, after merging in a
// .env file from the working directory when one exists.
func Load() (*Config, error) {
	cfg := &Config{DotEnv: godotenv.Load() == nil}
	if err := cfg.fill(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) fill() error {
	cfg.DataPath = getEnv("DATA_PATH", constants.DefaultDataPath)
	cfg.ServerPort = getEnv("SERVER_PORT", constants.DefaultServerPort)
	cfg.LogLevel = getEnv("LOG_LEVEL", constants.DefaultLogLevel)
	cfg.AuthUser = os.Getenv("AUTH_USER")
	cfg.AuthPasswordHash = os.Getenv("AUTH_PASSWORD_HASH")

	if (cfg.AuthUser == "") != (cfg.AuthPasswordHash == "") {
		return ErrAuthIncomplete
	}

	rate, err := strconv.ParseFloat(getEnv("RATE_LIMIT", strconv.Itoa(constants.DefaultRateLimit)), 64)
	if err != nil || rate < 0 {
		return fmt.Errorf("RATE_LIMIT: invalid value %q", os.Getenv("RATE_LIMIT"))
	}
	cfg.RateLimit = rate

	limit, err := strconv.Atoi(getEnv("SCATTER_LIMIT", strconv.Itoa(constants.DefaultScatterLimit)))
	if err != nil || limit < 0 {
		return fmt.Errorf("SCATTER_LIMIT: invalid value %q", os.Getenv("SCATTER_LIMIT"))
	}
	cfg.ScatterLimit = limit

	for _, o := range strings.Split(getEnv("CORS_ORIGINS", constants.DefaultCORSOrigins), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}
	return nil
}

// AuthEnabled reports whether the API sits behind basic auth.
func (cfg *Config) AuthEnabled() bool {
	return cfg.AuthUser != "" && cfg.AuthPasswordHash != ""
}

// Log records the effective configuration. Secrets are omitted.
func (cfg *Config) Log(logger zerolog.Logger) {
	if !cfg.DotEnv {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}
	logger.Info().
		Str("data_path", cfg.DataPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Bool("auth", cfg.AuthEnabled()).
		Float64("rate_limit", cfg.RateLimit).
		Int("scatter_limit", cfg.ScatterLimit).
		Strs("cors_origins", cfg.CORSOrigins).
		Msg("configuration loaded")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
