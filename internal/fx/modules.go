package fx

import (
	"gamedash/internal/api"
	"gamedash/internal/auth"
	"gamedash/internal/config"
	"gamedash/internal/dashboard"
	"gamedash/internal/logger"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func ProvideLogger(cfg *config.Config) zerolog.Logger {
	return logger.SetLevel(cfg.LogLevel)
}

// ProvideVerifier returns nil when basic auth is not configured.
func ProvideVerifier(cfg *config.Config) (auth.Verifier, error) {
	if !cfg.AuthEnabled() {
		return nil, nil
	}
	return auth.NewBcryptVerifier(cfg.AuthUser, cfg.AuthPasswordHash)
}

func ProvideDashboard(cfg *config.Config, logger zerolog.Logger) *dashboard.Service {
	return dashboard.NewService(logger, cfg.ScatterLimit)
}

var Module = fx.Options(
	fx.Provide(config.Load),
	fx.Provide(ProvideLogger),
	// auth
	fx.Provide(ProvideVerifier),
	// svc
	fx.Provide(ProvideDashboard),
	// http
	fx.Provide(api.NewHandler),
	fx.Provide(api.NewServer),
)
