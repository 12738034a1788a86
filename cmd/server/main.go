package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"gamedash/internal/api"
	"gamedash/internal/config"
	"gamedash/internal/constants"
	fxmodules "gamedash/internal/fx"
	"gamedash/internal/sessions"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		fxmodules.Module,
		fx.Invoke(runServer),
	).Run()
}

func runServer(
	lc fx.Lifecycle,
	e *echo.Echo,
	h *api.Handler,
	cfg *config.Config,
	logger zerolog.Logger,
) {
	cfg.Log(logger)
	loadCtx, cancelLoad := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// The API is live immediately and answers 503 until the
			// background load publishes the dataset.
			go loadDataset(loadCtx, cfg.DataPath, h, logger)

			go func() {
				addr := ":" + cfg.ServerPort
				logger.Info().Str("addr", addr).Msg("server starting (data loading in background)")
				if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Fatal().Err(err).Msg("server failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("shutting down server")
			cancelLoad()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()

			if err := e.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("server shutdown failed")
				return err
			}
			logger.Info().Msg("server stopped gracefully")
			return nil
		},
	})
}

func loadDataset(ctx context.Context, path string, h *api.Handler, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(ctx, constants.LoadTimeout)
	defer cancel()

	t0 := time.Now()
	store, err := sessions.Load(ctx, path, logger)
	if err != nil {
		h.SetError(err)
		return
	}
	h.SetData(store)
	logger.Info().Dur("elapsed", time.Since(t0)).Msg("dataset ready, API is fully ready")
}
