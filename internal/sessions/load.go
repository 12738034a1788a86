package sessions

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"gamedash/internal/engine"

	"github.com/rs/zerolog"
)

// Load reads the dataset from a .csv or .parquet file.
func Load(ctx context.Context, path string, logger zerolog.Logger) (*engine.ColumnStore, error) {
	start := time.Now()
	logger.Info().Str("path", path).Msg("loading dataset")

	var (
		store *engine.ColumnStore
		err   error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		store, err = ReadParquet(path)
	default:
		store, err = engine.LoadCSV(ctx, path, Schema)
	}
	if err != nil {
		logger.Error().Err(err).Str("path", path).Msg("dataset load failed")
		return nil, err
	}

	logger.Info().
		Str("path", path).
		Int("rows", store.Len()).
		Dur("elapsed", time.Since(start)).
		Msg("dataset loaded")
	return store, nil
}
