package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/deusflow/costanews/internal/config"
	"github.com/deusflow/costanews/internal/storage"
)

// OpenStore opens the published-set backend selected by STORE_BACKEND.
func OpenStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (storage.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		s, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		log.Info("using postgres published set")
		return s, nil
	case config.BackendRedis:
		s, err := storage.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("open redis store: %w", err)
		}
		log.Info("using redis published set", "key", storage.DefaultRedisKey)
		return s, nil
	case config.BackendFile, "":
		log.Info("using file published set", "path", cfg.StorePath)
		return storage.NewFileStore(cfg.StorePath, log), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
