package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IshaanNene/MapGoat/internal/config"
)

type opener func(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (Store, error)

// openers maps driver names to constructors.
var openers = map[string]opener{
	DialectSQLite: func(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (Store, error) {
		path := cfg.SQLitePath
		if path == "" {
			path = config.DefaultSQLitePath()
		}
		s, err := OpenSQLite(ctx, path, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	},
	DialectPostgres: func(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (Store, error) {
		s, err := OpenPostgres(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	},
	"mongodb": func(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (Store, error) {
		s, err := OpenMongo(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	},
	"none": func(context.Context, config.StorageConfig, *slog.Logger) (Store, error) {
		return NopStore{}, nil
	},
}

// Driver resolves "auto" to the backend Open would use.
func Driver(cfg config.StorageConfig) string {
	if cfg.Driver != "auto" && cfg.Driver != "" {
		return cfg.Driver
	}
	if cfg.DatabaseURL != "" {
		return DialectPostgres
	}
	return DialectSQLite
}

func openDriver(ctx context.Context, driver string, cfg config.StorageConfig, logger *slog.Logger) (Store, error) {
	open, ok := openers[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}
	return open(ctx, cfg, logger)
}

// Open returns the store selected by cfg. When cfg.Mirror names a second
// backend, saves go to both and reads come from the primary.
func Open(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (Store, error) {
	driver := Driver(cfg)
	logger.Debug("opening result store", "driver", driver, "mirror", cfg.Mirror)

	primary, err := openDriver(ctx, driver, cfg, logger)
	if err != nil {
		return nil, err
	}
	if cfg.Mirror == "" {
		return primary, nil
	}
	if cfg.Mirror == driver || driver == "none" {
		logger.Warn("storage mirror ignored", "driver", driver, "mirror", cfg.Mirror)
		return primary, nil
	}

	mirror, err := openDriver(ctx, cfg.Mirror, cfg, logger)
	if err != nil {
		primary.Close()
		return nil, fmt.Errorf("open mirror %s: %w", cfg.Mirror, err)
	}
	return NewMultiStore([]Store{primary, mirror}, logger), nil
}
