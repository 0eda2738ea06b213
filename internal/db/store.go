package db

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"candlux/internal/config"
	"candlux/internal/repository"
)

// OpenAccountStore builds the account repository selected by STORE_DRIVER.
// The returned close function releases the underlying connection.
func OpenAccountStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (repository.AccountRepository, func(context.Context) error, error) {
	switch cfg.StoreDriver {
	case config.StoreMongo:
		client, err := NewMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		repo := repository.NewMongoAccountRepository(client.Database(cfg.MongoDB))
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return nil, nil, fmt.Errorf("ensure indexes: %w", err)
		}
		log.Info("account store ready", zap.String("driver", "mongo"), zap.String("database", cfg.MongoDB))
		return repo, client.Disconnect, nil

	case config.StoreMySQL:
		gormDB, err := NewMySQL(cfg.MySQLDSN)
		if err != nil {
			return nil, nil, err
		}
		log.Info("account store ready", zap.String("driver", "mysql"))
		return repository.NewAccountRepository(gormDB), func(context.Context) error { return CloseMySQL(gormDB) }, nil

	case config.StoreMemory:
		log.Warn("account store is in memory, data is lost on restart")
		return repository.NewMemoryAccountRepository(), func(context.Context) error { return nil }, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
