package bootstrap

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/0x3a/crits/config"
	"github.com/0x3a/crits/core"
	"github.com/0x3a/crits/storage"

	"go.uber.org/zap"
)

// StorageComponents holds the opened storage backend and its cache
type StorageComponents struct {
	SQLite  *storage.SQLite
	MongoDB *storage.MongoDB
	Redis   *core.RedisCache
	// Store is the backend the service uses, cache decorator included
	Store storage.Store
}

// Close releases the backend and the shared cache
func (s *StorageComponents) Close() error {
	var firstErr error
	if s.Store != nil {
		if err := s.Store.Close(); err != nil {
			firstErr = err
		}
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// InitStorage opens the configured backend and wraps it with the configured
// indicator cache
func InitStorage(ctx context.Context, cfg *config.Config, sugar *zap.SugaredLogger) (*StorageComponents, error) {
	components := &StorageComponents{}

	switch cfg.Storage.Backend {
	case config.BackendMongoDB:
		mongoDB, err := InitMongoDB(cfg, sugar)
		if err != nil {
			return nil, err
		}
		store := storage.NewMongoStore(mongoDB, cfg.Storage.Timeout, sugar)
		indexCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := store.EnsureIndexes(indexCtx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to create MongoDB indexes: %w", err)
		}
		components.MongoDB = mongoDB
		components.Store = store

	case config.BackendSQLite, "":
		sqlite, err := InitSQLite(cfg.GetSQLitePath(), sugar)
		if err != nil {
			return nil, err
		}
		components.SQLite = sqlite
		components.Store = storage.NewSQLiteStore(sqlite, sugar)

	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Storage.Backend)
	}

	if err := initCache(ctx, cfg, components, sugar); err != nil {
		_ = components.Close()
		return nil, err
	}
	return components, nil
}

// InitMongoDB connects to MongoDB with retry logic
func InitMongoDB(cfg *config.Config, sugar *zap.SugaredLogger) (*storage.MongoDB, error) {
	const maxRetries = 3
	retryDelays := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}

	var mongoDB *storage.MongoDB
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			sugar.Infow("Retrying MongoDB connection",
				"attempt", attempt,
				"max_retries", maxRetries,
				"delay", retryDelays[attempt-1])
			time.Sleep(retryDelays[attempt-1])
		}

		mongoDB, lastErr = storage.NewMongoDB(cfg.MongoDB.URI, cfg.MongoDB.Database, cfg.MongoDB.MaxPoolSize, sugar)
		if lastErr == nil {
			break
		}

		sugar.Warnw("MongoDB connection attempt failed",
			"attempt", attempt+1,
			"error", lastErr)
	}

	if lastErr != nil {
		printFatal("MongoDB Connection Failed", ClassifyConnectionError(lastErr, "MongoDB", mongoHost(cfg.MongoDB.URI)))
		return nil, fmt.Errorf("failed to connect to MongoDB after %d attempts: %w", maxRetries+1, lastErr)
	}
	return mongoDB, nil
}

// mongoHost returns the host part of a MongoDB URI, leaving out credentials
func mongoHost(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.Host == "" {
		return "the configured URI"
	}
	return u.Host
}

// InitSQLite opens the SQLite database
func InitSQLite(path string, sugar *zap.SugaredLogger) (*storage.SQLite, error) {
	sqlite, err := storage.NewSQLite(path, sugar)
	if err != nil {
		printFatal("SQLite Initialization Failed", ClassifySQLiteError(err, path))
		return nil, fmt.Errorf("failed to initialize SQLite: %w", err)
	}

	sugar.Info("SQLite initialized successfully")
	return sqlite, nil
}

// initCache decorates components.Store with the configured indicator cache
func initCache(ctx context.Context, cfg *config.Config, components *StorageComponents, sugar *zap.SugaredLogger) error {
	switch cfg.Cache.Backend {
	case config.CacheNone, "":
		sugar.Info("Indicator cache disabled")

	case config.CacheLRU:
		components.Store = storage.NewCachedStore(components.Store, storage.NewLRUIndicatorCache(cfg.Cache.Size, cfg.Cache.TTL))
		sugar.Infow("Indicator cache enabled", "backend", "lru", "size", cfg.Cache.Size, "ttl", cfg.Cache.TTL)

	case config.CacheRedis:
		redis := core.NewRedisCache(cfg.Cache.Redis.Addr, cfg.Cache.Redis.Password, cfg.Cache.Redis.DB, cfg.Cache.Redis.PoolSize, sugar)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := redis.Ping(pingCtx); err != nil {
			_ = redis.Close()
			printFatal("Redis Connection Failed", ClassifyConnectionError(err, "Redis", cfg.Cache.Redis.Addr))
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		components.Redis = redis
		components.Store = storage.NewCachedStore(components.Store, storage.NewRedisIndicatorCache(redis, cfg.Cache.TTL, sugar))
		sugar.Infow("Indicator cache enabled", "backend", "redis", "addr", cfg.Cache.Redis.Addr, "ttl", cfg.Cache.TTL)

	default:
		return fmt.Errorf("unsupported cache backend: %s", cfg.Cache.Backend)
	}
	return nil
}
