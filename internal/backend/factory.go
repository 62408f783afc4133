package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ledgerlite/internal/adapters"
	"ledgerlite/internal/amqp"
	"ledgerlite/internal/cache"
	"ledgerlite/internal/memory"
	"ledgerlite/internal/session"
	"ledgerlite/internal/storage"
)

const cacheSweepInterval = time.Minute

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// Create opens the data store, the session backend and the optional broker.
// On error every resource opened so far is released.
func (f *DefaultFactory) Create(ctx context.Context, config Config) (res *Result, err error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var closers []func() error
	defer func() {
		if err != nil {
			runClosers(closers)
		}
	}()

	res = &Result{}

	var sqliteRepo *storage.SQLiteRepository
	if config.Data == SQLiteBackend || config.Session == SQLiteBackend {
		sqliteRepo, err = storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		closers = append(closers, sqliteRepo.Close)
		f.logger.Info("Initialized SQLite repository", "db_path", config.SQLiteDBPath)
	}

	switch config.Data {
	case SQLiteBackend:
		res.Data = sqliteRepo
	case MemoryBackend:
		res.Data = memory.NewRepository()
		f.logger.Warn("Using in-memory data backend, accounts and expenses are lost on restart")
	}

	switch config.Session {
	case SQLiteBackend:
		res.Sessions = adapters.NewSQLiteSessionAdapter(sqliteRepo)
	case RedisBackend:
		client, err := session.NewRedisClient(config.RedisAddr, config.RedisPassword)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		rb := session.NewRedisBackend(client)
		closers = append(closers, rb.Close)
		res.Sessions = rb
		f.logger.Info("Initialized redis session backend", "addr", config.RedisAddr)
	case MemoryBackend:
		res.Sessions = session.NewMemoryBackend()
	}

	if config.CacheSize > 0 && config.Session != MemoryBackend {
		cached := session.NewCachedBackend(res.Sessions, config.CacheSize, config.CacheTTL)
		res.Sessions = cached
		res.Caches = cache.NewManager()
		res.Caches.Register("sessions", cached.Cleaner())
		res.Caches.StartCleanup(cacheSweepInterval)
		closers = append(closers, func() error { res.Caches.Stop(); return nil })
		f.logger.Info("Enabled session read cache", "max_entries", config.CacheSize, "ttl", config.CacheTTL)
	}

	if config.AMQPURL != "" {
		var opts []amqp.Option
		if config.AMQPSessionExchange != "" {
			opts = append(opts, amqp.WithSessionExchange(config.AMQPSessionExchange, config.InstanceID))
		}
		client, aerr := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, opts...)
		if aerr != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without sync", "error", aerr)
		} else {
			res.Broker = client
			closers = append(closers, client.Close)
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue,
				"session_exchange", config.AMQPSessionExchange)
		}
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	f.logger.Info("Backends ready",
		"data", config.Data,
		"session", config.Session,
		"amqp_enabled", res.Broker != nil)

	res.Cleanup = func() error {
		return runClosers(closers)
	}
	return res, nil
}

// runClosers releases resources in reverse order of acquisition.
func runClosers(closers []func() error) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
