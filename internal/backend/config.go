package backend

import (
	"fmt"

	"ledgerlite/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config, instanceID string) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	cfg := Config{
		Data:    BackendType(appConfig.DataBackend),
		Session: BackendType(appConfig.SessionBackend),

		SQLiteDBPath: appConfig.SQLiteDBPath,

		RedisAddr:     appConfig.RedisAddr,
		RedisPassword: appConfig.RedisPassword,

		CacheSize: appConfig.SessionCacheSize,
		CacheTTL:  appConfig.SessionCacheTTL,

		AMQPURL:             appConfig.AMQPURL,
		AMQPExchange:        appConfig.AMQPExchange,
		AMQPQueue:           appConfig.AMQPQueue,
		AMQPSessionExchange: appConfig.AMQPSessionExchange,
		InstanceID:          instanceID,
	}
	return cfg, cfg.Validate()
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Data.ValidData() {
		return fmt.Errorf("invalid data backend: %s", c.Data)
	}
	if !c.Session.ValidSession() {
		return fmt.Errorf("invalid session backend: %s", c.Session)
	}
	if (c.Data == SQLiteBackend || c.Session == SQLiteBackend) && c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required for sqlite backend")
	}
	if c.Session == RedisBackend && c.RedisAddr == "" {
		return fmt.Errorf("redis address is required for redis session backend")
	}
	if c.CacheSize > 0 && c.CacheTTL <= 0 {
		return fmt.Errorf("session cache TTL must be positive")
	}
	return nil
}
