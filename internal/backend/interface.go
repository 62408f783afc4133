package backend

import (
	"context"
	"time"

	"ledgerlite/internal/amqp"
	"ledgerlite/internal/cache"
	"ledgerlite/internal/ports"
	"ledgerlite/internal/session"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result bundles everything the server needs from its infrastructure.
type Result struct {
	// Data holds users and expenses.
	Data ports.Repository
	// Sessions is the durable map behind the session hub.
	Sessions session.Backend
	// Broker is nil when AMQP is not configured or unreachable.
	Broker *amqp.Client
	// Caches owns the session read cache, if any.
	Caches  *cache.Manager
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	Create(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Data    BackendType
	Session BackendType

	// SQLite specific
	SQLiteDBPath string

	// Redis specific
	RedisAddr     string
	RedisPassword string

	// Session read cache, disabled when CacheSize is 0
	CacheSize int
	CacheTTL  time.Duration

	// AMQP, optional
	AMQPURL             string
	AMQPExchange        string
	AMQPQueue           string
	AMQPSessionExchange string
	InstanceID          string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
	RedisBackend  BackendType = "redis"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// ValidData reports whether bt can hold users and expenses.
func (bt BackendType) ValidData() bool {
	return bt == SQLiteBackend || bt == MemoryBackend
}

// ValidSession reports whether bt can hold session values.
func (bt BackendType) ValidSession() bool {
	return bt == SQLiteBackend || bt == MemoryBackend || bt == RedisBackend
}
