package backend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"ledgerlite/internal/config"
	"ledgerlite/internal/session"
	"ledgerlite/internal/storage"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"memory", Config{Data: MemoryBackend, Session: MemoryBackend}, false},
		{"sqlite", Config{Data: SQLiteBackend, Session: SQLiteBackend, SQLiteDBPath: "x.db"}, false},
		{"redis data is not allowed", Config{Data: RedisBackend, Session: MemoryBackend}, true},
		{"unknown session", Config{Data: MemoryBackend, Session: "cookie"}, true},
		{"sqlite without path", Config{Data: MemoryBackend, Session: SQLiteBackend}, true},
		{"redis without address", Config{Data: MemoryBackend, Session: RedisBackend}, true},
		{"cache without ttl", Config{Data: MemoryBackend, Session: MemoryBackend, CacheSize: 10}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil, "i1"); err == nil {
		t.Error("nil config should fail")
	}
	cfg, err := FromAppConfig(&config.Config{
		DataBackend:         "sqlite",
		SessionBackend:      "sqlite",
		SQLiteDBPath:        "data/x.db",
		AMQPSessionExchange: "sessions",
	}, "i1")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Data != SQLiteBackend || cfg.Session != SQLiteBackend || cfg.InstanceID != "i1" || cfg.AMQPSessionExchange != "sessions" {
		t.Errorf("unexpected %+v", cfg)
	}
}

func TestCreateMemory(t *testing.T) {
	res, err := NewFactory(nil).Create(context.Background(), Config{Data: MemoryBackend, Session: MemoryBackend})
	if err != nil {
		t.Fatal(err)
	}
	defer res.Cleanup()

	if _, ok := res.Sessions.(*session.MemoryBackend); !ok {
		t.Errorf("Sessions = %T", res.Sessions)
	}
	if res.Broker != nil || res.Caches != nil {
		t.Error("no broker or cache expected")
	}
	if err := res.Data.Ping(context.Background()); err != nil {
		t.Error(err)
	}
}

func TestCreateSQLiteWithCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledgerlite.db")
	res, err := NewFactory(nil).Create(context.Background(), Config{
		Data:         SQLiteBackend,
		Session:      SQLiteBackend,
		SQLiteDBPath: path,
		CacheSize:    16,
		CacheTTL:     time.Minute,
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := res.Data.(*storage.SQLiteRepository); !ok {
		t.Errorf("Data = %T", res.Data)
	}
	if _, ok := res.Sessions.(*session.CachedBackend); !ok {
		t.Errorf("Sessions = %T, want cached", res.Sessions)
	}

	hub := session.NewHub(res.Sessions)
	tab := hub.Open("b1")
	if err := tab.Set(session.KeyToken, "t"); err != nil {
		t.Fatal(err)
	}
	if v, ok := tab.Get(session.KeyToken); !ok || v != "t" {
		t.Errorf("Get() = %q, %v", v, ok)
	}

	if err := res.Cleanup(); err != nil {
		t.Errorf("Cleanup() error = %v", err)
	}
}
