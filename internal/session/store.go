// Package session implements the per-browser durable key/value store that
// holds the credential ("token") and display record ("user") of a signed-in
// user, and the storage-change notifications exchanged between browsing
// contexts that share it.
package session

import (
	"context"
	"encoding/json"
)

// Well-known keys.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

// Store is the view of the session a single browsing context works with.
// Reads never fail: an unreadable value is reported as absent.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Remove(key string) error
}

// Backend is the durable map shared by every browsing context of a browser.
type Backend interface {
	Load(ctx context.Context, browserID, key string) (string, bool, error)
	Save(ctx context.Context, browserID, key, value string) error
	Delete(ctx context.Context, browserID, key string) error
	Clear(ctx context.Context, browserID string) error
}

// Invalidator is implemented by backends that keep a read cache.
type Invalidator interface {
	Invalidate(browserID string)
}

// Publisher forwards local writes to other server instances.
type Publisher interface {
	PublishSessionChanged(ctx context.Context, browserID, key string) error
}

// StorageEvent reports that another context changed the store.
// Key is empty when the whole store was cleared.
type StorageEvent struct {
	Key string
}

// UserRecord is the JSON document stored under KeyUser.
type UserRecord struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// Encode serializes the record for storage under KeyUser.
func (u UserRecord) Encode() string {
	b, err := json.Marshal(u)
	if err != nil {
		return ""
	}
	return string(b)
}

// IsAuthenticated reports whether the store holds a usable token.
// An empty token counts as no token.
func IsAuthenticated(s Store) bool {
	tok, ok := s.Get(KeyToken)
	return ok && tok != ""
}
