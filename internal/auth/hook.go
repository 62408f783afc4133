// Package auth derives the Auth Flag of a browsing context from its session
// store and keeps it current as the store changes.
package auth

import (
	"sync"

	"ledgerlite/internal/session"
	"ledgerlite/internal/signal"
)

// StorageEvents is the source of writes made by other browsing contexts.
// *session.Context implements it.
type StorageEvents interface {
	OnStorage(fn func(session.StorageEvent)) func()
}

// Hook holds the Auth Flag for one browsing context. The flag is never
// stored: it is recomputed from the store on activation and on every
// notification.
type Hook struct {
	store  session.Store
	bus    *signal.Bus
	events StorageEvents

	// refreshMu orders store reads with the flag updates they produce.
	refreshMu sync.Mutex

	mu       sync.Mutex
	authed   bool
	active   bool
	unsubs   []func()
	onChange func(authed bool)
}

type Option func(*Hook)

// WithStorageEvents also re-reads the store when another context writes it.
func WithStorageEvents(ev StorageEvents) Option {
	return func(h *Hook) { h.events = ev }
}

// OnChange registers fn to run after the flag actually flips.
func OnChange(fn func(authed bool)) Option {
	return func(h *Hook) { h.onChange = fn }
}

func NewHook(store session.Store, bus *signal.Bus, opts ...Option) *Hook {
	h := &Hook{store: store, bus: bus}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Activate reads the store once and subscribes to the bus and to storage
// events. Calling it on an active hook is a no-op.
func (h *Hook) Activate() {
	h.refreshMu.Lock()
	h.mu.Lock()
	if h.active {
		h.mu.Unlock()
		h.refreshMu.Unlock()
		return
	}
	h.active = true
	h.authed = session.IsAuthenticated(h.store)
	h.mu.Unlock()
	h.refreshMu.Unlock()

	var unsubs []func()
	if h.bus != nil {
		unsubs = append(unsubs, h.bus.Subscribe(h.Refresh))
	}
	if h.events != nil {
		unsubs = append(unsubs, h.events.OnStorage(func(session.StorageEvent) { h.Refresh() }))
	}

	h.mu.Lock()
	h.unsubs = unsubs
	h.mu.Unlock()
}

// Deactivate drops both subscriptions. It is safe to call more than once.
func (h *Hook) Deactivate() {
	h.mu.Lock()
	unsubs := h.unsubs
	h.unsubs = nil
	h.active = false
	h.mu.Unlock()

	for _, u := range unsubs {
		u()
	}
}

// Refresh re-reads the store and updates the flag. Concurrent refreshes run
// one at a time, so the last read always wins. onChange runs before the next
// refresh starts and must not refresh this hook itself.
func (h *Hook) Refresh() {
	h.refreshMu.Lock()
	defer h.refreshMu.Unlock()

	next := session.IsAuthenticated(h.store)

	h.mu.Lock()
	changed := next != h.authed
	h.authed = next
	fn := h.onChange
	h.mu.Unlock()

	if changed && fn != nil {
		fn(next)
	}
}

// IsAuthenticated returns the current Auth Flag.
func (h *Hook) IsAuthenticated() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.authed
}

// Active reports whether the hook is subscribed.
func (h *Hook) Active() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active
}
