package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const defaultBackendTimeout = 3 * time.Second

// Hub hands out browsing contexts over a shared Backend and routes storage
// events between contexts of the same browser, locally and, through the
// optional Publisher, across instances.
type Hub struct {
	backend   Backend
	publisher Publisher
	timeout   time.Duration
	logger    *slog.Logger

	mu       sync.Mutex
	contexts map[string]map[uint64]*Context
	nextID   uint64
}

type Option func(*Hub)

// WithPublisher forwards every local write to other instances.
func WithPublisher(p Publisher) Option {
	return func(h *Hub) { h.publisher = p }
}

// WithTimeout bounds each backend call.
func WithTimeout(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.timeout = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}

func NewHub(backend Backend, opts ...Option) *Hub {
	h := &Hub{
		backend:  backend,
		timeout:  defaultBackendTimeout,
		logger:   slog.Default(),
		contexts: make(map[string]map[uint64]*Context),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// SetPublisher installs the cross-instance publisher after construction.
func (h *Hub) SetPublisher(p Publisher) {
	h.mu.Lock()
	h.publisher = p
	h.mu.Unlock()
}

// Open registers a new browsing context for browserID.
func (h *Hub) Open(browserID string) *Context {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	c := &Context{
		hub:       h,
		browserID: browserID,
		id:        h.nextID,
		listeners: make(map[uint64]func(StorageEvent)),
	}
	if h.contexts[browserID] == nil {
		h.contexts[browserID] = make(map[uint64]*Context)
	}
	h.contexts[browserID][c.id] = c
	return c
}

// openContexts returns how many contexts are open for browserID.
func (h *Hub) openContexts(browserID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.contexts[browserID])
}

// NotifyExternal delivers a change made outside this process to every open
// context of browserID.
func (h *Hub) NotifyExternal(browserID, key string) {
	if inv, ok := h.backend.(Invalidator); ok {
		inv.Invalidate(browserID)
	}
	h.dispatch(browserID, 0, StorageEvent{Key: key})
}

func (h *Hub) close(c *Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.contexts[c.browserID]; ok {
		delete(set, c.id)
		if len(set) == 0 {
			delete(h.contexts, c.browserID)
		}
	}
}

// dispatch runs listeners outside of any lock so they may read the store.
func (h *Hub) dispatch(browserID string, except uint64, ev StorageEvent) {
	h.mu.Lock()
	targets := make([]*Context, 0, len(h.contexts[browserID]))
	for id, c := range h.contexts[browserID] {
		if id != except {
			targets = append(targets, c)
		}
	}
	h.mu.Unlock()

	for _, c := range targets {
		for _, fn := range c.snapshotListeners() {
			fn(ev)
		}
	}
}

func (h *Hub) afterWrite(c *Context, key string) {
	h.dispatch(c.browserID, c.id, StorageEvent{Key: key})

	h.mu.Lock()
	pub := h.publisher
	h.mu.Unlock()
	if pub == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()
	if err := pub.PublishSessionChanged(ctx, c.browserID, key); err != nil {
		h.logger.Warn("Failed to publish session change", "browser_id", c.browserID, "key", key, "error", err)
	}
}

// Context is one browsing context (a tab) bound to a browser's store.
// It is a Store and the source of storage events written by other contexts.
type Context struct {
	hub       *Hub
	browserID string
	id        uint64

	mu           sync.Mutex
	listeners    map[uint64]func(StorageEvent)
	nextListener uint64
	closed       bool
}

var _ Store = (*Context)(nil)

func (c *Context) BrowserID() string { return c.browserID }

func (c *Context) Get(key string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), c.hub.timeout)
	defer cancel()
	v, ok, err := c.hub.backend.Load(ctx, c.browserID, key)
	if err != nil {
		c.hub.logger.Warn("Session read failed, treating value as absent", "browser_id", c.browserID, "key", key, "error", err)
		return "", false
	}
	return v, ok
}

func (c *Context) Set(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.hub.timeout)
	defer cancel()
	if err := c.hub.backend.Save(ctx, c.browserID, key, value); err != nil {
		return err
	}
	c.hub.afterWrite(c, key)
	return nil
}

func (c *Context) Remove(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.hub.timeout)
	defer cancel()
	if err := c.hub.backend.Delete(ctx, c.browserID, key); err != nil {
		return err
	}
	c.hub.afterWrite(c, key)
	return nil
}

// Clear drops every key of the browser.
func (c *Context) Clear() error {
	ctx, cancel := context.WithTimeout(context.Background(), c.hub.timeout)
	defer cancel()
	if err := c.hub.backend.Clear(ctx, c.browserID); err != nil {
		return err
	}
	c.hub.afterWrite(c, "")
	return nil
}

// OnStorage subscribes fn to writes made by other contexts. The returned
// function unsubscribes and may be called more than once.
func (c *Context) OnStorage(fn func(StorageEvent)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return func() {}
	}
	c.nextListener++
	id := c.nextListener
	c.listeners[id] = fn
	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

func (c *Context) listenerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.listeners)
}

func (c *Context) snapshotListeners() []func(StorageEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]func(StorageEvent), 0, len(c.listeners))
	for _, fn := range c.listeners {
		out = append(out, fn)
	}
	return out
}

// Close detaches the context from the hub and drops its listeners.
func (c *Context) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.listeners = map[uint64]func(StorageEvent){}
	c.mu.Unlock()
	c.hub.close(c)
}
