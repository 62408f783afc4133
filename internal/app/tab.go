// Package app composes the session store, signal bus, auth hook, navigator
// and shell of a single browsing context.
package app

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"ledgerlite/internal/auth"
	"ledgerlite/internal/routes"
	"ledgerlite/internal/session"
	"ledgerlite/internal/shell"
	"ledgerlite/internal/signal"
)

// Tab is one browsing context. It is meant to be driven from one goroutine;
// storage events from other contexts may arrive on any goroutine and are
// applied on the next call.
type Tab struct {
	ctx    *session.Context
	bus    *signal.Bus
	hook   *auth.Hook
	nav    *routes.Navigator
	logger *slog.Logger

	mu       sync.Mutex
	stale    atomic.Bool
	onChange func(authed bool)
	closed   bool
}

type Option func(*Tab)

// WithAuthChange registers fn to run whenever the Auth Flag flips. fn may
// run on another context's goroutine and must not block.
func WithAuthChange(fn func(authed bool)) Option {
	return func(t *Tab) { t.onChange = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(t *Tab) {
		if l != nil {
			t.logger = l
		}
	}
}

// Open opens a browsing context for browserID and reads the Auth Flag once.
func Open(hub *session.Hub, browserID string, opts ...Option) *Tab {
	t := &Tab{
		ctx:    hub.Open(browserID),
		bus:    signal.NewAuthBus(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.hook = auth.NewHook(t.ctx, t.bus,
		auth.WithStorageEvents(t.ctx),
		auth.OnChange(t.flagChanged),
	)
	t.hook.Activate()
	t.nav = routes.NewNavigator(t.hook.IsAuthenticated)
	return t
}

func (t *Tab) flagChanged(authed bool) {
	t.stale.Store(true)
	if t.onChange != nil {
		t.onChange(authed)
	}
}

// settle re-runs the guard on the current entry after a flip, the way a
// re-render would.
func (t *Tab) settle() error {
	if !t.stale.Swap(false) || len(t.nav.History()) == 0 {
		return nil
	}
	d, err := t.nav.Reload()
	if err != nil {
		return err
	}
	t.logger.Debug("Auth flag changed, location re-evaluated",
		"browser_id", t.ctx.BrowserID(), "route", t.nav.Location(), "decision", d.String())
	return nil
}

// Visit navigates to path and follows redirects until a page renders.
func (t *Tab) Visit(path string) (routes.Decision, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stale.Store(false)
	d, err := t.nav.Navigate(path)
	if hops := t.nav.Hops(); hops > 0 && err == nil {
		t.logger.Debug("Guard redirected navigation",
			"browser_id", t.ctx.BrowserID(), "requested", path, "route", t.nav.Location(), "hops", hops)
	}
	return d, err
}

// SignIn writes the credential and the user record, then emits the signal.
func (t *Tab) SignIn(token string, user session.UserRecord) (routes.Decision, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.ctx.Set(session.KeyToken, token); err != nil {
		return routes.Decision{}, fmt.Errorf("store token: %w", err)
	}
	if err := t.ctx.Set(session.KeyUser, user.Encode()); err != nil {
		return routes.Decision{}, fmt.Errorf("store user: %w", err)
	}
	t.bus.Emit()
	if err := t.settle(); err != nil {
		return routes.Decision{}, err
	}
	return t.nav.Current(), nil
}

// Logout clears the session and replaces the location with "/".
func (t *Tab) Logout() (routes.Decision, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, err := shell.Logout(t.ctx, t.bus, t.nav)
	t.stale.Store(false)
	return d, err
}

// Current returns the rendered decision, re-evaluated if the flag flipped.
func (t *Tab) Current() (routes.Decision, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.settle(); err != nil {
		return routes.Decision{}, err
	}
	return t.nav.Current(), nil
}

// Location returns the current history entry after applying pending changes.
func (t *Tab) Location() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.settle(); err != nil {
		t.logger.Warn("Failed to re-evaluate location", "browser_id", t.ctx.BrowserID(), "error", err)
	}
	return t.nav.Location()
}

func (t *Tab) History() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.nav.History()
}

// Frame builds the shell header for the current location.
func (t *Tab) Frame() shell.Frame {
	t.mu.Lock()
	defer t.mu.Unlock()
	return shell.Build(t.ctx, t.hook.IsAuthenticated(), t.nav.Location())
}

func (t *Tab) Authenticated() bool { return t.hook.IsAuthenticated() }

func (t *Tab) Store() session.Store { return t.ctx }

func (t *Tab) Bus() *signal.Bus { return t.bus }

func (t *Tab) BrowserID() string { return t.ctx.BrowserID() }

// Token returns the stored credential, or "" when signed out.
func (t *Tab) Token() string {
	tok, _ := t.ctx.Get(session.KeyToken)
	return tok
}

// Close deactivates the hook and detaches the context. It is idempotent.
func (t *Tab) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	t.hook.Deactivate()
	t.ctx.Close()
}
