// Package signal provides the in-process "session changed" notification.
//
// Signals carry no payload: subscribers re-read the session store themselves.
// Emit is synchronous, so every subscriber has run when it returns.
package signal

import "sync"

// AuthChange is the name of the signal emitted after a session write.
const AuthChange = "authChange"

// Bus is a named, payload-less publish/subscribe channel.
type Bus struct {
	name string

	mu     sync.Mutex
	subs   map[uint64]func()
	nextID uint64
}

func NewBus(name string) *Bus {
	return &Bus{name: name, subs: make(map[uint64]func())}
}

// NewAuthBus returns a Bus named AuthChange.
func NewAuthBus() *Bus {
	return NewBus(AuthChange)
}

func (b *Bus) Name() string { return b.name }

// Subscribe registers fn and returns an idempotent unsubscribe function.
func (b *Bus) Subscribe(fn func()) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs[id] = fn
	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Emit calls every subscriber in turn. Subscribers may unsubscribe or emit
// again from inside the callback.
func (b *Bus) Emit() {
	b.mu.Lock()
	fns := make([]func(), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Subscribers returns the number of live subscriptions.
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
