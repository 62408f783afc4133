package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmitReachesEverySubscriber(t *testing.T) {
	b := NewAuthBus()
	assert.Equal(t, "authChange", b.Name())

	var a, c int
	b.Subscribe(func() { a++ })
	b.Subscribe(func() { c++ })
	b.Emit()
	b.Emit()

	assert.Equal(t, 2, a)
	assert.Equal(t, 2, c)
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	b := NewAuthBus()
	calls := 0
	unsub := b.Subscribe(func() { calls++ })
	other := b.Subscribe(func() {})
	unsub()
	unsub()
	b.Emit()

	assert.Equal(t, 0, calls)
	assert.Equal(t, 1, b.Subscribers())
	other()
	assert.Equal(t, 0, b.Subscribers())
}

func TestSubscriberMayUnsubscribeDuringEmit(t *testing.T) {
	b := NewAuthBus()
	calls := 0
	var unsub func()
	unsub = b.Subscribe(func() {
		calls++
		unsub()
	})
	b.Emit()
	b.Emit()
	assert.Equal(t, 1, calls)
}
