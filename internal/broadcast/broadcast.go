// Package broadcast holds a latest value and hands it to one-shot subscribers.
//
// A Broadcaster has a single writer and any number of readers. Subscribers
// registered after a value exists are called immediately with it; subscribers
// registered before are queued and called once on the next Publish.
package broadcast

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
)

// Broadcaster is a named latest-value slot with one-shot subscribers.
type Broadcaster[T any] struct {
	name string

	mu      sync.Mutex
	latest  T
	has     bool
	waiters []func(T)
}

// New creates an empty Broadcaster. name identifies the event in logs.
func New[T any](name string) *Broadcaster[T] {
	return &Broadcaster[T]{name: name}
}

// Name returns the event name.
func (b *Broadcaster[T]) Name() string { return b.name }

// Publish stores v as the latest value and notifies queued subscribers.
// Subscribers run on the caller's goroutine, outside the lock. It returns
// the number of subscribers notified.
func (b *Broadcaster[T]) Publish(v T) int {
	b.mu.Lock()
	b.latest = v
	b.has = true
	waiters := b.waiters
	b.waiters = nil
	b.mu.Unlock()

	for _, fn := range waiters {
		fn(v)
	}
	return len(waiters)
}

// Latest returns the most recently published value.
func (b *Broadcaster[T]) Latest() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.latest, b.has
}

// Subscribe calls fn exactly once: now, if a value has been published,
// otherwise on the next Publish.
func (b *Broadcaster[T]) Subscribe(fn func(T)) {
	b.mu.Lock()
	if b.has {
		v := b.latest
		b.mu.Unlock()
		fn(v)
		return
	}
	b.waiters = append(b.waiters, fn)
	b.mu.Unlock()
}

// Wait blocks until a value is available or ctx is done.
func (b *Broadcaster[T]) Wait(ctx context.Context) (T, error) {
	ch := make(chan T, 1)
	b.Subscribe(func(v T) { ch <- v })

	select {
	case v := <-ch:
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, eris.Wrapf(ctx.Err(), "broadcast: wait for %s", b.name)
	}
}
