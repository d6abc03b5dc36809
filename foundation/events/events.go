// Package events allows for the registering and receiving of events. Each
// subscriber is identified by a unique id and gets its own buffered channel.
package events

import (
	"fmt"
	"sync"
)

// messageBuffer is the size of each subscriber channel. A message is dropped
// for a subscriber that is not ready to receive, so the buffer gives slow
// receivers such as websocket writers room to catch up.
const messageBuffer = 100

// Events maintains a mapping of unique id and channels so goroutines
// can register and receive events of type T.
type Events[T any] struct {
	m  map[string]chan T
	mu sync.RWMutex
}

// New constructs an events value for registering and receiving events.
func New[T any]() *Events[T] {
	return &Events[T]{
		m: make(map[string]chan T),
	}
}

// Shutdown closes and removes all channels that were provided by
// the call to Acquire.
func (evt *Events[T]) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for id, ch := range evt.m {
		delete(evt.m, id)
		close(ch)
	}
}

// Acquire takes a unique id and returns a channel that can be used
// to receive events.
func (evt *Events[T]) Acquire(id string) <-chan T {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	ch, exists := evt.m[id]
	if exists {
		return ch
	}

	ch = make(chan T, messageBuffer)
	evt.m[id] = ch

	return ch
}

// Release closes and removes the channel that was provided by
// the call to Acquire.
func (evt *Events[T]) Release(id string) error {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	ch, exists := evt.m[id]
	if !exists {
		return fmt.Errorf("id %q does not exist", id)
	}

	delete(evt.m, id)
	close(ch)

	return nil
}

// Len returns the number of registered subscribers.
func (evt *Events[T]) Len() int {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	return len(evt.m)
}

// Send signals a message to every registered channel. Send will not block
// waiting for a receiver on any given channel.
func (evt *Events[T]) Send(v T) {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	for _, ch := range evt.m {
		select {
		case ch <- v:
		default:
		}
	}
}
