// Package dispatch provides the registry of pending one-shot callbacks used
// for timeout scheduling and cross-thread deferred triggers.
//
// A callback is registered under a fresh ID together with a cancellation
// Token. Firing an ID removes and returns the callback exactly once; a
// cancelled entry is dropped silently and never invoked. Cancellation is
// checked on pop, not on push: the list removes the entry and inspects the
// token atomically under a single lock, so a token cancelled strictly before
// the pop is observed is guaranteed never to be invoked, and either way the
// entry is removed exactly once.
package dispatch

import (
	"sync"
	"sync/atomic"
)

// ID is the unique key of one pending deferred callback.
type ID uint64

// Msg asks the controller to fire a batch of previously registered IDs.
// It is the trigger payload produced by the timer subsystem and by
// non-owning threads requesting deferred execution.
type Msg struct {
	IDs []ID
}

// Token is a shared, one-way cancellation flag. Once cancelled it never
// resets. The zero Token is not cancellable and never reads as cancelled.
type Token struct {
	cancelled *atomic.Bool
}

// NewToken creates a cancellable token.
func NewToken() Token {
	return Token{cancelled: new(atomic.Bool)}
}

// Cancel sets the flag. Safe to call from any thread, any number of times.
func (t Token) Cancel() {
	if t.cancelled != nil {
		t.cancelled.Store(true)
	}
}

// Cancelled reports whether Cancel has been called.
func (t Token) Cancelled() bool {
	return t.cancelled != nil && t.cancelled.Load()
}

type entry[T any] struct {
	callback T
	token    Token
}

// List maps IDs to pending callbacks. Safe for concurrent use; IDs are drawn
// from a counter owned by the list, never from ambient global state.
type List[T any] struct {
	mu      sync.Mutex
	next    ID
	entries map[ID]entry[T]
}

// NewList creates an empty dispatch list.
func NewList[T any]() *List[T] {
	return &List[T]{
		entries: make(map[ID]entry[T]),
	}
}

// Push registers a callback under a fresh ID and returns the ID.
func (l *List[T]) Push(callback T, token Token) ID {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.next++
	id := l.next
	l.entries[id] = entry[T]{callback: callback, token: token}
	return id
}

// Pop removes and returns the callback registered under id. It returns
// false when the id is unknown, already fired, or its token was cancelled;
// a cancelled entry is removed without being returned.
func (l *List[T]) Pop(id ID) (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var zero T
	e, ok := l.entries[id]
	if !ok {
		return zero, false
	}
	delete(l.entries, id)
	if e.token.Cancelled() {
		return zero, false
	}
	return e.callback, true
}

// PopMany pops a batch of IDs, returning the callbacks that were live, in
// argument order. Unknown and cancelled entries are skipped.
func (l *List[T]) PopMany(ids []ID) []T {
	var out []T
	for _, id := range ids {
		if cb, ok := l.Pop(id); ok {
			out = append(out, cb)
		}
	}
	return out
}

// Len returns the number of pending entries. Cancelled entries still count
// until they are observed by a pop.
func (l *List[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
