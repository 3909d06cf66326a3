// Package channel provides the typed point-to-point queues used for all
// cross-thread communication in the runtime.
//
// A pair consists of a Sender and a Receiver over a buffered queue. Receives
// support blocking with a timeout (used by idle workers so they do not spin)
// and a non-blocking drain (used by busy workers to preserve frame cadence).
// Either endpoint may close the pair; a closed pair still yields buffered
// values before reporting ErrClosed.
package channel

import (
	"errors"
	"sync"
	"time"
)

// Sentinel errors for channel operations.
var (
	// ErrClosed is returned when the peer endpoint has been closed. Outside
	// an orderly shutdown this means the peer thread ended unexpectedly.
	ErrClosed = errors.New("channel: closed")

	// ErrTimeout is returned by Recv when no value arrived within the wait
	// window. It is a normal idle-wakeup result, not a failure.
	ErrTimeout = errors.New("channel: receive timed out")
)

// pair is the state shared by both endpoints.
type pair[T any] struct {
	ch   chan T
	done chan struct{}
	once sync.Once
}

func (p *pair[T]) close() {
	p.once.Do(func() {
		close(p.done)
	})
}

// Sender is the sending endpoint of a pair. Safe for concurrent use.
type Sender[T any] struct {
	p *pair[T]
}

// Receiver is the receiving endpoint of a pair. Safe for concurrent use,
// though the runtime gives each receiver a single owning thread.
type Receiver[T any] struct {
	p *pair[T]
}

// New creates a connected Sender/Receiver pair with the given buffer size.
func New[T any](buffer int) (Sender[T], Receiver[T]) {
	p := &pair[T]{
		ch:   make(chan T, buffer),
		done: make(chan struct{}),
	}
	return Sender[T]{p: p}, Receiver[T]{p: p}
}

// Send enqueues a value, blocking while the buffer is full. It returns
// ErrClosed if the pair is closed before the value is accepted.
func (s Sender[T]) Send(v T) error {
	select {
	case <-s.p.done:
		return ErrClosed
	default:
	}
	select {
	case s.p.ch <- v:
		return nil
	case <-s.p.done:
		return ErrClosed
	}
}

// Close marks the pair closed. Buffered values remain receivable.
func (s Sender[T]) Close() {
	s.p.close()
}

// Recv returns the next value, waiting up to timeout for one to arrive.
// Buffered values are delivered even after close; once the pair is closed
// and empty, Recv returns ErrClosed. A timeout of 0 or below polls without
// blocking.
func (r Receiver[T]) Recv(timeout time.Duration) (T, error) {
	var zero T

	// A buffered value wins over a concurrent close.
	select {
	case v := <-r.p.ch:
		return v, nil
	default:
	}

	if timeout <= 0 {
		select {
		case v := <-r.p.ch:
			return v, nil
		case <-r.p.done:
			return zero, ErrClosed
		default:
			return zero, ErrTimeout
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case v := <-r.p.ch:
		return v, nil
	case <-r.p.done:
		// Drain a value that raced the close.
		select {
		case v := <-r.p.ch:
			return v, nil
		default:
		}
		return zero, ErrClosed
	case <-timer.C:
		return zero, ErrTimeout
	}
}

// Drain returns every value currently buffered, in FIFO order. If wait is
// positive and the buffer is empty, Drain blocks up to wait for the first
// value and then drains the rest without blocking. An empty result with a
// nil error means the wait elapsed idle; ErrClosed is reported only when
// the pair is closed and nothing remains buffered.
func (r Receiver[T]) Drain(wait time.Duration) ([]T, error) {
	var out []T

	if wait > 0 {
		v, err := r.Recv(wait)
		switch {
		case errors.Is(err, ErrTimeout):
			return nil, nil
		case err != nil:
			return nil, err
		}
		out = append(out, v)
	}

	for {
		select {
		case v := <-r.p.ch:
			out = append(out, v)
		default:
			if len(out) == 0 {
				select {
				case <-r.p.done:
					return nil, ErrClosed
				default:
				}
			}
			return out, nil
		}
	}
}

// Close marks the pair closed from the receiving side, unblocking senders.
func (r Receiver[T]) Close() {
	r.p.close()
}
