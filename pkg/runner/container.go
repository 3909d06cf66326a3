// Package runner provides the execution contexts that host servers: the
// container holding at most one server per kind, the frequency-paced runner
// loop, and the worker-thread runner with its controller-side handle.
//
// Across the whole process a given server kind lives in exactly one
// container at any instant. Relocation happens only through checked
// take-then-emplace; a duplicate emplace means executor-internal
// coordination corruption and is fatal.
package runner

import (
	"errors"
	"fmt"

	"github.com/strand-rt/strand/pkg/server"
)

// ErrServerAbsent is returned by checked takes when the requested kind is
// not present. It is a normal result for well-formed callers, not a fault.
var ErrServerAbsent = errors.New("runner: server not present in container")

// Container owns zero or one server of each kind, local to one thread.
// It is not safe for concurrent use; only the owning thread touches it.
type Container struct {
	servers [server.NumKinds]server.Server
}

// RunSingle runs every present server exactly once. Servers are granted
// blocking permission only when the caller allows it and the container
// holds exactly one server, so co-resident servers are never starved by
// one blocking call.
func (c *Container) RunSingle(canBlock bool, frequency float64) error {
	resident := 0
	for _, s := range c.servers {
		if s != nil {
			resident++
		}
	}
	block := canBlock && resident <= 1

	for _, s := range c.servers {
		if s == nil {
			continue
		}
		if err := s.Run(block, frequency); err != nil {
			return fmt.Errorf("runner: run %s server: %w", s.Kind(), err)
		}
	}
	return nil
}

// DoesRun reports whether any server is present. It drives the owner's
// choice between busy-polling and idle-waiting on its control channel.
func (c *Container) DoesRun() bool {
	for _, s := range c.servers {
		if s != nil {
			return true
		}
	}
	return false
}

// Has reports whether a server of the given kind is present.
func (c *Container) Has(kind server.Kind) bool {
	return c.servers[kind] != nil
}

// Server returns the resident server of the given kind, or nil.
func (c *Container) Server(kind server.Kind) server.Server {
	return c.servers[kind]
}

// Kinds returns the kinds currently present, in kind order.
func (c *Container) Kinds() []server.Kind {
	var out []server.Kind
	for k, s := range c.servers {
		if s != nil {
			out = append(out, server.Kind(k))
		}
	}
	return out
}

// Take removes and returns the server of the given kind in transferable
// form. The second return is false when the kind is not present. If the
// server's context cannot be detached, the server stays in the container
// and the error is returned.
func (c *Container) Take(kind server.Kind) (server.Transferable, bool, error) {
	s := c.servers[kind]
	if s == nil {
		return server.Transferable{}, false, nil
	}
	tr, err := s.ToTransferable()
	if err != nil {
		return server.Transferable{}, false, fmt.Errorf("runner: take %s server: %w", kind, err)
	}
	c.servers[kind] = nil
	return tr, true, nil
}

// TakeChecked is Take, but an absent kind is reported as ErrServerAbsent.
func (c *Container) TakeChecked(kind server.Kind) (server.Transferable, error) {
	tr, ok, err := c.Take(kind)
	if err != nil {
		return server.Transferable{}, err
	}
	if !ok {
		return server.Transferable{}, fmt.Errorf("%w: %s", ErrServerAbsent, kind)
	}
	return tr, nil
}

// Emplace inserts a transferred server, converting it back to thread-affine
// form on the calling thread.
func (c *Container) Emplace(t server.Transferable) error {
	s, err := t.IntoServer()
	if err != nil {
		return fmt.Errorf("runner: emplace %s server: %w", t.Kind(), err)
	}
	c.servers[s.Kind()] = s
	return nil
}

// EmplaceChecked is Emplace, but panics if the kind is already present:
// a duplicate means the single-owner invariant was broken upstream and the
// scheduling state cannot be trusted.
func (c *Container) EmplaceChecked(t server.Transferable) error {
	if c.servers[t.Kind()] != nil {
		panic(fmt.Sprintf("runner: invalid state: %s server already present before emplacement", t.Kind()))
	}
	return c.Emplace(t)
}
