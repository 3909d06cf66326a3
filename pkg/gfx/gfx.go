// Package gfx models the thread-affine rendering context and the opaque
// handle objects the draw server owns.
//
// Rendering itself is out of scope for the runtime core: the context and its
// handles exist so that the ownership-transfer machinery has something real
// to unbind and rebind when the draw server relocates between threads. A
// context is bound to at most one thread at a time; creating, binding, or
// deleting a handle requires the context to be bound on the calling thread.
package gfx

import (
	"errors"
	"fmt"
	"sync"
)

// Sentinel errors for context binding.
var (
	// ErrAlreadyBound is returned when binding a context that is bound on
	// some thread already.
	ErrAlreadyBound = errors.New("gfx: context already bound")

	// ErrNotBound is returned for operations that require a bound context.
	ErrNotBound = errors.New("gfx: context not bound")

	// ErrHandleDeleted is returned when using a handle after Delete.
	ErrHandleDeleted = errors.New("gfx: handle deleted")
)

// BindError wraps a bind failure with the operation and context name.
type BindError struct {
	Op      string
	Context string
	Err     error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("gfx: %s %q: %v", e.Op, e.Context, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}

// Context is an opaque rendering context. It stands in for a platform
// GL/window context: usable only while bound, and bound to at most one
// thread at any instant.
type Context struct {
	name string

	mu         sync.Mutex
	bound      bool
	nextHandle uint64
	live       map[uint64]string
}

// NewContext creates an unbound context. The name appears in diagnostics.
func NewContext(name string) *Context {
	return &Context{
		name: name,
		live: make(map[uint64]string),
	}
}

// Name returns the context's diagnostic name.
func (c *Context) Name() string {
	return c.name
}

// Bind attaches the context to the calling thread. Binding a context that
// is already bound elsewhere fails; the caller must Unbind first.
func (c *Context) Bind() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.bound {
		return &BindError{Op: "bind", Context: c.name, Err: ErrAlreadyBound}
	}
	c.bound = true
	return nil
}

// Unbind detaches the context from its thread, making it safe to move.
func (c *Context) Unbind() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.bound {
		return &BindError{Op: "unbind", Context: c.name, Err: ErrNotBound}
	}
	c.bound = false
	return nil
}

// Bound reports whether the context is currently bound to a thread.
func (c *Context) Bound() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bound
}

// HandleCount returns the number of live handles.
func (c *Context) HandleCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.live)
}

// Handle is an opaque context-owned resource (shader, texture, framebuffer,
// vertex array). Only create, bind, and delete are modeled.
type Handle struct {
	ctx  *Context
	id   uint64
	name string
}

// CreateHandle allocates a handle in the bound context. The id space is a
// counter owned by the context.
func (c *Context) CreateHandle(name string) (*Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.bound {
		return nil, &BindError{Op: "create handle", Context: c.name, Err: ErrNotBound}
	}
	c.nextHandle++
	id := c.nextHandle
	c.live[id] = name
	return &Handle{ctx: c, id: id, name: name}, nil
}

// ID returns the handle's id within its context.
func (h *Handle) ID() uint64 {
	return h.id
}

// Name returns the handle's diagnostic name.
func (h *Handle) Name() string {
	return h.name
}

// Bind makes the handle current. Requires the owning context to be bound.
func (h *Handle) Bind() error {
	h.ctx.mu.Lock()
	defer h.ctx.mu.Unlock()

	if !h.ctx.bound {
		return &BindError{Op: "bind handle", Context: h.ctx.name, Err: ErrNotBound}
	}
	if _, ok := h.ctx.live[h.id]; !ok {
		return fmt.Errorf("gfx: bind handle %q: %w", h.name, ErrHandleDeleted)
	}
	return nil
}

// Delete releases the handle. Requires the owning context to be bound.
// Deleting twice is an error.
func (h *Handle) Delete() error {
	h.ctx.mu.Lock()
	defer h.ctx.mu.Unlock()

	if !h.ctx.bound {
		return &BindError{Op: "delete handle", Context: h.ctx.name, Err: ErrNotBound}
	}
	if _, ok := h.ctx.live[h.id]; !ok {
		return fmt.Errorf("gfx: delete handle %q: %w", h.name, ErrHandleDeleted)
	}
	delete(h.ctx.live, h.id)
	return nil
}
