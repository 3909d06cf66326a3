package server

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/strand-rt/strand/pkg/channel"
	"github.com/strand-rt/strand/pkg/gfx"
)

// ExecuteRequest is a type-erased closure to run on the draw server's
// thread. Return, when set, is invoked on that thread with the result; the
// synchronous call path points it at a reply channel, the deferred path at
// an event-proxy trigger.
type ExecuteRequest struct {
	Fn     func(*Draw) any
	Return func(result any)
}

// DrawChannel is the controller-side endpoint for sending work to the draw
// server, wherever it currently runs.
type DrawChannel struct {
	tx channel.Sender[ExecuteRequest]
}

// Execute queues fn to run on the draw server's thread.
func (c DrawChannel) Execute(fn func(*Draw) any, ret func(result any)) error {
	return c.tx.Send(ExecuteRequest{Fn: fn, Return: ret})
}

// Draw renders frames. It is thread-affine: it owns a rendering context
// bound to its current thread, so relocation requires unbinding the context
// and rebinding it on the destination.
type Draw struct {
	logger *slog.Logger
	ctx    *gfx.Context
	rx     channel.Receiver[ExecuteRequest]

	frames atomic.Uint64
}

// NewDraw creates a draw server bound to ctx on the calling thread, and the
// controller-side channel for cross-thread calls into it.
func NewDraw(logger *slog.Logger, ctx *gfx.Context) (*Draw, DrawChannel, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := ctx.Bind(); err != nil {
		return nil, DrawChannel{}, fmt.Errorf("server: bind draw context: %w", err)
	}
	tx, rx := channel.New[ExecuteRequest](requestBuffer)
	d := &Draw{
		logger: logger.With("server", KindDraw.String(), "context", ctx.Name()),
		ctx:    ctx,
		rx:     rx,
	}
	return d, DrawChannel{tx: tx}, nil
}

// Kind returns KindDraw.
func (d *Draw) Kind() Kind {
	return KindDraw
}

// Run executes queued cross-thread requests, then renders one frame. With
// blocking permitted the request drain doubles as the frame wait (the
// stand-in for a vsync block), bounded by the frame budget; otherwise it
// never blocks, so a co-resident server is not starved.
func (d *Draw) Run(canBlock bool, frequency float64) error {
	var wait time.Duration
	if canBlock {
		wait = idleWait
		if frequency > 0 {
			if budget := time.Duration(float64(time.Second) / frequency); budget < wait {
				wait = budget
			}
		}
	}

	reqs, err := d.rx.Drain(wait)
	if err != nil {
		d.logger.Debug("execute channel closed", "error", err)
	}
	for _, req := range reqs {
		result := req.Fn(d)
		if req.Return != nil {
			req.Return(result)
		}
	}

	if !d.ctx.Bound() {
		return fmt.Errorf("server: draw ran with unbound context %q: %w", d.ctx.Name(), gfx.ErrNotBound)
	}
	d.frames.Add(1)
	return nil
}

// ToTransferable unbinds the rendering context so the server may cross
// threads. Take fails if the context cannot be detached.
func (d *Draw) ToTransferable() (Transferable, error) {
	if err := d.ctx.Unbind(); err != nil {
		return Transferable{}, fmt.Errorf("server: detach draw context: %w", err)
	}
	return Transferable{kind: KindDraw, draw: d}, nil
}

// Context returns the server's rendering context.
func (d *Draw) Context() *gfx.Context {
	return d.ctx
}

// Frames returns how many frames the server has rendered.
func (d *Draw) Frames() uint64 {
	return d.frames.Load()
}
