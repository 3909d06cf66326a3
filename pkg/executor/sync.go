package executor

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/strand-rt/strand/pkg/channel"
	"github.com/strand-rt/strand/pkg/server"
)

var (
	// ErrSyncCallTimeout is returned when a cross-thread synchronous call
	// does not produce a result within the configured timeout.
	ErrSyncCallTimeout = errors.New("executor: synchronous call timed out")

	// ErrTypeMismatch is returned when the type-erased result of a
	// synchronous call cannot be converted to the requested type.
	ErrTypeMismatch = errors.New("executor: unexpected result type from synchronous call")
)

// ExecuteDrawSync runs fn against the draw server and blocks until its
// result is available. When the main runner currently hosts the draw
// server the call executes in place with no channel round trip; otherwise
// fn is shipped over the draw channel and the call blocks on a reply
// channel, bounded by the configured sync-call timeout.
//
// The result is type erased. Use DrawSync for a typed call site.
func (e *Executor) ExecuteDrawSync(ch server.DrawChannel, fn func(*server.Draw) any) (any, error) {
	_, span := e.tracer.Start(context.Background(), "executor.execute_draw_sync")
	defer span.End()

	if e.stopped {
		return nil, ErrStopped
	}

	if s := e.Main.Base.Container.Server(server.KindDraw); s != nil {
		span.SetAttributes(attribute.Bool("in_place", true))
		e.met.RecordSyncCall("ok")
		return fn(s.(*server.Draw)), nil
	}
	span.SetAttributes(attribute.Bool("in_place", false))

	replyTx, replyRx := channel.New[any](1)
	err := ch.Execute(fn, func(result any) {
		replyTx.Send(result)
	})
	if err != nil {
		e.met.RecordSyncCall("error")
		return nil, e.failSpan(span, fmt.Errorf("executor: unable to queue synchronous call: %w", err))
	}

	result, err := replyRx.Recv(e.syncTimeout)
	if errors.Is(err, channel.ErrTimeout) {
		e.met.RecordSyncCall("timeout")
		return nil, e.failSpan(span, ErrSyncCallTimeout)
	}
	if err != nil {
		e.met.RecordSyncCall("error")
		return nil, e.failSpan(span, fmt.Errorf("executor: synchronous call reply lost: %w", err))
	}
	e.met.RecordSyncCall("ok")
	return result, nil
}

func (e *Executor) failSpan(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// DrawSync is the typed form of Executor.ExecuteDrawSync: the closure
// travels type erased and the result is downcast at the call site,
// returning ErrTypeMismatch when the closure produced something else.
func DrawSync[R any](e *Executor, ch server.DrawChannel, fn func(*server.Draw) any) (R, error) {
	var zero R
	result, err := e.ExecuteDrawSync(ch, fn)
	if err != nil {
		return zero, err
	}
	typed, ok := result.(R)
	if !ok {
		e.met.RecordSyncCall("type_mismatch")
		return zero, fmt.Errorf("%w: got %T", ErrTypeMismatch, result)
	}
	return typed, nil
}
