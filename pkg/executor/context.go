package executor

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/strand-rt/strand/pkg/dispatch"
	"github.com/strand-rt/strand/pkg/event"
	"github.com/strand-rt/strand/pkg/server"
)

// Callback is a deferred application callback, run on the controller
// thread when its dispatch id fires.
type Callback func(*MainContext) error

// MainContext bundles the controller-thread state an application callback
// may touch: the executor, the channels into the relocatable servers, and
// the dispatch registry of pending callbacks.
type MainContext struct {
	Executor *Executor
	Channels server.Channels
	Dispatch *dispatch.List[Callback]

	returns map[dispatch.ID]any
	logger  *slog.Logger
}

// NewMainContext creates a main context around an executor and the
// channels of its servers.
func NewMainContext(e *Executor, ch server.Channels) *MainContext {
	return &MainContext{
		Executor: e,
		Channels: ch,
		Dispatch: dispatch.NewList[Callback](),
		returns:  make(map[dispatch.ID]any),
		logger:   e.logger,
	}
}

// SetTimeout registers cb to run after d has elapsed and returns its
// dispatch id together with a cancellation token. The timer is armed on
// the update server; cancelling the token before the timer fires drops
// the callback at pop time.
func (m *MainContext) SetTimeout(d time.Duration, cb Callback) (dispatch.ID, dispatch.Token, error) {
	token := dispatch.NewToken()
	id := m.Dispatch.Push(cb, token)
	m.Executor.met.RecordDispatchPush()

	if err := m.Channels.Update.SetTimeout(d, id); err != nil {
		m.Dispatch.Pop(id)
		return 0, dispatch.Token{}, fmt.Errorf("executor: unable to arm timeout: %w", err)
	}
	return id, token, nil
}

// TakeReturn removes and returns the stored result of a deferred
// cross-thread call, if one has arrived for the given id.
func (m *MainContext) TakeReturn(id dispatch.ID) (any, bool) {
	result, ok := m.returns[id]
	if ok {
		delete(m.returns, id)
	}
	return result, ok
}

// HandleEvent is the default controller event handler: dispatch events pop
// and run their callbacks, deferred call returns are stored (and fire
// their callback when one is registered), and async errors are logged.
func (m *MainContext) HandleEvent(ev event.Event) error {
	switch ev := ev.(type) {
	case event.Dispatch:
		cbs := m.Dispatch.PopMany(ev.Msg.IDs)
		m.Executor.met.RecordDispatchFired(len(cbs), len(ev.Msg.IDs)-len(cbs))
		for _, cb := range cbs {
			if err := cb(m); err != nil {
				return fmt.Errorf("executor: dispatch callback: %w", err)
			}
		}
	case event.ExecuteReturn:
		if !ev.HasID {
			m.logger.Debug("deferred call returned without a dispatch id")
			return nil
		}
		m.returns[ev.ID] = ev.Result
		cb, ok := m.Dispatch.Pop(ev.ID)
		if !ok {
			return nil
		}
		m.Executor.met.RecordDispatchFired(1, 0)
		if err := cb(m); err != nil {
			return fmt.Errorf("executor: deferred-return callback: %w", err)
		}
	case event.Error:
		m.logger.Error("async error reported", "error", ev.Err)
	}
	return nil
}

// Handler adapts the context into an executor event loop handler.
func (m *MainContext) Handler() Handler {
	return func(_ *Executor, ev event.Event) error {
		return m.HandleEvent(ev)
	}
}
