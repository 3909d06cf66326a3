// Package event defines the user events flowing into the controller thread's
// event loop and the Proxy used to raise them from any thread.
package event

import (
	"github.com/strand-rt/strand/pkg/channel"
	"github.com/strand-rt/strand/pkg/dispatch"
)

// Event is a closed set of controller-thread events.
type Event interface {
	isEvent()
}

// Exit asks the event loop to stop all workers, join them, and halt.
type Exit struct {
	Code int
}

// Dispatch asks the controller to fire a batch of dispatch IDs.
type Dispatch struct {
	Msg dispatch.Msg
}

// ExecuteReturn carries the type-erased result of a deferred cross-thread
// call back to the controller. When HasID is set, the result is delivered by
// firing the dispatch entry registered under ID.
type ExecuteReturn struct {
	Result any
	ID     dispatch.ID
	HasID  bool
}

// Error reports a failure raised off the controller thread. The loop logs it
// and continues.
type Error struct {
	Err error
}

func (Exit) isEvent()          {}
func (Dispatch) isEvent()      {}
func (ExecuteReturn) isEvent() {}
func (Error) isEvent()         {}

// Proxy raises events into the controller loop. Safe for concurrent use from
// any thread; a copy is as good as the original.
type Proxy struct {
	tx channel.Sender[Event]
}

// NewQueue creates the controller's event queue and a proxy feeding it.
func NewQueue(buffer int) (Proxy, channel.Receiver[Event]) {
	tx, rx := channel.New[Event](buffer)
	return Proxy{tx: tx}, rx
}

// Send raises an event. It returns channel.ErrClosed once the loop is gone.
func (p Proxy) Send(ev Event) error {
	return p.tx.Send(ev)
}

// Fire requests that a previously registered dispatch ID be fired on the
// controller thread.
func (p Proxy) Fire(id dispatch.ID) error {
	return p.FireMany([]dispatch.ID{id})
}

// FireMany requests that a batch of dispatch IDs be fired in order.
func (p Proxy) FireMany(ids []dispatch.ID) error {
	return p.Send(Dispatch{Msg: dispatch.Msg{IDs: ids}})
}
