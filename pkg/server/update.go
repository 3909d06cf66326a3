package server

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/strand-rt/strand/pkg/channel"
	"github.com/strand-rt/strand/pkg/clock"
	"github.com/strand-rt/strand/pkg/dispatch"
	"github.com/strand-rt/strand/pkg/event"
)

// requestBuffer sizes the per-server request queues.
const requestBuffer = 64

// idleWait bounds how long a blocking-permitted server waits on its request
// queue before yielding the cycle back to the runner.
const idleWait = 100 * time.Millisecond

// TimeoutRequest asks the update server to fire a dispatch ID once a
// duration has elapsed.
type TimeoutRequest struct {
	Timeout time.Duration
	ID      dispatch.ID
}

// UpdateChannel is the controller-side endpoint for timeout scheduling.
type UpdateChannel struct {
	tx channel.Sender[TimeoutRequest]
}

// SetTimeout registers id to be fired after timeout elapses. The callback
// itself lives in the controller's dispatch list; the update server only
// tracks the deadline and raises the fire trigger.
func (c UpdateChannel) SetTimeout(timeout time.Duration, id dispatch.ID) error {
	return c.tx.Send(TimeoutRequest{Timeout: timeout, ID: id})
}

// Update runs simulation ticks and the timer subsystem. It is not
// thread-affine.
//
// Each cycle it drains its request queue, arms new deadlines, and fires the
// elapsed ones through the event proxy as a dispatch trigger. If the
// registrant is destroyed without cancelling its token, the fire still
// happens; registrants must cancel on teardown.
type Update struct {
	logger *slog.Logger
	proxy  event.Proxy
	src    clock.Source
	rx     channel.Receiver[TimeoutRequest]

	deadlines map[dispatch.ID]time.Time
	cycles    atomic.Uint64
}

// NewUpdate creates an update server and the controller-side channel used
// to schedule timeouts on it. A nil source defaults to the steady clock.
func NewUpdate(logger *slog.Logger, proxy event.Proxy, src clock.Source) (*Update, UpdateChannel) {
	if logger == nil {
		logger = slog.Default()
	}
	if src == nil {
		src = clock.Steady{}
	}
	tx, rx := channel.New[TimeoutRequest](requestBuffer)
	u := &Update{
		logger:    logger.With("server", KindUpdate.String()),
		proxy:     proxy,
		src:       src,
		rx:        rx,
		deadlines: make(map[dispatch.ID]time.Time),
	}
	return u, UpdateChannel{tx: tx}
}

// Kind returns KindUpdate.
func (u *Update) Kind() Kind {
	return KindUpdate
}

// Run drains timeout requests and fires elapsed deadlines. With blocking
// permitted and no armed deadline due sooner, the drain waits up to the
// idle window for the first request instead of spinning.
func (u *Update) Run(canBlock bool, frequency float64) error {
	u.cycles.Add(1)

	var wait time.Duration
	if canBlock {
		wait = u.nextWait()
	}

	reqs, err := u.rx.Drain(wait)
	if err != nil {
		// The controller dropped its endpoint; nothing can arm or
		// cancel timers anymore, but ticking continues.
		u.logger.Debug("timeout channel closed", "error", err)
	}
	now := u.src.Now()
	for _, req := range reqs {
		u.deadlines[req.ID] = now.Add(req.Timeout)
	}

	u.fireElapsed(now)
	return nil
}

// nextWait bounds the idle wait by the nearest armed deadline.
func (u *Update) nextWait() time.Duration {
	wait := idleWait
	now := u.src.Now()
	for _, at := range u.deadlines {
		if d := at.Sub(now); d < wait {
			wait = d
		}
	}
	if wait < 0 {
		wait = 0
	}
	return wait
}

func (u *Update) fireElapsed(now time.Time) {
	var due []dispatch.ID
	for id, at := range u.deadlines {
		if !at.After(now) {
			due = append(due, id)
		}
	}
	if len(due) == 0 {
		return
	}
	for _, id := range due {
		delete(u.deadlines, id)
	}
	if err := u.proxy.FireMany(due); err != nil {
		u.logger.Warn("unable to fire elapsed timeouts", "count", len(due), "error", err)
	}
}

// ToTransferable moves the server by value; armed deadlines travel with it.
func (u *Update) ToTransferable() (Transferable, error) {
	return Transferable{kind: KindUpdate, update: u}, nil
}

// Cycles returns how many cycles the server has run.
func (u *Update) Cycles() uint64 {
	return u.cycles.Load()
}

// Pending returns the number of armed deadlines.
func (u *Update) Pending() int {
	return len(u.deadlines)
}
