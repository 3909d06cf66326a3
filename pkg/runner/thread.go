package runner

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/strand-rt/strand/pkg/channel"
	"github.com/strand-rt/strand/pkg/metrics"
	"github.com/strand-rt/strand/pkg/server"
)

// DefaultRecvTimeout is how long an idle runner blocks on its control
// channel before running another (empty) cycle.
const DefaultRecvTimeout = 100 * time.Millisecond

// takeWarnAfter is the soft-timeout threshold for a pending server take.
// Relocation is expected to always eventually complete, so past this the
// handle warns and keeps waiting rather than failing.
const takeWarnAfter = 100 * time.Second

// controlBuffer sizes the control and reply channels.
const controlBuffer = 16

// Control messages, processed by the worker in arrival order.
type toRunnerMsg interface {
	isToRunnerMsg()
}

type stopMsg struct{}

type moveServerMsg struct {
	srv server.Transferable
}

type requestServerMsg struct {
	kind server.Kind
}

type setFrequencyMsg struct {
	frequency float64
}

func (stopMsg) isToRunnerMsg()          {}
func (moveServerMsg) isToRunnerMsg()    {}
func (requestServerMsg) isToRunnerMsg() {}
func (setFrequencyMsg) isToRunnerMsg()  {}

// fromRunnerMsg is the reply to a requestServerMsg: the taken server, or
// ok=false when the kind was not present.
type fromRunnerMsg struct {
	srv server.Transferable
	ok  bool
}

// ThreadRunner is a runner living on a dedicated worker thread. It drains
// its control channel, then runs its container once per cycle.
type ThreadRunner struct {
	id     ID
	base   *Runner
	logger *slog.Logger
	tx     channel.Sender[fromRunnerMsg]
	rx     channel.Receiver[toRunnerMsg]
	cycles *atomic.Uint64
	met    *metrics.Metrics
}

func (t *ThreadRunner) send(msg fromRunnerMsg) {
	if err := t.tx.Send(msg); err != nil {
		panic("runner: thread runner channel was unexpectedly closed: " + err.Error())
	}
}

// run is the worker loop. It blocks on the control channel with a timeout
// only while the container is empty; once servers are present it drains
// without blocking to preserve frame cadence.
func (t *ThreadRunner) run() {
	label := fmt.Sprintf("worker-%d", t.id)
	for {
		var wait time.Duration
		if !t.base.Container.DoesRun() {
			wait = DefaultRecvTimeout
		}
		msgs, err := t.rx.Drain(wait)
		if err != nil {
			panic("runner: thread runner channel was unexpectedly closed: " + err.Error())
		}

		for _, msg := range msgs {
			switch m := msg.(type) {
			case stopMsg:
				return
			case moveServerMsg:
				if err := t.base.Container.EmplaceChecked(m.srv); err != nil {
					panic("runner: error emplacing server: " + err.Error())
				}
				t.logger.Debug("server emplaced", "kind", m.srv.Kind())
			case requestServerMsg:
				tr, ok, err := t.base.Container.Take(m.kind)
				if err != nil {
					panic("runner: error taking server: " + err.Error())
				}
				t.send(fromRunnerMsg{srv: tr, ok: ok})
				t.logger.Debug("server taken", "kind", m.kind, "present", ok)
			case setFrequencyMsg:
				t.base.SetFrequency(m.frequency)
				t.logger.Debug("frequency updated", "frequency", m.frequency)
			}
		}

		start := time.Now()
		if err := t.base.RunSingle(true); err != nil {
			panic("runner: error while running servers: " + err.Error())
		}
		t.cycles.Add(1)
		t.met.ObserveCycle(label, time.Since(start))
	}
}

// Handle is the controller-side end of a ThreadRunner: it owns the worker's
// join state and both channel endpoints, and implements Mover by messaging
// the worker.
type Handle struct {
	id     ID
	logger *slog.Logger
	tx     channel.Sender[toRunnerMsg]
	rx     channel.Receiver[fromRunnerMsg]

	done     chan struct{}
	panicked atomic.Bool
	cycles   atomic.Uint64
}

// NewHandle spawns a worker thread hosting an empty runner and returns its
// handle. The worker goroutine is pinned to its OS thread so thread-affine
// servers (draw) may be relocated onto it.
func NewHandle(id ID, logger *slog.Logger, met *metrics.Metrics) *Handle {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("runner_id", id)

	toTx, toRx := channel.New[toRunnerMsg](controlBuffer)
	fromTx, fromRx := channel.New[fromRunnerMsg](controlBuffer)

	h := &Handle{
		id:     id,
		logger: logger,
		tx:     toTx,
		rx:     fromRx,
		done:   make(chan struct{}),
	}
	tr := &ThreadRunner{
		id:     id,
		base:   New(),
		logger: logger,
		tx:     fromTx,
		rx:     toRx,
		cycles: &h.cycles,
		met:    met,
	}

	go func() {
		runtime.LockOSThread()
		defer close(h.done)
		// Whatever way the worker exits, the reply channel closes so a
		// pending TakeServer fails instead of waiting on a dead peer.
		defer fromTx.Close()
		defer func() {
			if r := recover(); r != nil {
				h.panicked.Store(true)
				logger.Error("runner thread panicked",
					"panic", r,
					"stack", string(debug.Stack()))
			}
		}()
		tr.run()
	}()

	return h
}

// ID returns the runner's id.
func (h *Handle) ID() ID {
	return h.id
}

// Cycles returns how many cycles the worker has run.
func (h *Handle) Cycles() uint64 {
	return h.cycles.Load()
}

func (h *Handle) send(msg toRunnerMsg) error {
	if err := h.tx.Send(msg); err != nil {
		return fmt.Errorf("runner: send to worker %d: %w", h.id, err)
	}
	return nil
}

// Stop asks the worker loop to terminate. Join reaps the thread.
func (h *Handle) Stop() error {
	return h.send(stopMsg{})
}

// SetFrequency updates the worker's target rate, fire-and-forget.
func (h *Handle) SetFrequency(frequency float64) error {
	return h.send(setFrequencyMsg{frequency: frequency})
}

// Join waits for the worker to finish and reports whether it panicked.
func (h *Handle) Join() bool {
	<-h.done
	return h.panicked.Load()
}

// TakeServer implements Mover: it requests the server from the worker and
// blocks on the reply. Past the soft-timeout threshold it warns once and
// keeps waiting; relocation always eventually completes.
func (h *Handle) TakeServer(kind server.Kind) (server.Transferable, bool, error) {
	if err := h.send(requestServerMsg{kind: kind}); err != nil {
		return server.Transferable{}, false, fmt.Errorf("unable to request server from runner thread: %w", err)
	}

	sent := time.Now()
	warned := false
	for {
		msg, err := h.rx.Recv(DefaultRecvTimeout)
		if errors.Is(err, channel.ErrTimeout) {
			if !warned && time.Since(sent) > takeWarnAfter {
				warned = true
				h.logger.Warn("taking server is taking an unexpectedly long amount of time",
					"kind", kind)
			}
			continue
		}
		if err != nil {
			return server.Transferable{}, false, fmt.Errorf("unable to receive server from runner thread: %w", err)
		}
		return msg.srv, msg.ok, nil
	}
}

// EmplaceServer implements Mover: the server is sent to the worker, which
// performs the checked emplace on its own thread.
func (h *Handle) EmplaceServer(t server.Transferable) error {
	return h.send(moveServerMsg{srv: t})
}
