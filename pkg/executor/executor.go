// Package executor provides the controller-thread authority over runners:
// it owns the main runner and every worker handle, performs server
// relocation and frequency changes, runs the controller event loop, and
// hosts the blocking cross-thread call path.
//
// All Executor methods are controller-thread only. Other threads interact
// with the runtime through the event proxy and the server channels.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/strand-rt/strand/pkg/channel"
	"github.com/strand-rt/strand/pkg/event"
	"github.com/strand-rt/strand/pkg/metrics"
	"github.com/strand-rt/strand/pkg/runner"
	"github.com/strand-rt/strand/pkg/server"
)

// tracerName is the otel tracer for runtime spans.
const tracerName = "strand"

// Sentinel errors for executor operations.
var (
	// ErrRunnerNotFound is returned when a RunnerId resolves to nothing.
	ErrRunnerNotFound = errors.New("executor: runner not found")

	// ErrStopped is returned for operations on a stopped executor.
	ErrStopped = errors.New("executor: stopped")
)

// DefaultSyncCallTimeout bounds the wait of a cross-thread synchronous
// call. It matches the relocation soft-timeout threshold.
const DefaultSyncCallTimeout = 100 * time.Second

// Config configures an Executor.
type Config struct {
	// Logger receives runtime diagnostics. Defaults to slog.Default().
	Logger *slog.Logger

	// Metrics receives instrumentation. Nil disables it.
	Metrics *metrics.Metrics

	// EventBuffer sizes the controller event queue (default 256).
	EventBuffer int

	// SyncCallTimeout bounds ExecuteDrawSync waits
	// (default DefaultSyncCallTimeout).
	SyncCallTimeout time.Duration
}

// Executor is the sole authority for moving servers between runners and for
// changing runner frequencies.
type Executor struct {
	// Main is the runner embedded in the controller's own event loop.
	Main *runner.MainRunner

	handles map[runner.ID]*runner.Handle
	nextID  runner.ID

	proxy  event.Proxy
	events channel.Receiver[event.Event]

	logger      *slog.Logger
	met         *metrics.Metrics
	tracer      trace.Tracer
	syncTimeout time.Duration
	stopped     bool

	mainCycles atomic.Uint64
	lastStats  atomic.Pointer[Stats]
}

// New creates an executor with an empty main runner and no workers.
func New(cfg Config) *Executor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	buffer := cfg.EventBuffer
	if buffer <= 0 {
		buffer = 256
	}
	syncTimeout := cfg.SyncCallTimeout
	if syncTimeout <= 0 {
		syncTimeout = DefaultSyncCallTimeout
	}

	proxy, events := event.NewQueue(buffer)
	e := &Executor{
		Main:        runner.NewMain(),
		handles:     make(map[runner.ID]*runner.Handle),
		proxy:       proxy,
		events:      events,
		logger:      logger,
		met:         cfg.Metrics,
		tracer:      otel.Tracer(tracerName),
		syncTimeout: syncTimeout,
	}
	e.publishStats()
	return e
}

// Proxy returns the event proxy feeding the controller loop. Safe to hand
// to any thread.
func (e *Executor) Proxy() event.Proxy {
	return e.proxy
}

// SpawnRunner starts a new worker thread with an empty runner and returns
// its id.
func (e *Executor) SpawnRunner() (runner.ID, error) {
	if e.stopped {
		return 0, ErrStopped
	}
	e.nextID++
	id := e.nextID
	e.handles[id] = runner.NewHandle(id, e.logger, e.met)
	e.logger.Info("runner spawned", "runner_id", id)
	e.publishStats()
	return id, nil
}

// Handle returns the handle of a worker runner.
func (e *Executor) Handle(id runner.ID) (*runner.Handle, bool) {
	h, ok := e.handles[id]
	return h, ok
}

// RunnerIDs returns the ids of all live runners, the main runner included.
func (e *Executor) RunnerIDs() []runner.ID {
	out := []runner.ID{runner.MainID}
	for id := range e.handles {
		out = append(out, id)
	}
	return out
}

// mover resolves a RunnerId to its relocation surface.
func (e *Executor) mover(id runner.ID) (runner.Mover, error) {
	if id == runner.MainID {
		return e.Main, nil
	}
	if h, ok := e.handles[id]; ok {
		return h, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrRunnerNotFound, id)
}

// MoveServer relocates the server of the given kind from one runner to
// another. It is the exclusive path for changing a server's thread
// ownership: a checked take on the source (ServerAbsent if not present)
// followed by a checked emplace on the destination (duplicate kind is
// fatal on the destination's thread). From the caller's view the move is
// synchronous, even though the destination runs its half asynchronously
// relative to its own cycle.
func (e *Executor) MoveServer(from, to runner.ID, kind server.Kind) error {
	_, span := e.tracer.Start(context.Background(), "executor.move_server",
		trace.WithAttributes(
			attribute.String("kind", kind.String()),
			attribute.Int("from", int(from)),
			attribute.Int("to", int(to)),
		))
	defer span.End()

	err := e.moveServer(from, to, kind)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.met.RecordRelocationError()
		return err
	}
	e.met.RecordRelocation(kind.String())
	return nil
}

func (e *Executor) moveServer(from, to runner.ID, kind server.Kind) error {
	if e.stopped {
		return ErrStopped
	}
	src, err := e.mover(from)
	if err != nil {
		return fmt.Errorf("resolve source: %w", err)
	}
	dst, err := e.mover(to)
	if err != nil {
		return fmt.Errorf("resolve destination: %w", err)
	}
	if from == to {
		return nil
	}

	tr, err := runner.TakeServerChecked(src, kind)
	if err != nil {
		return err
	}
	if err := dst.EmplaceServer(tr); err != nil {
		return err
	}

	e.logger.Info("server relocated", "kind", kind, "from", from, "to", to)
	e.publishStats()
	return nil
}

// SetFrequency changes a runner's target rate: a direct field write for the
// main runner, a fire-and-forget message for a worker.
func (e *Executor) SetFrequency(id runner.ID, frequency float64) error {
	if e.stopped {
		return ErrStopped
	}
	if id == runner.MainID {
		e.Main.Base.SetFrequency(frequency)
		return nil
	}
	h, ok := e.handles[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrRunnerNotFound, id)
	}
	return h.SetFrequency(frequency)
}

// Stop broadcasts Stop to every worker, then joins each. A worker panic
// surfaces as a failed join and is reported as a diagnostic, not an error.
// Stop is idempotent.
func (e *Executor) Stop() {
	if e.stopped {
		return
	}
	e.stopped = true

	for id, h := range e.handles {
		if err := h.Stop(); err != nil {
			e.logger.Error("unable to stop runner", "runner_id", id, "error", err)
		}
	}
	for id, h := range e.handles {
		if panicked := h.Join(); panicked {
			e.logger.Error("runner exited abnormally", "runner_id", id)
		} else {
			e.logger.Info("runner stopped", "runner_id", id, "cycles", h.Cycles())
		}
	}
	e.handles = make(map[runner.ID]*runner.Handle)
	e.publishStats()
}

// Handler processes one non-Exit controller event.
type Handler func(*Executor, event.Event) error

// Run is the controller event loop. Each iteration drains pending events
// (waiting briefly when the main container is idle, polling when it runs),
// then executes one main-runner cycle. An Exit event stops all workers,
// joins them, and returns the exit code.
func (e *Executor) Run(handler Handler) (int, error) {
	for {
		var wait time.Duration
		if !e.Main.Base.Container.DoesRun() {
			wait = runner.DefaultRecvTimeout
		}
		evs, err := e.events.Drain(wait)
		if err != nil {
			e.Stop()
			return 0, fmt.Errorf("executor: event queue unexpectedly closed: %w", err)
		}

		for _, ev := range evs {
			if exit, ok := ev.(event.Exit); ok {
				e.logger.Info("exit requested", "code", exit.Code)
				e.Stop()
				return exit.Code, nil
			}
			if handler == nil {
				continue
			}
			if err := handler(e, ev); err != nil {
				e.logger.Error("event handler failed", "error", err)
			}
		}

		start := time.Now()
		if err := e.Main.Base.RunSingle(true); err != nil {
			e.Stop()
			return 0, fmt.Errorf("executor: error running main runner: %w", err)
		}
		e.mainCycles.Add(1)
		e.met.ObserveCycle("main", time.Since(start))
		e.publishStats()
	}
}
