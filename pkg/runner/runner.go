package runner

import (
	"github.com/strand-rt/strand/pkg/clock"
	"github.com/strand-rt/strand/pkg/server"
)

// ID names a runner. MainID is reserved for the controller thread's own
// runner; worker runners are numbered from 1 by the executor.
type ID uint8

// MainID is the reserved id of the main/controller runner.
const MainID ID = 0

// Runner executes one container at a target frequency. A frequency of 0
// disables pacing. Lifetime equals the lifetime of its owning thread.
type Runner struct {
	Container Container
	Frequency float64
	Sync      *clock.Sync
}

// New creates an empty unthrottled runner paced by the steady clock.
func New() *Runner {
	return &Runner{
		Sync: clock.NewSync(nil),
	}
}

// RunSingle executes one cycle: run the container once, then pace.
func (r *Runner) RunSingle(canBlock bool) error {
	if err := r.Container.RunSingle(canBlock, r.Frequency); err != nil {
		return err
	}
	r.Sync.Sync(r.Frequency)
	return nil
}

// SetFrequency updates the target rate and resets drift so the old rate's
// accumulated error does not distort the new one.
func (r *Runner) SetFrequency(frequency float64) {
	r.Frequency = frequency
	r.Sync.Reset()
}

// MainRunner is the runner embedded in the controller thread's event loop.
// It exists because the draw server is bound to the platform window and
// runs there unless explicitly relocated.
type MainRunner struct {
	Base *Runner
}

// NewMain creates the controller's runner.
func NewMain() *MainRunner {
	return &MainRunner{Base: New()}
}

// TakeServer implements Mover directly against the local container.
func (m *MainRunner) TakeServer(kind server.Kind) (server.Transferable, bool, error) {
	return m.Base.Container.Take(kind)
}

// EmplaceServer implements Mover; a duplicate kind panics.
func (m *MainRunner) EmplaceServer(t server.Transferable) error {
	return m.Base.Container.EmplaceChecked(t)
}
