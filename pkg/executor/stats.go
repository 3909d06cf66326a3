package executor

import (
	"time"

	"github.com/strand-rt/strand/pkg/runner"
)

// RunnerStats describes one runner at snapshot time. Worker server
// placement is owned by the worker's own thread and is not reported here;
// only the main runner lists its resident servers.
type RunnerStats struct {
	ID        runner.ID `json:"id"`
	Main      bool      `json:"main"`
	Cycles    uint64    `json:"cycles"`
	Frequency float64   `json:"frequency,omitempty"`
	Servers   []string  `json:"servers,omitempty"`
}

// Stats is a point-in-time snapshot of the runtime, published once per
// controller cycle.
type Stats struct {
	Time    time.Time     `json:"time"`
	Runners []RunnerStats `json:"runners"`
}

// Stats returns the most recently published snapshot. Safe to call from
// any goroutine: it only reads the published pointer, never the live
// controller state. Snapshots are published by the controller thread on
// construction, on every topology change, and once per event-loop cycle;
// a zero Stats means nothing has been published yet.
func (e *Executor) Stats() Stats {
	if s := e.lastStats.Load(); s != nil {
		return *s
	}
	return Stats{}
}

// collectStats must only run on the controller thread.
func (e *Executor) collectStats() Stats {
	main := RunnerStats{
		ID:        runner.MainID,
		Main:      true,
		Cycles:    e.mainCycles.Load(),
		Frequency: e.Main.Base.Frequency,
	}
	for _, k := range e.Main.Base.Container.Kinds() {
		main.Servers = append(main.Servers, k.String())
	}

	s := Stats{
		Time:    time.Now(),
		Runners: []RunnerStats{main},
	}
	for id, h := range e.handles {
		s.Runners = append(s.Runners, RunnerStats{
			ID:     id,
			Cycles: h.Cycles(),
		})
	}
	return s
}

func (e *Executor) publishStats() {
	s := e.collectStats()
	e.lastStats.Store(&s)
}
