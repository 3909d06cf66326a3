package server

import (
	"log/slog"
	"sync/atomic"
	"time"
)

// Audio performs periodic audio work. It is not thread-affine and transfers
// between threads without conversion.
//
// The runtime core does not mix audio; Run models keeping a platform sink
// fed by advancing a sample cursor once per cycle.
type Audio struct {
	logger *slog.Logger

	cycles  atomic.Uint64
	samples atomic.Uint64

	// SampleRate drives how far the cursor advances per cycle.
	SampleRate int
}

// NewAudio creates an audio server.
func NewAudio(logger *slog.Logger) *Audio {
	if logger == nil {
		logger = slog.Default()
	}
	return &Audio{
		logger:     logger.With("server", KindAudio.String()),
		SampleRate: 48000,
	}
}

// Kind returns KindAudio.
func (a *Audio) Kind() Kind {
	return KindAudio
}

// Run advances the sample cursor by one cycle's worth of samples. When
// blocking is permitted and the runner is unthrottled, it waits a sink
// period instead of spinning.
func (a *Audio) Run(canBlock bool, frequency float64) error {
	a.cycles.Add(1)

	per := uint64(a.SampleRate)
	if frequency > 0 {
		per = uint64(float64(a.SampleRate) / frequency)
	}
	a.samples.Add(per)

	if canBlock && frequency <= 0 {
		// Sole resident on an unthrottled runner: pace on the sink
		// instead of busy-looping.
		time.Sleep(time.Millisecond)
	}
	return nil
}

// ToTransferable moves the server by value; no context to detach.
func (a *Audio) ToTransferable() (Transferable, error) {
	return Transferable{kind: KindAudio, audio: a}, nil
}

// Cycles returns how many cycles the server has run.
func (a *Audio) Cycles() uint64 {
	return a.cycles.Load()
}

// Samples returns the sample cursor position.
func (a *Audio) Samples() uint64 {
	return a.samples.Load()
}
