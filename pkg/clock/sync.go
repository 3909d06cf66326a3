package clock

import "time"

// Sync paces a loop to a target frequency with drift correction.
//
// Sync is not safe for concurrent use; each runner owns exactly one.
type Sync struct {
	src Source

	// sleep is swapped out in tests for deterministic pacing checks.
	sleep func(time.Duration)

	last    time.Time
	hasLast bool

	// drift is the accumulated overshoot beyond the target period. It is
	// subtracted from future sleeps so the average cycle length converges
	// to the reciprocal of the frequency.
	drift time.Duration
}

// NewSync creates a Sync over the given source. A nil source defaults to the
// steady monotonic clock.
func NewSync(src Source) *Sync {
	if src == nil {
		src = Steady{}
	}
	return &Sync{
		src:   src,
		sleep: time.Sleep,
	}
}

// Sync records the end of a cycle and, if the cycle ran shorter than the
// period implied by frequency, sleeps the remainder minus accumulated drift.
// A frequency of 0 (or below) disables pacing entirely and resets drift.
func (s *Sync) Sync(frequency float64) {
	now := s.src.Now()

	if frequency <= 0 {
		s.last = now
		s.hasLast = true
		s.drift = 0
		return
	}

	period := time.Duration(float64(time.Second) / frequency)

	if !s.hasLast {
		s.last = now
		s.hasLast = true
		return
	}

	elapsed := now.Sub(s.last)
	remaining := period - elapsed - s.drift

	end := now
	if remaining > 0 {
		s.sleep(remaining)
		end = s.src.Now()
	}

	// Bank how far this cycle ran past the target period. Negative values
	// (cycle shorter than the period with pacing disabled mid-run) are not
	// banked as credit; the limiter only catches up, it never bursts.
	s.drift += end.Sub(s.last) - period
	if s.drift < 0 {
		s.drift = 0
	}

	s.last = end
}

// Drift returns the currently accumulated overshoot.
func (s *Sync) Drift() time.Duration {
	return s.drift
}

// Reset forgets the previous cycle boundary and accumulated drift. Used when
// a runner's frequency changes so stale drift does not distort the new rate.
func (s *Sync) Reset() {
	s.hasLast = false
	s.drift = 0
}
