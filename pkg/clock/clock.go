// Package clock provides the monotonic time source and the drift-corrected
// frequency pacing used by runner loops.
//
// A Sync paces a loop to a target frequency: after each cycle it sleeps the
// remainder of the cycle period, and any sleep overshoot is accumulated as
// drift and subtracted from future sleeps so the long-run average rate
// converges to the target. Measurements use a monotonic source only, so
// pacing is immune to wall-clock adjustments.
package clock

import "time"

// Source yields timestamps for interval measurement. Implementations must be
// monotonic: Now never goes backwards.
type Source interface {
	Now() time.Time
}

// Steady is the default monotonic Source backed by the runtime clock.
// Go's time.Now carries a monotonic reading, so Sub between two Steady
// timestamps is unaffected by system time changes.
type Steady struct{}

// Now returns the current monotonic timestamp.
func (Steady) Now() time.Time {
	return time.Now()
}
