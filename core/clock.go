package core

import (
	"math"
	"time"
)

// processEpoch anchors every TimeTicks value. time.Since reads the monotonic
// clock, so ticks never move backwards when the wall clock is adjusted.
var processEpoch = time.Now()

// TimeTicks is an instant on the process-local monotonic clock.
// The zero value is the null instant and compares before every real one.
type TimeTicks struct {
	d time.Duration
}

// NowTicks returns the current monotonic instant.
// Successive calls never return a smaller value.
func NowTicks() TimeTicks {
	// +1 keeps a real reading distinct from the null instant.
	return TimeTicks{d: time.Since(processEpoch) + 1}
}

// IsNull reports whether t is the zero instant.
func (t TimeTicks) IsNull() bool { return t.d == 0 }

// Add returns t shifted by d. Adding to a null instant anchors it at the epoch.
func (t TimeTicks) Add(d time.Duration) TimeTicks {
	if t.d == 0 {
		t.d = 1
	}
	sum := t.d + d
	// saturate instead of wrapping on absurd delays
	if d > 0 && sum < t.d {
		sum = time.Duration(1<<63 - 1)
	}
	return TimeTicks{d: sum}
}

// Sub returns the duration t-u.
func (t TimeTicks) Sub(u TimeTicks) time.Duration { return t.d - u.d }

func (t TimeTicks) Before(u TimeTicks) bool { return t.d < u.d }
func (t TimeTicks) After(u TimeTicks) bool  { return t.d > u.d }
func (t TimeTicks) Equal(u TimeTicks) bool  { return t.d == u.d }

// SinceEpoch exposes the raw offset, mostly for logging.
func (t TimeTicks) SinceEpoch() time.Duration { return t.d }

// Convenience delay constructors used by the PostDelayed* helpers.

func Milliseconds(n int64) time.Duration { return scaleDelay(n, time.Millisecond) }
func Seconds(n int64) time.Duration      { return scaleDelay(n, time.Second) }
func Minutes(n int64) time.Duration      { return scaleDelay(n, time.Minute) }
func Hours(n int64) time.Duration        { return scaleDelay(n, time.Hour) }

// scaleDelay returns n*unit, clamped to the Duration range so the sign of n
// is kept.
func scaleDelay(n int64, unit time.Duration) time.Duration {
	switch {
	case n > math.MaxInt64/int64(unit):
		return time.Duration(math.MaxInt64)
	case n < math.MinInt64/int64(unit):
		return time.Duration(math.MinInt64)
	}
	return time.Duration(n) * unit
}
