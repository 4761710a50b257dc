package protocol

import (
	"math"
	"time"
)

// Ticks is a microsecond counter held in 32 bits, so it wraps roughly
// every 71.6 minutes. Every comparison must therefore go through the
// signed difference of two values; a naive `a < b` is a latent bug.
type Ticks uint32

const (
	// TicksPerDecisecond converts the wire's compact decisecond step
	// offsets into local clock units.
	TicksPerDecisecond Ticks = 100_000
	TicksPerMilli      Ticks = 1_000
	TicksPerSecond     Ticks = 1_000_000
)

// Clock reads some local time base in Ticks. Controller and devices
// each own their own (the whole point of the protocol is that these
// disagree).
type Clock func() Ticks

// Diff returns a-b as a signed quantity, correct across wraparound as
// long as the real distance is under half the counter range (~35 min,
// far beyond any schedule this system carries).
func Diff(a, b Ticks) int32 { return int32(a - b) }

// Reached reports whether now has passed (or equals) the deadline,
// wraparound-safe.
func Reached(now, deadline Ticks) bool { return Diff(now, deadline) >= 0 }

// DecisToTicks expands a decisecond step offset to clock units.
func DecisToTicks(ds uint16) Ticks { return Ticks(ds) * TicksPerDecisecond }

// SecondsToDecis encodes an offset in seconds as deciseconds, rounding
// half up: 1.05s → 11, 1.04s → 10.
func SecondsToDecis(s float64) uint16 {
	return uint16(math.Floor(s*10 + 0.5))
}

// MillisToTicks converts a configuration value in milliseconds.
func MillisToTicks(ms int) Ticks { return Ticks(ms) * TicksPerMilli }

// SystemClock is the host-side Ticks source: wall microseconds
// truncated to 32 bits, wrapping exactly like a microcontroller
// micros() counter.
func SystemClock() Ticks { return Ticks(time.Now().UnixMicro()) }
