// Package backoff gates fixed-rate poll loops with jittered exponential
// suppression. Each poller owns one Backoff; state is process-local and never
// persisted, so it is a latency heuristic rather than a correctness mechanism.
package backoff

import (
	"math/rand"
	"time"
)

// DefaultTableLength is the number of doubling steps before the window caps.
const DefaultTableLength = 10

// Backoff decides, tick by tick, whether a poller should touch the store.
// After an idle stretch the window between real checks doubles per attempt,
// jittered into [d/2, 3d/2), and caps at the last table entry so worst-case
// latency before the next real check stays bounded.
//
// Not safe for concurrent use; each run loop keeps its own instance.
type Backoff struct {
	table       []time.Duration
	attempts    int
	lastAttempt time.Time

	// rand is swapped in tests for determinism.
	rand func() float64
}

// New builds a Backoff with tableLen doubling entries starting at base.
// tableLen values < 1 fall back to DefaultTableLength.
func New(base time.Duration, tableLen int) *Backoff {
	if base <= 0 {
		base = time.Second
	}
	if tableLen < 1 {
		tableLen = DefaultTableLength
	}

	table := make([]time.Duration, tableLen)
	d := base
	for i := range table {
		table[i] = d
		d *= 2
	}

	return &Backoff{table: table, rand: rand.Float64}
}

// Ready reports whether the caller should attempt real work this tick.
// A false return is a suppressed tick and counts as another idle attempt.
func (b *Backoff) Ready(now time.Time) bool {
	if b.attempts == 0 {
		return true
	}

	window := b.jitter(b.table[b.index()])
	if now.Sub(b.lastAttempt) < window {
		b.bump()
		return false
	}

	return true
}

// Observe records the outcome of an attempted tick. Productive work resets
// the attempt counter; an empty scan or claim grows it toward the cap. The
// attempt timestamp always advances so windows are measured between real
// checks, not from the last productive moment.
func (b *Backoff) Observe(productive bool, now time.Time) {
	b.lastAttempt = now
	if productive {
		b.attempts = 0
		return
	}
	b.bump()
}

// Attempts exposes the idle counter, mostly for tests and logging.
func (b *Backoff) Attempts() int {
	return b.attempts
}

func (b *Backoff) index() int {
	if b.attempts >= len(b.table) {
		return len(b.table) - 1
	}
	return b.attempts
}

func (b *Backoff) bump() {
	if b.attempts < len(b.table)-1 {
		b.attempts++
	}
}

// jitter spreads a window into [d/2, 3d/2) so independent pollers started
// together do not line up their checks.
func (b *Backoff) jitter(d time.Duration) time.Duration {
	return d/2 + time.Duration(b.rand()*float64(d))
}
