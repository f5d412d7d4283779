package metrics

import (
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// meterTickInterval is how often rate averages decay. Meters tick lazily on
// access rather than from a background goroutine, so the interval also
// bounds how stale a reported rate can be.
const meterTickInterval = 5 * time.Second

// EWMA is an exponentially weighted moving average of an event rate. It
// smooths bursty samples, such as the bytes a connection moves per
// readiness event, into a per-second rate over a fixed averaging window.
// Safe for concurrent use.
type EWMA struct {
	alpha     float64
	uncounted atomic.Int64

	mu     sync.Mutex
	rate   float64
	primed bool
}

// NewEWMA creates an average whose weight decays over the given window.
// Meters use the standard one, five and fifteen minute windows.
func NewEWMA(window time.Duration) *EWMA {
	tick := meterTickInterval.Seconds()
	return &EWMA{alpha: 1 - math.Exp(-tick/window.Seconds())}
}

// Update adds n events to the amount awaiting the next tick.
func (e *EWMA) Update(n int64) {
	e.uncounted.Add(n)
}

// Tick folds the events accumulated since the previous tick into the
// average. Callers tick once per meterTickInterval; the first tick seeds
// the average instead of decaying it.
func (e *EWMA) Tick() {
	instant := float64(e.uncounted.Swap(0)) / meterTickInterval.Seconds()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.primed {
		e.rate += e.alpha * (instant - e.rate)
	} else {
		e.rate = instant
		e.primed = true
	}
}

// Rate returns the smoothed per-second rate.
func (e *EWMA) Rate() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rate
}
