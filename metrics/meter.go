package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Meter tracks how fast events are happening: a total count plus 1-, 5-
// and 15-minute moving average rates, in the style of Unix load averages.
// The transport feeds its ingress and egress byte streams through meters,
// so the registry snapshot shows both lifetime traffic and current load.
type Meter struct {
	count      atomic.Int64
	oneMin     *EWMA
	fiveMin    *EWMA
	fifteenMin *EWMA
	started    time.Time

	mu       sync.Mutex
	lastTick time.Time
}

// NewMeter creates an idle meter. Rates stay at zero until events are
// marked and a tick interval has elapsed.
func NewMeter() *Meter {
	now := time.Now()
	return &Meter{
		oneMin:     NewEWMA(time.Minute),
		fiveMin:    NewEWMA(5 * time.Minute),
		fifteenMin: NewEWMA(15 * time.Minute),
		started:    now,
		lastTick:   now,
	}
}

// Mark records n events, such as bytes moved on a socket.
func (m *Meter) Mark(n int64) {
	m.count.Add(n)
	m.oneMin.Update(n)
	m.fiveMin.Update(n)
	m.fifteenMin.Update(n)
	m.advance()
}

// advance applies any ticks that have become due. Meters have no
// background goroutine; the averages decay lazily whenever the meter is
// marked or read.
func (m *Meter) advance() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for now.Sub(m.lastTick) >= meterTickInterval {
		m.oneMin.Tick()
		m.fiveMin.Tick()
		m.fifteenMin.Tick()
		m.lastTick = m.lastTick.Add(meterTickInterval)
	}
}

// Count returns the total number of events recorded.
func (m *Meter) Count() int64 {
	return m.count.Load()
}

// Rate1 returns the 1-minute average rate per second.
func (m *Meter) Rate1() float64 {
	m.advance()
	return m.oneMin.Rate()
}

// Rate5 returns the 5-minute average rate per second.
func (m *Meter) Rate5() float64 {
	m.advance()
	return m.fiveMin.Rate()
}

// Rate15 returns the 15-minute average rate per second.
func (m *Meter) Rate15() float64 {
	m.advance()
	return m.fifteenMin.Rate()
}

// RateMean returns the lifetime mean rate since the meter was created.
func (m *Meter) RateMean() float64 {
	elapsed := time.Since(m.started).Seconds()
	if elapsed == 0 {
		return 0
	}
	return float64(m.count.Load()) / elapsed
}
