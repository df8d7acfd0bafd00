package meter

import (
	"sync"

	"github.com/diminuto-go/diminuto/internal/dierr"
)

// Ticks is an opaque, monotonically non-decreasing clock reading.
// Callers typically pass time.Now().UnixNano(), but any comparable
// integer clock works — the meter's arithmetic is unit-agnostic; rates
// it returns are events per tick.
type Ticks int64

// Meter is a four-field state machine tracking the shortest
// inter-arrival gap, the total event count, the largest single-call
// burst, and the window bounds needed to compute a sustained rate.
// The zero value is ready to use.
type Meter struct {
	mu sync.Mutex

	started bool
	start   Ticks
	last    Ticks

	hasShortest          bool
	shortestInterArrival float64

	eventCount   uint64
	largestBurst uint64
}

// Events records n events observed at tick now. now must not be earlier
// than the tick of any previous call, or this returns a
// dierr.RangeViolation ("clock regression"). n == 0 is a no-op beyond
// that check. A total event count overflowing uint64 returns
// dierr.Overflow; last, shortestInterArrival and start have already been
// updated by the time this is detected, so only eventCount and
// largestBurst are left unadvanced (event counts this large are not
// reachable in practice, so this is not a correctness concern in
// practice).
func (m *Meter) Events(now Ticks, n uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started && now < m.last {
		return dierr.New("meter.Events", dierr.RangeViolation)
	}
	if n == 0 {
		return nil
	}

	if m.started {
		iat := float64(now-m.last) / float64(n)
		if !m.hasShortest || iat < m.shortestInterArrival {
			m.shortestInterArrival = iat
			m.hasShortest = true
		}
	} else {
		m.start = now
		m.started = true
	}
	m.last = now

	sum := m.eventCount + n
	if sum < m.eventCount {
		return dierr.New("meter.Events", dierr.Overflow)
	}
	m.eventCount = sum

	if n > m.largestBurst {
		m.largestBurst = n
	}
	return nil
}

// Peak reports 1/shortest-inter-arrival, the highest instantaneous rate
// observed across any single Events call. It returns dierr.Invalid if no
// inter-arrival gap has been observed yet (fewer than two events, or
// only ever a single Events call).
func (m *Meter) Peak() (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.hasShortest || m.shortestInterArrival <= 0 {
		return 0, dierr.New("meter.Peak", dierr.Invalid)
	}
	return 1 / m.shortestInterArrival, nil
}

// Sustained reports event_count / (last - start), the average rate
// across the whole observed window. It returns dierr.Invalid if no
// events have been recorded, or if the window has zero width (a single
// Events call, or multiple calls at the same tick).
func (m *Meter) Sustained() (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return 0, dierr.New("meter.Sustained", dierr.Invalid)
	}
	window := m.last - m.start
	if window <= 0 {
		return 0, dierr.New("meter.Sustained", dierr.Invalid)
	}
	return float64(m.eventCount) / float64(window), nil
}

// Burst reports the largest n passed to any single Events call.
func (m *Meter) Burst() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.largestBurst
}

// EventCount reports the total number of events recorded.
func (m *Meter) EventCount() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.eventCount
}
