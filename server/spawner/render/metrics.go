package render

import (
	"sync"
	"time"
)

// Metrics tracks counters of the crack animation broadcasts.
type Metrics struct {
	mu sync.Mutex

	cycles  uint64
	actions uint64
	skipped uint64
	last    time.Time
}

// MetricsSnapshot is a point-in-time copy of Metrics.
type MetricsSnapshot struct {
	// Cycles is the number of completed periodic broadcasts.
	Cycles uint64
	// Actions is the number of crack actions sent to viewers, including immediate broadcasts.
	Actions uint64
	// Skipped is the number of entries skipped because their world was closed.
	Skipped uint64
	// LastCycle is the time the last periodic broadcast finished.
	LastCycle time.Time
}

// NewMetrics creates an empty metrics registry.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// IncCycles marks a periodic broadcast as completed.
func (m *Metrics) IncCycles() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.cycles++
	m.last = time.Now()
	m.mu.Unlock()
}

// AddActions increments the counter of crack actions sent.
func (m *Metrics) AddActions(value uint64) {
	if m == nil || value == 0 {
		return
	}
	m.mu.Lock()
	m.actions += value
	m.mu.Unlock()
}

// AddSkipped increments the counter of entries skipped during a broadcast.
func (m *Metrics) AddSkipped(value uint64) {
	if m == nil || value == 0 {
		return
	}
	m.mu.Lock()
	m.skipped += value
	m.mu.Unlock()
}

// Snapshot returns the current values of all counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return MetricsSnapshot{Cycles: m.cycles, Actions: m.actions, Skipped: m.skipped, LastCycle: m.last}
}
