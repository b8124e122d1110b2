package utils

import (
	"sort"
	"sync"
	"time"
)

// LatencyTracker keeps a fixed-size ring of recent duration samples and
// computes percentiles over them.
type LatencyTracker struct {
	mu   sync.RWMutex
	ring []time.Duration
	next int
	full bool
}

// NewLatencyTracker creates a tracker keeping up to size samples.
func NewLatencyTracker(size int) *LatencyTracker {
	if size <= 0 {
		size = 512
	}
	return &LatencyTracker{ring: make([]time.Duration, size)}
}

// Observe records a new duration, overwriting the oldest sample once the
// ring is full.
func (l *LatencyTracker) Observe(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.ring[l.next] = d
	l.next++
	if l.next == len(l.ring) {
		l.next = 0
		l.full = true
	}
}

// Count returns the number of samples currently held.
func (l *LatencyTracker) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.held()
}

// Percentile returns the p-th percentile (0-100) duration over held samples.
// Returns zero when no samples have been observed.
func (l *LatencyTracker) Percentile(p float64) time.Duration {
	l.mu.RLock()
	defer l.mu.RUnlock()

	n := l.held()
	if n == 0 {
		return 0
	}

	sorted := append([]time.Duration(nil), l.ring[:n]...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	idx := int((p / 100.0) * float64(n-1))
	return sorted[idx]
}

func (l *LatencyTracker) held() int {
	if l.full {
		return len(l.ring)
	}
	return l.next
}
