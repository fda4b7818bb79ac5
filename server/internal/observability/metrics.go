package observability

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics collects and aggregates planning metrics for one process.
type Metrics struct {
	mu sync.Mutex

	planTotal        atomic.Int64
	planFailed       atomic.Int64
	fallbackTotal    atomic.Int64
	creationFailures atomic.Int64
	providerFailures atomic.Int64

	modeMetrics map[string]*ModeMetrics
}

// ModeMetrics holds the counters of one planning mode.
type ModeMetrics struct {
	planCount     atomic.Int64
	totalDuration atomic.Int64 // milliseconds
	statusCounts  sync.Map     // status -> *atomic.Int64
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		modeMetrics: make(map[string]*ModeMetrics),
	}
}

// RecordPlan records one finished plan with its outcome status.
func (m *Metrics) RecordPlan(mode, status string, duration time.Duration) {
	m.planTotal.Add(1)
	if status == "FAILED" {
		m.planFailed.Add(1)
	}
	mm := m.getModeMetrics(mode)
	mm.planCount.Add(1)
	mm.totalDuration.Add(duration.Milliseconds())
	counter, _ := mm.statusCounts.LoadOrStore(status, &atomic.Int64{})
	counter.(*atomic.Int64).Add(1)
}

// RecordFallback records a single-placement run that ignored the ranker.
func (m *Metrics) RecordFallback() {
	m.fallbackTotal.Add(1)
}

// RecordCreationFailure records an event the creator rejected.
func (m *Metrics) RecordCreationFailure() {
	m.creationFailures.Add(1)
}

// RecordProviderFailure records a busy-period fetch that failed.
func (m *Metrics) RecordProviderFailure() {
	m.providerFailures.Add(1)
}

func (m *Metrics) getModeMetrics(mode string) *ModeMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	mm, ok := m.modeMetrics[mode]
	if !ok {
		mm = &ModeMetrics{}
		m.modeMetrics[mode] = mm
	}
	return mm
}

// Reset resets all metrics (useful for testing).
func (m *Metrics) Reset() {
	m.planTotal.Store(0)
	m.planFailed.Store(0)
	m.fallbackTotal.Store(0)
	m.creationFailures.Store(0)
	m.providerFailures.Store(0)

	m.mu.Lock()
	m.modeMetrics = make(map[string]*ModeMetrics)
	m.mu.Unlock()
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() *MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	modes := make(map[string]*ModeMetricsSnapshot, len(m.modeMetrics))
	for mode, mm := range m.modeMetrics {
		snap := &ModeMetricsSnapshot{
			PlanCount:     mm.planCount.Load(),
			TotalDuration: mm.totalDuration.Load(),
			StatusCounts:  map[string]int64{},
		}
		if snap.PlanCount > 0 {
			snap.AverageDuration = snap.TotalDuration / snap.PlanCount
		}
		mm.statusCounts.Range(func(k, v any) bool {
			snap.StatusCounts[k.(string)] = v.(*atomic.Int64).Load()
			return true
		})
		modes[mode] = snap
	}

	return &MetricsSnapshot{
		PlanTotal:        m.planTotal.Load(),
		PlanFailed:       m.planFailed.Load(),
		FallbackTotal:    m.fallbackTotal.Load(),
		CreationFailures: m.creationFailures.Load(),
		ProviderFailures: m.providerFailures.Load(),
		Modes:            modes,
	}
}

// MetricsSnapshot represents a point-in-time snapshot of metrics.
type MetricsSnapshot struct {
	PlanTotal        int64                           `json:"plan_total"`
	PlanFailed       int64                           `json:"plan_failed"`
	FallbackTotal    int64                           `json:"fallback_total"`
	CreationFailures int64                           `json:"creation_failures"`
	ProviderFailures int64                           `json:"provider_failures"`
	Modes            map[string]*ModeMetricsSnapshot `json:"modes"`
}

// ModeMetricsSnapshot represents metrics for one planning mode.
type ModeMetricsSnapshot struct {
	PlanCount       int64            `json:"plan_count"`
	TotalDuration   int64            `json:"total_duration_ms"`
	AverageDuration int64            `json:"average_duration_ms"`
	StatusCounts    map[string]int64 `json:"status_counts"`
}

// ModeNames returns the recorded modes in name order.
func (s *MetricsSnapshot) ModeNames() []string {
	names := make([]string, 0, len(s.Modes))
	for name := range s.Modes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SuccessRate returns the share of plans that were not FAILED, as a
// percentage (0-100).
func (s *MetricsSnapshot) SuccessRate() float64 {
	if s.PlanTotal == 0 {
		return 100.0
	}
	return float64(s.PlanTotal-s.PlanFailed) / float64(s.PlanTotal) * 100.0
}
