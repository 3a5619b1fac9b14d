// Package monitoring provides round metrics collection and reporting for dispatchers.
package monitoring

import (
	"maps"
	"sync"
	"time"
)

// RoundMetrics represents performance metrics for a single dispatcher round.
type RoundMetrics struct {
	Dispatcher string        `json:"dispatcher"`
	Round      uint64        `json:"round"`
	Indices    int           `json:"indices"`
	Workers    int           `json:"workers"`
	Duration   time.Duration `json:"duration"`
	Completed  time.Time     `json:"completed"`
	Failed     bool          `json:"failed"`
	Error      string        `json:"error,omitempty"`
}

// DefaultRetention is how many recent rounds a collector keeps.
const DefaultRetention = 1024

// MetricsCollector collects and stores round metrics. Only the most recent
// rounds are kept; the summary covers every round since the last Clear.
type MetricsCollector struct {
	mu        sync.RWMutex
	metrics   []RoundMetrics
	retention int
	totals    MetricsSummary
	enabled   bool
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector(enabled bool) *MetricsCollector {
	return &MetricsCollector{
		metrics:   make([]RoundMetrics, 0),
		retention: DefaultRetention,
		enabled:   enabled,
	}
}

// SetRetention sets how many recent rounds are kept, dropping the oldest
// ones beyond it. Values below one are ignored.
func (mc *MetricsCollector) SetRetention(rounds int) {
	if rounds < 1 {
		return
	}
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.retention = rounds
	mc.trim()
}

// Retention returns how many recent rounds are kept.
func (mc *MetricsCollector) Retention() int {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.retention
}

func (mc *MetricsCollector) trim() {
	if over := len(mc.metrics) - mc.retention; over > 0 {
		n := copy(mc.metrics, mc.metrics[over:])
		clear(mc.metrics[n:])
		mc.metrics = mc.metrics[:n]
	}
}

// IsEnabled returns whether metrics collection is enabled.
func (mc *MetricsCollector) IsEnabled() bool {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.enabled
}

// RecordRound executes fn and records how long the round took and whether
// it failed. fn's error is returned unchanged.
func (mc *MetricsCollector) RecordRound(dispatcher string, round uint64, indices, workers int, fn func() error) error {
	if !mc.IsEnabled() {
		return fn()
	}

	start := time.Now()
	err := fn()
	duration := time.Since(start)

	metrics := RoundMetrics{
		Dispatcher: dispatcher,
		Round:      round,
		Indices:    indices,
		Workers:    workers,
		Duration:   duration,
		Completed:  start.Add(duration),
		Failed:     err != nil,
	}
	if err != nil {
		metrics.Error = err.Error()
	}

	mc.mu.Lock()
	mc.metrics = append(mc.metrics, metrics)
	mc.trim()
	mc.accumulate(metrics)
	mc.mu.Unlock()

	return err
}

// GetMetrics returns a copy of the retained metrics, oldest first.
func (mc *MetricsCollector) GetMetrics() []RoundMetrics {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	result := make([]RoundMetrics, len(mc.metrics))
	copy(result, mc.metrics)
	return result
}

// Clear removes all collected metrics.
func (mc *MetricsCollector) Clear() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.metrics = mc.metrics[:0]
	mc.totals = MetricsSummary{}
}

func (mc *MetricsCollector) accumulate(m RoundMetrics) {
	t := &mc.totals
	if t.RoundsByDispatcher == nil {
		t.RoundsByDispatcher = make(map[string]int)
	}
	t.TotalRounds++
	t.TotalIndices += int64(m.Indices)
	t.TotalDuration += m.Duration
	if m.Failed {
		t.FailedRounds++
	}
	t.RoundsByDispatcher[m.Dispatcher]++
}

// SetEnabled enables or disables metrics collection.
func (mc *MetricsCollector) SetEnabled(enabled bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.enabled = enabled
}

// GetSummary returns a summary of every round recorded since the last
// Clear, including rounds no longer retained.
func (mc *MetricsCollector) GetSummary() MetricsSummary {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	if mc.totals.TotalRounds == 0 {
		return MetricsSummary{}
	}

	summary := mc.totals
	summary.AverageDuration = summary.TotalDuration / time.Duration(summary.TotalRounds)
	summary.RoundsByDispatcher = maps.Clone(mc.totals.RoundsByDispatcher)
	return summary
}

// MetricsSummary provides aggregate statistics for collected metrics.
type MetricsSummary struct {
	TotalRounds        int            `json:"total_rounds"`
	TotalIndices       int64          `json:"total_indices"`
	FailedRounds       int            `json:"failed_rounds"`
	TotalDuration      time.Duration  `json:"total_duration"`
	AverageDuration    time.Duration  `json:"average_duration"`
	RoundsByDispatcher map[string]int `json:"rounds_by_dispatcher"`
}
