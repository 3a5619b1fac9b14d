package monitoring

import (
	"sync"
)

//nolint:gochecknoglobals // process-wide collector picked up by dispatchers without their own
var (
	globalCollector *MetricsCollector
	globalMutex     sync.RWMutex
)

// SetGlobalCollector sets the global metrics collector.
func SetGlobalCollector(collector *MetricsCollector) {
	globalMutex.Lock()
	defer globalMutex.Unlock()
	globalCollector = collector
}

// GetGlobalCollector returns the global metrics collector.
// Returns nil if no global collector has been set.
func GetGlobalCollector() *MetricsCollector {
	globalMutex.RLock()
	defer globalMutex.RUnlock()
	return globalCollector
}

// RecordGlobalRound records a round using the global collector.
// If no global collector is set, fn runs without recording metrics.
func RecordGlobalRound(dispatcher string, round uint64, indices, workers int, fn func() error) error {
	collector := GetGlobalCollector()
	if collector == nil {
		return fn()
	}
	return collector.RecordRound(dispatcher, round, indices, workers, fn)
}

// IsGlobalMonitoringEnabled returns true if global monitoring is enabled.
func IsGlobalMonitoringEnabled() bool {
	collector := GetGlobalCollector()
	return collector != nil && collector.IsEnabled()
}

// EnableGlobalMonitoring creates and sets a global metrics collector.
func EnableGlobalMonitoring() {
	SetGlobalCollector(NewMetricsCollector(true))
}

// DisableGlobalMonitoring disables the global metrics collector.
func DisableGlobalMonitoring() {
	collector := GetGlobalCollector()
	if collector != nil {
		collector.SetEnabled(false)
	}
}

// ClearGlobalMetrics clears all metrics from the global collector.
func ClearGlobalMetrics() {
	collector := GetGlobalCollector()
	if collector != nil {
		collector.Clear()
	}
}

// GetGlobalMetrics returns metrics from the global collector.
func GetGlobalMetrics() []RoundMetrics {
	collector := GetGlobalCollector()
	if collector == nil {
		return []RoundMetrics{}
	}
	return collector.GetMetrics()
}

// GetGlobalSummary returns a summary from the global collector.
func GetGlobalSummary() MetricsSummary {
	collector := GetGlobalCollector()
	if collector == nil {
		return MetricsSummary{}
	}
	return collector.GetSummary()
}
