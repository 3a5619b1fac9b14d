//nolint:testpackage // requires internal access to unexported types and functions
package monitoring

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCollector(t *testing.T) {
	t.Run("create disabled collector", func(t *testing.T) {
		collector := NewMetricsCollector(false)
		assert.NotNil(t, collector)
		assert.False(t, collector.IsEnabled())
		assert.Empty(t, collector.GetMetrics())
	})

	t.Run("record round with disabled collector", func(t *testing.T) {
		collector := NewMetricsCollector(false)

		callCount := 0
		err := collector.RecordRound("pool", 1, 100, 4, func() error {
			callCount++
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 1, callCount)
		assert.Empty(t, collector.GetMetrics())
	})

	t.Run("record round with enabled collector", func(t *testing.T) {
		collector := NewMetricsCollector(true)

		err := collector.RecordRound("scanline", 7, 480, 8, func() error {
			time.Sleep(5 * time.Millisecond)
			return nil
		})
		require.NoError(t, err)

		metrics := collector.GetMetrics()
		require.Len(t, metrics, 1)

		metric := metrics[0]
		assert.Equal(t, "scanline", metric.Dispatcher)
		assert.Equal(t, uint64(7), metric.Round)
		assert.Equal(t, 480, metric.Indices)
		assert.Equal(t, 8, metric.Workers)
		assert.GreaterOrEqual(t, metric.Duration, 5*time.Millisecond)
		assert.False(t, metric.Failed)
		assert.Empty(t, metric.Error)
	})

	t.Run("failed round is recorded and error returned", func(t *testing.T) {
		collector := NewMetricsCollector(true)

		err := collector.RecordRound("pool", 1, 10, 2, func() error {
			return assert.AnError
		})

		assert.Equal(t, assert.AnError, err)

		metrics := collector.GetMetrics()
		require.Len(t, metrics, 1)
		assert.True(t, metrics[0].Failed)
		assert.Equal(t, assert.AnError.Error(), metrics[0].Error)
	})

	t.Run("clear metrics", func(t *testing.T) {
		collector := NewMetricsCollector(true)

		require.NoError(t, collector.RecordRound("pool", 1, 1, 1, func() error { return nil }))
		assert.Len(t, collector.GetMetrics(), 1)

		collector.Clear()
		assert.Empty(t, collector.GetMetrics())
	})

	t.Run("toggle enabled", func(t *testing.T) {
		collector := NewMetricsCollector(true)
		collector.SetEnabled(false)
		assert.False(t, collector.IsEnabled())
	})
}

func TestMetricsSummary(t *testing.T) {
	t.Run("empty summary", func(t *testing.T) {
		collector := NewMetricsCollector(true)
		assert.Equal(t, MetricsSummary{}, collector.GetSummary())
	})

	t.Run("aggregates rounds", func(t *testing.T) {
		collector := NewMetricsCollector(true)

		require.NoError(t, collector.RecordRound("a", 1, 100, 4, func() error { return nil }))
		require.NoError(t, collector.RecordRound("a", 2, 100, 4, func() error { return nil }))
		require.Error(t, collector.RecordRound("b", 1, 50, 2, func() error { return assert.AnError }))

		summary := collector.GetSummary()
		assert.Equal(t, 3, summary.TotalRounds)
		assert.Equal(t, int64(250), summary.TotalIndices)
		assert.Equal(t, 1, summary.FailedRounds)
		assert.Equal(t, map[string]int{"a": 2, "b": 1}, summary.RoundsByDispatcher)
		assert.Equal(t, summary.TotalDuration/3, summary.AverageDuration)
	})
}

func TestMetricsRetention(t *testing.T) {
	collector := NewMetricsCollector(true)
	assert.Equal(t, DefaultRetention, collector.Retention())

	collector.SetRetention(3)
	collector.SetRetention(0)
	assert.Equal(t, 3, collector.Retention())

	for round := range uint64(10) {
		require.NoError(t, collector.RecordRound("serve", round+1, 2, 1, func() error { return nil }))
	}

	metrics := collector.GetMetrics()
	require.Len(t, metrics, 3)
	assert.Equal(t, []uint64{8, 9, 10}, []uint64{metrics[0].Round, metrics[1].Round, metrics[2].Round})

	summary := collector.GetSummary()
	assert.Equal(t, 10, summary.TotalRounds)
	assert.Equal(t, int64(20), summary.TotalIndices)
	assert.Equal(t, map[string]int{"serve": 10}, summary.RoundsByDispatcher)

	collector.SetRetention(1)
	require.Len(t, collector.GetMetrics(), 1)
	assert.Equal(t, uint64(10), collector.GetMetrics()[0].Round)

	collector.Clear()
	assert.Empty(t, collector.GetMetrics())
	assert.Equal(t, MetricsSummary{}, collector.GetSummary())
}

func TestMetricsCollectorConcurrency(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping concurrency tests in short mode")
	}

	collector := NewMetricsCollector(true)

	const numRounds = 10
	var wg sync.WaitGroup
	for i := range numRounds {
		wg.Add(1)
		go func(round int) {
			defer wg.Done()
			err := collector.RecordRound("concurrent", uint64(round), 1, 1, func() error {
				time.Sleep(1 * time.Millisecond)
				return nil
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	metrics := collector.GetMetrics()
	assert.Len(t, metrics, numRounds)
	for _, metric := range metrics {
		assert.Equal(t, "concurrent", metric.Dispatcher)
	}
}
