//nolint:testpackage // requires internal access to unexported types and functions
package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, server *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)
	return w
}

func TestMonitoringServer(t *testing.T) {
	collector := NewMetricsCollector(true)
	server := NewMonitoringServer(collector, ":8080")

	assert.NotNil(t, server)
	assert.Equal(t, collector, server.collector)
	assert.Equal(t, ":8080", server.Addr())
}

func TestMetricsEndpoint(t *testing.T) {
	t.Run("empty metrics", func(t *testing.T) {
		server := NewMonitoringServer(NewMetricsCollector(true), ":8080")

		w := serve(t, server, http.MethodGet, "/metrics")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var metrics []RoundMetrics
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &metrics))
		assert.Empty(t, metrics)
	})

	t.Run("metrics with data", func(t *testing.T) {
		collector := NewMetricsCollector(true)
		require.NoError(t, collector.RecordRound("scanline", 1, 64, 4, func() error { return nil }))
		server := NewMonitoringServer(collector, ":8080")

		w := serve(t, server, http.MethodGet, "/metrics")
		assert.Equal(t, http.StatusOK, w.Code)

		var metrics []RoundMetrics
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &metrics))
		require.Len(t, metrics, 1)
		assert.Equal(t, "scanline", metrics[0].Dispatcher)
		assert.Equal(t, 64, metrics[0].Indices)
	})

	t.Run("summary", func(t *testing.T) {
		collector := NewMetricsCollector(true)
		require.NoError(t, collector.RecordRound("scanline", 1, 64, 4, func() error { return nil }))
		server := NewMonitoringServer(collector, ":8080")

		w := serve(t, server, http.MethodGet, "/metrics/summary")
		assert.Equal(t, http.StatusOK, w.Code)

		var summary MetricsSummary
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
		assert.Equal(t, 1, summary.TotalRounds)
	})

	t.Run("invalid method", func(t *testing.T) {
		server := NewMonitoringServer(NewMetricsCollector(true), ":8080")

		w := serve(t, server, http.MethodPost, "/metrics")
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

func TestHealthEndpoint(t *testing.T) {
	t.Run("health check", func(t *testing.T) {
		server := NewMonitoringServer(NewMetricsCollector(true), ":8080")

		w := serve(t, server, http.MethodGet, "/health")

		assert.Equal(t, http.StatusOK, w.Code)
		var response map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "ok", response["status"])
		assert.Equal(t, true, response["enabled"])
		assert.NotEmpty(t, response["timestamp"])
	})

	t.Run("invalid method", func(t *testing.T) {
		server := NewMonitoringServer(NewMetricsCollector(true), ":8080")

		w := serve(t, server, http.MethodDelete, "/health")
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

func TestDashboardEndpoint(t *testing.T) {
	t.Run("dashboard HTML", func(t *testing.T) {
		collector := NewMetricsCollector(true)
		require.NoError(t, collector.RecordRound("<scan>", 1, 12000, 4, func() error { return nil }))
		require.Error(t, collector.RecordRound("<scan>", 2, 12000, 4, func() error { return assert.AnError }))
		server := NewMonitoringServer(collector, ":8080")

		w := serve(t, server, http.MethodGet, "/dashboard")

		body := w.Body.String()
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "text/html", w.Header().Get("Content-Type"))
		assert.Contains(t, body, "Dispatcher Monitoring")
		assert.Contains(t, body, "<html>")
		assert.Contains(t, body, "12,000")
		assert.Contains(t, body, "&lt;scan&gt;")
		assert.NotContains(t, body, "<scan>")
	})

	t.Run("disabled collector", func(t *testing.T) {
		server := NewMonitoringServer(NewMetricsCollector(false), ":8080")

		w := serve(t, server, http.MethodGet, "/dashboard")
		assert.Contains(t, w.Body.String(), "Disabled")
	})

	t.Run("invalid method", func(t *testing.T) {
		server := NewMonitoringServer(NewMetricsCollector(true), ":8080")

		w := serve(t, server, http.MethodPut, "/dashboard")
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

func TestUnknownRoute(t *testing.T) {
	server := NewMonitoringServer(NewMetricsCollector(true), ":8080")

	w := serve(t, server, http.MethodGet, "/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
