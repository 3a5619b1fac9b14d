package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server provides HTTP endpoints for monitoring dispatcher rounds.
type Server struct {
	collector *MetricsCollector
	router    chi.Router
	server    *http.Server
}

// NewMonitoringServer creates a new monitoring server listening on addr.
func NewMonitoringServer(collector *MetricsCollector, addr string) *Server {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	ms := &Server{
		collector: collector,
		router:    r,
		server: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second, //nolint:mnd // Standard timeout value
		},
	}

	r.Get("/metrics", ms.handleMetrics)
	r.Get("/metrics/summary", ms.handleSummary)
	r.Get("/health", ms.handleHealth)
	r.Get("/dashboard", ms.handleDashboard)

	return ms
}

// Handler returns the routed HTTP handler.
func (ms *Server) Handler() http.Handler {
	return ms.router
}

// Addr returns the configured listen address.
func (ms *Server) Addr() string {
	return ms.server.Addr
}

// Start starts the monitoring server. It returns http.ErrServerClosed after Shutdown.
func (ms *Server) Start() error {
	return ms.server.ListenAndServe()
}

// Shutdown gracefully stops the monitoring server.
func (ms *Server) Shutdown(ctx context.Context) error {
	return ms.server.Shutdown(ctx)
}

// Stop stops the monitoring server immediately.
func (ms *Server) Stop() error {
	return ms.server.Close()
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// handleMetrics serves the metrics endpoint.
func (ms *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, ms.collector.GetMetrics())
}

// handleSummary serves the aggregate summary.
func (ms *Server) handleSummary(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, ms.collector.GetSummary())
}

// handleHealth serves the health check endpoint.
func (ms *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"enabled":   ms.collector.IsEnabled(),
	})
}

// handleDashboard serves a simple HTML dashboard.
func (ms *Server) handleDashboard(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")

	if _, err := w.Write([]byte(generateDashboardHTML(ms.collector))); err != nil {
		http.Error(w, "Failed to write dashboard", http.StatusInternalServerError)
	}
}

// maxDashboardRows bounds the recent-rounds table.
const maxDashboardRows = 50

// generateDashboardHTML creates a simple HTML dashboard.
//
//nolint:funlen // HTML template generation requires inline content
func generateDashboardHTML(collector *MetricsCollector) string {
	metrics := collector.GetMetrics()
	summary := collector.GetSummary()

	statusClass := "enabled"
	statusText := "Enabled"
	if !collector.IsEnabled() {
		statusClass = "disabled"
		statusText = "Disabled"
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<!DOCTYPE html>
<html>
<head>
    <title>Dispatcher Monitoring</title>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .header { color: #2c3e50; border-bottom: 2px solid #3498db; padding-bottom: 10px; }
        .summary { background: #f8f9fa; padding: 15px; border-radius: 5px; margin: 20px 0; }
        .metrics-table { width: 100%%; border-collapse: collapse; margin: 20px 0; }
        .metrics-table th, .metrics-table td { border: 1px solid #ddd; padding: 8px; text-align: left; }
        .metrics-table th { background-color: #f2f2f2; }
        .status { padding: 4px 8px; border-radius: 3px; }
        .enabled { background-color: #d4edda; color: #155724; }
        .disabled { background-color: #f8d7da; color: #721c24; }
    </style>
</head>
<body>
    <h1 class="header">Dispatcher Monitoring Dashboard</h1>

    <div class="summary">
        <h2>Summary</h2>
        <p><strong>Status:</strong> <span class="status %s">%s</span></p>
        <p><strong>Total Rounds:</strong> %s</p>
        <p><strong>Failed Rounds:</strong> %s</p>
        <p><strong>Total Indices:</strong> %s</p>
        <p><strong>Total Duration:</strong> %v</p>
        <p><strong>Average Duration:</strong> %v</p>
    </div>

    <h2>Recent Rounds</h2>
    <table class="metrics-table">
        <thead>
            <tr>
                <th>Dispatcher</th>
                <th>Round</th>
                <th>Indices</th>
                <th>Workers</th>
                <th>Duration</th>
                <th>Completed</th>
                <th>Status</th>
            </tr>
        </thead>
        <tbody>`,
		statusClass, statusText,
		humanize.Comma(int64(summary.TotalRounds)),
		humanize.Comma(int64(summary.FailedRounds)),
		humanize.Comma(summary.TotalIndices),
		summary.TotalDuration,
		summary.AverageDuration,
	)

	start := max(0, len(metrics)-maxDashboardRows)
	for i := len(metrics) - 1; i >= start; i-- {
		metric := metrics[i]
		status := "ok"
		if metric.Failed {
			status = html.EscapeString(metric.Error)
		}
		fmt.Fprintf(&b, `
            <tr>
                <td>%s</td>
                <td>%d</td>
                <td>%s</td>
                <td>%d</td>
                <td>%v</td>
                <td>%s</td>
                <td>%s</td>
            </tr>`,
			html.EscapeString(metric.Dispatcher),
			metric.Round,
			humanize.Comma(int64(metric.Indices)),
			metric.Workers,
			metric.Duration,
			humanize.Time(metric.Completed),
			status,
		)
	}

	b.WriteString(`
        </tbody>
    </table>

    <h2>Rounds by Dispatcher</h2>
    <ul>`)

	names := make([]string, 0, len(summary.RoundsByDispatcher))
	for name := range summary.RoundsByDispatcher {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, `<li><strong>%s:</strong> %s rounds</li>`,
			html.EscapeString(name), humanize.Comma(int64(summary.RoundsByDispatcher[name])))
	}

	b.WriteString(`
    </ul>

    <script>
        setTimeout(function() {
            window.location.reload();
        }, 30000);
    </script>
</body>
</html>`)

	return b.String()
}
