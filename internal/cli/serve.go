package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/paveg/dispatch/internal/errors"
	"github.com/paveg/dispatch/internal/monitoring"
	"github.com/paveg/dispatch/internal/parallel"
	"github.com/paveg/dispatch/internal/render"
	"github.com/spf13/cobra"
)

const (
	shutdownTimeout = 5 * time.Second
	minScale        = 1e-12
)

func newServeCmd() *cobra.Command {
	var (
		addr          string
		width, height int
		interval      time.Duration
		duration      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Render frames continuously and serve round metrics over HTTP",
		Long: "serve renders a zooming animation one round per frame until interrupted. " +
			"SIGINT or SIGTERM cancels the round in flight, which tears the pool down.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = cfg.MonitorAddr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			collector := monitoring.NewMetricsCollector(true)
			r, err := render.NewRenderer(width, height, render.DefaultScene(), nil,
				parallel.WithConfig(cfg),
				parallel.WithLogger(logger),
				parallel.WithMetrics(collector),
				parallel.WithName("serve"))
			if err != nil {
				return fmt.Errorf("create renderer: %w", err)
			}
			defer r.Close()

			// A listener failure cancels the render loop so serve exits with it.
			loopCtx, cancelLoop := context.WithCancelCause(ctx)
			defer cancelLoop(nil)

			server := monitoring.NewMonitoringServer(collector, addr)
			serveErr := make(chan error, 1)
			go func() {
				if err := server.Start(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
					serveErr <- err
					cancelLoop(err)
				}
				close(serveErr)
			}()
			logger.Info("monitoring server listening", "addr", addr, "workers", r.Workers())

			err = renderLoop(loopCtx, r, interval)

			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
				logger.Warn("monitoring server shutdown", "error", shutdownErr)
			}
			if listenErr := <-serveErr; listenErr != nil {
				return fmt.Errorf("monitoring server: %w", listenErr)
			}

			summary := collector.GetSummary()
			fmt.Fprintf(cmd.OutOrStdout(), "rendered %d frame(s), %d failed\n",
				summary.TotalRounds-summary.FailedRounds, summary.FailedRounds)
			return err
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Monitoring listen address (default from config)")
	cmd.Flags().IntVar(&width, "width", 160, "Frame width in pixels")
	cmd.Flags().IntVar(&height, "height", 120, "Frame height in pixels")
	cmd.Flags().DurationVar(&interval, "interval", 100*time.Millisecond, "Pause between frames")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Stop after this long (0 = until interrupted)")

	return cmd
}

// renderLoop renders until ctx is done. An interrupted round is the normal
// way out and is not reported as an error.
func renderLoop(ctx context.Context, r *render.Renderer, interval time.Duration) error {
	ticker := time.NewTicker(max(interval, time.Millisecond))
	defer ticker.Stop()

	for {
		if _, err := r.Render(ctx); err != nil {
			if errors.IsInterrupted(err) {
				logger.Info("render loop interrupted", "cause", context.Cause(ctx))
				return nil
			}
			return err
		}

		scene := r.Scene().Zoom(1.05)
		if scene.Scale < minScale {
			scene = render.DefaultScene()
		}
		r.SetScene(scene)

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
