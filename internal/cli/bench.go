package cli

import (
	"fmt"
	"math"
	"runtime"
	"slices"

	"github.com/dustin/go-humanize"
	"github.com/paveg/dispatch/internal/monitoring"
	"github.com/paveg/dispatch/internal/parallel"
	"github.com/spf13/cobra"
)

func newBenchCmd() *cobra.Command {
	var count, rounds, work int

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure round throughput for several pool sizes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			suite := monitoring.NewBenchmarkSuite()
			results := make([]float64, count)

			for _, workers := range poolSizes(cfg.ResolveWorkers(runtime.NumCPU())) {
				d, err := parallel.New(count, parallel.IndexFunc(func(index int) {
					results[index] = spin(index, work)
				}),
					parallel.WithConfig(cfg),
					parallel.WithWorkers(workers),
					parallel.WithLogger(logger),
					parallel.WithName(fmt.Sprintf("bench-%d", workers)))
				if err != nil {
					return fmt.Errorf("create dispatcher: %w", err)
				}
				defer d.Finish()

				suite.AddScenario(monitoring.BenchmarkScenario{
					Name:        d.Name(),
					Description: fmt.Sprintf("%s indices on %d worker(s)", humanize.Comma(int64(count)), workers),
					Indices:     count,
					Workers:     workers,
					Rounds:      rounds,
					Operation:   func() error { return d.Run(cmd.Context()) },
				})
			}

			out := cmd.OutOrStdout()
			for _, result := range suite.Run() {
				if !result.Success {
					return fmt.Errorf("scenario %s: %s", result.Scenario.Name, result.ErrorMessage)
				}
				fmt.Fprintf(out, "%-10s %12s indices/sec  %v/round\n",
					result.Scenario.Name,
					humanize.Commaf(math.Round(result.IndicesPerSec)),
					result.AverageDuration)
			}
			fmt.Fprintln(out)
			fmt.Fprint(out, suite.GenerateReport())
			return nil
		},
	}

	cmd.Flags().IntVar(&count, "count", 100_000, "Indices per round")
	cmd.Flags().IntVar(&rounds, "rounds", 10, "Rounds per pool size")
	cmd.Flags().IntVar(&work, "work", 64, "Iterations of busy work per index")

	return cmd
}

// poolSizes returns 1, 2, 4, ... up to and including limit.
func poolSizes(limit int) []int {
	var sizes []int
	for n := 1; n < limit; n *= 2 {
		sizes = append(sizes, n)
	}
	sizes = append(sizes, max(1, limit))
	return slices.Compact(sizes)
}

// spin is a deterministic CPU-bound body for one index.
func spin(index, iterations int) float64 {
	x := float64(index)
	for range iterations {
		x = math.Sqrt(x*x + 1)
	}
	return x
}
