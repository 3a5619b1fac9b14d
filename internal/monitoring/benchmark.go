package monitoring

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

const (
	defaultIndices = 1000
	defaultRounds  = 10
	percentageBase = 100
)

// BenchmarkScenario represents a single benchmark scenario. Operation runs
// one round of Indices indices and is invoked Rounds times.
type BenchmarkScenario struct {
	Name        string
	Description string
	Indices     int
	Workers     int
	Rounds      int
	Operation   func() error
}

// BenchmarkResult contains the results of running a benchmark scenario.
type BenchmarkResult struct {
	Scenario          BenchmarkScenario `json:"scenario"`
	Duration          time.Duration     `json:"duration"`
	AverageDuration   time.Duration     `json:"average_duration"`
	MinDuration       time.Duration     `json:"min_duration"`
	MaxDuration       time.Duration     `json:"max_duration"`
	MemoryAllocated   uint64            `json:"memory_allocated"`
	MemoryAllocations uint64            `json:"memory_allocations"`
	RoundsPerSec      float64           `json:"rounds_per_sec"`
	IndicesPerSec     float64           `json:"indices_per_sec"`
	Success           bool              `json:"success"`
	ErrorMessage      string            `json:"error_message,omitempty"`
}

// BenchmarkSuite manages and executes a collection of benchmark scenarios.
type BenchmarkSuite struct {
	scenarios []BenchmarkScenario
	results   []BenchmarkResult
}

// NewBenchmarkSuite creates a new benchmark suite.
func NewBenchmarkSuite() *BenchmarkSuite {
	return &BenchmarkSuite{
		scenarios: make([]BenchmarkScenario, 0),
		results:   make([]BenchmarkResult, 0),
	}
}

// AddScenario adds a benchmark scenario to the suite.
func (bs *BenchmarkSuite) AddScenario(scenario BenchmarkScenario) {
	bs.scenarios = append(bs.scenarios, scenario)
}

// AddQuickScenario adds a scenario with default index count and rounds.
func (bs *BenchmarkSuite) AddQuickScenario(name, description string, operation func() error) {
	bs.AddScenario(BenchmarkScenario{
		Name:        name,
		Description: description,
		Indices:     defaultIndices,
		Rounds:      defaultRounds,
		Operation:   operation,
	})
}

// Run executes all benchmark scenarios and returns the results.
func (bs *BenchmarkSuite) Run() []BenchmarkResult {
	bs.results = make([]BenchmarkResult, 0, len(bs.scenarios))

	for _, scenario := range bs.scenarios {
		bs.results = append(bs.results, bs.runScenario(scenario))
	}

	return bs.results
}

// runScenario executes a single benchmark scenario.
func (bs *BenchmarkSuite) runScenario(scenario BenchmarkScenario) BenchmarkResult {
	if scenario.Rounds <= 0 {
		scenario.Rounds = 1
	}

	durations := make([]time.Duration, 0, scenario.Rounds)
	var totalDuration time.Duration
	var memBefore, memAfter runtime.MemStats
	success := true
	errorMessage := ""

	runtime.GC()
	runtime.ReadMemStats(&memBefore)

	for i := range scenario.Rounds {
		start := time.Now()

		if err := scenario.Operation(); err != nil {
			success = false
			errorMessage = fmt.Sprintf("Round %d failed: %v", i+1, err)
			break
		}

		duration := time.Since(start)
		durations = append(durations, duration)
		totalDuration += duration
	}

	runtime.GC()
	runtime.ReadMemStats(&memAfter)

	var avgDuration, minDuration, maxDuration time.Duration
	if len(durations) > 0 {
		avgDuration = totalDuration / time.Duration(len(durations))
		minDuration = durations[0]
		maxDuration = durations[0]

		for _, d := range durations {
			minDuration = min(minDuration, d)
			maxDuration = max(maxDuration, d)
		}
	}

	var roundsPerSec, indicesPerSec float64
	if avgDuration > 0 {
		roundsPerSec = 1.0 / avgDuration.Seconds()
		indicesPerSec = float64(scenario.Indices) / avgDuration.Seconds()
	}

	return BenchmarkResult{
		Scenario:          scenario,
		Duration:          totalDuration,
		AverageDuration:   avgDuration,
		MinDuration:       minDuration,
		MaxDuration:       maxDuration,
		MemoryAllocated:   memAfter.TotalAlloc - memBefore.TotalAlloc,
		MemoryAllocations: memAfter.Mallocs - memBefore.Mallocs,
		RoundsPerSec:      roundsPerSec,
		IndicesPerSec:     indicesPerSec,
		Success:           success,
		ErrorMessage:      errorMessage,
	}
}

// GetResults returns the benchmark results.
func (bs *BenchmarkSuite) GetResults() []BenchmarkResult {
	return bs.results
}

// GenerateReport generates a markdown report of the benchmark results.
func (bs *BenchmarkSuite) GenerateReport() string {
	if len(bs.results) == 0 {
		return "# Benchmark Report\n\nNo benchmark results available.\n"
	}

	var report strings.Builder

	report.WriteString("# Dispatcher Benchmark Report\n\n")
	fmt.Fprintf(&report, "Generated: %s\n\n", time.Now().Format(time.RFC3339))

	bs.generateSummaryTable(&report)
	bs.generateDetailedResults(&report)
	bs.generateInsights(&report)

	return report.String()
}

func (bs *BenchmarkSuite) generateSummaryTable(report *strings.Builder) {
	report.WriteString("## Summary\n\n")
	report.WriteString("| Scenario | Workers | Rounds | Avg Round | Indices/Sec | Allocated | Status |\n")
	report.WriteString("|----------|---------|--------|-----------|-------------|-----------|--------|\n")

	for _, result := range bs.results {
		status := "ok"
		if !result.Success {
			status = "failed"
		}

		fmt.Fprintf(report, "| %s | %d | %d | %v | %s | %s | %s |\n",
			result.Scenario.Name,
			result.Scenario.Workers,
			result.Scenario.Rounds,
			result.AverageDuration,
			humanize.Commaf(float64(int64(result.IndicesPerSec))),
			humanize.Bytes(result.MemoryAllocated),
			status)
	}

	report.WriteString("\n")
}

func (bs *BenchmarkSuite) generateDetailedResults(report *strings.Builder) {
	report.WriteString("## Detailed Results\n\n")

	for _, result := range bs.results {
		fmt.Fprintf(report, "### %s\n\n", result.Scenario.Name)

		if result.Scenario.Description != "" {
			fmt.Fprintf(report, "**Description:** %s\n\n", result.Scenario.Description)
		}

		fmt.Fprintf(report, "- **Indices per Round:** %s\n", humanize.Comma(int64(result.Scenario.Indices)))
		fmt.Fprintf(report, "- **Rounds:** %d\n", result.Scenario.Rounds)
		fmt.Fprintf(report, "- **Total Duration:** %v\n", result.Duration)
		fmt.Fprintf(report, "- **Average Round:** %v\n", result.AverageDuration)
		fmt.Fprintf(report, "- **Fastest Round:** %v\n", result.MinDuration)
		fmt.Fprintf(report, "- **Slowest Round:** %v\n", result.MaxDuration)
		fmt.Fprintf(report, "- **Rounds/Second:** %.2f\n", result.RoundsPerSec)
		fmt.Fprintf(report, "- **Memory Allocated:** %s\n", humanize.Bytes(result.MemoryAllocated))
		fmt.Fprintf(report, "- **Memory Allocations:** %s\n", humanize.Comma(int64(result.MemoryAllocations))) //nolint:gosec // allocation counts fit in int64

		if !result.Success {
			fmt.Fprintf(report, "- **Error:** %s\n", result.ErrorMessage)
		}

		report.WriteString("\n")
	}
}

func (bs *BenchmarkSuite) generateInsights(report *strings.Builder) {
	report.WriteString("## Insights\n\n")

	if len(bs.results) > 1 {
		fastest, slowest := bs.findFastestAndSlowest()

		fmt.Fprintf(report, "- **Fastest Scenario:** %s (%v average)\n",
			fastest.Scenario.Name, fastest.AverageDuration)
		fmt.Fprintf(report, "- **Slowest Scenario:** %s (%v average)\n",
			slowest.Scenario.Name, slowest.AverageDuration)

		if fastest.AverageDuration > 0 {
			speedup := float64(slowest.AverageDuration) / float64(fastest.AverageDuration)
			fmt.Fprintf(report, "- **Speedup:** %.2fx (fastest vs slowest)\n", speedup)
		}
	}

	successful, _ := bs.countSuccessAndFailure()

	fmt.Fprintf(report, "- **Success Rate:** %d/%d (%.1f%%)\n",
		successful, len(bs.results), float64(successful)/float64(len(bs.results))*percentageBase)
}

func (bs *BenchmarkSuite) findFastestAndSlowest() (BenchmarkResult, BenchmarkResult) {
	fastest := bs.results[0]
	slowest := bs.results[0]

	for _, result := range bs.results[1:] {
		if result.Success && result.AverageDuration < fastest.AverageDuration {
			fastest = result
		}
		if result.Success && result.AverageDuration > slowest.AverageDuration {
			slowest = result
		}
	}

	return fastest, slowest
}

func (bs *BenchmarkSuite) countSuccessAndFailure() (int, int) {
	var successful, failed int
	for _, result := range bs.results {
		if result.Success {
			successful++
		} else {
			failed++
		}
	}
	return successful, failed
}

// Clear removes all scenarios and results from the suite.
func (bs *BenchmarkSuite) Clear() {
	bs.scenarios = bs.scenarios[:0]
	bs.results = bs.results[:0]
}
