// Package benchmark measures the latency and allocation cost of each
// collection operation on the running host.
package benchmark

import (
	"fmt"
	"io"
	"math"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/danpilch/hoststat/pkg/collectors"
	"github.com/danpilch/hoststat/pkg/use"
)

// Options configures a benchmark run.
type Options struct {
	Iterations int
	Warmup     int
}

// DefaultOptions returns sensible benchmark defaults.
func DefaultOptions() Options {
	return Options{
		Iterations: 100,
		Warmup:     3,
	}
}

// Result holds benchmark results for a single collector.
type Result struct {
	Collector string          `json:"collector"`
	Latencies []time.Duration `json:"-"`
	P50       time.Duration   `json:"p50"`
	P95       time.Duration   `json:"p95"`
	P99       time.Duration   `json:"p99"`
	StdDev    time.Duration   `json:"stddev"`

	// AllocsPerOp and BytesPerOp are heap allocations per Collect call.
	AllocsPerOp float64 `json:"allocs_per_op"`
	BytesPerOp  float64 `json:"bytes_per_op"`

	// Errors counts failed calls; the last failure is kept.
	Errors    int    `json:"errors"`
	LastError string `json:"last_error,omitempty"`
}

var (
	bmTitle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	bmHeader = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62")).Padding(0, 1)
	bmCell   = lipgloss.NewStyle().Padding(0, 1)
	bmDim    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// Run benchmarks each collector in turn. The collectors run serially so
// the allocation counters are attributable to one of them at a time.
func Run(cs []collectors.Collector, opts Options) []Result {
	if opts.Iterations < 1 {
		opts.Iterations = 1
	}

	results := make([]Result, 0, len(cs))
	for _, c := range cs {
		for i := 0; i < opts.Warmup; i++ {
			_ = c.Collect()
		}

		result := Result{
			Collector: c.Name(),
			Latencies: make([]time.Duration, opts.Iterations),
		}

		var before, after runtime.MemStats
		runtime.ReadMemStats(&before)
		for i := range result.Latencies {
			start := time.Now()
			err := c.Collect()
			result.Latencies[i] = time.Since(start)
			if err != nil {
				result.Errors++
				result.LastError = err.Error()
			}
		}
		runtime.ReadMemStats(&after)

		n := float64(opts.Iterations)
		result.AllocsPerOp = float64(after.Mallocs-before.Mallocs) / n
		result.BytesPerOp = float64(after.TotalAlloc-before.TotalAlloc) / n

		sorted := append([]time.Duration(nil), result.Latencies...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		result.P50 = percentile(sorted, 0.50)
		result.P95 = percentile(sorted, 0.95)
		result.P99 = percentile(sorted, 0.99)
		result.StdDev = stddev(sorted)

		results = append(results, result)
	}
	return results
}

// RenderResults outputs styled benchmark results.
func RenderResults(w io.Writer, results []Result) {
	fmt.Fprintln(w, bmTitle.Render("Collector Benchmark"))
	fmt.Fprintln(w, bmDim.Render(strings.Repeat("═", 70)))

	rows := make([][]string, len(results))
	for i, r := range results {
		errs := "-"
		if r.Errors > 0 {
			errs = fmt.Sprintf("%d (%s)", r.Errors, r.LastError)
		}
		rows[i] = []string{
			r.Collector,
			r.P50.String(), r.P95.String(), r.P99.String(), r.StdDev.String(),
			fmt.Sprintf("%.1f", r.AllocsPerOp),
			use.FormatBytes(r.BytesPerOp),
			errs,
		}
	}

	fmt.Fprintln(w, table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(bmDim).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return bmHeader
			}
			return bmCell
		}).
		Headers("COLLECTOR", "P50", "P95", "P99", "STDDEV", "ALLOCS/OP", "BYTES/OP", "ERRORS").
		Rows(rows...))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func stddev(values []time.Duration) time.Duration {
	if len(values) < 2 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += float64(v)
	}
	mean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		d := float64(v) - mean
		sq += d * d
	}
	return time.Duration(math.Sqrt(sq / float64(len(values))))
}
