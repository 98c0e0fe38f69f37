package debug

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/danpilch/hoststat/pkg/collectors"
)

var (
	debugTitle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	debugHeader = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62")).Padding(0, 1)
	debugDim    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// CollectorTiming records the duration of a collector's last Collect call.
type CollectorTiming struct {
	Name     string
	Duration time.Duration
	Err      error
}

// TimedCollector wraps a collector to record collection duration.
type TimedCollector struct {
	inner  collectors.Collector
	Timing CollectorTiming
}

// NewTimedCollector wraps a collector with timing instrumentation.
func NewTimedCollector(c collectors.Collector) *TimedCollector {
	return &TimedCollector{
		inner:  c,
		Timing: CollectorTiming{Name: c.Name()},
	}
}

// Name returns the wrapped collector's name.
func (t *TimedCollector) Name() string {
	return t.inner.Name()
}

// Collect runs the wrapped collector and records duration.
func (t *TimedCollector) Collect() error {
	start := time.Now()
	err := t.inner.Collect()
	t.Timing = CollectorTiming{
		Name:     t.inner.Name(),
		Duration: time.Since(start),
		Err:      err,
	}
	return err
}

// Timer hands out TimedCollectors and remembers them for a report.
type Timer struct {
	timed []*TimedCollector
}

// Wrap instruments c. Its signature fits sampler.WithWrap.
func (t *Timer) Wrap(c collectors.Collector) collectors.Collector {
	tc := NewTimedCollector(c)
	t.timed = append(t.timed, tc)
	return tc
}

// Timings returns the last timing of every wrapped collector in wrap order.
func (t *Timer) Timings() []CollectorTiming {
	out := make([]CollectorTiming, len(t.timed))
	for i, tc := range t.timed {
		out[i] = tc.Timing
	}
	return out
}

// TimingReport writes the last duration of every timed collector.
// Collectors run concurrently, so a pass takes as long as the slowest.
func TimingReport(w io.Writer, timings []CollectorTiming) {
	rows := make([][]string, 0, len(timings)+1)
	var slowest time.Duration
	for _, t := range timings {
		status := "ok"
		if t.Err != nil {
			status = "failed"
		}
		rows = append(rows, []string{t.Name, t.Duration.String(), status})
		slowest = max(slowest, t.Duration)
	}
	rows = append(rows, []string{"SLOWEST", slowest.String(), ""})

	fmt.Fprintln(w)
	fmt.Fprintln(w, debugTitle.Render("Collector Timing Report"))
	fmt.Fprintln(w, reportTable([]string{"COLLECTOR", "DURATION", "STATUS"}, rows))
}
