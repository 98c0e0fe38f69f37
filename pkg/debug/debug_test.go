package debug

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/danpilch/hoststat/pkg/collectors"
	"github.com/danpilch/hoststat/pkg/use"
	"github.com/sirupsen/logrus"
)

func TestTimedCollector(t *testing.T) {
	boom := errors.New("boom")
	tc := NewTimedCollector(collectors.Bind("Slow", func() error {
		time.Sleep(time.Millisecond)
		return boom
	}))

	if tc.Name() != "Slow" {
		t.Errorf("Name() = %q, want %q", tc.Name(), "Slow")
	}
	if err := tc.Collect(); !errors.Is(err, boom) {
		t.Errorf("Collect() error = %v, want %v", err, boom)
	}
	if tc.Timing.Duration < time.Millisecond {
		t.Errorf("Timing.Duration = %v, want at least 1ms", tc.Timing.Duration)
	}
	if !errors.Is(tc.Timing.Err, boom) {
		t.Errorf("Timing.Err = %v, want %v", tc.Timing.Err, boom)
	}
}

func TestTimer(t *testing.T) {
	var timer Timer
	a := timer.Wrap(collectors.Bind("A", func() error { return nil }))
	timer.Wrap(collectors.Bind("B", func() error { return nil }))
	_ = a.Collect()

	timings := timer.Timings()
	if len(timings) != 2 || timings[0].Name != "A" || timings[1].Name != "B" {
		t.Fatalf("Timings() = %+v, want A then B", timings)
	}
	if timings[1].Duration != 0 {
		t.Errorf("B Duration = %v before Collect, want 0", timings[1].Duration)
	}
}

func TestTimingReport(t *testing.T) {
	var buf bytes.Buffer
	TimingReport(&buf, []CollectorTiming{
		{Name: "CPU", Duration: 2 * time.Millisecond},
		{Name: "Network", Duration: 5 * time.Millisecond, Err: errors.New("x")},
	})
	out := buf.String()
	for _, want := range []string{"CPU", "Network", "failed", "SLOWEST", "5ms"} {
		if !strings.Contains(out, want) {
			t.Errorf("TimingReport() missing %q:\n%s", want, out)
		}
	}
}

func TestDumpRawMetrics(t *testing.T) {
	var buf bytes.Buffer
	DumpRawMetrics(&buf, []use.Check{{
		Resource: "Memory",
		Type:     use.Utilization,
		Value:    "75.0%",
		RawValue: 75,
		Status:   use.StatusWarning,
		Source:   "sysinfo(2)",
	}})
	out := buf.String()
	for _, want := range []string{"Memory", "utilization", "warning", "75.0000", "sysinfo(2)"} {
		if !strings.Contains(out, want) {
			t.Errorf("DumpRawMetrics() missing %q:\n%s", want, out)
		}
	}
}

func TestTraceHook(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.DebugLevel)
	logger.AddHook(NewTraceHook(&buf))

	logger.WithFields(logrus.Fields{
		"collector": "CPU",
		"duration":  "1ms",
		"cores":     4,
	}).Debug("Collector finished")
	logger.Info("plain")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d trace lines, want 2:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "[TRACE ") ||
		!strings.HasSuffix(lines[0], "] CPU: Collector finished cores=4 duration=1ms") {
		t.Errorf("trace line = %q", lines[0])
	}
	if !strings.HasSuffix(lines[1], "] -: plain") {
		t.Errorf("trace line = %q, want no collector", lines[1])
	}
}

func TestStartPprofServer(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	addr, stop, err := StartPprofServer("127.0.0.1:0", logger)
	if err != nil {
		t.Fatalf("StartPprofServer() error = %v", err)
	}
	defer stop()

	resp, err := http.Get("http://" + addr + "/debug/pprof/")
	if err != nil {
		t.Fatalf("GET /debug/pprof/ error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /debug/pprof/ status = %d, want 200", resp.StatusCode)
	}
}

func TestStartPprofServerBadAddr(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	if _, _, err := StartPprofServer("256.0.0.1:bad", logger); err == nil {
		t.Error("StartPprofServer() error = nil for an invalid address")
	}
}
