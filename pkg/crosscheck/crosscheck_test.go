package crosscheck

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danpilch/hoststat/pkg/bounded"
	"github.com/danpilch/hoststat/pkg/collectors/cpu"
	"github.com/danpilch/hoststat/pkg/collectors/filesystem"
	"github.com/danpilch/hoststat/pkg/collectors/memory"
	"github.com/danpilch/hoststat/pkg/collectors/network"
	"github.com/danpilch/hoststat/pkg/sampler"
	"github.com/danpilch/hoststat/pkg/use"
)

func TestCrossCheck(t *testing.T) {
	v := NewValidator()
	tests := []struct {
		name      string
		values    []float64
		consensus float64
		status    ValidationStatus
	}{
		{"no sources", nil, 0, StatusValid},
		{"single source", []float64{42}, 42, StatusValid},
		{"agreeing", []float64{100, 101, 100}, 100, StatusValid},
		{"even count median", []float64{100, 104}, 102, StatusValid},
		{"suspect", []float64{100, 100, 110}, 100, StatusSuspect},
		{"conflict", []float64{100, 100, 150}, 100, StatusConflict},
		{"zero consensus", []float64{0, 0, 3}, 0, StatusConflict},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			sources := make([]Source, len(test.values))
			for i, value := range test.values {
				sources[i] = Source{Name: "s", Value: value}
			}
			got := v.CrossCheck("metric", sources)
			if got.Consensus != test.consensus || got.Status != test.status {
				t.Errorf("CrossCheck() = %v (%s, dev %.2f), want %v (%s)",
					got.Consensus, got.Status, got.MaxDeviation, test.consensus, test.status)
			}
		})
	}
}

func newSnapshot(cores []cpu.CoreSample, fss []filesystem.FilesystemSample, names ...string) *sampler.Snapshot {
	snap := &sampler.Snapshot{
		Taken:       time.Now(),
		Cores:       bounded.NewList(make([]cpu.CoreSample, len(cores))),
		Filesystems: bounded.NewList(make([]filesystem.FilesystemSample, len(fss))),
		Interfaces:  bounded.NewList(make([]network.NetworkInterfaceSample, len(names))),
		Errors:      map[string]error{},
	}
	for _, c := range cores {
		slot, _ := snap.Cores.Next()
		*slot = c
	}
	for _, fs := range fss {
		slot, _ := snap.Filesystems.Next()
		*slot = fs
	}
	for i, name := range names {
		slot, _ := snap.Interfaces.Next()
		*slot = network.NetworkInterfaceSample{RecvBytes: uint64(100 * (i + 1))}
		_ = slot.SetName([]byte(name))
	}
	return snap
}

func core(user, idle uint64) cpu.CoreSample {
	return cpu.CoreSample{User: user, Idle: idle, Total: user + idle}
}

func TestSnapshotSanity(t *testing.T) {
	good := newSnapshot(
		[]cpu.CoreSample{core(10, 90)},
		[]filesystem.FilesystemSample{{Root: []byte("/"), Type: []byte("ext4"), Capacity: 100, Free: 50, Available: 40}},
		"eth0")
	good.Memory = memory.MemorySample{RAMTotal: 100, RAMFree: 10, SwapTotal: 10, SwapFree: 10}

	for _, r := range SnapshotSanity(good) {
		if !r.Passed {
			t.Errorf("%s failed on a valid snapshot: %s", r.Check, r.Details)
		}
	}

	bad := newSnapshot(
		[]cpu.CoreSample{{User: 10, Total: 11}},
		[]filesystem.FilesystemSample{
			{Root: []byte("/a"), Type: []byte("xfs"), Capacity: 100, Free: 150},
			{Root: []byte("/b"), Type: []byte("xfs"), Capacity: 100, Free: 10, Available: 20},
			{Root: []byte("/c"), Type: []byte("xfs"), Capacity: 100, Read: 5},
		})
	bad.Memory = memory.MemorySample{RAMTotal: 100, RAMFree: 200, SwapTotal: 0, SwapFree: 1}

	failed := map[string]bool{}
	for _, r := range SnapshotSanity(bad) {
		if !r.Passed {
			failed[r.Check] = true
		}
	}
	for _, want := range []string{"cpu0 total", "RAM free within total", "swap free within total", "/a capacity", "/b capacity", "/c I/O"} {
		if !failed[want] {
			t.Errorf("SnapshotSanity() did not flag %q", want)
		}
	}
}

func TestSnapshotSanitySkipsFailedMemory(t *testing.T) {
	snap := newSnapshot(nil, nil)
	snap.Memory = memory.MemorySample{RAMFree: 1}
	snap.Errors["Memory"] = errors.New("denied")

	if got := SnapshotSanity(snap); len(got) != 0 {
		t.Errorf("SnapshotSanity() = %+v, want no memory checks", got)
	}
}

func TestCheckSanity(t *testing.T) {
	checks := []use.Check{
		{Resource: "CPU (cpu0)", Type: use.Utilization, Value: "50.0%", RawValue: 50, Status: use.StatusOK},
		{Resource: "CPU (cpu1)", Type: use.Utilization, Value: "150.0%", RawValue: 150, Status: use.StatusError},
		{Resource: "Network (eth0)", Type: use.Utilization, Value: "2.0 MB/s", RawValue: 2 << 20, Status: use.StatusOK},
		{Resource: "Network (eth0)", Type: use.Errors, Value: "-1", RawValue: -1, Status: use.StatusWarning},
		{Resource: "Memory", Type: use.Utilization, Value: "unknown", RawValue: -5, Status: use.StatusUnknown},
	}

	results := CheckSanity(checks)
	if len(results) != 3 {
		t.Fatalf("CheckSanity() = %d results, want 3: %+v", len(results), results)
	}
	if !results[0].Passed || results[1].Passed || results[2].Passed {
		t.Errorf("CheckSanity() = %+v", results)
	}
}

func writeProc(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestGathererProcfs(t *testing.T) {
	root := writeProc(t, map[string]string{
		"stat": "cpu  300 0 100 600 0 0 0 0 0 0\n" +
			"cpu0 150 0 50 300 0 0 0 0 0 0\n" +
			"cpu1 150 0 50 300 0 0 0 0 0 0\n",
		"meminfo": "MemTotal:           4096 kB\n" +
			"MemFree:            1024 kB\n" +
			"SwapTotal:           512 kB\n" +
			"SwapFree:            512 kB\n",
		"net/dev": "Inter-|   Receive                                                |  Transmit\n" +
			" face |bytes    packets errs drop fifo frame compressed multicast|bytes    packets errs drop fifo colls carrier compressed\n" +
			"  eth0:     100       1    0    0    0     0          0         0      200       2    0    0    0     0       0          0\n" +
			"  eth1:     999       1    0    0    0     0          0         0      200       2    0    0    0     0       0          0\n",
	})
	g := NewGatherer(root, nil)
	if g.host {
		t.Fatal("gopsutil enabled for a fixture proc root")
	}

	snap := newSnapshot([]cpu.CoreSample{core(150, 300), core(150, 300)}, nil, "eth0", "eth1")
	snap.Memory = memory.MemorySample{RAMTotal: 4096 * 1024, SwapTotal: 512 * 1024}

	validations, sanity := Run(g, snap, nil)

	byMetric := map[string]ValidationResult{}
	for _, v := range validations {
		byMetric[v.Metric] = v
	}

	tests := []struct {
		metric string
		status ValidationStatus
	}{
		{"Core Count", StatusValid},
		{"cpu0 User Seconds", StatusValid},
		{"Memory Total", StatusValid},
		{"Swap Total", StatusValid},
		{"eth0 Receive Bytes", StatusValid},
		{"eth1 Receive Bytes", StatusConflict},
	}
	for _, test := range tests {
		v, ok := byMetric[test.metric]
		if !ok {
			t.Errorf("no validation for %s in %+v", test.metric, validations)
			continue
		}
		if v.Status != test.status || len(v.Sources) != 2 {
			t.Errorf("%s = %s with %d sources, want %s with 2", test.metric, v.Status, len(v.Sources), test.status)
		}
	}
	if _, ok := byMetric["Root Filesystem Size"]; ok {
		t.Error("root filesystem validated without a second source")
	}
	if !Failed(validations, sanity) {
		t.Error("Failed() = false with a conflicting interface")
	}
}

func TestGathererMissingProcRoot(t *testing.T) {
	g := NewGatherer(filepath.Join(t.TempDir(), "absent"), nil)
	snap := newSnapshot([]cpu.CoreSample{core(1, 1)}, nil)

	if got := g.CoreCount(snap); len(got) != 1 || got[0].Name != ownSource {
		t.Errorf("CoreCount() = %+v, want only the hoststat reading", got)
	}
	validations, _ := Run(g, snap, nil)
	if len(validations) != 0 {
		t.Errorf("Run() = %+v, want no validations with a single source", validations)
	}
}

func TestReport(t *testing.T) {
	validations := []ValidationResult{
		NewValidator().CrossCheck("Memory Total", []Source{{Name: "hoststat", Value: 100}, {Name: "procfs", Value: 100}}),
		NewValidator().CrossCheck("eth1 Receive Bytes", []Source{{Name: "hoststat", Value: 100}, {Name: "procfs", Value: 300}}),
	}
	sanity := []SanityResult{
		{Check: "cpu0 total", Passed: true, Details: "100 jiffies"},
		{Check: "/ capacity", Passed: false, Details: "free 2 > size 1"},
	}

	var buf bytes.Buffer
	Report(&buf, validations, sanity)
	for _, want := range []string{"Memory Total", "VALID", "CONFLICT", "hoststat=100", "1 of 2 sanity checks failed."} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("Report() missing %q", want)
		}
	}

	buf.Reset()
	if err := ReportJSON(&buf, validations, sanity); err != nil {
		t.Fatalf("ReportJSON() error = %v", err)
	}
	var got struct {
		Validations []ValidationResult `json:"validations"`
		Sanity      []SanityResult     `json:"sanity"`
		Failed      bool               `json:"failed"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(got.Validations) != 2 || len(got.Sanity) != 2 || !got.Failed {
		t.Errorf("ReportJSON() = %+v", got)
	}
}
