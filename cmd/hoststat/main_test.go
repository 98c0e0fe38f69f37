package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func procFixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"stat": "cpu  200 0 100 700 0 0 0 0 0 0\n" +
			"cpu0 100 0 50 350 0 0 0 0 0 0\n" +
			"cpu1 100 0 50 350 0 0 0 0 0 0\n",
		"filesystems": "nodev\tproc\n",
		"mounts":      "proc /proc proc rw 0 0\n",
		"diskstats":   "",
		"net/dev": "Inter-|   Receive\n" +
			" face |bytes packets\n" +
			"  eth0: 100 2 0 0 0 0 0 0 200 4 0 0 0 0 0 0\n",
	}
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

func envFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hoststat.env")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSnapshotJSON(t *testing.T) {
	env := envFile(t, "HOSTSTAT_PROC_ROOT="+procFixture(t)+"\nHOSTSTAT_FORMAT=json\n")

	out, err := execute(t, "snapshot", "--env-file", env)
	if err != nil {
		t.Fatalf("snapshot error = %v", err)
	}

	var snap struct {
		Cores      []map[string]uint64 `json:"cores"`
		Interfaces []struct {
			Name      string `json:"name"`
			RecvBytes uint64 `json:"recv_bytes"`
		} `json:"interfaces"`
	}
	if err := json.Unmarshal([]byte(out), &snap); err != nil {
		t.Fatalf("snapshot output is not JSON: %v\n%s", err, out)
	}
	if len(snap.Cores) != 2 || snap.Cores[0]["total"] != 500 {
		t.Errorf("cores = %v, want 2 cores with total 500", snap.Cores)
	}
	if len(snap.Interfaces) != 1 || snap.Interfaces[0].Name != "eth0" || snap.Interfaces[0].RecvBytes != 100 {
		t.Errorf("interfaces = %+v, want eth0 with 100 bytes received", snap.Interfaces)
	}
}

func TestFlagsOverrideEnvFile(t *testing.T) {
	env := envFile(t, "HOSTSTAT_PROC_ROOT=/nonexistent\nHOSTSTAT_FORMAT=tsv\n")

	out, err := execute(t, "snapshot", "--env-file", env, "--proc-root", procFixture(t), "-o", "json")
	if err != nil {
		t.Fatalf("snapshot error = %v", err)
	}
	if !json.Valid([]byte(out)) {
		t.Errorf("snapshot output is not JSON:\n%s", out)
	}
	if strings.Contains(out, "/nonexistent") {
		t.Errorf("snapshot used the env file's proc root:\n%s", out)
	}
}

func TestInvalidConfiguration(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"interval", []string{"snapshot", "--interval", "0s"}, "interval"},
		{"format", []string{"snapshot", "-o", "yaml"}, "format"},
		{"log level", []string{"snapshot", "--log-level", "loud"}, "log level"},
		{"env file", []string{"snapshot", "--env-file", "/nonexistent/hoststat.env"}, "hoststat.env"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := execute(t, test.args...)
			if err == nil || !strings.Contains(err.Error(), test.want) {
				t.Errorf("error = %v, want one mentioning %q", err, test.want)
			}
		})
	}
}

func TestWatchCount(t *testing.T) {
	out, err := execute(t, "watch", "--proc-root", procFixture(t), "-o", "json", "--interval", "5ms", "--count", "2")
	if err != nil {
		t.Fatalf("watch error = %v", err)
	}

	var lines int
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		var line struct {
			Busy []*float64 `json:"busy"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			t.Fatalf("watch line %q: %v", scanner.Text(), err)
		}
		// The fixture never changes, so no jiffies elapse.
		if len(line.Busy) != 2 || line.Busy[0] != nil || line.Busy[1] != nil {
			t.Errorf("busy = %v, want two idle-interval cores", line.Busy)
		}
		lines++
	}
	if lines != 2 {
		t.Errorf("watch printed %d lines, want 2", lines)
	}
}

func TestWatchTable(t *testing.T) {
	out, err := execute(t, "watch", "--proc-root", procFixture(t), "--interval", "5ms", "-n", "1")
	if err != nil {
		t.Fatalf("watch error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("watch printed %q, want a header and one row", out)
	}
	if lines[0] != "TIME      cpu0  cpu1" {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasSuffix(lines[1], "     -     -") {
		t.Errorf("row = %q, want both cores as -", lines[1])
	}
	if len(lines[0]) != len(lines[1]) {
		t.Errorf("header and row widths differ: %d and %d", len(lines[0]), len(lines[1]))
	}
}

func TestCheck(t *testing.T) {
	out, err := execute(t, "check", "--proc-root", procFixture(t), "-o", "json", "--interval", "5ms")

	var exit *exitError
	if err != nil && !errors.As(err, &exit) {
		t.Fatalf("check error = %v", err)
	}

	var result struct {
		Checks []struct {
			Resource string `json:"resource"`
			Status   string `json:"status"`
		} `json:"checks"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("check output is not JSON: %v\n%s", err, out)
	}
	var sawEth0 bool
	for _, c := range result.Checks {
		if strings.Contains(c.Resource, "eth0") {
			sawEth0 = true
			if c.Status != "ok" {
				t.Errorf("%s status = %q, want ok", c.Resource, c.Status)
			}
		}
	}
	if !sawEth0 {
		t.Errorf("no eth0 checks in %s", out)
	}
}

func TestCoreHeader(t *testing.T) {
	tests := []struct {
		cores int
		want  string
	}{
		{0, "TIME    "},
		{1, "TIME      cpu0"},
		{3, "TIME      cpu0  cpu1  cpu2"},
	}
	for _, test := range tests {
		if got := coreHeader(test.cores); got != test.want {
			t.Errorf("coreHeader(%d) = %q, want %q", test.cores, got, test.want)
		}
	}
}

func TestNewLoggerTrace(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, "error", false, true)
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	logger.WithField("collector", "CPU").Debug("Collector finished")
	if !strings.Contains(buf.String(), "] CPU: Collector finished") {
		t.Errorf("trace output = %q", buf.String())
	}
}

func TestCheckBaseline(t *testing.T) {
	root := procFixture(t)
	dir := t.TempDir()

	_, err := execute(t, "check", "--proc-root", root, "-o", "json", "--interval", "5ms",
		"--save-baseline", "idle", "--baseline-dir", dir)
	var exit *exitError
	if err != nil && !errors.As(err, &exit) {
		t.Fatalf("check --save-baseline error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "idle.json")); err != nil {
		t.Fatalf("baseline not saved: %v", err)
	}

	out, err := execute(t, "check", "--proc-root", root, "-o", "json", "--interval", "5ms",
		"--baseline", "idle", "--baseline-dir", dir)
	if err != nil && !errors.As(err, &exit) {
		t.Fatalf("check --baseline error = %v", err)
	}
	if !strings.Contains(out, `"baseline":"idle"`) {
		t.Errorf("check --baseline output has no comparison:\n%s", out)
	}

	if _, err := execute(t, "check", "--proc-root", root, "--interval", "5ms",
		"--baseline", "absent", "--baseline-dir", dir); err == nil || errors.As(err, &exit) {
		t.Errorf("check --baseline absent error = %v, want a load failure", err)
	}
}
