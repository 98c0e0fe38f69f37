package crosscheck

import (
	"fmt"
	"strings"

	"github.com/danpilch/hoststat/pkg/collectors/network"
	"github.com/danpilch/hoststat/pkg/sampler"
	"github.com/danpilch/hoststat/pkg/use"
)

// SanityResult holds the outcome of one invariant check.
type SanityResult struct {
	Check   string `json:"check"`
	Passed  bool   `json:"passed"`
	Details string `json:"details"`
}

func pass(check, format string, args ...any) SanityResult {
	return SanityResult{Check: check, Passed: true, Details: fmt.Sprintf(format, args...)}
}

func fail(check, format string, args ...any) SanityResult {
	return SanityResult{Check: check, Details: fmt.Sprintf(format, args...)}
}

// SnapshotSanity checks snap against the guarantees of the collectors.
func SnapshotSanity(snap *sampler.Snapshot) []SanityResult {
	var results []SanityResult

	for i, core := range snap.Cores.Items() {
		sum := core.User + core.Nice + core.System + core.Idle + core.IOWait +
			core.IRQ + core.SoftIRQ + core.Steal + core.Virt
		check := fmt.Sprintf("cpu%d total", i)
		if sum == core.Total {
			results = append(results, pass(check, "%d jiffies", core.Total))
		} else {
			results = append(results, fail(check, "total %d != field sum %d", core.Total, sum))
		}
	}

	if snap.Err("Memory") == nil {
		m := snap.Memory
		if m.RAMFree <= m.RAMTotal {
			results = append(results, pass("RAM free within total", "%d <= %d", m.RAMFree, m.RAMTotal))
		} else {
			results = append(results, fail("RAM free within total", "%d > %d", m.RAMFree, m.RAMTotal))
		}
		if m.SwapFree <= m.SwapTotal {
			results = append(results, pass("swap free within total", "%d <= %d", m.SwapFree, m.SwapTotal))
		} else {
			results = append(results, fail("swap free within total", "%d > %d", m.SwapFree, m.SwapTotal))
		}
	}

	for _, fs := range snap.Filesystems.Items() {
		check := fmt.Sprintf("%s capacity", fs.Root)
		switch {
		case fs.Free > fs.Capacity:
			results = append(results, fail(check, "free %d > size %d", fs.Free, fs.Capacity))
		case fs.Available > fs.Free:
			results = append(results, fail(check, "available %d > free %d", fs.Available, fs.Free))
		default:
			results = append(results, pass(check, "avail %d <= free %d <= size %d", fs.Available, fs.Free, fs.Capacity))
		}

		if !fs.HasIO && (fs.Read != 0 || fs.Written != 0) {
			results = append(results, fail(fmt.Sprintf("%s I/O", fs.Root),
				"counters %d/%d without a disk statistics row", fs.Read, fs.Written))
		}
		if len(fs.Type) == 0 || len(fs.Root) == 0 {
			results = append(results, fail(fmt.Sprintf("%s fields", fs.Root), "empty root or type"))
		}
	}

	for i := range snap.Interfaces.Len() {
		name := snap.Interfaces.At(i).NameBytes()
		check := fmt.Sprintf("interface %d name", i)
		if len(name) == 0 || len(name) > network.NameSize-1 {
			results = append(results, fail(check, "length %d outside [1, %d]", len(name), network.NameSize-1))
		} else {
			results = append(results, pass(check, "%q", name))
		}
	}

	return results
}

// CheckSanity validates USE checks against physical constraints.
func CheckSanity(checks []use.Check) []SanityResult {
	var results []SanityResult

	for _, c := range checks {
		if c.Status == use.StatusUnknown {
			continue
		}
		check := fmt.Sprintf("%s %s", c.Resource, c.Type)

		if c.RawValue < 0 {
			results = append(results, fail(check, "negative value: %.2f", c.RawValue))
			continue
		}
		// Rates are utilization checks too but are not percentages.
		if c.Type == use.Utilization && strings.Contains(c.Value, "%") {
			if c.RawValue > 100 {
				results = append(results, fail(check, "utilization exceeds 100%%: %.2f", c.RawValue))
			} else {
				results = append(results, pass(check, "%.2f%% within [0, 100]", c.RawValue))
			}
		}
	}

	return results
}
