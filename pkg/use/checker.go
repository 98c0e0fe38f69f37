package use

import (
	"fmt"
	"sort"

	"github.com/danpilch/hoststat/pkg/collectors/filesystem"
	"github.com/danpilch/hoststat/pkg/collectors/network"
	"github.com/danpilch/hoststat/pkg/sampler"
	"github.com/sirupsen/logrus"
)

// Checker derives USE checks from consecutive snapshots.
type Checker struct {
	thresholds Thresholds
	logger     *logrus.Logger
}

// NewChecker creates a new USE method checker.
func NewChecker(thresholds Thresholds, logger *logrus.Logger) *Checker {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}
	return &Checker{
		thresholds: thresholds,
		logger:     logger,
	}
}

// Checks evaluates curr against thresholds. prev may be nil; rate and
// per-core checks need it and are left out without it.
func Checks(prev, curr *sampler.Snapshot, thresholds Thresholds) []Check {
	return NewChecker(thresholds, nil).Run(prev, curr)
}

// Run evaluates curr, using prev for the checks that need an interval.
// Every collector that failed in curr adds an unknown check.
func (c *Checker) Run(prev, curr *sampler.Snapshot) []Check {
	var checks []Check

	checks = append(checks, c.cpuChecks(prev, curr)...)
	if curr.Err("Memory") == nil {
		checks = append(checks, c.memoryChecks(curr)...)
	}
	checks = append(checks, c.filesystemChecks(prev, curr)...)
	checks = append(checks, c.networkChecks(prev, curr)...)

	names := make([]string, 0, len(curr.Errors))
	for name := range curr.Errors {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		err := curr.Errors[name]
		c.logger.WithFields(logrus.Fields{
			"collector": name,
			"error":     err,
		}).Warn("Collector failed")

		checks = append(checks, Check{
			Resource:    name,
			Type:        Utilization,
			Value:       "unknown",
			Status:      StatusUnknown,
			Description: err.Error(),
		})
	}

	c.logger.WithField("count", len(checks)).Debug("Checks evaluated")
	return checks
}

func (c *Checker) cpuChecks(prev, curr *sampler.Snapshot) []Check {
	if prev == nil {
		return nil
	}

	var checks []Check
	n := min(prev.Cores.Len(), curr.Cores.Len())
	for i := 0; i < n; i++ {
		busy, ok := sampler.CoreBusyPercent(*prev.Cores.At(i), *curr.Cores.At(i))
		if !ok {
			c.logger.WithField("cpu", i).Debug("No jiffies elapsed")
			continue
		}
		checks = append(checks, Check{
			Resource:    fmt.Sprintf("CPU (cpu%d)", i),
			Type:        Utilization,
			Value:       fmt.Sprintf("%.1f%%", busy),
			RawValue:    busy,
			Status:      c.thresholds.EvaluateUtilization(busy),
			Description: "Share of the interval the core was not idle",
			Source:      "/proc/stat",
		})
	}
	return checks
}

func (c *Checker) memoryChecks(curr *sampler.Snapshot) []Check {
	mem := curr.Memory
	if mem.RAMTotal == 0 {
		return nil
	}

	var used uint64
	if mem.RAMTotal > mem.RAMFree+mem.RAMBuffer {
		used = mem.RAMTotal - mem.RAMFree - mem.RAMBuffer
	}
	pct := percent(used, mem.RAMTotal)

	checks := []Check{{
		Resource:    "Memory",
		Type:        Utilization,
		Value:       fmt.Sprintf("%.1f%% (%s of %s)", pct, FormatBytes(float64(used)), FormatBytes(float64(mem.RAMTotal))),
		RawValue:    pct,
		Status:      c.thresholds.EvaluateUtilization(pct),
		Description: "RAM in use, excluding buffers",
		Source:      "sysinfo",
	}}

	swapPct := 0.0
	if mem.SwapTotal > 0 && mem.SwapTotal >= mem.SwapFree {
		swapPct = percent(mem.SwapTotal-mem.SwapFree, mem.SwapTotal)
	}
	checks = append(checks, Check{
		Resource:    "Memory",
		Type:        Saturation,
		Value:       fmt.Sprintf("%.1f%% swap used", swapPct),
		RawValue:    swapPct,
		Status:      EvaluateSaturation(swapPct, c.thresholds.SwapWarn),
		Description: "Swap in use indicates memory pressure",
		Source:      "sysinfo",
	})
	return checks
}

func (c *Checker) filesystemChecks(prev, curr *sampler.Snapshot) []Check {
	var checks []Check

	for i := range curr.Filesystems.Len() {
		fs := curr.Filesystems.At(i)
		resource := fmt.Sprintf("Filesystem (%s)", fs.Root)

		// Capacity as df reports it: reserved blocks count as unavailable.
		var used uint64
		if fs.Capacity > fs.Free {
			used = fs.Capacity - fs.Free
		}
		if usable := used + fs.Available; usable > 0 {
			pct := percent(used, usable)
			checks = append(checks, Check{
				Resource:    resource,
				Type:        Utilization,
				Value:       fmt.Sprintf("%.1f%% (%s free)", pct, FormatBytes(float64(fs.Available))),
				RawValue:    pct,
				Status:      c.thresholds.EvaluateUtilization(pct),
				Description: "Filesystem capacity in use",
				Source:      "statfs",
			})
		}

		if prev == nil || !fs.HasIO {
			continue
		}
		before := findFilesystem(prev, fs)
		if before == nil || !before.HasIO {
			continue
		}
		seconds := curr.Taken.Sub(prev.Taken).Seconds()
		if seconds <= 0 {
			continue
		}
		rate := float64(delta(before.Read, fs.Read)+delta(before.Written, fs.Written)) / seconds
		checks = append(checks, Check{
			Resource:    resource,
			Type:        Utilization,
			Value:       FormatBytes(rate) + "/s",
			RawValue:    rate,
			Status:      StatusOK, // No device bandwidth to compare against.
			Description: "Device throughput",
			Source:      "/proc/diskstats",
		})
	}
	return checks
}

func (c *Checker) networkChecks(prev, curr *sampler.Snapshot) []Check {
	var checks []Check

	for i := range curr.Interfaces.Len() {
		netif := curr.Interfaces.At(i)
		name := netif.Name()
		if name == "lo" {
			continue
		}
		resource := fmt.Sprintf("Network (%s)", name)

		// Without an earlier sample the counters since boot are used.
		var before network.NetworkInterfaceSample
		var seconds float64
		if prev != nil {
			if b := findInterface(prev, netif); b != nil {
				before = *b
				seconds = curr.Taken.Sub(prev.Taken).Seconds()
			}
		}

		if seconds > 0 {
			rate := float64(delta(before.RecvBytes, netif.RecvBytes)+delta(before.TransBytes, netif.TransBytes)) / seconds
			checks = append(checks, Check{
				Resource:    resource,
				Type:        Utilization,
				Value:       FormatBytes(rate) + "/s",
				RawValue:    rate,
				Status:      StatusOK, // Link speed is not known.
				Description: "Network throughput",
				Source:      "/proc/net/dev",
			})
		}

		drops := delta(before.RecvDrop, netif.RecvDrop) + delta(before.TransDrop, netif.TransDrop)
		checks = append(checks, Check{
			Resource:    resource,
			Type:        Saturation,
			Value:       fmt.Sprintf("%d drops", drops),
			RawValue:    float64(drops),
			Status:      EvaluateErrors(drops),
			Description: "Dropped packets indicate network saturation",
			Source:      "/proc/net/dev",
		})

		errs := delta(before.RecvErrs, netif.RecvErrs) + delta(before.TransErrs, netif.TransErrs)
		checks = append(checks, Check{
			Resource:    resource,
			Type:        Errors,
			Value:       fmt.Sprintf("%d", errs),
			RawValue:    float64(errs),
			Status:      EvaluateErrors(errs),
			Description: "Network interface errors",
			Source:      "/proc/net/dev",
		})
	}
	return checks
}

func findFilesystem(snap *sampler.Snapshot, fs *filesystem.FilesystemSample) *filesystem.FilesystemSample {
	for i := range snap.Filesystems.Len() {
		if other := snap.Filesystems.At(i); other.Device == fs.Device && string(other.Root) == string(fs.Root) {
			return other
		}
	}
	return nil
}

func findInterface(snap *sampler.Snapshot, netif *network.NetworkInterfaceSample) *network.NetworkInterfaceSample {
	for i := range snap.Interfaces.Len() {
		if other := snap.Interfaces.At(i); string(other.NameBytes()) == string(netif.NameBytes()) {
			return other
		}
	}
	return nil
}

// delta returns curr-prev, or curr when the counter went backwards.
func delta(prev, curr uint64) uint64 {
	if curr < prev {
		return curr
	}
	return curr - prev
}

func percent(part, whole uint64) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) * 100 / float64(whole)
}

// FormatBytes formats bytes into human-readable format.
func FormatBytes(b float64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%.0f B", b)
	}
	div, exp := float64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", b/div, "KMGTPE"[exp])
}
