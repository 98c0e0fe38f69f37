package crosscheck

import (
	"path/filepath"

	"github.com/danpilch/hoststat/pkg/sampler"
	"github.com/prometheus/procfs"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
	"github.com/sirupsen/logrus"
)

const (
	ownSource    = "hoststat"
	procfsSource = "procfs"
	psutilSource = "gopsutil"
	hostProcRoot = "/proc"
	userHZ       = 100
	kibibyte     = 1024
)

// Gatherer reads the quantities hoststat reports through prometheus/procfs
// and gopsutil.
type Gatherer struct {
	fs     procfs.FS
	fsErr  error
	host   bool
	logger *logrus.Logger
}

// NewGatherer creates a gatherer for procRoot. gopsutil always reads the
// live host, so it only takes part when procRoot is the host's /proc.
func NewGatherer(procRoot string, logger *logrus.Logger) *Gatherer {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}
	if procRoot == "" {
		procRoot = hostProcRoot
	}
	fs, err := procfs.NewFS(procRoot)
	return &Gatherer{
		fs:     fs,
		fsErr:  err,
		host:   filepath.Clean(procRoot) == hostProcRoot,
		logger: logger,
	}
}

func (g *Gatherer) skip(source, metric string, err error) {
	g.logger.WithFields(logrus.Fields{
		"source": source,
		"metric": metric,
		"error":  err,
	}).Debug("Reference source unavailable")
}

// CoreCount compares the number of cores.
func (g *Gatherer) CoreCount(snap *sampler.Snapshot) []Source {
	const metric = "Core Count"
	sources := []Source{{Name: ownSource, Value: float64(snap.Cores.Len()), Unit: "cores"}}

	if g.fsErr == nil {
		if stat, err := g.fs.Stat(); err == nil {
			sources = append(sources, Source{Name: procfsSource, Value: float64(len(stat.CPU)), Unit: "cores"})
		} else {
			g.skip(procfsSource, metric, err)
		}
	}
	if g.host {
		if n, err := cpu.Counts(true); err == nil {
			sources = append(sources, Source{Name: psutilSource, Value: float64(n), Unit: "cores"})
		} else {
			g.skip(psutilSource, metric, err)
		}
	}
	return sources
}

// CoreUserSeconds compares the user time of the first core. The readings
// are taken moments apart, so small deviations are expected.
func (g *Gatherer) CoreUserSeconds(snap *sampler.Snapshot) []Source {
	const metric = "cpu0 User Seconds"
	if snap.Cores.Len() == 0 {
		return nil
	}
	sources := []Source{{Name: ownSource, Value: float64(snap.Cores.At(0).User) / userHZ, Unit: "s"}}

	if g.fsErr == nil {
		if stat, err := g.fs.Stat(); err == nil && len(stat.CPU) > 0 {
			sources = append(sources, Source{Name: procfsSource, Value: stat.CPU[0].User, Unit: "s"})
		} else if err != nil {
			g.skip(procfsSource, metric, err)
		}
	}
	if g.host {
		if times, err := cpu.Times(true); err == nil && len(times) > 0 {
			sources = append(sources, Source{Name: psutilSource, Value: times[0].User, Unit: "s"})
		} else if err != nil {
			g.skip(psutilSource, metric, err)
		}
	}
	return sources
}

// MemoryTotal compares total RAM.
func (g *Gatherer) MemoryTotal(snap *sampler.Snapshot) []Source {
	const metric = "Memory Total"
	if snap.Err("Memory") != nil {
		return nil
	}
	sources := []Source{{Name: ownSource, Value: float64(snap.Memory.RAMTotal), Unit: "bytes"}}

	if g.fsErr == nil {
		if info, err := g.fs.Meminfo(); err == nil && info.MemTotal != nil {
			sources = append(sources, Source{Name: procfsSource, Value: float64(*info.MemTotal * kibibyte), Unit: "bytes"})
		} else if err != nil {
			g.skip(procfsSource, metric, err)
		}
	}
	if g.host {
		if vm, err := mem.VirtualMemory(); err == nil {
			sources = append(sources, Source{Name: psutilSource, Value: float64(vm.Total), Unit: "bytes"})
		} else {
			g.skip(psutilSource, metric, err)
		}
	}
	return sources
}

// SwapTotal compares total swap.
func (g *Gatherer) SwapTotal(snap *sampler.Snapshot) []Source {
	const metric = "Swap Total"
	if snap.Err("Memory") != nil {
		return nil
	}
	sources := []Source{{Name: ownSource, Value: float64(snap.Memory.SwapTotal), Unit: "bytes"}}

	if g.fsErr == nil {
		if info, err := g.fs.Meminfo(); err == nil && info.SwapTotal != nil {
			sources = append(sources, Source{Name: procfsSource, Value: float64(*info.SwapTotal * kibibyte), Unit: "bytes"})
		} else if err != nil {
			g.skip(procfsSource, metric, err)
		}
	}
	if g.host {
		if swap, err := mem.SwapMemory(); err == nil {
			sources = append(sources, Source{Name: psutilSource, Value: float64(swap.Total), Unit: "bytes"})
		} else {
			g.skip(psutilSource, metric, err)
		}
	}
	return sources
}

// RootCapacity compares the size of the filesystem mounted at /.
func (g *Gatherer) RootCapacity(snap *sampler.Snapshot) []Source {
	const metric = "Root Filesystem Size"
	var sources []Source
	for _, fs := range snap.Filesystems.Items() {
		if string(fs.Root) == "/" {
			sources = append(sources, Source{Name: ownSource, Value: float64(fs.Capacity), Unit: "bytes"})
			break
		}
	}
	if len(sources) == 0 {
		return nil
	}

	if g.host {
		if usage, err := disk.Usage("/"); err == nil {
			sources = append(sources, Source{Name: psutilSource, Value: float64(usage.Total), Unit: "bytes"})
		} else {
			g.skip(psutilSource, metric, err)
		}
	}
	return sources
}

// InterfaceRecvBytes compares the received bytes of every interface in
// snap, keyed by interface name.
func (g *Gatherer) InterfaceRecvBytes(snap *sampler.Snapshot) map[string][]Source {
	const metric = "Receive Bytes"
	if snap.Interfaces.Len() == 0 {
		return nil
	}

	results := make(map[string][]Source, snap.Interfaces.Len())
	for i := range snap.Interfaces.Len() {
		netif := snap.Interfaces.At(i)
		results[netif.Name()] = []Source{{Name: ownSource, Value: float64(netif.RecvBytes), Unit: "bytes"}}
	}

	add := func(name, source string, value uint64) {
		if existing, ok := results[name]; ok {
			results[name] = append(existing, Source{Name: source, Value: float64(value), Unit: "bytes"})
		}
	}

	if g.fsErr == nil {
		if dev, err := g.fs.NetDev(); err == nil {
			for name, line := range dev {
				add(name, procfsSource, line.RxBytes)
			}
		} else {
			g.skip(procfsSource, metric, err)
		}
	}
	if g.host {
		if counters, err := net.IOCounters(true); err == nil {
			for _, c := range counters {
				add(c.Name, psutilSource, c.BytesRecv)
			}
		} else {
			g.skip(psutilSource, metric, err)
		}
	}
	return results
}
