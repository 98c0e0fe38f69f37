// Package exporter serves host snapshots as Prometheus metrics.
package exporter

import (
	"context"
	"net/http"
	"strconv"
	"sync"

	"github.com/danpilch/hoststat/pkg/collectors/network"
	"github.com/danpilch/hoststat/pkg/sampler"
	"github.com/prometheus/client_golang/prometheus"
	promcollectors "github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const namespace = "hoststat"

// userHZ is the kernel's clock tick for stat counters.
const userHZ = 100

var (
	fsLabels  = []string{"mountpoint", "device", "fstype"}
	netLabels = []string{"device"}
)

// Exporter implements prometheus.Collector over a Sampler. Each scrape
// takes a fresh snapshot.
type Exporter struct {
	mu      sync.Mutex
	sampler *sampler.Sampler
	logger  *logrus.Logger

	cpuSeconds *prometheus.Desc

	memTotal, memFree, memShared, memBuffer *prometheus.Desc
	swapTotal, swapFree                     *prometheus.Desc

	fsSize, fsFree, fsAvail *prometheus.Desc
	fsRead, fsWritten       *prometheus.Desc

	netCounters []netCounter

	collectorSuccess *prometheus.Desc
}

type netSample = network.NetworkInterfaceSample

type fsKey struct {
	root, source, fstype string
}

type netCounter struct {
	desc  *prometheus.Desc
	value func(*netSample) uint64
}

// New creates an exporter that samples with s.
func New(s *sampler.Sampler, logger *logrus.Logger) *Exporter {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}

	desc := func(subsystem, name, help string, labels []string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystem, name), help, labels, nil)
	}

	e := &Exporter{
		sampler: s,
		logger:  logger,

		cpuSeconds: desc("cpu", "seconds_total", "Seconds each core spent in each mode.", []string{"cpu", "mode"}),

		memTotal:  desc("memory", "total_bytes", "Total usable RAM.", nil),
		memFree:   desc("memory", "free_bytes", "Unused RAM.", nil),
		memShared: desc("memory", "shared_bytes", "Shared RAM.", nil),
		memBuffer: desc("memory", "buffer_bytes", "RAM used by buffers.", nil),
		swapTotal: desc("memory", "swap_total_bytes", "Total swap space.", nil),
		swapFree:  desc("memory", "swap_free_bytes", "Unused swap space.", nil),

		fsSize:    desc("filesystem", "size_bytes", "Filesystem size.", fsLabels),
		fsFree:    desc("filesystem", "free_bytes", "Free space including reserved blocks.", fsLabels),
		fsAvail:   desc("filesystem", "avail_bytes", "Space available to unprivileged users.", fsLabels),
		fsRead:    desc("filesystem", "read_bytes_total", "Bytes read from the backing device.", fsLabels),
		fsWritten: desc("filesystem", "written_bytes_total", "Bytes written to the backing device.", fsLabels),

		collectorSuccess: desc("scrape", "collector_success", "Whether the collector succeeded on the last scrape.", []string{"collector"}),
	}

	for _, c := range []struct {
		name, help string
		value      func(*netSample) uint64
	}{
		{"receive_bytes_total", "Bytes received.", func(n *netSample) uint64 { return n.RecvBytes }},
		{"receive_packets_total", "Packets received.", func(n *netSample) uint64 { return n.RecvPackets }},
		{"receive_errs_total", "Receive errors.", func(n *netSample) uint64 { return n.RecvErrs }},
		{"receive_drop_total", "Received packets dropped.", func(n *netSample) uint64 { return n.RecvDrop }},
		{"transmit_bytes_total", "Bytes transmitted.", func(n *netSample) uint64 { return n.TransBytes }},
		{"transmit_packets_total", "Packets transmitted.", func(n *netSample) uint64 { return n.TransPackets }},
		{"transmit_errs_total", "Transmit errors.", func(n *netSample) uint64 { return n.TransErrs }},
		{"transmit_drop_total", "Transmitted packets dropped.", func(n *netSample) uint64 { return n.TransDrop }},
	} {
		e.netCounters = append(e.netCounters, netCounter{
			desc:  desc("network", c.name, c.help, netLabels),
			value: c.value,
		})
	}
	return e
}

// Describe implements prometheus.Collector.
func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		e.cpuSeconds,
		e.memTotal, e.memFree, e.memShared, e.memBuffer, e.swapTotal, e.swapFree,
		e.fsSize, e.fsFree, e.fsAvail, e.fsRead, e.fsWritten,
		e.collectorSuccess,
	} {
		ch <- d
	}
	for _, c := range e.netCounters {
		ch <- c.desc
	}
}

// Collect implements prometheus.Collector. Scrapes are serialized because
// the sampler's buffers are reused.
func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap, err := e.sampler.Sample(context.Background())
	if snap == nil {
		e.logger.WithField("error", err).Error("Scrape failed")
		return
	}
	if err != nil {
		e.logger.WithField("error", err).Warn("Scrape incomplete")
	}

	for _, name := range e.sampler.Registry().Names() {
		success := 1.0
		if snap.Err(name) != nil {
			success = 0
		}
		ch <- prometheus.MustNewConstMetric(e.collectorSuccess, prometheus.GaugeValue, success, name)
	}

	for _, core := range snap.Cores.Items() {
		id := strconv.FormatUint(core.Index, 10)
		for _, m := range []struct {
			mode    string
			jiffies uint64
		}{
			{"user", core.User},
			{"nice", core.Nice},
			{"system", core.System},
			{"idle", core.Idle},
			{"iowait", core.IOWait},
			{"irq", core.IRQ},
			{"softirq", core.SoftIRQ},
			{"steal", core.Steal},
			{"guest", core.Virt},
		} {
			ch <- prometheus.MustNewConstMetric(e.cpuSeconds, prometheus.CounterValue,
				float64(m.jiffies)/userHZ, id, m.mode)
		}
	}

	if snap.Err("Memory") == nil {
		mem := snap.Memory
		for _, m := range []struct {
			desc  *prometheus.Desc
			value uint64
		}{
			{e.memTotal, mem.RAMTotal},
			{e.memFree, mem.RAMFree},
			{e.memShared, mem.RAMShared},
			{e.memBuffer, mem.RAMBuffer},
			{e.swapTotal, mem.SwapTotal},
			{e.swapFree, mem.SwapFree},
		} {
			ch <- prometheus.MustNewConstMetric(m.desc, prometheus.GaugeValue, float64(m.value))
		}
	}

	// The mount table can list one mount more than once. A repeated label
	// set fails the whole scrape, so only the first entry is exported.
	seen := make(map[fsKey]struct{}, snap.Filesystems.Len())
	for _, fs := range snap.Filesystems.Items() {
		key := fsKey{string(fs.Root), string(fs.Source), string(fs.Type)}
		if _, ok := seen[key]; ok {
			e.logger.WithField("mountpoint", key.root).Debug("Skipping repeated mount")
			continue
		}
		seen[key] = struct{}{}

		labels := []string{key.root, key.source, key.fstype}
		ch <- prometheus.MustNewConstMetric(e.fsSize, prometheus.GaugeValue, float64(fs.Capacity), labels...)
		ch <- prometheus.MustNewConstMetric(e.fsFree, prometheus.GaugeValue, float64(fs.Free), labels...)
		ch <- prometheus.MustNewConstMetric(e.fsAvail, prometheus.GaugeValue, float64(fs.Available), labels...)
		if fs.HasIO {
			ch <- prometheus.MustNewConstMetric(e.fsRead, prometheus.CounterValue, float64(fs.Read), labels...)
			ch <- prometheus.MustNewConstMetric(e.fsWritten, prometheus.CounterValue, float64(fs.Written), labels...)
		}
	}

	for i := range snap.Interfaces.Len() {
		netif := snap.Interfaces.At(i)
		name := netif.Name()
		for _, c := range e.netCounters {
			ch <- prometheus.MustNewConstMetric(c.desc, prometheus.CounterValue, float64(c.value(netif)), name)
		}
	}
}

// Handler returns the /metrics handler for a registry holding e and the
// exporter's own process metrics.
func Handler(e *Exporter) http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		e,
		promcollectors.NewGoCollector(),
		promcollectors.NewProcessCollector(promcollectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		ErrorLog: e.logger,
	})
}
