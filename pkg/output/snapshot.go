package output

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/danpilch/hoststat/pkg/collectors/cpu"
	"github.com/danpilch/hoststat/pkg/collectors/filesystem"
	"github.com/danpilch/hoststat/pkg/collectors/memory"
	"github.com/danpilch/hoststat/pkg/collectors/network"
	"github.com/danpilch/hoststat/pkg/sampler"
	"github.com/danpilch/hoststat/pkg/use"
)

type snapshotJSON struct {
	Taken       time.Time                        `json:"taken"`
	Cores       []cpu.CoreSample                 `json:"cores"`
	Memory      memory.MemorySample              `json:"memory"`
	Filesystems []filesystem.FilesystemSample    `json:"filesystems"`
	Interfaces  []network.NetworkInterfaceSample `json:"interfaces"`
	Errors      map[string]string                `json:"errors,omitempty"`
}

// RenderSnapshot writes the raw counters of snap. TSV and markdown fall
// back to the table layout.
func (f *Formatter) RenderSnapshot(snap *sampler.Snapshot) error {
	if f.format == FormatJSON {
		out := snapshotJSON{
			Taken:       snap.Taken,
			Cores:       snap.Cores.Items(),
			Memory:      snap.Memory,
			Filesystems: snap.Filesystems.Items(),
			Interfaces:  snap.Interfaces.Items(),
		}
		if len(snap.Errors) > 0 {
			out.Errors = make(map[string]string, len(snap.Errors))
			for name, err := range snap.Errors {
				out.Errors[name] = err.Error()
			}
		}
		enc := json.NewEncoder(f.writer)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Fprintln(f.writer, titleStyle.Render("Host Snapshot "+snap.Taken.Format(time.RFC3339)))

	coreRows := make([][]string, 0, snap.Cores.Len())
	for _, c := range snap.Cores.Items() {
		coreRows = append(coreRows, []string{
			fmt.Sprintf("cpu%d", c.Index),
			fmt.Sprint(c.User), fmt.Sprint(c.Nice), fmt.Sprint(c.System),
			fmt.Sprint(c.Idle), fmt.Sprint(c.IOWait), fmt.Sprint(c.IRQ),
			fmt.Sprint(c.SoftIRQ), fmt.Sprint(c.Steal), fmt.Sprint(c.Total),
		})
	}
	fmt.Fprintln(f.writer, newTable(
		[]string{"CORE", "USER", "NICE", "SYSTEM", "IDLE", "IOWAIT", "IRQ", "SOFTIRQ", "STEAL", "TOTAL"},
		coreRows))

	m := snap.Memory
	fmt.Fprintln(f.writer, newTable(
		[]string{"MEMORY", "TOTAL", "FREE", "SHARED", "BUFFER"},
		[][]string{
			{"ram", humanBytes(m.RAMTotal), humanBytes(m.RAMFree), humanBytes(m.RAMShared), humanBytes(m.RAMBuffer)},
			{"swap", humanBytes(m.SwapTotal), humanBytes(m.SwapFree), "-", "-"},
		}))

	fsRows := make([][]string, 0, snap.Filesystems.Len())
	for _, fs := range snap.Filesystems.Items() {
		read, written := "-", "-"
		if fs.HasIO {
			read, written = humanBytes(fs.Read), humanBytes(fs.Written)
		}
		fsRows = append(fsRows, []string{
			string(fs.Root), string(fs.Source), string(fs.Type),
			humanBytes(fs.Capacity), humanBytes(fs.Available), read, written,
		})
	}
	fmt.Fprintln(f.writer, newTable(
		[]string{"MOUNT", "SOURCE", "TYPE", "SIZE", "AVAIL", "READ", "WRITTEN"},
		fsRows))

	netRows := make([][]string, 0, snap.Interfaces.Len())
	for i := range snap.Interfaces.Len() {
		n := snap.Interfaces.At(i)
		netRows = append(netRows, []string{
			n.Name(),
			humanBytes(n.RecvBytes), fmt.Sprint(n.RecvPackets), fmt.Sprint(n.RecvErrs), fmt.Sprint(n.RecvDrop),
			humanBytes(n.TransBytes), fmt.Sprint(n.TransPackets), fmt.Sprint(n.TransErrs), fmt.Sprint(n.TransDrop),
		})
	}
	fmt.Fprintln(f.writer, newTable(
		[]string{"INTERFACE", "RX", "RX PKTS", "RX ERRS", "RX DROP", "TX", "TX PKTS", "TX ERRS", "TX DROP"},
		netRows))

	if len(snap.Errors) > 0 {
		names := make([]string, 0, len(snap.Errors))
		for name := range snap.Errors {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(f.writer, "%s %s: %v\n",
				statusStyles[use.StatusUnknown].Render("FAILED"), name, snap.Errors[name])
		}
	}
	return nil
}

// RenderCoreBusy writes one line with the busy share of every core between
// prev and curr. Cores without elapsed jiffies print "-".
func (f *Formatter) RenderCoreBusy(prev, curr *sampler.Snapshot) error {
	n := min(prev.Cores.Len(), curr.Cores.Len())

	if f.format == FormatJSON {
		busy := make([]*float64, n)
		for i := range n {
			if pct, ok := sampler.CoreBusyPercent(*prev.Cores.At(i), *curr.Cores.At(i)); ok {
				busy[i] = &pct
			}
		}
		return json.NewEncoder(f.writer).Encode(struct {
			Taken time.Time  `json:"taken"`
			Busy  []*float64 `json:"busy"`
		}{curr.Taken, busy})
	}

	var b strings.Builder
	b.WriteString(curr.Taken.Format("15:04:05"))
	for i := range n {
		pct, ok := sampler.CoreBusyPercent(*prev.Cores.At(i), *curr.Cores.At(i))
		if !ok {
			fmt.Fprintf(&b, "  %4s", "-")
			continue
		}
		fmt.Fprintf(&b, "  %3.0f%%", pct)
		if f.sparkline != nil {
			f.sparkline.Record(fmt.Sprintf("cpu%d", i), pct)
		}
	}
	fmt.Fprintln(f.writer, b.String())
	return nil
}

// RenderCoreTrends writes the sparkline of every core seen by
// RenderCoreBusy.
func (f *Formatter) RenderCoreTrends(cores int) {
	if f.sparkline == nil {
		return
	}
	for i := range cores {
		key := fmt.Sprintf("cpu%d", i)
		fmt.Fprintf(f.writer, "%-6s %s\n", key, f.sparkline.Sparkline(key))
	}
}

func humanBytes(n uint64) string {
	return use.FormatBytes(float64(n))
}
