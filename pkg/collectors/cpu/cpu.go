// Package cpu reads per-core jiffy counters from the kernel's stat table.
package cpu

import (
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/danpilch/hoststat/pkg/bounded"
)

const defaultProcRoot = "/proc"

// CoreSample holds the cumulative jiffy counters of one core since boot.
// Index is N from the cpuN row, which differs from the list position when
// cores are offline. Total is the sum of the nine counters from User to
// Virt. Kernels that expose fewer counters leave the trailing fields at 0.
type CoreSample struct {
	Index   uint64 `json:"index"`
	Total   uint64 `json:"total"`
	User    uint64 `json:"user"`
	Nice    uint64 `json:"nice"`
	System  uint64 `json:"system"`
	Idle    uint64 `json:"idle"`
	IOWait  uint64 `json:"iowait"`
	IRQ     uint64 `json:"irq"`
	SoftIRQ uint64 `json:"softirq"`
	Steal   uint64 `json:"steal"`
	Virt    uint64 `json:"virt"`
}

// Collector reads core counters from a stat table under a proc root.
type Collector struct {
	statPath string
}

// New creates a CPU collector. An empty procRoot means /proc.
func New(procRoot string) *Collector {
	if procRoot == "" {
		procRoot = defaultProcRoot
	}
	return &Collector{statPath: filepath.Join(procRoot, "stat")}
}

// Name returns the collector name.
func (c *Collector) Name() string {
	return "CPU"
}

// ReadCores fills list with one sample per core from /proc/stat. See
// ParseCores for the error contract.
func ReadCores(list *bounded.List[CoreSample], scratch []byte) error {
	return New("").ReadCores(list, scratch)
}

// ReadCores fills list from the collector's stat table.
func (c *Collector) ReadCores(list *bounded.List[CoreSample], scratch []byte) error {
	list.Reset()

	file, err := os.Open(c.statPath)
	if err != nil {
		return bounded.NewIOError(c.statPath, err)
	}
	defer file.Close()

	return parseCores(bounded.NewLineReader(file, c.statPath), list, scratch)
}

// ParseCores fills list from a stat table read from r, using scratch as the
// line buffer.
//
// Only per-core rows ("cpu" followed by a digit) are kept; the aggregate
// "cpu " row and all other rows are skipped. If another core row arrives
// once the list is full, ParseCores returns bounded.ErrOverflow and the
// list holds the first Cap() cores. A row longer than scratch also returns
// bounded.ErrOverflow and ends the call.
func ParseCores(r io.Reader, list *bounded.List[CoreSample], scratch []byte) error {
	list.Reset()
	return parseCores(bounded.NewLineReader(r, "stat"), list, scratch)
}

func parseCores(reader *bounded.LineReader, list *bounded.List[CoreSample], scratch []byte) error {
	for {
		line, err := reader.ReadLine(scratch)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if !isCoreRow(line) {
			continue
		}

		core, err := list.Next()
		if err != nil {
			return err
		}
		parseCore(line, core)
	}
}

func isCoreRow(line []byte) bool {
	return len(line) >= 4 &&
		line[0] == 'c' && line[1] == 'p' && line[2] == 'u' &&
		line[3] >= '0' && line[3] <= '9'
}

// parseCore reads the core number from the row label and the nine
// counters that follow it.
func parseCore(line []byte, core *CoreSample) {
	var v [9]uint64

	fields := bounded.NewFields(line)
	label, _ := fields.Next()
	index, _ := bounded.ParseUint(label[len("cpu"):])
	fields.Uints(v[:])

	*core = CoreSample{
		Index:   index,
		User:    v[0],
		Nice:    v[1],
		System:  v[2],
		Idle:    v[3],
		IOWait:  v[4],
		IRQ:     v[5],
		SoftIRQ: v[6],
		Steal:   v[7],
		Virt:    v[8],
	}
	core.Total = v[0] + v[1] + v[2] + v[3] + v[4] + v[5] + v[6] + v[7] + v[8]
}
