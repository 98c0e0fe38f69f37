// Package memory reads RAM and swap usage from the kernel's memory-info
// query and normalizes every figure to bytes.
package memory

import (
	"github.com/danpilch/hoststat/pkg/bounded"
)

// MemorySample holds RAM and swap figures in bytes.
type MemorySample struct {
	RAMTotal  uint64 `json:"ram_total"`
	RAMFree   uint64 `json:"ram_free"`
	RAMShared uint64 `json:"ram_shared"`
	RAMBuffer uint64 `json:"ram_buffer"`
	SwapTotal uint64 `json:"swap_total"`
	SwapFree  uint64 `json:"swap_free"`
}

// Info carries the raw counters of one memory-info query. Every count is
// in units of Unit bytes.
type Info struct {
	Unit      uint64
	TotalRAM  uint64
	FreeRAM   uint64
	SharedRAM uint64
	BufferRAM uint64
	TotalSwap uint64
	FreeSwap  uint64
}

// QueryFunc performs one memory-info query.
type QueryFunc func(*Info) error

// Collector converts memory-info queries into samples.
type Collector struct {
	query QueryFunc
}

// New creates a memory collector backed by sysinfo(2).
func New() *Collector {
	return &Collector{query: sysinfo}
}

// NewWithQuery creates a memory collector backed by query.
func NewWithQuery(query QueryFunc) *Collector {
	return &Collector{query: query}
}

// Name returns the collector name.
func (c *Collector) Name() string {
	return "Memory"
}

// ReadMemory refreshes out from sysinfo(2).
func ReadMemory(out *MemorySample) error {
	return New().ReadMemory(out)
}

// ReadMemory refreshes out with one query. The only failure is an
// *bounded.IOError, in which case out is left unchanged.
func (c *Collector) ReadMemory(out *MemorySample) error {
	var info Info
	if err := c.query(&info); err != nil {
		return bounded.NewIOError("sysinfo", err)
	}

	unit := info.Unit
	*out = MemorySample{
		RAMTotal:  unit * info.TotalRAM,
		RAMFree:   unit * info.FreeRAM,
		RAMShared: unit * info.SharedRAM,
		RAMBuffer: unit * info.BufferRAM,
		SwapTotal: unit * info.TotalSwap,
		SwapFree:  unit * info.FreeSwap,
	}
	return nil
}
