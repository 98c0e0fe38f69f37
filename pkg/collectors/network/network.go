// Package network reads per-interface traffic counters from the kernel's
// network device table.
package network

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/danpilch/hoststat/pkg/bounded"
)

const (
	defaultProcRoot = "/proc"

	// NameSize is the size of the inline name storage, IF_NAMESIZE on
	// Linux. Names hold at most NameSize-1 bytes.
	NameSize = 16

	// The device table opens with two column-heading rows.
	headerRows = 2
)

// NetworkInterfaceSample holds the cumulative counters of one interface.
// The name is stored inline so a sample never refers to the scratch buffer
// it was parsed from.
type NetworkInterfaceSample struct {
	name    [NameSize]byte
	nameLen uint8

	RecvBytes      uint64
	RecvPackets    uint64
	RecvErrs       uint64
	RecvDrop       uint64
	RecvFIFO       uint64
	RecvFrame      uint64
	RecvCompressed uint64
	RecvMulticast  uint64

	TransBytes      uint64
	TransPackets    uint64
	TransErrs       uint64
	TransDrop       uint64
	TransFIFO       uint64
	TransColls      uint64
	TransCarrier    uint64
	TransCompressed uint64
}

// Name returns the interface name as a string. It allocates; use NameBytes
// on hot paths.
func (s *NetworkInterfaceSample) Name() string {
	return string(s.NameBytes())
}

// NameBytes returns a view of the inline name.
func (s *NetworkInterfaceSample) NameBytes() []byte {
	return s.name[:s.nameLen]
}

// SetName stores name inline. It returns bounded.ErrOverflow, leaving the
// previous name in place, if name is longer than NameSize-1 bytes.
func (s *NetworkInterfaceSample) SetName(name []byte) error {
	if len(name) > NameSize-1 {
		return bounded.ErrOverflow
	}
	s.setName(name)
	return nil
}

// setName stores name inline. Callers check that name fits.
func (s *NetworkInterfaceSample) setName(name []byte) {
	n := copy(s.name[:], name)
	clear(s.name[n:])
	s.nameLen = uint8(n)
}

// MarshalJSON renders the inline name as a string field.
func (s NetworkInterfaceSample) MarshalJSON() ([]byte, error) {
	type counters struct {
		Name            string `json:"name"`
		RecvBytes       uint64 `json:"recv_bytes"`
		RecvPackets     uint64 `json:"recv_packets"`
		RecvErrs        uint64 `json:"recv_errs"`
		RecvDrop        uint64 `json:"recv_drop"`
		RecvFIFO        uint64 `json:"recv_fifo"`
		RecvFrame       uint64 `json:"recv_frame"`
		RecvCompressed  uint64 `json:"recv_compressed"`
		RecvMulticast   uint64 `json:"recv_multicast"`
		TransBytes      uint64 `json:"trans_bytes"`
		TransPackets    uint64 `json:"trans_packets"`
		TransErrs       uint64 `json:"trans_errs"`
		TransDrop       uint64 `json:"trans_drop"`
		TransFIFO       uint64 `json:"trans_fifo"`
		TransColls      uint64 `json:"trans_colls"`
		TransCarrier    uint64 `json:"trans_carrier"`
		TransCompressed uint64 `json:"trans_compressed"`
	}
	return json.Marshal(counters{
		Name:            s.Name(),
		RecvBytes:       s.RecvBytes,
		RecvPackets:     s.RecvPackets,
		RecvErrs:        s.RecvErrs,
		RecvDrop:        s.RecvDrop,
		RecvFIFO:        s.RecvFIFO,
		RecvFrame:       s.RecvFrame,
		RecvCompressed:  s.RecvCompressed,
		RecvMulticast:   s.RecvMulticast,
		TransBytes:      s.TransBytes,
		TransPackets:    s.TransPackets,
		TransErrs:       s.TransErrs,
		TransDrop:       s.TransDrop,
		TransFIFO:       s.TransFIFO,
		TransColls:      s.TransColls,
		TransCarrier:    s.TransCarrier,
		TransCompressed: s.TransCompressed,
	})
}

// Collector reads interface counters from a device table under a proc root.
type Collector struct {
	netDevPath string
}

// New creates a network collector. An empty procRoot means /proc.
func New(procRoot string) *Collector {
	if procRoot == "" {
		procRoot = defaultProcRoot
	}
	return &Collector{netDevPath: filepath.Join(procRoot, "net", "dev")}
}

// Name returns the collector name.
func (c *Collector) Name() string {
	return "Network"
}

// ReadNetifs fills list with one sample per interface from /proc/net/dev.
func ReadNetifs(list *bounded.List[NetworkInterfaceSample], scratch []byte) error {
	return New("").ReadNetifs(list, scratch)
}

// ReadNetifs fills list from the collector's device table.
func (c *Collector) ReadNetifs(list *bounded.List[NetworkInterfaceSample], scratch []byte) error {
	list.Reset()

	file, err := os.Open(c.netDevPath)
	if err != nil {
		return bounded.NewIOError(c.netDevPath, err)
	}
	defer file.Close()

	return parseNetifs(bounded.NewLineReader(file, c.netDevPath), list, scratch)
}

// ParseNetifs fills list from a device table read from r, using scratch as
// the line buffer.
//
// The two heading rows are skipped, as is any row without a "name:"
// prefix. Counters missing from the end of a row are 0. An interface name
// longer than NameSize-1 bytes, a row longer than scratch, or a further
// interface once the list is full all return bounded.ErrOverflow with the
// interfaces read so far left in list.
func ParseNetifs(r io.Reader, list *bounded.List[NetworkInterfaceSample], scratch []byte) error {
	list.Reset()
	return parseNetifs(bounded.NewLineReader(r, "net/dev"), list, scratch)
}

func parseNetifs(reader *bounded.LineReader, list *bounded.List[NetworkInterfaceSample], scratch []byte) error {
	for row := 0; ; row++ {
		line, err := reader.ReadLine(scratch)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if row < headerRows {
			continue
		}

		name, counters, ok := splitRow(line)
		if !ok {
			continue
		}
		if len(name) > NameSize-1 {
			return bounded.ErrOverflow
		}

		netif, err := list.Next()
		if err != nil {
			return err
		}
		parseNetif(name, counters, netif)
	}
}

// splitRow separates "  eth0: 100 1 ..." into the name and the counter
// columns.
func splitRow(line []byte) (name, counters []byte, ok bool) {
	start := 0
	for start < len(line) && (line[start] == ' ' || line[start] == '\t') {
		start++
	}
	colon := bytes.IndexByte(line[start:], ':')
	if colon <= 0 {
		return nil, nil, false
	}
	return line[start : start+colon], line[start+colon+1:], true
}

func parseNetif(name, counters []byte, netif *NetworkInterfaceSample) {
	var v [16]uint64

	fields := bounded.NewFields(counters)
	fields.Uints(v[:])

	*netif = NetworkInterfaceSample{
		RecvBytes:       v[0],
		RecvPackets:     v[1],
		RecvErrs:        v[2],
		RecvDrop:        v[3],
		RecvFIFO:        v[4],
		RecvFrame:       v[5],
		RecvCompressed:  v[6],
		RecvMulticast:   v[7],
		TransBytes:      v[8],
		TransPackets:    v[9],
		TransErrs:       v[10],
		TransDrop:       v[11],
		TransFIFO:       v[12],
		TransColls:      v[13],
		TransCarrier:    v[14],
		TransCompressed: v[15],
	}
	netif.setName(name)
}
