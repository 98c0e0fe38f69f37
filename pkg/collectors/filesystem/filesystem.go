// Package filesystem discovers mounted physical filesystems and reads their
// capacity and I/O counters.
//
// Discovery runs in two phases inside one caller-owned scratch buffer.
// First the filesystem-type registry is read and every type backed by a
// block device is added to a [bounded.Chain] at the start of the buffer.
// Then the mount table is walked; each entry whose type is in the chain is
// resolved to a device id, measured, and correlated with the per-device
// I/O table. The scratch layout during the second phase is
//
//	| type chain | root0 | root1 | ... | working space for the next record |
//	             ^ chain.Len()         ^ cursor
//
// so the views handed out in earlier samples are never overwritten.
package filesystem

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/danpilch/hoststat/pkg/bounded"
)

const (
	defaultProcRoot = "/proc"

	// Disk statistics count 512-byte sectors regardless of the device's
	// logical block size.
	sectorSize = 512
)

// FilesystemSample describes one mounted physical filesystem.
//
// Root, Source and Type are leased views into the scratch buffer passed to
// ReadFilesystems. They stay valid until that buffer is reused or released;
// copy them to keep them longer.
type FilesystemSample struct {
	// Root is the mount point.
	Root []byte
	// Source is the mount source exactly as the mount table lists it.
	Source []byte
	// Type is the filesystem type name, a view into the type chain.
	Type []byte
	// Device is the device id of Root as reported by stat(2).
	Device uint64

	Capacity  uint64
	Free      uint64
	Available uint64

	// Read and Written are cumulative bytes transferred, valid only when
	// HasIO is set.
	Read    uint64
	Written uint64
	HasIO   bool
}

// MarshalJSON renders the leased views as strings.
func (fs FilesystemSample) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Root      string `json:"root"`
		Source    string `json:"source"`
		Type      string `json:"type"`
		Device    uint64 `json:"device"`
		Capacity  uint64 `json:"capacity"`
		Free      uint64 `json:"free"`
		Available uint64 `json:"available"`
		Read      uint64 `json:"read"`
		Written   uint64 `json:"written"`
		HasIO     bool   `json:"has_io"`
	}{
		Root:      string(fs.Root),
		Source:    string(fs.Source),
		Type:      string(fs.Type),
		Device:    fs.Device,
		Capacity:  fs.Capacity,
		Free:      fs.Free,
		Available: fs.Available,
		Read:      fs.Read,
		Written:   fs.Written,
		HasIO:     fs.HasIO,
	})
}

// Collector reads the filesystem registry, mount table and disk
// statistics under a proc root.
type Collector struct {
	filesystemsPath string
	mountsPath      string
	diskstatsPath   string
}

// New creates a filesystem collector. An empty procRoot means /proc.
func New(procRoot string) *Collector {
	if procRoot == "" {
		procRoot = defaultProcRoot
	}
	return &Collector{
		filesystemsPath: filepath.Join(procRoot, "filesystems"),
		mountsPath:      filepath.Join(procRoot, "mounts"),
		diskstatsPath:   filepath.Join(procRoot, "diskstats"),
	}
}

// Name returns the collector name.
func (c *Collector) Name() string {
	return "Filesystem"
}

// ReadFilesystems discovers mounted physical filesystems from /proc.
func ReadFilesystems(list *bounded.List[FilesystemSample], scratch []byte) error {
	return New("").ReadFilesystems(list, scratch)
}

// ReadFSIO refreshes the I/O counters of fs from /proc/diskstats.
func ReadFSIO(fs *FilesystemSample, scratch []byte) error {
	return New("").ReadFSIO(fs, scratch)
}

// ReadFilesystems fills list with every mounted filesystem whose type is
// backed by a block device. Capacity figures are always refreshed; I/O
// counters are filled when the device has a disk statistics row.
//
// It returns bounded.ErrOverflow if the type registry does not fit in
// scratch, if a mount record does not fit in the remaining space, or if a
// further physical mount is found once the list is full. In every case the
// entries already in list remain valid. Failures to read a source or to
// stat a mount root are returned as *bounded.IOError.
func (c *Collector) ReadFilesystems(list *bounded.List[FilesystemSample], scratch []byte) error {
	list.Reset()

	chain := bounded.NewChain(scratch)
	if err := c.readPhysicalTypes(&chain); err != nil {
		return err
	}

	file, err := os.Open(c.mountsPath)
	if err != nil {
		return bounded.NewIOError(c.mountsPath, err)
	}
	defer file.Close()

	reader := bounded.NewLineReader(file, c.mountsPath)
	cursor := chain.Len()

	for {
		line, err := reader.ReadLine(scratch[cursor:])
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		entry, ok := parseMount(line)
		if !ok {
			continue
		}

		// Types missing from the chain have no backing device.
		fstype, err := chain.Find(line[entry.typeStart:entry.typeEnd])
		if err != nil {
			continue
		}

		if list.Len() == list.Cap() {
			return bounded.ErrOverflow
		}

		root := line[entry.rootStart:entry.rootEnd:entry.rootEnd]
		device, err := statDevice(root)
		if err != nil {
			return err
		}

		fs, _ := list.Next()
		*fs = FilesystemSample{
			Root:   root,
			Source: line[entry.sourceStart:entry.sourceEnd:entry.sourceEnd],
			Type:   fstype,
			Device: device,
		}

		// Keep the source and root; the rest of the record is free again.
		cursor += entry.rootEnd

		if err := ReadFSUtil(fs); err != nil {
			return err
		}
		if err := c.ReadFSIO(fs, scratch[cursor:]); err != nil && !errors.Is(err, bounded.ErrNotFound) {
			return err
		}
	}
}

// readPhysicalTypes adds every device-backed type in the registry to chain.
// Registry records land directly in the chain's free region, so a registry
// that outgrows the buffer fails with bounded.ErrOverflow.
func (c *Collector) readPhysicalTypes(chain *bounded.Chain) error {
	file, err := os.Open(c.filesystemsPath)
	if err != nil {
		return bounded.NewIOError(c.filesystemsPath, err)
	}
	defer file.Close()

	reader := bounded.NewLineReader(file, c.filesystemsPath)
	for {
		line, err := reader.ReadLine(chain.Free())
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		// "nodev\tproc\n" is virtual; "\text4\n" has a block device.
		if len(line) < 2 || line[0] != '\t' {
			continue
		}
		name := trimNewline(line[1:])
		if len(name) == 0 {
			continue
		}
		if err := chain.Add(name); err != nil {
			return err
		}
	}
}

// ReadFSIO refreshes Read and Written from the disk statistics row whose
// major and minor numbers match fs.Device, using scratch as the line
// buffer. Without a matching row it clears the counters and returns
// bounded.ErrNotFound.
func (c *Collector) ReadFSIO(fs *FilesystemSample, scratch []byte) error {
	fs.Read, fs.Written, fs.HasIO = 0, 0, false

	file, err := os.Open(c.diskstatsPath)
	if err != nil {
		return bounded.NewIOError(c.diskstatsPath, err)
	}
	defer file.Close()

	return correlateIO(bounded.NewLineReader(file, c.diskstatsPath), fs, scratch)
}

func correlateIO(reader *bounded.LineReader, fs *FilesystemSample, scratch []byte) error {
	major, minor := deviceNumbers(fs.Device)

	for {
		line, err := reader.ReadLine(scratch)
		if errors.Is(err, io.EOF) {
			return bounded.ErrNotFound
		}
		if err != nil {
			return err
		}

		// major minor name reads merged sectors ms writes merged sectors ...
		fields := bounded.NewFields(line)
		var id [2]uint64
		if fields.Uints(id[:]) < 2 || id[0] != major || id[1] != minor {
			continue
		}
		fields.Skip(1)

		var counters [7]uint64
		fields.Uints(counters[:])
		fs.Read = counters[2] * sectorSize
		fs.Written = counters[6] * sectorSize
		fs.HasIO = true
		return nil
	}
}

func trimNewline(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}
