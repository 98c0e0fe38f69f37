//go:build linux

package filesystem

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danpilch/hoststat/pkg/bounded"
	"golang.org/x/sys/unix"
)

const registry = "nodev\tsysfs\n" +
	"nodev\tproc\n" +
	"nodev\ttmpfs\n" +
	"\text3\n" +
	"\text4\n" +
	"\txfs\n" +
	"nodev\toverlay\n"

// procFixture writes a fake proc root holding the three tables the
// collector reads.
func procFixture(t *testing.T, filesystems, mounts, disks string) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"filesystems": filesystems,
		"mounts":      mounts,
		"diskstats":   disks,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(root, name), []byte(content), 0644); err != nil {
			t.Fatalf("WriteFile(%s): %v", name, err)
		}
	}
	return root
}

// mountDir creates a directory to act as a mount root and returns it with
// the major and minor numbers of the device it lives on.
func mountDir(t *testing.T, name string) (string, uint32, uint32) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), name)
	if err := os.Mkdir(dir, 0755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	var st unix.Stat_t
	if err := unix.Stat(dir, &st); err != nil {
		t.Fatalf("Stat: %v", err)
	}
	dev := uint64(st.Dev)
	return dir, unix.Major(dev), unix.Minor(dev)
}

func TestReadFilesystemsSinglePhysicalMount(t *testing.T) {
	dir, major, minor := mountDir(t, "data")
	root := procFixture(t,
		"\text4\n",
		fmt.Sprintf("/dev/sda1 %s ext4 rw,relatime 0 0\n", dir),
		fmt.Sprintf(" %4d %7d sda1 1 0 10 0 2 0 20 0 0 0 0\n", major, minor))

	list := bounded.NewList(make([]FilesystemSample, 4))
	if err := New(root).ReadFilesystems(list, make([]byte, 4096)); err != nil {
		t.Fatalf("ReadFilesystems() error = %v", err)
	}
	if list.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", list.Len())
	}

	sample := list.Items()[0]
	if string(sample.Root) != dir {
		t.Errorf("Root = %q, want %q", sample.Root, dir)
	}
	if string(sample.Source) != "/dev/sda1" {
		t.Errorf("Source = %q, want /dev/sda1", sample.Source)
	}
	if string(sample.Type) != "ext4" {
		t.Errorf("Type = %q, want ext4", sample.Type)
	}
	if unix.Major(sample.Device) != major || unix.Minor(sample.Device) != minor {
		t.Errorf("Device = %d:%d, want %d:%d",
			unix.Major(sample.Device), unix.Minor(sample.Device), major, minor)
	}
	if sample.Capacity == 0 {
		t.Error("Capacity = 0, want the statfs size of the root")
	}
	if sample.Free > sample.Capacity || sample.Available > sample.Capacity {
		t.Errorf("Free %d / Available %d exceed Capacity %d", sample.Free, sample.Available, sample.Capacity)
	}
	if !sample.HasIO || sample.Read != 5120 || sample.Written != 10240 {
		t.Errorf("I/O = read %d written %d has %v, want 5120, 10240, true",
			sample.Read, sample.Written, sample.HasIO)
	}
}

func TestReadFilesystemsSkipsVirtualTypes(t *testing.T) {
	dir, _, _ := mountDir(t, "data")
	mounts := "sysfs /sys sysfs rw,nosuid 0 0\n" +
		"proc /proc proc rw,nosuid 0 0\n" +
		fmt.Sprintf("tmpfs %s tmpfs rw 0 0\n", dir) +
		fmt.Sprintf("overlay %s overlay rw 0 0\n", dir) +
		fmt.Sprintf("/dev/vdb %s vfat rw 0 0\n", dir)
	root := procFixture(t, registry, mounts, "")

	list := bounded.NewList(make([]FilesystemSample, 4))
	if err := New(root).ReadFilesystems(list, make([]byte, 4096)); err != nil {
		t.Fatalf("ReadFilesystems() error = %v", err)
	}
	if list.Len() != 0 {
		t.Errorf("Len() = %d, want 0: only virtual or unregistered types are mounted", list.Len())
	}
}

func TestReadFilesystemsWithoutDiskstatsRow(t *testing.T) {
	dir, _, _ := mountDir(t, "data")
	root := procFixture(t, registry,
		fmt.Sprintf("/dev/sda1 %s xfs rw 0 0\n", dir),
		"   7       0 loop0 1 0 2 0 0 0 0 0 0 0 0\n")

	list := bounded.NewList(make([]FilesystemSample, 4))
	if err := New(root).ReadFilesystems(list, make([]byte, 4096)); err != nil {
		t.Fatalf("ReadFilesystems() error = %v, want a missing I/O row to be non-fatal", err)
	}
	if list.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", list.Len())
	}
	if sample := list.Items()[0]; sample.HasIO || sample.Read != 0 || sample.Written != 0 {
		t.Errorf("I/O = %d/%d has %v, want empty counters", sample.Read, sample.Written, sample.HasIO)
	}
}

func TestReadFilesystemsViewsSurviveLaterEntries(t *testing.T) {
	var mounts strings.Builder
	var dirs []string
	types := []string{"ext4", "xfs", "ext3"}
	for i, fstype := range types {
		dir, _, _ := mountDir(t, fmt.Sprintf("mount%d", i))
		dirs = append(dirs, dir)
		fmt.Fprintf(&mounts, "/dev/sd%c1 %s %s rw 0 0\n", 'a'+i, dir, fstype)
		mounts.WriteString("proc /proc proc rw 0 0\n")
	}
	root := procFixture(t, registry, mounts.String(), "")

	list := bounded.NewList(make([]FilesystemSample, 8))
	if err := New(root).ReadFilesystems(list, make([]byte, 4096)); err != nil {
		t.Fatalf("ReadFilesystems() error = %v", err)
	}
	if list.Len() != len(types) {
		t.Fatalf("Len() = %d, want %d", list.Len(), len(types))
	}
	for i, sample := range list.Items() {
		if string(sample.Root) != dirs[i] {
			t.Errorf("entry %d Root = %q, want %q", i, sample.Root, dirs[i])
		}
		if string(sample.Type) != types[i] {
			t.Errorf("entry %d Type = %q, want %q", i, sample.Type, types[i])
		}
		if want := fmt.Sprintf("/dev/sd%c1", 'a'+i); string(sample.Source) != want {
			t.Errorf("entry %d Source = %q, want %q", i, sample.Source, want)
		}
	}
}

func TestReadFilesystemsEscapedRoot(t *testing.T) {
	dir, _, _ := mountDir(t, "with space")
	escaped := strings.ReplaceAll(dir, " ", `\040`)
	root := procFixture(t, registry, fmt.Sprintf("/dev/sda1 %s ext4 rw 0 0\n", escaped), "")

	list := bounded.NewList(make([]FilesystemSample, 2))
	if err := New(root).ReadFilesystems(list, make([]byte, 4096)); err != nil {
		t.Fatalf("ReadFilesystems() error = %v", err)
	}
	if list.Len() != 1 || string(list.Items()[0].Root) != dir {
		t.Fatalf("ReadFilesystems() = %d entries, want one rooted at %q", list.Len(), dir)
	}
}

func TestReadFilesystemsListOverflow(t *testing.T) {
	dir, _, _ := mountDir(t, "data")
	var mounts strings.Builder
	for i := 0; i < 3; i++ {
		fmt.Fprintf(&mounts, "/dev/sda%d %s ext4 rw 0 0\n", i, dir)
	}
	root := procFixture(t, registry, mounts.String(), "")

	list := bounded.NewList(make([]FilesystemSample, 2))
	err := New(root).ReadFilesystems(list, make([]byte, 4096))
	if !errors.Is(err, bounded.ErrOverflow) {
		t.Fatalf("ReadFilesystems() error = %v, want ErrOverflow", err)
	}
	if list.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", list.Len())
	}
	for i, sample := range list.Items() {
		if want := fmt.Sprintf("/dev/sda%d", i); string(sample.Source) != want {
			t.Errorf("entry %d Source = %q, want %q", i, sample.Source, want)
		}
	}
}

func TestReadFilesystemsChainOverflow(t *testing.T) {
	root := procFixture(t, registry, "", "")

	// Big enough for the first records but not the whole registry.
	list := bounded.NewList(make([]FilesystemSample, 2))
	err := New(root).ReadFilesystems(list, make([]byte, 16))
	if !errors.Is(err, bounded.ErrOverflow) {
		t.Fatalf("ReadFilesystems() error = %v, want ErrOverflow", err)
	}
	if list.Len() != 0 {
		t.Errorf("Len() = %d, want 0", list.Len())
	}
}

func TestReadFilesystemsMountRecordOverflow(t *testing.T) {
	dir, _, _ := mountDir(t, "data")
	root := procFixture(t, "\text4\n",
		fmt.Sprintf("/dev/sda1 %s ext4 rw,relatime,errors=remount-ro 0 0\n", dir), "")

	// "ext4\0" leaves too little room for the mount record.
	list := bounded.NewList(make([]FilesystemSample, 2))
	err := New(root).ReadFilesystems(list, make([]byte, 24))
	if !errors.Is(err, bounded.ErrOverflow) {
		t.Fatalf("ReadFilesystems() error = %v, want ErrOverflow", err)
	}
}

func TestReadFilesystemsMissingRoot(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "gone")
	root := procFixture(t, registry, fmt.Sprintf("/dev/sda1 %s ext4 rw 0 0\n", missing), "")

	list := bounded.NewList(make([]FilesystemSample, 2))
	err := New(root).ReadFilesystems(list, make([]byte, 4096))
	if !errors.Is(err, bounded.ErrIO) || !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("ReadFilesystems() error = %v, want an ErrIO wrapping ErrNotExist", err)
	}
	if list.Len() != 0 {
		t.Errorf("Len() = %d, want 0", list.Len())
	}
}

func TestReadFilesystemsMissingSources(t *testing.T) {
	tests := []struct {
		name   string
		remove string
	}{
		{"registry", "filesystems"},
		{"mount table", "mounts"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			root := procFixture(t, registry, "", "")
			if err := os.Remove(filepath.Join(root, test.remove)); err != nil {
				t.Fatalf("Remove: %v", err)
			}
			list := bounded.NewList(make([]FilesystemSample, 2))
			err := New(root).ReadFilesystems(list, make([]byte, 4096))
			if !errors.Is(err, bounded.ErrIO) {
				t.Errorf("ReadFilesystems() error = %v, want ErrIO", err)
			}
		})
	}
}

func TestReadFSIOMissingDiskstats(t *testing.T) {
	root := procFixture(t, registry, "", "")
	if err := os.Remove(filepath.Join(root, "diskstats")); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	sample := FilesystemSample{Read: 1, Written: 1, HasIO: true}
	err := New(root).ReadFSIO(&sample, make([]byte, 256))
	if !errors.Is(err, bounded.ErrIO) {
		t.Fatalf("ReadFSIO() error = %v, want ErrIO", err)
	}
	if sample.HasIO || sample.Read != 0 {
		t.Errorf("ReadFSIO() left stale counters %+v", sample)
	}
}

func TestReadFSUtil(t *testing.T) {
	sample := FilesystemSample{Root: []byte(t.TempDir())}
	if err := ReadFSUtil(&sample); err != nil {
		t.Fatalf("ReadFSUtil() error = %v", err)
	}
	if sample.Capacity == 0 || sample.Free > sample.Capacity {
		t.Errorf("ReadFSUtil() = capacity %d free %d", sample.Capacity, sample.Free)
	}

	missing := FilesystemSample{Root: []byte(filepath.Join(t.TempDir(), "gone"))}
	if err := ReadFSUtil(&missing); !errors.Is(err, bounded.ErrIO) {
		t.Errorf("ReadFSUtil() on a missing root = %v, want ErrIO", err)
	}
}

func TestReadFilesystemsHost(t *testing.T) {
	if _, err := os.Stat("/proc/filesystems"); err != nil {
		t.Skip("no /proc on this host")
	}
	list := bounded.NewList(make([]FilesystemSample, 64))
	err := ReadFilesystems(list, make([]byte, 64*1024))
	if err != nil && !errors.Is(err, bounded.ErrOverflow) && !errors.Is(err, bounded.ErrIO) {
		t.Fatalf("ReadFilesystems() error = %v", err)
	}
	for _, sample := range list.Items() {
		if len(sample.Root) == 0 || len(sample.Type) == 0 {
			t.Errorf("host sample with empty view: %+v", sample)
		}
	}
}

func BenchmarkReadFilesystems(b *testing.B) {
	list := bounded.NewList(make([]FilesystemSample, 64))
	scratch := make([]byte, 64*1024)
	collector := New("")

	b.ReportAllocs()
	for b.Loop() {
		_ = collector.ReadFilesystems(list, scratch)
	}
}
