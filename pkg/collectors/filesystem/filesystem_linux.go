//go:build linux

package filesystem

import (
	"github.com/danpilch/hoststat/pkg/bounded"
	"golang.org/x/sys/unix"
)

// ReadFSUtil refreshes Capacity, Free and Available of fs with statfs(2)
// on its root. It does not depend on discovery and may be called on any
// previously resolved sample.
func ReadFSUtil(fs *FilesystemSample) error {
	var st unix.Statfs_t
	if err := unix.Statfs(string(fs.Root), &st); err != nil {
		return bounded.NewIOError(string(fs.Root), err)
	}

	bsize := uint64(st.Bsize)
	fs.Capacity = bsize * st.Blocks
	fs.Free = bsize * st.Bfree
	fs.Available = bsize * st.Bavail
	return nil
}

// statDevice returns the id of the device containing root.
func statDevice(root []byte) (uint64, error) {
	var st unix.Stat_t
	if err := unix.Stat(string(root), &st); err != nil {
		return 0, bounded.NewIOError(string(root), err)
	}
	return uint64(st.Dev), nil
}

func deviceNumbers(dev uint64) (major, minor uint64) {
	return uint64(unix.Major(dev)), uint64(unix.Minor(dev))
}
