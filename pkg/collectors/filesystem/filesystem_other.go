//go:build !linux

package filesystem

import (
	"errors"

	"github.com/danpilch/hoststat/pkg/bounded"
)

// ReadFSUtil is only implemented on Linux.
func ReadFSUtil(fs *FilesystemSample) error {
	return bounded.NewIOError(string(fs.Root), errors.ErrUnsupported)
}

func statDevice(root []byte) (uint64, error) {
	return 0, bounded.NewIOError(string(root), errors.ErrUnsupported)
}

func deviceNumbers(dev uint64) (major, minor uint64) {
	return 0, 0
}
