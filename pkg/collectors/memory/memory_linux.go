//go:build linux

package memory

import "golang.org/x/sys/unix"

func sysinfo(info *Info) error {
	var raw unix.Sysinfo_t
	if err := unix.Sysinfo(&raw); err != nil {
		return err
	}

	info.Unit = uint64(raw.Unit)
	info.TotalRAM = uint64(raw.Totalram)
	info.FreeRAM = uint64(raw.Freeram)
	info.SharedRAM = uint64(raw.Sharedram)
	info.BufferRAM = uint64(raw.Bufferram)
	info.TotalSwap = uint64(raw.Totalswap)
	info.FreeSwap = uint64(raw.Freeswap)
	return nil
}
