//go:build !linux

package memory

import "errors"

func sysinfo(*Info) error {
	return errors.ErrUnsupported
}
