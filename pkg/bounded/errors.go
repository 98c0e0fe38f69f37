// Package bounded provides the fixed-capacity primitives shared by every
// collector: a line reader that copies records into caller buffers, an
// append-only string chain, a bounded result list, and the error kinds
// they report.
//
// Nothing in this package allocates on the hot path or grows a caller's
// buffer. When capacity runs out the operation stops and returns
// [ErrOverflow]; whatever was already written stays valid.
package bounded

import (
	"errors"
	"fmt"
)

var (
	// ErrOverflow reports that a fixed buffer or list capacity was exhausted.
	// Where a list is involved the entries filled before the overflow are
	// still valid; callers inspect Len.
	ErrOverflow = errors.New("bounded: capacity exhausted")

	// ErrNotFound reports that a lookup or correlation found no match.
	ErrNotFound = errors.New("bounded: not found")

	// ErrIO is matched by every *IOError via errors.Is.
	ErrIO = errors.New("bounded: data source failed")
)

// IOError reports that a data source could not be opened, read or queried.
// Err carries the platform error.
type IOError struct {
	Source string
	Err    error
}

// NewIOError wraps err for the named source. A nil err returns nil.
func NewIOError(source string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Source: source, Err: err}
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Is reports whether target is ErrIO.
func (e *IOError) Is(target error) bool { return target == ErrIO }
