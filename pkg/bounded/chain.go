package bounded

import "bytes"

// Chain is an append-only set of NUL-terminated strings packed into one
// caller-owned buffer:
//
//	"ext4\x00xfs\x00<unused space>"
//	 ^           ^               ^
//	 0          tail          len(buf)
//
// The zero Chain has no capacity.
type Chain struct {
	buf  []byte
	tail int
}

// NewChain overlays an empty chain on buf.
func NewChain(buf []byte) Chain {
	return Chain{buf: buf}
}

// Add appends a copy of s followed by a NUL. It fails with ErrOverflow,
// leaving the chain untouched, unless len(s)+1 bytes are free. s may alias
// the chain's free region.
func (c *Chain) Add(s []byte) error {
	if len(s)+1 > len(c.buf)-c.tail {
		return ErrOverflow
	}
	n := copy(c.buf[c.tail:], s)
	c.buf[c.tail+n] = 0
	c.tail += n + 1
	return nil
}

// Find returns the first stored entry exactly equal to needle, without its
// terminator, or ErrNotFound. The returned slice aliases the chain's buffer.
func (c *Chain) Find(needle []byte) ([]byte, error) {
	for off := 0; off < c.tail; {
		end := bytes.IndexByte(c.buf[off:c.tail], 0)
		if end < 0 {
			break
		}
		entry := c.buf[off : off+end]
		if bytes.Equal(entry, needle) {
			return entry, nil
		}
		off += end + 1
	}
	return nil, ErrNotFound
}

// Count returns the number of stored entries.
func (c *Chain) Count() int {
	return bytes.Count(c.buf[:c.tail], []byte{0})
}

// Len returns the number of bytes in use, which is also the offset of the
// first free byte.
func (c *Chain) Len() int { return c.tail }

// Cap returns the size of the underlying buffer.
func (c *Chain) Cap() int { return len(c.buf) }

// Free returns the unused region after the last entry.
func (c *Chain) Free() []byte { return c.buf[c.tail:] }

// Reset discards all entries.
func (c *Chain) Reset() { c.tail = 0 }
