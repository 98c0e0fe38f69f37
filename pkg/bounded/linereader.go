package bounded

import (
	"bufio"
	"errors"
	"io"
)

// readAhead matches the stdio buffer size a FILE would get.
const readAhead = 4096

// LineReader copies newline-terminated records from a source into
// caller-supplied buffers. It never grows those buffers.
type LineReader struct {
	br     *bufio.Reader
	source string
}

// NewLineReader returns a reader over r. source names r in IOError values.
func NewLineReader(r io.Reader, source string) *LineReader {
	return &LineReader{
		br:     bufio.NewReaderSize(r, readAhead),
		source: source,
	}
}

// ReadLine copies the next record, including its trailing '\n', into buf
// and returns buf[:n].
//
// At end of stream ReadLine returns nil and io.EOF. A final record without
// a terminator is returned as an ordinary record, and io.EOF follows on the
// next call. If the record does not fit in buf, ReadLine returns
// ErrOverflow; the reader is then positioned mid-record and the caller
// should stop reading. Any other read failure is returned as an *IOError.
func (r *LineReader) ReadLine(buf []byte) ([]byte, error) {
	n := 0
	for {
		chunk, err := r.br.ReadSlice('\n')
		if len(chunk) > len(buf)-n {
			return nil, ErrOverflow
		}
		n += copy(buf[n:], chunk)

		switch {
		case err == nil:
			return buf[:n], nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if n == 0 {
				return nil, io.EOF
			}
			return buf[:n], nil
		default:
			return nil, NewIOError(r.source, err)
		}
	}
}
