package bounded

import "math"

// Fields walks the blank-separated tokens of a record in place.
type Fields struct {
	line []byte
	pos  int
}

// NewFields returns a tokenizer over line.
func NewFields(line []byte) Fields {
	return Fields{line: line}
}

func isBlank(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// Next returns the next token, or false when the record is exhausted. The
// token aliases the record.
func (f *Fields) Next() ([]byte, bool) {
	for f.pos < len(f.line) && isBlank(f.line[f.pos]) {
		f.pos++
	}
	if f.pos >= len(f.line) {
		return nil, false
	}
	start := f.pos
	for f.pos < len(f.line) && !isBlank(f.line[f.pos]) {
		f.pos++
	}
	return f.line[start:f.pos], true
}

// Span is like Next but returns the token's offsets within the record.
func (f *Fields) Span() (start, end int, ok bool) {
	tok, ok := f.Next()
	if !ok {
		return 0, 0, false
	}
	return f.pos - len(tok), f.pos, true
}

// Skip discards up to n tokens and returns how many were skipped.
func (f *Fields) Skip(n int) int {
	skipped := 0
	for ; skipped < n; skipped++ {
		if _, ok := f.Next(); !ok {
			break
		}
	}
	return skipped
}

// Uints parses consecutive unsigned decimal tokens into dst. Parsing stops
// at the first missing or non-numeric token; every slot from there on is
// set to 0. It returns the number of tokens parsed.
func (f *Fields) Uints(dst []uint64) int {
	n := 0
	for n < len(dst) {
		tok, ok := f.Next()
		if !ok {
			break
		}
		v, ok := ParseUint(tok)
		if !ok {
			break
		}
		dst[n] = v
		n++
	}
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
	return n
}

// ParseUint parses an unsigned decimal number. It rejects empty input,
// signs, non-digits and values that do not fit in 64 bits.
func ParseUint(b []byte) (uint64, bool) {
	if len(b) == 0 {
		return 0, false
	}
	var v uint64
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, false
		}
		d := uint64(c - '0')
		if v > (math.MaxUint64-d)/10 {
			return 0, false
		}
		v = v*10 + d
	}
	return v, true
}
