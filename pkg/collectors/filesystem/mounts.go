package filesystem

import "github.com/danpilch/hoststat/pkg/bounded"

// mountEntry holds offsets of the fields of one mount-table record. The
// source and root offsets refer to the decoded, in-place field contents.
type mountEntry struct {
	sourceStart, sourceEnd int
	rootStart, rootEnd     int
	typeStart, typeEnd     int
}

// parseMount splits "source root type options freq passno" and decodes the
// octal escapes of the source and root in place. Records with fewer than
// three fields are rejected.
func parseMount(line []byte) (mountEntry, bool) {
	var entry mountEntry
	fields := bounded.NewFields(line)

	var ok bool
	if entry.sourceStart, entry.sourceEnd, ok = fields.Span(); !ok {
		return entry, false
	}
	if entry.rootStart, entry.rootEnd, ok = fields.Span(); !ok {
		return entry, false
	}
	if entry.typeStart, entry.typeEnd, ok = fields.Span(); !ok {
		return entry, false
	}

	entry.sourceEnd = entry.sourceStart + len(unescape(line[entry.sourceStart:entry.sourceEnd]))
	entry.rootEnd = entry.rootStart + len(unescape(line[entry.rootStart:entry.rootEnd]))
	return entry, true
}

// unescape decodes the \ooo octal escapes the kernel uses for blanks and
// backslashes in mount-table fields. It works in place and returns the
// decoded prefix of b.
func unescape(b []byte) []byte {
	w := 0
	for r := 0; r < len(b); {
		if b[r] == '\\' && r+3 < len(b) && b[r+1] <= '3' && isOctal(b[r+1]) && isOctal(b[r+2]) && isOctal(b[r+3]) {
			b[w] = (b[r+1]-'0')<<6 | (b[r+2]-'0')<<3 | (b[r+3] - '0')
			w++
			r += 4
			continue
		}
		b[w] = b[r]
		w++
		r++
	}
	return b[:w]
}

func isOctal(c byte) bool {
	return c >= '0' && c <= '7'
}
