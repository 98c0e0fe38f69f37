package bounded

// List is a fixed-capacity result list over a caller-owned slice. Its length
// never exceeds len(base) and base is never reallocated.
type List[T any] struct {
	base []T
	n    int
}

// NewList returns an empty list whose capacity is len(base).
func NewList[T any](base []T) *List[T] {
	return &List[T]{base: base}
}

// Next claims the next free slot and returns a pointer to it. The slot is
// not cleared. When the list is full Next returns ErrOverflow and the
// already-filled entries stay valid.
func (l *List[T]) Next() (*T, error) {
	if l.n >= len(l.base) {
		return nil, ErrOverflow
	}
	slot := &l.base[l.n]
	l.n++
	return slot, nil
}

// Reset empties the list without touching its storage.
func (l *List[T]) Reset() { l.n = 0 }

// Len returns the number of filled entries.
func (l *List[T]) Len() int { return l.n }

// Cap returns the list capacity.
func (l *List[T]) Cap() int { return len(l.base) }

// Items returns the filled entries. The slice aliases the list storage.
func (l *List[T]) Items() []T { return l.base[:l.n] }

// At returns a pointer to the i-th filled entry.
func (l *List[T]) At(i int) *T { return &l.base[:l.n][i] }
