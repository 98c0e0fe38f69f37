package output

import (
	"strings"
	"sync"
)

// sparkBlocks run from lowest to highest.
var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// window is a ring of the most recent values of one metric.
type window struct {
	values []float64
	next   int
	full   bool
}

func (w *window) push(v float64) {
	w.values[w.next] = v
	w.next++
	if w.next == len(w.values) {
		w.next = 0
		w.full = true
	}
}

// ordered returns the values oldest first.
func (w *window) ordered() []float64 {
	if !w.full {
		return w.values[:w.next]
	}
	out := make([]float64, 0, len(w.values))
	out = append(out, w.values[w.next:]...)
	return append(out, w.values[:w.next]...)
}

// SparklineTracker keeps a fixed window of recent values per metric key
// for sparkline rendering.
type SparklineTracker struct {
	mu      sync.Mutex
	windows map[string]*window
	size    int

	// Values are drawn against lo..hi when scaled, else against the
	// window's own range.
	scaled bool
	lo, hi float64
}

// NewSparklineTracker creates a tracker keeping size values per key.
func NewSparklineTracker(size int) *SparklineTracker {
	if size < 1 {
		size = 20
	}
	return &SparklineTracker{
		windows: make(map[string]*window),
		size:    size,
	}
}

// SetScale draws every sparkline against lo..hi, such as 0..100 for
// percentages.
func (s *SparklineTracker) SetScale(lo, hi float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scaled, s.lo, s.hi = hi > lo, lo, hi
}

// Record adds a new value for a metric key.
func (s *SparklineTracker) Record(key string, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	if !ok {
		w = &window{values: make([]float64, s.size)}
		s.windows[key] = w
	}
	w.push(value)
}

// Sparkline returns a Unicode sparkline string for a metric key.
func (s *SparklineTracker) Sparkline(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	if !ok {
		return ""
	}
	values := w.ordered()
	if len(values) == 0 {
		return ""
	}

	lo, hi := s.lo, s.hi
	if !s.scaled {
		lo, hi = values[0], values[0]
		for _, v := range values {
			lo, hi = min(lo, v), max(hi, v)
		}
	}
	return renderSparkline(values, lo, hi)
}

func renderSparkline(values []float64, lo, hi float64) string {
	top := len(sparkBlocks) - 1

	var b strings.Builder
	for _, v := range values {
		idx := 0
		if hi > lo {
			idx = int((v - lo) / (hi - lo) * float64(top))
		}
		b.WriteRune(sparkBlocks[max(0, min(idx, top))])
	}
	return b.String()
}
