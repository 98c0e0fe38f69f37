package debug

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// TraceHook is a logrus hook that writes every entry as a one-line trace
// record, prefixed with the collector it came from when there is one.
type TraceHook struct {
	mu     sync.Mutex
	writer io.Writer
}

// NewTraceHook creates a trace hook writing to w.
func NewTraceHook(w io.Writer) *TraceHook {
	return &TraceHook{writer: w}
}

// Levels reports that the hook fires for every level.
func (h *TraceHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire writes one trace record.
func (h *TraceHook) Fire(entry *logrus.Entry) error {
	collector := "-"
	keys := make([]string, 0, len(entry.Data))
	for k, v := range entry.Data {
		if k == "collector" {
			collector = fmt.Sprint(v)
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "[TRACE %s] %s: %s",
		entry.Time.Format("15:04:05.000"), collector, entry.Message)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, entry.Data[k])
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.writer, b.String())
	return err
}
