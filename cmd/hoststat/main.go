// Command hoststat samples per-core CPU, memory, filesystem and network
// counters from the kernel tables and reports them as snapshots, USE
// checks or Prometheus metrics.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/danpilch/hoststat/pkg/use"
)

// exitError carries a process exit code out of a command without an
// error message.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	var exit *exitError
	switch {
	case err == nil:
	case errors.As(err, &exit):
		os.Exit(exit.code)
	default:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(use.ExitToolError)
	}
}
