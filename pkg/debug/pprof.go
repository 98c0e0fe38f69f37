// Package debug provides instrumentation and profiling tools for hoststat.
package debug

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	_ "net/http/pprof"
	"time"

	"github.com/sirupsen/logrus"
)

// StartPprofServer starts a pprof HTTP server at the given address and
// returns the bound address with a function that shuts the server down.
func StartPprofServer(addr string, logger *logrus.Logger) (string, func(), error) {
	if addr == "" {
		addr = "localhost:6060"
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, fmt.Errorf("pprof server failed: %w", err)
	}

	server := &http.Server{
		Handler:           http.DefaultServeMux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	bound := ln.Addr().String()
	logger.WithField("addr", bound).Info("pprof server starting")
	go func() {
		if err := server.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("pprof server stopped")
		}
	}()

	stop := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}

	return bound, stop, nil
}
