package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/danpilch/hoststat/pkg/config"
	"github.com/danpilch/hoststat/pkg/exporter"
	"github.com/danpilch/hoststat/pkg/sampler"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const indexPage = `<html>
<head><title>hoststat</title></head>
<body>
<h1>hoststat</h1>
<p><a href="/metrics">Metrics</a></p>
</body>
</html>
`

func newServeCmd(a *app) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve Prometheus metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("listen") {
				a.cfg.Listen = listen
			}

			e := exporter.New(sampler.New(a.cfg, a.logger), a.logger)

			mux := http.NewServeMux()
			mux.Handle("/metrics", exporter.Handler(e))
			mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/" {
					http.NotFound(w, r)
					return
				}
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				fmt.Fprint(w, indexPage)
			})

			server := &http.Server{
				Addr:              a.cfg.Listen,
				Handler:           mux,
				ReadHeaderTimeout: 10 * time.Second,
			}
			return serve(cmd.Context(), server, a.logger)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", config.Default().Listen, "address to serve /metrics on")
	return cmd
}

// serve runs server until ctx is done, then shuts it down.
func serve(ctx context.Context, server *http.Server, logger *logrus.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", server.Addr).Info("Serving metrics")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serving metrics: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("Metrics server stopped")
	return nil
}
