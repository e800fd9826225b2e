package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

const metricsReadHeaderTimeout = 5 * time.Second

// MetricsServer exposes a Prometheus exporter at /metrics while a long run
// is in progress.
type MetricsServer struct {
	server   *http.Server
	listener net.Listener
}

// NewMetricsServer starts serving exporter at addr. Use port 0 to pick a
// free port; Addr reports the one chosen.
func NewMetricsServer(ctx context.Context, addr string, exporter *PrometheusExporter) (*MetricsServer, error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", exporter.Handler())

	var lc net.ListenConfig

	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: metricsReadHeaderTimeout}

	go func() {
		serveErr := srv.Serve(listener)
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Warn("metrics server stopped", "error", serveErr)
		}
	}()

	return &MetricsServer{server: srv, listener: listener}, nil
}

// Addr returns the address the server is listening on.
func (m *MetricsServer) Addr() string {
	return m.listener.Addr().String()
}

// Close shuts the server down.
func (m *MetricsServer) Close() error {
	err := m.server.Shutdown(context.Background())
	if err != nil {
		return fmt.Errorf("shutdown metrics server: %w", err)
	}

	return nil
}
