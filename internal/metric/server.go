package metric

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/5342/C5SIGMA/internal/xerrors"
)

// Server exposes a Registry's metrics over HTTP for Prometheus scraping.
type Server struct {
	port     int
	path     string
	registry *Registry
	server   *http.Server
	mu       sync.Mutex
}

// NewServer returns a metrics server bound to port, serving registry at path
// (defaulting to /metrics).
func NewServer(port int, path string, registry *Registry) *Server {
	if path == "" {
		path = "/metrics"
	}
	return &Server{port: port, path: path, registry: registry}
}

// Start launches the HTTP server in the background and returns immediately.
// Listen failures after startup are logged by the caller via the returned
// error channel's single value.
func (s *Server) Start() <-chan error {
	errCh := make(chan error, 1)

	s.mu.Lock()
	defer s.mu.Unlock()

	mux := http.NewServeMux()
	mux.Handle(s.path, promhttp.HandlerFor(s.registry.PrometheusRegistry(), promhttp.HandlerOpts{EnableOpenMetrics: true}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: mux,
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- xerrors.WrapTransient(err, "metric", "Start", fmt.Sprintf("metrics server on port %d", s.port))
			return
		}
		errCh <- nil
	}()

	return errCh
}

// Stop shuts the metrics server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return nil
	}
	if err := s.server.Shutdown(ctx); err != nil {
		return xerrors.WrapTransient(err, "metric", "Stop", "shut down metrics server")
	}
	return nil
}
