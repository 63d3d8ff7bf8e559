package metric

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/finrocmirror/finroc-plugins-structure/errors"
)

// Server represents the metrics HTTP server
type Server struct {
	address  string
	path     string
	server   *http.Server
	registry *MetricsRegistry
	routes   map[string]http.Handler
	mu       sync.Mutex // protects server and routes
}

// NewServer creates a new metrics server with the provided registry.
// address is host:port; an empty host listens on all interfaces.
func NewServer(address, path string, registry *MetricsRegistry) *Server {
	if path == "" {
		path = "/metrics"
	}
	if address == "" {
		address = ":9090"
	}

	return &Server{
		address:  address,
		path:     path,
		registry: registry,
	}
}

// Handler builds the HTTP handler serving metrics and a health endpoint
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle(s.path, promhttp.HandlerFor(
		s.registry.PrometheusRegistry(),
		promhttp.HandlerOpts{
			EnableOpenMetrics: true,
		},
	))

	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	s.mu.Lock()
	for pattern, h := range s.routes {
		mux.Handle(pattern, h)
	}
	s.mu.Unlock()

	return mux
}

// Handle registers an additional route. Routes must be added before Start.
func (s *Server) Handle(pattern string, h http.Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.routes == nil {
		s.routes = make(map[string]http.Handler)
	}
	s.routes[pattern] = h
}

// Start starts the metrics HTTP server. It blocks until the server stops.
func (s *Server) Start() error {
	if s.registry == nil {
		return errors.WrapFatal(
			fmt.Errorf("nil registry"),
			"Server", "Start", "metrics registry not provided")
	}
	handler := s.Handler()

	s.mu.Lock()
	if s.server != nil {
		s.mu.Unlock()
		return errors.WrapInvalid(
			fmt.Errorf("server already running"),
			"Server", "Start", "cannot start server that is already running")
	}
	srv := &http.Server{
		Addr:              s.address,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.server = srv
	s.mu.Unlock()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.WrapFatal(err, "Server", "Start",
			fmt.Sprintf("failed to start server on %s", s.address))
	}

	return nil
}

// Stop stops the metrics server
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		err := s.server.Close()
		s.server = nil
		if err != nil {
			return errors.WrapTransient(err, "Server", "Stop",
				"failed to stop HTTP server")
		}
	}
	return nil
}

// Address returns the metrics URL
func (s *Server) Address() string {
	return fmt.Sprintf("http://%s%s", s.address, s.path)
}
