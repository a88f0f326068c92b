package metrics

import (
	"context"
	"net/http"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes /metrics on its own listener, separate from any
// webhook/API server (spec §6 server.metrics_port).
type Server struct {
	server *http.Server
	log    logr.Logger
}

func NewServer(port string, log logr.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &Server{
		server: &http.Server{Addr: ":" + port, Handler: mux},
		log:    log,
	}
}

// StartAsync runs the listener on its own goroutine; ListenAndServe's
// terminal http.ErrServerClosed from a graceful Stop is expected, not
// an error worth logging.
func (s *Server) StartAsync() {
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error(err, "metrics server stopped unexpectedly")
		}
	}()
}

func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
