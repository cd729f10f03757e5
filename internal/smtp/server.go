package smtp

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"github.com/welldanyogia/mime-sentry/internal/metrics"
)

// Server accepts SMTP connections and runs one Session per connection.
type Server struct {
	config   *Config
	handler  DataHandler
	log      *slog.Logger
	listener net.Listener
}

// NewServer creates an SMTP ingress server.
func NewServer(config *Config, handler DataHandler, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{config: config, handler: handler, log: log}
}

// ListenAndServe binds the configured port and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.config.Port))
	if err != nil {
		return fmt.Errorf("smtp listen: %w", err)
	}
	s.listener = ln
	s.log.Info("SMTP ingress listening", "port", s.config.Port)

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			s.log.Warn("accept failed", "error", err)
			continue
		}
		metrics.SMTPConnectionsTotal.Inc()
		go NewSession(conn, s.config, s.handler).Run()
	}
}
