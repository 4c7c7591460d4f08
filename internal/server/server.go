// Package server runs an HTTP server for the local fake API with graceful shutdown.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ShutdownTimeout bounds the graceful stop before connections are closed.
const ShutdownTimeout = 5 * time.Second

// Server wraps http.Server with logging and panic recovery.
type Server struct {
	srv *http.Server
	log *zap.Logger
}

// New wraps h with Recover and Logging.
func New(h http.Handler, log *zap.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Handler:           Recover(log, Logging(log, h)),
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: log,
	}
}

// Serve accepts connections on lis until ctx is done, then shuts down.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", lis.Addr().String()))
		errCh <- s.srv.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := s.srv.Shutdown(sctx); err != nil {
			_ = s.srv.Close()
			return err
		}
		s.log.Info("shutdown complete")
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
