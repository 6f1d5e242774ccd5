// Package services adapts plain Go components into suture.Service so the
// supervisor tree can start and stop them uniformly, grounded on the
// teacher's internal/supervisor/services.HTTPServerService wrapper.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// httpServer matches the *http.Server lifecycle methods this wrapper needs,
// kept as an interface so tests can substitute a fake.
type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPServer wraps an *http.Server as a suture.Service: ListenAndServe runs
// in a goroutine, and a context cancellation triggers a bounded graceful
// Shutdown instead of killing in-flight requests outright.
type HTTPServer struct {
	server          httpServer
	shutdownTimeout time.Duration
}

// NewHTTPServer builds an HTTPServer service wrapping server.
func NewHTTPServer(server *http.Server, shutdownTimeout time.Duration) *HTTPServer {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPServer{server: server, shutdownTimeout: shutdownTimeout}
}

// Serve implements suture.Service.
func (h *HTTPServer) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()
		if err := h.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}

// String implements fmt.Stringer for suture's event logging.
func (h *HTTPServer) String() string { return "http-server" }
