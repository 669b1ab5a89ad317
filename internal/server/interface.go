package server

import (
	"context"
	"net/http"
)

// Service is the network layer of the process.
type Service interface {
	// Start listens and serves until a fatal error occurs or ctx is canceled.
	Start(ctx context.Context) error

	// Stop drains active connections or gives up when ctx expires.
	Stop(ctx context.Context) error

	// RegisterHTTPHandler registers a handler for a pattern. Call before Start.
	RegisterHTTPHandler(pattern string, handler http.Handler)

	// HTTPMux returns the underlying mux for direct route registration.
	HTTPMux() *http.ServeMux
}
