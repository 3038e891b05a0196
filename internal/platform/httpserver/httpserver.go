// Package httpserver builds the process's http.Server with the timeouts the
// deployment expects.
package httpserver

import (
	"net/http"
	"time"
)

// New returns a server for addr. Per-request deadlines live in middleware;
// these bounds cover slow clients at the connection level.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
