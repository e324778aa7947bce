package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server with the project's timeouts. The write timeout
// leaves room for a bulk dispatch to finish.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
}
