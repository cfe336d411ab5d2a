package httpserver

import (
	"net/http"
	"time"
)

// Timeouts sized around the 30s handler deadline the router enforces: writes
// get headroom to flush a late response, idle keep-alives are bounded so
// load balancers recycle connections.
const (
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 15 * time.Second
	writeTimeout      = 35 * time.Second
	idleTimeout       = 2 * time.Minute
)

// New builds an HTTP server with the engine's timeout policy applied.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
}
