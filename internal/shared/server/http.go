package server

import (
	"log/slog"
	"net/http"
	"time"

	"test-report-backend/internal/shared/telemetry"
)

const readHeaderTimeout = 10 * time.Second

// NewHTTPServer builds the API's http.Server. Errors reported by net/http
// itself go to the JSON logger.
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          slog.NewLogLogger(telemetry.Logger().Handler(), slog.LevelError),
	}
}
