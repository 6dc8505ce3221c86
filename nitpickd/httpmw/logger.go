package httpmw

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"cdr.dev/slog"
)

// Logger logs one line per request with status code and duration.
func Logger(log slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := middleware.NewWrapResponseWriter(rw, r.ProtoMajor)

			next.ServeHTTP(sw, r)

			log.Debug(r.Context(), "http request",
				slog.F("method", r.Method),
				slog.F("path", r.URL.Path),
				slog.F("remote_addr", r.RemoteAddr),
				slog.F("status_code", sw.Status()),
				slog.F("took", time.Since(start)),
			)
		})
	}
}
