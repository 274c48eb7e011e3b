package middleware

import (
	"log/slog"
	"net/http"
	"time"
)

// Logging logs one structured line per request: method, path, status, size,
// and elapsed time. Attachment downloads can be large, so bytes written are
// tracked alongside the status.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(sw, r)

			logger.InfoContext(r.Context(), "request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", sw.status),
				slog.Int64("bytes", sw.written),
				slog.Duration("elapsed", time.Since(start)),
				slog.String("remote", r.RemoteAddr),
			)
		})
	}
}

// statusWriter records the status code and body size of a response.
type statusWriter struct {
	http.ResponseWriter
	status      int
	written     int64
	headerWrote bool
}

func (sw *statusWriter) WriteHeader(code int) {
	if !sw.headerWrote {
		sw.status = code
		sw.headerWrote = true
	}
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	sw.headerWrote = true
	n, err := sw.ResponseWriter.Write(b)
	sw.written += int64(n)
	return n, err
}
