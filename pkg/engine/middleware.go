package engine

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/hemaweb/featmock/pkg/httputil"
)

// corsMiddleware adds the permissive CORS headers to every response.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.SetCORS(w.Header())
		next.ServeHTTP(w, r)
	})
}

// recoverMiddleware turns panics outside mock handlers into a 500 JSON body.
// http.ErrAbortHandler is re-raised so net/http can abort the connection.
func recoverMiddleware(log *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &statusWriter{ResponseWriter: w}
		defer func() {
			p := recover()
			if p == nil {
				return
			}
			if p == http.ErrAbortHandler {
				panic(p)
			}
			log.Error("server error", "path", r.URL.Path, "panic", p, "stack", string(debug.Stack()))
			if !rw.written {
				httputil.WriteInternalError(w, fmt.Sprint(p))
			}
		}()
		next.ServeHTTP(rw, r)
	})
}

// statusWriter records whether a response has started.
type statusWriter struct {
	http.ResponseWriter
	written bool
}

func (w *statusWriter) WriteHeader(code int) {
	w.written = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.written = true
	return w.ResponseWriter.Write(b)
}

// Flush implements http.Flusher if the underlying ResponseWriter supports it.
func (w *statusWriter) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Unwrap exposes the underlying writer to http.ResponseController, which the
// WebSocket upgrade relies on.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
