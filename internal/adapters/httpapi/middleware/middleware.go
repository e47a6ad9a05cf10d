// Package middleware provides small gorilla/mux-compatible HTTP middleware
// shared by linkapi and shaperapi, adapted from the teacher's
// internal/adapters/web/middleware (auth/rate-limit middleware) onto this
// spec's much smaller unauthenticated status/control surface.
package middleware

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type ctxKey int

const requestIDKey ctxKey = 0

// RequestID stamps every request with a UUID, stored in the context and
// echoed back on the X-Request-Id response header, for log correlation
// across the control-plane HTTP surface.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New().String()
		w.Header().Set("X-Request-Id", id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDFrom extracts the id RequestID attached to ctx, or "" if absent.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// Logging logs method, path, status, duration, and request id for every
// request, mirroring the teacher's slog-based request logging.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		log.Printf("%s %s %d %s id=%s", r.Method, r.URL.Path, sw.status, time.Since(start), RequestIDFrom(r.Context()))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Headers sets the response headers spec.md §6 mandates on every reply
// from the control-plane HTTP surface: no keep-alive, no caching.
func Headers(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Connection", "close")
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// errorBody is the JSON shape spec.md §6 mandates for 4xx/5xx responses.
type errorBody struct {
	Error   int    `json:"error"`
	Message string `json:"message"`
}

// WriteError writes {"error":code,"message":...} with the given status,
// replacing the plain-text body http.Error would produce.
func WriteError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(errorBody{Error: code, Message: message})
}
