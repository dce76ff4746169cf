// Package trace assigns request ids and logs each request's start and end.
package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	applog "timetrack/internal/log"
)

type ContextKey string

const (
	RequestIDKey ContextKey = "request_id"
	// HeaderRequestID carries the id back to the client.
	HeaderRequestID = "X-Request-ID"
)

// Middleware handles request tracing and logging
type Middleware struct {
	logger *applog.StructuredLogger
}

func NewMiddleware(logger *applog.Logger) *Middleware {
	return &Middleware{logger: applog.NewStructuredLogger(logger)}
}

// Handler tags the request with an id, taken from X-Request-ID when the
// client sent a well-formed one, and logs start and completion.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := incomingID(r.Header.Get(HeaderRequestID))
		if requestID == "" {
			requestID = GenerateRequestID()
		}
		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		r = r.WithContext(ctx)
		w.Header().Set(HeaderRequestID, requestID)

		clientIP := r.RemoteAddr
		m.logger.LogHTTPStart(ctx, r, requestID, clientIP)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.logger.LogHTTPEnd(ctx, r, requestID, status, time.Since(start).Milliseconds(), clientIP)
	})
}

// incomingID accepts short printable ids only.
func incomingID(s string) string {
	if s == "" || len(s) > 64 {
		return ""
	}
	if strings.IndexFunc(s, func(r rune) bool { return r <= ' ' || r > '~' }) >= 0 {
		return ""
	}
	return s
}

// GenerateRequestID creates a unique request ID for tracing
func GenerateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// FromRequest is GetRequestID for log.RequestIDMiddleware.
func FromRequest(r *http.Request) string {
	return GetRequestID(r.Context())
}
