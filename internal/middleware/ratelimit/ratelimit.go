// Package ratelimit throttles API clients by IP address.
package ratelimit

import (
	"log/slog"
	"net/http"

	"github.com/ulule/limiter/v3"
	stdlib "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// Config holds rate limiter configuration
type Config struct {
	// Rate in limiter notation: "100-M" is 100 per minute, "10-S" 10 per second.
	// Empty disables limiting.
	Rate string
	// TrustForwardHeader keys clients on X-Forwarded-For / X-Real-IP.
	TrustForwardHeader bool
}

// New returns middleware enforcing cfg.Rate per client IP with an in-memory
// store. Rejected requests get a JSON 429.
func New(cfg Config) (func(http.Handler) http.Handler, error) {
	if cfg.Rate == "" {
		return passthrough, nil
	}
	rate, err := limiter.NewRateFromFormatted(cfg.Rate)
	if err != nil {
		return nil, err
	}
	instance := limiter.New(memory.NewStore(), rate, limiter.WithTrustForwardHeader(cfg.TrustForwardHeader))
	mw := stdlib.NewMiddleware(instance,
		stdlib.WithLimitReachedHandler(limitReached),
		stdlib.WithErrorHandler(storeFailed),
	)
	return mw.Handler, nil
}

func limitReached(w http.ResponseWriter, r *http.Request) {
	slog.WarnContext(r.Context(), "Rate limit exceeded", "path", r.URL.Path, "client_ip", r.RemoteAddr)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_, _ = w.Write([]byte(`{"msg":"Too many requests"}`))
}

func storeFailed(w http.ResponseWriter, r *http.Request, err error) {
	slog.ErrorContext(r.Context(), "Rate limit store failed", "error", err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte(`{"msg":"Internal server error"}`))
}

func passthrough(next http.Handler) http.Handler { return next }
