// Package metrics exposes Prometheus collectors for the API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "timetrack_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	entryWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timetrack_entry_writes_total",
			Help: "Time entry create/update attempts by outcome",
		},
		[]string{"operation", "outcome"},
	)
	cascadePurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "timetrack_cascade_entries_purged_total",
			Help: "Time entries removed by project deactivation sweeps",
		},
	)
)

// Middleware records request duration labelled by route pattern, so ids in
// paths do not create new series.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		httpRequestDuration.WithLabelValues(r.Method, routePattern(r), strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// RecordEntryWrite counts one entry write. outcome is "ok" or an error kind.
func RecordEntryWrite(operation, outcome string) {
	entryWrites.WithLabelValues(operation, outcome).Inc()
}

// RecordPurged adds n sweep-removed entries.
func RecordPurged(n int64) {
	if n > 0 {
		cascadePurged.Add(float64(n))
	}
}
