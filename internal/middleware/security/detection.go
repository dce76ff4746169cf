package security

import (
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
)

// probePatterns are path fragments only vulnerability scanners ask for.
var probePatterns = []string{
	"../", "..\\", "/.env", "/.git", "/.ssh", "wp-admin", "wp-login",
	"phpmyadmin", ".php", "etc/passwd", "cmd.exe", "<script", "union select",
}

// Detector turns away scanner probes before they reach routing.
type Detector struct {
	blocked atomic.Int64
}

func NewDetector() *Detector { return &Detector{} }

// IsProbe reports whether r looks like a scanner request.
func (d *Detector) IsProbe(r *http.Request) bool {
	path := strings.ToLower(r.URL.Path)
	if raw := strings.ToLower(r.URL.RawPath); raw != "" {
		path += " " + raw
	}
	for _, p := range probePatterns {
		if strings.Contains(path, p) {
			return true
		}
	}
	return false
}

// Middleware answers probes with a bare 404.
func (d *Detector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if d.IsProbe(r) {
			d.blocked.Add(1)
			slog.WarnContext(r.Context(), "Scanner probe blocked", "component", "security", "path", r.URL.Path, "client_ip", r.RemoteAddr)
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Blocked returns how many probes were rejected.
func (d *Detector) Blocked() int64 { return d.blocked.Load() }
