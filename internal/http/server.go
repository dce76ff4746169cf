package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"timetrack/internal/cache"
	"timetrack/internal/core"
	applog "timetrack/internal/log"
	"timetrack/internal/middleware/metrics"
	"timetrack/internal/middleware/ratelimit"
	"timetrack/internal/middleware/security"
	"timetrack/internal/middleware/trace"
	"timetrack/internal/report"
	"timetrack/internal/services"
)

// Config tunes the HTTP surface.
type Config struct {
	Addr               string
	RateLimit          string // limiter notation, empty disables
	TrustForwardHeader bool
	Development        bool
	MetricsEnabled     bool
	UserCacheSize      int
	UserCacheTTL       time.Duration
}

// Deps are the collaborators the handlers call into.
type Deps struct {
	Services *services.Services
	Tokens   TokenValidator
	Reports  *report.Renderer
	// Ready reports whether backing services can take traffic.
	Ready  func(context.Context) error
	Logger *applog.Logger
}

// Server is the JSON API.
type Server struct {
	http.Server
	svc       *services.Services
	reports   *report.Renderer
	validator *Validator
	ready     func(context.Context) error

	userCache    *cache.LRUCache[core.User]
	cacheManager *cache.Manager
	stopCleanup  context.CancelFunc
	shutdownOnce sync.Once
}

// NewServer wires middleware and routes. The returned server is not yet
// listening.
func NewServer(cfg Config, deps Deps) (*Server, error) {
	if cfg.UserCacheSize <= 0 {
		cfg.UserCacheSize = 1000
	}
	if cfg.UserCacheTTL <= 0 {
		cfg.UserCacheTTL = time.Minute
	}
	logger := deps.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	reports := deps.Reports
	if reports == nil {
		reports = report.NewRenderer(nil)
	}

	limit, err := ratelimit.New(ratelimit.Config{Rate: cfg.RateLimit, TrustForwardHeader: cfg.TrustForwardHeader})
	if err != nil {
		return nil, err
	}

	s := &Server{
		svc:       deps.Services,
		reports:   reports,
		validator: NewValidator(),
		ready:     deps.Ready,
		userCache: cache.NewLRUCache[core.User](cfg.UserCacheSize, cfg.UserCacheTTL),
	}
	s.cacheManager = cache.NewManager(s.userCache)

	authn := NewAuthenticator(deps.Tokens, deps.Services.Auth, s.userCache)

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(trace.NewMiddleware(logger).Handler)
	r.Use(applog.Middleware(logger.WithComponent(applog.ComponentHTTP)))
	r.Use(applog.RequestIDMiddleware(trace.FromRequest))
	r.Use(middleware.Recoverer)
	r.Use(security.NewDetector().Middleware)
	r.Use(security.Headers(security.Options(cfg.Development)))
	if cfg.MetricsEnabled {
		r.Use(metrics.Middleware)
	}

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	if cfg.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(limit)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", s.handleSignup)
			r.Post("/login", s.handleLogin)
		})

		r.Group(func(r chi.Router) {
			r.Use(authn.Middleware)

			r.Route("/projects", func(r chi.Router) {
				r.Get("/", s.handleListProjects)
				r.Post("/", s.handleCreateProject)
				r.Get("/{id}", s.handleGetProject)
				r.Patch("/{id}", s.handleUpdateProject)
				r.Delete("/{id}", s.handleDeleteProject)
			})

			r.Route("/time-entries", func(r chi.Router) {
				r.Post("/", s.handleCreateEntry)
				r.Get("/project/{projectId}", s.handleListProjectEntries)
				r.Get("/{id}", s.handleGetEntry)
				r.Patch("/{id}", s.handleUpdateEntry)
				r.Delete("/{id}", s.handleDeleteEntry)
			})

			r.Route("/summary", func(r chi.Router) {
				r.Get("/projects", s.handleProjectsSummary)
				r.Get("/overview", s.handleOverviewSummary)
				r.Get("/projects/export/pdf", s.handleProjectsPDF)
				r.Get("/overview/export/pdf", s.handleOverviewPDF)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusNotFound, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.stopCleanup = cancel
	go s.cacheManager.Run(ctx, 5*time.Minute)

	return s, nil
}

// Shutdown stops cache cleanup and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.stopCleanup()
		<-s.cacheManager.Done()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ok")
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			slog.WarnContext(r.Context(), "Readiness check failed", "error", err)
			writeMessage(w, http.StatusServiceUnavailable, "not ready")
			return
		}
	}
	writeMessage(w, http.StatusOK, "ready")
}
