// Package httpapi exposes the authentication service over HTTP: the session
// routes, the OAuth redirect routes, the auth gate middleware, and the
// operational endpoints.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/jaeha-dev/inklings/internal/logging"
	"github.com/jaeha-dev/inklings/internal/server/auth"
	"github.com/jaeha-dev/inklings/internal/server/config"
	"github.com/jaeha-dev/inklings/internal/server/metrics"
	"github.com/jaeha-dev/inklings/internal/server/oauth"
	"github.com/jaeha-dev/inklings/internal/server/oauthlinks"
	"github.com/jaeha-dev/inklings/internal/server/sessions"
)

const shutdownTimeout = 5 * time.Second

// Server wires the session service and OAuth providers into an HTTP router.
type Server struct {
	cfg            *config.Config
	sessions       *sessions.Service
	issuer         *auth.Issuer
	providers      map[oauthlinks.Provider]oauth.Provider
	logger         logging.Logger
	recorder       metrics.AuthRecorder
	metricsHandler http.Handler
	limiter        *RateLimiter
	httpServer     *http.Server
}

func NewServer(
	cfg *config.Config,
	sessionService *sessions.Service,
	issuer *auth.Issuer,
	providers map[oauthlinks.Provider]oauth.Provider,
	logger logging.Logger,
	recorder metrics.AuthRecorder,
	metricsHandler http.Handler,
) *Server {
	s := &Server{
		cfg:            cfg,
		sessions:       sessionService,
		issuer:         issuer,
		providers:      providers,
		logger:         logger,
		recorder:       recorder,
		metricsHandler: metricsHandler,
		limiter:        NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
	}
	s.httpServer = &http.Server{Addr: cfg.EndpointAddr, Handler: s.Router()}
	return s
}

// Router assembles the route tree. Auth routes sit behind the per-client
// rate limit; routes reading the caller's identity sit behind the auth gate.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(s.RequestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", s.metricsHandler)
	}

	r.Route("/api/auth", func(r chi.Router) {
		r.Use(s.limiter.Middleware)

		r.Post("/login", s.handleLogin)
		r.Post("/refresh", s.handleRefresh)
		r.Post("/logout", s.handleLogout)
		r.Get("/{provider}/login-url", s.handleLoginURL)
		r.Get("/{provider}/callback", s.handleCallback)

		r.Group(func(r chi.Router) {
			r.Use(s.Authenticator)
			r.Delete("/logout-all", s.handleLogoutAll)
			r.Get("/me", s.handleMe)
		})
	})

	r.Route("/api/users", func(r chi.Router) {
		r.Use(s.Authenticator)
		r.Delete("/me", s.handleDeleteAccount)
	})

	return r
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "http server listening", "addr", s.cfg.EndpointAddr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.limiter.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}
