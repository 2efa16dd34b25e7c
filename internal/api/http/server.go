// Package http wires the application services into a chi-routed HTTP API.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/quietpages/quietpages-server/internal/api/http/handler"
	"github.com/quietpages/quietpages-server/internal/api/http/middleware"
	"github.com/quietpages/quietpages-server/internal/config"
	"github.com/quietpages/quietpages-server/internal/logger"
)

const shutdownTimeout = 10 * time.Second

// Server is the HTTP front of the application.
type Server struct {
	httpServer *http.Server
	config     config.HTTP
	logger     *logger.Logger
}

// NewServer builds the router and the underlying http.Server.
func NewServer(
	cfg config.HTTP,
	auth *handler.Auth,
	oauth *handler.OAuth,
	entries *handler.Entry,
	health *handler.Health,
	verifier middleware.TokenVerifier,
	l *logger.Logger,
) *Server {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestLogger(l))

	r.Get("/healthz", health.Liveness)
	r.Get("/readyz", health.Readiness)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", auth.SignUp)
			r.Post("/signin", auth.SignIn)
			r.Post("/signout", auth.SignOut)
			r.Post("/refresh", auth.Refresh)
			r.Post("/reset-request", auth.RequestPasswordReset)
			r.Post("/reset", auth.ResetPassword)

			// Provider sign-in is optional and off unless configured.
			if oauth != nil {
				r.Get("/oauth/google", oauth.Redirect)
				r.Get("/oauth/google/callback", oauth.Callback)
			}

			r.Group(func(r chi.Router) {
				r.Use(middleware.Authenticate(verifier))
				r.Get("/me", auth.Me)
				r.Post("/password", auth.UpdatePassword)
			})
		})

		r.Route("/entries", func(r chi.Router) {
			r.Use(middleware.Authenticate(verifier))
			r.Get("/", entries.List)
			r.Post("/", entries.Create)
			r.Get("/events", entries.Events)
			r.Post("/backup", entries.Backup)
			r.Get("/{entryID}", entries.Get)
			r.Patch("/{entryID}", entries.Update)
			r.Delete("/{entryID}", entries.Delete)
		})
	})

	return &Server{
		httpServer: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
		config: cfg,
		logger: l,
	}
}

// Start blocks serving requests until the listener fails or Stop is called.
func (s *Server) Start() error {
	s.logger.Info("starting http server", "addr", s.httpServer.Addr, "https", s.config.EnableHTTPS)

	var err error
	if s.config.EnableHTTPS {
		err = s.httpServer.ListenAndServeTLS(s.config.CertFileName, s.config.PrivateKeyFileName)
	} else {
		err = s.httpServer.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop drains in-flight requests and shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	return s.httpServer.Shutdown(ctx)
}
