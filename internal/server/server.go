package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"mediloop/internal/auth"
	"mediloop/internal/config"
	"mediloop/internal/donation"
	"mediloop/internal/metrics"
)

type DonationStore interface {
	Insert(ctx context.Context, d donation.Donation) (string, error)
}

type Server struct {
	Auth      *auth.Service
	Donations DonationStore
	Metrics   *metrics.Recorder
	Logger    *slog.Logger
	Config    config.Config
	Now       func() time.Time

	trustedProxies []net.IPNet
	allowedOrigins map[string]struct{}
}

func NewServer(cfg config.Config, svc *auth.Service, donations DonationStore, rec *metrics.Recorder, logger *slog.Logger) *Server {
	origins := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		origins[o] = struct{}{}
	}
	return &Server{
		Auth:           svc,
		Donations:      donations,
		Metrics:        rec,
		Logger:         logger,
		Config:         cfg,
		Now:            time.Now,
		trustedProxies: parseProxyCIDRs(cfg.TrustedProxies),
		allowedOrigins: origins,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(secureHeaders)
	r.Use(s.cors)

	r.MethodNotAllowed(methodNotAllowed)
	r.NotFound(notFound)

	r.Route("/auth", func(ar chi.Router) {
		ar.Post("/register", s.handleRegister)
		ar.Post("/login", s.handleLogin)
		ar.Post("/logout", s.handleLogout)
		ar.Get("/check_session", s.handleCheckSession)

		ar.Post("/verify_email", s.handleVerifyEmail)
		ar.Post("/resend_verification", s.handleResendVerification)
		ar.Post("/forgot_password", s.handleForgotPassword)
		ar.Post("/reset_password", s.handleResetPassword)
	})

	r.Post("/process/donation", s.handleDonation)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, envelope{"ok": true})
	})
	r.Method(http.MethodGet, "/metrics", s.Metrics.Handler())

	return r
}

// client builds the request-scoped auth view of the caller.
func (s *Server) client(r *http.Request) *auth.Client {
	c := auth.NewClient(r, clientIP(r, s.trustedProxies))
	c.Secure = isTLS(r, s.trustedProxies)
	return c
}

func (s *Server) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Server) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// statusFor maps a facade outcome onto an HTTP status. authStatus is used for
// credential failures, which differ between login (401) and token flows (400).
func statusFor(res auth.Result, authStatus int) int {
	switch res.Kind() {
	case auth.KindNone:
		return http.StatusOK
	case auth.KindValidation:
		return http.StatusBadRequest
	case auth.KindAuth:
		return authStatus
	case auth.KindState:
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}
