// Package httpapi is the JSON HTTP boundary: request validation and
// sanitization, the auth and verification endpoints, and their middleware.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/idverifier/internal/logging"
	"github.com/dmitrijs2005/idverifier/internal/server/services"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

const (
	authBodyLimit   = "64K"
	limiterIdleTTL  = 10 * time.Minute
	shutdownTimeout = 10 * time.Second
)

type Server struct {
	echo           *echo.Echo
	address        string
	auth           *services.AuthService
	verification   *services.VerificationService
	issuer         services.TokenIssuer
	logger         logging.Logger
	limiter        *ipLimiter
	maxUploadBytes int64
}

// Options configures NewServer. A non-positive RateLimitRPS disables rate
// limiting.
type Options struct {
	Address        string
	MaxUploadBytes int64
	RateLimitRPS   float64
	RateLimitBurst int
}

func NewServer(opts Options, l logging.Logger, as *services.AuthService, vs *services.VerificationService, issuer services.TokenIssuer) *Server {
	s := &Server{
		echo:           echo.New(),
		address:        opts.Address,
		auth:           as,
		verification:   vs,
		issuer:         issuer,
		logger:         l.With("module", "http_server"),
		maxUploadBytes: opts.MaxUploadBytes,
	}
	if opts.RateLimitRPS > 0 {
		burst := opts.RateLimitBurst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = newIPLimiter(rate.Limit(opts.RateLimitRPS), burst, limiterIdleTTL)
	}

	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.HTTPErrorHandler = s.errorHandler
	// Client IPs come from the TCP peer; X-Forwarded-For and X-Real-IP are
	// client-controlled and would let callers pick their own limiter key.
	s.echo.IPExtractor = echo.ExtractIPDirect()

	s.routes()
	return s
}

func (s *Server) routes() {
	e := s.echo

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(s.requestLogger())
	e.Use(middleware.Recover())

	authLimited := []echo.MiddlewareFunc{middleware.BodyLimit(authBodyLimit)}
	if s.limiter != nil {
		authLimited = append(authLimited, s.limiter.middleware)
	}

	// /api/auth is what the web frontend calls; /auth is the short form.
	for _, prefix := range []string{"/api/auth", "/auth"} {
		g := e.Group(prefix)
		g.POST("/login", s.handleLogin, authLimited...)
		g.POST("/signup", s.handleSignup, authLimited...)
		g.GET("/validate", s.handleValidate)
		g.GET("/health", s.handleAuthHealth)
	}

	api := e.Group("/api")
	api.GET("/health", s.handleHealth)
	api.POST("/verify", s.handleVerify,
		middleware.BodyLimit(fmt.Sprintf("%dB", s.maxUploadBytes+multipartOverhead)),
		s.requireToken,
	)

	admin := api.Group("/admin", s.requireToken, s.requireAdmin)
	admin.GET("/whoami", s.handleWhoAmI)
}

// Handler exposes the router, e.g. for httptest.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting HTTP server", "address", s.address)
		if err := s.echo.Start(s.address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Stopping HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.echo.Shutdown(shutdownCtx)
}
