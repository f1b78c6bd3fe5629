package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/idverifier/internal/common"
	"github.com/dmitrijs2005/idverifier/internal/server/models"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	ctxUsernameKey = "username"
	ctxRoleKey     = "role"
)

// bearerToken extracts the token from an "Authorization: Bearer <t>" header.
// A header without the prefix is taken as the raw token.
func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if strings.HasPrefix(header, common.BearerPrefix) {
		return strings.TrimSpace(header[len(common.BearerPrefix):])
	}
	return header
}

// requireToken rejects requests without a valid bearer token and stores the
// subject and role on the echo context.
func (s *Server) requireToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := bearerToken(c.Request().Header.Get(common.AuthorizationHeaderName))
		if raw == "" {
			return c.JSON(http.StatusUnauthorized, errorBody{Error: "authorization token missing"})
		}

		claims, err := s.issuer.Parse(raw)
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, common.ErrTokenExpired) {
				msg = "token expired"
			}
			s.logger.Debug(c.Request().Context(), "token rejected", "path", c.Path(), "error", err)
			return c.JSON(http.StatusUnauthorized, errorBody{Error: msg})
		}

		c.Set(ctxUsernameKey, claims.Subject)
		c.Set(ctxRoleKey, claims.RoleOrDefault())
		return next(c)
	}
}

// requireAdmin must run after requireToken.
func (s *Server) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		role, _ := c.Get(ctxRoleKey).(models.Role)
		if role != models.RoleAdmin {
			s.logger.Warn(c.Request().Context(), "admin access denied",
				"path", c.Path(), "username", c.Get(ctxUsernameKey))
			return c.JSON(http.StatusForbidden, errorBody{Error: "admin privileges required"})
		}
		return next(c)
	}
}

func (s *Server) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			args := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency.String(),
				"remote_ip", v.RemoteIP,
				"request_id", v.RequestID,
			}
			ctx := c.Request().Context()
			if v.Error != nil {
				s.logger.Warn(ctx, "request", append(args, "error", v.Error.Error())...)
				return nil
			}
			s.logger.Info(ctx, "request", args...)
			return nil
		},
	})
}

// errorHandler renders echo errors as {"error": msg} and hides the detail
// of everything else behind a generic 500.
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok && m != "" {
			msg = m
		}
		s.writeError(c, he.Code, msg)
		return
	}

	s.logger.Error(c.Request().Context(), "unhandled error", "path", c.Path(), "error", err)
	s.writeError(c, http.StatusInternalServerError, "internal server error")
}

func (s *Server) writeError(c echo.Context, code int, msg string) {
	var err error
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, errorBody{Error: msg})
	}
	if err != nil {
		s.logger.Error(c.Request().Context(), "write error response", "error", err)
	}
}
