package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/idverifier/internal/common"
	"github.com/dmitrijs2005/idverifier/internal/server/models"
	"github.com/dmitrijs2005/idverifier/internal/server/services"
	"github.com/labstack/echo/v4"
)

func (s *Server) handleLogin(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, tokenBody{})
	}
	if err := req.validateLogin(); err != nil {
		return c.JSON(http.StatusBadRequest, tokenBody{})
	}

	resp, err := s.auth.Login(c.Request().Context(), sanitize(req.Username), req.Password)
	return s.respondToken(c, "login", resp, err)
}

func (s *Server) handleSignup(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, tokenBody{})
	}
	if err := req.validateSignup(); err != nil {
		return c.JSON(http.StatusBadRequest, tokenBody{})
	}

	resp, err := s.auth.Signup(c.Request().Context(), sanitize(req.Username), req.Password)
	return s.respondToken(c, "signup", resp, err)
}

// respondToken maps workflow outcomes to HTTP. Business failures share one
// all-null 400 body so callers cannot tell an unknown user from a wrong
// password.
func (s *Server) respondToken(c echo.Context, op string, resp *services.TokenResponse, err error) error {
	if err == nil {
		return c.JSON(http.StatusOK, newTokenBody(resp))
	}

	switch {
	case errors.Is(err, common.ErrInvalidCredentials),
		errors.Is(err, common.ErrInvalidInput),
		errors.Is(err, common.ErrUsernameReserved),
		errors.Is(err, common.ErrUsernameTaken):
		s.logger.Debug(c.Request().Context(), op+" rejected", "reason", err.Error())
		return c.JSON(http.StatusBadRequest, tokenBody{})
	}

	s.logger.Error(c.Request().Context(), op+" failed", "error", err)
	return c.JSON(http.StatusInternalServerError, errorBody{Error: "internal server error"})
}

func (s *Server) handleValidate(c echo.Context) error {
	raw := bearerToken(c.Request().Header.Get(common.AuthorizationHeaderName))
	return c.JSON(http.StatusOK, newValidateBody(s.auth.Validate(raw)))
}

func (s *Server) handleAuthHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, statusBody{Status: "UP", Service: "Authentication Service"})
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, statusBody{Status: "API Running"})
}

func (s *Server) handleWhoAmI(c echo.Context) error {
	username, _ := c.Get(ctxUsernameKey).(string)
	role, _ := c.Get(ctxRoleKey).(models.Role)
	return c.JSON(http.StatusOK, whoamiBody{Username: username, Role: role.String()})
}
