package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinic/backoffice/internal/api/metrics"
	"github.com/clinic/backoffice/internal/core/domain"
	"github.com/clinic/backoffice/internal/core/ports"
)

type AuthHandler struct {
	loginService ports.LoginService
}

func NewAuthHandler(loginService ports.LoginService) *AuthHandler {
	return &AuthHandler{loginService: loginService}
}

// loginRequest is not syntax-checked: an unknown email is a 404 from the
// directory and a wrong or empty password is a 401 from Authenticate.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
}

// Login authenticates a user against the directory and returns a session token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return domain.BadRequest("Malformed request body.")
	}

	token, err := h.loginService.Login(c.Request().Context(), req.Email, req.Password)
	metrics.LoginAttemptsTotal.WithLabelValues(loginResult(err)).Inc()
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, loginResponse{AccessToken: token})
}

func loginResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrUnauthorized):
		return "rejected"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrUpstream), errors.Is(err, domain.ErrUpstreamTimeout):
		return "upstream"
	default:
		return "error"
	}
}
