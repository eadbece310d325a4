package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinic/backoffice/internal/api/metrics"
	"github.com/clinic/backoffice/internal/core/domain"
	"github.com/clinic/backoffice/internal/core/ports"
)

type UserHandler struct {
	users ports.UserService
	log   zerolog.Logger
}

func NewUserHandler(users ports.UserService, log zerolog.Logger) *UserHandler {
	return &UserHandler{users: users, log: log}
}

// Create registers a new account and queues its activation email.
func (h *UserHandler) Create(c echo.Context) error {
	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return domain.BadRequest("Malformed request body.")
	}

	if err := h.users.CreateUser(c.Request().Context(), req.toInput()); err != nil {
		return err
	}

	metrics.RegistrationsTotal.WithLabelValues(strings.ToUpper(req.Role)).Inc()
	return c.NoContent(http.StatusCreated)
}

// Enable consumes a validation token and sets the account password.
func (h *UserHandler) Enable(c echo.Context) error {
	var req enableUserRequest
	if err := c.Bind(&req); err != nil {
		return domain.BadRequest("Malformed request body.")
	}

	err := h.users.EnableUser(c.Request().Context(), ports.EnableUserInput{
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		Token:           req.Token,
	})
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusOK)
}

// ActivationRequest issues a new validation token for a pending account.
func (h *UserHandler) ActivationRequest(c echo.Context) error {
	if err := h.users.RequestActivation(c.Request().Context(), c.Param("email")); err != nil {
		return err
	}
	return c.NoContent(http.StatusOK)
}

// FullData returns the account including its password hash. Internal use only.
func (h *UserHandler) FullData(c echo.Context) error {
	user, err := h.users.FullData(c.Request().Context(), c.Param("email"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toFullDataResponse(user))
}

// ByEmail returns the public projection of an account.
func (h *UserHandler) ByEmail(c echo.Context) error {
	caller, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	user, err := h.users.FullData(c.Request().Context(), c.Param("email"))
	if err != nil {
		return err
	}

	h.log.Debug().Str("caller", caller.Subject).Str("email", user.Email).Msg("user lookup")
	return c.JSON(http.StatusOK, toUserResponse(user))
}
