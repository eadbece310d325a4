package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/clinic/backoffice/internal/api/middleware"
	"github.com/clinic/backoffice/internal/core/domain"
	"github.com/clinic/backoffice/internal/core/service"
)

// ctxPrincipal returns the caller injected by the Auth middleware. Handlers
// on protected routes call it as a fast-fail check in case a route was wired
// without its guard.
func ctxPrincipal(c echo.Context) (*service.Principal, error) {
	p := middleware.Principal(c)
	if p == nil {
		return nil, domain.Forbidden(domain.MsgUnauthorizedAccess)
	}
	return p, nil
}
