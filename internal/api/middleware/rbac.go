package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/clinic/backoffice/internal/core/domain"
)

// RBAC enforces role-name matching: the caller must hold at least one of
// allowedRoles. Unauthenticated callers get the same 403 as
// RequireAuthenticated.
func RBAC(allowedRoles ...domain.RoleName) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p := Principal(c)
			if p == nil {
				return domain.Forbidden(domain.MsgUnauthorizedAccess)
			}
			if !p.HasAnyRole(allowedRoles...) {
				return domain.Forbidden("Access denied")
			}
			return next(c)
		}
	}
}
