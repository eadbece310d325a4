package api

import (
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinic/backoffice/internal/api/handler"
	"github.com/clinic/backoffice/internal/api/middleware"
	"github.com/clinic/backoffice/internal/core/domain"
	"github.com/clinic/backoffice/internal/core/ports"
)

// RegisterAuthRoutes mounts the login endpoint.
func RegisterAuthRoutes(e *echo.Echo, login ports.LoginService) {
	authHandler := handler.NewAuthHandler(login)

	e.POST("/auth/login", authHandler.Login)
}

// RegisterUserRoutes mounts the registration and directory endpoints. Every
// route runs the token gate, which lets credential-less requests through and
// rejects bad bearer tokens. full-data needs no caller: the auth service calls
// it before a token exists, so it must only be reachable from the trusted
// network.
func RegisterUserRoutes(e *echo.Echo, users ports.UserService, tokens middleware.TokenValidator, log zerolog.Logger) {
	userHandler := handler.NewUserHandler(users, log)

	g := e.Group("/users", middleware.Auth(tokens))
	g.POST("/create", userHandler.Create)
	g.PUT("/enabled", userHandler.Enable)
	g.GET("/activation-request/:email", userHandler.ActivationRequest)
	g.GET("/full-data/:email", userHandler.FullData)

	// --- Protected ---
	g.GET("/by-email/:email", userHandler.ByEmail,
		middleware.RequireAuthenticated(),
		middleware.RBAC(domain.RoleAdmin, domain.RoleStaff),
	)
}
