package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/event-auth/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/event-auth/internal/middleware" // import middleware for JWT authentication and role enforcement
	"github.com/iliyamo/event-auth/internal/model"
)

// RegisterRoutes wires the full HTTP surface onto the provided Echo
// instance.  Unauthenticated operations (register, login) live directly
// under /api/auth; everything else requires a verified Bearer access
// token, whose claims the JWTAuth middleware places into the request
// context before the handler runs.
func RegisterRoutes(e *echo.Echo, a *handler.AuthHandler, verifier middleware.AccessVerifier) {
	// Health check for load balancers and monitoring; no auth.
	e.GET("/health", handler.Health)

	g := e.Group("/api/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)

	// Protected endpoints.  RequireRole accepts every role the service
	// knows; it rejects tokens carrying a missing or unknown role claim.
	auth := g.Group("",
		middleware.JWTAuth(verifier),
		middleware.RequireRole(model.RoleAdmin, model.RoleOrganizer, model.RoleAttendee),
	)
	auth.GET("/me", a.Me)
	auth.POST("/logout", a.Logout)
	auth.POST("/forgot-password", a.ResetPassword)
	auth.POST("/refresh-token", a.Refresh)
}
