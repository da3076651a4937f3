package middleware // middleware provides shared request processing for handlers

import (
    "net/http" // HTTP status codes for responses
    "strings"  // string utilities for prefix checking and trimming

    "github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

    "github.com/iliyamo/event-auth/internal/token"
)

// AccessVerifier validates a presented access token and returns its
// claims.  *token.Service satisfies it; tests may substitute a stub.
type AccessVerifier interface {
    VerifyAccess(raw string) (token.Claims, error)
}

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and injects the token's claims into the request context.  Handlers on
// protected routes read the authenticated identity via c.Get("user_id"),
// c.Get("email") and c.Get("role").  Verification is signature and expiry
// only — access tokens are never checked against the store.
func JWTAuth(v AccessVerifier) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            // A valid header starts with "Bearer " followed by the JWT.
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"message": "No token provided"})
            }
            raw := strings.TrimPrefix(auth, "Bearer ")

            claims, err := v.VerifyAccess(raw)
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Invalid or expired token"})
            }

            // Store the claims in the context for handlers and downstream
            // middleware.
            c.Set("user_id", claims.ID)
            c.Set("email", claims.Email)
            c.Set("role", claims.Role)
            return next(c)
        }
    }
}
