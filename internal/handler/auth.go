package handler

import (
    "context"  // provides context with cancellation for DB calls
    "errors"   // sentinel error comparisons
    "log"      // unexpected failures are logged, never leaked to clients
    "net/http" // HTTP status codes and cookie primitives
    "strings"  // string manipulation utilities
    "time"     // timeouts for DB calls and cookie expiry

    "github.com/labstack/echo/v4" // Echo framework for HTTP routing

    "github.com/iliyamo/event-auth/internal/config"
    "github.com/iliyamo/event-auth/internal/mailprobe"
    "github.com/iliyamo/event-auth/internal/model"
    "github.com/iliyamo/event-auth/internal/queue"
    "github.com/iliyamo/event-auth/internal/repository"
    "github.com/iliyamo/event-auth/internal/token"
    "github.com/iliyamo/event-auth/internal/utils"
)

// refreshCookieName is the cookie carrying the refresh token.  It is
// scoped to the auth endpoints, httpOnly, SameSite=Strict and secure in
// production.
const refreshCookieName = "refreshToken"

// UserStore is the persistence surface the handler needs.
// *repository.UserRepo satisfies it; tests provide an in-memory double.
type UserStore interface {
    Create(ctx context.Context, name, email, passwordHash, role string) (model.User, error)
    GetByEmail(ctx context.Context, email string) (model.User, error)
    GetByID(ctx context.Context, id string) (model.User, error)
    GetProfile(ctx context.Context, id string) (model.Profile, error)
    UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// EventPublisher emits auth domain events.  Publishing is best-effort:
// the handler ignores returned errors (they are already logged by the
// publisher) and a nil publisher disables events entirely.
type EventPublisher interface {
    PublishUserRegistered(ctx context.Context, ev queue.UserRegisteredEvent) error
    PublishPasswordReset(ctx context.Context, ev queue.PasswordResetEvent) error
}

// AuthHandler bundles dependencies for the auth endpoints.
type AuthHandler struct {
    Cfg    config.Config
    Users  UserStore
    Tokens *token.Service
    Prober mailprobe.Checker
    Events EventPublisher
}

func NewAuthHandler(cfg config.Config, users UserStore, tokens *token.Service, prober mailprobe.Checker, events EventPublisher) *AuthHandler {
    return &AuthHandler{Cfg: cfg, Users: users, Tokens: tokens, Prober: prober, Events: events}
}

// ----- DTOs -----

type registerReq struct {
    Name     string `json:"name"`
    Email    string `json:"email"`
    Password string `json:"password"`
    Role     string `json:"role"` // optional: ORGANIZER | ATTENDEE
}
type loginReq struct {
    Email    string `json:"email"`
    Password string `json:"password"`
}
type resetReq struct {
    OldPassword string `json:"oldPassword"`
    NewPassword string `json:"newPassword"`
}

// Register creates a user after checking email uniqueness and mailbox
// liveness, then returns the safe user view with a fresh token pair.
// Only a definitive probe rejection blocks registration: an unreachable
// relay must not lock people out.
func (h *AuthHandler) Register(c echo.Context) error {
    var req registerReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid request body"})
    }
    req.Name = strings.TrimSpace(req.Name)
    req.Email = strings.TrimSpace(req.Email)
    if len(req.Name) < 2 {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "Name must be at least 2 characters long"})
    }
    if !strings.Contains(req.Email, "@") {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid email address"})
    }
    if len(req.Password) < 6 {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "Password must be at least 6 characters long"})
    }
    role := strings.ToUpper(strings.TrimSpace(req.Role))
    if !model.ValidRegistrationRole(role) {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid role"})
    }
    if role == "" {
        role = model.RoleAttendee
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    // Cheap duplicate check first; the unique key on users.email still
    // backstops concurrent registrations racing past this point.
    if _, err := h.Users.GetByEmail(ctx, req.Email); err == nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "User already exists"})
    } else if !errors.Is(err, repository.ErrNotFound) {
        return h.internal(c, "register: email lookup", err)
    }

    // The probe bounds its own socket I/O, so it runs on the request
    // context rather than the short DB timeout.
    if res := h.Prober.Probe(c.Request().Context(), req.Email); res.Outcome == mailprobe.OutcomeNotExists ||
        res.Outcome == mailprobe.OutcomeInvalidFormat {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid email address"})
    }

    hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
    if err != nil {
        return h.internal(c, "register: hash password", err)
    }

    u, err := h.Users.Create(ctx, req.Name, req.Email, hash, role)
    if err != nil {
        if errors.Is(err, repository.ErrEmailExists) {
            return c.JSON(http.StatusBadRequest, echo.Map{"message": "User already exists"})
        }
        return h.internal(c, "register: create user", err)
    }

    pair, err := h.Tokens.Mint(ctx, u)
    if err != nil {
        return h.internal(c, "register: mint tokens", err)
    }
    h.setRefreshCookie(c, pair.RefreshToken, pair.RefreshExp)

    if h.Events != nil {
        _ = h.Events.PublishUserRegistered(c.Request().Context(), queue.UserRegisteredEvent{
            UserID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, RegisteredAt: u.CreatedAt,
        })
    }

    return c.JSON(http.StatusCreated, echo.Map{
        "message": "User registered successfully",
        "user":    u,
        "token":   pair.AccessToken,
    })
}

// Login verifies credentials and mints a new token pair.  The failure
// message never reveals whether the email or the password was wrong.
// Each login adds a refresh row of its own, so concurrent sessions per
// user are supported.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid request body"})
    }
    req.Email = strings.TrimSpace(req.Email)
    if req.Email == "" || req.Password == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "Email and password are required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    u, err := h.Users.GetByEmail(ctx, req.Email)
    if err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid email or password"})
        }
        return h.internal(c, "login: email lookup", err)
    }
    if !utils.VerifyPassword(u.PasswordHash, req.Password) {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid email or password"})
    }

    pair, err := h.Tokens.Mint(ctx, u)
    if err != nil {
        return h.internal(c, "login: mint tokens", err)
    }
    h.setRefreshCookie(c, pair.RefreshToken, pair.RefreshExp)

    return c.JSON(http.StatusOK, echo.Map{
        "message": "Login successful",
        "user":    u,
        "token":   pair.AccessToken,
    })
}

// Logout revokes the presented refresh token and clears its cookie.  A
// token that was already revoked still logs out successfully.
func (h *AuthHandler) Logout(c echo.Context) error {
    cookie, err := c.Cookie(refreshCookieName)
    if err != nil || cookie.Value == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "No refresh token provided"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    h.clearRefreshCookie(c)
    if err := h.Tokens.Revoke(ctx, cookie.Value); err != nil {
        return h.internal(c, "logout: revoke token", err)
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "Logout successful"})
}

// Me returns the authenticated user's profile including the events they
// organize and the tickets they hold.  A valid token whose user row is
// gone yields 404: tokens outlive accounts only until they expire.
func (h *AuthHandler) Me(c echo.Context) error {
    userID, _ := c.Get("user_id").(string)
    if userID == "" {
        return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Unauthorized"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    p, err := h.Users.GetProfile(ctx, userID)
    if err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"message": "User not found"})
        }
        return h.internal(c, "me: load profile", err)
    }
    return c.JSON(http.StatusOK, echo.Map{"user": p})
}

// ResetPassword changes the password after verifying the old one, then
// revokes the session that made the request so the client must log in
// again with the new credential.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
    userID, _ := c.Get("user_id").(string)
    if userID == "" {
        return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Unauthorized"})
    }

    var req resetReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid request body"})
    }
    if req.OldPassword == "" || req.NewPassword == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "Old password and new password are required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    u, err := h.Users.GetByID(ctx, userID)
    if err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"message": "User not found"})
        }
        return h.internal(c, "reset: load user", err)
    }
    if !utils.VerifyPassword(u.PasswordHash, req.OldPassword) {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "Old password is incorrect"})
    }

    hash, err := utils.HashPassword(req.NewPassword, h.Cfg.BcryptCost)
    if err != nil {
        return h.internal(c, "reset: hash password", err)
    }
    if err := h.Users.UpdatePassword(ctx, userID, hash); err != nil {
        log.Printf("reset: update password: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Could not update password"})
    }

    // Force re-authentication: the session that made this request is done.
    if cookie, cerr := c.Cookie(refreshCookieName); cerr == nil && cookie.Value != "" {
        if err := h.Tokens.Revoke(ctx, cookie.Value); err != nil {
            log.Printf("reset: revoke refresh token: %v", err)
        }
    }
    h.clearRefreshCookie(c)

    if h.Events != nil {
        _ = h.Events.PublishPasswordReset(c.Request().Context(), queue.PasswordResetEvent{
            UserID: u.ID, Email: u.Email, ResetAt: time.Now().UTC(),
        })
    }

    return c.JSON(http.StatusOK, echo.Map{"message": "Password updated successfully"})
}

// Refresh exchanges a live refresh token for a new pair.  Rotation is
// atomic: the presented token's row is deleted and the replacement
// inserted in one store transaction, so live rows never accumulate.
func (h *AuthHandler) Refresh(c echo.Context) error {
    cookie, err := c.Cookie(refreshCookieName)
    if err != nil || cookie.Value == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "No refresh token provided"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    claims, err := h.Tokens.VerifyRefresh(ctx, cookie.Value)
    if err != nil {
        if errors.Is(err, token.ErrInvalidToken) {
            return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Invalid refresh token"})
        }
        return h.internal(c, "refresh: verify token", err)
    }

    u, err := h.Users.GetByID(ctx, claims.ID)
    if err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"message": "User not found"})
        }
        return h.internal(c, "refresh: load user", err)
    }

    pair, err := h.Tokens.Rotate(ctx, cookie.Value, u)
    if err != nil {
        return h.internal(c, "refresh: rotate tokens", err)
    }
    h.setRefreshCookie(c, pair.RefreshToken, pair.RefreshExp)

    return c.JSON(http.StatusOK, echo.Map{"accessToken": pair.AccessToken})
}

// ----- helpers -----

// setRefreshCookie attaches the refresh token to the response.  The cookie
// lifetime mirrors the token's own expiry.
func (h *AuthHandler) setRefreshCookie(c echo.Context, value string, exp time.Time) {
    c.SetCookie(&http.Cookie{
        Name:     refreshCookieName,
        Value:    value,
        Path:     "/api/auth",
        Expires:  exp,
        MaxAge:   int(time.Until(exp).Seconds()),
        HttpOnly: true,
        Secure:   h.Cfg.Env == "prod",
        SameSite: http.SameSiteStrictMode,
    })
}

// clearRefreshCookie expires the refresh cookie immediately.
func (h *AuthHandler) clearRefreshCookie(c echo.Context) {
    c.SetCookie(&http.Cookie{
        Name:     refreshCookieName,
        Value:    "",
        Path:     "/api/auth",
        MaxAge:   -1,
        HttpOnly: true,
        Secure:   h.Cfg.Env == "prod",
        SameSite: http.SameSiteStrictMode,
    })
}

// internal logs an unexpected failure and returns a generic 500 so no
// internals leak to the client.
func (h *AuthHandler) internal(c echo.Context, op string, err error) error {
    log.Printf("%s: %v", op, err)
    return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Internal server error"})
}
