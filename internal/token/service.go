// Package token mints and verifies the bearer credentials of a session: a
// short-lived access token and a long-lived, store-persisted refresh token.
// Both are HS256 JWTs carrying the same {id, email, role} claim snapshot,
// but they are signed with independent secrets so compromise of one class
// of credential cannot forge the other.
package token

import (
    "context"
    "crypto/sha256"
    "encoding/hex"
    "errors"
    "time"

    "github.com/golang-jwt/jwt/v5"

    "github.com/iliyamo/event-auth/internal/model"
    "github.com/iliyamo/event-auth/internal/repository"
)

// ErrInvalidToken is returned when a presented token fails signature or
// expiry verification, or when a refresh token has no live store row.
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims is the payload embedded in every token this service signs.  It is
// a snapshot of the user at mint time: holders keep the privileges encoded
// here until the token expires, not the user's live state.
type Claims struct {
    ID    string
    Email string
    Role  string
}

// Pair bundles the two credentials minted together from one user snapshot.
type Pair struct {
    AccessToken  string
    RefreshToken string
    RefreshExp   time.Time
}

// Store is the persistence surface the service needs for refresh tokens.
// *repository.TokenRepo satisfies it; tests provide an in-memory double.
type Store interface {
    Store(ctx context.Context, userID, tokenHash string, exp time.Time) error
    Exists(ctx context.Context, tokenHash string) (bool, error)
    Delete(ctx context.Context, tokenHash string) error
    Rotate(ctx context.Context, oldHash, userID, newHash string, exp time.Time) error
}

// Service mints, persists and verifies session tokens.  All dependencies
// arrive through the constructor; there is no package-level state.
type Service struct {
    store         Store
    accessSecret  []byte
    refreshSecret []byte
    accessTTL     time.Duration
    refreshTTL    time.Duration
}

// New builds a Service. TTLs come from configuration: typically one hour
// for access tokens and seven days for refresh tokens.
func New(store Store, accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *Service {
    return &Service{
        store:         store,
        accessSecret:  []byte(accessSecret),
        refreshSecret: []byte(refreshSecret),
        accessTTL:     accessTTL,
        refreshTTL:    refreshTTL,
    }
}

// Mint issues a fresh access/refresh pair for a user and persists the
// refresh token's hash before returning. One new refresh row per call:
// concurrent sessions for the same user each hold their own row.
func (s *Service) Mint(ctx context.Context, u model.User) (Pair, error) {
    access, _, err := sign(s.accessSecret, u, s.accessTTL)
    if err != nil {
        return Pair{}, err
    }
    refresh, refreshExp, err := sign(s.refreshSecret, u, s.refreshTTL)
    if err != nil {
        return Pair{}, err
    }
    if err := s.store.Store(ctx, u.ID, Hash(refresh), refreshExp); err != nil {
        return Pair{}, err
    }
    return Pair{AccessToken: access, RefreshToken: refresh, RefreshExp: refreshExp}, nil
}

// VerifyAccess checks signature and expiry of an access token and returns
// its claims. It deliberately does not consult the store: access tokens
// are not individually revocable, only their paired refresh token is.
func (s *Service) VerifyAccess(raw string) (Claims, error) {
    return parse(raw, s.accessSecret)
}

// VerifyRefresh validates a refresh token. The store row must exist first
// (a missing row means the token was revoked or already rotated out), then
// signature and expiry are checked.
func (s *Service) VerifyRefresh(ctx context.Context, raw string) (Claims, error) {
    ok, err := s.store.Exists(ctx, Hash(raw))
    if err != nil {
        return Claims{}, err
    }
    if !ok {
        return Claims{}, ErrInvalidToken
    }
    return parse(raw, s.refreshSecret)
}

// Revoke deletes the refresh token's store row. A token that is already
// gone counts as success so logout stays idempotent.
func (s *Service) Revoke(ctx context.Context, raw string) error {
    err := s.store.Delete(ctx, Hash(raw))
    if errors.Is(err, repository.ErrNotFound) {
        return nil
    }
    return err
}

// Rotate exchanges an old refresh token for a fresh pair in one step: the
// new tokens are signed, then the store swaps old row for new inside a
// single transaction. The caller must have verified the old token first.
func (s *Service) Rotate(ctx context.Context, oldRaw string, u model.User) (Pair, error) {
    access, _, err := sign(s.accessSecret, u, s.accessTTL)
    if err != nil {
        return Pair{}, err
    }
    refresh, refreshExp, err := sign(s.refreshSecret, u, s.refreshTTL)
    if err != nil {
        return Pair{}, err
    }
    if err := s.store.Rotate(ctx, Hash(oldRaw), u.ID, Hash(refresh), refreshExp); err != nil {
        return Pair{}, err
    }
    return Pair{AccessToken: access, RefreshToken: refresh, RefreshExp: refreshExp}, nil
}

// Hash returns the SHA-256 hex digest of a token string. Only digests are
// stored, so a leaked refresh_tokens table cannot be replayed directly.
func Hash(raw string) string {
    sum := sha256.Sum256([]byte(raw))
    return hex.EncodeToString(sum[:])
}

// sign builds and signs an HS256 JWT carrying the user snapshot plus the
// standard exp/iat claims.
func sign(secret []byte, u model.User, ttl time.Duration) (string, time.Time, error) {
    now := time.Now().UTC()
    exp := now.Add(ttl)
    claims := jwt.MapClaims{
        "id":    u.ID,
        "email": u.Email,
        "role":  u.Role,
        "exp":   exp.Unix(),
        "iat":   now.Unix(),
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString(secret)
    if err != nil {
        return "", time.Time{}, err
    }
    return signed, exp, nil
}

// parse validates signature and expiry with the given secret and extracts
// the claim snapshot. Any parse failure maps to ErrInvalidToken; callers
// never need to distinguish malformed from expired.
func parse(raw string, secret []byte) (Claims, error) {
    tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
        // Reject tokens signed with a different algorithm family.
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, ErrInvalidToken
        }
        return secret, nil
    })
    if err != nil || !tok.Valid {
        return Claims{}, ErrInvalidToken
    }
    mc, ok := tok.Claims.(jwt.MapClaims)
    if !ok {
        return Claims{}, ErrInvalidToken
    }
    c := Claims{}
    if v, ok := mc["id"].(string); ok {
        c.ID = v
    }
    if v, ok := mc["email"].(string); ok {
        c.Email = v
    }
    if v, ok := mc["role"].(string); ok {
        c.Role = v
    }
    if c.ID == "" {
        return Claims{}, ErrInvalidToken
    }
    return c, nil
}
