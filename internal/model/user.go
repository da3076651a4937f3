package model

import "time"

// Role values stored in users.role.  The enumeration is closed: any other
// value is rejected at the registration boundary.
const (
    RoleAdmin     = "ADMIN"
    RoleOrganizer = "ORGANIZER"
    RoleAttendee  = "ATTENDEE"
)

// User represents an application user record as stored in the `users`
// table.  The password hash is never serialized: the `json:"-"` tag keeps
// it out of every response body, so handlers can marshal a User directly
// without building a separate safe view.
//
// Fields:
//  ID           – primary key, a UUID string assigned at creation.
//  Name         – display name.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password; never the plaintext.
//  Role         – one of RoleAdmin, RoleOrganizer, RoleAttendee.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
    ID           string    `json:"id"`        // users.id
    Name         string    `json:"name"`      // users.name
    Email        string    `json:"email"`     // users.email
    PasswordHash string    `json:"-"`         // users.password_hash
    Role         string    `json:"role"`      // users.role
    CreatedAt    time.Time `json:"createdAt"` // users.created_at
    UpdatedAt    time.Time `json:"updatedAt"` // users.updated_at
}

// ValidRegistrationRole reports whether a client may ask for the given role
// when registering.  ADMIN is deliberately excluded: elevated roles are
// assigned out of band, never self-service.
func ValidRegistrationRole(role string) bool {
    return role == "" || role == RoleOrganizer || role == RoleAttendee
}

// RefreshToken models an entry in the `refresh_tokens` table.  The plain
// token string is not stored; only its SHA-256 hash.  A row being present
// means the token is a revocation-candidate still subject to signature and
// expiry checks; a missing row means the token is definitively revoked.
//
// Fields:
//  TokenHash – SHA-256 hex digest of the token string (primary key).
//  UserID    – owner of the token.
//  ExpiresAt – expiration timestamp mirrored from the token's own claims.
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
    TokenHash string    // refresh_tokens.token_hash
    UserID    string    // refresh_tokens.user_id
    ExpiresAt time.Time // refresh_tokens.expires_at
    CreatedAt time.Time // refresh_tokens.created_at
}

// Profile is the full picture of a user returned by the /me endpoint: the
// account record plus the events they organize and the tickets they hold.
type Profile struct {
    User
    Events  []Event  `json:"events"`
    Tickets []Ticket `json:"tickets"`
}
