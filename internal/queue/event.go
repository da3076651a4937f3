// Package queue defines the auth domain events this service publishes to
// RabbitMQ.  Downstream services (welcome mail, analytics) consume them;
// this service never consumes its own events.
package queue

import "time"

// Queue names. One durable queue per event type.
const (
    UserRegisteredQueue = "user.registered"
    PasswordResetQueue  = "user.password_reset"
)

// UserRegisteredEvent is emitted after a successful registration.
type UserRegisteredEvent struct {
    UserID       string    `json:"user_id"`
    Name         string    `json:"name"`
    Email        string    `json:"email"`
    Role         string    `json:"role"`
    RegisteredAt time.Time `json:"registered_at"`
}

// PasswordResetEvent is emitted after a user changes their password.  It
// carries no credential material, only the fact that the change happened.
type PasswordResetEvent struct {
    UserID  string    `json:"user_id"`
    Email   string    `json:"email"`
    ResetAt time.Time `json:"reset_at"`
}
