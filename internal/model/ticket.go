package model

import "time"

// Ticket is a ticket held by a user for some event.  Like Event, tickets
// are written elsewhere and read here only for the profile view.
type Ticket struct {
    ID        string    `json:"id"`        // tickets.id
    EventID   string    `json:"eventId"`   // tickets.event_id
    UserID    string    `json:"userId"`    // tickets.user_id
    Status    string    `json:"status"`    // tickets.status
    CreatedAt time.Time `json:"createdAt"` // tickets.created_at
}
