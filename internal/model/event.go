package model

import "time"

// Event is an event listing organized by a user.  This service does not
// manage events itself; the rows are owned by the events service and are
// only read here to assemble the /me profile.
type Event struct {
    ID          string    `json:"id"`          // events.id
    Title       string    `json:"title"`       // events.title
    Description string    `json:"description"` // events.description
    Date        time.Time `json:"date"`        // events.date
    Venue       string    `json:"venue"`       // events.venue
    OrganizerID string    `json:"organizerId"` // events.organizer_id
    CreatedAt   time.Time `json:"createdAt"`   // events.created_at
}
