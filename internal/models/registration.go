package models

import (
	"time"

	"github.com/google/uuid"
)

// Registration is a user's claim on a ticket.
type Registration struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user"`
	TicketID     uuid.UUID `json:"ticket"`
	RegisteredAt time.Time `json:"registered_at"`

	// OrganizerID is resolved through ticket -> event.
	OrganizerID uuid.UUID `json:"organizer_id"`
}

// Target returns the ownership chain of the registration.
func (r *Registration) Target() Target {
	return Target{Type: ResourceRegistration, OrganizerID: r.OrganizerID, OwnerID: r.UserID}
}

// DueReminder is a registration joined with what a reminder needs to be sent.
type DueReminder struct {
	RegistrationID uuid.UUID
	EventID        uuid.UUID
	EventName      string
	StartTime      time.Time
	Username       string
	Email          string
}
