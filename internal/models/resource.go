package models

import "github.com/google/uuid"

// ResourceType names one of the access-controlled collections.
type ResourceType string

const (
	ResourceEvent        ResourceType = "event"
	ResourceTicket       ResourceType = "ticket"
	ResourceRegistration ResourceType = "registration"
	ResourcePayment      ResourceType = "payment"
)

// Target is the resolved ownership chain of a resource:
// Payment -> Registration -> Ticket -> Event -> organizer.
// OwnerID is the registering user for registrations and payments.
type Target struct {
	Type        ResourceType
	OrganizerID uuid.UUID
	OwnerID     uuid.UUID
}

// Cascade lists everything removed by a cascading delete, so cached copies
// can be dropped along with it.
type Cascade struct {
	EventIDs        []uuid.UUID
	TicketIDs       []uuid.UUID
	RegistrationIDs []uuid.UUID
	PaymentIDs      []uuid.UUID
}
