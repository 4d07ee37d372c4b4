package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ticket is a priced tier of an event.
type Ticket struct {
	ID         uuid.UUID       `json:"id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	SalesStart time.Time       `json:"sales_start"`
	SalesEnd   time.Time       `json:"sales_end"`
	Quota      int             `json:"quota"`
	EventID    uuid.UUID       `json:"event"`

	// OrganizerID is resolved through the owning event.
	OrganizerID uuid.UUID `json:"organizer_id"`
}

// Target returns the ownership chain of the ticket.
func (t *Ticket) Target() Target {
	return Target{Type: ResourceTicket, OrganizerID: t.OrganizerID}
}
