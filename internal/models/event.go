package models

import (
	"time"

	"github.com/google/uuid"
)

// Event status values. Stored as an opaque string.
const (
	EventStatusScheduled = "scheduled"
	EventStatusCanceled  = "canceled"
	EventStatusCompleted = "completed"
)

// Event is an organizer-owned happening with ticket tiers beneath it.
type Event struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Status      string    `json:"status"`
	Category    string    `json:"category"`
	Quota       int       `json:"quota"`
	OrganizerID uuid.UUID `json:"organizer"`
}

// Target returns the ownership chain of the event.
func (e *Event) Target() Target {
	return Target{Type: ResourceEvent, OrganizerID: e.OrganizerID}
}
