package models

import "github.com/google/uuid"

// Media is a stored poster image attached to an event.
type Media struct {
	ID      uuid.UUID `json:"id"`
	Image   string    `json:"image"`
	EventID uuid.UUID `json:"event"`
}

// Poster is a media record with a time-limited download URL, or nil when
// the URL could not be generated.
type Poster struct {
	ID    uuid.UUID `json:"id"`
	Image string    `json:"image"`
	URL   *string   `json:"url"`
}
