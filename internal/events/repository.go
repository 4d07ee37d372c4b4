package events

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dicoevent/backend/internal/models"
	"github.com/dicoevent/backend/pkg/apperr"
	"github.com/dicoevent/backend/pkg/database"
)

// Repository handles event persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an event repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const eventColumns = `id, name, description, location, start_time, end_time, status, category, quota, organizer_id`

func scanEvent(row pgx.Row) (*models.Event, error) {
	var e models.Event
	err := row.Scan(&e.ID, &e.Name, &e.Description, &e.Location, &e.StartTime, &e.EndTime,
		&e.Status, &e.Category, &e.Quota, &e.OrganizerID)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Get returns an event by ID.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	e, err := scanEvent(r.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
	if err != nil {
		return nil, database.Classify(err, "event", "get event")
	}
	return e, nil
}

// List returns all events by start time.
func (r *Repository) List(ctx context.Context) ([]models.Event, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+eventColumns+` FROM events ORDER BY start_time, id`)
	if err != nil {
		return nil, apperr.Dependency("list events", err)
	}
	defer rows.Close()
	list := []models.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, apperr.Dependency("scan event", err)
		}
		list = append(list, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Dependency("list events", err)
	}
	return list, nil
}

// Create inserts an event.
func (r *Repository) Create(ctx context.Context, e *models.Event) (*models.Event, error) {
	const q = `INSERT INTO events (name, description, location, start_time, end_time, status, category, quota, organizer_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + eventColumns
	out, err := scanEvent(r.pool.QueryRow(ctx, q, e.Name, e.Description, e.Location, e.StartTime, e.EndTime,
		e.Status, e.Category, e.Quota, e.OrganizerID))
	if database.IsForeignKeyViolation(err) {
		return nil, apperr.Validation("organizer_id does not reference a user")
	}
	if err != nil {
		return nil, database.Classify(err, "event", "create event")
	}
	return out, nil
}

// Update writes the mutable fields of e.
func (r *Repository) Update(ctx context.Context, e *models.Event) (*models.Event, error) {
	const q = `UPDATE events SET name = $2, description = $3, location = $4, start_time = $5, end_time = $6,
		status = $7, category = $8, quota = $9
		WHERE id = $1
		RETURNING ` + eventColumns
	out, err := scanEvent(r.pool.QueryRow(ctx, q, e.ID, e.Name, e.Description, e.Location, e.StartTime, e.EndTime,
		e.Status, e.Category, e.Quota))
	if err != nil {
		return nil, database.Classify(err, "event", "update event")
	}
	return out, nil
}

// Delete removes the event. Tickets, media, registrations and payments go
// with it through ON DELETE CASCADE; their IDs are collected first in the
// same transaction, with the parent rows locked so no child is added in
// between.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (models.Cascade, error) {
	var c models.Cascade
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var locked uuid.UUID
		if err := tx.QueryRow(ctx, `SELECT id FROM events WHERE id = $1 FOR UPDATE`, id).Scan(&locked); err != nil {
			return err
		}
		var err error
		if c.TicketIDs, err = database.CollectIDs(ctx, tx,
			`SELECT id FROM tickets WHERE event_id = $1 FOR UPDATE`, id); err != nil {
			return err
		}
		if c.RegistrationIDs, err = database.CollectIDs(ctx, tx,
			`SELECT rg.id FROM registrations rg JOIN tickets t ON t.id = rg.ticket_id
			WHERE t.event_id = $1 FOR UPDATE OF rg`, id); err != nil {
			return err
		}
		if c.PaymentIDs, err = database.CollectIDs(ctx, tx,
			`SELECT p.id FROM payments p
			JOIN registrations rg ON rg.id = p.registration_id
			JOIN tickets t ON t.id = rg.ticket_id
			WHERE t.event_id = $1`, id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM events WHERE id = $1`, id); err != nil {
			return err
		}
		c.EventIDs = []uuid.UUID{id}
		return nil
	})
	if err != nil {
		return models.Cascade{}, database.Classify(err, "event", "delete event")
	}
	return c, nil
}

// UserExists reports whether id is a user.
func (r *Repository) UserExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var ok bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id).Scan(&ok); err != nil {
		return false, apperr.Dependency("check user", err)
	}
	return ok, nil
}
