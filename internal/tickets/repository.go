package tickets

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dicoevent/backend/internal/models"
	"github.com/dicoevent/backend/pkg/apperr"
	"github.com/dicoevent/backend/pkg/database"
)

// Repository handles ticket persistence. Reads resolve the organizer
// through the owning event.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a ticket repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const ticketSelect = `SELECT t.id, t.name, t.price, t.sales_start, t.sales_end, t.quota, t.event_id, e.organizer_id
	FROM tickets t JOIN events e ON e.id = t.event_id`

func scanTicket(row pgx.Row) (*models.Ticket, error) {
	var t models.Ticket
	err := row.Scan(&t.ID, &t.Name, &t.Price, &t.SalesStart, &t.SalesEnd, &t.Quota, &t.EventID, &t.OrganizerID)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Get returns a ticket by ID.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	t, err := scanTicket(r.pool.QueryRow(ctx, ticketSelect+` WHERE t.id = $1`, id))
	if err != nil {
		return nil, database.Classify(err, "ticket", "get ticket")
	}
	return t, nil
}

// List returns all tickets grouped by event.
func (r *Repository) List(ctx context.Context) ([]models.Ticket, error) {
	rows, err := r.pool.Query(ctx, ticketSelect+` ORDER BY e.start_time, t.sales_start, t.id`)
	if err != nil {
		return nil, apperr.Dependency("list tickets", err)
	}
	defer rows.Close()
	list := []models.Ticket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, apperr.Dependency("scan ticket", err)
		}
		list = append(list, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Dependency("list tickets", err)
	}
	return list, nil
}

// EventOrganizer returns the organizer of an event.
func (r *Repository) EventOrganizer(ctx context.Context, eventID uuid.UUID) (uuid.UUID, error) {
	var organizer uuid.UUID
	err := r.pool.QueryRow(ctx, `SELECT organizer_id FROM events WHERE id = $1`, eventID).Scan(&organizer)
	if err != nil {
		return uuid.Nil, database.Classify(err, "event", "get event")
	}
	return organizer, nil
}

// Create inserts a ticket.
func (r *Repository) Create(ctx context.Context, t *models.Ticket) (*models.Ticket, error) {
	const q = `WITH ins AS (
			INSERT INTO tickets (name, price, sales_start, sales_end, quota, event_id)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, name, price, sales_start, sales_end, quota, event_id
		)
		SELECT ins.*, e.organizer_id FROM ins JOIN events e ON e.id = ins.event_id`
	out, err := scanTicket(r.pool.QueryRow(ctx, q, t.Name, t.Price, t.SalesStart, t.SalesEnd, t.Quota, t.EventID))
	if database.IsForeignKeyViolation(err) {
		return nil, apperr.Validation("event_id does not reference an event")
	}
	if err != nil {
		return nil, database.Classify(err, "ticket", "create ticket")
	}
	return out, nil
}

// Update writes the mutable fields of t.
func (r *Repository) Update(ctx context.Context, t *models.Ticket) (*models.Ticket, error) {
	const q = `WITH upd AS (
			UPDATE tickets SET name = $2, price = $3, sales_start = $4, sales_end = $5, quota = $6
			WHERE id = $1
			RETURNING id, name, price, sales_start, sales_end, quota, event_id
		)
		SELECT upd.*, e.organizer_id FROM upd JOIN events e ON e.id = upd.event_id`
	out, err := scanTicket(r.pool.QueryRow(ctx, q, t.ID, t.Name, t.Price, t.SalesStart, t.SalesEnd, t.Quota))
	if err != nil {
		return nil, database.Classify(err, "ticket", "update ticket")
	}
	return out, nil
}

// Delete removes the ticket; registrations and payments cascade.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (models.Cascade, error) {
	var c models.Cascade
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var locked uuid.UUID
		if err := tx.QueryRow(ctx, `SELECT id FROM tickets WHERE id = $1 FOR UPDATE`, id).Scan(&locked); err != nil {
			return err
		}
		var err error
		if c.RegistrationIDs, err = database.CollectIDs(ctx, tx,
			`SELECT id FROM registrations WHERE ticket_id = $1 FOR UPDATE`, id); err != nil {
			return err
		}
		if c.PaymentIDs, err = database.CollectIDs(ctx, tx,
			`SELECT p.id FROM payments p JOIN registrations rg ON rg.id = p.registration_id
			WHERE rg.ticket_id = $1`, id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM tickets WHERE id = $1`, id); err != nil {
			return err
		}
		c.TicketIDs = []uuid.UUID{id}
		return nil
	})
	if err != nil {
		return models.Cascade{}, database.Classify(err, "ticket", "delete ticket")
	}
	return c, nil
}
