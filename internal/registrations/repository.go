package registrations

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dicoevent/backend/internal/access"
	"github.com/dicoevent/backend/internal/models"
	"github.com/dicoevent/backend/pkg/apperr"
	"github.com/dicoevent/backend/pkg/database"
)

// Repository handles registration persistence. Reads resolve the
// organizer through ticket and event.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a registrations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const registrationSelect = `SELECT rg.id, rg.user_id, rg.ticket_id, rg.registered_at, e.organizer_id
	FROM registrations rg
	JOIN tickets t ON t.id = rg.ticket_id
	JOIN events e ON e.id = t.event_id`

func scanRegistration(row pgx.Row) (*models.Registration, error) {
	var r models.Registration
	if err := row.Scan(&r.ID, &r.UserID, &r.TicketID, &r.RegisteredAt, &r.OrganizerID); err != nil {
		return nil, err
	}
	return &r, nil
}

// Get returns a registration by ID.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.Registration, error) {
	reg, err := scanRegistration(r.pool.QueryRow(ctx, registrationSelect+` WHERE rg.id = $1`, id))
	if err != nil {
		return nil, database.Classify(err, "registration", "get registration")
	}
	return reg, nil
}

// List returns registrations matching f, newest first.
func (r *Repository) List(ctx context.Context, f access.Filter) ([]models.Registration, error) {
	where, args := f.Where("e.organizer_id", "rg.user_id", 0)
	rows, err := r.pool.Query(ctx, registrationSelect+` WHERE `+where+` ORDER BY rg.registered_at DESC, rg.id`, args...)
	if err != nil {
		return nil, apperr.Dependency("list registrations", err)
	}
	defer rows.Close()
	list := []models.Registration{}
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, apperr.Dependency("scan registration", err)
		}
		list = append(list, *reg)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Dependency("list registrations", err)
	}
	return list, nil
}

// TicketOrganizer returns the organizer of the ticket's event.
func (r *Repository) TicketOrganizer(ctx context.Context, ticketID uuid.UUID) (uuid.UUID, error) {
	var organizer uuid.UUID
	err := r.pool.QueryRow(ctx,
		`SELECT e.organizer_id FROM tickets t JOIN events e ON e.id = t.event_id WHERE t.id = $1`,
		ticketID).Scan(&organizer)
	if err != nil {
		return uuid.Nil, database.Classify(err, "ticket", "get ticket")
	}
	return organizer, nil
}

// UserExists reports whether id is a user.
func (r *Repository) UserExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var ok bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id).Scan(&ok); err != nil {
		return false, apperr.Dependency("check user", err)
	}
	return ok, nil
}

// PaymentIDs returns the payments recorded against a registration.
func (r *Repository) PaymentIDs(ctx context.Context, registrationID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM payments WHERE registration_id = $1`, registrationID)
	if err != nil {
		return nil, apperr.Dependency("list payment ids", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, apperr.Dependency("list payment ids", err)
	}
	return ids, nil
}

// Create inserts a registration; registered_at is set by the database.
func (r *Repository) Create(ctx context.Context, reg *models.Registration) (*models.Registration, error) {
	const q = `WITH ins AS (
			INSERT INTO registrations (user_id, ticket_id) VALUES ($1, $2)
			RETURNING id, user_id, ticket_id, registered_at
		)
		SELECT ins.*, e.organizer_id FROM ins
		JOIN tickets t ON t.id = ins.ticket_id
		JOIN events e ON e.id = t.event_id`
	out, err := scanRegistration(r.pool.QueryRow(ctx, q, reg.UserID, reg.TicketID))
	if database.IsForeignKeyViolation(err) {
		return nil, apperr.Validation("ticket_id or user_id does not exist")
	}
	if err != nil {
		return nil, database.Classify(err, "registration", "create registration")
	}
	return out, nil
}

// Update moves the registration to reg.TicketID.
func (r *Repository) Update(ctx context.Context, reg *models.Registration) (*models.Registration, error) {
	const q = `WITH upd AS (
			UPDATE registrations SET ticket_id = $2 WHERE id = $1
			RETURNING id, user_id, ticket_id, registered_at
		)
		SELECT upd.*, e.organizer_id FROM upd
		JOIN tickets t ON t.id = upd.ticket_id
		JOIN events e ON e.id = t.event_id`
	out, err := scanRegistration(r.pool.QueryRow(ctx, q, reg.ID, reg.TicketID))
	if database.IsForeignKeyViolation(err) {
		return nil, apperr.Validation("ticket_id does not reference a ticket")
	}
	if err != nil {
		return nil, database.Classify(err, "registration", "update registration")
	}
	return out, nil
}

// Delete removes the registration; its payments cascade.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (models.Cascade, error) {
	var c models.Cascade
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var locked uuid.UUID
		if err := tx.QueryRow(ctx, `SELECT id FROM registrations WHERE id = $1 FOR UPDATE`, id).Scan(&locked); err != nil {
			return err
		}
		var err error
		if c.PaymentIDs, err = database.CollectIDs(ctx, tx,
			`SELECT id FROM payments WHERE registration_id = $1`, id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM registrations WHERE id = $1`, id); err != nil {
			return err
		}
		c.RegistrationIDs = []uuid.UUID{id}
		return nil
	})
	if err != nil {
		return models.Cascade{}, database.Classify(err, "registration", "delete registration")
	}
	return c, nil
}
