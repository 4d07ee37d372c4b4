package reminders

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dicoevent/backend/internal/models"
	"github.com/dicoevent/backend/pkg/apperr"
)

// Repository queries registrations due for a reminder.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a reminder repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// DueReminders returns registrations whose event starts in [from, to).
func (r *Repository) DueReminders(ctx context.Context, from, to time.Time) ([]models.DueReminder, error) {
	const q = `SELECT rg.id, e.id, e.name, e.start_time, u.username, u.email
		FROM registrations rg
		JOIN tickets t ON t.id = rg.ticket_id
		JOIN events e ON e.id = t.event_id
		JOIN users u ON u.id = rg.user_id
		WHERE e.start_time >= $1 AND e.start_time < $2
		ORDER BY e.start_time, rg.id`
	rows, err := r.pool.Query(ctx, q, from, to)
	if err != nil {
		return nil, apperr.Dependency("query due reminders", err)
	}
	list, err := pgx.CollectRows(rows, pgx.RowToStructByPos[models.DueReminder])
	if err != nil {
		return nil, apperr.Dependency("query due reminders", err)
	}
	return list, nil
}
