package media

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dicoevent/backend/internal/models"
	"github.com/dicoevent/backend/pkg/apperr"
	"github.com/dicoevent/backend/pkg/database"
)

// Repository handles media persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a media repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Event returns the event a poster would attach to.
func (r *Repository) Event(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	const q = `SELECT id, name, organizer_id FROM events WHERE id = $1`
	var e models.Event
	if err := r.pool.QueryRow(ctx, q, id).Scan(&e.ID, &e.Name, &e.OrganizerID); err != nil {
		return nil, database.Classify(err, "event", "get event")
	}
	return &e, nil
}

// Create inserts a media row.
func (r *Repository) Create(ctx context.Context, m *models.Media) (*models.Media, error) {
	const q = `INSERT INTO media (image, event_id) VALUES ($1, $2) RETURNING id, image, event_id`
	var out models.Media
	err := r.pool.QueryRow(ctx, q, m.Image, m.EventID).Scan(&out.ID, &out.Image, &out.EventID)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, apperr.Validation("event does not exist")
		}
		return nil, apperr.Dependency("create media", err)
	}
	return &out, nil
}

// ListByEvent returns the media of an event in insertion order.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Media, error) {
	const q = `SELECT id, image, event_id FROM media WHERE event_id = $1 ORDER BY created_at, id`
	rows, err := r.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, apperr.Dependency("list media", err)
	}
	list, err := pgx.CollectRows(rows, pgx.RowToStructByPos[models.Media])
	if err != nil {
		return nil, apperr.Dependency("list media", err)
	}
	return list, nil
}
