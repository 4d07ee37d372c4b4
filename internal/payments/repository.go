package payments

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

// Repository handles payment persistence. Reads resolve the registrant and
// organizer through registration, ticket and event.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a payment repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const chainJoin = `
	JOIN registrations rg ON rg.id = p.registration_id
	JOIN tickets t ON t.id = rg.ticket_id
	JOIN events e ON e.id = t.event_id`

const paymentSelect = `SELECT p.id, p.registration_id, p.payment_method, p.payment_status, p.amount_paid, p.paid_at,
	rg.user_id, e.organizer_id
	FROM payments p` + chainJoin

func scanPayment(row pgx.Row) (*models.Payment, error) {
	var p models.Payment
	err := row.Scan(&p.ID, &p.RegistrationID, &p.PaymentMethod, &p.PaymentStatus, &p.AmountPaid, &p.PaidAt,
		&p.UserID, &p.OrganizerID)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Get returns a payment by ID.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	p, err := scanPayment(r.pool.QueryRow(ctx, paymentSelect+` WHERE p.id = $1`, id))
	if err != nil {
		return nil, database.Classify(err, "payment", "get payment")
	}
	return p, nil
}

// List returns payments matching f, newest first.
func (r *Repository) List(ctx context.Context, f access.Filter) ([]models.Payment, error) {
	where, args := f.Where("e.organizer_id", "rg.user_id", 0)
	rows, err := r.pool.Query(ctx, paymentSelect+` WHERE `+where+` ORDER BY p.paid_at DESC, p.id`, args...)
	if err != nil {
		return nil, apperr.Dependency("list payments", err)
	}
	defer rows.Close()
	list := []models.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, apperr.Dependency("scan payment", err)
		}
		list = append(list, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Dependency("list payments", err)
	}
	return list, nil
}

// RegistrationTarget resolves the registrant and organizer of a registration.
func (r *Repository) RegistrationTarget(ctx context.Context, registrationID uuid.UUID) (models.Target, error) {
	target := models.Target{Type: models.ResourcePayment}
	err := r.pool.QueryRow(ctx, `SELECT rg.user_id, e.organizer_id FROM registrations rg
		JOIN tickets t ON t.id = rg.ticket_id
		JOIN events e ON e.id = t.event_id
		WHERE rg.id = $1`, registrationID).Scan(&target.OwnerID, &target.OrganizerID)
	if err != nil {
		return models.Target{}, database.Classify(err, "registration", "get registration")
	}
	return target, nil
}

// Create inserts a payment; paid_at is set by the database.
func (r *Repository) Create(ctx context.Context, p *models.Payment) (*models.Payment, error) {
	const q = `WITH p AS (
			INSERT INTO payments (registration_id, payment_method, payment_status, amount_paid)
			VALUES ($1, $2, $3, $4)
			RETURNING id, registration_id, payment_method, payment_status, amount_paid, paid_at
		)
		SELECT p.*, rg.user_id, e.organizer_id FROM p` + chainJoin
	out, err := scanPayment(r.pool.QueryRow(ctx, q, p.RegistrationID, p.PaymentMethod, p.PaymentStatus, p.AmountPaid))
	if database.IsForeignKeyViolation(err) {
		return nil, apperr.Validation("registration_id does not reference a registration")
	}
	if err != nil {
		return nil, database.Classify(err, "payment", "create payment")
	}
	return out, nil
}

// Update writes method, status and amount.
func (r *Repository) Update(ctx context.Context, p *models.Payment) (*models.Payment, error) {
	const q = `WITH p AS (
			UPDATE payments SET payment_method = $2, payment_status = $3, amount_paid = $4
			WHERE id = $1
			RETURNING id, registration_id, payment_method, payment_status, amount_paid, paid_at
		)
		SELECT p.*, rg.user_id, e.organizer_id FROM p` + chainJoin
	out, err := scanPayment(r.pool.QueryRow(ctx, q, p.ID, p.PaymentMethod, p.PaymentStatus, p.AmountPaid))
	if err != nil {
		return nil, database.Classify(err, "payment", "update payment")
	}
	return out, nil
}

// Delete removes a payment.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM payments WHERE id = $1`, id)
	if err != nil {
		return apperr.Dependency("delete payment", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("payment")
	}
	return nil
}
