// Package payments records amounts paid against registrations. Nothing is
// charged; a payment is bookkeeping owned by the registrant.
package payments

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dicoevent/backend/internal/access"
	"github.com/dicoevent/backend/internal/cache"
	"github.com/dicoevent/backend/internal/models"
	"github.com/dicoevent/backend/pkg/apperr"
)

var maxAmount = decimal.RequireFromString("9999999999.99")

// Store is the payment persistence the service needs.
type Store interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	List(ctx context.Context, f access.Filter) ([]models.Payment, error)
	// RegistrationTarget resolves the chain a payment on registrationID
	// would have, or returns a not-found error.
	RegistrationTarget(ctx context.Context, registrationID uuid.UUID) (models.Target, error)
	// Create stamps paid_at.
	Create(ctx context.Context, p *models.Payment) (*models.Payment, error)
	// Update writes method, status and amount.
	Update(ctx context.Context, p *models.Payment) (*models.Payment, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// CreateInput is a new payment. An empty status means pending.
type CreateInput struct {
	RegistrationID uuid.UUID
	PaymentMethod  string
	PaymentStatus  string
	AmountPaid     decimal.Decimal
}

// UpdateInput is a partial update; nil fields are left unchanged.
type UpdateInput struct {
	PaymentMethod *string
	PaymentStatus *string
	AmountPaid    *decimal.Decimal
}

// Service applies access control and cache coherence to payments.
type Service struct {
	store  Store
	cache  *cache.Layer
	access *access.Evaluator
	logger *zap.Logger
}

// NewService creates a payment service.
func NewService(store Store, layer *cache.Layer, eval *access.Evaluator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, cache: layer, access: eval, logger: logger}
}

// Create records a payment against an existing registration.
func (s *Service) Create(ctx context.Context, actor access.Actor, in CreateInput) (*models.Payment, error) {
	if !actor.Authenticated() {
		return nil, apperr.Unauthenticated()
	}
	if in.RegistrationID == uuid.Nil {
		return nil, apperr.Validation("registration_id is required")
	}
	target, err := s.store.RegistrationTarget(ctx, in.RegistrationID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.Validation("registration_id does not reference a registration")
	}
	if err != nil {
		return nil, err
	}
	target.Type = models.ResourcePayment
	if err := s.access.Authorize(actor, access.Create, target); err != nil {
		return nil, err
	}

	p := &models.Payment{
		RegistrationID: in.RegistrationID,
		PaymentMethod:  strings.TrimSpace(in.PaymentMethod),
		PaymentStatus:  in.PaymentStatus,
		AmountPaid:     in.AmountPaid,
		UserID:         target.OwnerID,
		OrganizerID:    target.OrganizerID,
	}
	if p.PaymentStatus == "" {
		p.PaymentStatus = models.PaymentStatusPending
	}
	if err := validate(p); err != nil {
		return nil, err
	}
	created, err := s.store.Create(ctx, p)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, models.ResourcePayment, created.ID)
	s.logger.Info("payment recorded",
		zap.String("payment_id", created.ID.String()),
		zap.String("registration_id", created.RegistrationID.String()),
		zap.String("status", created.PaymentStatus),
	)
	return created, nil
}

// Get returns one payment the actor may read.
func (s *Service) Get(ctx context.Context, actor access.Actor, id uuid.UUID) (*models.Payment, cache.Source, error) {
	if !actor.Authenticated() {
		return nil, cache.SourceStorage, apperr.Unauthenticated()
	}
	p, src, err := cache.Fetch(ctx, s.cache, cache.ItemKey(models.ResourcePayment, id), func(ctx context.Context) (*models.Payment, error) {
		return s.store.Get(ctx, id)
	})
	if err != nil {
		return nil, src, err
	}
	if err := s.access.Authorize(actor, access.ReadSingle, p.Target()); err != nil {
		return nil, src, err
	}
	return p, src, nil
}

// List returns the payments visible to the actor. Never cached.
func (s *Service) List(ctx context.Context, actor access.Actor) ([]models.Payment, error) {
	f, err := s.access.ListFilter(actor, models.ResourcePayment)
	if err != nil {
		return nil, err
	}
	list, err := s.store.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.Payment{}
	}
	return list, nil
}

// Update changes method, status or amount. The registration never changes.
func (s *Service) Update(ctx context.Context, actor access.Actor, id uuid.UUID, in UpdateInput) (*models.Payment, error) {
	if !actor.Authenticated() {
		return nil, apperr.Unauthenticated()
	}
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.access.Authorize(actor, access.Update, p.Target()); err != nil {
		return nil, err
	}
	if in.PaymentMethod != nil {
		p.PaymentMethod = strings.TrimSpace(*in.PaymentMethod)
	}
	if in.PaymentStatus != nil {
		p.PaymentStatus = *in.PaymentStatus
	}
	if in.AmountPaid != nil {
		p.AmountPaid = *in.AmountPaid
	}
	if err := validate(p); err != nil {
		return nil, err
	}
	updated, err := s.store.Update(ctx, p)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, models.ResourcePayment, id)
	return updated, nil
}

// Delete removes a payment.
func (s *Service) Delete(ctx context.Context, actor access.Actor, id uuid.UUID) error {
	if !actor.Authenticated() {
		return apperr.Unauthenticated()
	}
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.access.Authorize(actor, access.Delete, p.Target()); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, models.ResourcePayment, id)
	return nil
}

func validate(p *models.Payment) error {
	if p.PaymentMethod == "" {
		return apperr.Validation("payment_method is required")
	}
	if len(p.PaymentMethod) > 50 {
		return apperr.Validation("payment_method is too long")
	}
	if !models.ValidPaymentStatus(p.PaymentStatus) {
		return apperr.Validationf("payment_status must be one of %s, %s, %s",
			models.PaymentStatusPending, models.PaymentStatusPaid, models.PaymentStatusFailed)
	}
	if p.AmountPaid.IsNegative() {
		return apperr.Validation("amount_paid must not be negative")
	}
	if !p.AmountPaid.Equal(p.AmountPaid.Round(2)) {
		return apperr.Validation("amount_paid has more than 2 decimal places")
	}
	if p.AmountPaid.GreaterThan(maxAmount) {
		return apperr.Validation("amount_paid is too large")
	}
	return nil
}
