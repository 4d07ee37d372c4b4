// Package tickets manages the priced tiers of an event.
package tickets

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dicoevent/backend/internal/access"
	"github.com/dicoevent/backend/internal/cache"
	"github.com/dicoevent/backend/internal/models"
	"github.com/dicoevent/backend/pkg/apperr"
)

// maxPrice is the largest amount NUMERIC(12,2) holds.
var maxPrice = decimal.RequireFromString("9999999999.99")

// Store is the ticket persistence the service needs.
type Store interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Ticket, error)
	List(ctx context.Context) ([]models.Ticket, error)
	// EventOrganizer returns the organizer of eventID or a not-found error.
	EventOrganizer(ctx context.Context, eventID uuid.UUID) (uuid.UUID, error)
	Create(ctx context.Context, t *models.Ticket) (*models.Ticket, error)
	// Update writes every mutable field. The event is never changed.
	Update(ctx context.Context, t *models.Ticket) (*models.Ticket, error)
	Delete(ctx context.Context, id uuid.UUID) (models.Cascade, error)
}

// CreateInput is a new ticket tier.
type CreateInput struct {
	Name       string
	Price      decimal.Decimal
	SalesStart time.Time
	SalesEnd   time.Time
	Quota      int
	EventID    uuid.UUID
}

// UpdateInput is a partial update; nil fields are left unchanged.
type UpdateInput struct {
	Name       *string
	Price      *decimal.Decimal
	SalesStart *time.Time
	SalesEnd   *time.Time
	Quota      *int
}

// Service applies access control and cache coherence to ticket storage.
type Service struct {
	store  Store
	cache  *cache.Layer
	access *access.Evaluator
	logger *zap.Logger
}

// NewService creates a ticket service.
func NewService(store Store, layer *cache.Layer, eval *access.Evaluator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, cache: layer, access: eval, logger: logger}
}

// Create adds a ticket tier to an existing event.
func (s *Service) Create(ctx context.Context, actor access.Actor, in CreateInput) (*models.Ticket, error) {
	if !actor.Authenticated() {
		return nil, apperr.Unauthenticated()
	}
	if in.EventID == uuid.Nil {
		return nil, apperr.Validation("event_id is required")
	}
	organizer, err := s.store.EventOrganizer(ctx, in.EventID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.Validation("event_id does not reference an event")
	}
	if err != nil {
		return nil, err
	}
	target := models.Target{Type: models.ResourceTicket, OrganizerID: organizer}
	if err := s.access.Authorize(actor, access.Create, target); err != nil {
		return nil, err
	}

	t := &models.Ticket{
		Name:        strings.TrimSpace(in.Name),
		Price:       in.Price,
		SalesStart:  in.SalesStart,
		SalesEnd:    in.SalesEnd,
		Quota:       in.Quota,
		EventID:     in.EventID,
		OrganizerID: organizer,
	}
	if err := validate(t); err != nil {
		return nil, err
	}
	created, err := s.store.Create(ctx, t)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, models.ResourceTicket, created.ID)
	s.logger.Info("ticket created",
		zap.String("ticket_id", created.ID.String()),
		zap.String("event_id", created.EventID.String()),
	)
	return created, nil
}

// Get returns one ticket. Tickets are public.
func (s *Service) Get(ctx context.Context, actor access.Actor, id uuid.UUID) (*models.Ticket, cache.Source, error) {
	t, src, err := cache.Fetch(ctx, s.cache, cache.ItemKey(models.ResourceTicket, id), func(ctx context.Context) (*models.Ticket, error) {
		return s.store.Get(ctx, id)
	})
	if err != nil {
		return nil, src, err
	}
	if err := s.access.Authorize(actor, access.ReadSingle, t.Target()); err != nil {
		return nil, src, err
	}
	return t, src, nil
}

// List returns all tickets.
func (s *Service) List(ctx context.Context, actor access.Actor) ([]models.Ticket, cache.Source, error) {
	if _, err := s.access.ListFilter(actor, models.ResourceTicket); err != nil {
		return nil, cache.SourceStorage, err
	}
	return cache.Fetch(ctx, s.cache, cache.ListKey(models.ResourceTicket), func(ctx context.Context) ([]models.Ticket, error) {
		list, err := s.store.List(ctx)
		if list == nil && err == nil {
			list = []models.Ticket{}
		}
		return list, err
	})
}

// Update applies in to the ticket.
func (s *Service) Update(ctx context.Context, actor access.Actor, id uuid.UUID, in UpdateInput) (*models.Ticket, error) {
	if !actor.Authenticated() {
		return nil, apperr.Unauthenticated()
	}
	t, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.access.Authorize(actor, access.Update, t.Target()); err != nil {
		return nil, err
	}

	if in.Name != nil {
		t.Name = strings.TrimSpace(*in.Name)
	}
	if in.Price != nil {
		t.Price = *in.Price
	}
	if in.SalesStart != nil {
		t.SalesStart = *in.SalesStart
	}
	if in.SalesEnd != nil {
		t.SalesEnd = *in.SalesEnd
	}
	if in.Quota != nil {
		t.Quota = *in.Quota
	}
	if err := validate(t); err != nil {
		return nil, err
	}

	updated, err := s.store.Update(ctx, t)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, models.ResourceTicket, id)
	return updated, nil
}

// Delete removes the ticket with its registrations and payments.
func (s *Service) Delete(ctx context.Context, actor access.Actor, id uuid.UUID) error {
	if !actor.Authenticated() {
		return apperr.Unauthenticated()
	}
	t, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.access.Authorize(actor, access.Delete, t.Target()); err != nil {
		return err
	}
	removed, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	s.cache.InvalidateCascade(ctx, removed)
	s.logger.Info("ticket deleted",
		zap.String("ticket_id", id.String()),
		zap.Int("registrations", len(removed.RegistrationIDs)),
		zap.Int("payments", len(removed.PaymentIDs)),
	)
	return nil
}

func validate(t *models.Ticket) error {
	if t.Name == "" {
		return apperr.Validation("name is required")
	}
	if t.Price.IsNegative() {
		return apperr.Validation("price must not be negative")
	}
	if !t.Price.Equal(t.Price.Round(2)) {
		return apperr.Validation("price has more than 2 decimal places")
	}
	if t.Price.GreaterThan(maxPrice) {
		return apperr.Validation("price is too large")
	}
	if t.SalesStart.IsZero() || t.SalesEnd.IsZero() {
		return apperr.Validation("sales_start and sales_end are required")
	}
	if t.SalesEnd.Before(t.SalesStart) {
		return apperr.Validation("sales_start must not be after sales_end")
	}
	if t.Quota < 0 {
		return apperr.Validation("quota must not be negative")
	}
	return nil
}
