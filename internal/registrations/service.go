// Package registrations manages users' claims on tickets. A registration
// is owned by its user and resolves to an organizer through its ticket.
package registrations

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dicoevent/backend/internal/access"
	"github.com/dicoevent/backend/internal/cache"
	"github.com/dicoevent/backend/internal/models"
	"github.com/dicoevent/backend/pkg/apperr"
)

// Store is the registration persistence the service needs.
type Store interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Registration, error)
	// List returns the registrations matching f.
	List(ctx context.Context, f access.Filter) ([]models.Registration, error)
	// TicketOrganizer returns the organizer of the ticket's event or a
	// not-found error.
	TicketOrganizer(ctx context.Context, ticketID uuid.UUID) (uuid.UUID, error)
	UserExists(ctx context.Context, id uuid.UUID) (bool, error)
	PaymentIDs(ctx context.Context, registrationID uuid.UUID) ([]uuid.UUID, error)
	// Create stamps registered_at.
	Create(ctx context.Context, r *models.Registration) (*models.Registration, error)
	// Update moves the registration to r.TicketID.
	Update(ctx context.Context, r *models.Registration) (*models.Registration, error)
	Delete(ctx context.Context, id uuid.UUID) (models.Cascade, error)
}

// CreateInput is a new registration. A nil UserID means the caller.
type CreateInput struct {
	TicketID uuid.UUID
	UserID   *uuid.UUID
}

// UpdateInput moves a registration to another ticket.
type UpdateInput struct {
	TicketID *uuid.UUID
}

// Service applies access control and cache coherence to registrations.
type Service struct {
	store  Store
	cache  *cache.Layer
	access *access.Evaluator
	logger *zap.Logger
}

// NewService creates a registration service.
func NewService(store Store, layer *cache.Layer, eval *access.Evaluator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, cache: layer, access: eval, logger: logger}
}

// Create registers in.UserID (or the caller) for a ticket.
func (s *Service) Create(ctx context.Context, actor access.Actor, in CreateInput) (*models.Registration, error) {
	if !actor.Authenticated() {
		return nil, apperr.Unauthenticated()
	}
	if in.TicketID == uuid.Nil {
		return nil, apperr.Validation("ticket_id is required")
	}
	organizer, err := s.ticketOrganizer(ctx, in.TicketID)
	if err != nil {
		return nil, err
	}
	user := actor.UserID
	if in.UserID != nil {
		user = *in.UserID
	}
	target := models.Target{Type: models.ResourceRegistration, OrganizerID: organizer, OwnerID: user}
	if err := s.access.Authorize(actor, access.Create, target); err != nil {
		return nil, err
	}
	if user != actor.UserID {
		ok, err := s.store.UserExists(ctx, user)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperr.Validation("user_id does not reference a user")
		}
	}

	created, err := s.store.Create(ctx, &models.Registration{UserID: user, TicketID: in.TicketID})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, models.ResourceRegistration, created.ID)
	s.logger.Info("registration created",
		zap.String("registration_id", created.ID.String()),
		zap.String("ticket_id", created.TicketID.String()),
		zap.String("user_id", user.String()),
	)
	return created, nil
}

// Get returns one registration the actor may read.
func (s *Service) Get(ctx context.Context, actor access.Actor, id uuid.UUID) (*models.Registration, cache.Source, error) {
	if !actor.Authenticated() {
		return nil, cache.SourceStorage, apperr.Unauthenticated()
	}
	r, src, err := cache.Fetch(ctx, s.cache, cache.ItemKey(models.ResourceRegistration, id), func(ctx context.Context) (*models.Registration, error) {
		return s.store.Get(ctx, id)
	})
	if err != nil {
		return nil, src, err
	}
	if err := s.access.Authorize(actor, access.ReadSingle, r.Target()); err != nil {
		return nil, src, err
	}
	return r, src, nil
}

// List returns the registrations visible to the actor. The result
// depends on the caller, so it is never cached.
func (s *Service) List(ctx context.Context, actor access.Actor) ([]models.Registration, error) {
	f, err := s.access.ListFilter(actor, models.ResourceRegistration)
	if err != nil {
		return nil, err
	}
	list, err := s.store.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.Registration{}
	}
	return list, nil
}

// Update moves a registration to another ticket. The user and
// registration time never change.
func (s *Service) Update(ctx context.Context, actor access.Actor, id uuid.UUID, in UpdateInput) (*models.Registration, error) {
	if !actor.Authenticated() {
		return nil, apperr.Unauthenticated()
	}
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.access.Authorize(actor, access.Update, r.Target()); err != nil {
		return nil, err
	}
	if in.TicketID == nil || *in.TicketID == r.TicketID {
		return r, nil
	}

	organizer, err := s.ticketOrganizer(ctx, *in.TicketID)
	if err != nil {
		return nil, err
	}
	moved := models.Target{Type: models.ResourceRegistration, OrganizerID: organizer, OwnerID: r.UserID}
	if err := s.access.Authorize(actor, access.Update, moved); err != nil {
		return nil, err
	}
	paymentIDs, err := s.store.PaymentIDs(ctx, id)
	if err != nil {
		return nil, err
	}

	r.TicketID = *in.TicketID
	updated, err := s.store.Update(ctx, r)
	if err != nil {
		return nil, err
	}
	// Cached payments carry the organizer resolved through the old ticket.
	s.cache.InvalidateCascade(ctx, models.Cascade{
		RegistrationIDs: []uuid.UUID{id},
		PaymentIDs:      paymentIDs,
	})
	return updated, nil
}

// Delete removes the registration and its payments.
func (s *Service) Delete(ctx context.Context, actor access.Actor, id uuid.UUID) error {
	if !actor.Authenticated() {
		return apperr.Unauthenticated()
	}
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.access.Authorize(actor, access.Delete, r.Target()); err != nil {
		return err
	}
	removed, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	s.cache.InvalidateCascade(ctx, removed)
	return nil
}

func (s *Service) ticketOrganizer(ctx context.Context, ticketID uuid.UUID) (uuid.UUID, error) {
	organizer, err := s.store.TicketOrganizer(ctx, ticketID)
	if errors.Is(err, apperr.ErrNotFound) {
		return uuid.Nil, apperr.Validation("ticket_id does not reference a ticket")
	}
	return organizer, err
}
