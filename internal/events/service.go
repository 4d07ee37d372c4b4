// Package events manages events: the root of the ownership chain every
// ticket, registration and payment resolves through.
package events

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dicoevent/backend/internal/access"
	"github.com/dicoevent/backend/internal/cache"
	"github.com/dicoevent/backend/internal/models"
	"github.com/dicoevent/backend/pkg/apperr"
)

// Store is the event persistence the service needs.
type Store interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Event, error)
	List(ctx context.Context) ([]models.Event, error)
	Create(ctx context.Context, e *models.Event) (*models.Event, error)
	// Update writes every mutable field. The organizer is never changed.
	Update(ctx context.Context, e *models.Event) (*models.Event, error)
	// Delete removes the event and everything beneath it.
	Delete(ctx context.Context, id uuid.UUID) (models.Cascade, error)
	UserExists(ctx context.Context, id uuid.UUID) (bool, error)
}

// CreateInput is a new event. A nil OrganizerID means the caller.
type CreateInput struct {
	Name        string
	Description string
	Location    string
	StartTime   time.Time
	EndTime     time.Time
	Status      string
	Category    string
	Quota       int
	OrganizerID *uuid.UUID
}

// UpdateInput is a partial update; nil fields are left unchanged.
type UpdateInput struct {
	Name        *string
	Description *string
	Location    *string
	StartTime   *time.Time
	EndTime     *time.Time
	Status      *string
	Category    *string
	Quota       *int
}

// Service applies access control and cache coherence to event storage.
type Service struct {
	store  Store
	cache  *cache.Layer
	access *access.Evaluator
	logger *zap.Logger
}

// NewService creates an event service.
func NewService(store Store, layer *cache.Layer, eval *access.Evaluator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, cache: layer, access: eval, logger: logger}
}

// Create stores a new event organized by in.OrganizerID or the actor.
func (s *Service) Create(ctx context.Context, actor access.Actor, in CreateInput) (*models.Event, error) {
	organizer := actor.UserID
	if in.OrganizerID != nil {
		organizer = *in.OrganizerID
	}
	target := models.Target{Type: models.ResourceEvent, OrganizerID: organizer}
	if err := s.access.Authorize(actor, access.Create, target); err != nil {
		return nil, err
	}

	e := &models.Event{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Location:    in.Location,
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
		Status:      in.Status,
		Category:    in.Category,
		Quota:       in.Quota,
		OrganizerID: organizer,
	}
	if e.Status == "" {
		e.Status = models.EventStatusScheduled
	}
	if err := validate(e); err != nil {
		return nil, err
	}
	if in.OrganizerID != nil {
		ok, err := s.store.UserExists(ctx, organizer)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperr.Validation("organizer_id does not reference a user")
		}
	}

	created, err := s.store.Create(ctx, e)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, models.ResourceEvent, created.ID)
	s.logger.Info("event created",
		zap.String("event_id", created.ID.String()),
		zap.String("organizer_id", organizer.String()),
	)
	return created, nil
}

// Get returns one event. Events are public.
func (s *Service) Get(ctx context.Context, actor access.Actor, id uuid.UUID) (*models.Event, cache.Source, error) {
	e, src, err := cache.Fetch(ctx, s.cache, cache.ItemKey(models.ResourceEvent, id), func(ctx context.Context) (*models.Event, error) {
		return s.store.Get(ctx, id)
	})
	if err != nil {
		return nil, src, err
	}
	if err := s.access.Authorize(actor, access.ReadSingle, e.Target()); err != nil {
		return nil, src, err
	}
	return e, src, nil
}

// List returns all events ordered by start time.
func (s *Service) List(ctx context.Context, actor access.Actor) ([]models.Event, cache.Source, error) {
	if _, err := s.access.ListFilter(actor, models.ResourceEvent); err != nil {
		return nil, cache.SourceStorage, err
	}
	return cache.Fetch(ctx, s.cache, cache.ListKey(models.ResourceEvent), func(ctx context.Context) ([]models.Event, error) {
		list, err := s.store.List(ctx)
		if list == nil && err == nil {
			list = []models.Event{}
		}
		return list, err
	})
}

// Update applies in to the event.
func (s *Service) Update(ctx context.Context, actor access.Actor, id uuid.UUID, in UpdateInput) (*models.Event, error) {
	if !actor.Authenticated() {
		return nil, apperr.Unauthenticated()
	}
	e, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.access.Authorize(actor, access.Update, e.Target()); err != nil {
		return nil, err
	}

	if in.Name != nil {
		e.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		e.Description = *in.Description
	}
	if in.Location != nil {
		e.Location = *in.Location
	}
	if in.StartTime != nil {
		e.StartTime = *in.StartTime
	}
	if in.EndTime != nil {
		e.EndTime = *in.EndTime
	}
	if in.Status != nil {
		e.Status = *in.Status
	}
	if in.Category != nil {
		e.Category = *in.Category
	}
	if in.Quota != nil {
		e.Quota = *in.Quota
	}
	if err := validate(e); err != nil {
		return nil, err
	}

	updated, err := s.store.Update(ctx, e)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, models.ResourceEvent, id)
	return updated, nil
}

// Delete removes the event with its tickets, media, registrations and
// payments, and drops every cached copy of them.
func (s *Service) Delete(ctx context.Context, actor access.Actor, id uuid.UUID) error {
	if !actor.Authenticated() {
		return apperr.Unauthenticated()
	}
	e, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.access.Authorize(actor, access.Delete, e.Target()); err != nil {
		return err
	}
	removed, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	s.cache.InvalidateCascade(ctx, removed)
	s.logger.Info("event deleted",
		zap.String("event_id", id.String()),
		zap.Int("tickets", len(removed.TicketIDs)),
		zap.Int("registrations", len(removed.RegistrationIDs)),
		zap.Int("payments", len(removed.PaymentIDs)),
	)
	return nil
}

func validate(e *models.Event) error {
	if e.Name == "" {
		return apperr.Validation("name is required")
	}
	if e.StartTime.IsZero() || e.EndTime.IsZero() {
		return apperr.Validation("start_time and end_time are required")
	}
	if !e.StartTime.Before(e.EndTime) {
		return apperr.Validation("start_time must be before end_time")
	}
	if e.Quota < 0 {
		return apperr.Validation("quota must not be negative")
	}
	return nil
}
