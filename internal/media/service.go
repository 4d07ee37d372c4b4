// Package media stores event poster images in object storage and hands
// out time-limited download links for them.
package media

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dicoevent/backend/internal/access"
	"github.com/dicoevent/backend/internal/models"
	"github.com/dicoevent/backend/pkg/apperr"
)

// DefaultMaxBytes is the upload limit when none is configured.
const DefaultMaxBytes = 500 * 1024

// Store is the media persistence the service needs.
type Store interface {
	// Event returns the event or an apperr NotFound error.
	Event(ctx context.Context, id uuid.UUID) (*models.Event, error)
	Create(ctx context.Context, m *models.Media) (*models.Media, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Media, error)
}

// ObjectStore is the object storage collaborator.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	PresignedGet(ctx context.Context, key string) (string, error)
}

// Service validates uploads and resolves poster URLs.
type Service struct {
	store    Store
	objects  ObjectStore
	access   *access.Evaluator
	maxBytes int64
	logger   *zap.Logger
}

// NewService creates a media service. maxBytes <= 0 uses DefaultMaxBytes.
func NewService(store Store, objects ObjectStore, eval *access.Evaluator, maxBytes int64, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Service{store: store, objects: objects, access: eval, maxBytes: maxBytes, logger: logger}
}

// MaxBytes returns the upload limit.
func (s *Service) MaxBytes() int64 { return s.maxBytes }

// Upload stores data under filename and records it against the event.
// Nothing is written unless every check passes. The filename is the
// object key as given; a repeated name overwrites the stored object.
func (s *Service) Upload(ctx context.Context, actor access.Actor, eventID uuid.UUID, data []byte, filename, declaredType string) (*models.Media, error) {
	if eventID == uuid.Nil || len(data) == 0 || filename == "" {
		return nil, apperr.Validation("event and image are required")
	}
	if int64(len(data)) > s.maxBytes {
		return nil, apperr.Validation(fmt.Sprintf("image exceeds %d KiB", s.maxBytes/1024))
	}
	if declaredType != "" && !isImage(declaredType) {
		return nil, apperr.Validation("file must be an image")
	}
	sniffed := mimetype.Detect(data).String()
	if !isImage(sniffed) {
		return nil, apperr.Validation("file must be an image")
	}

	if !actor.Authenticated() {
		return nil, apperr.Unauthenticated()
	}
	e, err := s.store.Event(ctx, eventID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.Validation("event does not exist")
		}
		return nil, err
	}
	if err := s.access.Authorize(actor, access.Update, e.Target()); err != nil {
		return nil, err
	}

	if err := s.objects.Put(ctx, filename, data, sniffed); err != nil {
		return nil, apperr.Dependency("store image", err)
	}
	m, err := s.store.Create(ctx, &models.Media{Image: filename, EventID: eventID})
	if err != nil {
		return nil, err
	}
	s.logger.Info("poster uploaded",
		zap.String("event_id", eventID.String()),
		zap.String("key", filename),
		zap.Int("bytes", len(data)),
	)
	return m, nil
}

// ListPosters returns the event's media with presigned URLs. A media item
// whose URL cannot be generated is returned with a nil URL.
func (s *Service) ListPosters(ctx context.Context, actor access.Actor, eventID uuid.UUID) ([]models.Poster, error) {
	e, err := s.store.Event(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := s.access.Authorize(actor, access.ReadSingle, e.Target()); err != nil {
		return nil, err
	}
	items, err := s.store.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	posters := make([]models.Poster, 0, len(items))
	for _, m := range items {
		p := models.Poster{ID: m.ID, Image: m.Image}
		url, err := s.objects.PresignedGet(ctx, m.Image)
		if err != nil {
			s.logger.Warn("presign poster failed",
				zap.String("event_id", eventID.String()),
				zap.String("key", m.Image),
				zap.Error(err),
			)
		} else {
			p.URL = &url
		}
		posters = append(posters, p)
	}
	return posters, nil
}

func isImage(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/")
}
