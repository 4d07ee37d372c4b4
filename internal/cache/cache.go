// Package cache is the read-through cache in front of resource storage.
// Reads consult the cache first and populate it on a miss; every write
// drops the affected keys before it returns. The cache is never a source
// of truth: any cache failure degrades to a storage read.
//
// Each key carries a generation that invalidation bumps. A populate only
// lands when the generation it observed before loading is still current,
// so a reader that loaded a row before a write cannot put it back after
// the write invalidated it.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dicoevent/backend/internal/models"
)

// DefaultTTL is the expiry of populated entries.
const DefaultTTL = time.Hour

// ErrMiss is returned by Store.Get when the key is absent.
var ErrMiss = errors.New("cache miss")

// Source tells where a read was served from.
type Source int

const (
	SourceStorage Source = iota
	SourceCache
)

// Header returns the X-Cache header value for the source.
func (s Source) Header() string {
	if s == SourceCache {
		return "HIT"
	}
	return "MISS"
}

// Store is the cache collaborator. Implementations must be safe for
// concurrent use.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// Generation returns the current generation of key, 0 if never bumped.
	Generation(ctx context.Context, key string) (int64, error)
	// SetIfGeneration stores value only while key is still at gen and
	// reports whether it did.
	SetIfGeneration(ctx context.Context, key string, gen int64, value []byte, ttl time.Duration) (bool, error)
	// Invalidate deletes keys and bumps their generations. Generations
	// expire after ttl.
	Invalidate(ctx context.Context, ttl time.Duration, keys ...string) error
}

// Layer applies the read-through and invalidation rules over a Store.
type Layer struct {
	store  Store
	ttl    time.Duration
	logger *zap.Logger
}

// NewLayer creates a cache layer. ttl <= 0 uses DefaultTTL.
func NewLayer(store Store, ttl time.Duration, logger *zap.Logger) *Layer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Layer{store: store, ttl: ttl, logger: logger}
}

// ItemKey returns the key of a single resource, e.g. event:<id>.
func ItemKey(rt models.ResourceType, id uuid.UUID) string {
	return string(rt) + ":" + id.String()
}

// ListKey returns the list key of rt, or "" when lists of rt are not cached.
func ListKey(rt models.ResourceType) string {
	switch rt {
	case models.ResourceEvent:
		return "events:list"
	case models.ResourceTicket:
		return "tickets:list"
	}
	return ""
}

// Fetch returns the value under key, loading and populating it on a miss.
// Cache errors are logged and treated as misses; load errors are returned
// as-is and nothing is cached.
func Fetch[T any](ctx context.Context, l *Layer, key string, load func(context.Context) (T, error)) (T, Source, error) {
	raw, err := l.store.Get(ctx, key)
	switch {
	case err == nil:
		var v T
		derr := json.Unmarshal(raw, &v)
		if derr == nil {
			return v, SourceCache, nil
		}
		l.logger.Warn("cache decode failed", zap.String("key", key), zap.Error(derr))
	case !errors.Is(err, ErrMiss):
		l.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
	}

	gen, genErr := l.store.Generation(ctx, key)
	if genErr != nil {
		l.logger.Warn("cache generation failed", zap.String("key", key), zap.Error(genErr))
	}
	v, err := load(ctx)
	if err != nil {
		return v, SourceStorage, err
	}
	if genErr == nil {
		l.set(ctx, key, gen, v)
	}
	return v, SourceStorage, nil
}

func (l *Layer) set(ctx context.Context, key string, gen int64, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		l.logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	ok, err := l.store.SetIfGeneration(ctx, key, gen, raw, l.ttl)
	if err != nil {
		l.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
		return
	}
	if !ok {
		l.logger.Debug("cache populate skipped, key invalidated during load", zap.String("key", key))
	}
}

// Invalidate drops the item keys of ids and the list key of rt.
func (l *Layer) Invalidate(ctx context.Context, rt models.ResourceType, ids ...uuid.UUID) {
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, ItemKey(rt, id))
	}
	if lk := ListKey(rt); lk != "" {
		keys = append(keys, lk)
	}
	l.drop(ctx, keys)
}

// InvalidateCascade drops every key touched by a cascading delete.
func (l *Layer) InvalidateCascade(ctx context.Context, c models.Cascade) {
	var keys []string
	add := func(rt models.ResourceType, ids []uuid.UUID) {
		if len(ids) == 0 {
			return
		}
		for _, id := range ids {
			keys = append(keys, ItemKey(rt, id))
		}
		if lk := ListKey(rt); lk != "" {
			keys = append(keys, lk)
		}
	}
	add(models.ResourceEvent, c.EventIDs)
	add(models.ResourceTicket, c.TicketIDs)
	add(models.ResourceRegistration, c.RegistrationIDs)
	add(models.ResourcePayment, c.PaymentIDs)
	l.drop(ctx, keys)
}

func (l *Layer) drop(ctx context.Context, keys []string) {
	if len(keys) == 0 {
		return
	}
	if err := l.store.Invalidate(ctx, l.ttl, keys...); err != nil {
		// Entries can outlive the write by up to the TTL.
		l.logger.Error("cache invalidate failed", zap.Strings("keys", keys), zap.Error(err))
	}
}
