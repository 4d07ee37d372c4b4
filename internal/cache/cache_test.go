package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dicoevent/backend/internal/models"
)

func newLayer(t *testing.T) (*Layer, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewLayer(NewRedisStore(rdb), time.Hour, nil), mr
}

func TestFetchMissThenHit(t *testing.T) {
	l, mr := newLayer(t)
	ctx := context.Background()
	id := uuid.New()
	key := ItemKey(models.ResourceEvent, id)
	loads := 0
	load := func(context.Context) (*models.Event, error) {
		loads++
		return &models.Event{ID: id, Name: "Go Meetup"}, nil
	}

	ev, src, err := Fetch(ctx, l, key, load)
	require.NoError(t, err)
	assert.Equal(t, SourceStorage, src)
	assert.Equal(t, "Go Meetup", ev.Name)
	assert.True(t, mr.Exists("event:"+id.String()))
	assert.Equal(t, time.Hour, mr.TTL(key))

	ev, src, err = Fetch(ctx, l, key, load)
	require.NoError(t, err)
	assert.Equal(t, SourceCache, src)
	assert.Equal(t, "Go Meetup", ev.Name)
	assert.Equal(t, 1, loads)
}

func TestFetchLoadErrorIsNotCached(t *testing.T) {
	l, mr := newLayer(t)
	boom := errors.New("boom")
	_, _, err := Fetch(context.Background(), l, "event:x", func(context.Context) (*models.Event, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("event:x"))
}

func TestInvalidateDropsItemAndList(t *testing.T) {
	l, mr := newLayer(t)
	id := uuid.New()
	require.NoError(t, mr.Set(ItemKey(models.ResourceTicket, id), "{}"))
	require.NoError(t, mr.Set("tickets:list", "[]"))
	require.NoError(t, mr.Set("events:list", "[]"))

	l.Invalidate(context.Background(), models.ResourceTicket, id)

	assert.False(t, mr.Exists("ticket:"+id.String()))
	assert.False(t, mr.Exists("tickets:list"))
	assert.True(t, mr.Exists("events:list"))
}

func TestInvalidateCascade(t *testing.T) {
	l, mr := newLayer(t)
	c := models.Cascade{
		EventIDs:        []uuid.UUID{uuid.New()},
		TicketIDs:       []uuid.UUID{uuid.New(), uuid.New()},
		RegistrationIDs: []uuid.UUID{uuid.New()},
		PaymentIDs:      []uuid.UUID{uuid.New()},
	}
	keys := []string{"events:list", "tickets:list",
		ItemKey(models.ResourceEvent, c.EventIDs[0]),
		ItemKey(models.ResourceTicket, c.TicketIDs[0]),
		ItemKey(models.ResourceTicket, c.TicketIDs[1]),
		ItemKey(models.ResourceRegistration, c.RegistrationIDs[0]),
		ItemKey(models.ResourcePayment, c.PaymentIDs[0]),
	}
	for _, k := range keys {
		require.NoError(t, mr.Set(k, "{}"))
	}

	l.InvalidateCascade(context.Background(), c)

	for _, k := range keys {
		assert.False(t, mr.Exists(k), k)
	}
}

func TestInvalidateDuringLoadSkipsPopulate(t *testing.T) {
	l, mr := newLayer(t)
	ctx := context.Background()
	id := uuid.New()
	key := ItemKey(models.ResourceEvent, id)

	ev, src, err := Fetch(ctx, l, key, func(ctx context.Context) (*models.Event, error) {
		// A write lands after the row was read.
		l.Invalidate(ctx, models.ResourceEvent, id)
		return &models.Event{ID: id, Name: "GopherCon"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, SourceStorage, src)
	assert.Equal(t, "GopherCon", ev.Name)
	assert.False(t, mr.Exists(key), "stale row must not be cached")

	ev, src, err = Fetch(ctx, l, key, func(context.Context) (*models.Event, error) {
		return &models.Event{ID: id, Name: "Renamed"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, SourceStorage, src)
	assert.Equal(t, "Renamed", ev.Name)

	ev, src, err = Fetch(ctx, l, key, func(context.Context) (*models.Event, error) {
		return nil, errors.New("not reached")
	})
	require.NoError(t, err)
	assert.Equal(t, SourceCache, src)
	assert.Equal(t, "Renamed", ev.Name)
}

func TestInvalidateBumpsGeneration(t *testing.T) {
	l, mr := newLayer(t)
	id := uuid.New()
	key := ItemKey(models.ResourceTicket, id)

	l.Invalidate(context.Background(), models.ResourceTicket, id)
	l.Invalidate(context.Background(), models.ResourceTicket, id)

	got, err := mr.Get(GenerationKey(key))
	require.NoError(t, err)
	assert.Equal(t, "2", got)
	assert.Equal(t, time.Hour, mr.TTL(GenerationKey(key)))
	got, err = mr.Get(GenerationKey("tickets:list"))
	require.NoError(t, err)
	assert.Equal(t, "2", got)
}

func TestCacheDownFallsBackToStorage(t *testing.T) {
	l, mr := newLayer(t)
	mr.Close()

	ev, src, err := Fetch(context.Background(), l, "event:y", func(context.Context) (*models.Event, error) {
		return &models.Event{Name: "still served"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, SourceStorage, src)
	assert.Equal(t, "still served", ev.Name)

	// Invalidation failure is logged, not raised.
	l.Invalidate(context.Background(), models.ResourceEvent, uuid.New())
}

func TestCorruptEntryIsReloaded(t *testing.T) {
	l, mr := newLayer(t)
	require.NoError(t, mr.Set("event:z", "not json"))

	ev, src, err := Fetch(context.Background(), l, "event:z", func(context.Context) (*models.Event, error) {
		return &models.Event{Name: "fresh"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, SourceStorage, src)
	assert.Equal(t, "fresh", ev.Name)
}

func TestListKeys(t *testing.T) {
	assert.Equal(t, "events:list", ListKey(models.ResourceEvent))
	assert.Equal(t, "tickets:list", ListKey(models.ResourceTicket))
	assert.Empty(t, ListKey(models.ResourceRegistration))
	assert.Equal(t, "HIT", SourceCache.Header())
	assert.Equal(t, "MISS", SourceStorage.Header())
}
