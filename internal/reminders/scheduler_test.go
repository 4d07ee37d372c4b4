package reminders

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dicoevent/backend/internal/memstore"
	"github.com/dicoevent/backend/internal/models"
	"github.com/dicoevent/backend/pkg/mailer"
	"github.com/dicoevent/backend/pkg/redis"
)

var now = time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

type fakeMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	fail map[string]bool
}

func (m *fakeMailer) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail[msg.To[0]] {
		return errors.New("smtp: 550 mailbox unavailable")
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMailer) recipients() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sent))
	for _, msg := range m.sent {
		out = append(out, msg.To[0])
	}
	return out
}

type panicMailer struct{}

func (panicMailer) Send(context.Context, mailer.Message) error { panic("boom") }

type failingStore struct{}

func (failingStore) DueReminders(context.Context, time.Time, time.Time) ([]models.DueReminder, error) {
	return nil, errors.New("connection reset")
}

type fixture struct {
	db     *memstore.DB
	mail   *fakeMailer
	sched  *Scheduler
	events map[string]*models.Event
}

func newFixture(t *testing.T, rdb *goredis.Client) *fixture {
	t.Helper()
	db := memstore.New()
	db.Now = func() time.Time { return now }
	mail := &fakeMailer{fail: map[string]bool{}}
	s := NewScheduler(db.Reminders(), mail, db.EmailLogs(), rdb, Config{Lead: 2 * time.Hour, Interval: 5 * time.Minute, From: "noreply@example.test"}, nil)
	s.now = func() time.Time { return now }
	return &fixture{db: db, mail: mail, sched: s, events: map[string]*models.Event{}}
}

// register creates an event starting at start with one registrant named username.
func (f *fixture) register(t *testing.T, username string, start time.Time) {
	t.Helper()
	ctx := context.Background()
	org := f.db.AddUser("org-"+username, false, models.GroupOrganizer)
	u := f.db.AddUser(username, false)
	e, err := f.db.Events().Create(ctx, &models.Event{Name: "Event " + username, StartTime: start, EndTime: start.Add(time.Hour), OrganizerID: org.ID})
	require.NoError(t, err)
	k, err := f.db.Tickets().Create(ctx, &models.Ticket{Name: "GA", Price: decimal.Zero, EventID: e.ID, SalesStart: now, SalesEnd: now})
	require.NoError(t, err)
	_, err = f.db.Registrations().Create(ctx, &models.Registration{UserID: u.ID, TicketID: k.ID})
	require.NoError(t, err)
	f.events[username] = e
}

func TestWindowIsHalfOpen(t *testing.T) {
	f := newFixture(t, nil)
	f.register(t, "lower", now.Add(2*time.Hour))
	f.register(t, "inside", now.Add(2*time.Hour+3*time.Minute))
	f.register(t, "upper", now.Add(2*time.Hour+5*time.Minute))
	f.register(t, "after", now.Add(2*time.Hour+6*time.Minute))
	f.register(t, "before", now.Add(2*time.Hour-time.Second))

	res, err := f.sched.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Due: 2, Sent: 2}, res)
	assert.ElementsMatch(t, []string{"lower@example.test", "inside@example.test"}, f.mail.recipients())
}

func TestWindow(t *testing.T) {
	f := newFixture(t, nil)
	from, to := f.sched.Window(now)
	assert.Equal(t, now.Add(2*time.Hour), from)
	assert.Equal(t, now.Add(2*time.Hour+5*time.Minute), to)
}

func TestJitteredTicksSelectAdjacentSlots(t *testing.T) {
	f := newFixture(t, nil)
	ticks := []time.Time{
		now.Add(100 * time.Millisecond),
		now.Add(5*time.Minute + 400*time.Millisecond),
		now.Add(10*time.Minute + 50*time.Millisecond),
	}
	_, prevTo := f.sched.Window(ticks[0])
	for _, tick := range ticks[1:] {
		from, to := f.sched.Window(tick)
		assert.Equal(t, prevTo, from, tick)
		assert.Equal(t, 5*time.Minute, to.Sub(from))
		prevTo = to
	}

	// Starts between the two ticks' raw lead times.
	f.register(t, "uma", now.Add(2*time.Hour+5*time.Minute+200*time.Millisecond))
	ctx := context.Background()
	for _, tick := range ticks {
		f.sched.now = func() time.Time { return tick }
		_, err := f.sched.RunOnce(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"uma@example.test"}, f.mail.recipients())
}

func TestConsecutiveRunsSendOnce(t *testing.T) {
	f := newFixture(t, nil)
	f.register(t, "uma", now.Add(2*time.Hour+4*time.Minute))
	ctx := context.Background()

	_, err := f.sched.RunOnce(ctx)
	require.NoError(t, err)
	f.sched.now = func() time.Time { return now.Add(5 * time.Minute) }
	_, err = f.sched.RunOnce(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"uma@example.test"}, f.mail.recipients())
}

func TestSendsOneMessagePerRegistration(t *testing.T) {
	f := newFixture(t, nil)
	f.register(t, "uma", now.Add(2*time.Hour+time.Minute))

	_, err := f.sched.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, f.mail.sent, 1)
	msg := f.mail.sent[0]
	assert.Equal(t, "Reminder: Event uma", msg.Subject)
	assert.Equal(t, "noreply@example.test", msg.From)
	assert.Contains(t, msg.Body, "Hi uma")
}

func TestFailedSendDoesNotAbortBatch(t *testing.T) {
	f := newFixture(t, nil)
	f.register(t, "bad", now.Add(2*time.Hour+time.Minute))
	f.register(t, "good", now.Add(2*time.Hour+2*time.Minute))
	f.mail.fail["bad@example.test"] = true

	res, err := f.sched.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Due: 2, Sent: 1, Failed: 1}, res)
	assert.Equal(t, []string{"good@example.test"}, f.mail.recipients())

	logs, err := f.db.EmailLogs().List(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	status := map[string]models.EmailLog{}
	for _, l := range logs {
		status[l.RecipientEmail] = l
	}
	assert.Equal(t, models.EmailLogStatusFailed, status["bad@example.test"].Status)
	assert.Contains(t, status["bad@example.test"].ErrorMessage, "mailbox unavailable")
	assert.Nil(t, status["bad@example.test"].SentAt)
	assert.Equal(t, models.EmailLogStatusSent, status["good@example.test"].Status)
	require.NotNil(t, status["good@example.test"].SentAt)
	assert.Equal(t, f.events["good"].ID, *status["good@example.test"].EventID)
}

func TestQueryFailureIsReturned(t *testing.T) {
	mail := &fakeMailer{}
	s := NewScheduler(failingStore{}, mail, nil, nil, Config{Lead: 2 * time.Hour, Interval: 5 * time.Minute}, nil)
	_, err := s.RunOnce(context.Background())
	assert.ErrorContains(t, err, "connection reset")
	assert.Empty(t, mail.sent)
}

func TestPanicIsReraised(t *testing.T) {
	f := newFixture(t, nil)
	f.register(t, "uma", now.Add(2*time.Hour+time.Minute))
	f.sched.mail = panicMailer{}
	assert.PanicsWithValue(t, "boom", func() { _, _ = f.sched.RunOnce(context.Background()) })
}

func TestRunExclusiveSkipsWhileLocked(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	f := newFixture(t, rdb)
	f.register(t, "uma", now.Add(2*time.Hour+time.Minute))
	ctx := context.Background()

	held, err := redis.TryLock(ctx, rdb, LockKey, time.Minute)
	require.NoError(t, err)
	_, err = f.sched.RunExclusive(ctx)
	assert.ErrorIs(t, err, redis.ErrLockHeld)
	assert.Empty(t, f.mail.recipients())

	require.NoError(t, held.Release(ctx))
	res, err := f.sched.RunExclusive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
	assert.False(t, mr.Exists(LockKey))
}
