// Package memstore keeps events, tickets, registrations, payments, media
// and email logs in memory with the same chain resolution, filters and
// cascades as the PostgreSQL repositories. Service tests run against it.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dicoevent/backend/internal/access"
	"github.com/dicoevent/backend/internal/models"
	"github.com/dicoevent/backend/pkg/apperr"
)

// DB is the shared state behind the per-resource stores.
type DB struct {
	mu       sync.Mutex
	users    map[uuid.UUID]models.User
	events   map[uuid.UUID]models.Event
	tickets  map[uuid.UUID]models.Ticket
	regs     map[uuid.UUID]models.Registration
	payments map[uuid.UUID]models.Payment
	media    []models.Media
	logs     []models.EmailLog
	reads    map[models.ResourceType]int

	// Err, when set, is returned by every call.
	Err error
	// Now stamps registration and payment times.
	Now func() time.Time
}

// New returns an empty DB.
func New() *DB {
	return &DB{
		users:    map[uuid.UUID]models.User{},
		events:   map[uuid.UUID]models.Event{},
		tickets:  map[uuid.UUID]models.Ticket{},
		regs:     map[uuid.UUID]models.Registration{},
		payments: map[uuid.UUID]models.Payment{},
		reads:    map[models.ResourceType]int{},
		Now:      time.Now,
	}
}

// AddUser stores a user and returns it.
func (db *DB) AddUser(username string, superuser bool, groups ...string) models.User {
	db.mu.Lock()
	defer db.mu.Unlock()
	u := models.User{ID: uuid.New(), Username: username, Email: username + "@example.test", IsSuperuser: superuser, Groups: groups}
	db.users[u.ID] = u
	return u
}

// Reads returns how many single or list reads hit rt.
func (db *DB) Reads(rt models.ResourceType) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.reads[rt]
}

// Events returns the event store.
func (db *DB) Events() *Events { return &Events{db: db} }

// Tickets returns the ticket store.
func (db *DB) Tickets() *Tickets { return &Tickets{db: db} }

// Registrations returns the registration store.
func (db *DB) Registrations() *Registrations { return &Registrations{db: db} }

// Payments returns the payment store.
func (db *DB) Payments() *Payments { return &Payments{db: db} }

// Media returns the media store.
func (db *DB) Media() *Media { return &Media{db: db} }

// Reminders returns the due-reminder query.
func (db *DB) Reminders() *Reminders { return &Reminders{db: db} }

// EmailLogs returns the email log store.
func (db *DB) EmailLogs() *EmailLogs { return &EmailLogs{db: db} }

func (db *DB) userExists(id uuid.UUID) bool {
	_, ok := db.users[id]
	return ok
}

func (db *DB) ticket(id uuid.UUID) (models.Ticket, bool) {
	t, ok := db.tickets[id]
	if !ok {
		return t, false
	}
	t.OrganizerID = db.events[t.EventID].OrganizerID
	return t, true
}

func (db *DB) registration(id uuid.UUID) (models.Registration, bool) {
	r, ok := db.regs[id]
	if !ok {
		return r, false
	}
	t, _ := db.ticket(r.TicketID)
	r.OrganizerID = t.OrganizerID
	return r, true
}

func (db *DB) payment(id uuid.UUID) (models.Payment, bool) {
	p, ok := db.payments[id]
	if !ok {
		return p, false
	}
	r, _ := db.registration(p.RegistrationID)
	p.UserID = r.UserID
	p.OrganizerID = r.OrganizerID
	return p, true
}

// cascadeRegistration removes a registration and its payments.
func (db *DB) cascadeRegistration(id uuid.UUID, c *models.Cascade) {
	for pid, p := range db.payments {
		if p.RegistrationID == id {
			delete(db.payments, pid)
			c.PaymentIDs = append(c.PaymentIDs, pid)
		}
	}
	delete(db.regs, id)
	c.RegistrationIDs = append(c.RegistrationIDs, id)
}

func (db *DB) cascadeTicket(id uuid.UUID, c *models.Cascade) {
	for rid, r := range db.regs {
		if r.TicketID == id {
			db.cascadeRegistration(rid, c)
		}
	}
	delete(db.tickets, id)
	c.TicketIDs = append(c.TicketIDs, id)
}

func (db *DB) cascadeEvent(id uuid.UUID, c *models.Cascade) {
	for tid, t := range db.tickets {
		if t.EventID == id {
			db.cascadeTicket(tid, c)
		}
	}
	kept := db.media[:0]
	for _, m := range db.media {
		if m.EventID != id {
			kept = append(kept, m)
		}
	}
	db.media = kept
	delete(db.events, id)
	c.EventIDs = append(c.EventIDs, id)
}

// Events implements events.Store.
type Events struct{ db *DB }

func (s *Events) Get(_ context.Context, id uuid.UUID) (*models.Event, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.Err != nil {
		return nil, s.db.Err
	}
	s.db.reads[models.ResourceEvent]++
	e, ok := s.db.events[id]
	if !ok {
		return nil, apperr.NotFound("event")
	}
	return &e, nil
}

func (s *Events) List(context.Context) ([]models.Event, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.Err != nil {
		return nil, s.db.Err
	}
	s.db.reads[models.ResourceEvent]++
	out := make([]models.Event, 0, len(s.db.events))
	for _, e := range s.db.events {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (s *Events) Create(_ context.Context, e *models.Event) (*models.Event, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.Err != nil {
		return nil, s.db.Err
	}
	if !s.db.userExists(e.OrganizerID) {
		return nil, apperr.Validation("organizer does not exist")
	}
	cp := *e
	cp.ID = uuid.New()
	s.db.events[cp.ID] = cp
	return &cp, nil
}

func (s *Events) Update(_ context.Context, e *models.Event) (*models.Event, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.Err != nil {
		return nil, s.db.Err
	}
	old, ok := s.db.events[e.ID]
	if !ok {
		return nil, apperr.NotFound("event")
	}
	cp := *e
	cp.OrganizerID = old.OrganizerID
	s.db.events[cp.ID] = cp
	return &cp, nil
}

func (s *Events) Delete(_ context.Context, id uuid.UUID) (models.Cascade, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var c models.Cascade
	if s.db.Err != nil {
		return c, s.db.Err
	}
	if _, ok := s.db.events[id]; !ok {
		return c, apperr.NotFound("event")
	}
	s.db.cascadeEvent(id, &c)
	return c, nil
}

func (s *Events) UserExists(_ context.Context, id uuid.UUID) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.Err != nil {
		return false, s.db.Err
	}
	return s.db.userExists(id), nil
}

// Tickets implements tickets.Store.
type Tickets struct{ db *DB }

func (s *Tickets) Get(_ context.Context, id uuid.UUID) (*models.Ticket, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.Err != nil {
		return nil, s.db.Err
	}
	s.db.reads[models.ResourceTicket]++
	t, ok := s.db.ticket(id)
	if !ok {
		return nil, apperr.NotFound("ticket")
	}
	return &t, nil
}

func (s *Tickets) List(context.Context) ([]models.Ticket, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.Err != nil {
		return nil, s.db.Err
	}
	s.db.reads[models.ResourceTicket]++
	out := make([]models.Ticket, 0, len(s.db.tickets))
	for id := range s.db.tickets {
		t, _ := s.db.ticket(id)
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Tickets) EventOrganizer(_ context.Context, eventID uuid.UUID) (uuid.UUID, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.Err != nil {
		return uuid.Nil, s.db.Err
	}
	e, ok := s.db.events[eventID]
	if !ok {
		return uuid.Nil, apperr.NotFound("event")
	}
	return e.OrganizerID, nil
}

func (s *Tickets) Create(_ context.Context, t *models.Ticket) (*models.Ticket, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.Err != nil {
		return nil, s.db.Err
	}
	if _, ok := s.db.events[t.EventID]; !ok {
		return nil, apperr.Validation("event does not exist")
	}
	cp := *t
	cp.ID = uuid.New()
	cp.OrganizerID = uuid.Nil
	s.db.tickets[cp.ID] = cp
	out, _ := s.db.ticket(cp.ID)
	return &out, nil
}

func (s *Tickets) Update(_ context.Context, t *models.Ticket) (*models.Ticket, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.Err != nil {
		return nil, s.db.Err
	}
	old, ok := s.db.tickets[t.ID]
	if !ok {
		return nil, apperr.NotFound("ticket")
	}
	cp := *t
	cp.EventID = old.EventID
	cp.OrganizerID = uuid.Nil
	s.db.tickets[cp.ID] = cp
	out, _ := s.db.ticket(cp.ID)
	return &out, nil
}

func (s *Tickets) Delete(_ context.Context, id uuid.UUID) (models.Cascade, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var c models.Cascade
	if s.db.Err != nil {
		return c, s.db.Err
	}
	if _, ok := s.db.tickets[id]; !ok {
		return c, apperr.NotFound("ticket")
	}
	s.db.cascadeTicket(id, &c)
	return c, nil
}

// Registrations implements registrations.Store.
type Registrations struct{ db *DB }

func (s *Registrations) Get(_ context.Context, id uuid.UUID) (*models.Registration, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.Err != nil {
		return nil, s.db.Err
	}
	s.db.reads[models.ResourceRegistration]++
	r, ok := s.db.registration(id)
	if !ok {
		return nil, apperr.NotFound("registration")
	}
	return &r, nil
}

func (s *Registrations) List(_ context.Context, f access.Filter) ([]models.Registration, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.Err != nil {
		return nil, s.db.Err
	}
	s.db.reads[models.ResourceRegistration]++
	out := []models.Registration{}
	for id := range s.db.regs {
		r, _ := s.db.registration(id)
		if f.Matches(r.Target()) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RegisteredAt.Before(out[j].RegisteredAt) })
	return out, nil
}

func (s *Registrations) TicketOrganizer(_ context.Context, ticketID uuid.UUID) (uuid.UUID, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.Err != nil {
		return uuid.Nil, s.db.Err
	}
	t, ok := s.db.ticket(ticketID)
	if !ok {
		return uuid.Nil, apperr.NotFound("ticket")
	}
	return t.OrganizerID, nil
}

func (s *Registrations) UserExists(_ context.Context, id uuid.UUID) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.Err != nil {
		return false, s.db.Err
	}
	return s.db.userExists(id), nil
}

func (s *Registrations) PaymentIDs(_ context.Context, regID uuid.UUID) ([]uuid.UUID, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.Err != nil {
		return nil, s.db.Err
	}
	var ids []uuid.UUID
	for id, p := range s.db.payments {
		if p.RegistrationID == regID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *Registrations) Create(_ context.Context, r *models.Registration) (*models.Registration, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.Err != nil {
		return nil, s.db.Err
	}
	cp := *r
	cp.ID = uuid.New()
	cp.RegisteredAt = s.db.Now()
	cp.OrganizerID = uuid.Nil
	s.db.regs[cp.ID] = cp
	out, _ := s.db.registration(cp.ID)
	return &out, nil
}

func (s *Registrations) Update(_ context.Context, r *models.Registration) (*models.Registration, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.Err != nil {
		return nil, s.db.Err
	}
	old, ok := s.db.regs[r.ID]
	if !ok {
		return nil, apperr.NotFound("registration")
	}
	old.TicketID = r.TicketID
	s.db.regs[old.ID] = old
	out, _ := s.db.registration(old.ID)
	return &out, nil
}

func (s *Registrations) Delete(_ context.Context, id uuid.UUID) (models.Cascade, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var c models.Cascade
	if s.db.Err != nil {
		return c, s.db.Err
	}
	if _, ok := s.db.regs[id]; !ok {
		return c, apperr.NotFound("registration")
	}
	s.db.cascadeRegistration(id, &c)
	return c, nil
}

// Payments implements payments.Store.
type Payments struct{ db *DB }

func (s *Payments) Get(_ context.Context, id uuid.UUID) (*models.Payment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.Err != nil {
		return nil, s.db.Err
	}
	s.db.reads[models.ResourcePayment]++
	p, ok := s.db.payment(id)
	if !ok {
		return nil, apperr.NotFound("payment")
	}
	return &p, nil
}

func (s *Payments) List(_ context.Context, f access.Filter) ([]models.Payment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.Err != nil {
		return nil, s.db.Err
	}
	s.db.reads[models.ResourcePayment]++
	out := []models.Payment{}
	for id := range s.db.payments {
		p, _ := s.db.payment(id)
		if f.Matches(p.Target()) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PaidAt.Before(out[j].PaidAt) })
	return out, nil
}

func (s *Payments) RegistrationTarget(_ context.Context, regID uuid.UUID) (models.Target, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.Err != nil {
		return models.Target{}, s.db.Err
	}
	r, ok := s.db.registration(regID)
	if !ok {
		return models.Target{}, apperr.NotFound("registration")
	}
	return models.Target{Type: models.ResourcePayment, OrganizerID: r.OrganizerID, OwnerID: r.UserID}, nil
}

func (s *Payments) Create(_ context.Context, p *models.Payment) (*models.Payment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.Err != nil {
		return nil, s.db.Err
	}
	cp := *p
	cp.ID = uuid.New()
	cp.PaidAt = s.db.Now()
	s.db.payments[cp.ID] = cp
	out, _ := s.db.payment(cp.ID)
	return &out, nil
}

func (s *Payments) Update(_ context.Context, p *models.Payment) (*models.Payment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.Err != nil {
		return nil, s.db.Err
	}
	old, ok := s.db.payments[p.ID]
	if !ok {
		return nil, apperr.NotFound("payment")
	}
	old.PaymentMethod = p.PaymentMethod
	old.PaymentStatus = p.PaymentStatus
	old.AmountPaid = p.AmountPaid
	s.db.payments[old.ID] = old
	out, _ := s.db.payment(old.ID)
	return &out, nil
}

func (s *Payments) Delete(_ context.Context, id uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.Err != nil {
		return s.db.Err
	}
	if _, ok := s.db.payments[id]; !ok {
		return apperr.NotFound("payment")
	}
	delete(s.db.payments, id)
	return nil
}

// Media implements media.Store.
type Media struct{ db *DB }

func (s *Media) Event(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	return s.db.Events().Get(ctx, id)
}

func (s *Media) Create(_ context.Context, m *models.Media) (*models.Media, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.Err != nil {
		return nil, s.db.Err
	}
	if _, ok := s.db.events[m.EventID]; !ok {
		return nil, apperr.Validation("event does not exist")
	}
	cp := *m
	cp.ID = uuid.New()
	s.db.media = append(s.db.media, cp)
	return &cp, nil
}

func (s *Media) ListByEvent(_ context.Context, eventID uuid.UUID) ([]models.Media, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.Err != nil {
		return nil, s.db.Err
	}
	out := []models.Media{}
	for _, m := range s.db.media {
		if m.EventID == eventID {
			out = append(out, m)
		}
	}
	return out, nil
}

// Count returns how many media rows exist.
func (s *Media) Count() int {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return len(s.db.media)
}

// Reminders implements reminders.Store.
type Reminders struct{ db *DB }

// DueReminders returns registrations whose event starts in [from, to).
func (s *Reminders) DueReminders(_ context.Context, from, to time.Time) ([]models.DueReminder, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.Err != nil {
		return nil, s.db.Err
	}
	out := []models.DueReminder{}
	for _, r := range s.db.regs {
		t := s.db.tickets[r.TicketID]
		e := s.db.events[t.EventID]
		if e.StartTime.Before(from) || !e.StartTime.Before(to) {
			continue
		}
		u := s.db.users[r.UserID]
		out = append(out, models.DueReminder{
			RegistrationID: r.ID,
			EventID:        e.ID,
			EventName:      e.Name,
			StartTime:      e.StartTime,
			Username:       u.Username,
			Email:          u.Email,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

// EmailLogs implements emaillogs.Store.
type EmailLogs struct{ db *DB }

func (s *EmailLogs) Create(_ context.Context, l *models.EmailLog) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.Err != nil {
		return s.db.Err
	}
	cp := *l
	cp.ID = uuid.New()
	cp.CreatedAt = s.db.Now()
	s.db.logs = append(s.db.logs, cp)
	return nil
}

func (s *EmailLogs) List(_ context.Context, eventID *uuid.UUID) ([]models.EmailLog, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.Err != nil {
		return nil, s.db.Err
	}
	out := []models.EmailLog{}
	for i := len(s.db.logs) - 1; i >= 0; i-- {
		l := s.db.logs[i]
		if eventID != nil && (l.EventID == nil || *l.EventID != *eventID) {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}
