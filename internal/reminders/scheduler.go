// Package reminders mails registrants shortly before their event starts.
//
// Each run selects registrations whose event starts in the half-open
// window [now+lead, now+lead+interval). Runs are spaced by the same
// interval, so consecutive windows tile the timeline and every start time
// is selected by exactly one run.
package reminders

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dicoevent/backend/internal/models"
	"github.com/dicoevent/backend/pkg/mailer"
	"github.com/dicoevent/backend/pkg/redis"
)

// LockKey guards against overlapping runs across worker processes.
const LockKey = "reminders:run"

// Store finds registrations due for a reminder.
type Store interface {
	DueReminders(ctx context.Context, from, to time.Time) ([]models.DueReminder, error)
}

// Mailer is the mail collaborator.
type Mailer interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// LogStore records each delivery attempt.
type LogStore interface {
	Create(ctx context.Context, l *models.EmailLog) error
}

// Config holds the window and sender settings.
type Config struct {
	Lead     time.Duration
	Interval time.Duration
	From     string
}

// Result counts the outcome of one run.
type Result struct {
	Due    int
	Sent   int
	Failed int
}

// Scheduler runs reminder batches.
type Scheduler struct {
	store    Store
	mail     Mailer
	logs     LogStore
	rdb      *goredis.Client
	lead     time.Duration
	interval time.Duration
	from     string
	now      func() time.Time
	logger   *zap.Logger
}

// NewScheduler creates a scheduler. A nil rdb runs without the
// cross-process lock; a nil logs skips delivery records.
func NewScheduler(store Store, mail Mailer, logs LogStore, rdb *goredis.Client, cfg Config, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		store:    store,
		mail:     mail,
		logs:     logs,
		rdb:      rdb,
		lead:     cfg.Lead,
		interval: cfg.Interval,
		from:     cfg.From,
		now:      time.Now,
		logger:   logger,
	}
}

// Window returns the start-time range [from, to) selected by a run at now.
// now is truncated to the interval, so consecutive ticks select adjacent
// slots regardless of when within the slot each tick fires.
func (s *Scheduler) Window(now time.Time) (from, to time.Time) {
	if s.interval > 0 {
		now = now.Truncate(s.interval)
	}
	from = now.Add(s.lead)
	return from, from.Add(s.interval)
}

// RunOnce sends one reminder to every registration in the current window.
// A failed send is logged and recorded, and the batch continues. A panic
// is logged and re-raised.
func (s *Scheduler) RunOnce(ctx context.Context) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("reminder run panicked", zap.Any("panic", r), zap.Stack("stack"))
			panic(r)
		}
	}()

	from, to := s.Window(s.now())
	due, err := s.store.DueReminders(ctx, from, to)
	if err != nil {
		s.logger.Error("query due reminders failed", zap.Time("from", from), zap.Time("to", to), zap.Error(err))
		return res, fmt.Errorf("query due reminders: %w", err)
	}
	if len(due) == 0 {
		s.logger.Info("no registrations in reminder window", zap.Time("from", from), zap.Time("to", to))
		return res, nil
	}

	for _, d := range due {
		res.Due++
		if err := s.send(ctx, d); err != nil {
			res.Failed++
			s.logger.Error("send reminder failed",
				zap.String("registration_id", d.RegistrationID.String()),
				zap.String("email", d.Email),
				zap.Error(err),
			)
			continue
		}
		res.Sent++
		s.logger.Info("reminder sent",
			zap.String("registration_id", d.RegistrationID.String()),
			zap.String("email", d.Email),
			zap.String("event", d.EventName),
			zap.Time("start_time", d.StartTime),
		)
	}
	s.logger.Info("reminder run finished", zap.Int("due", res.Due), zap.Int("sent", res.Sent), zap.Int("failed", res.Failed))
	return res, nil
}

// RunExclusive runs a batch under the Redis lock. It returns
// redis.ErrLockHeld without sending anything when another run is active.
func (s *Scheduler) RunExclusive(ctx context.Context) (Result, error) {
	if s.rdb == nil {
		return s.RunOnce(ctx)
	}
	lock, err := redis.TryLock(ctx, s.rdb, LockKey, s.lockTTL())
	if err != nil {
		return Result{}, err
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("release reminder lock failed", zap.Error(err))
		}
	}()
	return s.RunOnce(ctx)
}

// Run starts a batch now and then every interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.logger.Info("reminder scheduler started", zap.Duration("lead", s.lead), zap.Duration("interval", s.interval))
	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("reminder scheduler stopping")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	_, err := s.RunExclusive(ctx)
	switch {
	case errors.Is(err, redis.ErrLockHeld):
		s.logger.Info("reminder run skipped, previous run still active")
	case err != nil:
		s.logger.Error("reminder run failed", zap.Error(err))
	}
}

// lockTTL bounds how long a crashed run can block the next ones.
func (s *Scheduler) lockTTL() time.Duration {
	return 2 * s.interval
}

func (s *Scheduler) send(ctx context.Context, d models.DueReminder) error {
	msg := mailer.Message{
		Subject: "Reminder: " + d.EventName,
		Body: fmt.Sprintf("Hi %s,\n\nDon't forget! The event '%s' starts at %s.",
			d.Username, d.EventName, d.StartTime.UTC().Format(time.RFC1123)),
		From: s.from,
		To:   []string{d.Email},
	}
	sendErr := s.mail.Send(ctx, msg)
	s.record(ctx, d, msg.Subject, sendErr)
	return sendErr
}

func (s *Scheduler) record(ctx context.Context, d models.DueReminder, subject string, sendErr error) {
	if s.logs == nil {
		return
	}
	eventID, regID := d.EventID, d.RegistrationID
	l := &models.EmailLog{
		EventID:        &eventID,
		RegistrationID: &regID,
		EmailType:      models.EmailTypeReminder,
		RecipientEmail: d.Email,
		Subject:        subject,
		Status:         models.EmailLogStatusSent,
	}
	if sendErr != nil {
		l.Status = models.EmailLogStatusFailed
		l.ErrorMessage = sendErr.Error()
	} else {
		sentAt := s.now()
		l.SentAt = &sentAt
	}
	if err := s.logs.Create(ctx, l); err != nil {
		s.logger.Warn("record email log failed", zap.String("registration_id", regID.String()), zap.Error(err))
	}
}
