// Package notify is the notification capability behind the entry form: it
// keeps scheduled reminders in an outbox and delivers them when they fall due.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gmsas95/medreminder/internal/civil"
	apperrors "github.com/gmsas95/medreminder/internal/errors"
	"github.com/gmsas95/medreminder/internal/reminder"
	"github.com/gmsas95/medreminder/internal/store"
)

// Outbox schedules reminders by writing them to the store. It implements
// reminder.Notifier.
type Outbox struct {
	store   *store.Store
	granted bool
	logger  *zap.Logger
}

var _ reminder.Notifier = (*Outbox)(nil)

func NewOutbox(st *store.Store, granted bool, logger *zap.Logger) *Outbox {
	return &Outbox{store: st, granted: granted, logger: logger}
}

// Permission reports whether reminders may be delivered at all.
func (o *Outbox) Permission(ctx context.Context) (reminder.Permission, error) {
	if o.granted {
		return reminder.PermissionGranted, nil
	}
	return reminder.PermissionDenied, nil
}

// Schedule stores the payload and returns the new reminder's ID. The reminder
// is stored even without permission; the dispatcher then records each fire as
// withheld instead of delivering it.
func (o *Outbox) Schedule(ctx context.Context, userID string, p reminder.Payload) (string, error) {
	loc := p.TriggerInstant.Location()
	firstFire := p.TriggerInstant
	if p.StartDate != nil && civil.DateOf(firstFire).Before(*p.StartDate) {
		// A course that starts later does not fire before its first day.
		firstFire = p.ReminderTime.On(*p.StartDate, loc)
	}

	r := &store.ScheduledReminder{
		ID:             uuid.NewString(),
		UserID:         userID,
		Title:          p.Title,
		Body:           p.Body,
		Priority:       string(p.Priority),
		SoundEnabled:   p.SoundEnabled,
		MedicationName: p.MedicationName,
		Dose:           p.Dose,
		ReminderTime:   p.ReminderTime.String(),
		Timezone:       loc.String(),
		NextFireAt:     firstFire,
		Status:         store.StatusScheduled,
	}
	if p.StartDate != nil {
		r.StartDate = p.StartDate.String()
	}
	if p.EndDate != nil {
		r.EndDate = p.EndDate.String()
		if end, ok := endOfCourse(r); ok && firstFire.After(end) {
			// The first fire is already past the last day.
			r.Status = store.StatusCompleted
		}
	}

	if !o.granted {
		r.LastError = apperrors.ErrPermissionDenied.Error()
	}

	if err := o.store.CreateReminder(ctx, r); err != nil {
		return "", err
	}
	o.logger.Info("Reminder stored",
		zap.String("id", r.ID),
		zap.String("user", userID),
		zap.Time("next_fire_at", firstFire),
		zap.String("status", r.Status),
		zap.Bool("permission_granted", o.granted))
	return r.ID, nil
}

// List returns a user's reminders, soonest first.
func (o *Outbox) List(ctx context.Context, userID string, limit int) ([]store.ScheduledReminder, error) {
	if limit <= 0 {
		limit = 50
	}
	return o.store.ListReminders(ctx, userID, limit, 0)
}

func (o *Outbox) Get(ctx context.Context, id string) (*store.ScheduledReminder, error) {
	return o.store.GetReminder(ctx, id)
}

// Cancel stops a reminder from firing again.
func (o *Outbox) Cancel(ctx context.Context, id string) error {
	return o.store.CancelReminder(ctx, id)
}

// endOfCourse is the last instant a reminder may fire: the end of its end
// date in its own time zone.
func endOfCourse(r *store.ScheduledReminder) (time.Time, bool) {
	if r.EndDate == "" {
		return time.Time{}, false
	}
	loc := location(r.Timezone)
	end, err := time.ParseInLocation("2006-01-02", r.EndDate, loc)
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(end.Year(), end.Month(), end.Day()+1, 0, 0, 0, 0, loc).Add(-time.Nanosecond), true
}

func location(name string) *time.Location {
	if name == "" || name == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.Local
	}
	return loc
}
