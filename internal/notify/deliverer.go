package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/gmsas95/medreminder/internal/errors"
	"github.com/gmsas95/medreminder/internal/store"
)

// Notification is one due firing of a reminder.
type Notification struct {
	ReminderID     string    `json:"reminder_id"`
	UserID         string    `json:"user_id"`
	Title          string    `json:"title"`
	Body           string    `json:"body"`
	Priority       string    `json:"priority"`
	SoundEnabled   bool      `json:"sound_enabled"`
	MedicationName string    `json:"medication_name"`
	Dose           string    `json:"dose,omitempty"`
	FireAt         time.Time `json:"fire_at"`
}

func notificationFor(r *store.ScheduledReminder, fireAt time.Time) Notification {
	return Notification{
		ReminderID:     r.ID,
		UserID:         r.UserID,
		Title:          r.Title,
		Body:           r.Body,
		Priority:       r.Priority,
		SoundEnabled:   r.SoundEnabled,
		MedicationName: r.MedicationName,
		Dose:           r.Dose,
		FireAt:         fireAt,
	}
}

// Text renders the notification for chat channels.
func (n Notification) Text() string {
	return fmt.Sprintf("%s\n%s", n.Title, n.Body)
}

// Deliverer sends a notification over one channel.
type Deliverer interface {
	Name() string
	Deliver(ctx context.Context, n Notification) error
}

// LogDeliverer writes notifications to the log. It is the default channel.
type LogDeliverer struct {
	logger *zap.Logger
}

func NewLogDeliverer(logger *zap.Logger) *LogDeliverer {
	return &LogDeliverer{logger: logger}
}

func (d *LogDeliverer) Name() string { return "log" }

func (d *LogDeliverer) Deliver(ctx context.Context, n Notification) error {
	d.logger.Info(n.Title,
		zap.String("reminder_id", n.ReminderID),
		zap.String("user", n.UserID),
		zap.String("body", n.Body),
		zap.String("priority", n.Priority),
		zap.Bool("sound", n.SoundEnabled),
		zap.Time("fire_at", n.FireAt))
	return nil
}

// ChannelError is the failure of one channel inside a MultiDeliverer.
type ChannelError struct {
	Channel string
	Err     error
}

func (e *ChannelError) Error() string { return e.Channel + ": " + e.Err.Error() }
func (e *ChannelError) Unwrap() error { return e.Err }

// MultiDeliverer fans a notification out to every channel. Deliver succeeds
// if at least one channel did.
type MultiDeliverer struct {
	channels []Deliverer
}

func NewMultiDeliverer(channels ...Deliverer) *MultiDeliverer {
	return &MultiDeliverer{channels: channels}
}

func (m *MultiDeliverer) Name() string { return "multi" }

func (m *MultiDeliverer) Channels() []Deliverer { return m.channels }

// DeliverEach sends to every channel and returns one result per channel, in
// order.
func (m *MultiDeliverer) DeliverEach(ctx context.Context, n Notification) []error {
	errs := make([]error, len(m.channels))
	for i, ch := range m.channels {
		if err := ch.Deliver(ctx, n); err != nil {
			errs[i] = &ChannelError{Channel: ch.Name(), Err: err}
		}
	}
	return errs
}

func (m *MultiDeliverer) Deliver(ctx context.Context, n Notification) error {
	if len(m.channels) == 0 {
		return errors.New("no delivery channels configured")
	}
	errs := m.DeliverEach(ctx, n)
	ok := false
	for _, err := range errs {
		if err == nil {
			ok = true
		}
	}
	if ok {
		return nil
	}
	return apperrors.Wrap(errors.Join(errs...), apperrors.ErrDeliveryFailed.Code, apperrors.ErrDeliveryFailed.Message)
}
