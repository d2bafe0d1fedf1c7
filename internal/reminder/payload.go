package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/gmsas95/medreminder/internal/civil"
	apperrors "github.com/gmsas95/medreminder/internal/errors"
	"github.com/gmsas95/medreminder/internal/medform"
)

// Priority of the notification on platforms that support it.
type Priority string

const (
	PriorityDefault Priority = "default"
	PriorityHigh    Priority = "high"
)

// Payload describes one reminder for the notification capability. The first
// fire is TriggerInstant; it repeats daily at ReminderTime through EndDate.
type Payload struct {
	Title          string    `json:"title"`
	Body           string    `json:"body"`
	SoundEnabled   bool      `json:"sound_enabled"`
	Priority       Priority  `json:"priority"`
	TriggerInstant time.Time `json:"trigger_instant"`

	MedicationName string          `json:"medication_name"`
	Dose           string          `json:"dose,omitempty"`
	StartDate      *civil.Date     `json:"start_date,omitempty"`
	EndDate        *civil.Date     `json:"end_date,omitempty"`
	ReminderTime   civil.TimeOfDay `json:"reminder_time"`
}

// BuildPayload derives the reminder for a validated record. Calling it before
// validation has passed is a programming error reported as ErrIncompleteRecord.
func BuildPayload(rec medform.Record, now time.Time) (Payload, error) {
	if rec.ReminderTime == nil {
		return Payload{}, apperrors.ErrIncompleteRecord
	}

	return Payload{
		Title:          fmt.Sprintf("Time for %s", rec.Name),
		Body:           fmt.Sprintf("Take your medication: %s", rec.Dose),
		SoundEnabled:   true,
		Priority:       PriorityHigh,
		TriggerInstant: NextTrigger(now, *rec.ReminderTime),
		MedicationName: rec.Name,
		Dose:           rec.Dose,
		StartDate:      rec.StartDate,
		EndDate:        rec.EndDate,
		ReminderTime:   *rec.ReminderTime,
	}, nil
}

// Permission is the state of the notification permission on the device.
type Permission string

const (
	PermissionGranted      Permission = "granted"
	PermissionDenied       Permission = "denied"
	PermissionUndetermined Permission = "undetermined"
)

// Notifier is the external capability that actually schedules and delivers
// notifications. The form only decides when and what.
type Notifier interface {
	Permission(ctx context.Context) (Permission, error)
	Schedule(ctx context.Context, userID string, p Payload) (string, error)
}
