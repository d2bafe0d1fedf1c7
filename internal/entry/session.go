// Package entry drives one medication entry screen: it owns the form, the
// picker and the handoff of the finished entry to the notification capability.
package entry

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/gmsas95/medreminder/internal/catalog"
	"github.com/gmsas95/medreminder/internal/civil"
	apperrors "github.com/gmsas95/medreminder/internal/errors"
	"github.com/gmsas95/medreminder/internal/medform"
	"github.com/gmsas95/medreminder/internal/metrics"
	"github.com/gmsas95/medreminder/internal/reminder"
)

const (
	SuccessMessage     = "Medication saved and reminder scheduled!"
	SavedOnlyMessage   = "Medication saved."
	PermissionAdvisory = "Permission required: notifications are disabled, the reminder may not fire."
	ScheduleAdvisory   = "The reminder could not be scheduled and may not fire."
)

// Options configures a Session. Notifier is required; the rest have defaults.
type Options struct {
	UserID   string
	Model    medform.InteractionModel
	Catalog  *catalog.Holder
	Notifier reminder.Notifier
	Now      func() time.Time
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
}

// Submission is the outcome of an accepted entry.
type Submission struct {
	Record     medform.Record   `json:"record"`
	Payload    reminder.Payload `json:"payload"`
	ReminderID string           `json:"reminder_id,omitempty"`
	Advisory   string           `json:"advisory,omitempty"`
	Message    string           `json:"message"`
}

// Session is one visit to the entry screen. It is not safe for concurrent
// use; hosts serialise events per session.
type Session struct {
	user     string
	model    medform.InteractionModel
	form     *medform.FormStore
	picker   *medform.Picker
	catalog  *catalog.Holder
	notifier reminder.Notifier
	now      func() time.Time
	logger   *zap.Logger
	metrics  *metrics.Metrics

	permission reminder.Permission
}

// New opens the screen and asks the notifier once for its permission state.
func New(ctx context.Context, opts Options) *Session {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Default()
	}
	if opts.Catalog == nil {
		opts.Catalog = catalog.NewHolder(catalog.Default())
	}

	s := &Session{
		user:     opts.UserID,
		model:    opts.Model,
		form:     medform.NewFormStore(),
		catalog:  opts.Catalog,
		notifier: opts.Notifier,
		now:      opts.Now,
		logger:   opts.Logger.With(zap.String("user", opts.UserID)),
		metrics:  opts.Metrics,
	}
	s.picker = medform.NewPicker(s.form, s.now)
	s.picker.OnTransition(func(target medform.PickerState, outcome medform.Outcome) {
		s.metrics.RecordPicker(target.String(), string(outcome))
	})

	s.permission = reminder.PermissionUndetermined
	perm, err := s.notifier.Permission(ctx)
	if err != nil {
		s.logger.Warn("Failed to query notification permission", zap.Error(err))
	} else {
		s.permission = perm
	}

	s.metrics.SessionOpened()
	return s
}

func (s *Session) Record() medform.Record          { return s.form.Snapshot() }
func (s *Session) Picker() *medform.Picker         { return s.picker }
func (s *Session) Model() medform.InteractionModel { return s.model }
func (s *Session) Permission() reminder.Permission { return s.permission }
func (s *Session) Catalog() *catalog.Catalog       { return s.catalog.Get() }
func (s *Session) UserID() string                  { return s.user }

// Advisory is the warning shown on entering the screen, if any.
func (s *Session) Advisory() string {
	if s.permission != reminder.PermissionGranted {
		return PermissionAdvisory
	}
	return ""
}

// SetField edits a field directly. Text fields come from the keyboard; the
// date and time fields are normally set through the picker.
func (s *Session) SetField(field medform.Field, value any) (medform.Record, error) {
	rec, err := s.form.SetField(field, value)
	if err == nil {
		s.metrics.RecordFieldEdit(string(field))
	}
	return rec, err
}

// SetType selects a medication type by catalog name; an empty name clears it.
func (s *Session) SetType(name string) (medform.Record, error) {
	if name == "" {
		return s.SetField(medform.FieldType, nil)
	}
	t, ok := s.catalog.Get().Lookup(name)
	if !ok {
		return s.form.Snapshot(), apperrors.New(apperrors.ErrFieldValue.Code, "unknown medication type "+name)
	}
	return s.SetField(medform.FieldType, t)
}

// CycleType moves the type selection to the next catalog entry.
func (s *Session) CycleType() (medform.Record, error) {
	return s.SetField(medform.FieldType, s.catalog.Get().Next(s.form.Snapshot().Type))
}

// TapField opens the picker for a date or time field using the session's
// interaction model. Tapping the end date before a start date is chosen does
// nothing and reports false.
func (s *Session) TapField(field medform.Field) (bool, error) {
	return s.OpenPicker(field, s.model)
}

// OpenPicker is TapField with an explicit interaction model, for hosts whose
// widget differs from the session default.
func (s *Session) OpenPicker(field medform.Field, model medform.InteractionModel) (bool, error) {
	target, ok := medform.PickerFor(field)
	if !ok {
		return false, apperrors.ErrPickerDisabled
	}
	if target == medform.OpenEnd && s.form.Snapshot().StartDate == nil {
		s.logger.Debug("End date tapped without a start date")
		return false, nil
	}
	if err := s.picker.Open(target, model); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Session) PickerChange(ev medform.ChangeEvent) error {
	return s.picker.Change(ev)
}

func (s *Session) PickerConfirm() error {
	return s.picker.Confirm()
}

func (s *Session) PickerCancel() error {
	return s.picker.Cancel()
}

// Undo steps the record back one edit. It is refused while a picker is open,
// since the open session was initialised from the current record.
func (s *Session) Undo() (medform.Record, bool, error) {
	if s.picker.State() != medform.Closed {
		return s.form.Snapshot(), false, apperrors.ErrPickerBusy
	}
	rec, ok := s.form.Undo()
	return rec, ok, nil
}

// Submit validates the entry and, when it passes, schedules the reminder and
// clears the form. A validation error leaves everything untouched. Scheduling
// problems do not reject the entry; they come back as Submission.Advisory.
func (s *Session) Submit(ctx context.Context) (*Submission, error) {
	if s.picker.State() != medform.Closed {
		return nil, apperrors.ErrPickerBusy
	}

	rec := s.form.Snapshot()
	if err := medform.Validate(rec); err != nil {
		s.metrics.RecordSubmission(apperrors.GetCode(err))
		return nil, err
	}

	payload, err := reminder.BuildPayload(rec, s.now())
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, "build reminder")
	}

	// The reminder is always handed off. Whether it can fire without
	// permission is the notifier's concern; the user only gets the advisory.
	sub := &Submission{Record: rec, Payload: payload, Message: SuccessMessage}
	id, err := s.notifier.Schedule(ctx, s.user, payload)
	if err != nil {
		s.logger.Warn("Failed to schedule reminder",
			zap.String("medication", rec.Name),
			zap.Time("trigger", payload.TriggerInstant),
			zap.Error(err))
		s.metrics.RecordScheduled(false)
		sub.Advisory = ScheduleAdvisory
		sub.Message = SavedOnlyMessage
	} else {
		s.metrics.RecordScheduled(true)
		sub.ReminderID = id
		s.logger.Info("Reminder scheduled",
			zap.String("id", id),
			zap.String("medication", rec.Name),
			zap.Time("trigger", payload.TriggerInstant),
			zap.String("permission", string(s.permission)))
		if s.permission != reminder.PermissionGranted {
			sub.Advisory = PermissionAdvisory
			sub.Message = SavedOnlyMessage
		}
	}

	s.metrics.RecordSubmission("")
	s.form.Reset()
	return sub, nil
}

// Leave discards the in-progress entry and closes any open picker.
func (s *Session) Leave() {
	if s.picker.State() != medform.Closed {
		_ = s.picker.Cancel()
	}
	s.form.Reset()
	s.metrics.SessionClosed()
}

// NextTrigger previews when a reminder at tod would first fire.
func (s *Session) NextTrigger(tod civil.TimeOfDay) time.Time {
	return reminder.NextTrigger(s.now(), tod)
}
